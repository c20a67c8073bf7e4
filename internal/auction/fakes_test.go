package auction

import (
	"context"
	"sync"
	"time"

	"github.com/uptrace/bun"

	"github.com/Shamsear/ssleague-sub021/internal/database/models"
	"github.com/Shamsear/ssleague-sub021/internal/database/repositories"
	"github.com/Shamsear/ssleague-sub021/internal/ledger"
)

// In-memory doubles for the repository and store interfaces. They model the
// same conditional-update semantics the SQL layer relies on, under a mutex,
// so the engine's race handling is exercised for real.

type fakeRoundRepo struct {
	mu     sync.Mutex
	nextID int64
	rounds map[int64]*models.Round
	tbs    *fakeTiebreakerRepo
}

func newFakeRoundRepo(tbs *fakeTiebreakerRepo) *fakeRoundRepo {
	return &fakeRoundRepo{nextID: 1, rounds: map[int64]*models.Round{}, tbs: tbs}
}

func (f *fakeRoundRepo) DB() *bun.DB { return nil }

func (f *fakeRoundRepo) Create(ctx context.Context, round *models.Round) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	round.ID = f.nextID
	f.nextID++
	round.Status = models.RoundStatusDraft
	f.rounds[round.ID] = round
	return nil
}

func (f *fakeRoundRepo) GetByID(ctx context.Context, id int64) (*models.Round, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	round, ok := f.rounds[id]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "round", ID: id}
	}
	copied := *round
	return &copied, nil
}

func (f *fakeRoundRepo) GetActiveBySeason(ctx context.Context, seasonID int64) (*models.Round, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, round := range f.rounds {
		if round.SeasonID == seasonID && round.Status == models.RoundStatusActive {
			copied := *round
			return &copied, nil
		}
	}
	return nil, &repositories.NotFoundError{Entity: "round", ID: seasonID}
}

func (f *fakeRoundRepo) Start(ctx context.Context, id int64, start, end time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	round, ok := f.rounds[id]
	if !ok || round.Status != models.RoundStatusDraft {
		return false, nil
	}
	round.Status = models.RoundStatusActive
	round.StartTime = start
	round.EndTime = end
	return true, nil
}

func (f *fakeRoundRepo) BeginClosing(ctx context.Context, id int64, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	round, ok := f.rounds[id]
	if !ok || round.Status != models.RoundStatusActive || round.EndTime.After(now) {
		return false, nil
	}
	round.Status = models.RoundStatusTiebreakerPending
	return true, nil
}

func (f *fakeRoundRepo) Complete(ctx context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	round, ok := f.rounds[id]
	if !ok || round.Status != models.RoundStatusTiebreakerPending {
		return false, nil
	}
	round.Status = models.RoundStatusCompleted
	return true, nil
}

func (f *fakeRoundRepo) MarkClosed(ctx context.Context, id int64, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	round, ok := f.rounds[id]
	if !ok || !round.ClosedAt.IsZero() {
		return false, nil
	}
	round.ClosedAt = now
	return true, nil
}

func (f *fakeRoundRepo) CompleteIfNoOpenTiebreakers(ctx context.Context, id int64) (bool, error) {
	f.mu.Lock()
	closed := false
	if round, ok := f.rounds[id]; ok {
		closed = !round.ClosedAt.IsZero()
	}
	f.mu.Unlock()
	if !closed {
		return false, nil
	}
	if f.tbs != nil && f.tbs.hasActiveInRound(id) {
		return false, nil
	}
	return f.Complete(ctx, id)
}

type fakeBidRepo struct {
	mu     sync.Mutex
	nextID int64
	bids   map[int64]*models.Bid

	// failNextMarkLost makes the next MarkLost call fail once, simulating a
	// transient store error during round closure.
	failNextMarkLost error
}

func newFakeBidRepo() *fakeBidRepo {
	return &fakeBidRepo{nextID: 1, bids: map[int64]*models.Bid{}}
}

func (f *fakeBidRepo) DB() *bun.DB { return nil }

func (f *fakeBidRepo) Create(ctx context.Context, bid *models.Bid) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.bids {
		if existing.TeamID == bid.TeamID && existing.PlayerID == bid.PlayerID &&
			existing.RoundID == bid.RoundID && existing.Status != models.BidStatusCancelled {
			return &repositories.ConflictError{Entity: "bid", Field: "player_id", Value: bid.PlayerID}
		}
	}
	bid.ID = f.nextID
	f.nextID++
	bid.Status = models.BidStatusPending
	f.bids[bid.ID] = bid
	return nil
}

func (f *fakeBidRepo) GetByID(ctx context.Context, id int64) (*models.Bid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bid, ok := f.bids[id]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "bid", ID: id}
	}
	copied := *bid
	return &copied, nil
}

func (f *fakeBidRepo) GetByRound(ctx context.Context, roundID int64) ([]*models.Bid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Bid
	for _, bid := range f.bids {
		if bid.RoundID == roundID && bid.Status != models.BidStatusCancelled {
			copied := *bid
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeBidRepo) Cancel(ctx context.Context, id, teamID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bid, ok := f.bids[id]
	if !ok || bid.TeamID != teamID || bid.Status != models.BidStatusPending {
		return false, nil
	}
	bid.Status = models.BidStatusCancelled
	return true, nil
}

func (f *fakeBidRepo) MarkWon(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if bid, ok := f.bids[id]; ok {
		bid.Status = models.BidStatusWon
	}
	return nil
}

func (f *fakeBidRepo) MarkLost(ctx context.Context, ids []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failNextMarkLost; err != nil {
		f.failNextMarkLost = nil
		return err
	}
	for _, id := range ids {
		if bid, ok := f.bids[id]; ok {
			bid.Status = models.BidStatusLost
		}
	}
	return nil
}

func (f *fakeBidRepo) status(id int64) models.BidStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bids[id].Status
}

type fakeTiebreakerRepo struct {
	mu      sync.Mutex
	nextID  int64
	tbs     map[int64]*models.Tiebreaker
	members map[int64][]*models.TeamTiebreaker
}

func newFakeTiebreakerRepo() *fakeTiebreakerRepo {
	return &fakeTiebreakerRepo{
		nextID:  1,
		tbs:     map[int64]*models.Tiebreaker{},
		members: map[int64][]*models.TeamTiebreaker{},
	}
}

func (f *fakeTiebreakerRepo) DB() *bun.DB { return nil }

func (f *fakeTiebreakerRepo) CreateWithMembers(ctx context.Context, tb *models.Tiebreaker, members []*models.TeamTiebreaker) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.tbs {
		if existing.RoundID == tb.RoundID && existing.PlayerID == tb.PlayerID {
			return &repositories.ConflictError{Entity: "tiebreaker", Field: "player_id", Value: tb.PlayerID}
		}
	}
	tb.ID = f.nextID
	f.nextID++
	f.tbs[tb.ID] = tb
	for i, member := range members {
		member.ID = tb.ID*100 + int64(i)
		member.TiebreakerID = tb.ID
	}
	f.members[tb.ID] = members
	tb.Teams = members
	return nil
}

func (f *fakeTiebreakerRepo) GetByID(ctx context.Context, id int64) (*models.Tiebreaker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tb, ok := f.tbs[id]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "tiebreaker", ID: id}
	}
	copied := *tb
	copied.Teams = append([]*models.TeamTiebreaker(nil), f.members[id]...)
	return &copied, nil
}

func (f *fakeTiebreakerRepo) ListByRound(ctx context.Context, roundID int64) ([]*models.Tiebreaker, error) {
	f.mu.Lock()
	ids := make([]int64, 0)
	for id, tb := range f.tbs {
		if tb.RoundID == roundID {
			ids = append(ids, id)
		}
	}
	f.mu.Unlock()

	out := make([]*models.Tiebreaker, 0, len(ids))
	for _, id := range ids {
		tb, err := f.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, tb)
	}
	return out, nil
}

func (f *fakeTiebreakerRepo) ListActiveByTeam(ctx context.Context, teamID int64) ([]*models.Tiebreaker, error) {
	f.mu.Lock()
	ids := make([]int64, 0)
	for id, tb := range f.tbs {
		if tb.Status != models.TiebreakerStatusActive {
			continue
		}
		for _, member := range f.members[id] {
			if member.TeamID == teamID && member.Status == models.TeamTiebreakerStatusActive {
				ids = append(ids, id)
				break
			}
		}
	}
	f.mu.Unlock()

	out := make([]*models.Tiebreaker, 0, len(ids))
	for _, id := range ids {
		tb, err := f.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, tb)
	}
	return out, nil
}

func (f *fakeTiebreakerRepo) ListExpired(ctx context.Context, now time.Time) ([]*models.Tiebreaker, error) {
	f.mu.Lock()
	ids := make([]int64, 0)
	for id, tb := range f.tbs {
		if tb.Status == models.TiebreakerStatusActive && now.After(tb.MaxEndTime) {
			ids = append(ids, id)
		}
	}
	f.mu.Unlock()

	out := make([]*models.Tiebreaker, 0, len(ids))
	for _, id := range ids {
		tb, err := f.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, tb)
	}
	return out, nil
}

func (f *fakeTiebreakerRepo) GetMember(ctx context.Context, tiebreakerID, teamID int64) (*models.TeamTiebreaker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, member := range f.members[tiebreakerID] {
		if member.TeamID == teamID {
			copied := *member
			return &copied, nil
		}
	}
	return nil, &repositories.NotFoundError{Entity: "team_tiebreaker", ID: teamID}
}

func (f *fakeTiebreakerRepo) SubmitBid(ctx context.Context, tiebreakerID, teamID, amount int64, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tb, ok := f.tbs[tiebreakerID]
	if !ok || tb.Status != models.TiebreakerStatusActive ||
		tb.CurrentHighestBid >= amount || !tb.MaxEndTime.After(now) {
		return false, nil
	}
	tb.CurrentHighestBid = amount
	tb.CurrentHighestTeamID = teamID
	tb.LastActivityTime = now
	for _, member := range f.members[tiebreakerID] {
		if member.TeamID == teamID {
			member.NewBidAmount = amount
			member.Submitted = true
			member.SubmittedAt = now
		}
	}
	return true, nil
}

func (f *fakeTiebreakerRepo) Withdraw(ctx context.Context, tiebreakerID, teamID int64, now time.Time) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tb, ok := f.tbs[tiebreakerID]
	if !ok || tb.Status != models.TiebreakerStatusActive {
		return 0, false, nil
	}
	for _, member := range f.members[tiebreakerID] {
		if member.TeamID == teamID && member.Status == models.TeamTiebreakerStatusActive {
			member.Status = models.TeamTiebreakerStatusWithdrawn
			member.WithdrawnAt = now
			tb.TeamsRemaining--
			if tb.CurrentHighestTeamID == teamID {
				tb.CurrentHighestTeamID = 0
			}
			return tb.TeamsRemaining, true, nil
		}
	}
	return tb.TeamsRemaining, false, nil
}

func (f *fakeTiebreakerRepo) MarkResolved(ctx context.Context, id, winnerTeamID, amount int64, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tb, ok := f.tbs[id]
	if !ok || tb.Status != models.TiebreakerStatusActive {
		return false, nil
	}
	tb.Status = models.TiebreakerStatusResolved
	tb.WinnerTeamID = winnerTeamID
	tb.WinningAmount = amount
	tb.ResolvedAt = now
	return true, nil
}

func (f *fakeTiebreakerRepo) MarkExcluded(ctx context.Context, id int64, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tb, ok := f.tbs[id]
	if !ok || tb.Status != models.TiebreakerStatusActive {
		return false, nil
	}
	tb.Status = models.TiebreakerStatusExcluded
	tb.ResolvedAt = now
	return true, nil
}

func (f *fakeTiebreakerRepo) hasActiveInRound(roundID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tb := range f.tbs {
		if tb.RoundID == roundID && tb.Status == models.TiebreakerStatusActive {
			return true
		}
	}
	return false
}

func (f *fakeTiebreakerRepo) byRoundAndPlayer(roundID, playerID int64) *models.Tiebreaker {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tb := range f.tbs {
		if tb.RoundID == roundID && tb.PlayerID == playerID {
			return tb
		}
	}
	return nil
}

type fakePlayerRepo struct {
	mu      sync.Mutex
	nextID  int64
	players map[int64]*models.Player
}

func newFakePlayerRepo() *fakePlayerRepo {
	return &fakePlayerRepo{nextID: 1, players: map[int64]*models.Player{}}
}

func (f *fakePlayerRepo) DB() *bun.DB { return nil }

func (f *fakePlayerRepo) Create(ctx context.Context, player *models.Player) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	player.ID = f.nextID
	f.nextID++
	f.players[player.ID] = player
	return nil
}

func (f *fakePlayerRepo) GetByID(ctx context.Context, id int64) (*models.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	player, ok := f.players[id]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "player", ID: id}
	}
	return player, nil
}

func (f *fakePlayerRepo) GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int64]*models.Player, len(ids))
	for _, id := range ids {
		if player, ok := f.players[id]; ok {
			out[id] = player
		}
	}
	return out, nil
}

type fakeTeamRepo struct {
	mu     sync.Mutex
	nextID int64
	teams  map[int64]*models.Team
}

func newFakeTeamRepo() *fakeTeamRepo {
	return &fakeTeamRepo{nextID: 1, teams: map[int64]*models.Team{}}
}

func (f *fakeTeamRepo) DB() *bun.DB { return nil }

func (f *fakeTeamRepo) Create(ctx context.Context, team *models.Team) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	team.ID = f.nextID
	f.nextID++
	f.teams[team.ID] = team
	return nil
}

func (f *fakeTeamRepo) GetByID(ctx context.Context, id int64) (*models.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	team, ok := f.teams[id]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "team", ID: id}
	}
	return team, nil
}

func (f *fakeTeamRepo) GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int64]*models.Team, len(ids))
	for _, id := range ids {
		if team, ok := f.teams[id]; ok {
			out[id] = team
		}
	}
	return out, nil
}

func (f *fakeTeamRepo) GetByAPIToken(ctx context.Context, token string) (*models.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, team := range f.teams {
		if team.APIToken == token {
			return team, nil
		}
	}
	return nil, &repositories.NotFoundError{Entity: "team", ID: token}
}

type fakeTxnRepo struct {
	mu   sync.Mutex
	txns map[string]*models.Transaction
}

func newFakeTxnRepo() *fakeTxnRepo {
	return &fakeTxnRepo{txns: map[string]*models.Transaction{}}
}

func (f *fakeTxnRepo) DB() *bun.DB { return nil }

func (f *fakeTxnRepo) CreatePending(ctx context.Context, txn *models.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.txns {
		if existing.Type == models.TransactionTypeAuctionWin &&
			existing.RoundID == txn.RoundID && existing.TiebreakerID == txn.TiebreakerID &&
			existing.PlayerID == txn.PlayerID {
			return &repositories.ConflictError{Entity: "transaction", Field: "player_id", Value: txn.PlayerID}
		}
	}
	txn.Status = models.TransactionStatusPending
	txn.CreatedAt = time.Now()
	f.txns[txn.TransactionID] = txn
	return nil
}

func (f *fakeTxnRepo) GetByTransactionID(ctx context.Context, transactionID string) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	txn, ok := f.txns[transactionID]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "transaction", ID: transactionID}
	}
	copied := *txn
	return &copied, nil
}

func (f *fakeTxnRepo) GetByReference(ctx context.Context, roundID, tiebreakerID, playerID int64) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, txn := range f.txns {
		if txn.RoundID == roundID && txn.TiebreakerID == tiebreakerID && txn.PlayerID == playerID {
			copied := *txn
			return &copied, nil
		}
	}
	return nil, &repositories.NotFoundError{Entity: "transaction", ID: playerID}
}

func (f *fakeTxnRepo) MarkCompleted(ctx context.Context, transactionID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if txn, ok := f.txns[transactionID]; ok && txn.Status == models.TransactionStatusPending {
		txn.Status = models.TransactionStatusCompleted
		txn.CompletedAt = at
	}
	return nil
}

func (f *fakeTxnRepo) MarkFailed(ctx context.Context, transactionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if txn, ok := f.txns[transactionID]; ok && txn.Status == models.TransactionStatusPending {
		txn.Status = models.TransactionStatusFailed
	}
	return nil
}

func (f *fakeTxnRepo) ListStalePending(ctx context.Context, olderThan time.Time) ([]*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Transaction
	for _, txn := range f.txns {
		if txn.Status == models.TransactionStatusPending && txn.CreatedAt.Before(olderThan) {
			copied := *txn
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeTxnRepo) ListBySeason(ctx context.Context, seasonID int64) ([]*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Transaction
	for _, txn := range f.txns {
		if txn.SeasonID == seasonID {
			copied := *txn
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeTxnRepo) completedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, txn := range f.txns {
		if txn.Status == models.TransactionStatusCompleted {
			n++
		}
	}
	return n
}

type fakeLedgerStore struct {
	mu      sync.Mutex
	ledgers map[[2]int64]*ledger.Ledger
}

func newFakeLedgerStore() *fakeLedgerStore {
	return &fakeLedgerStore{ledgers: map[[2]int64]*ledger.Ledger{}}
}

func (f *fakeLedgerStore) seed(teamID, seasonID, footballBudget int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ledgers[[2]int64{teamID, seasonID}] = &ledger.Ledger{
		TeamID:         teamID,
		SeasonID:       seasonID,
		FootballBudget: footballBudget,
		PositionCounts: map[string]int{},
		CurrencySystem: ledger.CurrencySingle,
	}
}

func (f *fakeLedgerStore) Get(ctx context.Context, teamID, seasonID int64) (*ledger.Ledger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.ledgers[[2]int64{teamID, seasonID}]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	copied := *l
	return &copied, nil
}

func (f *fakeLedgerStore) Create(ctx context.Context, l *ledger.Ledger) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ledgers[[2]int64{l.TeamID, l.SeasonID}] = l
	return nil
}

func (f *fakeLedgerStore) ApplySettlement(ctx context.Context, d ledger.Delta) (ledger.ApplyResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.ledgers[[2]int64{d.TeamID, d.SeasonID}]
	if !ok {
		return 0, ledger.ErrNotFound
	}
	for _, applied := range l.AppliedTxns {
		if applied == d.TransactionID {
			return ledger.ApplyAlreadyApplied, nil
		}
	}
	if l.Budget(d.Currency) < d.Amount {
		return 0, ledger.ErrInsufficientBudget
	}
	if d.Currency == "real_player" {
		l.RealPlayerBudget -= d.Amount
		l.RealPlayerSpent += d.Amount
	} else {
		l.FootballBudget -= d.Amount
		l.FootballSpent += d.Amount
	}
	if l.PositionCounts == nil {
		l.PositionCounts = map[string]int{}
	}
	l.PositionCounts[d.Position]++
	l.AppliedTxns = append(l.AppliedTxns, d.TransactionID)
	return ledger.ApplyApplied, nil
}

func (f *fakeLedgerStore) Revert(ctx context.Context, d ledger.Delta) (ledger.ApplyResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.ledgers[[2]int64{d.TeamID, d.SeasonID}]
	if !ok {
		return 0, ledger.ErrNotFound
	}
	idx := -1
	for i, applied := range l.AppliedTxns {
		if applied == d.TransactionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ledger.ApplyAlreadyApplied, nil
	}
	if d.Currency == "real_player" {
		l.RealPlayerBudget += d.Amount
		l.RealPlayerSpent -= d.Amount
	} else {
		l.FootballBudget += d.Amount
		l.FootballSpent -= d.Amount
	}
	l.PositionCounts[d.Position]--
	l.AppliedTxns = append(l.AppliedTxns[:idx], l.AppliedTxns[idx+1:]...)
	return ledger.ApplyApplied, nil
}

func (f *fakeLedgerStore) Close(ctx context.Context) error { return nil }

// recordingNotifier captures event kinds in order.
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingNotifier) record(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, kind)
}

func (r *recordingNotifier) count(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, event := range r.events {
		if event == kind {
			n++
		}
	}
	return n
}

func (r *recordingNotifier) RoundStarted(*models.Round)   { r.record("round_started") }
func (r *recordingNotifier) RoundCompleted(*models.Round) { r.record("round_completed") }
func (r *recordingNotifier) TiebreakerSpawned(*models.Tiebreaker) {
	r.record("tiebreaker_spawned")
}
func (r *recordingNotifier) BidRaised(*models.Tiebreaker, int64, int64) { r.record("bid_raised") }
func (r *recordingNotifier) TiebreakerResolved(*models.Tiebreaker) {
	r.record("tiebreaker_resolved")
}
func (r *recordingNotifier) TiebreakerExcluded(*models.Tiebreaker) {
	r.record("tiebreaker_excluded")
}
func (r *recordingNotifier) SettlementApplied(*models.Transaction) { r.record("settlement_applied") }
