package auction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Shamsear/ssleague-sub021/internal/database/models"
	"github.com/Shamsear/ssleague-sub021/internal/database/repositories"
	"github.com/Shamsear/ssleague-sub021/internal/ledger"
	"github.com/Shamsear/ssleague-sub021/internal/notify"
)

// RoundManager owns the round lifecycle and the round-level bidding surface.
// Deadlines are enforced lazily: every read and write path first finalizes
// anything whose window has passed, so the engine stays correct with no
// background scheduler at all.
type RoundManager struct {
	rounds      repositories.RoundRepository
	bids        repositories.BidRepository
	players     repositories.PlayerRepository
	tiebreakers repositories.TiebreakerRepository
	ledgers     ledger.Store
	detector    *Detector
	coordinator *Coordinator
	notifier    notify.Notifier
	nowFn       func() time.Time
}

func NewRoundManager(
	rounds repositories.RoundRepository,
	bids repositories.BidRepository,
	players repositories.PlayerRepository,
	tiebreakers repositories.TiebreakerRepository,
	ledgers ledger.Store,
	detector *Detector,
	coordinator *Coordinator,
	notifier notify.Notifier,
) *RoundManager {
	return &RoundManager{
		rounds:      rounds,
		bids:        bids,
		players:     players,
		tiebreakers: tiebreakers,
		ledgers:     ledgers,
		detector:    detector,
		coordinator: coordinator,
		notifier:    notifier,
		nowFn:       time.Now,
	}
}

// CreateRound registers a draft round for a season.
func (m *RoundManager) CreateRound(ctx context.Context, round *models.Round) error {
	if round.DurationSeconds <= 0 {
		return &InvalidStateError{Entity: "round", ID: round.ID, Status: "draft", Reason: "duration must be positive"}
	}
	if round.RoundType == "" {
		round.RoundType = models.RoundTypeNormal
	}
	if round.Currency == "" {
		round.Currency = models.CurrencyFootball
	}
	if err := m.rounds.Create(ctx, round); err != nil {
		return fmt.Errorf("failed to create round: %w", err)
	}
	return nil
}

// StartRound opens a draft round's bidding window. At most one round per
// season may be active at a time.
func (m *RoundManager) StartRound(ctx context.Context, roundID int64) (*models.Round, error) {
	round, err := m.getRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if round.Status != models.RoundStatusDraft {
		return nil, &InvalidStateError{
			Entity: "round", ID: round.ID, Status: string(round.Status),
			Reason: "only draft rounds can be started",
		}
	}

	if active, err := m.rounds.GetActiveBySeason(ctx, round.SeasonID); err == nil && active != nil {
		return nil, &InvalidStateError{
			Entity: "round", ID: active.ID, Status: string(active.Status),
			Reason: "another round is already active in this season",
		}
	} else if err != nil && !repositories.IsNotFound(err) {
		return nil, fmt.Errorf("failed to check active rounds: %w", err)
	}

	now := m.nowFn()
	end := now.Add(time.Duration(round.DurationSeconds) * time.Second)
	started, err := m.rounds.Start(ctx, roundID, now, end)
	if err != nil {
		return nil, fmt.Errorf("failed to start round %d: %w", roundID, err)
	}
	if !started {
		return nil, &InvalidStateError{
			Entity: "round", ID: roundID, Status: string(round.Status),
			Reason: "round was started concurrently",
		}
	}

	round.Status = models.RoundStatusActive
	round.StartTime = now
	round.EndTime = end

	m.notifier.RoundStarted(round)

	slog.Info("Round started",
		slog.Int64("round_id", round.ID),
		slog.Int64("season_id", round.SeasonID),
		slog.Time("end_time", end))

	return round, nil
}

// CheckAndFinalize advances the round past any deadline that has elapsed.
// Safe to call from every request path: the status-guarded transitions make
// concurrent callers no-ops, and the closing sweep is re-driven until its
// closed_at marker sticks so a transient store failure cannot strand bids in
// pending forever.
func (m *RoundManager) CheckAndFinalize(ctx context.Context, round *models.Round) (*models.Round, error) {
	now := m.nowFn()

	if round.Status == models.RoundStatusActive && round.Ended(now) {
		if _, err := m.rounds.BeginClosing(ctx, round.ID, now); err != nil {
			return nil, fmt.Errorf("failed to begin closing round %d: %w", round.ID, err)
		}
		fresh, err := m.getRound(ctx, round.ID)
		if err != nil {
			return nil, err
		}
		round = fresh
	}

	if round.Status != models.RoundStatusTiebreakerPending {
		return round, nil
	}

	if round.ClosedAt.IsZero() {
		// The winner of BeginClosing may have died mid-sweep; any caller that
		// sees no closed_at re-runs the idempotent sweep.
		if _, err := m.detector.CloseRound(ctx, round); err != nil {
			return nil, fmt.Errorf("failed to close round %d: %w", round.ID, err)
		}
		if _, err := m.rounds.MarkClosed(ctx, round.ID, m.nowFn()); err != nil {
			return nil, fmt.Errorf("failed to mark round %d closed: %w", round.ID, err)
		}
	}

	// Resolves expired tiebreakers and completes the round once none remain
	// open; with zero tiebreakers spawned it completes immediately. Completion
	// and its notification live in the coordinator.
	if err := m.coordinator.ResolveDueForRound(ctx, round.ID); err != nil {
		return nil, err
	}
	return m.getRound(ctx, round.ID)
}

// RoundView is the status payload returned to a team polling a round. The
// redirect fields steer the client to whatever it should be looking at
// instead of a closed or transitioning round.
type RoundView struct {
	Round           *models.Round        `json:"round"`
	TimeRemaining   int64                `json:"time_remaining_seconds,omitempty"`
	Tiebreaker      bool                 `json:"tiebreaker,omitempty"`
	OpenTiebreakers []*models.Tiebreaker `json:"open_tiebreakers,omitempty"`
	RedirectRoundID int64                `json:"redirect_round_id,omitempty"`
	Results         []*models.Bid        `json:"results,omitempty"`
}

// GetStatus finalizes lazily and then reports the round as the given team
// should see it.
func (m *RoundManager) GetStatus(ctx context.Context, roundID, teamID int64) (*RoundView, error) {
	round, err := m.getRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	round, err = m.CheckAndFinalize(ctx, round)
	if err != nil {
		return nil, err
	}

	view := &RoundView{Round: round}
	now := m.nowFn()

	switch round.Status {
	case models.RoundStatusActive:
		view.TimeRemaining = int64(round.EndTime.Sub(now).Seconds())
		if view.TimeRemaining < 0 {
			view.TimeRemaining = 0
		}

	case models.RoundStatusTiebreakerPending:
		open, err := m.openTiebreakersForTeam(ctx, round.ID, teamID)
		if err != nil {
			return nil, err
		}
		view.Tiebreaker = len(open) > 0
		view.OpenTiebreakers = open

	case models.RoundStatusCompleted:
		if active, err := m.rounds.GetActiveBySeason(ctx, round.SeasonID); err == nil && active != nil {
			view.RedirectRoundID = active.ID
		} else if err != nil && !repositories.IsNotFound(err) {
			return nil, fmt.Errorf("failed to look up active round: %w", err)
		}
		results, err := m.bids.GetByRound(ctx, round.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load round results: %w", err)
		}
		view.Results = results
	}

	return view, nil
}

// PlaceBid records a team's sealed bid on a player in an active round. The
// partial unique index on (team, player, round) rejects duplicates; budget
// is only pre-checked here, the authoritative guard runs at settlement.
func (m *RoundManager) PlaceBid(ctx context.Context, roundID, teamID, playerID, amount int64) (*models.Bid, error) {
	if amount <= 0 {
		return nil, &InvalidStateError{Entity: "bid", Status: "new", Reason: "amount must be positive"}
	}

	round, err := m.getRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	round, err = m.CheckAndFinalize(ctx, round)
	if err != nil {
		return nil, err
	}
	if round.Status != models.RoundStatusActive {
		return nil, &WindowClosedError{Entity: "round", ID: round.ID, ClosedAt: round.EndTime}
	}

	player, err := m.players.GetByID(ctx, playerID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, &NotFoundError{Entity: "player", ID: playerID}
		}
		return nil, fmt.Errorf("failed to load player %d: %w", playerID, err)
	}
	if round.Position != "" && player.Position != round.Position {
		return nil, &InvalidStateError{
			Entity: "round", ID: round.ID, Status: string(round.Status),
			Reason: fmt.Sprintf("round accepts %s players only", round.Position),
		}
	}

	lgr, err := m.ledgers.Get(ctx, teamID, round.SeasonID)
	if err != nil {
		if err == ledger.ErrNotFound {
			return nil, &LedgerNotFoundError{TeamID: teamID, SeasonID: round.SeasonID}
		}
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	if lgr.Budget(string(round.Currency)) < amount {
		return nil, &InsufficientBudgetError{TeamID: teamID, Required: amount}
	}

	bid := &models.Bid{
		TeamID:   teamID,
		RoundID:  round.ID,
		PlayerID: playerID,
		Amount:   amount,
	}
	if err := m.bids.Create(ctx, bid); err != nil {
		if repositories.IsConflict(err) {
			return nil, &InvalidStateError{
				Entity: "bid", Status: "new",
				Reason: "team already has a live bid on this player in this round",
			}
		}
		return nil, fmt.Errorf("failed to create bid: %w", err)
	}
	return bid, nil
}

// CancelBid withdraws a pending bid before the round closes.
func (m *RoundManager) CancelBid(ctx context.Context, bidID, teamID int64) error {
	bid, err := m.bids.GetByID(ctx, bidID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return &NotFoundError{Entity: "bid", ID: bidID}
		}
		return fmt.Errorf("failed to load bid %d: %w", bidID, err)
	}

	round, err := m.getRound(ctx, bid.RoundID)
	if err != nil {
		return err
	}
	round, err = m.CheckAndFinalize(ctx, round)
	if err != nil {
		return err
	}
	if round.Status != models.RoundStatusActive {
		return &WindowClosedError{Entity: "round", ID: round.ID, ClosedAt: round.EndTime}
	}

	cancelled, err := m.bids.Cancel(ctx, bidID, teamID)
	if err != nil {
		return fmt.Errorf("failed to cancel bid %d: %w", bidID, err)
	}
	if !cancelled {
		return &InvalidStateError{
			Entity: "bid", ID: bidID, Status: string(bid.Status),
			Reason: "bid is not pending or belongs to another team",
		}
	}
	return nil
}

func (m *RoundManager) openTiebreakersForTeam(ctx context.Context, roundID, teamID int64) ([]*models.Tiebreaker, error) {
	tbs, err := m.tiebreakers.ListActiveByTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team tiebreakers: %w", err)
	}
	var open []*models.Tiebreaker
	for _, tb := range tbs {
		if tb.RoundID == roundID {
			open = append(open, tb)
		}
	}
	return open, nil
}

func (m *RoundManager) getRound(ctx context.Context, id int64) (*models.Round, error) {
	round, err := m.rounds.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, &NotFoundError{Entity: "round", ID: id}
		}
		return nil, fmt.Errorf("failed to load round %d: %w", id, err)
	}
	return round, nil
}
