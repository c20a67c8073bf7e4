package auction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Shamsear/ssleague-sub021/internal/database/models"
	"github.com/Shamsear/ssleague-sub021/internal/database/repositories"
	"github.com/Shamsear/ssleague-sub021/internal/notify"
)

// Coordinator accepts escalated bids during an active tiebreaker window and
// drives resolution. There is no in-process locking; every mutation races
// through a conditional store update and the loser of a race gets a typed
// error telling the client to refresh.
type Coordinator struct {
	tiebreakers repositories.TiebreakerRepository
	bids        repositories.BidRepository
	rounds      repositories.RoundRepository
	settler     *Settler
	notifier    notify.Notifier
	nowFn       func() time.Time
}

func NewCoordinator(
	tiebreakers repositories.TiebreakerRepository,
	bids repositories.BidRepository,
	rounds repositories.RoundRepository,
	settler *Settler,
	notifier notify.Notifier,
) *Coordinator {
	return &Coordinator{
		tiebreakers: tiebreakers,
		bids:        bids,
		rounds:      rounds,
		settler:     settler,
		notifier:    notifier,
		nowFn:       time.Now,
	}
}

// SubmitBid places an escalated bid. The raise only succeeds when it is
// strictly above the stored current highest bid at the moment the store
// applies it; a concurrent higher raise wins and this caller gets
// StaleBidError with the fresh ceiling.
func (c *Coordinator) SubmitBid(ctx context.Context, tiebreakerID, teamID, amount int64) (*models.Tiebreaker, error) {
	tb, err := c.getTiebreaker(ctx, tiebreakerID)
	if err != nil {
		return nil, err
	}

	now := c.nowFn()
	if tb.Status.Terminal() {
		return nil, &InvalidStateError{
			Entity: "tiebreaker", ID: tb.ID, Status: string(tb.Status),
			Reason: "bidding is closed",
		}
	}
	if tb.Expired(now) {
		// Lazy deadline: resolve before rejecting so the caller's next read
		// sees the terminal state.
		if err := c.ResolveDue(ctx, tb); err != nil {
			slog.Error("Failed to lazily resolve expired tiebreaker",
				slog.Int64("tiebreaker_id", tb.ID),
				slog.Any("error", err))
		}
		return nil, &WindowClosedError{Entity: "tiebreaker", ID: tb.ID, ClosedAt: tb.MaxEndTime}
	}

	member, err := c.tiebreakers.GetMember(ctx, tiebreakerID, teamID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, &NotAuthorizedError{TeamID: teamID, TiebreakerID: tiebreakerID, Reason: "not a tiebreaker member"}
		}
		return nil, fmt.Errorf("failed to load tiebreaker membership: %w", err)
	}
	if member.Status == models.TeamTiebreakerStatusWithdrawn {
		return nil, &NotAuthorizedError{TeamID: teamID, TiebreakerID: tiebreakerID, Reason: "team has withdrawn"}
	}

	if amount <= tb.CurrentHighestBid {
		return nil, &StaleBidError{TiebreakerID: tb.ID, Attempted: amount, CurrentBid: tb.CurrentHighestBid}
	}

	applied, err := c.tiebreakers.SubmitBid(ctx, tiebreakerID, teamID, amount, now)
	if err != nil {
		return nil, fmt.Errorf("failed to submit tiebreaker bid: %w", err)
	}
	if !applied {
		// The conditional update rejected us; re-read to report why.
		fresh, err := c.getTiebreaker(ctx, tiebreakerID)
		if err != nil {
			return nil, err
		}
		if fresh.Status.Terminal() || fresh.Expired(c.nowFn()) {
			return nil, &WindowClosedError{Entity: "tiebreaker", ID: fresh.ID, ClosedAt: fresh.MaxEndTime}
		}
		return nil, &StaleBidError{TiebreakerID: fresh.ID, Attempted: amount, CurrentBid: fresh.CurrentHighestBid}
	}

	tb.CurrentHighestBid = amount
	tb.CurrentHighestTeamID = teamID
	tb.LastActivityTime = now

	c.notifier.BidRaised(tb, teamID, amount)
	return tb, nil
}

// Withdraw removes a team from the tiebreaker. When only one team is left
// the tiebreaker resolves immediately in its favor, at its last bid amount
// or the original tied amount if it never raised.
func (c *Coordinator) Withdraw(ctx context.Context, tiebreakerID, teamID int64) error {
	tb, err := c.getTiebreaker(ctx, tiebreakerID)
	if err != nil {
		return err
	}

	now := c.nowFn()
	if tb.Status.Terminal() {
		return &InvalidStateError{
			Entity: "tiebreaker", ID: tb.ID, Status: string(tb.Status),
			Reason: "tiebreaker already closed",
		}
	}
	if tb.Expired(now) {
		if err := c.ResolveDue(ctx, tb); err != nil {
			slog.Error("Failed to lazily resolve expired tiebreaker",
				slog.Int64("tiebreaker_id", tb.ID),
				slog.Any("error", err))
		}
		return &WindowClosedError{Entity: "tiebreaker", ID: tb.ID, ClosedAt: tb.MaxEndTime}
	}

	remaining, applied, err := c.tiebreakers.Withdraw(ctx, tiebreakerID, teamID, now)
	if err != nil {
		return fmt.Errorf("failed to withdraw from tiebreaker: %w", err)
	}
	if !applied {
		return &NotAuthorizedError{TeamID: teamID, TiebreakerID: tiebreakerID, Reason: "not an active tiebreaker member"}
	}

	slog.Info("Team withdrew from tiebreaker",
		slog.Int64("tiebreaker_id", tiebreakerID),
		slog.Int64("team_id", teamID),
		slog.Int("remaining", remaining))

	if remaining <= 1 {
		if err := c.resolveRemaining(ctx, tiebreakerID); err != nil {
			return fmt.Errorf("failed to resolve tiebreaker after withdrawal: %w", err)
		}
	}
	return nil
}

// ResolveDue closes a tiebreaker whose hard deadline has passed. Per policy
// the current leader wins on deadline regardless of how many teams are still
// nominally in, provided it has not withdrawn since taking the lead; a
// leaderless expiry falls back to the submitted-raise or sole-survivor rules
// in resolveRemaining.
func (c *Coordinator) ResolveDue(ctx context.Context, tb *models.Tiebreaker) error {
	if tb.Status.Terminal() {
		return nil
	}
	if !tb.Expired(c.nowFn()) {
		return nil
	}

	// Re-read with membership so a leader who withdrew after the caller's
	// snapshot cannot be resolved in favor of.
	fresh, err := c.getTiebreaker(ctx, tb.ID)
	if err != nil {
		return err
	}
	if fresh.Status.Terminal() {
		return nil
	}

	if fresh.CurrentHighestTeamID != 0 {
		if member := activeMember(fresh, fresh.CurrentHighestTeamID); member != nil {
			return c.resolve(ctx, fresh.ID, fresh.CurrentHighestTeamID, fresh.CurrentHighestBid)
		}
	}
	return c.resolveRemaining(ctx, fresh.ID)
}

// ResolveDueForRound lazily resolves every expired tiebreaker in a round and
// then completes the round if none remain open. Called from the status read
// path so no background scheduler is needed for correctness.
func (c *Coordinator) ResolveDueForRound(ctx context.Context, roundID int64) error {
	tbs, err := c.tiebreakers.ListByRound(ctx, roundID)
	if err != nil {
		return fmt.Errorf("failed to list tiebreakers for round %d: %w", roundID, err)
	}

	for _, tb := range tbs {
		if err := c.ResolveDue(ctx, tb); err != nil {
			return err
		}
	}

	return c.completeRoundIfDone(ctx, roundID)
}

// resolveRemaining settles a leaderless tiebreaker from its membership: the
// highest submitted raise among still-active teams wins at that amount; with
// no raises, a sole survivor wins at the original tied amount; anything else
// means nobody can win and the player goes unsold.
func (c *Coordinator) resolveRemaining(ctx context.Context, tiebreakerID int64) error {
	tb, err := c.getTiebreaker(ctx, tiebreakerID)
	if err != nil {
		return err
	}
	if tb.Status.Terminal() {
		return nil
	}

	var sole, best *models.TeamTiebreaker
	active := 0
	for _, member := range tb.Teams {
		if member.Status != models.TeamTiebreakerStatusActive {
			continue
		}
		active++
		sole = member
		if member.Submitted && (best == nil || member.NewBidAmount > best.NewBidAmount) {
			best = member
		}
	}

	if best != nil {
		return c.resolve(ctx, tb.ID, best.TeamID, best.NewBidAmount)
	}
	if active == 1 {
		return c.resolve(ctx, tb.ID, sole.TeamID, tb.OriginalAmount)
	}
	return c.exclude(ctx, tb.ID)
}

// activeMember returns the active membership row for teamID, or nil when the
// team never joined or has withdrawn.
func activeMember(tb *models.Tiebreaker, teamID int64) *models.TeamTiebreaker {
	for _, member := range tb.Teams {
		if member.TeamID == teamID && member.Status == models.TeamTiebreakerStatusActive {
			return member
		}
	}
	return nil
}

func (c *Coordinator) resolve(ctx context.Context, tiebreakerID, winnerTeamID, amount int64) error {
	now := c.nowFn()
	won, err := c.tiebreakers.MarkResolved(ctx, tiebreakerID, winnerTeamID, amount, now)
	if err != nil {
		return fmt.Errorf("failed to mark tiebreaker resolved: %w", err)
	}
	if !won {
		// Another caller already resolved it; the status guard makes that
		// caller the single executor of settlement.
		return nil
	}

	tb, err := c.getTiebreaker(ctx, tiebreakerID)
	if err != nil {
		return err
	}

	if err := c.finalizeBids(ctx, tb, winnerTeamID); err != nil {
		return err
	}

	if _, err := c.settler.Settle(ctx, SettlementRequest{
		TeamID:       winnerTeamID,
		SeasonID:     tb.SeasonID,
		PlayerID:     tb.PlayerID,
		Position:     tb.Position,
		Amount:       amount,
		Currency:     tb.Currency,
		RoundID:      tb.RoundID,
		TiebreakerID: tb.ID,
	}); err != nil {
		// The tiebreaker is resolved and the intent is durable; settlement
		// failures here are the reconciler's job, not a reason to unwind.
		slog.Error("Settlement failed after tiebreaker resolution",
			slog.Int64("tiebreaker_id", tb.ID),
			slog.Int64("team_id", winnerTeamID),
			slog.Any("error", err))
	}

	c.notifier.TiebreakerResolved(tb)

	slog.Info("Tiebreaker resolved",
		slog.Int64("tiebreaker_id", tb.ID),
		slog.Int64("winner_team_id", winnerTeamID),
		slog.Int64("amount", amount))

	return c.completeRoundIfDone(ctx, tb.RoundID)
}

func (c *Coordinator) exclude(ctx context.Context, tiebreakerID int64) error {
	now := c.nowFn()
	won, err := c.tiebreakers.MarkExcluded(ctx, tiebreakerID, now)
	if err != nil {
		return fmt.Errorf("failed to mark tiebreaker excluded: %w", err)
	}
	if !won {
		return nil
	}

	tb, err := c.getTiebreaker(ctx, tiebreakerID)
	if err != nil {
		return err
	}

	// Nobody wins: every original bid is lost and the player returns to the
	// unsold pool. No ledger mutation.
	if err := c.finalizeBids(ctx, tb, 0); err != nil {
		return err
	}

	c.notifier.TiebreakerExcluded(tb)

	slog.Info("Tiebreaker excluded with no winner",
		slog.Int64("tiebreaker_id", tb.ID),
		slog.Int64("player_id", tb.PlayerID))

	return c.completeRoundIfDone(ctx, tb.RoundID)
}

// finalizeBids transitions the tied teams' original round bids to their
// terminal states. winnerTeamID == 0 means no winner.
func (c *Coordinator) finalizeBids(ctx context.Context, tb *models.Tiebreaker, winnerTeamID int64) error {
	var lost []int64
	for _, member := range tb.Teams {
		if member.TeamID == winnerTeamID {
			if err := c.bids.MarkWon(ctx, member.OriginalBidID); err != nil {
				return fmt.Errorf("failed to mark winning bid: %w", err)
			}
			continue
		}
		lost = append(lost, member.OriginalBidID)
	}
	if err := c.bids.MarkLost(ctx, lost); err != nil {
		return fmt.Errorf("failed to mark losing bids: %w", err)
	}
	return nil
}

func (c *Coordinator) completeRoundIfDone(ctx context.Context, roundID int64) error {
	completed, err := c.rounds.CompleteIfNoOpenTiebreakers(ctx, roundID)
	if err != nil {
		return fmt.Errorf("failed to complete round %d: %w", roundID, err)
	}
	if completed {
		if round, err := c.rounds.GetByID(ctx, roundID); err == nil {
			c.notifier.RoundCompleted(round)
		}
		slog.Info("Round completed after tiebreaker resolution",
			slog.Int64("round_id", roundID))
	}
	return nil
}

func (c *Coordinator) getTiebreaker(ctx context.Context, id int64) (*models.Tiebreaker, error) {
	tb, err := c.tiebreakers.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, &NotFoundError{Entity: "tiebreaker", ID: id}
		}
		return nil, fmt.Errorf("failed to load tiebreaker %d: %w", id, err)
	}
	return tb, nil
}
