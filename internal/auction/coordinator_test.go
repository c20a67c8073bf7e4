package auction

import (
	"context"
	"testing"
	"time"

	"github.com/Shamsear/ssleague-sub021/internal/database/models"
)

// tieFixture closes a seeded round so that Alpha and Bravo are tied at 100
// on the player, and returns the spawned tiebreaker.
func tieFixture(t *testing.T, e *engine) (*models.Round, *models.Tiebreaker, []*models.Team) {
	t.Helper()
	ctx := context.Background()

	round, player, teams := e.seedRound(t)
	e.placeBid(t, round.ID, teams[0].ID, player.ID, 100)
	e.placeBid(t, round.ID, teams[1].ID, player.ID, 100)

	e.clock.Advance(11 * time.Minute)
	if _, err := e.rounds.BeginClosing(ctx, round.ID, e.clock.Now()); err != nil {
		t.Fatalf("begin closing: %v", err)
	}
	if _, err := e.detector.CloseRound(ctx, round); err != nil {
		t.Fatalf("close round: %v", err)
	}
	if _, err := e.rounds.MarkClosed(ctx, round.ID, e.clock.Now()); err != nil {
		t.Fatalf("mark closed: %v", err)
	}

	tb := e.tbs.byRoundAndPlayer(round.ID, player.ID)
	if tb == nil {
		t.Fatal("no tiebreaker spawned")
	}
	return round, tb, teams
}

// threeWayTieFixture closes a seeded round with all three teams tied at 100
// on the player.
func threeWayTieFixture(t *testing.T, e *engine) (*models.Round, *models.Tiebreaker, []*models.Team) {
	t.Helper()
	ctx := context.Background()

	round, player, teams := e.seedRound(t)
	for _, team := range teams {
		e.placeBid(t, round.ID, team.ID, player.ID, 100)
	}

	e.clock.Advance(11 * time.Minute)
	if _, err := e.rounds.BeginClosing(ctx, round.ID, e.clock.Now()); err != nil {
		t.Fatalf("begin closing: %v", err)
	}
	if _, err := e.detector.CloseRound(ctx, round); err != nil {
		t.Fatalf("close round: %v", err)
	}
	if _, err := e.rounds.MarkClosed(ctx, round.ID, e.clock.Now()); err != nil {
		t.Fatalf("mark closed: %v", err)
	}

	tb := e.tbs.byRoundAndPlayer(round.ID, player.ID)
	if tb == nil {
		t.Fatal("no tiebreaker spawned")
	}
	return round, tb, teams
}

func TestSubmitBid_EscalatesLeader(t *testing.T) {
	e := newEngine(t)
	_, tb, teams := tieFixture(t, e)
	ctx := context.Background()

	got, err := e.coordinator.SubmitBid(ctx, tb.ID, teams[0].ID, 110)
	if err != nil {
		t.Fatalf("SubmitBid: %v", err)
	}
	if got.CurrentHighestBid != 110 || got.CurrentHighestTeamID != teams[0].ID {
		t.Errorf("leader = team %d at %d, want team %d at 110",
			got.CurrentHighestTeamID, got.CurrentHighestBid, teams[0].ID)
	}
	if e.notifier.count("bid_raised") != 1 {
		t.Error("expected one bid_raised notification")
	}
}

func TestSubmitBid_StaleRaiseRejected(t *testing.T) {
	e := newEngine(t)
	_, tb, teams := tieFixture(t, e)
	ctx := context.Background()

	if _, err := e.coordinator.SubmitBid(ctx, tb.ID, teams[0].ID, 110); err != nil {
		t.Fatalf("first raise: %v", err)
	}

	_, err := e.coordinator.SubmitBid(ctx, tb.ID, teams[1].ID, 105)
	if !IsStaleBid(err) {
		t.Fatalf("err = %v, want StaleBidError", err)
	}
	stale := err.(*StaleBidError)
	if stale.CurrentBid != 110 {
		t.Errorf("reported ceiling = %d, want 110", stale.CurrentBid)
	}
}

func TestSubmitBid_AtFloorRejected(t *testing.T) {
	e := newEngine(t)
	_, tb, teams := tieFixture(t, e)

	// The tied amount is the floor; an escalation must exceed it.
	_, err := e.coordinator.SubmitBid(context.Background(), tb.ID, teams[0].ID, 100)
	if !IsStaleBid(err) {
		t.Fatalf("err = %v, want StaleBidError", err)
	}
}

func TestSubmitBid_NonMemberRejected(t *testing.T) {
	e := newEngine(t)
	_, tb, teams := tieFixture(t, e)

	// Charlie bid 80 and is not part of the tie.
	_, err := e.coordinator.SubmitBid(context.Background(), tb.ID, teams[2].ID, 200)
	if !IsNotAuthorized(err) {
		t.Fatalf("err = %v, want NotAuthorizedError", err)
	}
}

func TestSubmitBid_AfterDeadlineRejectedAndResolved(t *testing.T) {
	e := newEngine(t)
	_, tb, teams := tieFixture(t, e)
	ctx := context.Background()

	if _, err := e.coordinator.SubmitBid(ctx, tb.ID, teams[0].ID, 110); err != nil {
		t.Fatalf("raise: %v", err)
	}
	e.clock.Advance(tiebreakerWindow + time.Second)

	_, err := e.coordinator.SubmitBid(ctx, tb.ID, teams[1].ID, 120)
	if !IsWindowClosed(err) {
		t.Fatalf("err = %v, want WindowClosedError", err)
	}

	// The rejected write lazily resolved the expired tiebreaker to the leader.
	fresh, _ := e.tbs.GetByID(ctx, tb.ID)
	if fresh.Status != models.TiebreakerStatusResolved || fresh.WinnerTeamID != teams[0].ID {
		t.Errorf("status = %s winner = %d, want resolved by team %d",
			fresh.Status, fresh.WinnerTeamID, teams[0].ID)
	}
}

func TestWithdraw_LastTeamWinsAtItsBid(t *testing.T) {
	e := newEngine(t)
	round, tb, teams := tieFixture(t, e)
	ctx := context.Background()

	if _, err := e.coordinator.SubmitBid(ctx, tb.ID, teams[0].ID, 110); err != nil {
		t.Fatalf("raise: %v", err)
	}
	if err := e.coordinator.Withdraw(ctx, tb.ID, teams[1].ID); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}

	fresh, _ := e.tbs.GetByID(ctx, tb.ID)
	if fresh.Status != models.TiebreakerStatusResolved {
		t.Fatalf("status = %s, want resolved", fresh.Status)
	}
	if fresh.WinnerTeamID != teams[0].ID || fresh.WinningAmount != 110 {
		t.Errorf("winner = %d at %d, want team %d at 110",
			fresh.WinnerTeamID, fresh.WinningAmount, teams[0].ID)
	}

	// Winner pays its own last raise, settled exactly once.
	l, _ := e.ledgers.Get(ctx, teams[0].ID, 1)
	if l.FootballSpent != 110 {
		t.Errorf("spent = %d, want 110", l.FootballSpent)
	}
	if e.txns.completedCount() != 1 {
		t.Errorf("completed transactions = %d, want 1", e.txns.completedCount())
	}

	// No open tiebreakers left, so the round completes.
	gotRound, _ := e.rounds.GetByID(ctx, round.ID)
	if gotRound.Status != models.RoundStatusCompleted {
		t.Errorf("round status = %s, want completed", gotRound.Status)
	}
}

func TestWithdraw_WithoutRaisesWinsAtOriginalAmount(t *testing.T) {
	e := newEngine(t)
	_, tb, teams := tieFixture(t, e)
	ctx := context.Background()

	if err := e.coordinator.Withdraw(ctx, tb.ID, teams[1].ID); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}

	fresh, _ := e.tbs.GetByID(ctx, tb.ID)
	if fresh.WinnerTeamID != teams[0].ID || fresh.WinningAmount != 100 {
		t.Errorf("winner = %d at %d, want team %d at the tied amount 100",
			fresh.WinnerTeamID, fresh.WinningAmount, teams[0].ID)
	}
}

func TestWithdraw_TwiceRejected(t *testing.T) {
	e := newEngine(t)
	_, tb, teams := tieFixture(t, e)
	ctx := context.Background()

	if err := e.coordinator.Withdraw(ctx, tb.ID, teams[1].ID); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	err := e.coordinator.Withdraw(ctx, tb.ID, teams[1].ID)
	if !IsInvalidState(err) {
		t.Fatalf("second withdraw err = %v, want InvalidStateError", err)
	}
}

func TestResolveDue_LeaderWinsOnDeadline(t *testing.T) {
	e := newEngine(t)
	_, tb, teams := tieFixture(t, e)
	ctx := context.Background()

	if _, err := e.coordinator.SubmitBid(ctx, tb.ID, teams[1].ID, 130); err != nil {
		t.Fatalf("raise: %v", err)
	}
	e.clock.Advance(tiebreakerWindow + time.Second)

	fresh, _ := e.tbs.GetByID(ctx, tb.ID)
	if err := e.coordinator.ResolveDue(ctx, fresh); err != nil {
		t.Fatalf("ResolveDue: %v", err)
	}

	// Nobody withdrew, but the deadline still hands the player to the leader.
	fresh, _ = e.tbs.GetByID(ctx, tb.ID)
	if fresh.Status != models.TiebreakerStatusResolved || fresh.WinnerTeamID != teams[1].ID {
		t.Errorf("status = %s winner = %d, want resolved by team %d",
			fresh.Status, fresh.WinnerTeamID, teams[1].ID)
	}
	l, _ := e.ledgers.Get(ctx, teams[1].ID, 1)
	if l.FootballSpent != 130 {
		t.Errorf("spent = %d, want 130", l.FootballSpent)
	}
}

func TestResolveDue_NoSubmissionsExcludes(t *testing.T) {
	e := newEngine(t)
	round, tb, teams := tieFixture(t, e)
	ctx := context.Background()

	e.clock.Advance(tiebreakerWindow + time.Second)

	fresh, _ := e.tbs.GetByID(ctx, tb.ID)
	if err := e.coordinator.ResolveDue(ctx, fresh); err != nil {
		t.Fatalf("ResolveDue: %v", err)
	}

	fresh, _ = e.tbs.GetByID(ctx, tb.ID)
	if fresh.Status != models.TiebreakerStatusExcluded {
		t.Fatalf("status = %s, want excluded", fresh.Status)
	}
	// Player goes unsold: every tied bid is lost and no ledger moves.
	for _, member := range fresh.Teams {
		if got := e.bids.status(member.OriginalBidID); got != models.BidStatusLost {
			t.Errorf("bid %d status = %s, want lost", member.OriginalBidID, got)
		}
	}
	for _, team := range teams[:2] {
		l, _ := e.ledgers.Get(ctx, team.ID, 1)
		if l.FootballSpent != 0 {
			t.Errorf("team %d spent = %d, want 0", team.ID, l.FootballSpent)
		}
	}
	if e.txns.completedCount() != 0 {
		t.Error("exclusion must not settle anything")
	}
	if e.notifier.count("tiebreaker_excluded") != 1 {
		t.Error("expected one tiebreaker_excluded notification")
	}

	gotRound, _ := e.rounds.GetByID(ctx, round.ID)
	if gotRound.Status != models.RoundStatusCompleted {
		t.Errorf("round status = %s, want completed", gotRound.Status)
	}
}

func TestResolveDue_WithdrawnLeaderCannotWin(t *testing.T) {
	e := newEngine(t)
	_, tb, teams := threeWayTieFixture(t, e)
	ctx := context.Background()

	// Alpha takes the lead and then walks; Bravo and Charlie stay in without
	// raising, so the expiry must not hand the player back to Alpha.
	if _, err := e.coordinator.SubmitBid(ctx, tb.ID, teams[0].ID, 110); err != nil {
		t.Fatalf("raise: %v", err)
	}
	if err := e.coordinator.Withdraw(ctx, tb.ID, teams[0].ID); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}

	e.clock.Advance(tiebreakerWindow + time.Second)
	fresh, _ := e.tbs.GetByID(ctx, tb.ID)
	if err := e.coordinator.ResolveDue(ctx, fresh); err != nil {
		t.Fatalf("ResolveDue: %v", err)
	}

	fresh, _ = e.tbs.GetByID(ctx, tb.ID)
	if fresh.WinnerTeamID == teams[0].ID {
		t.Fatal("withdrawn team won the tiebreaker")
	}
	if fresh.Status != models.TiebreakerStatusExcluded {
		t.Errorf("status = %s, want excluded when nobody left has raised", fresh.Status)
	}
	l, _ := e.ledgers.Get(ctx, teams[0].ID, 1)
	if l.FootballSpent != 0 {
		t.Errorf("withdrawn team spent = %d, want 0", l.FootballSpent)
	}
	if e.txns.completedCount() != 0 {
		t.Error("no settlement expected after the leader withdrew")
	}
}

func TestResolveDue_FallsBackToPriorRaiseAfterLeaderWithdraws(t *testing.T) {
	e := newEngine(t)
	_, tb, teams := threeWayTieFixture(t, e)
	ctx := context.Background()

	if _, err := e.coordinator.SubmitBid(ctx, tb.ID, teams[0].ID, 110); err != nil {
		t.Fatalf("first raise: %v", err)
	}
	if _, err := e.coordinator.SubmitBid(ctx, tb.ID, teams[1].ID, 120); err != nil {
		t.Fatalf("second raise: %v", err)
	}
	if err := e.coordinator.Withdraw(ctx, tb.ID, teams[1].ID); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}

	e.clock.Advance(tiebreakerWindow + time.Second)
	fresh, _ := e.tbs.GetByID(ctx, tb.ID)
	if err := e.coordinator.ResolveDue(ctx, fresh); err != nil {
		t.Fatalf("ResolveDue: %v", err)
	}

	// With the 120 leader gone, the highest submitted raise from a team still
	// in wins at its own amount, not at the withdrawn ceiling.
	fresh, _ = e.tbs.GetByID(ctx, tb.ID)
	if fresh.Status != models.TiebreakerStatusResolved {
		t.Fatalf("status = %s, want resolved", fresh.Status)
	}
	if fresh.WinnerTeamID != teams[0].ID || fresh.WinningAmount != 110 {
		t.Errorf("winner = %d at %d, want team %d at 110",
			fresh.WinnerTeamID, fresh.WinningAmount, teams[0].ID)
	}
	l, _ := e.ledgers.Get(ctx, teams[0].ID, 1)
	if l.FootballSpent != 110 {
		t.Errorf("spent = %d, want 110", l.FootballSpent)
	}
	l, _ = e.ledgers.Get(ctx, teams[1].ID, 1)
	if l.FootballSpent != 0 {
		t.Errorf("withdrawn team spent = %d, want 0", l.FootballSpent)
	}
}

func TestResolveDue_IsIdempotent(t *testing.T) {
	e := newEngine(t)
	_, tb, teams := tieFixture(t, e)
	ctx := context.Background()

	if _, err := e.coordinator.SubmitBid(ctx, tb.ID, teams[0].ID, 110); err != nil {
		t.Fatalf("raise: %v", err)
	}
	e.clock.Advance(tiebreakerWindow + time.Second)

	for i := 0; i < 3; i++ {
		fresh, _ := e.tbs.GetByID(ctx, tb.ID)
		if err := e.coordinator.ResolveDue(ctx, fresh); err != nil {
			t.Fatalf("ResolveDue #%d: %v", i, err)
		}
	}

	l, _ := e.ledgers.Get(ctx, teams[0].ID, 1)
	if l.FootballSpent != 110 {
		t.Errorf("spent = %d after repeated resolution, want 110", l.FootballSpent)
	}
	if e.txns.completedCount() != 1 {
		t.Errorf("completed transactions = %d, want 1", e.txns.completedCount())
	}
}
