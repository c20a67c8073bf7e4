package auction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Shamsear/ssleague-sub021/internal/database/models"
	"github.com/Shamsear/ssleague-sub021/internal/database/repositories"
	"github.com/Shamsear/ssleague-sub021/internal/notify"
)

const settlementConcurrency = 4

// Detector runs once per round closure: it groups the round's live bids by
// player, settles outright winners, and spawns one tiebreaker sub-auction
// per player whose top amount was offered by two or more teams.
type Detector struct {
	bids        repositories.BidRepository
	tiebreakers repositories.TiebreakerRepository
	players     repositories.PlayerRepository
	teams       repositories.TeamRepository
	settler     *Settler
	notifier    notify.Notifier
	window      time.Duration
	nowFn       func() time.Time
}

func NewDetector(
	bids repositories.BidRepository,
	tiebreakers repositories.TiebreakerRepository,
	players repositories.PlayerRepository,
	teams repositories.TeamRepository,
	settler *Settler,
	notifier notify.Notifier,
	window time.Duration,
) *Detector {
	return &Detector{
		bids:        bids,
		tiebreakers: tiebreakers,
		players:     players,
		teams:       teams,
		settler:     settler,
		notifier:    notifier,
		window:      window,
		nowFn:       time.Now,
	}
}

// CloseRound resolves every player in the closed round and returns the
// number of tiebreakers spawned. The sweep is idempotent: bids already marked
// terminal are skipped, settlement dedupes on its intent reference, and an
// already-spawned tiebreaker is tolerated, so callers may re-run it after a
// partial failure until the round's closed_at marker is set.
func (d *Detector) CloseRound(ctx context.Context, round *models.Round) (int, error) {
	bids, err := d.bids.GetByRound(ctx, round.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to load bids for round %d: %w", round.ID, err)
	}
	if len(bids) == 0 {
		return 0, nil
	}

	byPlayer := make(map[int64][]*models.Bid)
	for _, bid := range bids {
		if bid.Status != models.BidStatusPending {
			continue
		}
		byPlayer[bid.PlayerID] = append(byPlayer[bid.PlayerID], bid)
	}

	playerIDs := make([]int64, 0, len(byPlayer))
	for id := range byPlayer {
		playerIDs = append(playerIDs, id)
	}
	players, err := d.players.GetByIDs(ctx, playerIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to load players for round %d: %w", round.ID, err)
	}

	spawned := 0
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(settlementConcurrency)

	for playerID, playerBids := range byPlayer {
		player, ok := players[playerID]
		if !ok {
			// A bid referencing a player the store no longer returns means
			// corrupt data; fail the sweep rather than settle blind.
			return spawned, &NotFoundError{Entity: "player", ID: playerID}
		}

		top, losers := splitTopBids(playerBids)

		if err := d.bids.MarkLost(ctx, bidIDs(losers)); err != nil {
			return spawned, fmt.Errorf("failed to mark losing bids for player %d: %w", playerID, err)
		}

		if len(top) == 1 {
			// Outright winner; no tiebreaker, straight to settlement.
			winner := top[0]
			if err := d.bids.MarkWon(ctx, winner.ID); err != nil {
				return spawned, fmt.Errorf("failed to mark winning bid %d: %w", winner.ID, err)
			}

			g.Go(func() error {
				_, err := d.settler.Settle(gctx, SettlementRequest{
					TeamID:   winner.TeamID,
					SeasonID: round.SeasonID,
					PlayerID: winner.PlayerID,
					Position: player.Position,
					Amount:   winner.Amount,
					Currency: round.Currency,
					RoundID:  round.ID,
				})
				return err
			})
			continue
		}

		if err := d.spawnTiebreaker(ctx, round, player, top); err != nil {
			return spawned, err
		}
		spawned++
	}

	if err := g.Wait(); err != nil {
		return spawned, fmt.Errorf("outright settlement failed for round %d: %w", round.ID, err)
	}

	slog.Info("Round closed",
		slog.Int64("round_id", round.ID),
		slog.Int("players", len(byPlayer)),
		slog.Int("tiebreakers", spawned))

	return spawned, nil
}

func (d *Detector) spawnTiebreaker(ctx context.Context, round *models.Round, player *models.Player, tied []*models.Bid) error {
	now := d.nowFn()
	amount := tied[0].Amount

	teamIDs := make([]int64, 0, len(tied))
	for _, bid := range tied {
		teamIDs = append(teamIDs, bid.TeamID)
	}
	teams, err := d.teams.GetByIDs(ctx, teamIDs)
	if err != nil {
		return fmt.Errorf("failed to load tied teams for player %d: %w", player.ID, err)
	}

	tb := &models.Tiebreaker{
		RoundID:    round.ID,
		SeasonID:   round.SeasonID,
		PlayerID:   player.ID,
		PlayerName: player.Name,
		Position:   player.Position,
		Currency:   round.Currency,
		Status:     models.TiebreakerStatusActive,
		// Leaderless start: the tied amount is the floor, the first valid
		// escalation becomes the leader.
		OriginalAmount:    amount,
		CurrentHighestBid: amount,
		TeamsRemaining:    len(tied),
		StartTime:         now,
		LastActivityTime:  now,
		MaxEndTime:        now.Add(d.window),
	}

	members := make([]*models.TeamTiebreaker, 0, len(tied))
	for _, bid := range tied {
		name := ""
		if team, ok := teams[bid.TeamID]; ok {
			name = team.Name
		}
		members = append(members, &models.TeamTiebreaker{
			TeamID:        bid.TeamID,
			TeamName:      name,
			OriginalBidID: bid.ID,
			Status:        models.TeamTiebreakerStatusActive,
		})
	}

	if err := d.tiebreakers.CreateWithMembers(ctx, tb, members); err != nil {
		if repositories.IsConflict(err) {
			// A previous partially-failed sweep already spawned this
			// tiebreaker; the tied bids are still pending so the caller
			// counts it again.
			return nil
		}
		return fmt.Errorf("failed to spawn tiebreaker for player %d: %w", player.ID, err)
	}

	d.notifier.TiebreakerSpawned(tb)

	slog.Info("Tiebreaker spawned",
		slog.Int64("tiebreaker_id", tb.ID),
		slog.Int64("round_id", round.ID),
		slog.Int64("player_id", player.ID),
		slog.Int64("amount", amount),
		slog.Int("teams", len(tied)))

	return nil
}

// splitTopBids partitions a player's live bids into those at the maximum
// amount and the rest.
func splitTopBids(bids []*models.Bid) (top, losers []*models.Bid) {
	var max int64
	for _, bid := range bids {
		if bid.Amount > max {
			max = bid.Amount
		}
	}
	for _, bid := range bids {
		if bid.Amount == max {
			top = append(top, bid)
		} else {
			losers = append(losers, bid)
		}
	}
	return top, losers
}

func bidIDs(bids []*models.Bid) []int64 {
	ids := make([]int64, 0, len(bids))
	for _, bid := range bids {
		ids = append(ids, bid.ID)
	}
	return ids
}
