// Package notify fans auction events out to the push-notification sink
// (NATS) and the realtime broadcast sink (redis pub/sub). Delivery is
// fire-and-forget: every failure is logged and swallowed here, and no caller
// ever sees an error from this package. This is a convenience signal, not a
// correctness channel.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/Shamsear/ssleague-sub021/internal/database/models"
)

const publishTimeout = 3 * time.Second

// Notifier is what the auction engine sees; settlement must never block on
// or fail because of anything behind this interface.
type Notifier interface {
	RoundStarted(round *models.Round)
	RoundCompleted(round *models.Round)
	TiebreakerSpawned(tb *models.Tiebreaker)
	BidRaised(tb *models.Tiebreaker, teamID, amount int64)
	TiebreakerResolved(tb *models.Tiebreaker)
	TiebreakerExcluded(tb *models.Tiebreaker)
	SettlementApplied(txn *models.Transaction)
}

// Event is the wire shape shared by both sinks.
type Event struct {
	Kind         string    `json:"kind"`
	SeasonID     int64     `json:"season_id"`
	RoundID      int64     `json:"round_id,omitempty"`
	TiebreakerID int64     `json:"tiebreaker_id,omitempty"`
	TeamID       int64     `json:"team_id,omitempty"`
	PlayerID     int64     `json:"player_id,omitempty"`
	PlayerName   string    `json:"player_name,omitempty"`
	Amount       int64     `json:"amount,omitempty"`
	Message      string    `json:"message,omitempty"`
	At           time.Time `json:"at"`
}

// Dispatcher publishes to NATS subjects ("push.season.<id>") and redis
// channels ("auction_events:<season>"). Either client may be nil, in which
// case that sink degrades to log-only.
type Dispatcher struct {
	nc  *nats.Conn
	rdb *redis.Client
}

func NewDispatcher(nc *nats.Conn, rdb *redis.Client) *Dispatcher {
	return &Dispatcher{nc: nc, rdb: rdb}
}

func (d *Dispatcher) RoundStarted(round *models.Round) {
	d.dispatch(Event{
		Kind:     "round_started",
		SeasonID: round.SeasonID,
		RoundID:  round.ID,
		Message:  fmt.Sprintf("Round %d is now open for bidding", round.RoundNumber),
		At:       time.Now(),
	})
}

func (d *Dispatcher) RoundCompleted(round *models.Round) {
	d.dispatch(Event{
		Kind:     "round_completed",
		SeasonID: round.SeasonID,
		RoundID:  round.ID,
		Message:  fmt.Sprintf("Round %d has closed", round.RoundNumber),
		At:       time.Now(),
	})
}

func (d *Dispatcher) TiebreakerSpawned(tb *models.Tiebreaker) {
	d.dispatch(Event{
		Kind:         "tiebreaker_spawned",
		SeasonID:     tb.SeasonID,
		RoundID:      tb.RoundID,
		TiebreakerID: tb.ID,
		PlayerID:     tb.PlayerID,
		PlayerName:   tb.PlayerName,
		Amount:       tb.OriginalAmount,
		Message:      fmt.Sprintf("Tiebreaker opened for %s at %d", tb.PlayerName, tb.OriginalAmount),
		At:           time.Now(),
	})
}

func (d *Dispatcher) BidRaised(tb *models.Tiebreaker, teamID, amount int64) {
	d.dispatch(Event{
		Kind:         "tiebreaker_raise",
		SeasonID:     tb.SeasonID,
		RoundID:      tb.RoundID,
		TiebreakerID: tb.ID,
		TeamID:       teamID,
		PlayerID:     tb.PlayerID,
		Amount:       amount,
		Message:      fmt.Sprintf("Bid on %s raised to %d", tb.PlayerName, amount),
		At:           time.Now(),
	})
}

func (d *Dispatcher) TiebreakerResolved(tb *models.Tiebreaker) {
	d.dispatch(Event{
		Kind:         "tiebreaker_resolved",
		SeasonID:     tb.SeasonID,
		RoundID:      tb.RoundID,
		TiebreakerID: tb.ID,
		TeamID:       tb.WinnerTeamID,
		PlayerID:     tb.PlayerID,
		Amount:       tb.WinningAmount,
		Message:      fmt.Sprintf("%s won for %d", tb.PlayerName, tb.WinningAmount),
		At:           time.Now(),
	})
}

func (d *Dispatcher) TiebreakerExcluded(tb *models.Tiebreaker) {
	d.dispatch(Event{
		Kind:         "tiebreaker_excluded",
		SeasonID:     tb.SeasonID,
		RoundID:      tb.RoundID,
		TiebreakerID: tb.ID,
		PlayerID:     tb.PlayerID,
		Message:      fmt.Sprintf("%s went unsold, returned to the pool", tb.PlayerName),
		At:           time.Now(),
	})
}

func (d *Dispatcher) SettlementApplied(txn *models.Transaction) {
	d.dispatch(Event{
		Kind:         "settlement_applied",
		SeasonID:     txn.SeasonID,
		RoundID:      txn.RoundID,
		TiebreakerID: txn.TiebreakerID,
		TeamID:       txn.TeamID,
		PlayerID:     txn.PlayerID,
		Amount:       txn.Amount,
		At:           time.Now(),
	})
}

func (d *Dispatcher) dispatch(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal notification",
			slog.String("kind", event.Kind),
			slog.Any("error", err))
		return
	}

	slog.Info(fmt.Sprintf("[%s] %s", event.Kind, event.Message),
		slog.Int64("season_id", event.SeasonID))

	if d.nc != nil {
		subject := fmt.Sprintf("push.season.%d", event.SeasonID)
		if err := d.nc.Publish(subject, payload); err != nil {
			slog.Error("Failed to publish push notification",
				slog.String("subject", subject),
				slog.Any("error", err))
		}
		if event.TeamID != 0 {
			teamSubject := fmt.Sprintf("push.team.%d", event.TeamID)
			if err := d.nc.Publish(teamSubject, payload); err != nil {
				slog.Error("Failed to publish push notification",
					slog.String("subject", teamSubject),
					slog.Any("error", err))
			}
		}
	}

	if d.rdb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		channel := fmt.Sprintf("auction_events:%d", event.SeasonID)
		if err := d.rdb.Publish(ctx, channel, payload).Err(); err != nil {
			slog.Error("Failed to publish broadcast",
				slog.String("channel", channel),
				slog.Any("error", err))
		}
	}
}
