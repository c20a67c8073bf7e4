package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "auction_events:"

// Subscriber bridges the redis auction-event channels into the hub. It
// pattern-subscribes to every season channel so a single subscriber serves
// the whole process.
type Subscriber struct {
	rdb *redis.Client
	hub *Hub
}

func NewSubscriber(rdb *redis.Client, hub *Hub) *Subscriber {
	return &Subscriber{rdb: rdb, hub: hub}
}

// Listen consumes events until the context is cancelled. Blocking; run in a
// goroutine.
func (s *Subscriber) Listen(ctx context.Context) error {
	pubsub := s.rdb.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("redis pubsub channel closed")
			}
			seasonID, err := seasonFromChannel(msg.Channel)
			if err != nil {
				slog.Warn("Dropping event from unrecognized channel",
					slog.String("channel", msg.Channel))
				continue
			}
			s.hub.Broadcast(seasonID, []byte(msg.Payload))
		}
	}
}

func seasonFromChannel(channel string) (int64, error) {
	raw, ok := strings.CutPrefix(channel, channelPrefix)
	if !ok {
		return 0, fmt.Errorf("channel %q missing prefix", channel)
	}
	return strconv.ParseInt(raw, 10, 64)
}
