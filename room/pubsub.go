package room

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
)

// Publisher pushes committed events onto the shared redis channel so
// every running instance fans them into its local hub. When redis is
// unavailable the event is spilled to the fallback queue instead of
// being lost.
type Publisher struct {
	rc       *redis.Client
	channel  string
	fallback *Fallback
	logger   *log.Logger
}

// NewPublisher creates a Publisher. fallback may be nil when no spill
// queue is configured.
func NewPublisher(rc *redis.Client, channel string, fallback *Fallback, logger *log.Logger) *Publisher {
	if rc == nil {
		panic("room.NewPublisher: redis client is nil")
	}
	if logger == nil {
		panic("room.NewPublisher: logger is nil")
	}
	return &Publisher{rc: rc, channel: channel, fallback: fallback, logger: logger}
}

// Publish implements domain.Publisher.
func (p *Publisher) Publish(ctx context.Context, ev domain.Event) {
	data, err := sonic.Marshal(ev)
	if err != nil {
		p.logger.Errorf("marshal event: %v", err)
		return
	}
	if err := p.rc.Publish(ctx, p.channel, data).Err(); err != nil {
		p.logger.Errorf("publish event %s: %v", ev.ID, err)
		if p.fallback != nil {
			p.fallback.Spill(ctx, data)
		}
	}
}

// SubscribeUpdates consumes the shared event channel and fans events
// into the local hub. It blocks until ctx is cancelled, reconnecting
// when the subscription channel closes.
func SubscribeUpdates(ctx context.Context, logger *log.Logger, rc *redis.Client, channel string, hub *Hub) {
	for {
		sub := rc.Subscribe(ctx, channel)
		ch := sub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				var ev domain.Event
				if err := sonic.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					logger.Errorf("unable to parse update: %v", err)
					continue
				}
				hub.Broadcast(ev)
			}
		}
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		logger.Error("pubsub channel closed, reconnecting")
		time.Sleep(time.Second)
	}
}
