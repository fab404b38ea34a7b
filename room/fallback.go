package room

import (
	"context"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Fallback is the spill queue for events that could not be published to
// redis. Spilled events are re-published by Drain once redis returns;
// observers that missed them in the meantime refetch on reconnect.
type Fallback struct {
	queue  *azqueue.QueueClient
	logger *log.Logger
}

// NewFallback creates a Fallback backed by the given Azure queue.
func NewFallback(connStr, queueName string, logger *log.Logger) (*Fallback, error) {
	opts := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute,
				RetryDelay:    time.Second,
				MaxRetryDelay: time.Second * 30,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	q, err := azqueue.NewQueueClientFromConnectionString(connStr, queueName, &opts)
	if err != nil {
		return nil, err
	}
	return &Fallback{queue: q, logger: logger}, nil
}

// Spill enqueues the serialized event. Failures are logged; at this
// point both delivery paths are down and the event is dropped, which the
// room contract allows.
func (f *Fallback) Spill(ctx context.Context, data []byte) {
	if _, err := f.queue.EnqueueMessage(ctx, string(data), nil); err != nil {
		f.logger.Errorf("spill event: %v", err)
	}
}

// Drain re-publishes spilled events to the redis channel until ctx is
// cancelled. Messages stay queued while redis is still unreachable.
func (f *Fallback) Drain(ctx context.Context, rc *redis.Client, channel string, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.drainOnce(ctx, rc, channel)
		}
	}
}

func (f *Fallback) drainOnce(ctx context.Context, rc *redis.Client, channel string) {
	for {
		resp, err := f.queue.DequeueMessage(ctx, nil)
		if err != nil {
			f.logger.Errorf("dequeue spilled event: %v", err)
			return
		}
		if len(resp.Messages) == 0 {
			return
		}
		msg := resp.Messages[0]
		if err := rc.Publish(ctx, channel, *msg.MessageText).Err(); err != nil {
			// Redis is still down; leave the message for the next pass.
			f.logger.Errorf("republish spilled event: %v", err)
			return
		}
		if _, err := f.queue.DeleteMessage(ctx, *msg.MessageID, *msg.PopReceipt, nil); err != nil {
			f.logger.Errorf("delete spilled event: %v", err)
			return
		}
	}
}
