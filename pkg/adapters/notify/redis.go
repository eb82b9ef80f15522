package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/wadjakorntonsri/go-link-in-bio/pkg/core/domain"
	"github.com/wadjakorntonsri/go-link-in-bio/pkg/ports"
)

const channelPrefix = "linkbio:links:"

// Redis publishes link changes on one channel per principal so every server
// instance can feed its own subscribers.
type Redis struct {
	client *redis.Client
}

func NewRedis(ctx context.Context, redisURL string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{client: client}, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func channelFor(principalID string) string {
	return channelPrefix + principalID
}

func (r *Redis) Publish(ctx context.Context, change domain.LinkChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, channelFor(change.PrincipalID), payload).Err()
}

func (r *Redis) Subscribe(ctx context.Context, principalID string) (<-chan domain.LinkChange, error) {
	pubsub := r.client.Subscribe(ctx, channelFor(principalID))
	// Wait for the subscription confirmation so no publish is missed after we return.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", principalID, err)
	}

	out := make(chan domain.LinkChange, subscriberBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var change domain.LinkChange
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					slog.Warn("dropping malformed link change", "channel", msg.Channel, "error", err)
					continue
				}
				select {
				case out <- change:
				default:
				}
			}
		}
	}()

	return out, nil
}

var _ ports.LinkNotifier = (*Redis)(nil)
