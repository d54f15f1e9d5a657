package eventbus

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

const (
	redisLocationChannel = "geofence:location-updates"
	redisGeofenceChannel = "geofence:geofence-events"
)

// RedisBridge mirrors every local publish onto Redis Pub/Sub channels so
// multiple service instances behind a load balancer share one live feed.
// It is optional: a Bus works standalone without it.
type RedisBridge struct {
	client *redis.Client
	log    zerolog.Logger
}

func NewRedisBridge(addr string, log zerolog.Logger) *RedisBridge {
	return &RedisBridge{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		log:    log,
	}
}

// Attach subscribes the bridge to bus's local topics and republishes them
// to Redis. It runs until ctx is cancelled.
func (rb *RedisBridge) Attach(ctx context.Context, bus *Bus) {
	sub := bus.Subscribe()
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-sub.LocationUpdates:
				if !ok {
					return
				}
				rb.publish(ctx, redisLocationChannel, update)
			case event, ok := <-sub.GeofenceEvents:
				if !ok {
					return
				}
				rb.publish(ctx, redisGeofenceChannel, event)
			}
		}
	}()
}

func (rb *RedisBridge) publish(ctx context.Context, channel string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		rb.log.Error().Err(err).Str("channel", channel).Msg("marshal redis publish payload failed")
		return
	}
	if err := rb.client.Publish(ctx, channel, body).Err(); err != nil {
		rb.log.Warn().Err(err).Str("channel", channel).Msg("redis publish failed")
	}
}

func (rb *RedisBridge) Close() error {
	return rb.client.Close()
}
