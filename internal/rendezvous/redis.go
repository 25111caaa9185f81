package rendezvous

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Channel is the Redis pub/sub channel carrying notified names.
const Channel = "townhall:rendezvous"

// Redis fans notifications out to every instance through Redis pub/sub. Each
// instance parks its own waiters on a Local.
type Redis struct {
	local  *Local
	client *redis.Client
	logger *slog.Logger
}

// NewRedis wraps local. Call Run to start receiving notifications.
func NewRedis(local *Local, client *redis.Client, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{local: local, client: client, logger: logger}
}

// Wait parks on the local rendezvous.
func (r *Redis) Wait(ctx context.Context, name string, timeout time.Duration) bool {
	return r.local.Wait(ctx, name, timeout)
}

// Notify publishes name to every instance. When Redis is unreachable the
// local waiters are still woken.
func (r *Redis) Notify(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.client.Publish(ctx, Channel, name).Err(); err != nil {
		r.logger.Warn("publish rendezvous", "name", name, "err", err)
		r.local.Notify(name)
	}
}

// Run relays published names to the local rendezvous until ctx is done.
func (r *Redis) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, Channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.local.Notify(msg.Payload)
		}
	}
}
