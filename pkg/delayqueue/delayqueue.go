// Package delayqueue keeps booking reminders in a Redis sorted set scored by fire time
package delayqueue

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKey is the sorted set used when no key is configured
const DefaultKey = "volunteer_booking:reminders"

// Queue is a delayed job queue with one member per booking.
// Scheduling a booking again replaces its fire time.
type Queue struct {
	client *redis.Client
	key    string
}

// Connect parses a redis:// URL, verifies the connection and returns a queue on key
func Connect(ctx context.Context, url, key string) (*Queue, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return New(client, key), nil
}

// New wraps an existing client
func New(client *redis.Client, key string) *Queue {
	if key == "" {
		key = DefaultKey
	}
	return &Queue{client: client, key: key}
}

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}

// Schedule sets the fire time for a booking's reminder
func (q *Queue) Schedule(ctx context.Context, bookingID string, fireAt time.Time) error {
	if err := q.client.ZAdd(ctx, q.key, redis.Z{Score: score(fireAt), Member: bookingID}).Err(); err != nil {
		return fmt.Errorf("failed to schedule %s: %w", bookingID, err)
	}
	return nil
}

// Due lists up to limit bookings whose fire time is at or before now, earliest first.
// A limit of zero or less returns every due booking.
func (q *Queue) Due(ctx context.Context, now time.Time, limit int64) ([]string, error) {
	by := &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}
	if limit > 0 {
		by.Count = limit
	}

	ids, err := q.client.ZRangeByScore(ctx, q.key, by).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read due reminders: %w", err)
	}
	return ids, nil
}

// Claim removes a booking from the queue. Only the caller that removed it gets true,
// so two drainers never send the same reminder.
func (q *Queue) Claim(ctx context.Context, bookingID string) (bool, error) {
	removed, err := q.client.ZRem(ctx, q.key, bookingID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim %s: %w", bookingID, err)
	}
	return removed == 1, nil
}

// Remove drops a booking's pending reminder, e.g. after cancellation
func (q *Queue) Remove(ctx context.Context, bookingID string) error {
	if err := q.client.ZRem(ctx, q.key, bookingID).Err(); err != nil {
		return fmt.Errorf("failed to remove %s: %w", bookingID, err)
	}
	return nil
}

// Len returns the number of pending reminders
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, q.key).Result()
}

// Close closes the underlying client
func (q *Queue) Close() error {
	return q.client.Close()
}
