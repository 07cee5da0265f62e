package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// applyDeltaScript marks the event as applied and moves the counter in one
// step, so a redelivered event can never be counted twice.
// KEYS[1] = applied marker, KEYS[2] = stock counter
// ARGV[1] = delta, ARGV[2] = marker ttl in ms
// Returns {applied, stock}.
var applyDeltaScript = goredis.NewScript(`
if not redis.call("SET", KEYS[1], "1", "NX", "PX", ARGV[2]) then
	return {0, tonumber(redis.call("GET", KEYS[2]) or "0")}
end
return {1, redis.call("INCRBY", KEYS[2], ARGV[1])}
`)

// StockMirror implements ports.StockMirror. It is the inventory consumer's
// read model of quantity on hand, fed by stock.changed events.
type StockMirror struct {
	client        *goredis.Client
	stockPrefix   string
	appliedPrefix string
}

// NewStockMirror creates a Redis-backed stock mirror.
func NewStockMirror(client *goredis.Client) *StockMirror {
	return &StockMirror{
		client:        client,
		stockPrefix:   "stock:",
		appliedPrefix: "stock:applied:",
	}
}

// ApplyDelta adds delta to the product's counter once per eventID. It
// returns false when eventID was already applied.
func (m *StockMirror) ApplyDelta(ctx context.Context, eventID, productID uuid.UUID, delta int, ttl time.Duration) (bool, error) {
	keys := []string{m.appliedPrefix + eventID.String(), m.stockPrefix + productID.String()}
	res, err := applyDeltaScript.Run(ctx, m.client, keys, delta, ttl.Milliseconds()).Int64Slice()
	if err != nil {
		return false, fmt.Errorf("redis stock apply: %w", err)
	}
	if len(res) != 2 {
		return false, fmt.Errorf("redis stock apply: unexpected reply %v", res)
	}
	return res[0] == 1, nil
}

// Get returns the mirrored stock and whether the product is known.
func (m *StockMirror) Get(ctx context.Context, productID uuid.UUID) (int, bool, error) {
	val, err := m.client.Get(ctx, m.stockPrefix+productID.String()).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("redis stock get: %w", err)
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("redis stock get: %w", err)
	}
	return n, true, nil
}

// Set seeds the counter from the catalog.
func (m *StockMirror) Set(ctx context.Context, productID uuid.UUID, stock int) error {
	if err := m.client.Set(ctx, m.stockPrefix+productID.String(), stock, 0).Err(); err != nil {
		return fmt.Errorf("redis stock set: %w", err)
	}
	return nil
}
