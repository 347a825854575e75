package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const entitlementPrefix = "entitlement:v1:"

// RedisGranter records entitlements in Redis with a validity TTL, keyed by
// the payer's phone number from the callback metadata. A later access check
// only needs the MSISDN to decide whether a bundle is active.
type RedisGranter struct {
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisGranter constructs a redis-backed granter.
func NewRedisGranter(cache *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisGranter {
	return &RedisGranter{cache: cache, ttl: ttl, logger: logger}
}

type storedEntitlement struct {
	Reference         string         `json:"reference"`
	CheckoutRequestID string         `json:"checkout_request_id"`
	Fields            map[string]any `json:"fields"`
	GrantedAt         time.Time      `json:"granted_at"`
}

// Grant persists the entitlement under the payer's phone number.
func (g *RedisGranter) Grant(ctx context.Context, e Entitlement) error {
	phone := msisdnKey(e.Fields["PhoneNumber"])
	if phone == "" {
		return fmt.Errorf("entitlement metadata missing PhoneNumber")
	}

	record := storedEntitlement{
		Reference:         uuid.NewString(),
		CheckoutRequestID: e.CheckoutRequestID,
		Fields:            e.Fields,
		GrantedAt:         time.Now().UTC(),
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode entitlement: %w", err)
	}

	key := entitlementPrefix + phone
	if err := g.cache.Set(ctx, key, payload, g.ttl).Err(); err != nil {
		return fmt.Errorf("store entitlement: %w", err)
	}

	g.logger.Info("entitlement granted",
		slog.String("reference", record.Reference),
		slog.String("checkout_request_id", e.CheckoutRequestID),
	)
	return nil
}

// msisdnKey renders the PhoneNumber metadata value as a plain digit string.
// The gateway sends it as a JSON number, which decodes to float64.
func msisdnKey(v any) string {
	switch phone := v.(type) {
	case string:
		return phone
	case float64:
		return strconv.FormatFloat(phone, 'f', -1, 64)
	case json.Number:
		return phone.String()
	default:
		return ""
	}
}

// Active reports whether the given phone number currently holds an
// unexpired entitlement.
func (g *RedisGranter) Active(ctx context.Context, phone string) (bool, error) {
	err := g.cache.Get(ctx, entitlementPrefix+phone).Err()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
