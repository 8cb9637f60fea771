package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkax "github.com/ariefcatur/go-fulfillment/internal/kafka"
	"github.com/ariefcatur/go-fulfillment/internal/redisx"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Deduper remembers which events were already handled.
type Deduper interface {
	// Claim reports whether the caller is the first to see eventID.
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type RedisDeduper struct {
	RDB     *redis.Client
	Service string
	TTL     time.Duration
}

func (d *RedisDeduper) key(eventID string) string {
	return fmt.Sprintf(redisx.KeyDedup, d.Service, eventID)
}

func (d *RedisDeduper) Claim(ctx context.Context, eventID string) (bool, error) {
	ttl := d.TTL
	if ttl <= 0 {
		ttl = redisx.TTLDedup
	}
	return redisx.Claim(ctx, d.RDB, d.key(eventID), ttl)
}

func (d *RedisDeduper) Release(ctx context.Context, eventID string) error {
	return d.RDB.Del(ctx, d.key(eventID)).Err()
}

// Handler is the consumer side: it turns confirmation envelopes into mail.
type Handler struct {
	Dedup  Deduper
	Mailer Mailer
	Log    *zap.Logger
}

// Handle is a kafkax.Handler. Malformed messages are logged and dropped so
// they do not block the partition; a failed send releases the dedup claim and
// returns the error so the consumer can retry it a bounded number of times.
func (h *Handler) Handle(ctx context.Context, m kafka.Message) error {
	var env Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		h.Log.Warn("drop undecodable envelope", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	if env.EventType != EventOrderConfirmationRequested {
		return nil
	}

	c, err := kafkax.UnwrapPayload[Confirmation](env.Payload)
	if err != nil {
		h.Log.Warn("drop undecodable confirmation", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}
	if c.Recipient == "" {
		h.Log.Warn("confirmation without recipient", zap.String("order_id", c.OrderID))
		return nil
	}

	first, err := h.Dedup.Claim(ctx, env.EventID)
	if err != nil {
		return fmt.Errorf("dedup claim: %w", err)
	}
	if !first {
		h.Log.Debug("duplicate event", zap.String("event_id", env.EventID))
		return nil
	}

	subject, body := Render(c)
	if err := h.Mailer.Send(ctx, c.Recipient, subject, body); err != nil {
		if rerr := h.Dedup.Release(ctx, env.EventID); rerr != nil {
			h.Log.Warn("dedup release failed", zap.String("event_id", env.EventID), zap.Error(rerr))
		}
		return fmt.Errorf("send confirmation for order %s: %w", c.OrderID, err)
	}
	h.Log.Info("confirmation sent", zap.String("order_id", c.OrderID), zap.String("event_id", env.EventID))
	return nil
}
