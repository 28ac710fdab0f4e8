// Package events fans order lifecycle events out to downstream dashboards
// over redis pub/sub. Publishing is best-effort: a failed publish never
// fails the operation that produced the event.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"

	"tillpoint/internal/database/models"
)

const (
	OrderCreated       = "order.created"
	OrderStatusChanged = "order.status_changed"
	OrderRefunded      = "order.refunded"
	OrderDeleted       = "order.deleted"

	channelPrefix = "pos:events:"
	channelAll    = "pos:events:all"
)

type OrderEvent struct {
	Type      string             `json:"event_type"`
	OrderID   string             `json:"order_id"`
	RefundID  string             `json:"refund_id,omitempty"`
	Status    models.OrderStatus `json:"status,omitempty"`
	Total     decimal.Decimal    `json:"total"`
	Refunded  decimal.Decimal    `json:"refunded"`
	Timestamp time.Time          `json:"timestamp"`
}

type Publisher interface {
	Publish(ctx context.Context, event OrderEvent)
}

type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, event OrderEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("events: marshal %s for order %s: %v", event.Type, event.OrderID, err)
		return
	}

	channel := fmt.Sprintf("%s%s", channelPrefix, event.Type)
	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		log.Printf("events: publish %s: %v", channel, err)
		return
	}
	if err := p.client.Publish(ctx, channelAll, payload).Err(); err != nil {
		log.Printf("events: publish %s: %v", channelAll, err)
	}
}

// Nop discards events. Used in tests and storeless standalone mode.
type Nop struct{}

func (Nop) Publish(ctx context.Context, event OrderEvent) {}
