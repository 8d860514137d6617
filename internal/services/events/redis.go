package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/evn/pos_backend/config"
	"github.com/evn/pos_backend/internal/models"
)

// Channel is the Redis pub/sub channel shared by all instances.
const Channel = "pos:shift-events"

// RedisPublisher publishes shift events to Redis so every instance's hub
// receives them through Relay.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, ev models.ShiftEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.client.Publish(ctx, Channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Relay forwards events from the Redis channel into hub until ctx ends.
func Relay(ctx context.Context, client *redis.Client, hub *Hub) error {
	sub := client.Subscribe(ctx, Channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}

	log := config.GetLogger()
	log.WithField("channel", Channel).Info("shift event relay started")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var head struct {
				BranchID string `json:"branchId"`
			}
			if err := json.Unmarshal([]byte(msg.Payload), &head); err != nil || head.BranchID == "" {
				log.WithFields(logrus.Fields{"module": "events", "payload": msg.Payload}).Warn("dropping malformed event")
				continue
			}
			if err := hub.Deliver(ctx, head.BranchID, []byte(msg.Payload)); err != nil {
				return nil
			}
		}
	}
}
