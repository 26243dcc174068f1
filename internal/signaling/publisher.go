package signaling

import (
	"context"
	"encoding/json"
	"log"

	"github.com/go-redis/redis/v8"
)

// Publisher mirrors room events onto a Redis channel per room so other
// services can observe room activity. Delivery is best-effort; the relay
// never depends on it.
type Publisher struct {
	redis *redis.Client
}

func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{redis: rdb}
}

func (p *Publisher) Publish(roomID string, msg *ServerMessage) {
	if p == nil || p.redis == nil {
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[signaling] publish marshal failed: %v", err)
		return
	}

	channel := "signaling:room:" + roomID
	if err := p.redis.Publish(context.Background(), channel, payload).Err(); err != nil {
		log.Printf("[signaling] publish to %s failed: %v", channel, err)
	}
}
