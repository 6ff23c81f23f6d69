package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	"github.com/scythe504/hangparty-backend/internal"
)

// RedisFeed fans change events out across server instances through Redis
// pub/sub, one channel per room. Single-instance deployments can use the
// in-process Broker instead; the two are interchangeable behind Feed.
type RedisFeed struct {
	client *redis.Client
}

func NewRedisFeed(ctx context.Context, addr, password string, db int) (*RedisFeed, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisFeed{client: client}, nil
}

func (f *RedisFeed) Close() error {
	return f.client.Close()
}

func channelFor(roomId string) string {
	return fmt.Sprintf("room:%s", roomId)
}

func (f *RedisFeed) Publish(ctx context.Context, event internal.ChangeEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("[RedisFeed.Publish] Failed to marshal event: %v", err)
		return
	}

	channel := channelFor(EventRoomId(event))
	if err := f.client.Publish(ctx, channel, payload).Err(); err != nil {
		log.Printf("[RedisFeed.Publish] Failed to publish to %s: %v", channel, err)
	}
}

func (f *RedisFeed) Subscribe(ctx context.Context, roomId string) (<-chan internal.ChangeEvent, func()) {
	var pubsub *redis.PubSub
	if roomId == "" {
		pubsub = f.client.PSubscribe(ctx, channelFor("*"))
	} else {
		pubsub = f.client.Subscribe(ctx, channelFor(roomId))
	}

	events := make(chan internal.ChangeEvent, 64)

	go func() {
		defer close(events)
		for msg := range pubsub.Channel() {
			var event internal.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("[RedisFeed.Subscribe] Bad payload on %s: %v", msg.Channel, err)
				continue
			}
			select {
			case events <- event:
			default:
				// Slow subscriber, drop. Clients resync on reconnect.
			}
		}
	}()

	cancel := func() {
		_ = pubsub.Close()
	}

	return events, cancel
}
