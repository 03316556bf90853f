package services

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RankingStreamHub multiplexes ranking updates from one Redis subscription to many
// SSE clients without spawning a Redis subscription per HTTP request.
type RankingStreamHub struct {
	redis       *redis.Client
	channelName string
	cancel      context.CancelFunc

	mu          sync.RWMutex
	subscribers map[chan []byte]struct{}
}

func NewRankingStreamHub(rdb *redis.Client, channel string) *RankingStreamHub {
	ctx, cancel := context.WithCancel(context.Background())
	hub := &RankingStreamHub{
		redis:       rdb,
		channelName: channel,
		cancel:      cancel,
		subscribers: make(map[chan []byte]struct{}),
	}

	go hub.run(ctx)

	return hub
}

func (h *RankingStreamHub) run(ctx context.Context) {
	for ctx.Err() == nil {
		pubsub := h.redis.Subscribe(ctx, h.channelName)
		ch := pubsub.Channel(redis.WithChannelSize(256))

	loop:
		for {
			select {
			case <-ctx.Done():
				break loop
			case msg, ok := <-ch:
				if !ok {
					break loop
				}
				h.broadcast([]byte(msg.Payload))
			}
		}

		_ = pubsub.Close()

		// Avoid tight loop if Redis connection drops
		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
		}
	}
}

func (h *RankingStreamHub) broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subscribers {
		select {
		case sub <- payload:
		default:
			// Slow subscriber: drop its oldest message to make room
			select {
			case <-sub:
			default:
			}
			select {
			case sub <- payload:
			default:
			}
		}
	}
}

// Subscribe registers a new listener and returns a channel plus cleanup function.
func (h *RankingStreamHub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 16)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}

	return ch, unsubscribe
}

// Close stops the Redis subscription loop.
func (h *RankingStreamHub) Close() {
	h.cancel()
}
