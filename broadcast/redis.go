package broadcast

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisBus fans logout events out across operator terminals through a Redis
// Pub/Sub channel. Messages published by this instance are recognised by
// origin id and dropped on receipt.
type RedisBus struct {
	client  redis.UniversalClient
	channel string
	origin  string
	pubsub  *redis.PubSub

	mu       sync.RWMutex
	handlers map[int]Handler
	nextID   int

	cancel context.CancelFunc
	done   chan struct{}
}

// NewRedisBus subscribes to the named channel and starts the receive loop.
func NewRedisBus(ctx context.Context, client redis.UniversalClient, channel string) (*RedisBus, error) {
	pubsub := client.Subscribe(ctx, channel)

	// Force the subscription to be established before returning, so that a
	// logout published immediately after construction is not lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, errors.Wrap(err, "[NewRedisBus] subscribe failed")
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	b := &RedisBus{
		client:   client,
		channel:  channel,
		origin:   uuid.New().String(),
		pubsub:   pubsub,
		handlers: make(map[int]Handler),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go b.receiveLoop(loopCtx)
	return b, nil
}

func (b *RedisBus) Origin() string { return b.origin }

func (b *RedisBus) Publish(ctx context.Context, kind Kind) error {
	payload, err := json.Marshal(Event{Origin: b.origin, Kind: kind})
	if err != nil {
		return errors.Wrap(err, "[RedisBus.Publish] marshal event")
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return errors.Wrap(err, "[RedisBus.Publish] publish")
	}
	return nil
}

func (b *RedisBus) Subscribe(h Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}

func (b *RedisBus) Close() error {
	b.cancel()
	err := b.pubsub.Close()
	<-b.done
	return err
}

func (b *RedisBus) receiveLoop(ctx context.Context) {
	defer close(b.done)
	ch := b.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var e Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				log.Warn().Err(err).Str("channel", b.channel).Msg("dropping malformed broadcast payload")
				continue
			}
			if e.Origin == b.origin {
				continue
			}
			b.deliver(e)
		}
	}
}

func (b *RedisBus) deliver(e Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}
