package clipboard

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// MemoryBus is an in-process bus. Delivery is synchronous and includes
// the publisher itself; the origin check in Service filters self-sends.
type MemoryBus struct {
	mu   sync.Mutex
	subs map[int]func([]byte)
	next int
}

// NewMemoryBus returns an empty in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: map[int]func([]byte){}}
}

func (b *MemoryBus) Publish(ctx context.Context, payload []byte) error {
	b.mu.Lock()
	subs := make([]func([]byte), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.Unlock()
	for _, fn := range subs {
		fn(payload)
	}
	return nil
}

func (b *MemoryBus) Subscribe(fn func([]byte)) (func(), error) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}, nil
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	b.subs = map[int]func([]byte){}
	b.mu.Unlock()
	return nil
}

// RedisBus broadcasts over one redis pub/sub channel.
type RedisBus struct {
	client  *redis.Client
	channel string

	mu   sync.Mutex
	subs []*redis.PubSub
}

// NewRedisBus connects to redis at addr and uses channel for all
// traffic. The connection is verified lazily on first use.
func NewRedisBus(addr, channel string) *RedisBus {
	return &RedisBus{
		client:  redis.NewClient(&redis.Options{Addr: addr}),
		channel: channel,
	}
}

func (b *RedisBus) Publish(ctx context.Context, payload []byte) error {
	return b.client.Publish(ctx, b.channel, payload).Err()
}

func (b *RedisBus) Subscribe(fn func([]byte)) (func(), error) {
	ps := b.client.Subscribe(context.Background(), b.channel)
	if _, err := ps.Receive(context.Background()); err != nil {
		_ = ps.Close()
		return nil, err
	}
	b.mu.Lock()
	b.subs = append(b.subs, ps)
	b.mu.Unlock()
	go func() {
		for msg := range ps.Channel() {
			fn([]byte(msg.Payload))
		}
	}()
	return func() { _ = ps.Close() }, nil
}

func (b *RedisBus) Close() error {
	b.mu.Lock()
	for _, ps := range b.subs {
		_ = ps.Close()
	}
	b.subs = nil
	b.mu.Unlock()
	return b.client.Close()
}
