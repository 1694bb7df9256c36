package clipboard

import (
	"context"
	"sync"
	"testing"

	"courseline/internal/outline"
)

func content(key string) outline.ClipboardContent {
	return outline.ClipboardContent{SourceUsageKey: key, Category: outline.CategoryVertical, DisplayName: "Unit"}
}

type collector struct {
	mu   sync.Mutex
	seen []outline.ClipboardContent
}

func (c *collector) handler(content outline.ClipboardContent) {
	c.mu.Lock()
	c.seen = append(c.seen, content)
	c.mu.Unlock()
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

func TestPublishReachesOtherServicesNotSelf(t *testing.T) {
	bus := NewMemoryBus()
	a, err := NewService(bus)
	if err != nil {
		t.Fatalf("service a: %v", err)
	}
	defer a.Dispose()
	b, err := NewService(bus)
	if err != nil {
		t.Fatalf("service b: %v", err)
	}
	defer b.Dispose()

	var seenA, seenB collector
	a.OnUpdate(seenA.handler)
	b.OnUpdate(seenB.handler)

	if err := a.Publish(context.Background(), content("u1")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if seenA.count() != 0 {
		t.Fatalf("publisher received its own broadcast")
	}
	if seenB.count() != 1 || seenB.seen[0].SourceUsageKey != "u1" {
		t.Fatalf("subscriber: %+v", seenB.seen)
	}
}

func TestDisposeStopsDelivery(t *testing.T) {
	bus := NewMemoryBus()
	a, err := NewService(bus)
	if err != nil {
		t.Fatalf("service a: %v", err)
	}
	b, err := NewService(bus)
	if err != nil {
		t.Fatalf("service b: %v", err)
	}

	var seen collector
	b.OnUpdate(seen.handler)
	if err := b.Dispose(); err != nil {
		t.Fatalf("dispose: %v", err)
	}
	if err := a.Publish(context.Background(), content("u1")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if seen.count() != 0 {
		t.Fatalf("disposed service still receives broadcasts")
	}
	if err := b.Dispose(); err != nil {
		t.Fatalf("second dispose: %v", err)
	}
}

func TestMalformedPayloadIgnored(t *testing.T) {
	bus := NewMemoryBus()
	svc, err := NewService(bus)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	defer svc.Dispose()
	var seen collector
	svc.OnUpdate(seen.handler)

	if err := bus.Publish(context.Background(), []byte("not json")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if seen.count() != 0 {
		t.Fatalf("malformed payload delivered")
	}
}

func TestGlobalLifecycle(t *testing.T) {
	if _, err := Get(); err == nil {
		t.Fatalf("Get succeeded before Init")
	}
	svc, err := Init(NewMemoryBus())
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	got, err := Get()
	if err != nil || got != svc {
		t.Fatalf("get: %v %v", got, err)
	}
	if _, err := Init(NewMemoryBus()); err == nil {
		t.Fatalf("double init accepted")
	}
	if err := Dispose(); err != nil {
		t.Fatalf("dispose: %v", err)
	}
	if _, err := Get(); err == nil {
		t.Fatalf("Get succeeded after Dispose")
	}
	// The cycle can start over.
	if _, err := Init(NewMemoryBus()); err != nil {
		t.Fatalf("re-init: %v", err)
	}
	if err := Dispose(); err != nil {
		t.Fatalf("final dispose: %v", err)
	}
}
