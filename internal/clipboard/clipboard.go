// Package clipboard shares the what-was-copied state across processes
// editing the same course. Publishes carry an origin id so a process
// never reacts to its own copies.
package clipboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"courseline/internal/outline"
)

// Bus moves raw clipboard envelopes between processes. RedisBus is the
// real transport; MemoryBus backs tests and single-process setups.
type Bus interface {
	Publish(ctx context.Context, payload []byte) error
	Subscribe(fn func(payload []byte)) (unsubscribe func(), err error)
	Close() error
}

// Handler receives clipboard content copied by another process.
type Handler func(outline.ClipboardContent)

type envelope struct {
	Origin  string                   `json:"origin"`
	Content outline.ClipboardContent `json:"content"`
}

// Service is one process's view of the shared clipboard.
type Service struct {
	origin string
	bus    Bus

	mu          sync.Mutex
	handlers    []Handler
	unsubscribe func()
	disposed    bool
}

// NewService subscribes to the bus and starts delivering foreign
// clipboard updates to registered handlers.
func NewService(bus Bus) (*Service, error) {
	s := &Service{origin: uuid.NewString(), bus: bus}
	unsub, err := bus.Subscribe(s.receive)
	if err != nil {
		return nil, fmt.Errorf("subscribe clipboard bus: %w", err)
	}
	s.unsubscribe = unsub
	return s, nil
}

// Origin is this process's broadcast identity.
func (s *Service) Origin() string { return s.origin }

// OnUpdate registers a handler for clipboard content copied elsewhere.
func (s *Service) OnUpdate(h Handler) {
	s.mu.Lock()
	s.handlers = append(s.handlers, h)
	s.mu.Unlock()
}

// Publish broadcasts locally copied content to every other process.
func (s *Service) Publish(ctx context.Context, content outline.ClipboardContent) error {
	payload, err := json.Marshal(envelope{Origin: s.origin, Content: content})
	if err != nil {
		return fmt.Errorf("encode clipboard envelope: %w", err)
	}
	return s.bus.Publish(ctx, payload)
}

func (s *Service) receive(payload []byte) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return
	}
	if env.Origin == s.origin {
		return
	}
	s.mu.Lock()
	handlers := append([]Handler(nil), s.handlers...)
	s.mu.Unlock()
	for _, h := range handlers {
		h(env.Content)
	}
}

// Dispose unsubscribes and closes the bus. Safe to call once.
func (s *Service) Dispose() error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil
	}
	s.disposed = true
	unsub := s.unsubscribe
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}
	return s.bus.Close()
}

var (
	globalMu  sync.Mutex
	globalSvc *Service
)

// ErrNotInitialized is returned by Get before Init.
var ErrNotInitialized = errors.New("clipboard service not initialized")

// Init installs the process-wide clipboard service. Calling it while a
// service is installed is a programming error and fails loudly instead
// of silently replacing a live subscription.
func Init(bus Bus) (*Service, error) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalSvc != nil {
		return nil, errors.New("clipboard service already initialized")
	}
	svc, err := NewService(bus)
	if err != nil {
		return nil, err
	}
	globalSvc = svc
	return svc, nil
}

// Get returns the process-wide service installed by Init.
func Get() (*Service, error) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalSvc == nil {
		return nil, ErrNotInitialized
	}
	return globalSvc, nil
}

// Dispose tears down the process-wide service, if any.
func Dispose() error {
	globalMu.Lock()
	svc := globalSvc
	globalSvc = nil
	globalMu.Unlock()
	if svc == nil {
		return nil
	}
	return svc.Dispose()
}
