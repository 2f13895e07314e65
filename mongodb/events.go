package mongodb

import (
	"context"
	"sync"
	"time"

	"github.com/asaidimu/go-events"
	"github.com/google/uuid"
)

// EventType identifies a point in an operation's lifecycle.
type EventType string

const (
	EventOperationStarted   EventType = "operation.started"
	EventOperationSucceeded EventType = "operation.succeeded"
	EventOperationFailed    EventType = "operation.failed"
)

// OperationEvent describes one translator operation for observers. Events are
// purely observational: subscriber behavior never affects the operation.
type OperationEvent struct {
	Type       EventType     `json:"type"`
	Operation  string        `json:"operation"`
	Collection string        `json:"collection"`
	Error      *string       `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
	Timestamp  time.Time     `json:"timestamp"`
}

// EventCallback is invoked for each matching event.
type EventCallback func(ctx context.Context, event OperationEvent) error

// RegisterSubscriptionOptions configures an event subscription.
type RegisterSubscriptionOptions struct {
	Event       EventType
	Callback    EventCallback
	Label       *string
	Description *string
}

// SubscriptionInfo describes a registered subscription.
type SubscriptionInfo struct {
	ID          string
	Event       EventType
	Label       *string
	Description *string
	unsubscribe func()
}

type subscriptions struct {
	bus  *events.TypedEventBus[OperationEvent]
	mu   sync.RWMutex
	subs map[string]*SubscriptionInfo
}

func newSubscriptions() (*subscriptions, error) {
	bus, err := events.NewTypedEventBus[OperationEvent](events.DefaultConfig())
	if err != nil {
		return nil, err
	}
	return &subscriptions{bus: bus, subs: map[string]*SubscriptionInfo{}}, nil
}

func (s *subscriptions) emit(event OperationEvent) {
	s.bus.Emit(string(event.Type), event)
}

func (s *subscriptions) register(options RegisterSubscriptionOptions) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	unsubscribe := s.bus.Subscribe(string(options.Event), options.Callback)
	id := uuid.New().String()
	s.subs[id] = &SubscriptionInfo{
		ID:          id,
		Event:       options.Event,
		Label:       options.Label,
		Description: options.Description,
		unsubscribe: unsubscribe,
	}
	return id
}

func (s *subscriptions) unregister(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if info, ok := s.subs[id]; ok {
		info.unsubscribe()
		delete(s.subs, id)
	}
}

func (s *subscriptions) list() []SubscriptionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SubscriptionInfo, 0, len(s.subs))
	for _, info := range s.subs {
		out = append(out, *info)
	}
	return out
}
