package mocks

import (
	"context"
	"sync"

	"blood-donation/internal/domain"
)

// NotificationSink records emitted intents.
type NotificationSink struct {
	mu      sync.Mutex
	Intents []domain.NotificationIntent
}

func (s *NotificationSink) Emit(_ context.Context, intent domain.NotificationIntent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Intents = append(s.Intents, intent)
}

func (s *NotificationSink) Emitted() []domain.NotificationIntent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.NotificationIntent, len(s.Intents))
	copy(out, s.Intents)
	return out
}
