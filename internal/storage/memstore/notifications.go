package memstore

import (
	"context"
	"sync"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
)

// NotificationStore implements notify.Store over a mutex-guarded map.
type NotificationStore struct {
	mu       sync.Mutex
	byID     map[string]domain.InAppNotification
	byDedupe map[string]string
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{byID: map[string]domain.InAppNotification{}, byDedupe: map[string]string{}}
}

func (s *NotificationStore) FindByDedupeKey(ctx context.Context, dedupeKey string) (*domain.InAppNotification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byDedupe[dedupeKey]
	if !ok {
		return nil, nil
	}
	n := s.byID[id]
	return &n, nil
}

func (s *NotificationStore) Insert(ctx context.Context, n domain.InAppNotification) (domain.InAppNotification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[n.ID] = n
	s.byDedupe[n.DedupeKey] = n.ID
	return n, nil
}

func (s *NotificationStore) Update(ctx context.Context, n domain.InAppNotification) (domain.InAppNotification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[n.ID] = n
	return n, nil
}

func (s *NotificationStore) Get(ctx context.Context, id string) (*domain.InAppNotification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return &n, nil
}
