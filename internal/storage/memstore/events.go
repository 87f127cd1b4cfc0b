package memstore

import (
	"context"
	"sync"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
)

// EventStore implements notify.EventStore directly (Get/Update).
type EventStore struct {
	mu     sync.Mutex
	events map[string]domain.MonitoringEvent
}

func NewEventStore() *EventStore {
	return &EventStore{events: map[string]domain.MonitoringEvent{}}
}

func (s *EventStore) Get(ctx context.Context, id string) (*domain.MonitoringEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *EventStore) Insert(ctx context.Context, e domain.MonitoringEvent) (domain.MonitoringEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.events {
		if existing.SourceSystem == e.SourceSystem && existing.SourceID == e.SourceID && e.SourceID != "" {
			return existing, nil
		}
	}
	s.events[e.ID] = e
	return e, nil
}

func (s *EventStore) Update(ctx context.Context, e domain.MonitoringEvent) (domain.MonitoringEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = e
	return e, nil
}

func (s *EventStore) ListForPatient(ctx context.Context, patientID string) ([]domain.MonitoringEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.MonitoringEvent
	for _, e := range s.events {
		if e.PatientID == patientID {
			out = append(out, e)
		}
	}
	return out, nil
}
