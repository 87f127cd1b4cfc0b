package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
)

type TrackedPatientStore struct {
	mu      sync.Mutex
	tracked map[string]domain.TrackedPatient
}

func NewTrackedPatientStore() *TrackedPatientStore {
	return &TrackedPatientStore{tracked: map[string]domain.TrackedPatient{}}
}

func (s *TrackedPatientStore) RecordFetch(ctx context.Context, patientID string, at time.Time) (domain.TrackedPatient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tp, ok := s.tracked[patientID]
	if !ok {
		tp = domain.TrackedPatient{PatientID: patientID, FirstTrackedAt: at}
	}
	tp.FetchCount++
	tp.LastTrackedAt = at
	s.tracked[patientID] = tp
	return tp, nil
}

func (s *TrackedPatientStore) Get(ctx context.Context, patientID string) (*domain.TrackedPatient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tp, ok := s.tracked[patientID]
	if !ok {
		return nil, nil
	}
	return &tp, nil
}
