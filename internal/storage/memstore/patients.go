package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
)

type PatientStore struct {
	mu       sync.Mutex
	patients map[string]domain.Patient
}

func NewPatientStore() *PatientStore {
	return &PatientStore{patients: map[string]domain.Patient{}}
}

func (s *PatientStore) Get(ctx context.Context, id string) (*domain.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patients[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *PatientStore) Upsert(ctx context.Context, p domain.Patient) (domain.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patients[p.ID] = p
	return p, nil
}

// List returns every patient, ordered by id, for export-bundle generation.
func (s *PatientStore) List(ctx context.Context) ([]domain.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Patient, 0, len(s.patients))
	for _, p := range s.patients {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
