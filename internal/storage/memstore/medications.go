package memstore

import (
	"context"
	"sync"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
)

type MedicationOrderStore struct {
	mu     sync.Mutex
	orders map[string]domain.MedicationOrder
}

func NewMedicationOrderStore() *MedicationOrderStore {
	return &MedicationOrderStore{orders: map[string]domain.MedicationOrder{}}
}

func (s *MedicationOrderStore) Get(ctx context.Context, id string) (*domain.MedicationOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (s *MedicationOrderStore) ListActiveForPatient(ctx context.Context, patientID string) ([]domain.MedicationOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.MedicationOrder
	for _, m := range s.orders {
		if m.PatientID == patientID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *MedicationOrderStore) Insert(ctx context.Context, m domain.MedicationOrder) (domain.MedicationOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[m.ID] = m
	return m, nil
}
