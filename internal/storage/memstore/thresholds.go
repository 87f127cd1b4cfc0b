package memstore

import (
	"context"
	"strings"
	"sync"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
	"github.com/google/uuid"
)

// ThresholdStore implements threshold.Upserter plus the read path
// threshold.Evaluate needs.
type ThresholdStore struct {
	mu         sync.Mutex
	thresholds map[string]domain.ReferenceThreshold
}

func NewThresholdStore() *ThresholdStore {
	return &ThresholdStore{thresholds: map[string]domain.ReferenceThreshold{}}
}

func (s *ThresholdStore) UpsertBatch(ctx context.Context, batch []domain.ReferenceThreshold) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range batch {
		key := naturalKey(t)
		if existingID, ok := s.naturalKeyToID(key); ok {
			t.ID = existingID
		} else if t.ID == "" {
			t.ID = uuid.NewString()
		}
		s.thresholds[t.ID] = t
	}
	return nil
}

func (s *ThresholdStore) naturalKeyToID(key string) (string, bool) {
	for id, t := range s.thresholds {
		if naturalKey(t) == key {
			return id, true
		}
	}
	return "", false
}

func naturalKey(t domain.ReferenceThreshold) string {
	return strings.Join([]string{t.MonitoringType, t.Unit, t.Sex, t.AgeBand, t.SourceSystemScope, t.Version}, "|")
}

func (s *ThresholdStore) ListEnabledFor(ctx context.Context, monitoringType string) ([]domain.ReferenceThreshold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ReferenceThreshold
	for _, t := range s.thresholds {
		if t.Enabled && strings.EqualFold(t.MonitoringType, monitoringType) {
			out = append(out, t)
		}
	}
	return out, nil
}
