package store

import (
	"context"
	"sync"

	"github.com/aiimpactmedia/casting/internal/model"
)

// MemoryStore is an in-process submission store used when redis is not
// reachable and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records []model.SubmissionRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(ctx context.Context, rec model.SubmissionRecord) error {
	rec.Files = append([]string(nil), rec.Files...)

	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]model.SubmissionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.SubmissionRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, id string, status model.SubmissionStatus) (model.SubmissionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		if s.records[i].ID == id {
			s.records[i].Status = status
			return s.records[i], nil
		}
	}
	return model.SubmissionRecord{}, model.ErrRecordNotFound
}
