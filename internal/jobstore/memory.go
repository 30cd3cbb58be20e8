package jobstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
)

// MemoryStore keeps records in process memory. Used when DATABASE_URL is unset.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]Record{}, now: time.Now}
}

func (s *MemoryStore) Save(ctx context.Context, rec *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec == nil || rec.Job.ID == "" {
		return fmt.Errorf("jobstore: record without job id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if existing, ok := s.records[rec.Job.ID]; ok {
		rec.CreatedAt = existing.CreatedAt
	} else if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	stored := *rec
	stored.Job.Images = append([]string(nil), rec.Job.Images...)
	s.records[rec.Job.ID] = stored
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *MemoryStore) ListByCampaign(ctx context.Context, campaignID string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := lo.Filter(lo.Values(s.records), func(rec Record, _ int) bool {
		return rec.CampaignID == campaignID
	})
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
