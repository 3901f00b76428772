// Package memory is an in-memory incident store with the same contracts as
// the Firestore-backed one. It serializes vote mutations with a per-incident
// lock and backs radius queries with the shared spatial index. Used by tests
// and as a local-dev fallback when no Firestore credentials are configured.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"go-vigia/incidents"
	"go-vigia/spatial"
	"go-vigia/types"
)

type Store struct {
	mu        sync.RWMutex
	incidents map[string]*types.Incident
	buckets   map[string]types.AnalyticsBucket
	reports   map[string]types.MonthlyReport

	// one mutex per incident id; serializes read-modify-write cycles
	locks sync.Map

	index *spatial.Index
	log   zerolog.Logger
}

func NewStore(logger zerolog.Logger) *Store {
	return &Store{
		incidents: make(map[string]*types.Incident),
		buckets:   make(map[string]types.AnalyticsBucket),
		reports:   make(map[string]types.MonthlyReport),
		index:     spatial.NewIndex(),
		log:       logger,
	}
}

func (s *Store) CreateIncident(_ context.Context, inc *types.Incident) (string, error) {
	id := uuid.NewString()

	s.mu.Lock()
	s.incidents[id] = inc.Clone()
	s.incidents[id].ID = id
	s.mu.Unlock()

	if inc.Location != nil {
		s.index.Upsert(id, inc.Location.Longitude, inc.Location.Latitude)
	}
	return id, nil
}

func (s *Store) GetIncident(_ context.Context, id string) (*types.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inc, ok := s.incidents[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return inc.Clone(), nil
}

func (s *Store) UpdateIncident(ctx context.Context, id string, mutate func(*types.Incident) error) (*types.Incident, error) {
	lock, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	lock.(*sync.Mutex).Lock()
	defer lock.(*sync.Mutex).Unlock()

	cur, err := s.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := mutate(cur); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.incidents[id] = cur.Clone()
	s.mu.Unlock()

	return cur, nil
}

func (s *Store) DeleteIncident(_ context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.incidents[id]
	delete(s.incidents, id)
	s.mu.Unlock()

	if !ok {
		return types.ErrNotFound
	}
	s.index.Remove(id)
	return nil
}

func (s *Store) ListIncidents(_ context.Context, opts incidents.ListOptions) ([]types.Incident, error) {
	s.mu.RLock()
	var out []types.Incident
	for _, inc := range s.incidents {
		if opts.Locality != "" && inc.Locality != opts.Locality {
			continue
		}
		if opts.CategoryGroup != "" && inc.CategoryGroup != opts.CategoryGroup {
			continue
		}
		out = append(out, *inc.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].EventAt.Equal(out[j].EventAt) {
			return out[i].EventAt.After(out[j].EventAt)
		}
		return out[i].ID < out[j].ID
	})

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) NearbyCandidates(_ context.Context, lng, lat, radiusMeters float64) ([]types.Incident, error) {
	ids := s.index.Within(lng, lat, radiusMeters)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.Incident
	for _, id := range ids {
		if inc, ok := s.incidents[id]; ok {
			out = append(out, *inc.Clone())
		}
	}
	return out, nil
}

func (s *Store) IncidentsInRange(_ context.Context, start, end time.Time) ([]types.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.Incident
	for _, inc := range s.incidents {
		if !inc.EventAt.Before(start) && inc.EventAt.Before(end) {
			out = append(out, *inc.Clone())
		}
	}
	return out, nil
}

func bucketKey(month, locality, categoryGroup string) string {
	return month + "|" + locality + "|" + categoryGroup
}

func (s *Store) UpsertBucket(_ context.Context, b types.AnalyticsBucket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets[bucketKey(b.Month, b.Locality, b.CategoryGroup)] = cloneBucket(b)
	return nil
}

func (s *Store) BucketsForMonth(_ context.Context, month string) ([]types.AnalyticsBucket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []types.AnalyticsBucket
	for _, b := range s.buckets {
		if b.Month == month {
			rows = append(rows, cloneBucket(b))
		}
	}
	return rows, nil
}

func (s *Store) UpsertMonthlyReport(_ context.Context, r types.MonthlyReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[r.Month] = r
	return nil
}

func (s *Store) GetMonthlyReport(_ context.Context, month string) (*types.MonthlyReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[month]
	if !ok {
		return nil, types.ErrNotFound
	}
	return &r, nil
}

func cloneBucket(b types.AnalyticsBucket) types.AnalyticsBucket {
	c := b
	c.ByHourRange = make(map[string]int, len(b.ByHourRange))
	for k, v := range b.ByHourRange {
		c.ByHourRange[k] = v
	}
	return c
}
