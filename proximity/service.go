package proximity

import (
	"context"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"go-vigia/types"
)

// MaxResults bounds the response size of a nearby query.
const MaxResults = 100

// Store supplies incidents already inside the radius, spatial-index backed.
// Incidents without a location never appear here.
type Store interface {
	NearbyCandidates(ctx context.Context, lng, lat, radiusMeters float64) ([]types.Incident, error)
}

// Query is a nearby request. Flagged false reports are hidden unless the
// caller opts in.
type Query struct {
	Longitude      float64
	Latitude       float64
	RadiusMeters   float64
	IncludeFlagged bool
}

// Service answers "what happened around me" queries. Results are ordered by
// eventAt descending, not by distance: inside the radius, recency matters
// more to a citizen safety feed than exact proximity.
type Service struct {
	store Store
	log   zerolog.Logger
}

func NewService(store Store, logger zerolog.Logger) *Service {
	return &Service{store: store, log: logger}
}

func (s *Service) Nearby(ctx context.Context, q Query) ([]types.Incident, error) {
	if !isFinite(q.Longitude) || !isFinite(q.Latitude) {
		return nil, types.ErrInvalidCoordinate
	}
	if !isFinite(q.RadiusMeters) || q.RadiusMeters <= 0 {
		return nil, types.NewValidationError("radiusMeters", "must be a positive number")
	}

	candidates, err := s.store.NearbyCandidates(ctx, q.Longitude, q.Latitude, q.RadiusMeters)
	if err != nil {
		return nil, err
	}

	results := candidates[:0]
	for _, inc := range candidates {
		if inc.Location == nil {
			continue
		}
		if inc.FlaggedFalse && !q.IncludeFlagged {
			continue
		}
		results = append(results, inc)
	}

	sort.Slice(results, func(i, j int) bool {
		if !results[i].EventAt.Equal(results[j].EventAt) {
			return results[i].EventAt.After(results[j].EventAt)
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > MaxResults {
		results = results[:MaxResults]
	}

	s.log.Debug().
		Float64("lng", q.Longitude).
		Float64("lat", q.Latitude).
		Float64("radius_m", q.RadiusMeters).
		Int("results", len(results)).
		Msg("nearby query")

	return results, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
