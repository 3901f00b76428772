package db

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go-vigia/incidents"
	"go-vigia/types"
)

// CreateIncident persists a new incident and indexes its location.
func (s *Store) CreateIncident(ctx context.Context, inc *types.Incident) (string, error) {
	id := uuid.NewString()
	_, err := s.client.Collection(incidentsCollection).Doc(id).Set(ctx, inc)
	if err != nil {
		return "", fmt.Errorf("creating incident: %w", err)
	}
	if inc.Location != nil {
		s.index.Upsert(id, inc.Location.Longitude, inc.Location.Latitude)
	}
	return id, nil
}

// GetIncident loads one incident by id.
func (s *Store) GetIncident(ctx context.Context, id string) (*types.Incident, error) {
	doc, err := s.client.Collection(incidentsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting incident %s: %w", id, err)
	}

	var inc types.Incident
	if err := doc.DataTo(&inc); err != nil {
		return nil, fmt.Errorf("decoding incident %s: %w", id, err)
	}
	inc.ID = doc.Ref.ID
	return &inc, nil
}

// UpdateIncident runs mutate against the current document inside a Firestore
// transaction. Optimistic: on contention the transaction retries up to five
// times before surfacing types.ErrConflict. A mutate error aborts with no
// state change.
func (s *Store) UpdateIncident(ctx context.Context, id string, mutate func(*types.Incident) error) (*types.Incident, error) {
	ref := s.client.Collection(incidentsCollection).Doc(id)

	var updated *types.Incident
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return types.ErrNotFound
			}
			return err
		}

		var inc types.Incident
		if err := doc.DataTo(&inc); err != nil {
			return fmt.Errorf("decoding incident %s: %w", id, err)
		}
		inc.ID = doc.Ref.ID

		if err := mutate(&inc); err != nil {
			return err
		}

		updated = &inc
		return tx.Set(ref, &inc)
	}, firestore.MaxAttempts(5))

	if err != nil {
		if status.Code(err) == codes.Aborted {
			s.log.Warn().Str("incident", id).Msg("transaction contention exhausted retries")
			return nil, types.ErrConflict
		}
		return nil, err
	}
	return updated, nil
}

// DeleteIncident removes the document and its index entry.
func (s *Store) DeleteIncident(ctx context.Context, id string) error {
	_, err := s.client.Collection(incidentsCollection).Doc(id).Delete(ctx)
	if err != nil {
		return fmt.Errorf("deleting incident %s: %w", id, err)
	}
	s.index.Remove(id)
	return nil
}

// ListIncidents returns incidents newest-event-first with optional filters.
func (s *Store) ListIncidents(ctx context.Context, opts incidents.ListOptions) ([]types.Incident, error) {
	q := s.client.Collection(incidentsCollection).Query
	if opts.Locality != "" {
		q = q.Where("locality", "==", opts.Locality)
	}
	if opts.CategoryGroup != "" {
		q = q.Where("categoryGroup", "==", opts.CategoryGroup)
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	q = q.OrderBy("eventAt", firestore.Desc).Limit(limit)

	return s.collectIncidents(q.Documents(ctx))
}

// NearbyCandidates resolves the ids inside the radius from the spatial index
// and fetches their documents.
func (s *Store) NearbyCandidates(ctx context.Context, lng, lat, radiusMeters float64) ([]types.Incident, error) {
	ids := s.index.Within(lng, lat, radiusMeters)
	if len(ids) == 0 {
		return nil, nil
	}

	refs := make([]*firestore.DocumentRef, len(ids))
	for i, id := range ids {
		refs[i] = s.client.Collection(incidentsCollection).Doc(id)
	}

	docs, err := s.client.GetAll(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("fetching nearby incidents: %w", err)
	}

	var out []types.Incident
	for _, doc := range docs {
		// The index can briefly lag a concurrent delete.
		if !doc.Exists() {
			continue
		}
		var inc types.Incident
		if err := doc.DataTo(&inc); err != nil {
			s.log.Warn().Err(err).Str("incident", doc.Ref.ID).Msg("skipping undecodable incident")
			continue
		}
		inc.ID = doc.Ref.ID
		out = append(out, inc)
	}
	return out, nil
}

// IncidentsInRange returns all incidents with eventAt in [start, end).
func (s *Store) IncidentsInRange(ctx context.Context, start, end time.Time) ([]types.Incident, error) {
	q := s.client.Collection(incidentsCollection).
		Where("eventAt", ">=", start).
		Where("eventAt", "<", end)
	return s.collectIncidents(q.Documents(ctx))
}

// LoadSpatialIndex hydrates the index from all located incidents. Called once
// at startup.
func (s *Store) LoadSpatialIndex(ctx context.Context) error {
	iter := s.client.Collection(incidentsCollection).Documents(ctx)
	defer iter.Stop()

	loaded := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return fmt.Errorf("error iterating incidents collection: %w", err)
		}

		var inc types.Incident
		if err := doc.DataTo(&inc); err != nil {
			s.log.Warn().Err(err).Str("incident", doc.Ref.ID).Msg("skipping undecodable incident during index load")
			continue
		}
		if inc.Location != nil {
			s.index.Upsert(doc.Ref.ID, inc.Location.Longitude, inc.Location.Latitude)
			loaded++
		}
	}

	s.log.Info().Int("points", loaded).Msg("spatial index loaded")
	return nil
}

func (s *Store) collectIncidents(iter *firestore.DocumentIterator) ([]types.Incident, error) {
	defer iter.Stop()

	var out []types.Incident
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating incidents collection: %w", err)
		}

		var inc types.Incident
		if err := doc.DataTo(&inc); err != nil {
			s.log.Warn().Err(err).Str("incident", doc.Ref.ID).Msg("skipping undecodable incident")
			continue
		}
		inc.ID = doc.Ref.ID
		out = append(out, inc)
	}
	return out, nil
}
