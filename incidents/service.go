package incidents

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"go-vigia/types"
	"go-vigia/validation"
)

// EditWindow is how long after the event an incident stays soft-editable.
// Stored on the document; nothing enforces it server side.
const EditWindow = 15 * time.Minute

type ListOptions struct {
	Locality      string
	CategoryGroup string
	Limit         int
}

type Store interface {
	CreateIncident(ctx context.Context, inc *types.Incident) (string, error)
	GetIncident(ctx context.Context, id string) (*types.Incident, error)
	ListIncidents(ctx context.Context, opts ListOptions) ([]types.Incident, error)
	DeleteIncident(ctx context.Context, id string) error
}

// Locator resolves a point to (locality, address). Best effort only.
type Locator interface {
	LocalityFor(ctx context.Context, pt types.GeoPoint) (locality, address string, err error)
}

// Service owns incident lifecycle outside of voting: creation defaults and
// validation, reads, and reporter-only deletes.
type Service struct {
	store   Store
	locator Locator
	log     zerolog.Logger
}

// NewService builds the service. locator may be nil; locality backfill is
// then skipped.
func NewService(store Store, locator Locator, logger zerolog.Logger) *Service {
	return &Service{store: store, locator: locator, log: logger}
}

// ReportInput is a new incident as submitted by an authenticated citizen.
type ReportInput struct {
	CategoryGroup string          `json:"categoryGroup"`
	Type          string          `json:"type"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	IsAnonymous   bool            `json:"isAnonymous"`
	Locality      string          `json:"locality"`
	Location      *types.GeoPoint `json:"location"`
	EventAt       time.Time       `json:"eventAt"`
	Photos        []string        `json:"photos"`
}

// Report validates and persists a new incident. It starts pending with empty
// vote sets; eventAt defaults to submission time.
func (s *Service) Report(ctx context.Context, reporterUID string, in ReportInput) (*types.Incident, error) {
	if reporterUID == "" {
		return nil, types.NewValidationError("reporterUid", "must not be empty")
	}
	if strings.TrimSpace(in.CategoryGroup) == "" {
		return nil, types.NewValidationError("categoryGroup", "is required")
	}
	if strings.TrimSpace(in.Type) == "" {
		return nil, types.NewValidationError("type", "is required")
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, types.NewValidationError("title", "is required")
	}
	if in.Location != nil {
		if !isFinite(in.Location.Longitude) || !isFinite(in.Location.Latitude) {
			return nil, types.ErrInvalidCoordinate
		}
	}

	eventAt := in.EventAt
	if eventAt.IsZero() {
		eventAt = time.Now().UTC()
	}

	inc := &types.Incident{
		CategoryGroup: in.CategoryGroup,
		Type:          in.Type,
		Title:         in.Title,
		Description:   in.Description,
		ReporterUID:   reporterUID,
		IsAnonymous:   in.IsAnonymous,
		Locality:      in.Locality,
		Location:      in.Location,
		EventAt:       eventAt,
		EditableUntil: eventAt.Add(EditWindow),
		CreatedAt:     time.Now().UTC(),
		Photos:        in.Photos,
		VotedTrue:     []string{},
		VotedFalse:    []string{},
	}
	if inc.Photos == nil {
		inc.Photos = []string{}
	}
	validation.Recompute(inc)

	if inc.Locality == "" && inc.Location != nil && s.locator != nil {
		locality, address, err := s.locator.LocalityFor(ctx, *inc.Location)
		if err != nil {
			s.log.Warn().Err(err).Msg("locality lookup failed, storing report without it")
		} else {
			inc.Locality = locality
			inc.Address = address
		}
	}

	id, err := s.store.CreateIncident(ctx, inc)
	if err != nil {
		return nil, err
	}
	inc.ID = id

	s.log.Info().
		Str("incident", id).
		Str("categoryGroup", inc.CategoryGroup).
		Str("locality", inc.Locality).
		Msg("incident reported")

	return inc, nil
}

func (s *Service) Get(ctx context.Context, id string) (*types.Incident, error) {
	return s.store.GetIncident(ctx, id)
}

func (s *Service) List(ctx context.Context, opts ListOptions) ([]types.Incident, error) {
	return s.store.ListIncidents(ctx, opts)
}

// Delete removes an incident; only its reporter may do so.
func (s *Service) Delete(ctx context.Context, id, requesterUID string) error {
	inc, err := s.store.GetIncident(ctx, id)
	if err != nil {
		return err
	}
	if inc.ReporterUID != requesterUID {
		return types.ErrNotOwner
	}
	return s.store.DeleteIncident(ctx, id)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
