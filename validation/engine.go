package validation

import (
	"context"

	"github.com/rs/zerolog"

	"go-vigia/types"
)

const (
	// Net score an incident needs before the community considers it real.
	verifiedThreshold = 3
	// Net score at which an incident is flagged as a false report.
	flaggedThreshold = -5
)

// Store applies a read-modify-write cycle to one incident document. The
// mutate callback runs against the freshly loaded incident; returning an
// error aborts the update with no state change. Contention surfaces as
// types.ErrConflict after the store's bounded retries.
type Store interface {
	UpdateIncident(ctx context.Context, id string, mutate func(*types.Incident) error) (*types.Incident, error)
}

// Engine maintains the vote sets and derived trust status of incidents.
type Engine struct {
	store Store
	log   zerolog.Logger
}

func NewEngine(store Store, logger zerolog.Logger) *Engine {
	return &Engine{store: store, log: logger}
}

// VoteTrue records userID's assertion that the incident is real. A user
// switching from a false vote loses it and gains a true vote in the same
// update.
func (e *Engine) VoteTrue(ctx context.Context, incidentID, userID string) (types.VoteResult, error) {
	return e.apply(ctx, incidentID, func(inc *types.Incident) error {
		return castVote(inc, userID, true)
	})
}

// VoteFalse is symmetric to VoteTrue with the direction reversed.
func (e *Engine) VoteFalse(ctx context.Context, incidentID, userID string) (types.VoteResult, error) {
	return e.apply(ctx, incidentID, func(inc *types.Incident) error {
		return castVote(inc, userID, false)
	})
}

// RemoveVote withdraws userID's vote, whichever direction it was in.
func (e *Engine) RemoveVote(ctx context.Context, incidentID, userID string) (types.VoteResult, error) {
	return e.apply(ctx, incidentID, func(inc *types.Incident) error {
		inTrue := contains(inc.VotedTrue, userID)
		inFalse := contains(inc.VotedFalse, userID)
		if !inTrue && !inFalse {
			return types.ErrNoVote
		}
		if inTrue {
			inc.VotedTrue = remove(inc.VotedTrue, userID)
		}
		if inFalse {
			inc.VotedFalse = remove(inc.VotedFalse, userID)
		}
		Recompute(inc)
		return nil
	})
}

func (e *Engine) apply(ctx context.Context, incidentID string, mutate func(*types.Incident) error) (types.VoteResult, error) {
	if incidentID == "" {
		return types.VoteResult{}, types.NewValidationError("incidentId", "must not be empty")
	}

	inc, err := e.store.UpdateIncident(ctx, incidentID, mutate)
	if err != nil {
		return types.VoteResult{}, err
	}

	e.log.Debug().
		Str("incident", incidentID).
		Int("score", inc.ValidationScore).
		Str("status", string(inc.Status)).
		Msg("vote applied")

	return types.VoteResult{
		ValidationScore: inc.ValidationScore,
		VotedTrueCount:  len(inc.VotedTrue),
		VotedFalseCount: len(inc.VotedFalse),
		Verified:        inc.Verified,
		FlaggedFalse:    inc.FlaggedFalse,
		Status:          inc.Status,
	}, nil
}

func castVote(inc *types.Incident, userID string, voteTrue bool) error {
	if userID == "" {
		return types.NewValidationError("userId", "must not be empty")
	}
	if userID == inc.ReporterUID {
		return types.ErrSelfVote
	}

	same, opposite := &inc.VotedTrue, &inc.VotedFalse
	if !voteTrue {
		same, opposite = opposite, same
	}

	if contains(*same, userID) {
		return types.ErrDuplicateVote
	}
	if contains(*opposite, userID) {
		*opposite = remove(*opposite, userID)
	}
	*same = append(*same, userID)

	Recompute(inc)
	return nil
}

// Recompute derives score, trust flags, status and the compatibility counters
// from the authoritative vote sets. A switched vote moves the score by 2 in a
// single update, so both flags are always evaluated from the fresh score.
func Recompute(inc *types.Incident) {
	score := len(inc.VotedTrue) - len(inc.VotedFalse)

	inc.ValidationScore = score
	inc.Verified = score >= verifiedThreshold
	inc.FlaggedFalse = score <= flaggedThreshold

	switch {
	case inc.FlaggedFalse:
		inc.Status = types.StatusFalseReport
	case inc.Verified:
		inc.Status = types.StatusVerified
	default:
		inc.Status = types.StatusPending
	}

	inc.ConfirmationsCount = len(inc.VotedTrue)
	inc.ConfirmedBy = append([]string(nil), inc.VotedTrue...)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func remove(slice []string, item string) []string {
	out := slice[:0]
	for _, s := range slice {
		if s != item {
			out = append(out, s)
		}
	}
	return out
}
