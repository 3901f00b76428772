package types

import (
	"errors"
	"fmt"
)

// Domain error sentinels. Handlers map these onto HTTP responses; none of
// them should ever crash the process.
var (
	ErrNotFound          = errors.New("incident not found")
	ErrConflict          = errors.New("concurrent update conflict")
	ErrSelfVote          = errors.New("reporter cannot vote on their own incident")
	ErrDuplicateVote     = errors.New("user already voted in this direction")
	ErrNoVote            = errors.New("user has no active vote on this incident")
	ErrNotOwner          = errors.New("only the reporter can delete an incident")
	ErrInvalidCoordinate = errors.New("coordinates must be finite numbers")
)

// ValidationError reports malformed caller input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ErrorKind labels an error for the structured API response.
func ErrorKind(err error) string {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve), errors.Is(err, ErrInvalidCoordinate):
		return "validation"
	case errors.Is(err, ErrSelfVote):
		return "self_vote"
	case errors.Is(err, ErrDuplicateVote):
		return "duplicate_vote"
	case errors.Is(err, ErrNoVote):
		return "no_vote"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNotOwner):
		return "forbidden"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "internal"
	}
}
