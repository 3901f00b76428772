package types

import "time"

type IncidentStatus string

const (
	StatusPending     IncidentStatus = "pending"
	StatusVerified    IncidentStatus = "verified"
	StatusFalseReport IncidentStatus = "false_report"
)

// GeoPoint is a single geographic coordinate in degrees.
type GeoPoint struct {
	Longitude float64 `firestore:"longitude" json:"longitude"`
	Latitude  float64 `firestore:"latitude" json:"latitude"`
}

// Incident is a citizen-submitted report of an event at a place and time.
type Incident struct {
	ID            string         `firestore:"-" json:"id"` // tell firestore to ignore
	CategoryGroup string         `firestore:"categoryGroup" json:"categoryGroup"`
	Type          string         `firestore:"type" json:"type"`
	Title         string         `firestore:"title" json:"title"`
	Description   string         `firestore:"description" json:"description"`
	ReporterUID   string         `firestore:"reporterUid" json:"reporterUid"`
	IsAnonymous   bool           `firestore:"isAnonymous" json:"isAnonymous"`
	Locality      string         `firestore:"locality" json:"locality"`
	Address       string         `firestore:"address,omitempty" json:"address,omitempty"`
	Location      *GeoPoint      `firestore:"location,omitempty" json:"location,omitempty"`
	EventAt       time.Time      `firestore:"eventAt" json:"eventAt"`
	EditableUntil time.Time      `firestore:"editableUntil" json:"editableUntil"`
	CreatedAt     time.Time      `firestore:"createdAt" json:"createdAt"`
	Photos        []string       `firestore:"photos" json:"photos"`
	CommentsCount int            `firestore:"commentsCount" json:"commentsCount"`

	// Vote state. A uid appears in at most one of the two sets.
	VotedTrue  []string `firestore:"votedTrue" json:"votedTrue"`
	VotedFalse []string `firestore:"votedFalse" json:"votedFalse"`

	// Derived state, recomputed from the vote sets after every mutation.
	ValidationScore int            `firestore:"validationScore" json:"validationScore"`
	Verified        bool           `firestore:"verified" json:"verified"`
	FlaggedFalse    bool           `firestore:"flaggedFalse" json:"flaggedFalse"`
	Status          IncidentStatus `firestore:"status" json:"status"`

	// Kept in sync with votedTrue for older clients.
	ConfirmationsCount int      `firestore:"confirmationsCount" json:"confirmationsCount"`
	ConfirmedBy        []string `firestore:"confirmedBy" json:"confirmedBy"`
}

// VoteResult is returned to the caller after a vote mutation.
type VoteResult struct {
	ValidationScore int            `json:"validationScore"`
	VotedTrueCount  int            `json:"votedTrueCount"`
	VotedFalseCount int            `json:"votedFalseCount"`
	Verified        bool           `json:"verified"`
	FlaggedFalse    bool           `json:"flaggedFalse"`
	Status          IncidentStatus `json:"status"`
}

// Clone returns a deep copy so callers can mutate freely.
func (i *Incident) Clone() *Incident {
	c := *i
	if i.Location != nil {
		loc := *i.Location
		c.Location = &loc
	}
	c.Photos = append([]string(nil), i.Photos...)
	c.VotedTrue = append([]string(nil), i.VotedTrue...)
	c.VotedFalse = append([]string(nil), i.VotedFalse...)
	c.ConfirmedBy = append([]string(nil), i.ConfirmedBy...)
	return &c
}
