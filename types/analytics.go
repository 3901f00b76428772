package types

import "time"

// Totals are the summed counters for one analytics row.
type Totals struct {
	Incidents     int `firestore:"incidents" json:"incidents"`
	Confirmations int `firestore:"confirmations" json:"confirmations"`
	Comments      int `firestore:"comments" json:"comments"`
}

// HourRangeKeys are the four fixed 6-hour buckets of the day.
var HourRangeKeys = []string{"00-05", "06-11", "12-17", "18-23"}

// NewHourRange returns a histogram with every bucket present at zero.
func NewHourRange() map[string]int {
	h := make(map[string]int, len(HourRangeKeys))
	for _, k := range HourRangeKeys {
		h[k] = 0
	}
	return h
}

// AnalyticsBucket is one pre-aggregated fact row per (month, locality, categoryGroup).
type AnalyticsBucket struct {
	Month         string         `firestore:"month" json:"month"` // "YYYY-MM"
	Locality      string         `firestore:"locality" json:"locality"`
	CategoryGroup string         `firestore:"categoryGroup" json:"categoryGroup"`
	Totals        Totals         `firestore:"totals" json:"totals"`
	ByHourRange   map[string]int `firestore:"byHourRange" json:"byHourRange"`
	GeneratedAt   time.Time      `firestore:"generatedAt" json:"generatedAt"`
}

// LocalityGroup is one bucket's category data inside a report.
type LocalityGroup struct {
	CategoryGroup string         `firestore:"categoryGroup" json:"categoryGroup"`
	Totals        Totals         `firestore:"totals" json:"totals"`
	ByHourRange   map[string]int `firestore:"byHourRange" json:"byHourRange"`
}

type LocalityBreakdown struct {
	Locality string          `firestore:"locality" json:"locality"`
	Groups   []LocalityGroup `firestore:"groups" json:"groups"`
}

// MonthlyReport is the consolidated view for one month, rebuilt from buckets
// on every run.
type MonthlyReport struct {
	Month       string              `firestore:"month" json:"month"`
	GeneratedAt time.Time           `firestore:"generatedAt" json:"generatedAt"`
	Totals      Totals              `firestore:"totals" json:"totals"`
	ByLocality  []LocalityBreakdown `firestore:"byLocality" json:"byLocality"`
	Notes       string              `firestore:"notes" json:"notes"`
}

// Add folds another totals row into t.
func (t *Totals) Add(o Totals) {
	t.Incidents += o.Incidents
	t.Confirmations += o.Confirmations
	t.Comments += o.Comments
}
