package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"go-vigia/types"
)

// DefaultTimezone is the reporting timezone. Hour-of-day patterns are
// citizen-facing, so month boundaries and hours are computed here, not UTC.
const DefaultTimezone = "America/Bogota"

// Store is everything the aggregator needs: a range scan over incidents and
// idempotent upserts for the two rollup collections.
type Store interface {
	IncidentsInRange(ctx context.Context, start, end time.Time) ([]types.Incident, error)
	UpsertBucket(ctx context.Context, b types.AnalyticsBucket) error
	BucketsForMonth(ctx context.Context, month string) ([]types.AnalyticsBucket, error)
	UpsertMonthlyReport(ctx context.Context, r types.MonthlyReport) error
}

// Summarizer produces the optional human-readable notes for a report.
type Summarizer interface {
	MonthlyNotes(ctx context.Context, report types.MonthlyReport) (string, error)
}

// Aggregator runs the two-phase monthly rollup: incidents are folded into one
// AnalyticsBucket per (month, locality, categoryGroup), then the buckets are
// folded into a single MonthlyReport. Reruns for the same month overwrite
// buckets in place, so the job is safe to retry.
type Aggregator struct {
	store      Store
	loc        *time.Location
	summarizer Summarizer
	log        zerolog.Logger
}

func NewAggregator(store Store, reportingTZ *time.Location, logger zerolog.Logger) *Aggregator {
	if reportingTZ == nil {
		reportingTZ = time.UTC
	}
	return &Aggregator{store: store, loc: reportingTZ, log: logger}
}

// WithSummarizer enables report notes. Summary failures are logged, never
// fatal to a run.
func (a *Aggregator) WithSummarizer(s Summarizer) *Aggregator {
	a.summarizer = s
	return a
}

// RunResult reports what a month's run wrote.
type RunResult struct {
	Month          string       `json:"month"`
	BucketsWritten int          `json:"bucketsWritten"`
	Totals         types.Totals `json:"totals"`
}

type stage1Key struct {
	locality      string
	categoryGroup string
	hour          int
}

type bucketKey struct {
	locality      string
	categoryGroup string
}

// RunMonth recomputes all buckets and the report for "YYYY-MM".
func (a *Aggregator) RunMonth(ctx context.Context, month string) (RunResult, error) {
	start, end, err := monthRange(month, a.loc)
	if err != nil {
		return RunResult{}, err
	}

	incidents, err := a.store.IncidentsInRange(ctx, start, end)
	if err != nil {
		return RunResult{}, fmt.Errorf("extracting incidents for %s: %w", month, err)
	}

	// Stage 1: group by (locality, categoryGroup, hour-of-day).
	stage1 := make(map[stage1Key]types.Totals)
	for _, inc := range incidents {
		k := stage1Key{
			locality:      inc.Locality,
			categoryGroup: inc.CategoryGroup,
			hour:          inc.EventAt.In(a.loc).Hour(),
		}
		t := stage1[k]
		t.Add(types.Totals{
			Incidents:     1,
			Confirmations: inc.ConfirmationsCount,
			Comments:      inc.CommentsCount,
		})
		stage1[k] = t
	}

	// Stage 2: fold hours away, building the 4-range histogram. Sums are
	// associative and commutative, so the fold order never matters.
	now := time.Now().UTC()
	buckets := make(map[bucketKey]*types.AnalyticsBucket)
	for k, t := range stage1 {
		bk := bucketKey{locality: k.locality, categoryGroup: k.categoryGroup}
		b, ok := buckets[bk]
		if !ok {
			b = &types.AnalyticsBucket{
				Month:         month,
				Locality:      k.locality,
				CategoryGroup: k.categoryGroup,
				ByHourRange:   types.NewHourRange(),
				GeneratedAt:   now,
			}
			buckets[bk] = b
		}
		b.Totals.Add(t)
		b.ByHourRange[HourRangeKey(k.hour)] += t.Incidents
	}

	// Persist buckets in a stable order. Each upsert is independently atomic;
	// a crash mid-loop leaves the month retryable.
	keys := make([]bucketKey, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].locality != keys[j].locality {
			return keys[i].locality < keys[j].locality
		}
		return keys[i].categoryGroup < keys[j].categoryGroup
	})
	for _, k := range keys {
		if err := a.store.UpsertBucket(ctx, *buckets[k]); err != nil {
			return RunResult{}, fmt.Errorf("upserting bucket %s/%s/%s: %w", month, k.locality, k.categoryGroup, err)
		}
	}

	report, err := a.buildReport(ctx, month, now)
	if err != nil {
		return RunResult{}, err
	}

	a.log.Info().
		Str("month", month).
		Int("incidents", report.Totals.Incidents).
		Int("buckets", len(buckets)).
		Msg("monthly report generated")

	return RunResult{Month: month, BucketsWritten: len(buckets), Totals: report.Totals}, nil
}

// buildReport reads back every bucket for the month, not the raw incidents:
// the report is a view over the bucket fact table and can be rebuilt from it
// alone.
func (a *Aggregator) buildReport(ctx context.Context, month string, generatedAt time.Time) (types.MonthlyReport, error) {
	rows, err := a.store.BucketsForMonth(ctx, month)
	if err != nil {
		return types.MonthlyReport{}, fmt.Errorf("reading buckets for %s: %w", month, err)
	}

	report := types.MonthlyReport{
		Month:       month,
		GeneratedAt: generatedAt,
		ByLocality:  []types.LocalityBreakdown{},
	}

	byLocality := make(map[string][]types.LocalityGroup)
	for _, row := range rows {
		report.Totals.Add(row.Totals)
		byLocality[row.Locality] = append(byLocality[row.Locality], types.LocalityGroup{
			CategoryGroup: row.CategoryGroup,
			Totals:        row.Totals,
			ByHourRange:   row.ByHourRange,
		})
	}

	localities := make([]string, 0, len(byLocality))
	for l := range byLocality {
		localities = append(localities, l)
	}
	sort.Strings(localities)

	for _, l := range localities {
		groups := byLocality[l]
		sort.Slice(groups, func(i, j int) bool { return groups[i].CategoryGroup < groups[j].CategoryGroup })
		report.ByLocality = append(report.ByLocality, types.LocalityBreakdown{Locality: l, Groups: groups})
	}

	if a.summarizer != nil {
		notes, err := a.summarizer.MonthlyNotes(ctx, report)
		if err != nil {
			a.log.Warn().Err(err).Str("month", month).Msg("report notes generation failed, continuing without notes")
		} else {
			report.Notes = notes
		}
	}

	if err := a.store.UpsertMonthlyReport(ctx, report); err != nil {
		return types.MonthlyReport{}, fmt.Errorf("upserting report for %s: %w", month, err)
	}
	return report, nil
}

// HourRangeKey maps an hour of day onto its fixed 6-hour bucket.
func HourRangeKey(h int) string {
	if h >= 0 && h <= 5 {
		return "00-05"
	}
	if h >= 6 && h <= 11 {
		return "06-11"
	}
	if h >= 12 && h <= 17 {
		return "12-17"
	}
	return "18-23"
}

// monthRange resolves "YYYY-MM" to [start, end) in the reporting timezone.
func monthRange(month string, loc *time.Location) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation("2006-01", month, loc)
	if err != nil {
		return time.Time{}, time.Time{}, types.NewValidationError("month", `must be formatted "YYYY-MM"`)
	}
	return start, start.AddDate(0, 1, 0), nil
}

// CurrentMonth formats now's month in the reporting timezone, for callers
// that omit the month parameter.
func (a *Aggregator) CurrentMonth(now time.Time) string {
	return now.In(a.loc).Format("2006-01")
}

// PreviousMonth is what the scheduled run reports on. Anchored to the first
// of the month so late-month day numbers cannot skew the arithmetic.
func (a *Aggregator) PreviousMonth(now time.Time) string {
	n := now.In(a.loc)
	first := time.Date(n.Year(), n.Month(), 1, 0, 0, 0, 0, a.loc)
	return first.AddDate(0, -1, 0).Format("2006-01")
}
