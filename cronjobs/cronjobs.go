package cronjobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"go-vigia/analytics"
)

// InitCronJobs schedules the recurring report generation and returns the
// running scheduler.
func InitCronJobs(agg *analytics.Aggregator, logger zerolog.Logger) *cron.Cron {
	logger.Info().Msg("starting cron jobs")
	c := cron.New()

	// Monthly rollup: 03:10 on the 1st, covering the month that just ended.
	_, err := c.AddFunc("10 3 1 * *", func() {
		month := agg.PreviousMonth(time.Now())
		logger.Info().Str("month", month).Msg("cronjob: monthly report running")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		result, err := agg.RunMonth(ctx, month)
		if err != nil {
			logger.Error().Err(err).Str("month", month).Msg("cronjob: monthly report failed")
			return
		}
		logger.Info().
			Str("month", result.Month).
			Int("buckets", result.BucketsWritten).
			Int("incidents", result.Totals.Incidents).
			Msg("cronjob: monthly report done")
	})
	if err != nil {
		logger.Error().Err(err).Msg("error scheduling monthly report")
	}

	c.Start()
	return c
}
