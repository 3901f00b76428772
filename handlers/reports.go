package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"go-vigia/analytics"
	"go-vigia/types"
)

// ReportStore reads back persisted monthly reports.
type ReportStore interface {
	GetMonthlyReport(ctx context.Context, month string) (*types.MonthlyReport, error)
}

func RunMonthlyReportHandler(c *gin.Context, agg *analytics.Aggregator) {
	month := c.Query("month")
	if month == "" {
		month = agg.CurrentMonth(time.Now())
	}

	result, err := agg.RunMonth(c.Request.Context(), month)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func GetMonthlyReportHandler(c *gin.Context, store ReportStore) {
	report, err := store.GetMonthlyReport(c.Request.Context(), c.Param("month"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}
