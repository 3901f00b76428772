package routes

import (
	"github.com/gin-gonic/gin"

	"go-vigia/analytics"
	"go-vigia/handlers"
	"go-vigia/incidents"
	"go-vigia/proximity"
	"go-vigia/validation"
)

// Deps is everything the HTTP surface needs. Handlers get them injected
// through closures.
type Deps struct {
	Incidents  *incidents.Service
	Engine     *validation.Engine
	Proximity  *proximity.Service
	Aggregator *analytics.Aggregator
	Reports    handlers.ReportStore
}

func SetupRouter(deps Deps) *gin.Engine {
	r := gin.Default()

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "Hello, welcome to Vigia!",
		})
	})

	api := r.Group("/api/vigia")
	{
		// specific routes before the :id parameter
		api.GET("/incidents/near", func(c *gin.Context) {
			handlers.NearbyHandler(c, deps.Proximity)
		})
		api.GET("/incidents", func(c *gin.Context) {
			handlers.ListIncidentsHandler(c, deps.Incidents)
		})
		api.POST("/incidents", func(c *gin.Context) {
			handlers.CreateIncidentHandler(c, deps.Incidents)
		})
		api.GET("/incidents/:id", func(c *gin.Context) {
			handlers.GetIncidentHandler(c, deps.Incidents)
		})
		api.DELETE("/incidents/:id", func(c *gin.Context) {
			handlers.DeleteIncidentHandler(c, deps.Incidents)
		})
		api.POST("/incidents/:id/votes", func(c *gin.Context) {
			handlers.VoteHandler(c, deps.Engine)
		})
		api.DELETE("/incidents/:id/votes", func(c *gin.Context) {
			handlers.RemoveVoteHandler(c, deps.Engine)
		})

		api.POST("/reports/run", func(c *gin.Context) {
			handlers.RunMonthlyReportHandler(c, deps.Aggregator)
		})
		api.GET("/reports/:month", func(c *gin.Context) {
			handlers.GetMonthlyReportHandler(c, deps.Reports)
		})
	}

	return r
}
