package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"go-vigia/proximity"
	"go-vigia/types"
)

func NearbyHandler(c *gin.Context, svc *proximity.Service) {
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		respondError(c, types.NewValidationError("lng", "must be a number"))
		return
	}
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		respondError(c, types.NewValidationError("lat", "must be a number"))
		return
	}
	radius, err := strconv.ParseFloat(c.DefaultQuery("radius", "500"), 64)
	if err != nil {
		respondError(c, types.NewValidationError("radius", "must be a number"))
		return
	}
	includeFlagged, _ := strconv.ParseBool(c.DefaultQuery("includeFlagged", "false"))

	results, err := svc.Nearby(c.Request.Context(), proximity.Query{
		Longitude:      lng,
		Latitude:       lat,
		RadiusMeters:   radius,
		IncludeFlagged: includeFlagged,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(results), "incidents": results})
}
