package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"go-vigia/incidents"
	"go-vigia/types"
)

func CreateIncidentHandler(c *gin.Context, svc *incidents.Service) {
	uid, ok := requestUID(c)
	if !ok {
		return
	}

	var in incidents.ReportInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, types.NewValidationError("body", "must be valid JSON"))
		return
	}

	inc, err := svc.Report(c.Request.Context(), uid, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"incident": inc})
}

func GetIncidentHandler(c *gin.Context, svc *incidents.Service) {
	inc, err := svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"incident": inc})
}

func ListIncidentsHandler(c *gin.Context, svc *incidents.Service) {
	opts := incidents.ListOptions{
		Locality:      c.Query("locality"),
		CategoryGroup: c.Query("categoryGroup"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			respondError(c, types.NewValidationError("limit", "must be a positive integer"))
			return
		}
		opts.Limit = limit
	}

	list, err := svc.List(c.Request.Context(), opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(list), "incidents": list})
}

func DeleteIncidentHandler(c *gin.Context, svc *incidents.Service) {
	uid, ok := requestUID(c)
	if !ok {
		return
	}

	if err := svc.Delete(c.Request.Context(), c.Param("id"), uid); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
