package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-vigia/types"
)

// UIDHeader carries the authenticated identity, resolved by the upstream
// identity layer. The core never verifies tokens itself.
const UIDHeader = "X-User-Uid"

func requestUID(c *gin.Context) (string, bool) {
	uid := c.GetHeader(UIDHeader)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{"kind": "unauthenticated", "message": "missing " + UIDHeader + " header"},
		})
		return "", false
	}
	return uid, true
}

func respondError(c *gin.Context, err error) {
	kind := types.ErrorKind(err)

	status := http.StatusInternalServerError
	switch kind {
	case "validation":
		status = http.StatusBadRequest
	case "self_vote", "duplicate_vote", "no_vote", "conflict":
		status = http.StatusConflict
	case "not_found":
		status = http.StatusNotFound
	case "forbidden":
		status = http.StatusForbidden
	}

	message := err.Error()
	if kind == "internal" {
		message = "internal error"
	}

	c.JSON(status, gin.H{"error": gin.H{"kind": kind, "message": message}})
}
