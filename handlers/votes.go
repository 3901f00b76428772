package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-vigia/types"
	"go-vigia/validation"
)

type voteRequest struct {
	// pointer so a missing or non-boolean field is distinguishable
	Vote *bool `json:"vote"`
}

func VoteHandler(c *gin.Context, engine *validation.Engine) {
	uid, ok := requestUID(c)
	if !ok {
		return
	}

	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Vote == nil {
		respondError(c, types.NewValidationError("vote", "must be a boolean"))
		return
	}

	var (
		result types.VoteResult
		err    error
	)
	if *req.Vote {
		result, err = engine.VoteTrue(c.Request.Context(), c.Param("id"), uid)
	} else {
		result, err = engine.VoteFalse(c.Request.Context(), c.Param("id"), uid)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func RemoveVoteHandler(c *gin.Context, engine *validation.Engine) {
	uid, ok := requestUID(c)
	if !ok {
		return
	}

	result, err := engine.RemoveVote(c.Request.Context(), c.Param("id"), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
