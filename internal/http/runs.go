package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mrlokans/bibsync/internal/database/runs"
)

type RunsController struct {
	history RunHistory
	logger  zerolog.Logger
}

func NewRunsController(history RunHistory, logger zerolog.Logger) *RunsController {
	return &RunsController{history: history, logger: logger}
}

func (rc *RunsController) List(c *gin.Context) {
	limit, ok := parseLimit(c, 20)
	if !ok {
		return
	}
	list, err := rc.history.Recent(limit)
	if err != nil {
		respondInternalError(c, rc.logger, err, "list runs")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (rc *RunsController) Get(c *gin.Context) {
	run, err := rc.history.GetByRunID(c.Param("id"))
	if errors.Is(err, runs.ErrRunNotFound) {
		respondNotFound(c, "run")
		return
	}
	if err != nil {
		respondInternalError(c, rc.logger, err, "get run")
		return
	}
	c.JSON(http.StatusOK, run)
}
