package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bibsync/internal/scheduler"
)

type ScheduleController struct {
	scheduler Scheduler
}

func NewScheduleController(s Scheduler) *ScheduleController {
	return &ScheduleController{scheduler: s}
}

type ScheduleStatus struct {
	Running   bool       `json:"running"`
	Syncing   bool       `json:"syncing"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

func (sc *ScheduleController) Status(c *gin.Context) {
	status := ScheduleStatus{
		Running: sc.scheduler.IsRunning(),
		Syncing: sc.scheduler.IsSyncing(),
		NextRun: sc.scheduler.NextRunTime(),
	}
	if last, err := sc.scheduler.LastRun(); !last.IsZero() {
		status.LastRun = &last
		if err != nil {
			status.LastError = err.Error()
		}
	}
	c.JSON(http.StatusOK, status)
}

// Run triggers an immediate sync in the background.
func (sc *ScheduleController) Run(c *gin.Context) {
	if err := sc.scheduler.RunNow(); err != nil {
		if errors.Is(err, scheduler.ErrAlreadySyncing) {
			respondError(c, http.StatusConflict, err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondAccepted(c, "sync started", nil)
}
