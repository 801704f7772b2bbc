package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bibsync/internal/database"
)

const (
	checkOK            = "ok"
	checkNotConfigured = "not configured"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// HealthController reports the run history store and the scheduler. Only a
// failing store makes the service unhealthy; a stopped scheduler is still
// reported as a check value.
type HealthController struct {
	db        *database.Database
	scheduler Scheduler
	version   string
}

func NewHealthController(db *database.Database, scheduler Scheduler, version string) *HealthController {
	return &HealthController{db: db, scheduler: scheduler, version: version}
}

func (h *HealthController) Status(c *gin.Context) {
	dbCheck, healthy := h.checkDatabase()
	response := HealthResponse{
		Status:  "healthy",
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks: map[string]string{
			"database":  dbCheck,
			"scheduler": h.checkScheduler(),
		},
	}

	code := http.StatusOK
	if !healthy {
		response.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	c.IndentedJSON(code, response)
}

func (h *HealthController) checkDatabase() (string, bool) {
	if h.db == nil {
		return checkNotConfigured, true
	}
	if err := h.db.Ping(); err != nil {
		return "error: " + err.Error(), false
	}
	return checkOK, true
}

func (h *HealthController) checkScheduler() string {
	switch {
	case h.scheduler == nil:
		return checkNotConfigured
	case h.scheduler.IsSyncing():
		return "syncing"
	case h.scheduler.IsRunning():
		return checkOK
	default:
		return "stopped"
	}
}
