package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mrlokans/bibsync/internal/dedupe"
	"github.com/mrlokans/bibsync/internal/entities"
	"github.com/mrlokans/bibsync/internal/importers"
	"github.com/mrlokans/bibsync/internal/ris"
	"github.com/mrlokans/bibsync/internal/syncer"
)

type ImportController struct {
	importer Importer
	logger   zerolog.Logger
}

func NewImportController(importer Importer, logger zerolog.Logger) *ImportController {
	return &ImportController{importer: importer, logger: logger}
}

type ImportResponse struct {
	RunID        string                 `json:"run_id"`
	Candidates   int                    `json:"candidates"`
	Duplicates   []dedupe.Match         `json:"duplicates,omitempty"`
	Uploaded     int                    `json:"uploaded"`
	Unchanged    int                    `json:"unchanged"`
	Failed       int                    `json:"failed"`
	NotAttempted int                    `json:"not_attempted,omitempty"`
	Failures     []entities.ItemFailure `json:"failures,omitempty"`
	ReportPath   string                 `json:"report_path,omitempty"`
	Error        string                 `json:"error,omitempty"`
}

// Import uploads posted exchange text to the group library.
func (ic *ImportController) Import(c *gin.Context) {
	text, source, err := readText(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	result, err := ic.importer.Import(c.Request.Context(), text, source)
	if errors.Is(err, importers.ErrBusy) {
		respondError(c, http.StatusConflict, err.Error())
		return
	}
	if errors.Is(err, ris.ErrEmptyContent) || errors.Is(err, ris.ErrNoEntries) {
		respondError(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	resp := ImportResponse{
		RunID:      result.RunID,
		Candidates: result.Candidates,
		Duplicates: result.Duplicates,
		ReportPath: result.ReportPath,
	}
	if up := result.Upload; up != nil {
		resp.Uploaded = up.Uploaded
		resp.Unchanged = up.Unchanged
		resp.Failed = up.Failed
		resp.NotAttempted = up.NotAttempted
		resp.Failures = up.Failures
	}

	status := http.StatusOK
	if err != nil {
		ic.logger.Error().Err(err).Str("run_id", result.RunID).Msg("import failed")
		resp.Error = err.Error()
		status = http.StatusBadGateway
		if errors.Is(err, syncer.ErrVersionUnavailable) {
			status = http.StatusServiceUnavailable
		}
	}
	c.JSON(status, resp)
}
