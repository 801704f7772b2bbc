package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mrlokans/bibsync/internal/dedupe"
	"github.com/mrlokans/bibsync/internal/entities"
)

type DuplicatesController struct {
	logger zerolog.Logger
}

func NewDuplicatesController(logger zerolog.Logger) *DuplicatesController {
	return &DuplicatesController{logger: logger}
}

type DuplicatesRequest struct {
	Candidates  []entities.Item `json:"candidates" binding:"required"`
	Existing    []entities.Item `json:"existing"`
	WithinBatch bool            `json:"within_batch"`
	Similarity  float64         `json:"similarity"`
}

// Detect runs duplicate detection on the posted candidates against the
// posted existing items without touching the remote library.
func (dc *DuplicatesController) Detect(c *gin.Context) {
	var req DuplicatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Similarity < 0 || req.Similarity > 1 {
		respondBadRequest(c, "similarity must be between 0 and 1")
		return
	}

	detector := dedupe.NewDetector(dc.logger,
		dedupe.WithinBatch(req.WithinBatch),
		dedupe.WithSimilarity(req.Similarity),
	)
	result := detector.Detect(req.Candidates, entities.Snapshot{Items: req.Existing})
	if result.Unique == nil {
		result.Unique = []entities.Item{}
	}
	if result.Duplicates == nil {
		result.Duplicates = []dedupe.Match{}
	}

	c.JSON(http.StatusOK, result)
}
