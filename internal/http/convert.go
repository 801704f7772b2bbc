package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bibsync/internal/midos"
)

type ConvertController struct {
	converter Converter
}

func NewConvertController(converter Converter) *ConvertController {
	return &ConvertController{converter: converter}
}

type ConvertResponse struct {
	RunID   string                `json:"run_id"`
	Records int                   `json:"records"`
	Types   map[midos.DocType]int `json:"types"`
	RIS     string                `json:"ris"`
}

// Convert maps an archival export to exchange text. With "Accept: text/plain"
// (or ?format=ris) the exchange text is returned as-is.
func (cc *ConvertController) Convert(c *gin.Context) {
	text, source, err := readText(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	result := cc.converter.Convert(text, source)
	if result.Records == 0 {
		respondError(c, http.StatusUnprocessableEntity, "no records found")
		return
	}

	if c.Query("format") == "ris" || c.GetHeader("Accept") == "text/plain" {
		c.Header("X-Run-ID", result.RunID)
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(result.Output))
		return
	}

	c.JSON(http.StatusOK, ConvertResponse{
		RunID:   result.RunID,
		Records: result.Records,
		Types:   result.Types,
		RIS:     result.Output,
	})
}
