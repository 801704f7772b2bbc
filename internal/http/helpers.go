package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mrlokans/bibsync/internal/textfile"
)

// maxUploadSize caps request bodies and uploaded files.
const maxUploadSize = 20 * 1024 * 1024

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found"})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, logger zerolog.Logger, err error, context string) {
	logger.Error().Err(err).Str("context", context).Msg("internal error")
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

func respondAccepted(c *gin.Context, message string, data any) {
	c.JSON(http.StatusAccepted, SuccessResponse{Message: message, Data: data})
}

// parseLimit reads an optional positive "limit" query parameter.
func parseLimit(c *gin.Context, def int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return def, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		respondBadRequest(c, "invalid limit")
		return 0, false
	}
	return limit, true
}

var errTooLarge = fmt.Errorf("request body exceeds %d MB", maxUploadSize/(1024*1024))

// readText returns the request text either from a multipart "file" field or
// from the raw body. Bytes are decoded with the same encoding fallback the
// command line uses.
func readText(c *gin.Context) (text, source string, err error) {
	var data []byte
	source = "request body"

	if file, header, ferr := c.Request.FormFile("file"); ferr == nil {
		defer file.Close()
		if header.Size > maxUploadSize {
			return "", "", errTooLarge
		}
		source = header.Filename
		data, err = io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	} else {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
		data, err = io.ReadAll(c.Request.Body)
	}
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return "", "", errTooLarge
		}
		return "", "", fmt.Errorf("failed to read request: %w", err)
	}
	if len(data) > maxUploadSize {
		return "", "", errTooLarge
	}

	text, _, err = textfile.Decode(data)
	if err != nil {
		return "", "", err
	}
	return text, source, nil
}
