package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"basegraph.app/ticketsmith/common/llm"
	"basegraph.app/ticketsmith/internal/decompose"
	"basegraph.app/ticketsmith/internal/model"
	"basegraph.app/ticketsmith/internal/service"
)

// respondError maps pipeline errors to a status code and a JSON body. Partial progress of a
// failed decomposition run is reported alongside the error.
func respondError(c *gin.Context, err error) {
	ctx := c.Request.Context()
	body := gin.H{"error": err.Error()}
	status := http.StatusInternalServerError

	var (
		existsErr   *service.EpicExistsError
		upstreamErr *model.UpstreamError
		runErr      *service.RunError
	)

	switch {
	case errors.Is(err, decompose.ErrPageIDNotFound):
		status = http.StatusBadRequest
	case errors.Is(err, decompose.ErrProjectKeyNotFound), errors.Is(err, service.ErrNoWorkItems):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &existsErr):
		status = http.StatusConflict
		body["existing_key"] = existsErr.Key
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrRunNotFound):
		status = http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.As(err, &upstreamErr):
		status = http.StatusBadGateway
		body["upstream"] = upstreamErr.Service
		if upstreamErr.StatusCode != 0 {
			body["upstream_status"] = upstreamErr.StatusCode
		}
	default:
		if code, ok := llm.UpstreamStatus(err); ok {
			status = http.StatusBadGateway
			body["upstream"] = "openai"
			body["upstream_status"] = code
		} else if errors.Is(err, llm.ErrEmbeddingUnavailable) || errors.Is(err, llm.ErrEmptyCompletion) {
			status = http.StatusBadGateway
			body["upstream"] = "openai"
		}
	}

	if errors.As(err, &runErr) {
		body["run_id"] = strconv.FormatInt(runErr.RunID, 10)
		body["stage"] = runErr.Stage
		if runErr.EpicKey != "" {
			body["epic_key"] = runErr.EpicKey
		}
		created := runErr.CreatedKeys
		if created == nil {
			created = []string{}
		}
		body["created_keys"] = created
	}

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, "request failed", "status", status, "error", err)
	} else {
		slog.WarnContext(ctx, "request rejected", "status", status, "error", err)
	}

	c.JSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	slog.WarnContext(c.Request.Context(), "invalid request body", "error", err)
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
