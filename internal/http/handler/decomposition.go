package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"basegraph.app/ticketsmith/internal/http/dto"
	"basegraph.app/ticketsmith/internal/service"
	"basegraph.app/ticketsmith/internal/service/issue_tracker"
)

type DecompositionHandler struct {
	decomposition service.DecompositionService
}

func NewDecompositionHandler(decomposition service.DecompositionService) *DecompositionHandler {
	return &DecompositionHandler{decomposition: decomposition}
}

func (h *DecompositionHandler) Breakdown(c *gin.Context) {
	var req dto.BreakdownRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.decomposition.BreakDown(c.Request.Context(), req.Content)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToBreakdownResponse(result))
}

func (h *DecompositionHandler) CreateEpic(c *gin.Context) {
	var req dto.CreateEpicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	epic, err := h.decomposition.EnsureEpic(c.Request.Context(), req.EpicTitle, req.ProjectKey)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if epic.Existed {
		status = http.StatusOK
	}
	c.JSON(status, dto.EpicResponse{Key: epic.Key, Existed: epic.Existed})
}

func (h *DecompositionHandler) CreateTicket(c *gin.Context) {
	var req dto.CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	key, err := h.decomposition.CreateTicket(c.Request.Context(), issue_tracker.CreateChildParams{
		ParentKey:   req.EpicKey,
		ProjectKey:  req.ProjectKey,
		Summary:     req.Summary,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.TicketResponse{Key: key})
}

func (h *DecompositionHandler) Decompose(c *gin.Context) {
	var req dto.PageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.decomposition.Run(c.Request.Context(), req.PageURL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToDecomposeResponse(result))
}

func (h *DecompositionHandler) GetRun(c *gin.Context) {
	ctx := c.Request.Context()

	runID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		slog.WarnContext(ctx, "invalid run id", "id", c.Param("id"))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	run, items, err := h.decomposition.GetRun(ctx, runID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToRunResponse(run, items))
}
