package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"basegraph.app/ticketsmith/internal/http/dto"
	"basegraph.app/ticketsmith/internal/service"
)

type PageHandler struct {
	decomposition service.DecompositionService
}

func NewPageHandler(decomposition service.DecompositionService) *PageHandler {
	return &PageHandler{decomposition: decomposition}
}

func (h *PageHandler) Fetch(c *gin.Context) {
	var req dto.PageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	page, err := h.decomposition.FetchPage(c.Request.Context(), req.PageURL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToPageResponse(page))
}

func (h *PageHandler) Formats(c *gin.Context) {
	var req dto.PageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	formats, err := h.decomposition.FetchPageFormats(c.Request.Context(), req.PageURL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToPageFormatsResponse(formats))
}

func (h *PageHandler) LinkEpic(c *gin.Context) {
	var req dto.LinkEpicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	page, err := h.decomposition.LinkEpic(c.Request.Context(), req.PageURL, req.EpicKey)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToPageUpdateResponse(page))
}

func (h *PageHandler) LinkTickets(c *gin.Context) {
	var req dto.LinkTicketsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	page, err := h.decomposition.LinkTickets(c.Request.Context(), req.PageURL, req.TicketKeys)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToPageUpdateResponse(page))
}
