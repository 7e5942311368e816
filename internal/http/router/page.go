package router

import (
	"github.com/gin-gonic/gin"

	"basegraph.app/ticketsmith/internal/http/handler"
)

func PageRouter(rg *gin.RouterGroup, h *handler.PageHandler) {
	rg.POST("/fetch", h.Fetch)
	rg.POST("/formats", h.Formats)
	rg.POST("/epic-link", h.LinkEpic)
	rg.POST("/ticket-links", h.LinkTickets)
}
