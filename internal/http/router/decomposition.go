package router

import (
	"github.com/gin-gonic/gin"

	"basegraph.app/ticketsmith/internal/http/handler"
)

func DecompositionRouter(rg *gin.RouterGroup, h *handler.DecompositionHandler) {
	rg.POST("/breakdown", h.Breakdown)
	rg.POST("/epics", h.CreateEpic)
	rg.POST("/tickets", h.CreateTicket)
	rg.POST("/workflows/decompose", h.Decompose)
	rg.GET("/runs/:id", h.GetRun)
}
