package router

import (
	"github.com/gin-gonic/gin"

	"basegraph.app/ticketsmith/internal/http/handler"
)

func SessionRouter(rg *gin.RouterGroup, h *handler.SessionHandler) {
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.DELETE("/:id", h.Delete)
	rg.POST("/:id/questions", h.Ask)
}
