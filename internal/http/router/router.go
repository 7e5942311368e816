package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"basegraph.app/ticketsmith/internal/http/handler"
	"basegraph.app/ticketsmith/internal/http/middleware"
	"basegraph.app/ticketsmith/internal/service"
)

type RouterConfig struct {
	RequestTimeout time.Duration
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Timeout(cfg.RequestTimeout))
	{
		decomposition := services.Decomposition()

		pageHandler := handler.NewPageHandler(decomposition)
		PageRouter(v1.Group("/pages"), pageHandler)

		decompositionHandler := handler.NewDecompositionHandler(decomposition)
		DecompositionRouter(v1, decompositionHandler)

		sessionHandler := handler.NewSessionHandler(services.Questions())
		SessionRouter(v1.Group("/sessions"), sessionHandler)
	}
}
