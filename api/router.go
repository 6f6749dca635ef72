package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"api_presale/internal/presale"
)

// InitRoutes registers the presale endpoints on the given Gin engine.
// Write endpoints go through the limiter when one is given.
func InitRoutes(e *gin.Engine, presaleService *presale.Service, logger *zap.Logger, limiter *RateLimiter) {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := NewPresaleHandler(presaleService, logger)

	write := e.Group("/")
	if limiter != nil {
		write.Use(limiter.Middleware(logger))
	}

	write.POST("/purchases", h.handleCreatePurchase)
	e.GET("/purchases", h.handleSearchPurchases)
	e.GET("/purchases/:id", h.handleGetPurchase)

	write.POST("/whitelist", h.handleAddToWhitelist)
	write.DELETE("/whitelist/:address", h.handleRemoveFromWhitelist)
	e.GET("/whitelist/:address", h.handleIsWhitelisted)

	e.GET("/sale", h.handleStatus)
	write.POST("/sale/pause", h.adminHandler("pause", presaleService.Pause))
	write.POST("/sale/unpause", h.adminHandler("unpause", presaleService.Unpause))
	write.POST("/sale/close", h.adminHandler("close", presaleService.CloseSale))

	e.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
}
