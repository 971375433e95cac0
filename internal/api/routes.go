package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	api := router.Group("/api")
	{
		api.GET("/health", handler.Health)
		api.GET("/area", handler.GetAreaData)
		api.GET("/price-context", handler.GetPriceContext)
		api.GET("/listings/:id", handler.GetListing)
		api.POST("/listings/generate", handler.GenerateListing)
		api.POST("/listings/refresh-area", handler.RefreshArea)
	}
}
