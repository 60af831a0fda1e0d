package transport

import (
	"net/http"

	"github.com/ds124wfegd/memecaption/internal/transport/middleware"
	"github.com/gin-gonic/gin"
)

func InitRoutes(caption *CaptionHandler, export *ExportHandler, requestTimeout int) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.Logger(), middleware.CORS())

	api := router.Group("/api/v1", middleware.Timeout(requestTimeout))
	{
		api.POST("/sessions", caption.CreateSession)
		sessions := api.Group("/sessions/:id")
		{
			sessions.DELETE("", caption.DeleteSession)
			sessions.POST("/image", caption.UploadImage)
			sessions.DELETE("/image", caption.RemoveImage)
			sessions.GET("/thumbnail", caption.Thumbnail)
			sessions.PUT("/style", caption.SetStyle)
			sessions.POST("/filters", caption.AddFilter)
			sessions.DELETE("/filters", caption.ClearFilters)
			sessions.PUT("/frame", caption.SetFrame)
			sessions.GET("/preview", caption.Preview)

			sessions.GET("/export", export.Export)
			sessions.POST("/exports", export.Exports)
			sessions.POST("/exports/async", export.EnqueueExport)
		}

		api.GET("/images/:id", caption.GetImage)
		api.GET("/exports/history", export.History)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "caption-service",
		})
	})
	return router
}
