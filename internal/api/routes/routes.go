package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/slotheather55/webspark-sub000/internal/api/handlers"
	"github.com/slotheather55/webspark-sub000/internal/api/middleware"
)

func SetupRoutes() *gin.Engine {
	router := gin.Default()

	router.Use(middleware.CORSMiddleware())
	router.Use(gin.Recovery())

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)

		// WebSocket endpoints for live action and progress streaming
		v1.GET("/ws/recording", handlers.RecordingWebSocket)
		v1.GET("/ws/playback", handlers.PlaybackWebSocket)

		recording := v1.Group("/recording")
		{
			recording.POST("/start", handlers.StartRecording)
			recording.POST("/stop", handlers.StopRecording)
			recording.GET("/status", handlers.GetRecordingStatus)
			recording.POST("/control", handlers.RecordingControl)
			recording.GET("/screenshot", handlers.RecordingScreenshot)
		}

		macros := v1.Group("/macros")
		{
			macros.GET("", handlers.GetMacros)
			macros.GET("/:id", handlers.GetMacro)
			macros.DELETE("/:id", handlers.DeleteMacro)
		}

		playback := v1.Group("/playback")
		{
			playback.POST("/start", handlers.StartPlayback)
			playback.POST("/stop", handlers.StopPlayback)
			playback.GET("/status", handlers.GetPlaybackStatus)
		}

		catalog := v1.Group("/catalog")
		{
			catalog.POST("/run", handlers.RunAudit)
			catalog.GET("/page-types", handlers.GetPageTypes)
		}
	}

	return router
}
