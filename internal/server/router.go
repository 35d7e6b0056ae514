package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/pusulaai/pusula-backend/internal/handlers"
)

type RouterConfig struct {
	AnalysisHandler *handlers.AnalysisHandler
	RealtimeHandler *handlers.RealtimeHandler
	AllowOrigins    []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)
	router.GET("/ws", cfg.RealtimeHandler.Connect)

	api := router.Group("/api")
	{
		api.POST("/analysis/start", cfg.AnalysisHandler.Start)
		api.GET("/analysis/:sessionId/status", cfg.AnalysisHandler.Status)
		api.GET("/analysis/:sessionId/progress", cfg.AnalysisHandler.Progress)
		api.GET("/analysis/:sessionId/results", cfg.AnalysisHandler.Results)
		api.GET("/analysis/:sessionId/student-report", cfg.AnalysisHandler.StudentReport)
		api.GET("/analysis/:sessionId/parent-report", cfg.AnalysisHandler.ParentReport)
		api.GET("/websocket/info", cfg.RealtimeHandler.Info)
	}

	return router
}
