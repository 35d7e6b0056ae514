package main

import (
	"context"
	"os"
	"strings"

	"github.com/pusulaai/pusula-backend/internal/bus"
	"github.com/pusulaai/pusula-backend/internal/db"
	"github.com/pusulaai/pusula-backend/internal/handlers"
	"github.com/pusulaai/pusula-backend/internal/logger"
	"github.com/pusulaai/pusula-backend/internal/repos"
	"github.com/pusulaai/pusula-backend/internal/server"
	"github.com/pusulaai/pusula-backend/internal/services"
	"github.com/pusulaai/pusula-backend/internal/types"
	"github.com/pusulaai/pusula-backend/internal/utils"
	"github.com/pusulaai/pusula-backend/internal/ws"
)

func main() {
	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Failed to initialize Postgres", "error", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Fatal("Failed to migrate schema", "error", err)
	}
	gormDB := pg.DB()

	sessionRepo := repos.NewAnalysisSessionRepo(gormDB, log)
	progressRepo := repos.NewProgressUpdateRepo(gormDB, log)
	courseRepo := repos.NewBTKCourseRepo(gormDB, log)

	hub := ws.NewHub(log)

	// With REDIS_ADDR set, progress events go through redis pub/sub so every
	// node's hub sees them. Without it, events stay hub-local.
	var notifier services.ProgressNotifier = hub
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		progressBus, err := bus.NewRedisBus(log)
		if err != nil {
			log.Fatal("Failed to initialize redis progress bus", "error", err)
		}
		defer progressBus.Close()
		if err := progressBus.StartForwarder(context.Background(), func(update *types.ProgressUpdate) {
			hub.BroadcastProgress(update)
		}); err != nil {
			log.Fatal("Failed to start redis progress forwarder", "error", err)
		}
		notifier = busNotifier{bus: progressBus, log: log}
	}

	progressService := services.NewProgressService(log, progressRepo, notifier)

	courseService := services.NewBTKCourseService(log, courseRepo, nil)
	if err := courseService.EnsureCatalog(context.Background()); err != nil {
		log.Fatal("Failed to seed course catalog", "error", err)
	}

	youtubeClient := services.NewYouTubeClient(log)
	geminiClient, err := services.NewGeminiClient(log)
	if err != nil {
		log.Fatal("Failed to initialize Gemini client", "error", err)
	}

	analysisService := services.NewAnalysisService(log, sessionRepo, progressService, youtubeClient, geminiClient, courseService)

	router := server.NewRouter(server.RouterConfig{
		AnalysisHandler: handlers.NewAnalysisHandler(log, analysisService, progressService),
		RealtimeHandler: handlers.NewRealtimeHandler(log, hub),
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}

// busNotifier publishes each progress event to redis instead of the local
// hub; the forwarder loops it back to every hub, this node included.
type busNotifier struct {
	bus bus.Bus
	log *logger.Logger
}

func (n busNotifier) BroadcastProgress(update *types.ProgressUpdate) {
	if err := n.bus.Publish(context.Background(), update); err != nil {
		n.log.Warn("Failed to publish progress event", "error", err)
	}
}
