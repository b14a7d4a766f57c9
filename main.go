package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/BirdScout/bird-scout-backend/config"
	"github.com/BirdScout/bird-scout-backend/handlers"
	"github.com/BirdScout/bird-scout-backend/logger"
	catalogservice "github.com/BirdScout/bird-scout-backend/models/catalog/service"
	sightingservice "github.com/BirdScout/bird-scout-backend/models/sighting/service"
	"github.com/BirdScout/bird-scout-backend/models/tour"
	tourservice "github.com/BirdScout/bird-scout-backend/models/tour/service"
	userservice "github.com/BirdScout/bird-scout-backend/models/user/service"
	"github.com/BirdScout/bird-scout-backend/pkg/catalog"
	"github.com/BirdScout/bird-scout-backend/router"
	"github.com/BirdScout/bird-scout-backend/services"
	"github.com/BirdScout/bird-scout-backend/store/sqlite"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/supabase-community/supabase-go"
)

const version = "1.0.0"

func main() {
	logger.InitLogger()
	log := logger.GetLogger()
	defer func() {
		if err := logger.Close(); err != nil {
			log.Errorw("Failed to close logger", "error", err)
		}
	}()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Server.Environment == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Local store: everything the app shows works off this cache.
	db, err := sqlite.Open(ctx, cfg.LocalStore.Path)
	if err != nil {
		log.Fatalf("Failed to open local store: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Errorw("Failed to close local store", "error", err)
		}
	}()

	tourStore := sqlite.NewTourStore(db)
	participantStore := sqlite.NewParticipantStore(db)
	taskStore := sqlite.NewSyncTaskStore(db, cfg.Sync.MaxAttempts)
	userStore := sqlite.NewUserStore(db)
	catalogStore := sqlite.NewCatalogStore(db)
	sightingStore := sqlite.NewSightingStore(db)
	mediaStore := sqlite.NewMediaStore(db)

	// Redis backs the sighting density aggregation.
	redisOptions := &redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	if cfg.Redis.UseTLS {
		redisOptions.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}
	redisClient := redis.NewClient(redisOptions)
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Errorw("Failed to close redis client", "error", err)
		}
	}()

	// Cloud backend and identity provider.
	backend := services.NewBackendService(services.BackendServiceConfig{
		SupabaseURL: cfg.ExternalServices.SupabaseURL,
		SupabaseKey: cfg.ExternalServices.SupabaseServiceKey,
	})
	supabaseClient, err := supabase.NewClient(
		cfg.ExternalServices.SupabaseURL,
		cfg.ExternalServices.SupabaseAnonKey,
		&supabase.ClientOptions{},
	)
	if err != nil {
		log.Fatalf("Failed to create supabase client: %v", err)
	}

	// Infra services.
	heatmapService := services.NewHeatmapService(redisClient)
	weatherService := services.NewWeatherService(cfg.ExternalServices.WeatherBaseURL)
	emailService := services.NewEmailService(&cfg.Email)
	catalogClient := catalog.NewClient(cfg.ExternalServices.CatalogBaseURL, cfg.ExternalServices.CatalogAPIKey)

	var mediaService *services.MediaService
	if cfg.Media.Bucket != "" {
		mediaService, err = services.NewMediaService(&cfg.Media, mediaStore)
		if err != nil {
			log.Fatalf("Failed to create media service: %v", err)
		}
	} else {
		log.Warn("Media storage not configured, uploads disabled")
	}

	// Sync drain worker.
	syncWorker := services.NewSyncWorker(taskStore, services.SyncWorkerConfig{
		PollInterval:    time.Duration(cfg.Sync.PollIntervalSeconds) * time.Second,
		ShutdownTimeout: time.Duration(cfg.Sync.ShutdownTimeoutSeconds) * time.Second,
	}, prometheus.DefaultRegisterer)
	services.RegisterSyncHandlers(syncWorker, services.SyncHandlerDeps{
		Backend:      backend,
		Participants: participantStore,
		Users:        userStore,
		Sightings:    sightingStore,
		Media:        mediaService,
		Heatmap:      heatmapService,
	})

	// Domain services.
	profileService := userservice.NewProfileService(userStore, taskStore, backend, syncWorker, cfg.Server.JwtSecretKey)
	tourService := tourservice.NewTourManagementService(tourStore, userStore, backend)
	coordinator := tour.NewCoordinator(tourStore, participantStore, userStore, taskStore, backend, syncWorker, emailService)
	sightingService := sightingservice.NewSightingService(sightingStore, mediaStore, taskStore, heatmapService, syncWorker)
	catalogService := catalogservice.NewCatalogService(catalogClient, catalogStore)

	if err := syncWorker.Start(ctx); err != nil {
		log.Fatalf("Failed to start sync worker: %v", err)
	}

	healthHandler := handlers.NewHealthHandler(version)
	healthHandler.AddCheck("local_store", db)
	healthHandler.AddCheck("heatmap", heatmapService)

	engine := router.SetupRouter(router.Dependencies{
		Config:             cfg,
		AuthHandler:        handlers.NewAuthHandler(supabaseClient, profileService, cfg),
		UserHandler:        handlers.NewUserHandler(profileService),
		TourHandler:        handlers.NewTourHandler(tourService, weatherService),
		ParticipantHandler: handlers.NewParticipantHandler(coordinator),
		SightingHandler:    handlers.NewSightingHandler(sightingService),
		CatalogHandler:     handlers.NewCatalogHandler(catalogService),
		SyncHandler:        handlers.NewSyncHandler(taskStore, syncWorker),
		HealthHandler:      healthHandler,
		Logger:             log,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Sync.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Server shutdown failed", "error", err)
	}
	if err := syncWorker.Stop(); err != nil {
		log.Errorw("Sync worker shutdown failed", "error", err)
	}
}
