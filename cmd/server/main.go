package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"traffic-watch-go/config"
	"traffic-watch-go/internal/api/handlers"
	"traffic-watch-go/internal/cleanup"
	"traffic-watch-go/internal/core/cropper"
	"traffic-watch-go/internal/db"
	"traffic-watch-go/internal/db/repository"
	"traffic-watch-go/internal/logger"
	"traffic-watch-go/internal/server/sse"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "/config/config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Init(cfg.Log); err != nil {
		log.Errorf("Failed to initialize logger completely: %v", err)
	}

	log.Info("Initializing database...")
	database, err := db.Open(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	log.Info("Database initialization complete.")

	crops := repository.NewCropRepository(database)
	reviews := repository.NewReviewRepository(database)
	factors := repository.NewFactorRepository(database)
	views := repository.NewViewRepository(database)

	sseHub := sse.NewHub()
	go sseHub.Run()

	var cleanupService *cleanup.Service
	if cfg.Cleanup.Enabled {
		interval := time.Duration(cfg.Cleanup.IntervalHours) * time.Hour
		cleanupService = cleanup.NewService(database, cfg.Cleanup.ViewRetentionDays, interval)
		if cleanupService != nil {
			cleanupService.StartBackgroundCleanup()
		}
	}

	cr := cropper.New(cfg.Server.CapturedDir, cfg.Server.SavedDir)

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Statische Bildverzeichnisse
	router.Static("/images", cfg.Server.CapturedDir)
	router.Static(cfg.Server.SavedURL, cfg.Server.SavedDir)

	api := router.Group("/api")
	handlers.NewCameraHandler(cfg, views).RegisterRoutes(api)
	handlers.NewCropHandler(cfg, crops, reviews, cr, sseHub).RegisterRoutes(api)
	handlers.NewReviewHandler(crops, reviews, factors, sseHub).RegisterRoutes(api)
	handlers.NewFactorHandler(factors).RegisterRoutes(api)
	handlers.NewViewHandler(views, reviews).RegisterRoutes(api)
	handlers.NewSystemHandler(sseHub).RegisterRoutes(api)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Infof("Server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")
	cleanupService.StopBackgroundCleanup()
	if err := srv.Close(); err != nil {
		log.Errorf("Server close failed: %v", err)
	}
}
