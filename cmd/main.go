package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"pdf-insight-backend/internal/ai"
	"pdf-insight-backend/internal/config"
	"pdf-insight-backend/internal/logger"
	"pdf-insight-backend/internal/telemetry"
	"pdf-insight-backend/middleware"
	"pdf-insight-backend/routes"
	"pdf-insight-backend/services"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	if err := cfg.EnsureDirs(); err != nil {
		log.Fatal("Failed to prepare data directories:", err)
	}

	logger.InitLogger(cfg)

	// Optional tracing
	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracer("pdf-insight-backend", cfg.OTLPEndpoint)
		if err != nil {
			log.Fatal("Failed to initialize tracer:", err)
		}
		defer shutdown()
	}

	// The embedding provider is the one dependency the index cannot run
	// without; an unreachable provider aborts startup.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	embedder, err := ai.NewGeminiEmbedder(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatal("Failed to initialize embedding provider:", err)
	}
	defer embedder.Close()

	extractor := services.NewPDFExtractor(cfg.MaxFileSize * 4)
	index := services.NewSemanticIndex(cfg, embedder, extractor)
	store := services.NewFileStore(cfg.UploadDir(), cfg.MaxFileSize)

	// Pick up any PDFs already sitting in the upload directory.
	scanCtx, scanCancel := context.WithTimeout(context.Background(), 10*time.Minute)
	if scan, err := index.ScanAndIngest(scanCtx, cfg.UploadDir()); err != nil {
		logger.Warn("Startup scan incomplete", "error", err)
	} else {
		logger.Info("Startup scan finished", "scanned", scan.Scanned, "ingested", scan.Ingested)
	}
	scanCancel()

	rescan := services.NewRescanScheduler(index, cfg.UploadDir(), cfg.RescanInterval)
	if err := rescan.Start(); err != nil {
		log.Fatal("Failed to start rescan scheduler:", err)
	}
	defer rescan.Stop()

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.RateLimitMiddleware(cfg))
	if cfg.TracingEnabled {
		router.Use(middleware.TracingMiddleware())
		router.Use(middleware.EnrichTrace())
	}

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Requested-With"}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	// Setup routes
	routes.SetupDocumentRoutes(router, cfg, index, store)
	routes.SetupSearchRoutes(router, index)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
