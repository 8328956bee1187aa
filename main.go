package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/scribehq/scribe-be/internal/api"
	"github.com/scribehq/scribe-be/internal/auth"
	"github.com/scribehq/scribe-be/internal/config"
	"github.com/scribehq/scribe-be/internal/database"
	"github.com/scribehq/scribe-be/internal/logger"
	"github.com/scribehq/scribe-be/internal/maintenance"
	"github.com/scribehq/scribe-be/internal/services"
	"github.com/scribehq/scribe-be/internal/upload"
)

func main() {
	logger.Init()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up upload storage
	uploads, err := upload.NewStore(cfg.UploadsDir, "/uploads")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize upload storage")
	}

	// Set up services
	tokens := auth.NewManager(cfg.JWTSecret, cfg.TokenExpiry)
	userService := services.NewUserService(db)
	postService := services.NewPostService(db)
	categoryService := services.NewCategoryService(db)

	// Set up and run the background uploads janitor
	janitor, err := maintenance.NewJanitor(db, uploads, "@hourly")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize uploads janitor")
	}
	janitor.Run()

	// Set up router
	router := api.NewRouter(tokens, userService, postService, categoryService, uploads, cfg.AllowedOrigins)

	// Set up server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe()")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	janitor.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
