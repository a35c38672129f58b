package main

import (
	"os"

	"github.com/frogmembers/api/internal/pkg/logger"
	"github.com/frogmembers/api/internal/server"
)

// @title Frog Members API
// @version 1.0
// @description Membership backend for studying and working abroad

// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Identity provider access token

func main() {
	srv, err := server.NewServer()
	if err != nil {
		// setup errors are logged in detail by the bootstrap functions
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
