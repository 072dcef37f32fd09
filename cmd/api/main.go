package main

import (
	"os"

	"github.com/univgates1-stack/univgates-sub001/internal/pkg/logger"
	"github.com/univgates1-stack/univgates-sub001/internal/server"
)

// @title UnivGates API
// @version 1.0
// @description API for the UnivGates university application platform

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token for authorization

func main() {
	srv, err := server.NewServer()
	if err != nil {
		// Setup functions log the details
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
