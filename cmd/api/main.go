package main

import (
	"os"

	"github.com/machus/backend/internal/pkg/logger"
	"github.com/machus/backend/internal/server"
)

// @title M@CHUS API
// @version 1.0
// @description Campus social API: activity posts whose authors reveal their real name to participants.

// @host localhost:4040
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token for authorization, as "Bearer <token>"

func main() {
	srv, err := server.NewServer()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
