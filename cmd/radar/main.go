package main

import (
	"os"

	"github.com/joho/godotenv"

	"option-radar/internal/cli"
	"option-radar/internal/logging"
)

func main() {
	log := logging.NewLoggerWithConfig(logging.LogConfig{Level: "info", Console: true})

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Error loading .env file")
	}

	if err := cli.NewRootCmd(log).Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
