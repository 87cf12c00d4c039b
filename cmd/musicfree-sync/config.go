package main

import (
	"os"

	"github.com/joho/godotenv"

	"musicfree/internal/config"
)

func loadConfig() (*config.Config, error) {
	envFile := os.Getenv("MUSICFREE_ENV_FILE")
	if envFile == "" {
		envFile = "config/local.env"
	}
	_ = godotenv.Load(envFile)
	return config.Load()
}
