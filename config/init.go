package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/opendesk/mailroom/internal/database"
	"github.com/opendesk/mailroom/internal/logger"
	"github.com/opendesk/mailroom/internal/tracing"
	"github.com/opendesk/mailroom/services/storage"
)

type Config struct {
	AppConfig *AppConfig
	Logger    *logger.Config
	Tracing   *tracing.JaegerConfig
	Database  *database.Config
	Storage   *storage.Config
	Cron      *CronConfig
}

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig: &AppConfig{},
		Logger:    &logger.Config{},
		Tracing:   &tracing.JaegerConfig{},
		Database:  &database.Config{},
		Storage:   &storage.Config{},
		Cron:      &CronConfig{},
	}

	if err := godotenv.Load(); err != nil {
		log.Print("Unable to load .env file")
	}

	if err := env.Parse(config); err != nil {
		log.Fatalf("Error loading mailroom config: %v", err)
	}

	return config, nil
}
