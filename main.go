package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/opendesk/mailroom/config"
	"github.com/opendesk/mailroom/internal/database"
	"github.com/opendesk/mailroom/internal/logger"
	"github.com/opendesk/mailroom/server"
	"github.com/opendesk/mailroom/services"
	"github.com/opendesk/mailroom/services/storage"
)

func usage() {
	fmt.Println("Usage: mailroom <command>")
	fmt.Println("Commands:")
	fmt.Println("  migrate   Run database migrations")
	fmt.Println("  server    Start the application server")
	fmt.Println("  fetch     Run one ingestion pass for every mailbox")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("Config initialization failed: %v", err)
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatalf("Database initialization failed: %v", err)
	}

	switch os.Args[1] {
	case "migrate":

		if err := database.Migrate(db); err != nil {
			log.Fatalf("Database migration failed: %v", err)
		}
		log.Println("Database migration completed successfully")

	case "server":

		log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
		log.Println("Mailroom starting up...")

		srv, err := server.NewServer(cfg, db)
		if err != nil {
			log.Fatalf("Server setup failed: %v", err)
		}

		if err := srv.Run(); err != nil {
			log.Fatalf("Server startup failed: %v", err)
		}

		log.Println("Shutdown complete")

	case "fetch":

		appLogger := logger.NewAppLogger(cfg.Logger)
		appLogger.InitLogger()

		attachmentStore := storage.NewAttachmentStore(*cfg.Storage)

		svcs, err := services.InitServices(cfg.AppConfig.RabbitMQURL, appLogger, db, attachmentStore)
		if err != nil {
			log.Fatalf("Service initialization failed: %v", err)
		}

		results := svcs.Orchestrator.FetchAll(context.Background())
		for mailboxID, result := range results {
			log.Printf("mailbox %s: fetched %d, created %d, errors %d", mailboxID, result.Fetched, result.Created, result.Errors)
		}

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}
