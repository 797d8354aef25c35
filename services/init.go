package services

import (
	"gorm.io/gorm"

	"github.com/opendesk/mailroom/internal/logger"
	"github.com/opendesk/mailroom/interfaces"
	"github.com/opendesk/mailroom/services/events"
	"github.com/opendesk/mailroom/services/ingestion"
)

type Services struct {
	EventPublisher interfaces.EventPublisher
	Orchestrator   *ingestion.Orchestrator
}

func InitServices(rabbitmqURL string, log logger.Logger, db *gorm.DB, storage interfaces.StorageService) (*Services, error) {
	var publisher interfaces.EventPublisher

	if rabbitmqURL != "" {
		rabbitPublisher, err := events.NewRabbitMQPublisher(rabbitmqURL, log)
		if err != nil {
			return nil, err
		}
		publisher = rabbitPublisher
	} else {
		log.Warn("no RabbitMQ URL configured, ingestion events will not be published")
		publisher = events.NewNoopPublisher()
	}

	services := Services{
		EventPublisher: publisher,
		Orchestrator:   ingestion.NewOrchestrator(log, db, storage, publisher),
	}

	return &services, nil
}
