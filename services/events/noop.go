package events

import (
	"context"

	"github.com/opendesk/mailroom/internal/models"
	"github.com/opendesk/mailroom/interfaces"
)

// noopPublisher swallows events. Used when no broker is configured.
type noopPublisher struct{}

func NewNoopPublisher() interfaces.EventPublisher {
	return noopPublisher{}
}

func (noopPublisher) PublishConversationCreated(ctx context.Context, conversation *models.Conversation, thread *models.Thread) {
}

func (noopPublisher) PublishCustomerReplied(ctx context.Context, conversation *models.Conversation, thread *models.Thread) {
}

func (noopPublisher) Close() error {
	return nil
}
