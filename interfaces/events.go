package interfaces

import (
	"context"

	"github.com/opendesk/mailroom/internal/models"
)

// EventPublisher notifies the surrounding application about ingestion
// outcomes: once per new conversation and once per customer reply. Publish
// failures are logged, never surfaced as run errors.
type EventPublisher interface {
	PublishConversationCreated(ctx context.Context, conversation *models.Conversation, thread *models.Thread)
	PublishCustomerReplied(ctx context.Context, conversation *models.Conversation, thread *models.Thread)
	Close() error
}
