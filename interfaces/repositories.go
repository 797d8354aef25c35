package interfaces

import (
	"context"

	"github.com/opendesk/mailroom/internal/enum"
	"github.com/opendesk/mailroom/internal/models"
)

// CustomerRepository is the customer directory consumed by the registrar.
type CustomerRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.Customer, error)
	Create(ctx context.Context, customer *models.Customer) (string, error)
	Update(ctx context.Context, customer *models.Customer) error
}

type ConversationRepository interface {
	Create(ctx context.Context, conversation *models.Conversation) (string, error)
	GetByID(ctx context.Context, id string) (*models.Conversation, error)
	Update(ctx context.Context, conversation *models.Conversation) error
}

// ThreadRepository persists threads. Create must detect message-id conflicts
// at the database level and report ErrDuplicateMessage instead of inserting
// twice, so overlapping runs cannot duplicate a thread.
type ThreadRepository interface {
	Create(ctx context.Context, thread *models.Thread) (string, error)
	GetByMessageID(ctx context.Context, mailboxID, messageID string) (*models.Thread, error)
	Update(ctx context.Context, thread *models.Thread) error
}

type AttachmentRepository interface {
	Create(ctx context.Context, attachment *models.Attachment, content []byte) (string, error)
	GetByThreadID(ctx context.Context, threadID string) ([]*models.Attachment, error)
	PublicURL(attachment *models.Attachment) string
}

// UserRepository answers "is this address an internal agent".
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

type MailboxRepository interface {
	GetByID(ctx context.Context, id string) (*models.Mailbox, error)
	GetAll(ctx context.Context) ([]*models.Mailbox, error)
	UpdateConnectionStatus(ctx context.Context, mailboxID string, status enum.ConnectionStatus, errorMessage string) error
	UpdateLastFetched(ctx context.Context, mailboxID string) error
}
