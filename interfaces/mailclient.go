package interfaces

import (
	"context"

	"github.com/opendesk/mailroom/dto"
)

// MailClient is one live connection to a remote mail store. Implementations
// exist for IMAP and POP3; both surface messages as dto.RawMessage so the
// ingestion pipeline never touches protocol framing.
type MailClient interface {
	// Connect dials and authenticates. A failed connect is fatal for the run.
	Connect(ctx context.Context) error
	Close() error

	// ListFolders returns the folders visible on the server. POP3 servers
	// expose the single canonical inbox.
	ListFolders(ctx context.Context) ([]string, error)

	// FetchMessages retrieves the unseen messages of one folder.
	FetchMessages(ctx context.Context, folder string) ([]*dto.RawMessage, error)
}
