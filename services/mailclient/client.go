package mailclient

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"

	"github.com/opendesk/mailroom/dto"
	"github.com/opendesk/mailroom/interfaces"
	"github.com/opendesk/mailroom/internal/enum"
	mailroomErrors "github.com/opendesk/mailroom/internal/errors"
	"github.com/opendesk/mailroom/internal/models"
	"github.com/opendesk/mailroom/internal/tracing"
)

// NewClient builds a protocol client for the mailbox configuration. The
// protocol and transport encryption are resolved from the config; callers
// receive the same MailClient surface either way.
func NewClient(mailbox *models.Mailbox) (interfaces.MailClient, error) {
	if mailbox == nil || mailbox.InServer == "" {
		return nil, mailroomErrors.ErrServerNotConfigured
	}

	switch mailbox.InProtocol {
	case enum.ProtocolPOP3:
		return newPOP3Client(mailbox), nil
	case enum.ProtocolIMAP, "":
		return newIMAPClient(mailbox), nil
	default:
		return nil, fmt.Errorf("unsupported mail protocol: %s", mailbox.InProtocol)
	}
}

// TestConnection probes the configured server and reports a human-readable
// outcome. It never returns an error; failures land in the result message.
func TestConnection(ctx context.Context, mailbox *models.Mailbox) dto.ConnectionTestResult {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailclient.TestConnection")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMailbox(span, mailbox.ID)

	client, err := NewClient(mailbox)
	if err != nil {
		tracing.TraceErr(span, err)
		return dto.ConnectionTestResult{Success: false, Message: err.Error()}
	}

	if err := client.Connect(ctx); err != nil {
		tracing.TraceErr(span, err)
		return dto.ConnectionTestResult{Success: false, Message: err.Error()}
	}
	defer client.Close()

	return dto.ConnectionTestResult{
		Success: true,
		Message: fmt.Sprintf("Connected to %s:%d", mailbox.InServer, mailbox.InPort),
	}
}

// ListFolders connects and enumerates the folders on the remote server.
// Folders is empty on failure.
func ListFolders(ctx context.Context, mailbox *models.Mailbox) dto.FolderListResult {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailclient.ListFolders")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMailbox(span, mailbox.ID)

	client, err := NewClient(mailbox)
	if err != nil {
		tracing.TraceErr(span, err)
		return dto.FolderListResult{Success: false, Message: err.Error(), Folders: []string{}}
	}

	if err := client.Connect(ctx); err != nil {
		tracing.TraceErr(span, err)
		return dto.FolderListResult{Success: false, Message: err.Error(), Folders: []string{}}
	}
	defer client.Close()

	folders, err := client.ListFolders(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return dto.FolderListResult{Success: false, Message: err.Error(), Folders: []string{}}
	}

	return dto.FolderListResult{
		Success: true,
		Message: fmt.Sprintf("Found %d folders", len(folders)),
		Folders: folders,
	}
}
