package ingestion

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/opendesk/mailroom/dto"
	"github.com/opendesk/mailroom/internal/enum"
	mailroomErrors "github.com/opendesk/mailroom/internal/errors"
	"github.com/opendesk/mailroom/internal/logger"
	"github.com/opendesk/mailroom/internal/models"
	"github.com/opendesk/mailroom/internal/repository"
	"github.com/opendesk/mailroom/internal/tracing"
	"github.com/opendesk/mailroom/interfaces"
	"github.com/opendesk/mailroom/services/attachments"
	"github.com/opendesk/mailroom/services/bodyparse"
	"github.com/opendesk/mailroom/services/customers"
	"github.com/opendesk/mailroom/services/mailclient"
	"github.com/opendesk/mailroom/services/threads"
)

// Orchestrator drives one ingestion run per mailbox: fetch, then a
// per-message pipeline of participant registration, quote stripping, thread
// correlation and attachment persistence. Each message is processed inside
// its own database transaction; one bad message never aborts the batch.
type Orchestrator struct {
	log       logger.Logger
	db        *gorm.DB
	storage   interfaces.StorageService
	publisher interfaces.EventPublisher
	repos     *repository.Repositories

	// swappable for tests
	newClient func(mailbox *models.Mailbox) (interfaces.MailClient, error)
	ingest    func(ctx context.Context, mailbox *models.Mailbox, message *dto.RawMessage) (*threads.Resolution, error)
}

func NewOrchestrator(log logger.Logger, db *gorm.DB, storage interfaces.StorageService, publisher interfaces.EventPublisher) *Orchestrator {
	o := &Orchestrator{
		log:       log,
		db:        db,
		storage:   storage,
		publisher: publisher,
		repos:     repository.InitRepositories(db, storage),
		newClient: mailclient.NewClient,
	}
	o.ingest = o.ingestMessage
	return o
}

// Fetch runs one ingestion pass for the mailbox and reports its statistics.
// It never returns an error; every failure is folded into the result.
func (o *Orchestrator) Fetch(ctx context.Context, mailbox *models.Mailbox) *dto.FetchResult {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Orchestrator.Fetch")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMailbox(span, mailbox.ID)

	result := &dto.FetchResult{Messages: []string{}}

	if mailbox.InServer == "" {
		result.AddMessage("no incoming server configured for %s", mailbox.Email)
		return result
	}

	o.log.Infof("starting fetch for %s (%s:%d)", mailbox.Email, mailbox.InServer, mailbox.InPort)

	client, err := o.newClient(mailbox)
	if err != nil {
		tracing.TraceErr(span, err)
		o.log.Errorf("cannot build mail client for %s: %v", mailbox.Email, err)
		result.AddError("connection failed: %v", err)
		o.markConnection(ctx, mailbox.ID, enum.ConnectionNotActive, err)
		return result
	}

	if err := client.Connect(ctx); err != nil {
		tracing.TraceErr(span, err)
		o.log.Errorf("connection failed for %s: %v", mailbox.Email, err)
		result.AddError("connection failed: %v", err)
		o.markConnection(ctx, mailbox.ID, enum.ConnectionNotActive, err)
		return result
	}
	defer client.Close()

	o.markConnection(ctx, mailbox.ID, enum.ConnectionActive, nil)

	for _, folder := range mailbox.FetchFolders() {
		messages, err := client.FetchMessages(ctx, folder)
		if err != nil {
			tracing.TraceErr(span, err)
			result.AddError("error fetching folder %s: %v", folder, err)
			continue
		}

		for _, message := range messages {
			result.Fetched++
			o.processMessage(ctx, mailbox, folder, message, result)
		}
	}

	if err := o.repos.MailboxRepository.UpdateLastFetched(ctx, mailbox.ID); err != nil {
		tracing.TraceErr(span, err)
		o.log.Errorf("failed to update last fetched for %s: %v", mailbox.ID, err)
	}

	result.AddMessage("fetched %d messages, created %d conversations, %d errors", result.Fetched, result.Created, result.Errors)
	return result
}

// processMessage runs the per-message pipeline and folds the outcome into
// the result. Duplicates are skipped silently; real failures increment the
// error counter with a diagnostic line.
func (o *Orchestrator) processMessage(ctx context.Context, mailbox *models.Mailbox, folder string, message *dto.RawMessage, result *dto.FetchResult) {
	if message.ParseError != "" {
		result.AddError("unparseable message in %s: %s", folder, message.ParseError)
		return
	}

	resolution, err := o.ingest(ctx, mailbox, message)
	if err != nil {
		if errors.Cause(err) == mailroomErrors.ErrDuplicateMessage {
			result.AddMessage("skipped duplicate message %s", message.MessageID)
			return
		}
		result.AddError("error processing message %s: %v", message.MessageID, err)
		return
	}

	// Events fire only after the transaction committed
	if resolution.IsNew {
		result.Created++
		o.publisher.PublishConversationCreated(ctx, resolution.Conversation, resolution.Thread)
	} else if !resolution.AuthorIsUser {
		o.publisher.PublishCustomerReplied(ctx, resolution.Conversation, resolution.Thread)
	}
}

// ingestMessage persists one message atomically. A panic inside the
// pipeline is converted into an error so the caller can keep iterating.
func (o *Orchestrator) ingestMessage(ctx context.Context, mailbox *models.Mailbox, message *dto.RawMessage) (resolution *threads.Resolution, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic while processing message %s: %v", message.MessageID, r)
			o.log.Errorf("%v", err)
		}
	}()

	err = o.db.Transaction(func(tx *gorm.DB) error {
		repos := repository.InitRepositories(tx, o.storage)

		registrar := customers.NewRegistrar(o.log, repos.CustomerRepository, repos.UserRepository)
		resolver := threads.NewResolver(o.log, repos.ConversationRepository, repos.ThreadRepository, repos.UserRepository, registrar)
		processor := attachments.NewProcessor(o.log, repos.AttachmentRepository, repos.ThreadRepository)

		if err := registrar.RegisterParticipants(ctx, message, mailbox.Email); err != nil {
			return err
		}

		body, isHTML := pickBody(message)
		forwardedSender := bodyparse.ExtractOriginalSender(body)
		content := bodyparse.SplitNewContent(body, isHTML, message.IsReply())

		res, err := resolver.Resolve(ctx, mailbox, message, content, forwardedSender)
		if err != nil {
			return err
		}

		if err := processor.Persist(ctx, message, res.Conversation, res.Thread); err != nil {
			return err
		}

		resolution = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resolution, nil
}

func (o *Orchestrator) markConnection(ctx context.Context, mailboxID string, status enum.ConnectionStatus, cause error) {
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	if err := o.repos.MailboxRepository.UpdateConnectionStatus(ctx, mailboxID, status, message); err != nil {
		o.log.Errorf("failed to update connection status for %s: %v", mailboxID, err)
	}
}

// pickBody prefers the HTML body and falls back to plain text.
func pickBody(message *dto.RawMessage) (string, bool) {
	if message.BodyHTML != "" {
		return message.BodyHTML, true
	}
	return message.BodyText, false
}

// FetchAll runs Fetch for every mailbox on record, sequentially.
func (o *Orchestrator) FetchAll(ctx context.Context) map[string]*dto.FetchResult {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Orchestrator.FetchAll")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	results := make(map[string]*dto.FetchResult)

	mailboxes, err := o.repos.MailboxRepository.GetAll(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		o.log.Errorf("failed to list mailboxes: %v", err)
		return results
	}

	for _, mailbox := range mailboxes {
		results[mailbox.ID] = o.Fetch(ctx, mailbox)
	}

	return results
}
