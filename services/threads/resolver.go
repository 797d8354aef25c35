package threads

import (
	"context"
	"strings"

	"github.com/lib/pq"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/opendesk/mailroom/dto"
	"github.com/opendesk/mailroom/internal/enum"
	"github.com/opendesk/mailroom/internal/logger"
	"github.com/opendesk/mailroom/internal/models"
	"github.com/opendesk/mailroom/internal/tracing"
	"github.com/opendesk/mailroom/internal/utils"
	"github.com/opendesk/mailroom/interfaces"
	"github.com/opendesk/mailroom/services/addresses"
	"github.com/opendesk/mailroom/services/customers"
)

// Resolution is the outcome of correlating one message: the conversation it
// belongs to, the thread created for it, and whether the conversation is
// brand new.
type Resolution struct {
	Conversation *models.Conversation
	Thread       *models.Thread
	IsNew        bool
	AuthorIsUser bool
}

// Resolver correlates incoming messages with existing conversations through
// their reply headers. Correlation is scoped to the owning mailbox, so two
// mailboxes receiving the same message each get their own conversation.
type Resolver struct {
	log              logger.Logger
	conversationRepo interfaces.ConversationRepository
	threadRepo       interfaces.ThreadRepository
	userRepo         interfaces.UserRepository
	registrar        *customers.Registrar
}

func NewResolver(
	log logger.Logger,
	conversationRepo interfaces.ConversationRepository,
	threadRepo interfaces.ThreadRepository,
	userRepo interfaces.UserRepository,
	registrar *customers.Registrar,
) *Resolver {
	return &Resolver{
		log:              log,
		conversationRepo: conversationRepo,
		threadRepo:       threadRepo,
		userRepo:         userRepo,
		registrar:        registrar,
	}
}

// Resolve classifies the message as a reply to an existing conversation or
// the start of a new one, then persists the thread and the conversation
// bookkeeping. The body is expected to already have quoted history stripped.
// When forwardedSender is set, the conversation's customer identity is taken
// from it instead of the literal From address.
func (r *Resolver) Resolve(ctx context.Context, mailbox *models.Mailbox, message *dto.RawMessage, body string, forwardedSender *dto.Participant) (*Resolution, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Resolver.Resolve")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMailbox(span, mailbox.ID)

	messageID := utils.NormalizeMessageID(message.MessageID)
	if messageID == "" {
		return nil, errors.New("message has no message-id")
	}

	author, err := r.classifyAuthor(ctx, message.FromAddress())
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	customer, err := r.resolveCustomer(ctx, mailbox, message, forwardedSender, author != nil)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	conversation, err := r.findExisting(ctx, mailbox.ID, message)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	resolution := &Resolution{
		AuthorIsUser: author != nil,
	}

	if conversation == nil {
		conversation = r.newConversation(mailbox, message, customer)
		if _, err := r.conversationRepo.Create(ctx, conversation); err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		resolution.IsNew = true
	}

	thread := r.newThread(mailbox, conversation, message, body, author, customer)
	if _, err := r.threadRepo.Create(ctx, thread); err != nil {
		// duplicate message-ids bubble up untouched so the orchestrator can
		// skip them without counting an error
		tracing.TraceErr(span, err)
		return nil, err
	}

	if !resolution.IsNew {
		r.advanceConversation(conversation, message, author != nil, thread.HasAttachments)
		if err := r.conversationRepo.Update(ctx, conversation); err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
	}

	resolution.Conversation = conversation
	resolution.Thread = thread
	return resolution, nil
}

// classifyAuthor returns the internal user owning the From address, or nil
// for customer mail.
func (r *Resolver) classifyAuthor(ctx context.Context, fromAddress string) (*models.User, error) {
	if fromAddress == "" {
		return nil, nil
	}
	return r.userRepo.GetByEmail(ctx, fromAddress)
}

// resolveCustomer picks the customer identity for the conversation: the
// forwarded original sender when present, otherwise the literal From
// address. A forwarded sender matching the mailbox itself is quoted history,
// not a forward, and is discarded. Internal-user mail without a forwarded
// sender carries no customer identity.
func (r *Resolver) resolveCustomer(ctx context.Context, mailbox *models.Mailbox, message *dto.RawMessage, forwardedSender *dto.Participant, authorIsUser bool) (*models.Customer, error) {
	var identity *dto.Participant

	if forwardedSender != nil && strings.EqualFold(forwardedSender.Email, mailbox.Email) {
		forwardedSender = nil
	}

	if forwardedSender != nil {
		identity = forwardedSender
	} else if !authorIsUser {
		if participants := addresses.ResolveAll(message.From); len(participants) > 0 {
			identity = &participants[0]
		}
	}

	if identity == nil {
		return nil, nil
	}
	return r.registrar.Upsert(ctx, *identity)
}

// findExisting probes In-Reply-To first, then each References id starting
// from the most recent. All lookups are scoped to the mailbox.
func (r *Resolver) findExisting(ctx context.Context, mailboxID string, message *dto.RawMessage) (*models.Conversation, error) {
	var candidates []string
	if inReplyTo := utils.NormalizeMessageID(message.InReplyTo); inReplyTo != "" {
		candidates = append(candidates, inReplyTo)
	}
	for i := len(message.References) - 1; i >= 0; i-- {
		if ref := utils.NormalizeMessageID(message.References[i]); ref != "" {
			candidates = append(candidates, ref)
		}
	}

	for _, candidate := range candidates {
		thread, err := r.threadRepo.GetByMessageID(ctx, mailboxID, candidate)
		if err != nil {
			return nil, err
		}
		if thread == nil {
			continue
		}
		return r.conversationRepo.GetByID(ctx, thread.ConversationID)
	}

	return nil, nil
}

func (r *Resolver) newConversation(mailbox *models.Mailbox, message *dto.RawMessage, customer *models.Customer) *models.Conversation {
	conversation := &models.Conversation{
		MailboxID:      mailbox.ID,
		Folder:         mailbox.FetchFolders()[0],
		Subject:        utils.NormalizeSubject(message.Subject),
		Status:         enum.ConversationActive,
		State:          enum.StatePublished,
		Type:           enum.ConversationEmail,
		ThreadsCount:   1,
		HasAttachments: len(message.Attachments) > 0,
		LastReplyAt:    utils.TimePtr(message.Date),
		LastReplyFrom:  enum.ReplyFromCustomer,
	}

	if customer != nil {
		conversation.CustomerID = customer.ID
		if len(customer.Emails) > 0 {
			conversation.CustomerEmail = customer.Emails[0]
		}
	}

	return conversation
}

func (r *Resolver) newThread(mailbox *models.Mailbox, conversation *models.Conversation, message *dto.RawMessage, body string, author *models.User, customer *models.Customer) *models.Thread {
	thread := &models.Thread{
		ConversationID: conversation.ID,
		MailboxID:      mailbox.ID,
		Type:           enum.ThreadCustomer,
		State:          enum.ThreadStatePublished,
		MessageID:      utils.NormalizeMessageID(message.MessageID),
		InReplyTo:      utils.NormalizeMessageID(message.InReplyTo),
		References:     pq.StringArray(utils.NormalizeMessageIDs(message.References)),
		FromAddress:    message.FromAddress(),
		ToAddresses:    pq.StringArray(addresses.ExtractEmails(message.To)),
		CcAddresses:    pq.StringArray(addresses.ExtractEmails(message.Cc)),
		BccAddresses:   pq.StringArray(addresses.ExtractEmails(message.Bcc)),
		Body:           body,
		Headers:        message.RawHeaders,
		HasAttachments: len(message.Attachments) > 0,
	}

	if author != nil {
		thread.Type = enum.ThreadMessage
		thread.UserID = &author.ID
	} else if customer != nil {
		thread.CustomerID = &customer.ID
	}

	return thread
}

// advanceConversation applies reply bookkeeping: threads_count grows by one,
// last_reply_at never regresses, attachments stick once seen.
func (r *Resolver) advanceConversation(conversation *models.Conversation, message *dto.RawMessage, authorIsUser, hasAttachments bool) {
	conversation.ThreadsCount++

	if conversation.LastReplyAt == nil || message.Date.After(*conversation.LastReplyAt) {
		conversation.LastReplyAt = utils.TimePtr(message.Date)
	}

	if hasAttachments {
		conversation.HasAttachments = true
	}

	if authorIsUser {
		conversation.LastReplyFrom = enum.ReplyFromUser
	} else {
		conversation.LastReplyFrom = enum.ReplyFromCustomer
	}
}
