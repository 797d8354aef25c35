package threads

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/opendesk/mailroom/dto"
	"github.com/opendesk/mailroom/internal/enum"
	mailroomErrors "github.com/opendesk/mailroom/internal/errors"
	"github.com/opendesk/mailroom/internal/logger"
	"github.com/opendesk/mailroom/internal/models"
	"github.com/opendesk/mailroom/services/customers"
)

type fakeConversationRepo struct {
	conversations map[string]*models.Conversation
	seq           int
	updates       int
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{conversations: map[string]*models.Conversation{}}
}

func (r *fakeConversationRepo) Create(ctx context.Context, conversation *models.Conversation) (string, error) {
	r.seq++
	if conversation.ID == "" {
		conversation.ID = fmt.Sprintf("conv_%d", r.seq)
	}
	r.conversations[conversation.ID] = conversation
	return conversation.ID, nil
}

func (r *fakeConversationRepo) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	return r.conversations[id], nil
}

func (r *fakeConversationRepo) Update(ctx context.Context, conversation *models.Conversation) error {
	r.updates++
	r.conversations[conversation.ID] = conversation
	return nil
}

type fakeThreadRepo struct {
	threads map[string]*models.Thread
	seq     int
}

func newFakeThreadRepo() *fakeThreadRepo {
	return &fakeThreadRepo{threads: map[string]*models.Thread{}}
}

func (r *fakeThreadRepo) key(mailboxID, messageID string) string {
	return mailboxID + "|" + messageID
}

func (r *fakeThreadRepo) Create(ctx context.Context, thread *models.Thread) (string, error) {
	if r.threads[r.key(thread.MailboxID, thread.MessageID)] != nil {
		return "", mailroomErrors.ErrDuplicateMessage
	}
	r.seq++
	if thread.ID == "" {
		thread.ID = fmt.Sprintf("thrd_%d", r.seq)
	}
	r.threads[r.key(thread.MailboxID, thread.MessageID)] = thread
	return thread.ID, nil
}

func (r *fakeThreadRepo) GetByMessageID(ctx context.Context, mailboxID, messageID string) (*models.Thread, error) {
	return r.threads[r.key(mailboxID, messageID)], nil
}

func (r *fakeThreadRepo) Update(ctx context.Context, thread *models.Thread) error {
	r.threads[r.key(thread.MailboxID, thread.MessageID)] = thread
	return nil
}

type fakeUserRepo struct {
	users map[string]*models.User
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.users[email], nil
}

type fakeCustomerRepo struct {
	customers map[string]*models.Customer
	seq       int
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{customers: map[string]*models.Customer{}}
}

func (r *fakeCustomerRepo) GetByEmail(ctx context.Context, email string) (*models.Customer, error) {
	return r.customers[email], nil
}

func (r *fakeCustomerRepo) Create(ctx context.Context, customer *models.Customer) (string, error) {
	r.seq++
	if customer.ID == "" {
		customer.ID = fmt.Sprintf("cust_%d", r.seq)
	}
	for _, email := range customer.Emails {
		r.customers[email] = customer
	}
	return customer.ID, nil
}

func (r *fakeCustomerRepo) Update(ctx context.Context, customer *models.Customer) error {
	return nil
}

type fixture struct {
	resolver         *Resolver
	conversationRepo *fakeConversationRepo
	threadRepo       *fakeThreadRepo
	userRepo         *fakeUserRepo
	customerRepo     *fakeCustomerRepo
	mailbox          *models.Mailbox
}

func newFixture() *fixture {
	appLogger := logger.NewAppLogger(&logger.Config{DevMode: true})
	appLogger.InitLogger()

	conversationRepo := newFakeConversationRepo()
	threadRepo := newFakeThreadRepo()
	userRepo := &fakeUserRepo{users: map[string]*models.User{}}
	customerRepo := newFakeCustomerRepo()
	registrar := customers.NewRegistrar(appLogger, customerRepo, userRepo)

	return &fixture{
		resolver:         NewResolver(appLogger, conversationRepo, threadRepo, userRepo, registrar),
		conversationRepo: conversationRepo,
		threadRepo:       threadRepo,
		userRepo:         userRepo,
		customerRepo:     customerRepo,
		mailbox:          &models.Mailbox{ID: "mbox_1", Email: "support@acme.com"},
	}
}

func customerMessage(messageID string) *dto.RawMessage {
	return &dto.RawMessage{
		MessageID: messageID,
		Subject:   "Re: Printer broken",
		Date:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		From:      []dto.EmailAddress{{Name: "John Doe", Address: "john@example.com"}},
		To:        []dto.EmailAddress{{Address: "support@acme.com"}},
	}
}

func TestResolve_NewConversation(t *testing.T) {
	f := newFixture()

	resolution, err := f.resolver.Resolve(context.Background(), f.mailbox, customerMessage("msg1@example.com"), "body", nil)

	assert.NoError(t, err)
	assert.True(t, resolution.IsNew)
	assert.False(t, resolution.AuthorIsUser)

	conversation := resolution.Conversation
	assert.Equal(t, "mbox_1", conversation.MailboxID)
	assert.Equal(t, "INBOX", conversation.Folder)
	assert.Equal(t, "Printer broken", conversation.Subject)
	assert.Equal(t, 1, conversation.ThreadsCount)
	assert.Equal(t, "john@example.com", conversation.CustomerEmail)
	assert.Equal(t, enum.ConversationActive, conversation.Status)

	thread := resolution.Thread
	assert.Equal(t, conversation.ID, thread.ConversationID)
	assert.Equal(t, "msg1@example.com", thread.MessageID)
	assert.Equal(t, enum.ThreadCustomer, thread.Type)
	assert.NotNil(t, thread.CustomerID)
	assert.Nil(t, thread.UserID)
	assert.Equal(t, "body", thread.Body)
}

func TestResolve_ReplyViaInReplyTo(t *testing.T) {
	f := newFixture()

	first, err := f.resolver.Resolve(context.Background(), f.mailbox, customerMessage("msg1@example.com"), "body", nil)
	assert.NoError(t, err)

	reply := customerMessage("msg2@example.com")
	reply.InReplyTo = "<msg1@example.com>"
	reply.Date = first.Conversation.LastReplyAt.Add(time.Hour)

	resolution, err := f.resolver.Resolve(context.Background(), f.mailbox, reply, "reply body", nil)

	assert.NoError(t, err)
	assert.False(t, resolution.IsNew)
	assert.Equal(t, first.Conversation.ID, resolution.Conversation.ID)
	assert.Equal(t, 2, resolution.Conversation.ThreadsCount)
	assert.Equal(t, reply.Date, *resolution.Conversation.LastReplyAt)
	assert.Equal(t, enum.ReplyFromCustomer, resolution.Conversation.LastReplyFrom)
}

func TestResolve_ReferencesProbedMostRecentFirst(t *testing.T) {
	f := newFixture()

	older, err := f.resolver.Resolve(context.Background(), f.mailbox, customerMessage("old@example.com"), "body", nil)
	assert.NoError(t, err)
	newer, err := f.resolver.Resolve(context.Background(), f.mailbox, customerMessage("new@example.com"), "body", nil)
	assert.NoError(t, err)

	reply := customerMessage("msg3@example.com")
	reply.References = []string{"<old@example.com>", "<new@example.com>"}

	resolution, err := f.resolver.Resolve(context.Background(), f.mailbox, reply, "body", nil)

	assert.NoError(t, err)
	assert.False(t, resolution.IsNew)
	assert.Equal(t, newer.Conversation.ID, resolution.Conversation.ID)
	assert.NotEqual(t, older.Conversation.ID, resolution.Conversation.ID)
}

func TestResolve_LastReplyAtNeverRegresses(t *testing.T) {
	f := newFixture()

	first, err := f.resolver.Resolve(context.Background(), f.mailbox, customerMessage("msg1@example.com"), "body", nil)
	assert.NoError(t, err)
	lastReply := *first.Conversation.LastReplyAt

	late := customerMessage("msg2@example.com")
	late.InReplyTo = "msg1@example.com"
	late.Date = lastReply.Add(-time.Hour)

	resolution, err := f.resolver.Resolve(context.Background(), f.mailbox, late, "body", nil)

	assert.NoError(t, err)
	assert.Equal(t, lastReply, *resolution.Conversation.LastReplyAt)
}

func TestResolve_InternalUserAuthor(t *testing.T) {
	f := newFixture()
	userID := "user_1"
	f.userRepo.users["agent@acme.com"] = &models.User{ID: userID, Email: "agent@acme.com"}

	message := customerMessage("msg1@example.com")
	message.From = []dto.EmailAddress{{Name: "Agent Smith", Address: "agent@acme.com"}}

	resolution, err := f.resolver.Resolve(context.Background(), f.mailbox, message, "body", nil)

	assert.NoError(t, err)
	assert.True(t, resolution.AuthorIsUser)
	assert.Equal(t, enum.ThreadMessage, resolution.Thread.Type)
	assert.Equal(t, userID, *resolution.Thread.UserID)
	assert.Nil(t, resolution.Thread.CustomerID)
}

func TestResolve_UserReplyAdvancesLastReplyFrom(t *testing.T) {
	f := newFixture()
	f.userRepo.users["agent@acme.com"] = &models.User{ID: "user_1", Email: "agent@acme.com"}

	first, err := f.resolver.Resolve(context.Background(), f.mailbox, customerMessage("msg1@example.com"), "body", nil)
	assert.NoError(t, err)

	reply := customerMessage("msg2@example.com")
	reply.From = []dto.EmailAddress{{Address: "agent@acme.com"}}
	reply.InReplyTo = "msg1@example.com"
	reply.Date = first.Conversation.LastReplyAt.Add(time.Minute)

	resolution, err := f.resolver.Resolve(context.Background(), f.mailbox, reply, "body", nil)

	assert.NoError(t, err)
	assert.Equal(t, enum.ReplyFromUser, resolution.Conversation.LastReplyFrom)
}

func TestResolve_ForwardedSenderBecomesCustomer(t *testing.T) {
	f := newFixture()

	message := customerMessage("msg1@example.com")
	forwarded := &dto.Participant{Email: "original@example.com", FirstName: "Olive", LastName: "Originator"}

	resolution, err := f.resolver.Resolve(context.Background(), f.mailbox, message, "body", forwarded)

	assert.NoError(t, err)
	assert.Equal(t, "original@example.com", resolution.Conversation.CustomerEmail)
	assert.NotNil(t, f.customerRepo.customers["original@example.com"])
}

func TestResolve_ForwardedSenderMatchingMailboxIgnored(t *testing.T) {
	f := newFixture()

	// an Outlook-style quoted header in a reply surfaces the mailbox's own
	// address as a forwarded sender; identity must fall back to From
	message := customerMessage("msg1@example.com")
	forwarded := &dto.Participant{Email: "Support@Acme.com", FirstName: "Support"}

	resolution, err := f.resolver.Resolve(context.Background(), f.mailbox, message, "body", forwarded)

	assert.NoError(t, err)
	assert.Equal(t, "john@example.com", resolution.Conversation.CustomerEmail)
	assert.Nil(t, f.customerRepo.customers["Support@Acme.com"])
	assert.Nil(t, f.customerRepo.customers["support@acme.com"])
}

func TestResolve_ForwardedInternalUserCarriesNoCustomer(t *testing.T) {
	f := newFixture()
	f.userRepo.users["agent@acme.com"] = &models.User{ID: "user_1", Email: "agent@acme.com"}

	message := customerMessage("msg1@example.com")
	forwarded := &dto.Participant{Email: "agent@acme.com", FirstName: "Agent"}

	resolution, err := f.resolver.Resolve(context.Background(), f.mailbox, message, "body", forwarded)

	assert.NoError(t, err)
	assert.Empty(t, resolution.Conversation.CustomerEmail)
	assert.Nil(t, f.customerRepo.customers["agent@acme.com"])
}

func TestResolve_MissingMessageID(t *testing.T) {
	f := newFixture()

	message := customerMessage("")

	_, err := f.resolver.Resolve(context.Background(), f.mailbox, message, "body", nil)

	assert.Error(t, err)
}

func TestResolve_DuplicateMessagePropagates(t *testing.T) {
	f := newFixture()

	_, err := f.resolver.Resolve(context.Background(), f.mailbox, customerMessage("msg1@example.com"), "body", nil)
	assert.NoError(t, err)

	_, err = f.resolver.Resolve(context.Background(), f.mailbox, customerMessage("msg1@example.com"), "body", nil)

	assert.ErrorIs(t, err, mailroomErrors.ErrDuplicateMessage)
}

func TestResolve_CorrelationScopedToMailbox(t *testing.T) {
	f := newFixture()

	first, err := f.resolver.Resolve(context.Background(), f.mailbox, customerMessage("msg1@example.com"), "body", nil)
	assert.NoError(t, err)

	otherMailbox := &models.Mailbox{ID: "mbox_2", Email: "sales@acme.com"}
	reply := customerMessage("msg2@example.com")
	reply.InReplyTo = "msg1@example.com"

	resolution, err := f.resolver.Resolve(context.Background(), otherMailbox, reply, "body", nil)

	assert.NoError(t, err)
	assert.True(t, resolution.IsNew)
	assert.NotEqual(t, first.Conversation.ID, resolution.Conversation.ID)
}
