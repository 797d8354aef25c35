package ingestion

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/opendesk/mailroom/dto"
	"github.com/opendesk/mailroom/internal/enum"
	mailroomErrors "github.com/opendesk/mailroom/internal/errors"
	"github.com/opendesk/mailroom/internal/logger"
	"github.com/opendesk/mailroom/internal/models"
	"github.com/opendesk/mailroom/internal/repository"
	"github.com/opendesk/mailroom/interfaces"
	"github.com/opendesk/mailroom/services/threads"
)

type fakeMailClient struct {
	connectErr error
	folders    map[string][]*dto.RawMessage
	fetchErr   map[string]error
	closed     bool
}

func (c *fakeMailClient) Connect(ctx context.Context) error { return c.connectErr }
func (c *fakeMailClient) Close() error {
	c.closed = true
	return nil
}

func (c *fakeMailClient) ListFolders(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(c.folders))
	for name := range c.folders {
		names = append(names, name)
	}
	return names, nil
}

func (c *fakeMailClient) FetchMessages(ctx context.Context, folder string) ([]*dto.RawMessage, error) {
	if err := c.fetchErr[folder]; err != nil {
		return nil, err
	}
	return c.folders[folder], nil
}

type fakeMailboxRepo struct {
	mailboxes   []*models.Mailbox
	statuses    []enum.ConnectionStatus
	lastFetched int
}

func (r *fakeMailboxRepo) GetByID(ctx context.Context, id string) (*models.Mailbox, error) {
	for _, mailbox := range r.mailboxes {
		if mailbox.ID == id {
			return mailbox, nil
		}
	}
	return nil, errors.New("mailbox not found")
}

func (r *fakeMailboxRepo) GetAll(ctx context.Context) ([]*models.Mailbox, error) {
	return r.mailboxes, nil
}

func (r *fakeMailboxRepo) UpdateConnectionStatus(ctx context.Context, mailboxID string, status enum.ConnectionStatus, errorMessage string) error {
	r.statuses = append(r.statuses, status)
	return nil
}

func (r *fakeMailboxRepo) UpdateLastFetched(ctx context.Context, mailboxID string) error {
	r.lastFetched++
	return nil
}

type fakePublisher struct {
	created []string
	replied []string
}

func (p *fakePublisher) PublishConversationCreated(ctx context.Context, conversation *models.Conversation, thread *models.Thread) {
	p.created = append(p.created, conversation.ID)
}

func (p *fakePublisher) PublishCustomerReplied(ctx context.Context, conversation *models.Conversation, thread *models.Thread) {
	p.replied = append(p.replied, conversation.ID)
}

func (p *fakePublisher) Close() error { return nil }

func testOrchestrator(client interfaces.MailClient, clientErr error) (*Orchestrator, *fakeMailboxRepo, *fakePublisher) {
	appLogger := logger.NewAppLogger(&logger.Config{DevMode: true})
	appLogger.InitLogger()

	mailboxRepo := &fakeMailboxRepo{}
	publisher := &fakePublisher{}

	o := &Orchestrator{
		log:       appLogger,
		publisher: publisher,
		repos:     &repository.Repositories{MailboxRepository: mailboxRepo},
		newClient: func(mailbox *models.Mailbox) (interfaces.MailClient, error) {
			if clientErr != nil {
				return nil, clientErr
			}
			return client, nil
		},
	}
	return o, mailboxRepo, publisher
}

func testMailbox() *models.Mailbox {
	return &models.Mailbox{
		ID:       "mbox_1",
		Email:    "support@acme.com",
		InServer: "imap.acme.com",
		InPort:   993,
	}
}

func TestFetch_NoIncomingServer(t *testing.T) {
	o, mailboxRepo, _ := testOrchestrator(nil, nil)

	mailbox := testMailbox()
	mailbox.InServer = ""
	result := o.Fetch(context.Background(), mailbox)

	assert.Equal(t, 0, result.Fetched)
	assert.Equal(t, 0, result.Errors)
	assert.Len(t, result.Messages, 1)
	assert.Empty(t, mailboxRepo.statuses)
}

func TestFetch_ConnectionFailure(t *testing.T) {
	client := &fakeMailClient{connectErr: errors.New("dial tcp: refused")}
	o, mailboxRepo, _ := testOrchestrator(client, nil)

	result := o.Fetch(context.Background(), testMailbox())

	assert.Equal(t, 0, result.Fetched)
	assert.Equal(t, 1, result.Errors)
	assert.Equal(t, []enum.ConnectionStatus{enum.ConnectionNotActive}, mailboxRepo.statuses)
	assert.Equal(t, 0, mailboxRepo.lastFetched)
}

func TestFetch_ParseErrorCountsAsError(t *testing.T) {
	client := &fakeMailClient{
		folders: map[string][]*dto.RawMessage{
			"INBOX": {{ParseError: "malformed MIME"}},
		},
	}
	o, mailboxRepo, publisher := testOrchestrator(client, nil)
	o.ingest = func(ctx context.Context, mailbox *models.Mailbox, message *dto.RawMessage) (*threads.Resolution, error) {
		t.Fatal("unparseable message must not reach the pipeline")
		return nil, nil
	}

	result := o.Fetch(context.Background(), testMailbox())

	assert.Equal(t, 1, result.Fetched)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.Errors)
	assert.Empty(t, publisher.created)
	assert.Equal(t, []enum.ConnectionStatus{enum.ConnectionActive}, mailboxRepo.statuses)
}

func TestFetch_DuplicateIsSkippedSilently(t *testing.T) {
	client := &fakeMailClient{
		folders: map[string][]*dto.RawMessage{
			"INBOX": {{MessageID: "<dup@example.com>"}},
		},
	}
	o, _, publisher := testOrchestrator(client, nil)
	o.ingest = func(ctx context.Context, mailbox *models.Mailbox, message *dto.RawMessage) (*threads.Resolution, error) {
		return nil, errors.Wrap(mailroomErrors.ErrDuplicateMessage, "thread create")
	}

	result := o.Fetch(context.Background(), testMailbox())

	assert.Equal(t, 1, result.Fetched)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 0, result.Errors)
	assert.Empty(t, publisher.created)
	assert.Empty(t, publisher.replied)
}

func TestFetch_NewConversationPublishesCreated(t *testing.T) {
	client := &fakeMailClient{
		folders: map[string][]*dto.RawMessage{
			"INBOX": {
				{MessageID: "<one@example.com>"},
				{MessageID: "<two@example.com>"},
			},
		},
	}
	o, mailboxRepo, publisher := testOrchestrator(client, nil)
	o.ingest = func(ctx context.Context, mailbox *models.Mailbox, message *dto.RawMessage) (*threads.Resolution, error) {
		return &threads.Resolution{
			Conversation: &models.Conversation{ID: "conv_" + message.MessageID},
			Thread:       &models.Thread{ID: "thrd_1"},
			IsNew:        true,
		}, nil
	}

	result := o.Fetch(context.Background(), testMailbox())

	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 0, result.Errors)
	assert.Len(t, publisher.created, 2)
	assert.Empty(t, publisher.replied)
	assert.Equal(t, 1, mailboxRepo.lastFetched)
	assert.True(t, client.closed)
}

func TestFetch_CustomerReplyPublishesReplied(t *testing.T) {
	client := &fakeMailClient{
		folders: map[string][]*dto.RawMessage{
			"INBOX": {{MessageID: "<reply@example.com>"}},
		},
	}
	o, _, publisher := testOrchestrator(client, nil)
	o.ingest = func(ctx context.Context, mailbox *models.Mailbox, message *dto.RawMessage) (*threads.Resolution, error) {
		return &threads.Resolution{
			Conversation: &models.Conversation{ID: "conv_1"},
			Thread:       &models.Thread{ID: "thrd_2"},
			IsNew:        false,
			AuthorIsUser: false,
		}, nil
	}

	result := o.Fetch(context.Background(), testMailbox())

	assert.Equal(t, 0, result.Created)
	assert.Empty(t, publisher.created)
	assert.Equal(t, []string{"conv_1"}, publisher.replied)
	assert.Equal(t, 1, result.Fetched)
}

func TestFetch_UserReplyPublishesNothing(t *testing.T) {
	client := &fakeMailClient{
		folders: map[string][]*dto.RawMessage{
			"INBOX": {{MessageID: "<agent@example.com>"}},
		},
	}
	o, _, publisher := testOrchestrator(client, nil)
	o.ingest = func(ctx context.Context, mailbox *models.Mailbox, message *dto.RawMessage) (*threads.Resolution, error) {
		return &threads.Resolution{
			Conversation: &models.Conversation{ID: "conv_1"},
			Thread:       &models.Thread{ID: "thrd_3"},
			IsNew:        false,
			AuthorIsUser: true,
		}, nil
	}

	o.Fetch(context.Background(), testMailbox())

	assert.Empty(t, publisher.created)
	assert.Empty(t, publisher.replied)
}

func TestFetch_FolderErrorDoesNotAbortOthers(t *testing.T) {
	mailbox := testMailbox()
	mailbox.InFolders = []string{"INBOX", "Support"}

	client := &fakeMailClient{
		folders: map[string][]*dto.RawMessage{
			"Support": {{MessageID: "<ok@example.com>"}},
		},
		fetchErr: map[string]error{"INBOX": errors.New("folder gone")},
	}
	o, _, _ := testOrchestrator(client, nil)
	o.ingest = func(ctx context.Context, mailbox *models.Mailbox, message *dto.RawMessage) (*threads.Resolution, error) {
		return &threads.Resolution{
			Conversation: &models.Conversation{ID: "conv_1"},
			Thread:       &models.Thread{ID: "thrd_1"},
			IsNew:        true,
		}, nil
	}

	result := o.Fetch(context.Background(), mailbox)

	assert.Equal(t, 1, result.Fetched)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Errors)
}

func TestFetchAll_RunsEveryMailbox(t *testing.T) {
	client := &fakeMailClient{folders: map[string][]*dto.RawMessage{}}
	o, mailboxRepo, _ := testOrchestrator(client, nil)
	mailboxRepo.mailboxes = []*models.Mailbox{
		testMailbox(),
		{ID: "mbox_2", Email: "sales@acme.com", InServer: "imap.acme.com", InPort: 993},
	}

	results := o.FetchAll(context.Background())

	assert.Len(t, results, 2)
	assert.Contains(t, results, "mbox_1")
	assert.Contains(t, results, "mbox_2")
}
