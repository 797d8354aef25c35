package attachments

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opendesk/mailroom/dto"
	"github.com/opendesk/mailroom/internal/logger"
	"github.com/opendesk/mailroom/internal/models"
)

type fakeAttachmentRepo struct {
	created  []*models.Attachment
	contents map[string][]byte
	seq      int
}

func newFakeAttachmentRepo() *fakeAttachmentRepo {
	return &fakeAttachmentRepo{contents: map[string][]byte{}}
}

func (r *fakeAttachmentRepo) Create(ctx context.Context, attachment *models.Attachment, content []byte) (string, error) {
	r.seq++
	if attachment.ID == "" {
		attachment.ID = fmt.Sprintf("file_%d", r.seq)
	}
	attachment.Size = len(content)
	r.created = append(r.created, attachment)
	r.contents[attachment.ID] = content
	return attachment.ID, nil
}

func (r *fakeAttachmentRepo) GetByThreadID(ctx context.Context, threadID string) ([]*models.Attachment, error) {
	return r.created, nil
}

func (r *fakeAttachmentRepo) PublicURL(attachment *models.Attachment) string {
	return "/attachments/" + attachment.ID
}

type fakeThreadRepo struct {
	updated []*models.Thread
}

func (r *fakeThreadRepo) Create(ctx context.Context, thread *models.Thread) (string, error) {
	return thread.ID, nil
}

func (r *fakeThreadRepo) GetByMessageID(ctx context.Context, mailboxID, messageID string) (*models.Thread, error) {
	return nil, nil
}

func (r *fakeThreadRepo) Update(ctx context.Context, thread *models.Thread) error {
	r.updated = append(r.updated, thread)
	return nil
}

func newTestProcessor() (*Processor, *fakeAttachmentRepo, *fakeThreadRepo) {
	appLogger := logger.NewAppLogger(&logger.Config{DevMode: true})
	appLogger.InitLogger()

	attachmentRepo := newFakeAttachmentRepo()
	threadRepo := &fakeThreadRepo{}
	return NewProcessor(appLogger, attachmentRepo, threadRepo), attachmentRepo, threadRepo
}

func testEntities(body string) (*models.Conversation, *models.Thread) {
	conversation := &models.Conversation{ID: "conv_1"}
	thread := &models.Thread{ID: "thrd_1", ConversationID: "conv_1", Body: body}
	return conversation, thread
}

func TestPersist_NoAttachments(t *testing.T) {
	processor, attachmentRepo, threadRepo := newTestProcessor()
	conversation, thread := testEntities("<p>hi</p>")

	err := processor.Persist(context.Background(), &dto.RawMessage{}, conversation, thread)

	assert.NoError(t, err)
	assert.Empty(t, attachmentRepo.created)
	assert.Empty(t, threadRepo.updated)
}

func TestPersist_OrdinaryAttachment(t *testing.T) {
	processor, attachmentRepo, threadRepo := newTestProcessor()
	conversation, thread := testEntities("<p>see attached</p>")

	message := &dto.RawMessage{
		Attachments: []dto.RawAttachment{
			{FileName: "report.pdf", ContentType: "application/pdf", Content: []byte("pdf-bytes")},
		},
	}

	err := processor.Persist(context.Background(), message, conversation, thread)

	assert.NoError(t, err)
	assert.Len(t, attachmentRepo.created, 1)
	assert.False(t, attachmentRepo.created[0].Embedded)
	assert.Equal(t, "thrd_1", attachmentRepo.created[0].ThreadID)
	assert.Equal(t, 9, attachmentRepo.created[0].Size)
	assert.Empty(t, threadRepo.updated)
}

func TestPersist_EmbeddedImageRewritesBody(t *testing.T) {
	processor, attachmentRepo, threadRepo := newTestProcessor()
	conversation, thread := testEntities(`<p>logo: <img src="cid:logo123"> and again <img src="cid:logo123"></p>`)

	message := &dto.RawMessage{
		Attachments: []dto.RawAttachment{
			{FileName: "logo.png", ContentType: "image/png", ContentID: "logo123", Content: []byte("png"), Inline: true},
		},
	}

	err := processor.Persist(context.Background(), message, conversation, thread)

	assert.NoError(t, err)
	assert.Len(t, attachmentRepo.created, 1)
	assert.True(t, attachmentRepo.created[0].Embedded)

	assert.Len(t, threadRepo.updated, 1)
	assert.NotContains(t, thread.Body, "cid:logo123")
	assert.Equal(t, 2, strings.Count(thread.Body, "/attachments/file_1"))
}

func TestPersist_MixedEmbeddedAndOrdinary(t *testing.T) {
	processor, attachmentRepo, threadRepo := newTestProcessor()
	conversation, thread := testEntities(`<p><img src="cid:logo"> and <img src="cid:banner"></p>`)

	message := &dto.RawMessage{
		Attachments: []dto.RawAttachment{
			{FileName: "logo.png", ContentType: "image/png", ContentID: "logo", Content: []byte("l"), Inline: true},
			{FileName: "banner.png", ContentType: "image/png", ContentID: "banner", Content: []byte("b"), Inline: true},
			{FileName: "report.pdf", ContentType: "application/pdf", Content: []byte("pdf-bytes")},
		},
	}

	err := processor.Persist(context.Background(), message, conversation, thread)

	assert.NoError(t, err)
	assert.Len(t, attachmentRepo.created, 3)

	embedded := 0
	for _, attachment := range attachmentRepo.created {
		if attachment.Embedded {
			embedded++
		}
	}
	assert.Equal(t, 2, embedded)

	assert.Len(t, threadRepo.updated, 1)
	assert.NotContains(t, thread.Body, "cid:logo")
	assert.NotContains(t, thread.Body, "cid:banner")
	assert.Contains(t, thread.Body, "/attachments/file_1")
	assert.Contains(t, thread.Body, "/attachments/file_2")
}

func TestPersist_UnresolvedPlaceholderLeftAsIs(t *testing.T) {
	processor, _, threadRepo := newTestProcessor()
	conversation, thread := testEntities(`<img src="cid:known"> <img src="cid:unknown">`)

	message := &dto.RawMessage{
		Attachments: []dto.RawAttachment{
			{FileName: "a.png", ContentType: "image/png", ContentID: "known", Content: []byte("a")},
		},
	}

	err := processor.Persist(context.Background(), message, conversation, thread)

	assert.NoError(t, err)
	assert.Len(t, threadRepo.updated, 1)
	assert.NotContains(t, thread.Body, "cid:known")
	assert.Contains(t, thread.Body, "cid:unknown")
}
