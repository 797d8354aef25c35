package repository

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/opendesk/mailroom/interfaces"
	"github.com/opendesk/mailroom/internal/models"
	"github.com/opendesk/mailroom/internal/tracing"
	"github.com/opendesk/mailroom/internal/utils"
)

type attachmentRepository struct {
	db      *gorm.DB
	storage interfaces.StorageService
}

func NewAttachmentRepository(db *gorm.DB, storage interfaces.StorageService) interfaces.AttachmentRepository {
	return &attachmentRepository{
		db:      db,
		storage: storage,
	}
}

// Create stores the attachment bytes in object storage and the record in the
// database. The storage key is derived from the generated attachment ID.
func (r *attachmentRepository) Create(ctx context.Context, attachment *models.Attachment, content []byte) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "attachmentRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if attachment == nil {
		err := errors.New("attachment cannot be nil")
		tracing.TraceErr(span, err)
		return "", err
	}
	if attachment.ThreadID == "" || attachment.ConversationID == "" {
		err := errors.New("attachment thread and conversation IDs cannot be empty")
		tracing.TraceErr(span, err)
		return "", err
	}

	if attachment.ID == "" {
		attachment.ID = utils.GenerateNanoIDWithPrefix("file", 12)
	}
	attachment.Size = len(content)
	attachment.StorageKey = fmt.Sprintf("%s/%s/%s", attachment.ConversationID, attachment.ThreadID, attachment.ID)

	if len(content) > 0 && r.storage != nil {
		if err := r.storage.Upload(ctx, attachment.StorageKey, content, attachment.MimeType); err != nil {
			tracing.TraceErr(span, err)
			return "", errors.Wrap(err, "failed to upload attachment content")
		}
	}

	if err := r.db.WithContext(ctx).Create(attachment).Error; err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	return attachment.ID, nil
}

func (r *attachmentRepository) GetByThreadID(ctx context.Context, threadID string) ([]*models.Attachment, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "attachmentRepository.GetByThreadID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag("thread_id", threadID)

	if threadID == "" {
		err := errors.New("thread ID cannot be empty")
		tracing.TraceErr(span, err)
		return nil, err
	}

	var attachments []*models.Attachment
	err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at ASC").
		Find(&attachments).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return attachments, nil
}

// PublicURL resolves the stored location of an attachment's bytes, used when
// rewriting cid: placeholders in HTML bodies.
func (r *attachmentRepository) PublicURL(attachment *models.Attachment) string {
	if attachment == nil || attachment.StorageKey == "" {
		return ""
	}
	if r.storage != nil {
		if url := r.storage.GetPublicURL(attachment.StorageKey); url != "" {
			return url
		}
	}
	return "/attachments/" + attachment.ID
}
