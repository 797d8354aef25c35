package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/opendesk/mailroom/interfaces"
	mailroomErrors "github.com/opendesk/mailroom/internal/errors"
	"github.com/opendesk/mailroom/internal/models"
	"github.com/opendesk/mailroom/internal/tracing"
	"github.com/opendesk/mailroom/internal/utils"
)

type threadRepository struct {
	db *gorm.DB
}

func NewThreadRepository(db *gorm.DB) interfaces.ThreadRepository {
	return &threadRepository{db: db}
}

// Create inserts a thread. Message-id uniqueness is enforced by the
// (mailbox_id, message_id) index: a conflicting insert affects zero rows and
// is reported as ErrDuplicateMessage so overlapping runs stay idempotent.
func (r *threadRepository) Create(ctx context.Context, thread *models.Thread) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if thread == nil {
		err := errors.New("thread cannot be nil")
		tracing.TraceErr(span, err)
		return "", err
	}
	if thread.ConversationID == "" || thread.MailboxID == "" {
		err := errors.New("thread conversation and mailbox IDs cannot be empty")
		tracing.TraceErr(span, err)
		return "", err
	}

	thread.MessageID = utils.NormalizeMessageID(thread.MessageID)
	if thread.MessageID == "" {
		err := errors.New("thread message ID cannot be empty")
		tracing.TraceErr(span, err)
		return "", err
	}
	span.SetTag("message_id", thread.MessageID)

	thread.UpdatedAt = utils.Now()

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "mailbox_id"}, {Name: "message_id"}},
			DoNothing: true,
		}).
		Create(thread)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return "", result.Error
	}
	if result.RowsAffected == 0 {
		return "", mailroomErrors.ErrDuplicateMessage
	}

	return thread.ID, nil
}

// GetByMessageID looks up a thread by stored message id, scoped to the
// owning mailbox so a reply can never match another mailbox's conversation.
func (r *threadRepository) GetByMessageID(ctx context.Context, mailboxID, messageID string) (*models.Thread, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadRepository.GetByMessageID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag("message_id", messageID)

	if mailboxID == "" {
		err := errors.New("mailbox ID cannot be empty")
		tracing.TraceErr(span, err)
		return nil, err
	}

	messageID = utils.NormalizeMessageID(messageID)
	if messageID == "" {
		return nil, nil
	}

	var thread models.Thread
	err := r.db.WithContext(ctx).
		Where("mailbox_id = ? AND message_id = ?", mailboxID, messageID).
		First(&thread).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}

	return &thread, nil
}

func (r *threadRepository) Update(ctx context.Context, thread *models.Thread) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadRepository.Update")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if thread == nil || thread.ID == "" {
		err := errors.New("thread ID cannot be empty")
		tracing.TraceErr(span, err)
		return err
	}
	span.SetTag("thread_id", thread.ID)

	thread.UpdatedAt = utils.Now()

	err := r.db.WithContext(ctx).Save(thread).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}
