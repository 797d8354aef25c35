package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/opendesk/mailroom/interfaces"
	"github.com/opendesk/mailroom/internal/enum"
	mailroomErrors "github.com/opendesk/mailroom/internal/errors"
	"github.com/opendesk/mailroom/internal/models"
	"github.com/opendesk/mailroom/internal/tracing"
	"github.com/opendesk/mailroom/internal/utils"
)

type mailboxRepository struct {
	db *gorm.DB
}

func NewMailboxRepository(db *gorm.DB) interfaces.MailboxRepository {
	return &mailboxRepository{db: db}
}

func (r *mailboxRepository) GetByID(ctx context.Context, id string) (*models.Mailbox, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailboxRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagMailbox(span, id)

	if id == "" {
		err := errors.New("mailbox ID cannot be empty")
		tracing.TraceErr(span, err)
		return nil, err
	}

	var mailbox models.Mailbox
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&mailbox).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, mailroomErrors.ErrMailboxNotFound
		}
		tracing.TraceErr(span, err)
		return nil, err
	}

	return &mailbox, nil
}

func (r *mailboxRepository) GetAll(ctx context.Context) ([]*models.Mailbox, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailboxRepository.GetAll")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var mailboxes []*models.Mailbox
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&mailboxes).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return mailboxes, nil
}

func (r *mailboxRepository) UpdateConnectionStatus(ctx context.Context, mailboxID string, status enum.ConnectionStatus, errorMessage string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailboxRepository.UpdateConnectionStatus")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagMailbox(span, mailboxID)

	err := r.db.WithContext(ctx).
		Model(&models.Mailbox{}).
		Where("id = ?", mailboxID).
		Updates(map[string]interface{}{
			"connection_status": status,
			"connection_error":  errorMessage,
			"updated_at":        utils.Now(),
		}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}

func (r *mailboxRepository) UpdateLastFetched(ctx context.Context, mailboxID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailboxRepository.UpdateLastFetched")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagMailbox(span, mailboxID)

	err := r.db.WithContext(ctx).
		Model(&models.Mailbox{}).
		Where("id = ?", mailboxID).
		Updates(map[string]interface{}{
			"last_fetched_at": utils.Now(),
			"updated_at":      utils.Now(),
		}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}
