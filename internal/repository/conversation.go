package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/opendesk/mailroom/interfaces"
	"github.com/opendesk/mailroom/internal/models"
	"github.com/opendesk/mailroom/internal/tracing"
	"github.com/opendesk/mailroom/internal/utils"
)

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) interfaces.ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) Create(ctx context.Context, conversation *models.Conversation) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "conversationRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if conversation == nil {
		err := errors.New("conversation cannot be nil")
		tracing.TraceErr(span, err)
		return "", err
	}
	if conversation.MailboxID == "" {
		err := errors.New("conversation mailbox ID cannot be empty")
		tracing.TraceErr(span, err)
		return "", err
	}

	now := utils.Now()
	conversation.UpdatedAt = now

	if err := r.db.WithContext(ctx).Create(conversation).Error; err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	return conversation.ID, nil
}

func (r *conversationRepository) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "conversationRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag("conversation_id", id)

	if id == "" {
		err := errors.New("conversation ID cannot be empty")
		tracing.TraceErr(span, err)
		return nil, err
	}

	var conversation models.Conversation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&conversation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}

	return &conversation, nil
}

func (r *conversationRepository) Update(ctx context.Context, conversation *models.Conversation) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "conversationRepository.Update")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if conversation == nil || conversation.ID == "" {
		err := errors.New("conversation ID cannot be empty")
		tracing.TraceErr(span, err)
		return err
	}
	span.SetTag("conversation_id", conversation.ID)

	conversation.UpdatedAt = utils.Now()

	err := r.db.WithContext(ctx).Save(conversation).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}
