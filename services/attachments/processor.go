package attachments

import (
	"context"
	"strings"

	"github.com/opentracing/opentracing-go"

	"github.com/opendesk/mailroom/dto"
	"github.com/opendesk/mailroom/internal/logger"
	"github.com/opendesk/mailroom/internal/models"
	"github.com/opendesk/mailroom/internal/tracing"
	"github.com/opendesk/mailroom/interfaces"
)

// Processor persists message attachments and resolves cid: placeholders in
// HTML bodies to the stored location of the referenced part.
type Processor struct {
	log            logger.Logger
	attachmentRepo interfaces.AttachmentRepository
	threadRepo     interfaces.ThreadRepository
}

func NewProcessor(log logger.Logger, attachmentRepo interfaces.AttachmentRepository, threadRepo interfaces.ThreadRepository) *Processor {
	return &Processor{
		log:            log,
		attachmentRepo: attachmentRepo,
		threadRepo:     threadRepo,
	}
}

// Persist stores every attachment of the message under the given thread. An
// attachment whose content-id appears in the thread body as a cid:
// placeholder is marked embedded and every occurrence of its placeholder is
// rewritten to the stored URL; placeholders with no matching part stay
// untouched. The thread body is updated when any placeholder was rewritten.
func (p *Processor) Persist(ctx context.Context, message *dto.RawMessage, conversation *models.Conversation, thread *models.Thread) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Processor.Persist")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, thread.ID)

	if len(message.Attachments) == 0 {
		return nil
	}

	body := thread.Body
	rewritten := false

	for _, raw := range message.Attachments {
		attachment := &models.Attachment{
			ThreadID:       thread.ID,
			ConversationID: conversation.ID,
			FileName:       raw.FileName,
			MimeType:       raw.ContentType,
			ContentID:      raw.ContentID,
		}

		placeholder := ""
		if raw.ContentID != "" {
			placeholder = "cid:" + raw.ContentID
			attachment.Embedded = strings.Contains(body, placeholder)
		}

		if _, err := p.attachmentRepo.Create(ctx, attachment, raw.Content); err != nil {
			tracing.TraceErr(span, err)
			return err
		}

		if attachment.Embedded {
			url := p.attachmentRepo.PublicURL(attachment)
			if url != "" {
				body = strings.ReplaceAll(body, placeholder, url)
				rewritten = true
			}
		}
	}

	if rewritten {
		thread.Body = body
		if err := p.threadRepo.Update(ctx, thread); err != nil {
			tracing.TraceErr(span, err)
			return err
		}
	}

	return nil
}
