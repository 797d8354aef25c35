package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/opendesk/mailroom/internal/enum"
	"github.com/opendesk/mailroom/internal/utils"
)

// Thread is one message inside a conversation. The author is either a
// customer or an internal user, never both. The (mailbox_id, message_id)
// unique index enforces idempotent ingestion at the database level, so two
// overlapping runs against the same folder cannot create duplicate threads.
type Thread struct {
	ID             string `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	ConversationID string `gorm:"column:conversation_id;type:varchar(50);index;not null" json:"conversationId"`
	MailboxID      string `gorm:"column:mailbox_id;type:varchar(50);uniqueIndex:idx_threads_mailbox_message;not null" json:"mailboxId"`

	Type  enum.ThreadType  `gorm:"column:type;type:varchar(20);default:customer" json:"type"`
	State enum.ThreadState `gorm:"column:state;type:varchar(20);default:published" json:"state"`

	// Author reference: exactly one of the two is set
	CustomerID *string `gorm:"column:customer_id;type:varchar(50);index" json:"customerId"`
	UserID     *string `gorm:"column:user_id;type:varchar(50);index" json:"userId"`

	MessageID  string         `gorm:"column:message_id;type:varchar(255);uniqueIndex:idx_threads_mailbox_message;not null" json:"messageId"`
	InReplyTo  string         `gorm:"column:in_reply_to;type:varchar(255);index" json:"inReplyTo"`
	References pq.StringArray `gorm:"column:refs;type:text[]" json:"references"`

	FromAddress string         `gorm:"column:from_address;type:varchar(255);index" json:"fromAddress"`
	ToAddresses pq.StringArray `gorm:"column:to_addresses;type:text[]" json:"toAddresses"`
	CcAddresses pq.StringArray `gorm:"column:cc_addresses;type:text[]" json:"ccAddresses"`
	BccAddresses pq.StringArray `gorm:"column:bcc_addresses;type:text[]" json:"bccAddresses"`

	// Body holds the message content after quote stripping
	Body           string `gorm:"column:body;type:text" json:"body"`
	Headers        string `gorm:"column:headers;type:text" json:"-"`
	HasAttachments bool   `gorm:"column:has_attachments;default:false" json:"hasAttachments"`

	CreatedAt time.Time      `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Thread) TableName() string {
	return "threads"
}

func (t *Thread) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = utils.GenerateNanoIDWithPrefix("thrd", 16)
	}
	t.CreatedAt = utils.Now()
	return nil
}
