package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/opendesk/mailroom/internal/enum"
	"github.com/opendesk/mailroom/internal/utils"
)

// Conversation is a support ticket grouping one or more threads with one
// customer. ThreadsCount tracks the number of non-deleted threads;
// LastReplyAt never regresses across ingested messages.
type Conversation struct {
	ID        string `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	MailboxID string `gorm:"column:mailbox_id;type:varchar(50);index;not null" json:"mailboxId"`
	Folder    string `gorm:"column:folder;type:varchar(100);index;not null" json:"folder"`

	CustomerID    string `gorm:"column:customer_id;type:varchar(50);index" json:"customerId"`
	CustomerEmail string `gorm:"column:customer_email;type:varchar(255);index" json:"customerEmail"`

	Subject string                  `gorm:"column:subject;type:varchar(1000)" json:"subject"`
	Status  enum.ConversationStatus `gorm:"column:status;type:varchar(20);default:active" json:"status"`
	State   enum.ConversationState  `gorm:"column:state;type:varchar(20);default:published" json:"state"`
	Type    enum.ConversationType   `gorm:"column:type;type:varchar(20);default:email" json:"type"`

	ThreadsCount   int              `gorm:"column:threads_count;default:0" json:"threadsCount"`
	HasAttachments bool             `gorm:"column:has_attachments;default:false" json:"hasAttachments"`
	LastReplyAt    *time.Time       `gorm:"column:last_reply_at;type:timestamp" json:"lastReplyAt"`
	LastReplyFrom  enum.ReplyOrigin `gorm:"column:last_reply_from;type:varchar(20)" json:"lastReplyFrom"`

	CreatedAt time.Time      `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Conversation) TableName() string {
	return "conversations"
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = utils.GenerateNanoIDWithPrefix("conv", 16)
	}
	c.CreatedAt = utils.Now()
	return nil
}
