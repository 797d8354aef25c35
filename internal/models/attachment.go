package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/opendesk/mailroom/internal/utils"
)

// Attachment is a binary part persisted for a thread. Embedded is true when
// the part is referenced by a cid: placeholder inside the HTML body.
type Attachment struct {
	ID             string `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	ThreadID       string `gorm:"column:thread_id;type:varchar(50);index;not null" json:"threadId"`
	ConversationID string `gorm:"column:conversation_id;type:varchar(50);index;not null" json:"conversationId"`

	FileName  string `gorm:"column:file_name;type:varchar(500)" json:"fileName"`
	MimeType  string `gorm:"column:mime_type;type:varchar(255)" json:"mimeType"`
	Size      int    `gorm:"column:size;default:0" json:"size"`
	ContentID string `gorm:"column:content_id;type:varchar(255)" json:"contentId"`
	Embedded  bool   `gorm:"column:embedded;default:false" json:"embedded"`

	// Where the bytes live in object storage
	StorageKey string `gorm:"column:storage_key;type:varchar(1000)" json:"-"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
}

func (Attachment) TableName() string {
	return "attachments"
}

func (a *Attachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = utils.GenerateNanoIDWithPrefix("file", 12)
	}
	a.CreatedAt = utils.Now()
	return nil
}
