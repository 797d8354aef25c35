package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/opendesk/mailroom/internal/enum"
	"github.com/opendesk/mailroom/internal/utils"
)

// Mailbox is the configuration of one remote mail account the engine polls.
// Credentials are stored already decrypted by the surrounding application.
type Mailbox struct {
	ID    string `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	Email string `gorm:"column:email;type:varchar(255);index;not null" json:"email"`
	Name  string `gorm:"column:name;type:varchar(255)" json:"name"`

	// Incoming server configuration
	InServer     string              `gorm:"column:in_server;type:varchar(255)" json:"inServer"`
	InPort       int                 `gorm:"column:in_port" json:"inPort"`
	InUsername   string              `gorm:"column:in_username;type:varchar(255)" json:"inUsername"`
	InPassword   string              `gorm:"column:in_password;type:varchar(255)" json:"-"`
	InProtocol   enum.MailProtocol   `gorm:"column:in_protocol;type:varchar(20);default:imap" json:"inProtocol"`
	InEncryption enum.MailEncryption `gorm:"column:in_encryption;type:varchar(20);default:ssl" json:"inEncryption"`
	InFolders    pq.StringArray      `gorm:"column:in_folders;type:text[]" json:"inFolders"`

	// Status information
	LastFetchedAt    *time.Time            `gorm:"column:last_fetched_at;type:timestamp" json:"lastFetchedAt"`
	ConnectionStatus enum.ConnectionStatus `gorm:"column:connection_status;type:varchar(20)" json:"connectionStatus"`
	ConnectionError  string                `gorm:"column:connection_error;type:text" json:"connectionError"`

	CreatedAt time.Time      `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Mailbox) TableName() string {
	return "mailboxes"
}

func (m *Mailbox) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = utils.GenerateNanoIDWithPrefix("mbox", 16)
	}
	return nil
}

// FetchFolders returns the configured folder list, defaulting to the
// canonical inbox when nothing is configured.
func (m *Mailbox) FetchFolders() []string {
	if len(m.InFolders) == 0 {
		return []string{"INBOX"}
	}
	return m.InFolders
}
