package repository

import (
	"gorm.io/gorm"

	"github.com/opendesk/mailroom/interfaces"
)

type Repositories struct {
	CustomerRepository     interfaces.CustomerRepository
	ConversationRepository interfaces.ConversationRepository
	ThreadRepository       interfaces.ThreadRepository
	AttachmentRepository   interfaces.AttachmentRepository
	UserRepository         interfaces.UserRepository
	MailboxRepository      interfaces.MailboxRepository
}

func InitRepositories(db *gorm.DB, attachmentStorage interfaces.StorageService) *Repositories {
	return &Repositories{
		CustomerRepository:     NewCustomerRepository(db),
		ConversationRepository: NewConversationRepository(db),
		ThreadRepository:       NewThreadRepository(db),
		AttachmentRepository:   NewAttachmentRepository(db, attachmentStorage),
		UserRepository:         NewUserRepository(db),
		MailboxRepository:      NewMailboxRepository(db),
	}
}
