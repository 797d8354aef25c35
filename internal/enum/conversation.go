package enum

type ConversationStatus string

const (
	ConversationActive  ConversationStatus = "active"
	ConversationPending ConversationStatus = "pending"
	ConversationClosed  ConversationStatus = "closed"
	ConversationSpam    ConversationStatus = "spam"
)

func (t ConversationStatus) String() string {
	return string(t)
}

type ConversationState string

const (
	StateDraft     ConversationState = "draft"
	StatePublished ConversationState = "published"
	StateDeleted   ConversationState = "deleted"
)

func (t ConversationState) String() string {
	return string(t)
}

type ConversationType string

const (
	ConversationEmail ConversationType = "email"
	ConversationPhone ConversationType = "phone"
	ConversationChat  ConversationType = "chat"
)

func (t ConversationType) String() string {
	return string(t)
}

type ReplyOrigin string

const (
	ReplyFromCustomer ReplyOrigin = "customer"
	ReplyFromUser     ReplyOrigin = "user"
)

func (t ReplyOrigin) String() string {
	return string(t)
}
