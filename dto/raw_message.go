package dto

import "time"

// EmailAddress is one structured address as produced by the protocol layer.
type EmailAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

func (a EmailAddress) String() string {
	if a.Name == "" {
		return a.Address
	}
	return a.Name + " <" + a.Address + ">"
}

// Participant is a normalized address triple. Name fields are already
// bounded to the customer directory limits.
type Participant struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// RawAttachment is one binary part of a fetched message.
type RawAttachment struct {
	FileName    string
	ContentType string
	ContentID   string
	Content     []byte
	Inline      bool
}

// RawMessage is the transient representation of one fetched message. It is
// produced by the protocol layer, consumed by one processing pass and then
// discarded; it is never persisted as-is.
type RawMessage struct {
	MessageID  string
	Subject    string
	Date       time.Time
	From       []EmailAddress
	ReplyTo    []EmailAddress
	To         []EmailAddress
	Cc         []EmailAddress
	Bcc        []EmailAddress
	InReplyTo  string
	References []string
	RawHeaders string

	BodyText string
	BodyHTML string

	Attachments []RawAttachment

	// ParseError is set by the protocol layer when the message bytes could
	// not be decoded; the orchestrator counts it as a per-message failure.
	ParseError string
}

// FromAddress returns the first From address, or the empty string.
func (m *RawMessage) FromAddress() string {
	if len(m.From) == 0 {
		return ""
	}
	return m.From[0].Address
}

// IsReply reports whether the message carries reply correlation headers.
func (m *RawMessage) IsReply() bool {
	return m.InReplyTo != "" || len(m.References) > 0
}
