package errors

import "github.com/pkg/errors"

var (
	// run-level errors
	ErrServerNotConfigured = errors.New("no incoming mail server configured")
	ErrConnectionFailed    = errors.New("connection to mail server failed")
	ErrConnectionTimeout   = errors.New("connection timeout")

	// message-level errors
	ErrDuplicateMessage = errors.New("message already ingested")
	ErrEmptyMessage     = errors.New("message has no content")

	// lookup errors
	ErrMailboxNotFound  = errors.New("mailbox not found")
	ErrCustomerNotFound = errors.New("customer not found")
)
