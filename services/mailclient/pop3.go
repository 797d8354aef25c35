package mailclient

import (
	"context"
	"fmt"
	"time"

	"github.com/knadh/go-pop3"
	"github.com/pkg/errors"

	"github.com/opendesk/mailroom/dto"
	"github.com/opendesk/mailroom/internal/enum"
	"github.com/opendesk/mailroom/internal/models"
	"github.com/opendesk/mailroom/internal/utils"
)

// pop3Client retrieves messages over POP3. POP3 has no folder concept, so
// the client exposes the single canonical inbox and ignores folder names.
type pop3Client struct {
	mailbox *models.Mailbox
	pool    *pop3.Client
	conn    *pop3.Conn
}

func newPOP3Client(mailbox *models.Mailbox) *pop3Client {
	return &pop3Client{mailbox: mailbox}
}

func (c *pop3Client) Connect(ctx context.Context) error {
	opt := pop3.Opt{
		Host:        c.mailbox.InServer,
		Port:        c.mailbox.InPort,
		DialTimeout: 30 * time.Second,
		TLSEnabled:  c.mailbox.InEncryption != enum.EncryptionNone,
	}

	c.pool = pop3.New(opt)

	conn, err := c.pool.NewConn()
	if err != nil {
		return errors.Wrapf(err, "connection error: %s:%d", c.mailbox.InServer, c.mailbox.InPort)
	}

	if err := conn.Auth(c.mailbox.InUsername, c.mailbox.InPassword); err != nil {
		conn.Quit()
		return errors.Wrapf(err, "login error for %s", c.mailbox.InUsername)
	}

	c.conn = conn
	return nil
}

func (c *pop3Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Quit()
	c.conn = nil
	return err
}

func (c *pop3Client) ListFolders(ctx context.Context) ([]string, error) {
	return []string{"INBOX"}, nil
}

// FetchMessages downloads every message on the server. Messages are deleted
// after retrieval, which is the conventional POP3 equivalent of marking
// them seen.
func (c *pop3Client) FetchMessages(ctx context.Context, folder string) ([]*dto.RawMessage, error) {
	if c.conn == nil {
		return nil, errors.New("not connected")
	}

	count, _, err := c.conn.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "error reading mailbox stat")
	}
	if count == 0 {
		return nil, nil
	}

	var result []*dto.RawMessage
	for id := 1; id <= count; id++ {
		buf, err := c.conn.RetrRaw(id)
		if err != nil {
			result = append(result, &dto.RawMessage{
				ParseError: fmt.Sprintf("message %d: %v", id, err),
			})
			continue
		}

		raw, parseErr := parseRawMessage(buf.Bytes(), utils.Now())
		if parseErr != nil {
			result = append(result, &dto.RawMessage{
				ParseError: fmt.Sprintf("message %d: %v", id, parseErr),
			})
			continue
		}
		result = append(result, raw)

		if err := c.conn.Dele(id); err != nil {
			return result, errors.Wrapf(err, "error deleting message %d", id)
		}
	}

	return result, nil
}
