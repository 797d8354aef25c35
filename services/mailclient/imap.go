package mailclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/pkg/errors"

	"github.com/opendesk/mailroom/dto"
	"github.com/opendesk/mailroom/internal/enum"
	"github.com/opendesk/mailroom/internal/models"
)

const (
	imapDialTimeout    = 30 * time.Second
	imapCommandTimeout = 30 * time.Second
	imapFetchTimeout   = 60 * time.Second
)

type imapClient struct {
	mailbox *models.Mailbox
	conn    *client.Client
}

func newIMAPClient(mailbox *models.Mailbox) *imapClient {
	return &imapClient{mailbox: mailbox}
}

// Connect dials the IMAP server, checks capabilities and logs in. The
// encryption mode decides between implicit TLS, STARTTLS and plaintext.
func (c *imapClient) Connect(ctx context.Context) error {
	serverAddr := fmt.Sprintf("%s:%d", c.mailbox.InServer, c.mailbox.InPort)

	dialer := &net.Dialer{
		Timeout:   imapDialTimeout,
		KeepAlive: imapDialTimeout,
	}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}

	var conn *client.Client
	var err error

	switch c.mailbox.InEncryption {
	case enum.EncryptionSSL:
		tlsConfig := &tls.Config{ServerName: c.mailbox.InServer}
		conn, err = client.DialWithDialerTLS(dialer, serverAddr, tlsConfig)
	default:
		conn, err = client.DialWithDialer(dialer, serverAddr)
	}
	if err != nil {
		return errors.Wrapf(err, "connection error: %s", serverAddr)
	}

	conn.Timeout = imapCommandTimeout

	if c.mailbox.InEncryption == enum.EncryptionTLS {
		tlsConfig := &tls.Config{ServerName: c.mailbox.InServer}
		if err := conn.StartTLS(tlsConfig); err != nil {
			conn.Logout()
			return errors.Wrap(err, "starttls error")
		}
	}

	if _, err := conn.Capability(); err != nil {
		conn.Logout()
		return errors.Wrap(err, "capability error")
	}

	if err := conn.Login(c.mailbox.InUsername, c.mailbox.InPassword); err != nil {
		conn.Logout()
		return errors.Wrapf(err, "login error for %s", c.mailbox.InUsername)
	}

	conn.Timeout = 0
	c.conn = conn
	return nil
}

func (c *imapClient) Close() error {
	if c.conn == nil {
		return nil
	}
	c.conn.Timeout = 5 * time.Second
	err := c.conn.Logout()
	c.conn = nil
	return err
}

func (c *imapClient) ListFolders(ctx context.Context) ([]string, error) {
	if c.conn == nil {
		return nil, errors.New("not connected")
	}

	c.conn.Timeout = imapCommandTimeout
	defer func() { c.conn.Timeout = 0 }()

	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)

	go func() {
		done <- c.conn.List("", "*", mailboxes)
	}()

	var folders []string
	for m := range mailboxes {
		folders = append(folders, m.Name)
	}

	if err := <-done; err != nil {
		return nil, errors.Wrap(err, "error listing folders")
	}

	return folders, nil
}

// FetchMessages selects a folder, searches for unseen messages, downloads
// them whole and marks them seen once parsed.
func (c *imapClient) FetchMessages(ctx context.Context, folder string) ([]*dto.RawMessage, error) {
	if c.conn == nil {
		return nil, errors.New("not connected")
	}

	c.conn.Timeout = imapCommandTimeout
	_, err := c.conn.Select(folder, false)
	c.conn.Timeout = 0
	if err != nil {
		return nil, errors.Wrapf(err, "error selecting folder %s", folder)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	c.conn.Timeout = imapCommandTimeout
	uids, err := c.conn.UidSearch(criteria)
	c.conn.Timeout = 0
	if err != nil {
		return nil, errors.Wrap(err, "error searching for new messages")
	}
	if len(uids) == 0 {
		return nil, nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchInternalDate,
		imap.FetchUid,
		imap.FetchItem("BODY.PEEK[]"),
	}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)

	c.conn.Timeout = imapFetchTimeout

	go func() {
		done <- c.conn.UidFetch(seqSet, items, messages)
	}()

	var result []*dto.RawMessage
	for msg := range messages {
		raw, parseErr := c.parseMessage(msg)
		if parseErr != nil {
			// parse failures ride along as data so one bad message cannot
			// abort the batch
			result = append(result, &dto.RawMessage{
				ParseError: fmt.Sprintf("uid %d: %v", msg.Uid, parseErr),
			})
			continue
		}
		result = append(result, raw)
	}

	c.conn.Timeout = 0

	if err := <-done; err != nil {
		return nil, errors.Wrap(err, "error fetching messages")
	}

	// Mark the batch seen so the next run only sees new mail
	markSeen := new(imap.SeqSet)
	markSeen.AddNum(uids...)
	flagsItem := imap.FormatFlagsOp(imap.AddFlags, true)

	c.conn.Timeout = imapCommandTimeout
	if err := c.conn.UidStore(markSeen, flagsItem, []interface{}{imap.SeenFlag}, nil); err != nil {
		c.conn.Timeout = 0
		return result, errors.Wrap(err, "error marking messages seen")
	}
	c.conn.Timeout = 0

	return result, nil
}

func (c *imapClient) parseMessage(msg *imap.Message) (*dto.RawMessage, error) {
	data := extractFullMessage(msg)
	if len(data) == 0 {
		return nil, errors.New("message has no retrievable body section")
	}

	receivedAt := msg.InternalDate
	if receivedAt.IsZero() && msg.Envelope != nil {
		receivedAt = msg.Envelope.Date
	}

	return parseRawMessage(data, receivedAt)
}

// extractFullMessage pulls the entire message literal out of the fetch
// response, regardless of the PEEK attribute on the section.
func extractFullMessage(msg *imap.Message) []byte {
	for section, literal := range msg.Body {
		if len(section.Path) == 0 && section.Specifier == imap.EntireSpecifier {
			data, err := io.ReadAll(literal)
			if err == nil {
				return data
			}
		}
	}
	return nil
}
