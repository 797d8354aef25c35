package mailclient

import (
	"bytes"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"
	"github.com/pkg/errors"

	"github.com/opendesk/mailroom/dto"
	"github.com/opendesk/mailroom/internal/utils"
)

// parseRawMessage turns one fetched RFC 5322 message into the transient
// representation the ingestion pipeline works on. Both protocol clients
// funnel their bytes through here.
func parseRawMessage(data []byte, receivedAt time.Time) (*dto.RawMessage, error) {
	envelope, err := enmime.ReadEnvelope(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse message")
	}

	msg := &dto.RawMessage{
		MessageID:  utils.NormalizeMessageID(envelope.GetHeader("Message-Id")),
		Subject:    envelope.GetHeader("Subject"),
		Date:       receivedAt,
		From:       parseAddressList(envelope, "From"),
		ReplyTo:    parseAddressList(envelope, "Reply-To"),
		To:         parseAddressList(envelope, "To"),
		Cc:         parseAddressList(envelope, "Cc"),
		Bcc:        parseAddressList(envelope, "Bcc"),
		RawHeaders: collectRawHeaders(envelope),
		BodyText:   envelope.Text,
		BodyHTML:   envelope.HTML,
	}

	if date, err := mail.ParseDate(envelope.GetHeader("Date")); err == nil {
		msg.Date = date
	}

	parseReplyHeaders(msg, envelope)

	for _, attachment := range envelope.Attachments {
		msg.Attachments = append(msg.Attachments, dto.RawAttachment{
			FileName:    attachment.FileName,
			ContentType: attachment.ContentType,
			ContentID:   strings.Trim(attachment.ContentID, "<>"),
			Content:     attachment.Content,
		})
	}
	for _, inline := range envelope.Inlines {
		msg.Attachments = append(msg.Attachments, dto.RawAttachment{
			FileName:    inline.FileName,
			ContentType: inline.ContentType,
			ContentID:   strings.Trim(inline.ContentID, "<>"),
			Content:     inline.Content,
			Inline:      true,
		})
	}

	return msg, nil
}

func parseAddressList(envelope *enmime.Envelope, key string) []dto.EmailAddress {
	addresses, err := envelope.AddressList(key)
	if err != nil || len(addresses) == 0 {
		return nil
	}

	result := make([]dto.EmailAddress, 0, len(addresses))
	for _, addr := range addresses {
		if addr.Address == "" {
			continue
		}
		result = append(result, dto.EmailAddress{
			Name:    addr.Name,
			Address: addr.Address,
		})
	}
	return result
}

// parseReplyHeaders extracts In-Reply-To and References. References can be
// space or newline separated; ids are stored without angle brackets.
func parseReplyHeaders(msg *dto.RawMessage, envelope *enmime.Envelope) {
	inReplyTo := envelope.GetHeader("In-Reply-To")
	for _, ref := range strings.Fields(inReplyTo) {
		ref = utils.NormalizeMessageID(ref)
		if ref != "" {
			msg.InReplyTo = ref
			break
		}
	}

	refsHeader := envelope.GetHeader("References")
	refsHeader = strings.ReplaceAll(refsHeader, "\r\n", " ")
	refsHeader = strings.ReplaceAll(refsHeader, "\n", " ")

	var references []string
	for _, ref := range strings.Fields(refsHeader) {
		ref = utils.NormalizeMessageID(ref)
		if ref != "" && !utils.IsStringInSlice(ref, references) {
			references = append(references, ref)
		}
	}
	msg.References = references
}

func collectRawHeaders(envelope *enmime.Envelope) string {
	var sb strings.Builder
	for _, key := range envelope.GetHeaderKeys() {
		for _, value := range envelope.GetHeaderValues(key) {
			fmt.Fprintf(&sb, "%s: %s\r\n", key, value)
		}
	}
	return sb.String()
}
