// Package decoder turns raw RFC 822 bytes into the fields the pipeline
// consumes: decoded headers, a plain-text body and the attachment parts.
package decoder

import (
	"io"
	"log/slog"
	"strings"
	"time"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// Attachment is one attachment part of a message.
type Attachment struct {
	Filename string
	MIMEType string
	Data     []byte
}

// IsPDF reports whether the attachment looks like a PDF, by filename
// extension or declared content type.
func (a Attachment) IsPDF() bool {
	if strings.HasSuffix(strings.ToLower(a.Filename), ".pdf") {
		return true
	}
	return a.MIMEType == "application/pdf"
}

// Message is a decoded mail message. Transient: lives only for the
// duration of one fetch cycle.
type Message struct {
	Subject     string
	Sender      string
	BodyText    string
	Attachments []Attachment
	Date        time.Time // zero when the Date header is absent or malformed
}

// EmailDate formats the header date for delivery metadata, "Unknown" when
// the header could not be parsed.
func (m *Message) EmailDate() string {
	if m.Date.IsZero() {
		return "Unknown"
	}
	return m.Date.Format("2006-01-02")
}

// Decoder decodes raw messages.
type Decoder struct {
	html   *HTMLStripper
	logger *slog.Logger
}

// New creates a Decoder.
func New(logger *slog.Logger) *Decoder {
	return &Decoder{
		html:   NewHTMLStripper(),
		logger: logger.With("component", "decoder"),
	}
}

// Decode parses one raw message. MIME-word encoded headers are decoded by
// the mail reader. Inline text/plain and text/html parts are concatenated
// into BodyText (HTML stripped of markup); parts flagged as attachments are
// collected separately. A part that fails to decode is logged and skipped,
// the rest of the message still decodes.
func (d *Decoder) Decode(raw io.Reader) (*Message, error) {
	mr, err := mail.CreateReader(raw)
	if err != nil {
		return nil, err
	}

	msg := &Message{}
	msg.Subject, _ = mr.Header.Subject()
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		msg.Sender = from[0].String()
	}
	if date, err := mr.Header.Date(); err == nil {
		msg.Date = date
	}

	var body strings.Builder
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			d.logger.Warn("failed to read part", "subject", msg.Subject, "error", err)
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			ct, _, _ := h.ContentType()
			data, err := io.ReadAll(part.Body)
			if err != nil {
				d.logger.Warn("failed to read part body", "content_type", ct, "error", err)
				continue
			}
			switch {
			case strings.HasPrefix(ct, "text/plain"):
				body.Write(data)
			case strings.HasPrefix(ct, "text/html"):
				body.WriteString(d.html.Strip(string(data)))
			}
		case *mail.AttachmentHeader:
			filename, err := h.Filename()
			if err != nil {
				d.logger.Warn("failed to decode attachment filename", "error", err)
				continue
			}
			ct, _, _ := h.ContentType()
			data, err := io.ReadAll(part.Body)
			if err != nil {
				d.logger.Warn("failed to read attachment", "filename", filename, "error", err)
				continue
			}
			msg.Attachments = append(msg.Attachments, Attachment{
				Filename: filename,
				MIMEType: ct,
				Data:     data,
			})
		}
	}

	msg.BodyText = body.String()
	return msg, nil
}
