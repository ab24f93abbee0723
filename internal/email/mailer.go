package email

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// ErrDelivery is returned when the SMTP relay rejects a message.
var ErrDelivery = errors.New("delivery error")

// Sender abstracts the SMTP send call so tests can capture messages.
type Sender interface {
	Send(addr, from string, to []string, msg []byte) error
}

// SMTPSender sends through net/smtp without authentication, which is
// how the relays these reports target are deployed.
type SMTPSender struct{}

// Send implements Sender.
func (SMTPSender) Send(addr, from string, to []string, msg []byte) error {
	return smtp.SendMail(addr, nil, from, to, msg)
}

// Attachment is a named file attached to a report message.
type Attachment struct {
	Name        string
	Data        []byte
	ContentType string
}

// Message is one report email: a plain-text body with an HTML
// alternative, plus attachments.
type Message struct {
	Subject     string
	TextBody    string
	HTMLBody    string
	Attachments []Attachment
}

// Mailer builds and sends report messages.
type Mailer struct {
	sender Sender
	logger *zap.Logger
}

// NewMailer creates a Mailer. A nil sender uses the real SMTP path.
func NewMailer(sender Sender, logger *zap.Logger) *Mailer {
	if sender == nil {
		sender = SMTPSender{}
	}
	return &Mailer{sender: sender, logger: logger}
}

// Send delivers msg to the recipients in info.
func (m *Mailer) Send(info Info, msg *Message) error {
	if len(info.ToEmails) == 0 {
		return fmt.Errorf("%w: no recipients specified", ErrDelivery)
	}

	m.logger.Info("Sending email",
		zap.Strings("to", info.ToEmails),
		zap.String("subject", msg.Subject))

	raw := buildMessage(info, msg)
	if err := m.sender.Send(info.SMTPHost, info.From.Email, info.ToEmails, raw); err != nil {
		m.logger.Error("Failed to send email",
			zap.Error(err),
			zap.Strings("to", info.ToEmails))
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	m.logger.Info("Email sent successfully", zap.Strings("to", info.ToEmails))
	return nil
}

const (
	mixedBoundary = "----=_Part_mixed_0_1234567890"
	altBoundary   = "----=_Part_alt_1_1234567890"
)

// buildMessage assembles a multipart/mixed message wrapping a
// multipart/alternative body part and base64-encoded attachments.
func buildMessage(info Info, msg *Message) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "From: %s <%s>\r\n", info.From.Name, info.From.Email)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(info.ToEmails, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", msg.Subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mixedBoundary)

	// Body: plain text plus HTML alternative.
	fmt.Fprintf(&buf, "--%s\r\n", mixedBoundary)
	if msg.HTMLBody != "" {
		fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", altBoundary)
		fmt.Fprintf(&buf, "--%s\r\n", altBoundary)
		buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		buf.WriteString(msg.TextBody)
		buf.WriteString("\r\n")
		fmt.Fprintf(&buf, "--%s\r\n", altBoundary)
		buf.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
		buf.WriteString(msg.HTMLBody)
		buf.WriteString("\r\n")
		fmt.Fprintf(&buf, "--%s--\r\n", altBoundary)
	} else {
		buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		buf.WriteString(msg.TextBody)
		buf.WriteString("\r\n")
	}

	for _, attachment := range msg.Attachments {
		fmt.Fprintf(&buf, "--%s\r\n", mixedBoundary)
		fmt.Fprintf(&buf, "Content-Type: %s; name=%q\r\n", attachment.ContentType, attachment.Name)
		buf.WriteString("Content-Transfer-Encoding: base64\r\n")
		fmt.Fprintf(&buf, "Content-Disposition: attachment; filename=%q\r\n\r\n", attachment.Name)
		writeBase64(&buf, attachment.Data)
	}
	fmt.Fprintf(&buf, "--%s--\r\n", mixedBoundary)

	return buf.Bytes()
}

// writeBase64 writes data base64-encoded in 76-character lines.
func writeBase64(buf *bytes.Buffer, data []byte) {
	const lineLen = 76
	encoded := base64.StdEncoding.EncodeToString(data)
	for i := 0; i < len(encoded); i += lineLen {
		end := i + lineLen
		if end > len(encoded) {
			end = len(encoded)
		}
		buf.WriteString(encoded[i:end])
		buf.WriteString("\r\n")
	}
}
