package mail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/helixir/integrations-worker/internal/domain"
)

// Message is an HTML email.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
}

// Validate checks that every address parses.
func (m Message) Validate() error {
	if _, err := mail.ParseAddress(m.From); err != nil {
		return domain.NewFieldError("from", err.Error())
	}
	if len(m.To) == 0 {
		return domain.NewFieldError("to", "at least one recipient is required")
	}
	for _, to := range m.To {
		if _, err := mail.ParseAddress(to); err != nil {
			return domain.NewFieldError("to", fmt.Sprintf("%q: %v", to, err))
		}
	}
	if strings.TrimSpace(m.Subject) == "" {
		return domain.NewFieldError("subject", "must not be empty")
	}
	return nil
}

// Bytes encodes the message as RFC 5322 with a base64 HTML body.
func (m Message) Bytes(now time.Time) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	from, _ := mail.ParseAddress(m.From)
	to := make([]string, len(m.To))
	for i, addr := range m.To {
		parsed, _ := mail.ParseAddress(addr)
		to[i] = parsed.String()
	}

	var b bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&b, "%s: %s\r\n", k, v) }
	header("From", from.String())
	header("To", strings.Join(to, ", "))
	header("Subject", mime.QEncoding.Encode("utf-8", m.Subject))
	header("Date", now.Format(time.RFC1123Z))
	header("Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), domainOf(from.Address)))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/html; charset="UTF-8"`)
	header("Content-Transfer-Encoding", "base64")
	b.WriteString("\r\n")

	body := base64.StdEncoding.EncodeToString([]byte(m.HTML))
	for len(body) > 76 {
		b.WriteString(body[:76])
		b.WriteString("\r\n")
		body = body[76:]
	}
	b.WriteString(body)
	b.WriteString("\r\n")
	return b.Bytes(), nil
}

func domainOf(addr string) string {
	if i := strings.LastIndexByte(addr, '@'); i >= 0 && i < len(addr)-1 {
		return addr[i+1:]
	}
	return "localhost"
}
