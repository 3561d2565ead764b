package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/microcosm-cc/bluemonday"
)

var (
	ErrInvalidConfig = errors.New("mailer: invalid configuration")
	ErrNoRecipient   = errors.New("mailer: message has no recipient")
	ErrSendFailed    = errors.New("mailer: send failed")
	ErrComposeFailed = errors.New("mailer: compose failed")
)

// Message is one outgoing email. At least one of Text and HTML must be set.
type Message struct {
	To      mail.Address
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

var (
	textPolicy   = bluemonday.StrictPolicy()
	blockBreaker = strings.NewReplacer(
		"<br>", "\n", "<br/>", "\n", "<br />", "\n",
		"</p>", "</p>\n", "</div>", "</div>\n", "</li>", "</li>\n",
		"</h1>", "</h1>\n", "</h2>", "</h2>\n", "</tr>", "</tr>\n",
	)
)

// PlainText renders an HTML body as readable text: tags are dropped, block
// ends become line breaks and entities are decoded.
func PlainText(body string) string {
	text := html.UnescapeString(textPolicy.Sanitize(blockBreaker.Replace(body)))
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// Compose writes msg as an RFC 5322 message to w. With both bodies set the
// result is multipart/alternative. An HTML-only message gets a text part
// derived with PlainText.
func Compose(w io.Writer, from mail.Address, msg Message, now time.Time) error {
	if msg.Text == "" && msg.HTML != "" {
		msg.Text = PlainText(msg.HTML)
	}

	var h mail.Header
	h.SetDate(now)
	h.SetAddressList("From", []*mail.Address{&from})
	h.SetAddressList("To", []*mail.Address{&msg.To})
	h.SetSubject(msg.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return err
	}

	mw, err := mail.CreateWriter(w, h)
	if err != nil {
		return err
	}

	switch {
	case msg.Text != "" && msg.HTML != "":
		iw, err := mw.CreateInline()
		if err != nil {
			return err
		}
		if err := writePart(iw, "text/plain", msg.Text); err != nil {
			return err
		}
		if err := writePart(iw, "text/html", msg.HTML); err != nil {
			return err
		}
		if err := iw.Close(); err != nil {
			return err
		}
	default:
		contentType, body := "text/plain", msg.Text
		if msg.HTML != "" {
			contentType, body = "text/html", msg.HTML
		}
		var th mail.InlineHeader
		th.SetContentType(contentType, map[string]string{"charset": "utf-8"})
		pw, err := mw.CreateSingleInline(th)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(pw, body); err != nil {
			return err
		}
		if err := pw.Close(); err != nil {
			return err
		}
	}

	return mw.Close()
}

func writePart(iw *mail.InlineWriter, contentType, body string) error {
	var th mail.InlineHeader
	th.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	pw, err := iw.CreatePart(th)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(pw, body); err != nil {
		return err
	}
	return pw.Close()
}

/*
====================================
SMTP
====================================
*/

// SMTPConfig describes the relay. Username enables PLAIN auth.
type SMTPConfig struct {
	Addr     string
	From     string
	FromName string
	Identity string
	Username string
	Password string
}

type sendFunc func(addr string, auth sasl.Client, from string, to []string, r io.Reader) error

// SMTP sends messages through an SMTP relay.
type SMTP struct {
	addr string
	from mail.Address
	auth sasl.Client
	send sendFunc
	now  func() time.Time
}

var _ Mailer = (*SMTP)(nil)

func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	if _, _, err := net.SplitHostPort(cfg.Addr); err != nil {
		return nil, fmt.Errorf("%w: addr %q: %v", ErrInvalidConfig, cfg.Addr, err)
	}
	from, err := mail.ParseAddress(cfg.From)
	if err != nil {
		return nil, fmt.Errorf("%w: from %q: %v", ErrInvalidConfig, cfg.From, err)
	}
	if cfg.FromName != "" {
		from.Name = cfg.FromName
	}

	s := &SMTP{
		addr: cfg.Addr,
		from: *from,
		send: smtp.SendMail,
		now:  time.Now,
	}
	if cfg.Username != "" {
		s.auth = sasl.NewPlainClient(cfg.Identity, cfg.Username, cfg.Password)
	}
	return s, nil
}

// From returns the sender address.
func (s *SMTP) From() mail.Address {
	return s.from
}

// Send composes msg and hands it to the relay. The relay dial itself is not
// cancellable; ctx is checked before the dial.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To.Address) == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := Compose(&buf, s.from, msg, s.now()); err != nil {
		return fmt.Errorf("%w: %v", ErrComposeFailed, err)
	}

	if err := s.send(s.addr, s.auth, s.from.Address, []string{msg.To.Address}, &buf); err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return nil
}

/*
====================================
MEMORY
====================================
*/

// Memory records messages instead of sending them.
type Memory struct {
	mu       sync.Mutex
	messages []Message
	// Err, when set, is returned by Send and nothing is recorded.
	Err error
}

var _ Mailer = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To.Address) == "" {
		return ErrNoRecipient
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.messages = append(m.messages, msg)
	return nil
}

// Messages returns a copy of everything sent so far.
func (m *Memory) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.messages...)
}

// Last returns the most recent message.
func (m *Memory) Last() (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return Message{}, false
	}
	return m.messages[len(m.messages)-1], true
}
