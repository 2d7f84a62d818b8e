package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cleared-dev/bankfeed/internal/model"
)

// SMTPConfig holds mail server and envelope settings.
type SMTPConfig struct {
	Host          string
	Port          int
	Username      string
	Password      string
	From          string
	To            []string
	HeaderImage   string // URL shown above the table
	SubjectPrefix string
	Currency      string // appended to amounts, default "€"
}

// Validate reports missing settings.
func (c SMTPConfig) Validate() error {
	var errs []error
	if c.Host == "" {
		errs = append(errs, errors.New("smtp host is required"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("smtp port %d out of range", c.Port))
	}
	if c.From == "" {
		errs = append(errs, errors.New("smtp from address is required"))
	}
	if len(c.To) == 0 {
		errs = append(errs, errors.New("at least one smtp recipient is required"))
	}
	return errors.Join(errs...)
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTP emails an HTML table of new transactions with a plain-text
// alternative. smtp.SendMail upgrades to STARTTLS when the server offers it.
type SMTP struct {
	cfg  SMTPConfig
	send sendFunc
	now  func() time.Time
}

// NewSMTP creates an SMTP notifier.
func NewSMTP(cfg SMTPConfig) *SMTP {
	if cfg.Currency == "" {
		cfg.Currency = "€"
	}
	return &SMTP{cfg: cfg, send: smtp.SendMail, now: time.Now}
}

// Notify sends one email listing txns.
func (s *SMTP) Notify(ctx context.Context, source string, txns []model.Transaction) error {
	if len(txns) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := s.Message(source, txns)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	zerolog.Ctx(ctx).Debug().Str("addr", addr).Int("count", len(txns)).Msg("sending notification email")
	if err := s.send(addr, auth, s.cfg.From, s.cfg.To, msg); err != nil {
		return fmt.Errorf("sending email via %s: %w", addr, err)
	}
	return nil
}

// Subject returns the subject line for a batch of n transactions.
func (s *SMTP) Subject(n int) string {
	subject := fmt.Sprintf("%d new bank transactions", n)
	if s.cfg.SubjectPrefix != "" {
		subject = s.cfg.SubjectPrefix + ": " + subject
	}
	return subject
}

// Message builds the complete MIME message.
func (s *SMTP) Message(source string, txns []model.Transaction) ([]byte, error) {
	subject := s.Subject(len(txns))
	html, text, err := renderBodies(emailData{
		Subject:      subject,
		Source:       source,
		HeaderImage:  s.cfg.HeaderImage,
		Currency:     s.cfg.Currency,
		Transactions: txns,
	})
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, part := range []struct {
		contentType string
		content     []byte
	}{
		{"text/plain; charset=UTF-8", text},
		{"text/html; charset=UTF-8", html},
	} {
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.contentType},
			"Content-Transfer-Encoding": {"8bit"},
		})
		if err != nil {
			return nil, fmt.Errorf("creating mime part: %w", err)
		}
		if _, err := w.Write(part.content); err != nil {
			return nil, fmt.Errorf("writing mime part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing mime writer: %w", err)
	}

	var msg bytes.Buffer
	headers := []struct{ key, value string }{
		{"From", s.cfg.From},
		{"To", strings.Join(s.cfg.To, ", ")},
		{"Subject", mime.QEncoding.Encode("UTF-8", subject)},
		{"Date", s.now().Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "multipart/alternative; boundary=" + mw.Boundary()},
	}
	for _, h := range headers {
		fmt.Fprintf(&msg, "%s: %s\r\n", h.key, h.value)
	}
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}
