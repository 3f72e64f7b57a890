// Package mailer delivers email over SMTP.
package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"
)

// ErrNotConfigured is returned by Send when no SMTP host is set.
var ErrNotConfigured = errors.New("mailer: smtp not configured")

// Config holds SMTP credentials.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// Attachment is an in-memory file attached to a message.
type Attachment struct {
	Name        string
	ContentType string
	Content     []byte
}

// Message is a single outgoing email. HTML takes precedence over Text.
type Message struct {
	To          []string
	FromName    string
	Subject     string
	HTML        string
	Text        string
	Attachments []Attachment
}

type sendFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends messages through one SMTP relay.
type Mailer struct {
	cfg  Config
	send sendFunc
	now  func() time.Time
}

// New constructs a Mailer. Port 465 uses implicit TLS; anything else uses smtp.SendMail with STARTTLS when offered.
func New(cfg Config) *Mailer {
	if cfg.Port == "" {
		cfg.Port = "587"
	}
	m := &Mailer{cfg: cfg, now: time.Now}
	if cfg.Port == "465" {
		m.send = m.sendTLS
	} else {
		m.send = smtp.SendMail
	}
	return m
}

// Enabled reports whether an SMTP host is configured.
func (m *Mailer) Enabled() bool {
	return m != nil && m.cfg.Host != ""
}

// Send delivers msg. The context bounds only the wait before dialing; net/smtp has no context support.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if !m.Enabled() {
		return ErrNotConfigured
	}
	if len(msg.To) == 0 {
		return errors.New("mailer: no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := m.build(msg)
	if err != nil {
		return err
	}
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := net.JoinHostPort(m.cfg.Host, m.cfg.Port)
	if err := m.send(addr, auth, m.cfg.From, msg.To, raw); err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}
	return nil
}

func (m *Mailer) sendTLS(addr string, auth smtp.Auth, from string, to []string, raw []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12})
	if err != nil {
		return fmt.Errorf("tls dial: %w", err)
	}
	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer func() { _ = client.Quit() }()
	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (m *Mailer) build(msg Message) ([]byte, error) {
	name := msg.FromName
	if name == "" {
		name = m.cfg.FromName
	}
	from := m.cfg.From
	if name != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", name), m.cfg.From)
	}

	var b bytes.Buffer
	header := func(k, v string) { b.WriteString(k + ": " + v + "\r\n") }
	header("From", from)
	header("To", strings.Join(msg.To, ", "))
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", m.now().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")

	bodyType, body := "text/plain", msg.Text
	if msg.HTML != "" {
		bodyType, body = "text/html", msg.HTML
	}
	if len(msg.Attachments) == 0 {
		header("Content-Type", bodyType+`; charset="UTF-8"`)
		b.WriteString("\r\n")
		b.WriteString(body)
		return b.Bytes(), nil
	}

	mw := multipart.NewWriter(&b)
	header("Content-Type", `multipart/mixed; boundary="`+mw.Boundary()+`"`)
	b.WriteString("\r\n")
	part, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {bodyType + `; charset="UTF-8"`}})
	if err != nil {
		return nil, err
	}
	if _, err := part.Write([]byte(body)); err != nil {
		return nil, err
	}
	for _, a := range msg.Attachments {
		ct := a.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {ct},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": a.Name})},
		})
		if err != nil {
			return nil, err
		}
		if _, err := part.Write([]byte(wrap76(base64.StdEncoding.EncodeToString(a.Content)))); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func wrap76(s string) string {
	var b strings.Builder
	for len(s) > 76 {
		b.WriteString(s[:76] + "\r\n")
		s = s[76:]
	}
	b.WriteString(s)
	return b.String()
}
