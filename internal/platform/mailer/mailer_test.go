package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type captured struct {
	addr string
	from string
	to   []string
	raw  string
	auth smtp.Auth
}

func newTestMailer(cfg Config, out *captured, err error) *Mailer {
	m := New(cfg)
	m.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	m.send = func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		*out = captured{addr: addr, from: from, to: to, raw: string(msg), auth: auth}
		return err
	}
	return m
}

func TestSendHTML(t *testing.T) {
	var got captured
	m := newTestMailer(Config{Host: "smtp.local", Username: "u", Password: "p", From: "pos@shop.test", FromName: "Corner Mart"}, &got, nil)

	err := m.Send(context.Background(), Message{To: []string{"owner@shop.test"}, Subject: "New Sale - Bill #ABC123", HTML: "<p>hi</p>"})
	require.NoError(t, err)
	require.Equal(t, "smtp.local:587", got.addr)
	require.Equal(t, "pos@shop.test", got.from)
	require.Equal(t, []string{"owner@shop.test"}, got.to)
	require.NotNil(t, got.auth)
	require.Contains(t, got.raw, "Subject: New Sale - Bill #ABC123\r\n")
	require.Contains(t, got.raw, "From: Corner Mart <pos@shop.test>\r\n")
	require.Contains(t, got.raw, `Content-Type: text/html; charset="UTF-8"`)
	require.True(t, strings.HasSuffix(got.raw, "\r\n\r\n<p>hi</p>"))
}

func TestSendWithAttachment(t *testing.T) {
	var got captured
	m := newTestMailer(Config{Host: "smtp.local", Port: "2525", From: "pos@shop.test"}, &got, nil)

	err := m.Send(context.Background(), Message{
		To:          []string{"a@b.test"},
		Subject:     "Receipt",
		Text:        "see attached",
		Attachments: []Attachment{{Name: "receipt.pdf", ContentType: "application/pdf", Content: []byte("%PDF")}},
	})
	require.NoError(t, err)
	require.Nil(t, got.auth)
	require.Contains(t, got.raw, "multipart/mixed")
	require.Contains(t, got.raw, `attachment; filename=receipt.pdf`)
	require.Contains(t, got.raw, "JVBERg==")
}

func TestSendErrors(t *testing.T) {
	require.ErrorIs(t, New(Config{}).Send(context.Background(), Message{To: []string{"x@y.z"}}), ErrNotConfigured)

	var got captured
	boom := errors.New("relay down")
	m := newTestMailer(Config{Host: "smtp.local", From: "a@b.c"}, &got, boom)
	require.ErrorIs(t, m.Send(context.Background(), Message{To: []string{"x@y.z"}, Text: "t"}), boom)
	require.Error(t, m.Send(context.Background(), Message{}))
}
