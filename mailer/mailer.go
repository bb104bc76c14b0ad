// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/resend/resend-go/v2"
)

// ErrMailDisabled is returned by NoopMailer
var ErrMailDisabled = errors.New("email delivery disabled")

type Attachment struct {
	Filename string
	Content  []byte
}

type Message struct {
	To          string
	Subject     string
	HTML        string
	Text        string
	Attachments []Attachment
}

// Mailer sends one message and returns the provider's message ID
type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// ResendMailer delivers through the Resend API
type ResendMailer struct {
	client *resend.Client
	from   string
}

// NewResendMailer builds a mailer. baseURL overrides the API endpoint and is
// only set by tests.
func NewResendMailer(apiKey, from, baseURL string) (*ResendMailer, error) {
	client := resend.NewClient(apiKey)
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse resend base url: %w", err)
		}
		client.BaseURL = u
	}
	return &ResendMailer{client: client, from: from}, nil
}

func (m *ResendMailer) Send(ctx context.Context, msg Message) (string, error) {
	if msg.To == "" {
		return "", errors.New("mailer: recipient required")
	}

	req := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}
	for _, a := range msg.Attachments {
		req.Attachments = append(req.Attachments, &resend.Attachment{
			Filename: a.Filename,
			Content:  a.Content,
		})
	}

	sent, err := m.client.Emails.SendWithContext(ctx, req)
	if err != nil {
		return "", fmt.Errorf("resend: send email: %w", err)
	}
	return sent.Id, nil
}

// NoopMailer stands in when no API key is configured
type NoopMailer struct{}

func (NoopMailer) Send(ctx context.Context, msg Message) (string, error) {
	slog.InfoContext(ctx, "email not sent, delivery disabled", "to", msg.To, "subject", msg.Subject)
	return "", ErrMailDisabled
}

// New returns a ResendMailer when apiKey is set and a NoopMailer otherwise
func New(apiKey, from string) (Mailer, error) {
	if apiKey == "" {
		return NoopMailer{}, nil
	}
	return NewResendMailer(apiKey, from, "")
}
