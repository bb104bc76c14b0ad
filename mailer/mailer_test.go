// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WithoutKeyIsNoop(t *testing.T) {
	m, err := New("", "reports@dv.example")
	require.NoError(t, err)
	assert.IsType(t, NoopMailer{}, m)

	_, err = m.Send(context.Background(), Message{To: "a@b.example", Subject: "x"})
	assert.ErrorIs(t, err, ErrMailDisabled)
}

func TestNew_WithKey(t *testing.T) {
	m, err := New("re_test", "reports@dv.example")
	require.NoError(t, err)
	assert.IsType(t, &ResendMailer{}, m)
}

func TestResendMailer_Send(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"email_123"}`))
	}))
	defer srv.Close()

	m, err := NewResendMailer("re_test", "DV Reports <reports@dv.example>", srv.URL+"/")
	require.NoError(t, err)

	id, err := m.Send(context.Background(), Message{
		To:          "owner@example.com",
		Subject:     "Your appraisal",
		HTML:        "<p>Attached</p>",
		Attachments: []Attachment{{Filename: "appraisal.pdf", Content: []byte("%PDF-1.4")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "email_123", id)

	assert.Equal(t, "DV Reports <reports@dv.example>", got["from"])
	assert.Equal(t, []any{"owner@example.com"}, got["to"])
	assert.Equal(t, "Your appraisal", got["subject"])
	attachments, ok := got["attachments"].([]any)
	require.True(t, ok)
	require.Len(t, attachments, 1)
	assert.Equal(t, "appraisal.pdf", attachments[0].(map[string]any)["filename"])
}

func TestResendMailer_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"statusCode":422,"name":"validation_error","message":"Invalid from field"}`))
	}))
	defer srv.Close()

	m, err := NewResendMailer("re_test", "bad", srv.URL+"/")
	require.NoError(t, err)

	_, err = m.Send(context.Background(), Message{To: "owner@example.com", Subject: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resend")
}

func TestResendMailer_RequiresRecipient(t *testing.T) {
	m, err := NewResendMailer("re_test", "from@dv.example", "")
	require.NoError(t, err)
	_, err = m.Send(context.Background(), Message{})
	assert.Error(t, err)
}
