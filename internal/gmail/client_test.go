package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmail "google.golang.org/api/gmail/v1"
)

func decodeRaw(t *testing.T, raw string) string {
	t.Helper()
	data, err := base64.URLEncoding.DecodeString(raw)
	require.NoError(t, err)
	return string(data)
}

func TestBuildRawMessage(t *testing.T) {
	raw, err := buildRawMessage(&EmailMessage{
		To:      []string{"a@example.com", "b@example.com"},
		Cc:      []string{"c@example.com"},
		Subject: "Status request",
		Body:    "Hello",
	})
	require.NoError(t, err)

	msg := decodeRaw(t, raw)
	assert.Contains(t, msg, "To: a@example.com, b@example.com\r\n")
	assert.Contains(t, msg, "Cc: c@example.com\r\n")
	assert.Contains(t, msg, "Subject: Status request\r\n")
	assert.Contains(t, msg, "Content-Type: text/plain")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\nHello"))

	html, err := buildRawMessage(&EmailMessage{To: []string{"a@example.com"}, Subject: "s", Body: "<p>x</p>", IsHTML: true})
	require.NoError(t, err)
	assert.Contains(t, decodeRaw(t, html), "Content-Type: text/html")
}

func TestBuildRawMessageValidation(t *testing.T) {
	tests := []struct {
		name string
		msg  EmailMessage
	}{
		{name: "no recipient", msg: EmailMessage{Subject: "s", Body: "b"}},
		{name: "no subject", msg: EmailMessage{To: []string{"a@example.com"}, Body: "b"}},
		{name: "no body", msg: EmailMessage{To: []string{"a@example.com"}, Subject: "s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildRawMessage(&tt.msg)
			assert.Error(t, err)
		})
	}
}

func TestEncodeRFC2047(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantASCII bool
	}{
		{name: "plain ASCII text", input: "Simple Subject", wantASCII: true},
		{name: "German umlauts", input: "Rückerstattung €115 - Überweisung"},
		{name: "French accents", input: "Réponse à votre demande"},
		{name: "Emoji", input: "Subject with emoji 🎉"},
		{name: "Empty string", input: "", wantASCII: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := encodeRFC2047(tt.input)
			if tt.wantASCII {
				if result != tt.input {
					t.Errorf("encodeRFC2047() = %v, want %v (should not encode ASCII)", result, tt.input)
				}
				return
			}
			if !strings.HasPrefix(result, "=?UTF-8?") || !strings.HasSuffix(result, "?=") {
				t.Errorf("encodeRFC2047() = %v, want an RFC 2047 encoded word", result)
			}
		})
	}
}

func TestClient_SendEmail(t *testing.T) {
	var gotRaw, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var m gmail.Message
		require.NoError(t, json.NewDecoder(r.Body).Decode(&m))
		gotRaw = m.Raw
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg-123"}`))
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), srv.Client(), WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)

	id, err := c.SendEmail(context.Background(), &EmailMessage{
		To:      []string{"attorney@lawfirm.example"},
		Subject: "Status request",
		Body:    "Please advise.",
	})
	require.NoError(t, err)
	assert.Equal(t, "msg-123", id)
	assert.True(t, strings.HasSuffix(gotPath, "/users/me/messages/send"), gotPath)
	assert.Contains(t, decodeRaw(t, gotRaw), "To: attorney@lawfirm.example")
}

func TestClient_SendEmailAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"insufficient scope"}}`))
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), srv.Client(), WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)

	_, err = c.SendEmail(context.Background(), &EmailMessage{To: []string{"a@example.com"}, Subject: "s", Body: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send email")
}
