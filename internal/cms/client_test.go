package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transcon/cmsledger/internal/logging"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "https", url: "https://cms.transcon.example/api"},
		{name: "http", url: "http://localhost:8081"},
		{name: "empty", url: "", wantErr: true},
		{name: "bad scheme", url: "ftp://cms.example", wantErr: true},
		{name: "no host", url: "https://", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(Config{BaseURL: tt.url})
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}

	_, err := NewClient(Config{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClient_AddNote(t *testing.T) {
	var gotPath, gotAuth, gotType string
	var gotBody noteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"n-1"}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL + "/api", Token: "secret"})
	require.NoError(t, err)

	require.NoError(t, c.AddNote(context.Background(), "1001", "STATUS REQUEST SENT TO X", true))
	assert.Equal(t, "/api/cases/1001/notes", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, noteRequest{Note: "STATUS REQUEST SENT TO X", TestMode: true}, gotBody)
}

func TestClient_AddNoteRejected(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantMessage   string
		wantTemporary bool
	}{
		{name: "json error", status: http.StatusBadRequest, body: `{"error":"case closed"}`, wantMessage: "case closed"},
		{name: "plain text", status: http.StatusInternalServerError, body: "boom", wantMessage: "boom", wantTemporary: true},
		{name: "empty body", status: http.StatusServiceUnavailable, wantMessage: "Service Unavailable", wantTemporary: true},
		{name: "redirect is not success", status: http.StatusNotModified, wantMessage: "Not Modified"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := NewClient(Config{BaseURL: srv.URL})
			require.NoError(t, err)

			err = c.AddNote(context.Background(), "1002", "EMAIL SENT TO X", false)
			var cmsErr *CMSError
			require.ErrorAs(t, err, &cmsErr)
			assert.Equal(t, tt.status, cmsErr.StatusCode)
			assert.Equal(t, "1002", cmsErr.CaseID)
			assert.Contains(t, err.Error(), tt.wantMessage)
			assert.Equal(t, tt.wantTemporary, cmsErr.Temporary())
		})
	}
}

func TestClient_AddNoteValidation(t *testing.T) {
	c, err := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	assert.Error(t, c.AddNote(context.Background(), " ", "note", false))
	assert.Error(t, c.AddNote(context.Background(), "1001", "", false))
}

func TestClient_AddNoteTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := NewClient(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	err = c.AddNote(context.Background(), "1001", "EMAIL SENT TO X", false)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	var cmsErr *CMSError
	require.ErrorAs(t, err, &cmsErr)
	assert.Zero(t, cmsErr.StatusCode)
	assert.True(t, cmsErr.Temporary())
}

func TestClient_AddNoteCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = c.AddNote(ctx, "1001", "EMAIL SENT TO X", false)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestClient_LogsRejectionWithCase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"case locked"}`))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))
	c, err := NewClient(Config{BaseURL: srv.URL, Logger: logging.ForComponent(base, "cms")})
	require.NoError(t, err)

	require.Error(t, c.AddNote(context.Background(), "1002", "FOLLOW UP EMAIL SENT TO X", false))

	var record map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record))
	assert.Equal(t, "CMS rejected note", record["msg"])
	assert.Equal(t, "cms", record["component"])
	assert.Equal(t, "1002", record["case_id"])
	assert.Equal(t, float64(http.StatusConflict), record["status"])
}
