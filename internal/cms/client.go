package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/transcon/cmsledger/internal/logging"
)

const (
	// DefaultTimeout bounds one CMS request.
	DefaultTimeout = 30 * time.Second

	userAgent        = "cmsledger/1.0"
	maxResponseBytes = 64 << 10
)

// Config holds the CMS connection settings.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Logger  logging.Logger

	// HTTPClient overrides the client built from Timeout. Tests use it.
	HTTPClient *http.Client
}

// Client adds notes to CMS cases.
type Client struct {
	base   *url.URL
	token  string
	http   *http.Client
	logger logging.Logger
}

// NewClient validates cfg and returns a Client.
func NewClient(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, ErrNotConfigured
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid CMS URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid CMS URL %q: scheme must be http or https", raw)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("invalid CMS URL %q: missing host", raw)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.ForComponent(nil, "cms")
	}

	return &Client{
		base:   base,
		token:  cfg.Token,
		http:   httpClient,
		logger: logger,
	}, nil
}

// AddNote posts noteText to the case. It returns nil only when the CMS
// acknowledged the note with a 2xx status.
func (c *Client) AddNote(ctx context.Context, caseID, noteText string, testMode bool) error {
	caseID = strings.TrimSpace(caseID)
	if caseID == "" {
		return &CMSError{Op: "add_note", Err: fmt.Errorf("case ID cannot be empty")}
	}
	if strings.TrimSpace(noteText) == "" {
		return &CMSError{Op: "add_note", CaseID: caseID, Err: fmt.Errorf("note text cannot be empty")}
	}

	body, err := json.Marshal(noteRequest{Note: noteText, TestMode: testMode})
	if err != nil {
		return &CMSError{Op: "add_note", CaseID: caseID, Err: fmt.Errorf("failed to encode note: %w", err)}
	}

	endpoint := c.base.JoinPath("cases", caseID, "notes")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return &CMSError{Op: "add_note", CaseID: caseID, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	log := c.logger.With(logging.KeyCaseID, caseID)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &CMSError{Op: "add_note", CaseID: caseID, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	var decoded noteResponse
	_ = json.Unmarshal(payload, &decoded)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := decoded.Error
		if msg == "" {
			msg = strings.TrimSpace(string(payload))
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		log.Warn("CMS rejected note", "status", resp.StatusCode, "duration", time.Since(start))
		return &CMSError{
			Op:         "add_note",
			CaseID:     caseID,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("note rejected: %s", msg),
		}
	}

	log.Debug("CMS note created",
		"note_id", decoded.ID,
		"status", resp.StatusCode,
		"duration", time.Since(start))
	return nil
}
