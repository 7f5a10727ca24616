package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultClientTimeout = 15 * time.Second

// RequestIDHeader carries a per-request correlation id from the CLI into
// daemon logs.
const RequestIDHeader = "X-Request-ID"

// ErrDaemonUnreachable is returned when no daemon answers at the base URL.
var ErrDaemonUnreachable = errors.New("daemon unreachable")

// StatusError is a non-2xx daemon response.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("daemon returned http %d", e.StatusCode)
	}
	return fmt.Sprintf("daemon returned http %d: %s", e.StatusCode, e.Message)
}

// Client talks to the daemon's HTTP API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient builds a client for the daemon at bind, which may be a host:port
// pair or a full URL.
func NewClient(bind, token string, httpClient *http.Client) *Client {
	base := strings.TrimRight(strings.TrimSpace(bind), "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultClientTimeout}
	}
	return &Client{baseURL: base, token: strings.TrimSpace(token), httpClient: httpClient}
}

// BaseURL reports the resolved daemon address.
func (c *Client) BaseURL() string { return c.baseURL }

// Trigger submits a sensor trigger.
func (c *Client) Trigger(ctx context.Context, req TriggerRequest) (CaptureResponse, error) {
	var resp CaptureResponse
	err := c.do(ctx, http.MethodPost, "/api/trigger", req, &resp)
	return resp, err
}

// SubmitEVP submits an audio-domain record.
func (c *Client) SubmitEVP(ctx context.Context, req EVPRequest) (CaptureResponse, error) {
	var resp CaptureResponse
	err := c.do(ctx, http.MethodPost, "/api/evp", req, &resp)
	return resp, err
}

// StartSession opens a new investigation session.
func (c *Client) StartSession(ctx context.Context, req SessionStartRequest) (SessionResponse, error) {
	var resp SessionResponse
	err := c.do(ctx, http.MethodPost, "/api/sessions/start", req, &resp)
	return resp, err
}

// CloseSession closes the active session.
func (c *Client) CloseSession(ctx context.Context) (SessionResponse, error) {
	var resp SessionResponse
	err := c.do(ctx, http.MethodPost, "/api/sessions/close", nil, &resp)
	return resp, err
}

// Sessions lists recent sessions.
func (c *Client) Sessions(ctx context.Context, limit int) ([]Session, error) {
	var resp SessionListResponse
	err := c.do(ctx, http.MethodGet, "/api/sessions"+limitQuery(limit), nil, &resp)
	return resp.Sessions, err
}

// Events lists recent events, newest first.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	var resp EventListResponse
	err := c.do(ctx, http.MethodGet, "/api/events"+limitQuery(limit), nil, &resp)
	return resp.Events, err
}

// Event fetches one event.
func (c *Client) Event(ctx context.Context, id int64) (Event, error) {
	var resp EventResponse
	err := c.do(ctx, http.MethodGet, "/api/events/"+strconv.FormatInt(id, 10), nil, &resp)
	return resp.Event, err
}

// Status fetches the station status.
func (c *Client) Status(ctx context.Context) (StationStatus, error) {
	var resp StationStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, body, target any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api request: encode body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("api request: new request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) && !urlErr.Timeout() {
			return fmt.Errorf("%w at %s: %v", ErrDaemonUnreachable, c.baseURL, err)
		}
		return fmt.Errorf("api request: %w", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("api request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		var apiErr ErrorResponse
		if jsonErr := json.Unmarshal(payload, &apiErr); jsonErr != nil || apiErr.Error == "" {
			apiErr.Error = strings.TrimSpace(string(payload))
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}
	if target == nil {
		return nil
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("api request: decode response: %w", err)
	}
	return nil
}

func limitQuery(limit int) string {
	if limit <= 0 {
		return ""
	}
	return "?limit=" + strconv.Itoa(limit)
}
