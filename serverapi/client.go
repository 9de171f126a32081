package serverapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hazyhaar/capsync/event"
)

// Client talks to one automation server.
type Client struct {
	base   string
	client *http.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.client = c }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// New creates a Client for the given base URL (e.g. http://localhost:8000).
func New(base string, opts ...Option) *Client {
	c := &Client{
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: 10 * time.Second},
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// PostEvent submits one capture event. Single attempt, no retry.
func (c *Client) PostEvent(ctx context.Context, ev event.Event) error {
	return c.post(ctx, "/event", ev, nil)
}

// ListEvents fetches the server's full event list. Its length is the
// authoritative event count.
func (c *Client) ListEvents(ctx context.Context) ([]EventRecord, error) {
	var body struct {
		Events []EventRecord `json:"events"`
	}
	if err := c.get(ctx, "/events", &body); err != nil {
		return nil, err
	}
	return body.Events, nil
}

// ListResults fetches the server's result list, oldest first.
func (c *Client) ListResults(ctx context.Context) ([]Result, error) {
	var body struct {
		Results []Result `json:"results"`
	}
	if err := c.get(ctx, "/results", &body); err != nil {
		return nil, err
	}
	return body.Results, nil
}

// ListWorkflows fetches the server's workflow definitions.
func (c *Client) ListWorkflows(ctx context.Context) ([]Workflow, error) {
	var body struct {
		Workflows []Workflow `json:"workflows"`
	}
	if err := c.get(ctx, "/workflows", &body); err != nil {
		return nil, err
	}
	return body.Workflows, nil
}

// CreateWorkflow submits a new workflow. 2xx means the server accepted it.
func (c *Client) CreateWorkflow(ctx context.Context, query string) error {
	req := map[string]any{"query": query, "use_smart": true}
	return c.post(ctx, "/workflow", req, nil)
}

// SendEmail asks the server to deliver a result by email.
func (c *Client) SendEmail(ctx context.Context, result Result, recipient string) error {
	req := map[string]any{"result": result, "recipient": recipient}
	return c.post(ctx, "/send-email", req, nil)
}

// Ping probes server liveness with an OPTIONS request against /event.
func (c *Client) Ping(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodOptions, c.base+"/event", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("serverapi: new request %s: %w", path, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("serverapi: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return &StatusError{Op: "GET " + path, Code: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("serverapi: decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("serverapi: marshal %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("serverapi: new request %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("serverapi: POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return &StatusError{Op: "POST " + path, Code: resp.StatusCode}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("serverapi: decode %s: %w", path, err)
		}
	}
	return nil
}
