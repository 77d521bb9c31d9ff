// Package remote is the typed REST client of the note service.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/notes"
)

// DefaultTimeout is the transport timeout applied when no http.Client is supplied.
const DefaultTimeout = 30 * time.Second

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 16 << 20

// Client talks to the note service on behalf of any account.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithAPIKey sends the key as a Bearer token on every request.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// New creates a Client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service address the client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Error describes a failed remote call. Err matches one of notes.ErrNotFound,
// notes.ErrServer or notes.ErrTransport.
type Error struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// envelope is the response wrapper used by every endpoint.
type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// GetAll returns every note of accountID.
func (c *Client) GetAll(ctx context.Context, accountID string) ([]notes.RemoteEntry, error) {
	var entries []notes.RemoteEntry
	if err := c.do(ctx, call{
		op:     "get all",
		method: http.MethodGet,
		path:   "/user/" + url.PathEscape(accountID) + "/notes",
		out:    &entries,
	}); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []notes.RemoteEntry{}
	}
	return entries, nil
}

// Get returns one note.
func (c *Client) Get(ctx context.Context, accountID, syncID string) (*notes.RemoteEntry, error) {
	var entry notes.RemoteEntry
	if err := c.do(ctx, call{
		op:            "get",
		method:        http.MethodGet,
		path:          notePath(accountID, syncID),
		out:           &entry,
		errorNotFound: true,
	}); err != nil {
		return nil, err
	}
	if entry.SyncID == "" {
		entry.SyncID = syncID
	}
	return &entry, nil
}

// Add creates a note and returns the server-assigned syncId.
func (c *Client) Add(ctx context.Context, accountID string, entry notes.RemoteEntry) (string, error) {
	entry.SyncID = ""
	var syncID string
	if err := c.do(ctx, call{
		op:     "add",
		method: http.MethodPost,
		path:   "/user/" + url.PathEscape(accountID) + "/notes",
		body:   entry,
		out:    &syncID,
	}); err != nil {
		return "", err
	}
	if syncID == "" {
		return "", &Error{Op: "add", Err: fmt.Errorf("%w: empty sync id in response", notes.ErrServer)}
	}
	return syncID, nil
}

// Update replaces the fields of an existing note.
func (c *Client) Update(ctx context.Context, accountID, syncID string, entry notes.RemoteEntry) error {
	entry.SyncID = ""
	return c.do(ctx, call{
		op:            "update",
		method:        http.MethodPost,
		path:          notePath(accountID, syncID),
		body:          entry,
		errorNotFound: true,
	})
}

// Delete removes a note.
func (c *Client) Delete(ctx context.Context, accountID, syncID string) error {
	return c.do(ctx, call{
		op:            "delete",
		method:        http.MethodDelete,
		path:          notePath(accountID, syncID),
		errorNotFound: true,
	})
}

// Ping checks that the service answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return &Error{Op: "ping", Err: fmt.Errorf("%w: %v", notes.ErrTransport, err)}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Op: "ping", Err: fmt.Errorf("%w: %v", notes.ErrTransport, err)}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode != http.StatusOK {
		return &Error{Op: "ping", StatusCode: resp.StatusCode, Err: notes.ErrServer}
	}
	return nil
}

func notePath(accountID, syncID string) string {
	return "/user/" + url.PathEscape(accountID) + "/note/" + url.PathEscape(syncID)
}

type call struct {
	op     string
	method string
	path   string
	body   any
	out    any
	// errorNotFound maps a {"status":"error"} reply to notes.ErrNotFound.
	errorNotFound bool
}

// do sends an authenticated request and decodes the envelope into c.out.
func (c *Client) do(ctx context.Context, cl call) error {
	var reqBody io.Reader
	if cl.body != nil {
		data, err := json.Marshal(cl.body)
		if err != nil {
			return &Error{Op: cl.op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, reqBody)
	if err != nil {
		return &Error{Op: cl.op, Err: fmt.Errorf("%w: %v", notes.ErrTransport, err)}
	}
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Op: cl.op, Err: fmt.Errorf("%w: %v", notes.ErrTransport, err)}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &Error{Op: cl.op, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: read body: %v", notes.ErrTransport, err)}
	}

	if resp.StatusCode == http.StatusNotFound {
		return &Error{Op: cl.op, StatusCode: resp.StatusCode, Err: notes.ErrNotFound}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Op: cl.op, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: %s", notes.ErrServer, detail(payload))}
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return &Error{Op: cl.op, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: decode response: %v", notes.ErrServer, err)}
	}
	if env.Status != "ok" {
		if cl.errorNotFound {
			return &Error{Op: cl.op, StatusCode: resp.StatusCode, Err: notes.ErrNotFound}
		}
		return &Error{Op: cl.op, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: status %q: %s", notes.ErrServer, env.Status, env.Error)}
	}

	if cl.out != nil {
		if len(env.Data) == 0 {
			return &Error{Op: cl.op, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: missing data", notes.ErrServer)}
		}
		if err := json.Unmarshal(env.Data, cl.out); err != nil {
			return &Error{Op: cl.op, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: decode data: %v", notes.ErrServer, err)}
		}
	}
	return nil
}

// detail extracts a short message from an error response body.
func detail(payload []byte) string {
	var env envelope
	if err := json.Unmarshal(payload, &env); err == nil && env.Error != "" {
		return env.Error
	}
	s := strings.TrimSpace(string(payload))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// IsNotFound reports whether err is a remote NotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, notes.ErrNotFound)
}
