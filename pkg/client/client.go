// Package client talks to the notes API and keeps a local, invalidating
// copy of the note collection for interactive front ends.
package client

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

	"go.uber.org/zap"

	"github.com/gumnutdev/quick-notes/domain/core/entities"
	pkgerrors "github.com/gumnutdev/quick-notes/pkg/errors"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultRetryDelay = 200 * time.Millisecond
)

// Repository is the note store as seen from a client.
type Repository interface {
	List(ctx context.Context) ([]entities.Note, error)
	Get(ctx context.Context, id string) (entities.Note, error)
	Save(ctx context.Context, note entities.Note) (entities.Note, error)
	Delete(ctx context.Context, id string) error
}

// Client is the HTTP implementation of Repository.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retryDelay time.Duration
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryDelay sets the pause before the single retry.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

// WithLogger sets the client logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		retryDelay: defaultRetryDelay,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type saveResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Note    entities.Note `json:"note"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// List returns every note, most recently modified first.
func (c *Client) List(ctx context.Context) ([]entities.Note, error) {
	var notes []entities.Note
	if err := c.do(ctx, http.MethodGet, "/api/notes", nil, &notes); err != nil {
		return nil, err
	}
	if notes == nil {
		notes = []entities.Note{}
	}
	for i := range notes {
		notes[i] = normalize(notes[i])
	}
	return notes, nil
}

// Get returns one note.
func (c *Client) Get(ctx context.Context, id string) (entities.Note, error) {
	var note entities.Note
	if err := c.do(ctx, http.MethodGet, "/api/notes/"+url.PathEscape(id), nil, &note); err != nil {
		return entities.Note{}, err
	}
	return normalize(note), nil
}

// Save creates or overwrites note and returns the stored version.
func (c *Client) Save(ctx context.Context, note entities.Note) (entities.Note, error) {
	body, err := json.Marshal(note)
	if err != nil {
		return entities.Note{}, pkgerrors.NewValidationError("note cannot be encoded").WithCause(err)
	}
	var resp saveResponse
	if err := c.do(ctx, http.MethodPost, "/api/notes", body, &resp); err != nil {
		return entities.Note{}, err
	}
	return normalize(resp.Note), nil
}

// Delete removes a note.
func (c *Client) Delete(ctx context.Context, id string) error {
	path := "/api/notes/" + url.PathEscape(id)
	err := c.attempt(ctx, http.MethodDelete, path, nil, nil)
	if err == nil || !retryable(err) {
		return err
	}
	if err := c.backoff(ctx, http.MethodDelete, path, err); err != nil {
		return err
	}
	// The first attempt may have deleted the note and lost the response.
	err = c.attempt(ctx, http.MethodDelete, path, nil, nil)
	if pkgerrors.IsNotFound(err) {
		return nil
	}
	return err
}

// do sends the request, retrying once after a transport failure or a
// gateway status. Every call here is idempotent so the retry is safe.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	err := c.attempt(ctx, method, path, body, out)
	if err == nil || !retryable(err) {
		return err
	}
	if err := c.backoff(ctx, method, path, err); err != nil {
		return err
	}
	return c.attempt(ctx, method, path, body, out)
}

// backoff waits before a retry of the request that failed with cause.
func (c *Client) backoff(ctx context.Context, method, path string, cause error) error {
	c.logger.Debug("Retrying request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Error(cause),
	)
	select {
	case <-ctx.Done():
		return pkgerrors.NewUnavailableError("note service", ctx.Err())
	case <-time.After(c.retryDelay):
		return nil
	}
}

func (c *Client) attempt(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.NewInternalError("invalid request").WithCause(err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.NewUnavailableError("note service", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.NewUnavailableError("note service", fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body errorResponse
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(data))
	}
	appErr := pkgerrors.FromStatus(resp.StatusCode, body.Error)
	if body.Code != "" {
		appErr = appErr.WithCode(body.Code)
	}
	return appErr
}

func retryable(err error) bool {
	appErr := pkgerrors.GetAppError(err)
	if appErr == nil || appErr.Type != pkgerrors.ErrorTypeUnavailable {
		return false
	}
	// Transport failures are reported as 503 too.
	switch appErr.HTTPStatus {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func normalize(n entities.Note) entities.Note {
	if n.LinkedNotes == nil {
		n.LinkedNotes = []string{}
	}
	n.CreatedDate = n.CreatedDate.UTC()
	n.ModifiedDate = n.ModifiedDate.UTC()
	return n
}
