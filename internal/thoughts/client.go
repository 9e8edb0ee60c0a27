package thoughts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pbaille/thoughtboard/internal/domain"
)

const (
	latestPath = "/thoughts/latest"
	allPath    = "/thoughts"

	userAgent = "thoughtboard/1.0"
)

// ErrNotFound is returned by Latest when the API has no thoughts yet
var ErrNotFound = errors.New("no thoughts available")

// StatusError reports a non-success HTTP status from the API
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d", e.Code)
}

// Client talks to the thoughts API
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

// NewClient creates a client for the API at baseURL. A zero timeout means
// requests run until the context is cancelled.
func NewClient(baseURL string, timeout time.Duration, logger *log.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %q", u.Scheme)
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &Client{
		baseURL:    strings.TrimRight(u.String(), "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// BaseURL returns the API root the client was created with
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Latest fetches the most recent thought. It returns ErrNotFound on 404 and
// a *StatusError for any other non-success status.
func (c *Client) Latest(ctx context.Context) (*domain.Thought, error) {
	resp, err := c.get(ctx, latestPath)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if !ok(resp.StatusCode) {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var thought domain.Thought
	if err := decode(resp.Body, &thought); err != nil {
		return nil, err
	}
	return &thought, nil
}

// All fetches every thought in chronological order, oldest first. Every
// non-success status, 404 included, is a *StatusError.
func (c *Client) All(ctx context.Context) ([]domain.Thought, error) {
	resp, err := c.get(ctx, allPath)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !ok(resp.StatusCode) {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var list []domain.Thought
	if err := decode(resp.Body, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	reqID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", reqID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	c.logger.Printf("GET %s -> %d (request %s)", path, resp.StatusCode, reqID[:8])
	return resp, nil
}

// decode reads the whole body; /thoughts is unpaged so there is no size limit
func decode(r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func ok(code int) bool {
	return code >= 200 && code < 300
}
