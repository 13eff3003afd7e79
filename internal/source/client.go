package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"pipescan/internal/model"
	"pipescan/pkg/log"
)

// FeedClient pulls build events from the event feed.
type FeedClient interface {
	// FetchEvents blocks on the feed's long-poll endpoint and returns the
	// events published since the previous call, in publish order.
	FetchEvents(ctx context.Context) ([]model.RawEvent, error)
	// Ping checks feed reachability.
	Ping(ctx context.Context) error
}

// HTTPFeedClient is the FeedClient for the HTTP event feed.
type HTTPFeedClient struct {
	l       log.Logger
	baseURL string
	client  *http.Client
	cursor  int
}

// NewHTTPFeedClient creates a feed client for the given base URL.
func NewHTTPFeedClient(l log.Logger, baseURL string, timeout time.Duration) *HTTPFeedClient {
	if timeout <= 0 {
		timeout = 35 * time.Second
	}
	return &HTTPFeedClient{
		l:       l,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// SetBaseURL overrides the feed base URL.
func (c *HTTPFeedClient) SetBaseURL(u string) {
	c.baseURL = u
}

type waitPayload struct {
	NewEvents []model.RawEvent `json:"new_events"`
	Cursor    int              `json:"cursor"`
}

type waitEnvelope struct {
	ErrorCode int         `json:"error_code"`
	Message   string      `json:"message"`
	Data      waitPayload `json:"data"`
}

// FetchEvents long-polls GET /events/wait with the client's cursor and
// advances the cursor to the value the feed returns.
func (c *HTTPFeedClient) FetchEvents(ctx context.Context) ([]model.RawEvent, error) {
	u := fmt.Sprintf("%s/events/wait?%s", c.baseURL, url.Values{
		"cursor": {strconv.Itoa(c.cursor)},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("feed returned %d: %s", resp.StatusCode, string(body))
	}

	var envelope waitEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode feed response: %w", err)
	}

	c.cursor = envelope.Data.Cursor
	return envelope.Data.NewEvents, nil
}

// Ping checks the feed's /ping endpoint.
func (c *HTTPFeedClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ping", nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("feed ping returned %d", resp.StatusCode)
	}
	return nil
}
