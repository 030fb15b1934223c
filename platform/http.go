package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// REST adapter for a chat-platform gateway. Uses a retrying HTTP client with
// bounded timeouts; 403 and 404 map to the sentinel errors the engine
// understands.
type HTTPClient struct {
	Host    string
	Token   string
	Client  *http.Client
	Limiter *rate.Limiter
}

func NewHTTPClient(host, token string) *HTTPClient {
	return &HTTPClient{
		Host:    host,
		Token:   token,
		Client:  robustHTTPClient(),
		Limiter: rate.NewLimiter(rate.Limit(25), 5),
	}
}

// Generates an HTTP client with decent general-purpose defaults around
// timeouts and retries. The returned client has the stdlib http.Client
// interface, but has Hashicorp retryablehttp logic internally: it retries on
// connection errors, 5xx status, and 429 (respecting 'Retry-After').
func robustHTTPClient() *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = retryablehttp.LeveledLogger(leveledSlog{slog.Default()})
	client := retryClient.StandardClient()
	client.Timeout = 10 * time.Second
	return client
}

// adapts slog to retryablehttp's leveled logger, demoting client ERROR to
// WARN (failures are retried)
type leveledSlog struct {
	inner *slog.Logger
}

func (l leveledSlog) Error(msg string, keysAndValues ...interface{}) {
	l.inner.Warn(msg, keysAndValues...)
}
func (l leveledSlog) Warn(msg string, keysAndValues ...interface{}) {
	l.inner.Warn(msg, keysAndValues...)
}
func (l leveledSlog) Info(msg string, keysAndValues ...interface{}) {
	l.inner.Info(msg, keysAndValues...)
}
func (l leveledSlog) Debug(msg string, keysAndValues ...interface{}) {
	l.inner.Debug(msg, keysAndValues...)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any, out any) error {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.Host+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("platform request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return ErrPermission
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 400:
		return fmt.Errorf("platform request %s %s: status=%d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding platform response: %w", err)
		}
	}
	return nil
}

func (c *HTTPClient) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/channels/%s/messages/%s", channelID, messageID), nil, nil)
}

func (c *HTTPClient) Timeout(ctx context.Context, actorID string, d time.Duration, reason string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/members/%s/timeout", actorID), map[string]any{
		"seconds": int(d.Seconds()),
		"reason":  reason,
	}, nil)
}

func (c *HTTPClient) Kick(ctx context.Context, actorID, reason string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/members/%s/kick", actorID), map[string]any{"reason": reason}, nil)
}

func (c *HTTPClient) Ban(ctx context.Context, actorID, reason string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/members/%s/ban", actorID), map[string]any{"reason": reason}, nil)
}

func (c *HTTPClient) SendNotice(ctx context.Context, n Notice) error {
	err := c.do(ctx, http.MethodPost, "/notices", map[string]any{
		"target":       n.Target,
		"text":         n.Text,
		"ephemeral":    n.Ephemeral,
		"delete_after": int(n.DeleteAfter.Seconds()),
	}, nil)
	if err == ErrNotFound || err == ErrPermission {
		// the gateway signals an undeliverable private notice this way
		return ErrDelivery
	}
	return err
}

func (c *HTTPClient) SetSlowmode(ctx context.Context, channelID string, seconds int) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/channels/%s/slowmode", channelID), map[string]any{"seconds": seconds}, nil)
}

func (c *HTTPClient) WritableChannels(ctx context.Context, communityID string) ([]string, error) {
	var out struct {
		Channels []string `json:"channels"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/communities/%s/channels?writable=true", communityID), nil, &out); err != nil {
		return nil, err
	}
	return out.Channels, nil
}

var _ Client = (*HTTPClient)(nil)
