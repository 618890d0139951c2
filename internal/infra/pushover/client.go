package pushover

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"voice-tasks/internal/infra"
)

const defaultURL = "https://api.pushover.net/1/messages.json"

// Client sends interaction outcomes as push notifications. With no token or
// user key it does nothing.
type Client struct {
	token      string
	userKey    string
	title      string
	endpoint   string
	httpClient *http.Client
	retry      infra.RetryConfig
}

func NewClient(token, userKey string) *Client {
	return NewClientWithURL(token, userKey, defaultURL)
}

func NewClientWithURL(token, userKey, endpoint string) *Client {
	retry := infra.DefaultRetryConfig()
	retry.Retryable = infra.RetryableHTTP
	return &Client{
		token:      token,
		userKey:    userKey,
		title:      "Voice Tasks",
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry:      retry,
	}
}

func (c *Client) Enabled() bool {
	return c.token != "" && c.userKey != ""
}

func (c *Client) Notify(ctx context.Context, message string) error {
	if !c.Enabled() {
		return nil
	}

	data := url.Values{}
	data.Set("token", c.token)
	data.Set("user", c.userKey)
	data.Set("message", message)
	data.Set("title", c.title)
	body := data.Encode()

	return infra.WithRetry(ctx, c.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(body))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending notification: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return &infra.StatusError{Service: "pushover", Code: resp.StatusCode, Body: string(respBody)}
		}
		return nil
	})
}
