package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/tidwall/gjson"
)

// HTTPError represents an error response from the server with a status code
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// HTTPClient makes requests to a running tenancy server.
type HTTPClient struct {
	serverURL  string
	token      string
	attempts   uint
	httpClient *http.Client
}

func NewHTTPClient(serverURL, token string) *HTTPClient {
	return &HTTPClient{
		serverURL:  serverURL,
		token:      token,
		attempts:   3,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type RequestOptions struct {
	Method string
	Path   string
	Body   []byte
}

// DoRequest sends the request and returns the response body. Transport failures are retried,
// error statuses are not.
func (c *HTTPClient) DoRequest(ctx context.Context, opts RequestOptions) ([]byte, error) {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %v", err)
	}
	u.Path = path.Join(u.Path, opts.Path)

	var body []byte
	err = retry.Do(func() error {
		req, err := http.NewRequestWithContext(ctx, opts.Method, u.String(), bytes.NewReader(opts.Body))
		if err != nil {
			return retry.Unrecoverable(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 400 {
			msg := gjson.GetBytes(b, "error").String()
			if msg == "" {
				msg = string(b)
			}
			return retry.Unrecoverable(&HTTPError{StatusCode: resp.StatusCode, Message: msg})
		}
		body = b
		return nil
	},
		retry.Attempts(c.attempts),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			return nil, httpErr
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return body, nil
}
