package resttool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout  = 15 * time.Second
	maxResponseBody = 4 << 20
)

// Response is the make_request tool result. Data holds decoded JSON, or the
// raw body text when it is not JSON.
type Response struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code,omitempty"`
	Data       any    `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
}

type Client struct {
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{httpClient: &http.Client{Timeout: timeout}}
}

// MakeRequest issues a GET to rawURL. Only a 200 response is a success;
// transport failures are reported in the Response, never as an error.
func (c *Client) MakeRequest(ctx context.Context, rawURL string) Response {
	target, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return Response{Error: fmt.Sprintf("Request failed: invalid URL %q", rawURL)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return Response{Error: fmt.Sprintf("Request failed: %v", err)}
	}
	req.Header.Set("Accept", "application/json, text/plain;q=0.9, */*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{Error: fmt.Sprintf("Request failed: %v", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
		return Response{
			StatusCode: resp.StatusCode,
			Error:      fmt.Sprintf("Request failed with status code %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return Response{StatusCode: resp.StatusCode, Error: fmt.Sprintf("Request failed: read body: %v", err)}
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Response{Success: true, StatusCode: resp.StatusCode, Data: string(body)}
	}
	return Response{Success: true, StatusCode: resp.StatusCode, Data: decoded}
}
