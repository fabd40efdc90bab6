package timer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/2beens/edgetrack/internal/analytics"
	"github.com/2beens/edgetrack/internal/telemetry/tracing"
)

const (
	HeaderToken  = "X-Edge-Token"
	HeaderUserID = "X-User-Id"
)

// Client drives a remote timer over the service API.
type Client struct {
	baseURL    string
	token      string
	userID     string
	httpClient *http.Client
}

// NewClient returns a client for the service at baseURL. A nil httpClient is
// replaced by a traced default client.
func NewClient(baseURL, token, userID string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		userID:     userID,
		httpClient: httpClient,
	}
}

func (c *Client) Snapshot(ctx context.Context) (*Snapshot, error) {
	snapshot := &Snapshot{}
	if err := c.do(ctx, http.MethodGet, "/timer", snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (c *Client) StartSession(ctx context.Context) (*TransitionResult, error) {
	return c.transition(ctx, "/timer/start")
}

func (c *Client) StartEdge(ctx context.Context) (*TransitionResult, error) {
	return c.transition(ctx, "/timer/edge/start")
}

func (c *Client) EndEdge(ctx context.Context) (*TransitionResult, error) {
	return c.transition(ctx, "/timer/edge/end")
}

func (c *Client) FinishSession(ctx context.Context) (*TransitionResult, error) {
	return c.transition(ctx, "/timer/finish")
}

func (c *Client) Reset(ctx context.Context) (*TransitionResult, error) {
	return c.transition(ctx, "/timer/reset")
}

func (c *Client) Abort(ctx context.Context) (*TransitionResult, error) {
	return c.transition(ctx, "/timer/abort")
}

func (c *Client) Analytics(ctx context.Context) (*analytics.Analytics, error) {
	result := &analytics.Analytics{}
	if err := c.do(ctx, http.MethodGet, "/analytics", result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) transition(ctx context.Context, path string) (*TransitionResult, error) {
	result := &TransitionResult{}
	if err := c.do(ctx, http.MethodPost, path, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, method, path string, out any) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "timer.client.do")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set(HeaderToken, c.token)
	req.Header.Set(HeaderUserID, c.userID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrInvalidTransition, strings.TrimSpace(string(respBytes)))
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(respBytes)))
	}

	if err := json.Unmarshal(respBytes, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
