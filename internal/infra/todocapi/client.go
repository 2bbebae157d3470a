package todocapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/yanqian/todoc/internal/domain/auth"
	apperrors "github.com/yanqian/todoc/pkg/errors"
	"github.com/yanqian/todoc/pkg/metrics"
)

const defaultBaseURL = "http://localhost:8000/api"

// Config configures the records API client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// Token is a fallback bearer credential for callers that do not carry one
	// in their context, such as the CLI.
	Token string
}

// Client talks to the parenting journal REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     oauth2.TokenSource
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewClient builds an API client.
func NewClient(cfg Config, m *metrics.Metrics, logger *slog.Logger) *Client {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	var tokens oauth2.TokenSource
	if tok := strings.TrimSpace(cfg.Token); tok != "" {
		tokens = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok, TokenType: "Bearer"})
	}
	return &Client{
		baseURL:    strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		metrics:    m,
		logger:     logger.With("component", "todocapi.client"),
	}
}

// token prefers the caller's own credential over the configured fallback.
func (c *Client) token(ctx context.Context) (*oauth2.Token, error) {
	if tok, ok := auth.TokenFromContext(ctx); ok {
		return &oauth2.Token{AccessToken: tok, TokenType: "Bearer"}, nil
	}
	if c.tokens == nil {
		return nil, nil
	}
	return c.tokens.Token()
}

// clientFor returns an http.Client whose oauth2.Transport attaches tok to
// every request. A nil tok sends requests without credentials.
func (c *Client) clientFor(tok *oauth2.Token) *http.Client {
	if tok == nil {
		return c.httpClient
	}
	return &http.Client{
		Timeout: c.httpClient.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(tok),
			Base:   c.httpClient.Transport,
		},
	}
}

// StatusError reports a non-2xx answer the client has no specific mapping for.
type StatusError struct {
	Operation string
	Status    int
	Body      string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status=%d body=%s", e.Operation, e.Status, e.Body)
}

// do sends one request and decodes a JSON answer into out when out is non-nil.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) (err error) {
	started := time.Now()
	defer func() { c.metrics.ObserveUpstream(op, started, err) }()

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	tok, err := c.token(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeUnauthorized, "로그인이 필요해요.", err)
	}

	resp, err := c.clientFor(tok).Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return apperrors.Wrap(apperrors.CodeUnauthorized, "로그인이 만료되었어요.", &StatusError{Operation: op, Status: resp.StatusCode})
	case resp.StatusCode == http.StatusNotFound:
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return apperrors.Wrap(apperrors.CodeNotFound, "찾을 수 없어요.", &StatusError{Operation: op, Status: resp.StatusCode, Body: string(payload)})
	case resp.StatusCode >= 300:
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		statusErr := &StatusError{Operation: op, Status: resp.StatusCode, Body: string(payload)}
		if resp.StatusCode >= 500 {
			c.logger.Error("upstream request failed", "operation", op, "status", resp.StatusCode)
		}
		return statusErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}
