package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/config"
	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/models"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Body)
}

// Permanent reports whether retrying the same request can ever succeed.
// Client errors are permanent except 408 (timeout) and 429 (throttled).
func (e *APIError) Permanent() bool {
	if e.Status == http.StatusRequestTimeout || e.Status == http.StatusTooManyRequests {
		return false
	}
	return e.Status >= 400 && e.Status < 500
}

// Client talks to the backend REST API with a bearer token per request.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  oauth2.TokenSource
	logger  *zerolog.Logger
}

// New builds a client from config. When auth.token_url is set, tokens
// come from the identity provider via the client-credentials grant;
// otherwise requests go out unauthenticated (local development).
func New(cfg config.RemoteConfig, auth config.AuthConfig, logger *zerolog.Logger) *Client {
	var tokens oauth2.TokenSource
	if auth.TokenURL != "" {
		cc := clientcredentials.Config{
			TokenURL:     auth.TokenURL,
			ClientID:     auth.ClientID,
			ClientSecret: auth.ClientSecret,
			Scopes:       auth.Scopes,
		}
		tokens = cc.TokenSource(context.Background())
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
		logger:  logger,
	}
}

// NewWithTokenSource is the test/injection constructor.
func NewWithTokenSource(baseURL string, httpClient *http.Client, tokens oauth2.TokenSource, logger *zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		tokens:  tokens,
		logger:  logger,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return fmt.Errorf("obtain token: %w", err)
		}
		token.SetAuthHeader(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	// Drain so the connection can be reused.
	io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) CreateCompulsion(ctx context.Context, compulsion *models.Compulsion) error {
	return c.do(ctx, http.MethodPost, "/api/compulsions", compulsion)
}

func (c *Client) UpdateCompulsion(ctx context.Context, compulsion *models.Compulsion) error {
	return c.do(ctx, http.MethodPut, "/api/compulsions/"+compulsion.ID, compulsion)
}

func (c *Client) DeleteCompulsion(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/compulsions/"+id, nil)
}

func (c *Client) CreateERPSession(ctx context.Context, session *models.ERPSession) error {
	return c.do(ctx, http.MethodPost, "/api/erp/sessions", session)
}

func (c *Client) CompleteERPSession(ctx context.Context, session *models.ERPSession) error {
	return c.do(ctx, http.MethodPost, "/api/erp/sessions/"+session.ID+"/complete", session)
}

func (c *Client) UpdateUserProgress(ctx context.Context, progress *models.UserProgress) error {
	return c.do(ctx, http.MethodPut, "/api/users/"+progress.UserID+"/progress", progress)
}

// Ping is the connectivity probe used by the watcher.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 500 {
		return &APIError{Status: resp.StatusCode}
	}
	return nil
}
