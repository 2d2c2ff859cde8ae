package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"wardan/internal/logging"
	"wardan/internal/types"
)

const (
	defaultBaseURL   = "http://127.0.0.1:8000"
	defaultQueryPath = "/api/agent/query"
	defaultLoginPath = "/auth/login"
	defaultMePath    = "/auth/me"
	defaultTimeout   = 60 * time.Second
)

var ErrMalformedReply = errors.New("malformed agent reply")

// TokenSource supplies the Authorization header value, or "" when the user
// is not logged in.
type TokenSource interface {
	AuthHeader() string
}

type Options struct {
	BaseURL   string
	QueryPath string
	LoginPath string
	MePath    string
	Timeout   time.Duration
	Tokens    TokenSource
	Logger    logging.Logger
}

type Client struct {
	baseURL   string
	queryPath string
	loginPath string
	mePath    string
	tokens    TokenSource
	logger    logging.Logger
	http      *http.Client
}

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return &Client{
		baseURL:   strings.TrimRight(orDefault(opts.BaseURL, defaultBaseURL), "/"),
		queryPath: orDefault(opts.QueryPath, defaultQueryPath),
		loginPath: orDefault(opts.LoginPath, defaultLoginPath),
		mePath:    orDefault(opts.MePath, defaultMePath),
		tokens:    opts.Tokens,
		logger:    logger,
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

func NewWithBaseURL(baseURL string, tokens TokenSource) *Client {
	return New(Options{BaseURL: baseURL, Tokens: tokens})
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Query performs the one-shot agent call.
func (c *Client) Query(ctx context.Context, req types.QueryRequest) (*types.QueryResponse, error) {
	var resp types.QueryResponse
	if err := c.doJSON(ctx, http.MethodPost, c.queryPath, req, c.authHeader(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login exchanges username and password for an access token using the
// OAuth2 password form the backend expects.
func (c *Client) Login(ctx context.Context, username, password string) (*types.TokenResponse, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)
	form.Set("grant_type", "password")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	var resp types.TokenResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.AccessToken) == "" {
		return nil, errors.New("login response carried no access token")
	}
	return &resp, nil
}

// Me resolves the user behind token. The token is passed explicitly because
// it is not stored until login completes.
func (c *Client) Me(ctx context.Context, token string) (*types.CurrentUser, error) {
	var resp types.CurrentUser
	if err := c.doJSON(ctx, http.MethodGet, c.mePath, nil, "Bearer "+strings.TrimSpace(token), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) authHeader() string {
	if c.tokens == nil {
		return ""
	}
	return c.tokens.AuthHeader()
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, authHeader string, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed", logging.F("method", req.Method), logging.F("path", req.URL.Path), logging.Err(err))
		return err
	}
	defer resp.Body.Close()
	c.logger.Debug("request done",
		logging.F("method", req.Method),
		logging.F("path", req.URL.Path),
		logging.F("status", resp.StatusCode),
		logging.F("dur", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	type errorPayload struct {
		Detail json.RawMessage `json:"detail"`
	}
	var payload errorPayload
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	return &APIError{StatusCode: resp.StatusCode, Detail: detailText(payload.Detail), Status: resp.Status}
}

// detailText flattens the backend's detail field, which is a string for
// handled errors and a list of objects for request validation failures.
func detailText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text)
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if strings.TrimSpace(item.Msg) != "" {
				msgs = append(msgs, strings.TrimSpace(item.Msg))
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	return string(raw)
}

type APIError struct {
	StatusCode int
	Detail     string
	Status     string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Detail
	if msg == "" {
		msg = e.Status
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, msg)
}

func (e *APIError) Unauthorized() bool {
	return e != nil && e.StatusCode == http.StatusUnauthorized
}

func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}
