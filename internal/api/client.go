// Package api is the HTTP adapter for the ApprovalHub backend. Every
// response is wrapped in a {code, data, message} envelope; the client
// unwraps it and maps failures onto NetworkError, ApplicationError and
// ErrAuthExpired.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Moriarty1227/YIR-ApprovalHub/internal/application/dispatcher"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/domain/event"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/session"
)

// CodeOK is the envelope code of a successful call
const CodeOK = 200

// HeaderRequestID carries the per-request correlation id
const HeaderRequestID = "X-Request-Id"

// HTTPClient interface for testability
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures the client
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Client talks to the backend on behalf of the current session
type Client struct {
	baseURL    string
	userAgent  string
	httpClient HTTPClient
	session    *session.Session
	dispatcher dispatcher.Dispatcher
	logger     *zap.Logger
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient replaces the transport
func WithHTTPClient(c HTTPClient) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// NewClient creates a client. The dispatcher may be nil, in which case
// auth expiry only clears the session.
func NewClient(cfg Config, sess *session.Session, d dispatcher.Dispatcher, logger *zap.Logger, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: timeout},
		session:    sess,
		dispatcher: d,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the session the client authenticates with
func (c *Client) Session() *session.Session {
	return c.session
}

type envelope struct {
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func get[T any](ctx context.Context, c *Client, path string, query url.Values) (*T, error) {
	if len(query) > 0 {
		path = path + "?" + query.Encode()
	}
	var out T
	found, err := c.do(ctx, http.MethodGet, path, nil, "", &out)
	if err != nil || !found {
		return nil, err
	}
	return &out, nil
}

func post[T any](ctx context.Context, c *Client, path string, body interface{}) (*T, error) {
	var (
		reader      io.Reader
		contentType string
	)
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
		contentType = "application/json"
	}

	var out T
	found, err := c.do(ctx, http.MethodPost, path, reader, contentType, &out)
	if err != nil || !found {
		return nil, err
	}
	return &out, nil
}

// postMultipart streams a single file as the form field "file"
func postMultipart[T any](ctx context.Context, c *Client, path, fileName string, content io.Reader) (*T, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := func() error {
			part, err := mw.CreateFormFile("file", fileName)
			if err != nil {
				return err
			}
			if _, err := io.Copy(part, content); err != nil {
				return err
			}
			return mw.Close()
		}()
		pw.CloseWithError(err)
	}()

	var out T
	found, err := c.do(ctx, http.MethodPost, path, pr, mw.FormDataContentType(), &out)
	if err != nil {
		pr.CloseWithError(err)
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &out, nil
}

// do sends one request and decodes the envelope's data into out. found is
// false when the server answered success without data (missing or null);
// out is left untouched then.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) (found bool, err error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Error(err))
		return false, &NetworkError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("Request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode == http.StatusUnauthorized {
		c.expireSession(ctx, requestID)
		return false, ErrAuthExpired
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, &NetworkError{Method: method, Path: path, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return false, &ApplicationError{Code: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return false, fmt.Errorf("failed to decode response envelope: %w", err)
	}

	if env.Code != CodeOK {
		c.logger.Info("Server rejected request",
			zap.String("path", path),
			zap.Int("code", env.Code),
			zap.String("message", env.Message),
			zap.String("request_id", requestID))
		return false, &ApplicationError{Code: env.Code, Message: env.Message}
	}

	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return true, nil
}

// expireSession clears token and user together and tells subscribers
func (c *Client) expireSession(ctx context.Context, requestID string) {
	c.logger.Warn("Session expired, clearing credentials", zap.String("request_id", requestID))

	if err := c.session.Clear(); err != nil {
		c.logger.Error("Failed to clear session", zap.Error(err))
	}

	if c.dispatcher == nil {
		return
	}
	evt := event.NewEventWithCorrelation(event.TypeAuthExpired, 0, nil, requestID)
	// Subscribers must still run when the caller's context is already done
	if err := c.dispatcher.Dispatch(context.WithoutCancel(ctx), evt); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error("Auth expiry handler failed", zap.Error(err))
	}
}
