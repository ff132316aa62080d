// Package apiclient talks to the remote marketplace API. Every authenticated
// call carries the session token as a bearer header; a 401 on any call other
// than sign-in fires the unauthorized hook so the owning session is cleared.
package apiclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger
}

// UnauthorizedHook is called with the token that the API rejected.
type UnauthorizedHook func(ctx context.Context, token string)

type Client struct {
	http   *resty.Client
	logger *slog.Logger

	mu             sync.RWMutex
	onUnauthorized UnauthorizedHook
}

func New(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	c := &Client{http: rc, logger: logger}
	rc.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		c.logger.Debug("api call",
			"method", resp.Request.Method,
			"url", resp.Request.URL,
			"status", resp.StatusCode(),
			"duration", resp.Time())
		return nil
	})
	return c
}

// OnUnauthorized registers the hook fired on 401 answers.
func (c *Client) OnUnauthorized(hook UnauthorizedHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = hook
}

type call struct {
	method     string
	path       string
	token      string
	pathParams map[string]string
	query      map[string]string
	body       interface{}
	result     interface{}
	// signIn suppresses the unauthorized hook: bad credentials are not a
	// session failure.
	signIn bool
}

func (c *Client) send(ctx context.Context, cl call) error {
	var eb errorBody
	req := c.http.R().SetContext(ctx).SetError(&eb)
	if cl.token != "" {
		req.SetAuthToken(cl.token)
	}
	if len(cl.pathParams) > 0 {
		req.SetPathParams(cl.pathParams)
	}
	if len(cl.query) > 0 {
		req.SetQueryParams(cl.query)
	}
	if cl.body != nil {
		req.SetBody(cl.body)
	}
	if cl.result != nil {
		req.SetResult(cl.result)
	}

	resp, err := req.Execute(cl.method, cl.path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", cl.method, cl.path, err)
	}

	if resp.StatusCode() == http.StatusUnauthorized && !cl.signIn && cl.token != "" {
		c.mu.RLock()
		hook := c.onUnauthorized
		c.mu.RUnlock()
		if hook != nil {
			hook(ctx, cl.token)
		}
	}
	if resp.IsError() {
		return &APIError{StatusCode: resp.StatusCode(), Message: eb.text()}
	}
	return nil
}

func pageQuery(page, limit int) map[string]string {
	return map[string]string{
		"page":  strconv.Itoa(page),
		"limit": strconv.Itoa(limit),
	}
}
