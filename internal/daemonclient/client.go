// Package daemonclient queries a running skillsd daemon over its HTTP endpoints.
package daemonclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/leefowlercu/skillsd/internal/config"
	"github.com/leefowlercu/skillsd/internal/daemon"
)

// DefaultTimeout bounds each request to the daemon.
const DefaultTimeout = 5 * time.Second

// Client provides a shared HTTP client for daemon endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithBaseURL overrides the URL derived from configuration.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// New creates a Client using daemon configuration.
func New(cfg config.DaemonConfig, opts ...Option) *Client {
	client := &Client{
		baseURL: ResolveBaseURL(cfg),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// NewFromConfig creates a Client from the root config.
// It fails when the config is missing or the HTTP server is disabled.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config not initialized")
	}
	if !cfg.Daemon.HTTPEnabled {
		return nil, fmt.Errorf("daemon http server is disabled")
	}
	return New(cfg.Daemon, opts...), nil
}

// ResolveBaseURL builds the daemon base URL from config.
func ResolveBaseURL(cfg config.DaemonConfig) string {
	return "http://" + net.JoinHostPort(NormalizeBind(cfg.HTTPBind), strconv.Itoa(cfg.HTTPPort))
}

// NormalizeBind maps wildcard binds to loopback for local clients.
func NormalizeBind(bind string) string {
	switch bind {
	case "", "0.0.0.0":
		return "127.0.0.1"
	case "::":
		return "::1"
	}
	return bind
}

// Live fetches /healthz.
func (c *Client) Live(ctx context.Context) (*daemon.LivezResponse, error) {
	var resp daemon.LivezResponse
	if err := c.getJSON(ctx, "/healthz", &resp, http.StatusOK); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ready fetches /readyz. An unready daemon still returns its status.
func (c *Client) Ready(ctx context.Context) (*daemon.HealthStatus, error) {
	var status daemon.HealthStatus
	if err := c.getJSON(ctx, "/readyz", &status, http.StatusOK, http.StatusServiceUnavailable); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any, accept ...int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request; %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to daemon; %w", err)
	}
	defer resp.Body.Close()

	ok := false
	for _, code := range accept {
		if resp.StatusCode == code {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("daemon request failed; status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response; %w", err)
	}

	return nil
}
