package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/eliteGoblin/focusd/parentguard/internal/domain"
	"github.com/eliteGoblin/focusd/parentguard/internal/policy"
)

const defaultClientTimeout = 30 * time.Second

// APIError is a non-2xx response from the daemon.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("daemon returned %d: %s", e.StatusCode, e.Message)
}

// ErrDaemonUnreachable means nothing answered at the configured address.
var ErrDaemonUnreachable = errors.New("daemon is not reachable")

// Client talks to a running daemon.
type Client struct {
	baseURL string
	pin     string
	http    *http.Client
}

// NewClient creates a client for addr, which is host:port or a URL.
func NewClient(addr, pin string) *Client {
	base := strings.TrimRight(addr, "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: base,
		pin:     pin,
		http: &http.Client{
			Timeout: defaultClientTimeout,
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: 3 * time.Second}).DialContext,
				ResponseHeaderTimeout: defaultClientTimeout,
				MaxIdleConns:          4,
				IdleConnTimeout:       30 * time.Second,
			},
		},
	}
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, &Response{})
}

func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var out StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ScreenTime(ctx context.Context) (*ScreenTimeResponse, error) {
	var out ScreenTimeResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/screen-time", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Processes(ctx context.Context) ([]string, error) {
	var out ProcessesResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/processes", nil, &out); err != nil {
		return nil, err
	}
	return out.Processes, nil
}

// Activity returns journal entries, newest first. An empty profile
// matches every profile; limit <= 0 uses the server default.
func (c *Client) Activity(ctx context.Context, profile string, limit int) ([]domain.ActivityEvent, error) {
	q := url.Values{}
	if profile != "" {
		q.Set("profile", profile)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/v1/activity"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out ActivityResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Events, nil
}

func (c *Client) UpdateRules(ctx context.Context, spec policy.RuleSpec) (string, error) {
	return c.command(ctx, http.MethodPut, "/api/v1/rules", spec)
}

func (c *Client) StartMonitoring(ctx context.Context) (string, error) {
	return c.command(ctx, http.MethodPost, "/api/v1/monitoring/start", nil)
}

func (c *Client) StopMonitoring(ctx context.Context) (string, error) {
	return c.command(ctx, http.MethodPost, "/api/v1/monitoring/stop", nil)
}

func (c *Client) BlockSite(ctx context.Context, site string) (string, error) {
	return c.command(ctx, http.MethodPost, "/api/v1/sites/"+url.PathEscape(site), nil)
}

func (c *Client) UnblockSite(ctx context.Context, site string) (string, error) {
	return c.command(ctx, http.MethodDelete, "/api/v1/sites/"+url.PathEscape(site), nil)
}

func (c *Client) KillProcess(ctx context.Context, name string) (string, error) {
	return c.command(ctx, http.MethodPost, "/api/v1/processes/"+url.PathEscape(name)+"/kill", nil)
}

func (c *Client) CutInternet(ctx context.Context) (string, error) {
	return c.command(ctx, http.MethodPost, "/api/v1/network/cut", nil)
}

func (c *Client) RestoreInternet(ctx context.Context) (string, error) {
	return c.command(ctx, http.MethodPost, "/api/v1/network/restore", nil)
}

func (c *Client) command(ctx context.Context, method, path string, body any) (string, error) {
	var out Response
	if err := c.do(ctx, method, path, body, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.pin != "" {
		req.Header.Set(HeaderAdminPIN, c.pin)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			return fmt.Errorf("%w at %s: %v", ErrDaemonUnreachable, c.baseURL, err)
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var envelope Response
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if json.Unmarshal(data, &envelope) != nil || envelope.Message == "" {
			envelope.Message = strings.TrimSpace(string(data))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: envelope.Message}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
