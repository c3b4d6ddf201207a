// Package http_client registers the "Http" class, which lets scripts make
// HTTP requests through a shared client, and the "HttpResponse" class its
// calls return.
package http_client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/specialistvlad/gridscript/internal/ctxlog"
	"github.com/specialistvlad/gridscript/internal/registry"
)

// Module registers the classes. Timeout defaults to 30s.
type Module struct {
	Timeout time.Duration
}

// Http holds the client shared by every request made from scripts.
type Http struct {
	// UserAgent is sent with every request when not empty.
	UserAgent string

	client *http.Client
}

// HttpResponse is the result of a request.
type HttpResponse struct {
	StatusCode int32  `script:"status_code"`
	Status     string `script:"status"`
	Body       string `script:"body"`
	OK         bool   `script:"ok"`
}

func newClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Request performs a request and reads the whole response body. Non-2xx
// statuses are not errors; check the response's ok field.
func (h *Http) Request(ctx context.Context, method, url, body string) (*HttpResponse, error) {
	logger := ctxlog.FromContext(ctx)
	if method == "" {
		method = http.MethodGet
	}
	logger.Debug("Making HTTP request", "method", method, "url", url)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}

	client := h.client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	logger.Debug("Received HTTP response", "status", resp.Status, "bytes", len(data))

	return &HttpResponse{
		StatusCode: int32(resp.StatusCode),
		Status:     resp.Status,
		Body:       string(data),
		OK:         resp.StatusCode >= 200 && resp.StatusCode < 300,
	}, nil
}

// Register registers the classes and their functions with the registry.
func (m *Module) Register(r *registry.Registry) {
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	r.RegisterClass("HttpResponse", (*HttpResponse)(nil))
	r.RegisterClass("Http", (*Http)(nil), registry.Singleton(&Http{client: newClient(timeout)}))

	r.RegisterFunction("Http", "Request", func(ctx context.Context, h *Http, method, url, body string) (*HttpResponse, error) {
		return h.Request(ctx, method, url, body)
	}, registry.Args("method", "url", "body"))
	r.RegisterFunction("Http", "Get", func(ctx context.Context, h *Http, url string) (*HttpResponse, error) {
		return h.Request(ctx, http.MethodGet, url, "")
	}, registry.Args("url"))
	r.RegisterFunction("Http", "Post", func(ctx context.Context, h *Http, url, body string) (*HttpResponse, error) {
		return h.Request(ctx, http.MethodPost, url, body)
	}, registry.Args("url", "body"))
}
