package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"sort"

	"github.com/google/uuid"

	"github.com/set-night/histamine-helper/internal/config"
	"github.com/set-night/histamine-helper/internal/domain"
)

// Fetcher performs one request against the AI proxy.
type Fetcher interface {
	Fetch(ctx context.Context, fields map[string]string) ([]byte, error)
}

type ProxyClient struct {
	endpoint   string
	secretKey  string
	httpClient *http.Client
}

func NewProxyClient(endpoint, secretKey string) *ProxyClient {
	if secretKey == "" {
		slog.Warn("proxy secret key not configured, requests will be sent unauthenticated")
	}
	return &ProxyClient{
		endpoint:   endpoint,
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: config.ProxyTimeout},
	}
}

// WithHTTPClient replaces the underlying client.
func (c *ProxyClient) WithHTTPClient(hc *http.Client) *ProxyClient {
	c.httpClient = hc
	return c
}

// Fetch posts fields as multipart/form-data. Non-2xx responses are returned like any other body.
func (c *ProxyClient) Fetch(ctx context.Context, fields map[string]string) ([]byte, error) {
	body, contentType, err := EncodeMultipart(fields)
	if err != nil {
		return nil, fmt.Errorf("encode form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.secretKey != "" {
		req.Header.Set(config.SecretHeader, c.secretKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("proxy request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	slog.Debug("proxy response", "status", resp.StatusCode, "bytes", len(data))

	if len(data) == 0 {
		return nil, domain.ErrNoData
	}
	return data, nil
}

// EncodeMultipart writes one text part per field, in key order.
func EncodeMultipart(fields map[string]string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.SetBoundary("Boundary-" + uuid.NewString()); err != nil {
		return nil, "", err
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := w.WriteField(k, fields[k]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
