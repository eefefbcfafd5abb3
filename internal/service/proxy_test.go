package service

import (
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/histamine-helper/internal/config"
	"github.com/set-night/histamine-helper/internal/domain"
)

type capturedRequest struct {
	method      string
	secret      []string
	contentType string
	parts       []string
	values      map[string]string
}

func captureServer(t *testing.T, status int, body string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	got := &capturedRequest{values: map[string]string{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.secret = r.Header.Values(config.SecretHeader)
		got.contentType = r.Header.Get("Content-Type")

		_, params, err := mime.ParseMediaType(got.contentType)
		if assert.NoError(t, err) {
			mr := multipart.NewReader(r.Body, params["boundary"])
			for {
				p, err := mr.NextPart()
				if err == io.EOF {
					break
				}
				if !assert.NoError(t, err) {
					break
				}
				data, _ := io.ReadAll(p)
				got.parts = append(got.parts, p.FormName())
				got.values[p.FormName()] = string(data)
			}
		}

		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestProxyClient_Fetch(t *testing.T) {
	srv, got := captureServer(t, http.StatusOK, `{"choices":[{"message":{"content":"Safe to eat"}}]}`)
	client := NewProxyClient(srv.URL, "s3cret")

	body, err := client.Fetch(context.Background(), map[string]string{
		FieldModel:    "gpt-4o-mini",
		FieldMessages: `[{"role":"user","content":"hi"}]`,
	})
	require.NoError(t, err)

	reply := ParseReply(body)
	assert.Equal(t, ReplyCompletion, reply.Kind)
	assert.Equal(t, "Safe to eat", reply.Text)

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, []string{"s3cret"}, got.secret)
	assert.True(t, strings.HasPrefix(got.contentType, "multipart/form-data; boundary=Boundary-"))
	assert.Equal(t, []string{FieldMessages, FieldModel}, got.parts)
	assert.Equal(t, `[{"role":"user","content":"hi"}]`, got.values[FieldMessages])
	assert.Equal(t, "gpt-4o-mini", got.values[FieldModel])
}

func TestProxyClient_NoSecretOmitsHeader(t *testing.T) {
	srv, got := captureServer(t, http.StatusOK, "ok")
	client := NewProxyClient(srv.URL, "")

	_, err := client.Fetch(context.Background(), map[string]string{FieldMessages: "[]"})
	require.NoError(t, err)
	assert.Empty(t, got.secret)
}

func TestProxyClient_StatusDoesNotGateSuccess(t *testing.T) {
	srv, _ := captureServer(t, http.StatusInternalServerError, "upstream failed")
	client := NewProxyClient(srv.URL, "k")

	body, err := client.Fetch(context.Background(), map[string]string{FieldMessages: "[]"})
	require.NoError(t, err)
	assert.Equal(t, "upstream failed", string(body))
}

func TestProxyClient_EmptyBody(t *testing.T) {
	srv, _ := captureServer(t, http.StatusOK, "")
	client := NewProxyClient(srv.URL, "k")

	_, err := client.Fetch(context.Background(), map[string]string{FieldMessages: "[]"})
	assert.ErrorIs(t, err, domain.ErrNoData)
	assert.EqualError(t, err, "No data received")
}

func TestProxyClient_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewProxyClient(url, "k")
	_, err := client.Fetch(context.Background(), map[string]string{FieldMessages: "[]"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "proxy request")
}

func TestProxyClient_SingleAttempt(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "bad gateway")
	}))
	defer srv.Close()

	client := NewProxyClient(srv.URL, "k").WithHTTPClient(srv.Client())
	_, err := client.Fetch(context.Background(), map[string]string{FieldMessages: "[]"})
	require.NoError(t, err)
	assert.Equal(t, 1, hits)
}

func TestProxyClient_ContextCanceled(t *testing.T) {
	srv, _ := captureServer(t, http.StatusOK, "ok")
	client := NewProxyClient(srv.URL, "k")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Fetch(ctx, map[string]string{FieldMessages: "[]"})
	assert.ErrorIs(t, err, context.Canceled)
}
