package scrapeops

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "https://example.com/results?name=Jane%20Doe", r.URL.Query().Get("url"))
		assert.Equal(t, "us", r.URL.Query().Get("country"))
		w.Write([]byte("<html>ok</html>")) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL+"/v1/"))
	resp, err := client.Get(context.Background(), "https://example.com/results?name=Jane%20Doe")

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<html>ok</html>", string(resp.Body))
}

func TestGet_NonOKIsNotError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("busy")) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL))
	resp, err := client.Get(context.Background(), "https://example.com")

	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "busy", string(resp.Body))
}

func TestGet_Country(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ca", r.URL.Query().Get("country"))
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL), WithCountry("ca"))
	_, err := client.Get(context.Background(), "https://example.com")
	require.NoError(t, err)
}

func TestGet_ContextCancelled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient("k", WithBaseURL(srv.URL))
	_, err := client.Get(ctx, "https://example.com")
	require.Error(t, err)
}

func TestGet_RateLimited(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL), WithRateLimit(20))
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.Get(context.Background(), "https://example.com")
		require.NoError(t, err)
	}

	assert.Equal(t, int32(3), hits.Load())
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestRequestURL(t *testing.T) {
	t.Parallel()

	got, err := RequestURL(DefaultBaseURL, "abc", "https://www.truepeoplesearch.com/find/person/x", "us")
	require.NoError(t, err)
	assert.Equal(t,
		"https://proxy.scrapeops.io/v1/?api_key=abc&country=us&url=https%3A%2F%2Fwww.truepeoplesearch.com%2Ffind%2Fperson%2Fx",
		got)

	got, err = RequestURL(DefaultBaseURL, "abc", "https://x.test", "")
	require.NoError(t, err)
	assert.NotContains(t, got, "country=")
}
