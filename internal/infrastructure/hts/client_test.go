package hts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dutyrobot/backend/internal/domain"
	"github.com/dutyrobot/backend/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	return NewClient(Options{
		BaseURL:           baseURL,
		Timeout:           time.Second,
		RequestsPerSecond: 1000,
		Burst:             100,
		Logger:            logging.Discard(),
	})
}

func jsonServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(Options{})

	assert.Equal(t, DefaultBaseURL, client.baseURL)
	assert.Equal(t, DefaultTimeout, client.httpClient.Timeout)
	assert.Equal(t, DefaultTimeout, client.timeout)
	assert.Equal(t, DefaultUserAgent, client.userAgent)
	assert.Equal(t, DefaultReferer, client.referer)
	assert.NotNil(t, client.rateLimiter)
	assert.NotNil(t, client.logger)
}

func TestFetchBaseRate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/export", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "4011101020", r.URL.Query().Get("from"))
		assert.Equal(t, "4011101020", r.URL.Query().Get("to"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, DefaultReferer, r.Header.Get("Referer"))
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla/5.0")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"htsno":"4011.10.10.20","general_rate_of_duty":"4%"}]`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	rate, err := client.FetchBaseRate(context.Background(), "4011101020")

	require.NoError(t, err)
	assert.Equal(t, "4", rate.String())
}

func TestFetchBaseRate_ShortCodeUsedAsIs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "4011", r.URL.Query().Get("from"))
		assert.Equal(t, "4011", r.URL.Query().Get("to"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"general_rate_of_duty":"4.5%"}]`))
	}))
	defer server.Close()

	rate, err := newTestClient(server.URL).FetchBaseRate(context.Background(), "4011")

	require.NoError(t, err)
	assert.Equal(t, "4.5", rate.String())
}

func TestFetchBaseRate_MissingFieldDefaultsToZero(t *testing.T) {
	server := jsonServer(t, `[{"htsno":"4011"}]`)

	rate, err := newTestClient(server.URL).FetchBaseRate(context.Background(), "4011")

	require.NoError(t, err)
	assert.True(t, rate.IsZero())
}

func TestFetchBaseRate_EmptyStringIsZero(t *testing.T) {
	server := jsonServer(t, `[{"general_rate_of_duty":""}]`)

	rate, err := newTestClient(server.URL).FetchBaseRate(context.Background(), "4011")

	require.NoError(t, err)
	assert.True(t, rate.IsZero())
}

func TestFetchBaseRate_EmptyList(t *testing.T) {
	server := jsonServer(t, `[]`)

	_, err := newTestClient(server.URL).FetchBaseRate(context.Background(), "9999999999")

	assert.ErrorIs(t, err, domain.ErrCodeNotFound)
}

func TestFetchBaseRate_Forbidden(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchBaseRate(context.Background(), "4011")

	assert.ErrorIs(t, err, domain.ErrUpstreamBlocked)
	assert.NotErrorIs(t, err, domain.ErrUpstreamStatus)
}

func TestFetchBaseRate_BadStatus(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchBaseRate(context.Background(), "4011")

	require.ErrorIs(t, err, domain.ErrUpstreamStatus)
	var statusErr *domain.UpstreamStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, int32(1), attempts.Load(), "no retries expected")
}

func TestFetchBaseRate_HTMLWith200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>Access denied</body></html>"))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchBaseRate(context.Background(), "4011")

	assert.ErrorIs(t, err, domain.ErrUpstreamMalformed)
}

func TestFetchBaseRate_InvalidJSON(t *testing.T) {
	server := jsonServer(t, "invalid json")

	_, err := newTestClient(server.URL).FetchBaseRate(context.Background(), "4011")

	assert.ErrorIs(t, err, domain.ErrUpstreamMalformed)
	assert.Contains(t, err.Error(), "failed to decode response")
}

func TestFetchBaseRate_ObjectInsteadOfList(t *testing.T) {
	server := jsonServer(t, `{"error":"bad range"}`)

	_, err := newTestClient(server.URL).FetchBaseRate(context.Background(), "4011")

	assert.ErrorIs(t, err, domain.ErrUpstreamMalformed)
}

func TestFetchBaseRate_UnparseableRate(t *testing.T) {
	server := jsonServer(t, `[{"general_rate_of_duty":"2.5% + 3¢/kg"}]`)

	_, err := newTestClient(server.URL).FetchBaseRate(context.Background(), "4011")

	assert.ErrorIs(t, err, domain.ErrUpstreamMalformed)
}

func TestFetchBaseRate_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(url).FetchBaseRate(context.Background(), "4011")

	assert.ErrorIs(t, err, domain.ErrUpstreamUnreachable)
}

func TestFetchBaseRate_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(Options{
		BaseURL: server.URL,
		Timeout: 50 * time.Millisecond,
		Logger:  logging.Discard(),
	})

	_, err := client.FetchBaseRate(context.Background(), "4011")

	assert.ErrorIs(t, err, domain.ErrUpstreamUnreachable)
}

func TestFetchBaseRate_ThrottleWaitCountsAgainstTimeout(t *testing.T) {
	server := jsonServer(t, `[{"general_rate_of_duty":"4%"}]`)

	client := NewClient(Options{
		BaseURL:           server.URL,
		Timeout:           200 * time.Millisecond,
		RequestsPerSecond: 0.5,
		Burst:             1,
		Logger:            logging.Discard(),
	})

	_, err := client.FetchBaseRate(context.Background(), "4011")
	require.NoError(t, err)

	start := time.Now()
	_, err = client.FetchBaseRate(context.Background(), "8471")
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, domain.ErrUpstreamUnreachable)
	assert.Less(t, elapsed, time.Second, "throttled call must not outlive the timeout")
}

func TestFetchBaseRate_ForbiddenWithTruncatedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Length", "100")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`[`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchBaseRate(context.Background(), "4011")

	assert.ErrorIs(t, err, domain.ErrUpstreamBlocked)
	assert.NotErrorIs(t, err, domain.ErrUpstreamUnreachable)
}

func TestFetchBaseRate_BadStatusWithTruncatedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`<html>`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchBaseRate(context.Background(), "4011")

	var statusErr *domain.UpstreamStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
}

func TestFetchBaseRate_ContextCancelled(t *testing.T) {
	server := jsonServer(t, `[{"general_rate_of_duty":"4%"}]`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(server.URL).FetchBaseRate(ctx, "4011")

	assert.ErrorIs(t, err, domain.ErrUpstreamUnreachable)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "blocked", outcome(domain.ErrUpstreamBlocked))
	assert.Equal(t, "status", outcome(&domain.UpstreamStatusError{StatusCode: 500}))
	assert.Equal(t, "malformed", outcome(domain.ErrUpstreamMalformed))
	assert.Equal(t, "not_found", outcome(domain.ErrCodeNotFound))
	assert.Equal(t, "error", outcome(assert.AnError))
}
