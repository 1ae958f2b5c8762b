package pipeline

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:       attempts,
		InitialDelay:      time.Millisecond,
		MaxDelay:          10 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestFetchWithRetryRecoversFrom5xx(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, "outbreak_setting,type_of_outbreak,date_outbreak_began\n")
	}))
	defer srv.Close()

	body, err := fetchWithRetry(context.Background(), srv.URL, fastRetry(3))
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "outbreak_setting")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchWithRetryGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := fetchWithRetry(context.Background(), srv.URL, fastRetry(2))
	require.Error(t, err)

	var loadErr *LoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestFetchWithRetryDoesNotRetry4xx(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := fetchWithRetry(context.Background(), srv.URL, fastRetry(3))
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestBackoffDelayCapped(t *testing.T) {
	cfg := RetryConfig{
		InitialDelay:      time.Second,
		MaxDelay:          5 * time.Second,
		BackoffMultiplier: 10.0,
	}
	assert.Equal(t, time.Second, backoffDelay(cfg, 1))
	assert.Equal(t, 5*time.Second, backoffDelay(cfg, 2))
	assert.Equal(t, 5*time.Second, backoffDelay(cfg, 5))
}
