package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dtnitsch/docbundle/pkg/caching"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>" + r.Header.Get("X-Test") + "</body></html>"))
	})
	mux.HandleFunc("/json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"a":1}`))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	})
	mux.HandleFunc("/redirect", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/page", http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testOptions() Options {
	return Options{
		Concurrency:     2,
		Timeout:         5 * time.Second,
		FollowRedirects: true,
		VerifySSL:       true,
		Headers:         map[string]string{"X-Test": "hello"},
	}
}

func TestFetchHTML(t *testing.T) {
	srv := newTestServer(t)
	f := NewFetcher(testOptions())

	resp, err := f.FetchHTML(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(resp.Body), "hello", "default headers are sent")
	assert.False(t, resp.FromCache)
}

func TestFetchHTMLFailureKinds(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name       string
		opts       func(*Options)
		path       string
		wantKind   string
		wantStatus int
	}{
		{name: "non-2xx status", path: "/missing", wantKind: KindStatus, wantStatus: http.StatusNotFound},
		{name: "not html", path: "/json", wantKind: KindContentType, wantStatus: http.StatusOK},
		{name: "timeout", path: "/slow", opts: func(o *Options) { o.Timeout = 20 * time.Millisecond }, wantKind: KindTimeout},
		{name: "redirect not followed", path: "/redirect", opts: func(o *Options) { o.FollowRedirects = false }, wantKind: KindStatus, wantStatus: http.StatusFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions()
			if tt.opts != nil {
				tt.opts(&opts)
			}
			f := NewFetcher(opts)

			_, err := f.FetchHTML(context.Background(), srv.URL+tt.path)
			require.Error(t, err)

			var fe *FetchError
			require.True(t, errors.As(err, &fe), "error should be a *FetchError, got %T", err)
			assert.Equal(t, tt.wantKind, fe.Kind)
			assert.Equal(t, tt.wantStatus, fe.StatusCode)
		})
	}
}

func TestFetchHTMLTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := NewFetcher(testOptions()).FetchHTML(context.Background(), addr)
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindTransport, fe.Kind)
}

func TestFetchHTMLFollowsRedirect(t *testing.T) {
	srv := newTestServer(t)
	resp, err := NewFetcher(testOptions()).FetchHTML(context.Background(), srv.URL+"/redirect")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/page", resp.FinalURL)
}

func TestFetchHTMLUsesCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>cached</html>"))
	}))
	t.Cleanup(srv.Close)

	cache, err := caching.NewCache(t.TempDir(), time.Hour)
	require.NoError(t, err)
	opts := testOptions()
	opts.Cache = cache
	f := NewFetcher(opts)

	first, err := f.FetchHTML(context.Background(), srv.URL)
	require.NoError(t, err)
	second, err := f.FetchHTML(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.False(t, first.FromCache)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Body, second.Body)
	assert.Equal(t, int32(1), hits.Load())
}

func TestGetBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		inFlight.Add(-1)
		w.Header().Set("Content-Type", "text/plain")
	}))
	t.Cleanup(srv.Close)

	f := NewFetcher(testOptions())
	done := make(chan struct{})
	for i := 0; i < 6; i++ {
		go func() {
			_, _ = f.Get(context.Background(), srv.URL, nil)
			done <- struct{}{}
		}()
	}
	for i := 0; i < 6; i++ {
		<-done
	}
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestGetCancelledContext(t *testing.T) {
	srv := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFetcher(testOptions()).Get(ctx, srv.URL+"/page", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetRejectsOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(strings.Repeat("x", 17)))
	}))
	t.Cleanup(srv.Close)

	opts := testOptions()
	opts.MaxBodySize = 16
	_, err := NewFetcher(opts).Get(context.Background(), srv.URL, nil)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindRead, fe.Kind)

	opts.MaxBodySize = 17
	resp, err := NewFetcher(opts).Get(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Len(t, resp.Body, 17)
}
