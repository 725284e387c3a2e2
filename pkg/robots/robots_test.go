package robots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dtnitsch/docbundle/pkg/fetcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFetcher() *fetcher.Fetcher {
	return fetcher.NewFetcher(fetcher.Options{Concurrency: 1, Timeout: 5 * time.Second, FollowRedirects: true, VerifySSL: true})
}

func TestPolicyAllowed(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
	}))
	t.Cleanup(srv.Close)

	p := NewPolicy(newFetcher(), "docbundle", time.Hour, nil)
	ctx := context.Background()

	tests := []struct {
		path string
		want bool
	}{
		{"/docs/intro", true},
		{"/private", false},
		{"/private/keys", false},
		{"/", true},
	}
	for _, tt := range tests {
		got, err := p.Allowed(ctx, srv.URL+tt.path)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.path)
	}
	assert.Equal(t, int32(1), hits.Load(), "robots.txt is fetched once per host")
}

func TestPolicyMissingRobotsAllowsAll(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	p := NewPolicy(newFetcher(), "docbundle", 0, nil)
	ok, err := p.Allowed(context.Background(), srv.URL+"/anything")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPolicyRejectsBadURL(t *testing.T) {
	p := NewPolicy(newFetcher(), "docbundle", 0, nil)
	_, err := p.Allowed(context.Background(), "/relative/only")
	assert.Error(t, err)
}
