package dictionary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, handler http.HandlerFunc) (*Client, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return New(&Config{BaseURL: srv.URL + "/api/v2/entries/en", Timeout: time.Second}), &hits
}

func TestIsValid_Responses(t *testing.T) {
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch strings.TrimPrefix(r.URL.Path, "/api/v2/entries/en/") {
		case "cat":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"word":"cat","meanings":[]}]`))
		case "object":
			_, _ = w.Write([]byte(`{"title":"No Definitions Found"}`))
		case "null":
			_, _ = w.Write([]byte(`null`))
		case "garbage":
			_, _ = w.Write([]byte(`<html>`))
		case "broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"title":"No Definitions Found"}`))
		}
	})
	ctx := context.Background()

	assert.True(t, c.IsValid(ctx, "cat"))
	assert.True(t, c.IsValid(ctx, " CAT "))
	assert.False(t, c.IsValid(ctx, "xqzt"))
	assert.False(t, c.IsValid(ctx, "object"))
	assert.False(t, c.IsValid(ctx, "null"))
	assert.False(t, c.IsValid(ctx, "garbage"))
	assert.False(t, c.IsValid(ctx, "broken"))
	assert.False(t, c.IsValid(ctx, ""))
}

func TestIsValid_CachesDefiniteAnswers(t *testing.T) {
	c, hits := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/tiger") {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.True(t, c.IsValid(ctx, "tiger"))
		assert.False(t, c.IsValid(ctx, "tigr"))
	}
	assert.Equal(t, int32(2), hits.Load())
}

func TestIsValid_FailuresAreNotCached(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	c, hits := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[{"word":"rabbit"}]`))
	})
	ctx := context.Background()

	assert.False(t, c.IsValid(ctx, "rabbit"))
	fail.Store(false)
	assert.True(t, c.IsValid(ctx, "rabbit"))
	assert.Equal(t, int32(2), hits.Load())
}

func TestIsValid_UndecodableBodyIsNotCached(t *testing.T) {
	var proxy atomic.Bool
	proxy.Store(true)
	c, hits := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if proxy.Load() {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<html><body>Gateway login required</body></html>`))
			return
		}
		_, _ = w.Write([]byte(`[{"word":"otter"}]`))
	})
	ctx := context.Background()

	assert.False(t, c.IsValid(ctx, "otter"))
	assert.False(t, c.IsValid(ctx, "otter"))
	assert.Equal(t, int32(2), hits.Load())

	proxy.Store(false)
	assert.True(t, c.IsValid(ctx, "otter"))
	assert.True(t, c.IsValid(ctx, "otter"))
	assert.Equal(t, int32(3), hits.Load())
}

func TestIsValid_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c := New(&Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	start := time.Now()
	assert.False(t, c.IsValid(context.Background(), "slow"))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestIsValid_CoalescesConcurrentLookups(t *testing.T) {
	gate := make(chan struct{})
	c, hits := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-gate
		_, _ = w.Write([]byte(`[{"word":"eagle"}]`))
	})

	const callers = 8
	var wg sync.WaitGroup
	results := make([]bool, callers)
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			results[i] = c.IsValid(context.Background(), "eagle")
		}(i)
	}

	require.Eventually(t, func() bool { return hits.Load() >= 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	for i, ok := range results {
		assert.True(t, ok, "caller %d", i)
	}
	assert.LessOrEqual(t, hits.Load(), int32(2))
}

func TestNew_Defaults(t *testing.T) {
	c := New(nil)
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, DefaultTimeout, c.timeout)

	c = New(&Config{BaseURL: "http://localhost/entries"})
	assert.Equal(t, "http://localhost/entries/", c.baseURL)
}
