package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	horizons "github.com/aretw0/horizons"
	"github.com/aretw0/horizons/internal/adapters/redis"
	"github.com/aretw0/horizons/internal/server"
	"github.com/aretw0/horizons/pkg/domain"
)

var testRequest = domain.Request{
	Object:     "Test",
	Elements:   "EPOCH=2449526.5 EC=.657 QR=.556 TP=2449448.89 OM=89.14 W=326.06 IN=4.25",
	Center:     "@spitzer",
	Start:      "2004-Jan-1 12:00",
	Stop:       "2004-Mar-7",
	Step:       "1d",
	Quantities: "1,4,9,8",
}

// stubFetcher plays the pipeline: it writes the table to dest and reports
// a fixed artifact, or fails with a fixed error.
type stubFetcher struct {
	table []byte
	err   error
	calls atomic.Int64

	mu       sync.Mutex
	lastDest string
}

func (f *stubFetcher) Fetch(ctx context.Context, req domain.Request, ov domain.Overrides, dest string) (*horizons.Result, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.lastDest = dest
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if err := os.WriteFile(dest, f.table, 0o644); err != nil {
		return nil, err
	}
	return &horizons.Result{Path: dest, Artifact: "12345.txt", Trace: []string{"connecting", "output"}}, nil
}

func postFetch(t *testing.T, h http.Handler, req domain.Request) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(server.FetchRequest{Request: req})
	require.NoError(t, err)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/fetch", bytes.NewReader(body)))
	return w
}

func TestHandleFetch(t *testing.T) {
	fetcher := &stubFetcher{table: []byte("$$SOE\ndata\n$$EOE\n")}
	h := server.NewHandler(fetcher)

	w := postFetch(t, h, testRequest)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp server.FetchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "12345.txt", resp.Artifact)
	assert.Equal(t, "$$SOE\ndata\n$$EOE\n", resp.Table)
	assert.NotEmpty(t, resp.Trace)
}

func TestHandleFetch_BadRequest(t *testing.T) {
	h := server.NewHandler(&stubFetcher{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/fetch", bytes.NewReader([]byte("{"))))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postFetch(t, h, domain.Request{})
	assert.Equal(t, http.StatusBadRequest, w.Code, "incomplete request must be rejected before dialing")
}

func TestHandleFetch_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"rejected_value", &domain.Error{Kind: domain.KindUnknownCenter, Value: "@spitzer"}, http.StatusUnprocessableEntity},
		{"dead_service", &domain.Error{Kind: domain.KindNetworkUnavailable}, http.StatusBadGateway},
		{"timeout", &domain.Error{Kind: domain.KindRemoteTimeout, Level: 3}, http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := server.NewHandler(&stubFetcher{err: tc.err})
			w := postFetch(t, h, testRequest)
			assert.Equal(t, tc.status, w.Code)

			var resp struct {
				Error string `json:"error"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, string(domain.KindOf(tc.err)), resp.Error)
		})
	}
}

func TestHandleFetch_Cache(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewFromClient(backend.NewClient(&backend.Options{Addr: mr.Addr()}))

	fetcher := &stubFetcher{table: []byte("table\n")}
	h := server.NewHandler(fetcher, server.WithCache(cache))

	first := postFetch(t, h, testRequest)
	require.Equal(t, http.StatusOK, first.Code)
	second := postFetch(t, h, testRequest)
	require.Equal(t, http.StatusOK, second.Code)

	assert.Equal(t, int64(1), fetcher.calls.Load(), "repeated request must be served from cache")
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	// A different request misses the cache.
	other := testRequest
	other.Step = "2h"
	postFetch(t, h, other)
	assert.Equal(t, int64(2), fetcher.calls.Load())
}

// A path-traversal object name must not direct the scratch write outside
// the per-request directory.
func TestHandleFetch_ScratchPathConfined(t *testing.T) {
	fetcher := &stubFetcher{table: []byte("x")}
	h := server.NewHandler(fetcher)

	req := testRequest
	req.Object = "../../evil"
	w := postFetch(t, h, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	fetcher.mu.Lock()
	dest := fetcher.lastDest
	fetcher.mu.Unlock()
	assert.Equal(t, "evil.txt", filepath.Base(dest))
	assert.NotContains(t, dest, "..")
}

func TestHandleHealth(t *testing.T) {
	h := server.NewHandler(&stubFetcher{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHandleInfo(t *testing.T) {
	h := server.NewHandler(&stubFetcher{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/info", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, horizons.Version, resp["version"])
}

func TestHandleMetrics(t *testing.T) {
	h := server.NewHandler(&stubFetcher{table: []byte("x")})
	postFetch(t, h, testRequest)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body, _ := io.ReadAll(w.Body)
	assert.Contains(t, string(body), "horizons_fetches_total")
	assert.Contains(t, string(body), "horizons_fetch_duration_seconds")
}
