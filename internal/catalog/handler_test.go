package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func testHandler(t *testing.T, hits *atomic.Int64, enqueue func(ctx context.Context, force bool) error) *chi.Mux {
	t.Helper()
	server := refDataServer(t, hits)
	loader := NewLoader(NewClient(server.URL), nil, nil, time.Minute)
	handler := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), loader, enqueue)
	r := chi.NewRouter()
	handler.MountRoutes(r)
	return r
}

func TestRefreshEnqueuesBackgroundJob(t *testing.T) {
	var hits, enqueued atomic.Int64
	router := testHandler(t, &hits, func(ctx context.Context, force bool) error {
		enqueued.Add(1)
		require.True(t, force)
		return nil
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/refresh", nil))

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.EqualValues(t, 1, enqueued.Load())
	require.EqualValues(t, 0, hits.Load(), "a queued refresh does not hit upstream inline")
}

func TestRefreshFallsBackInline(t *testing.T) {
	var hits atomic.Int64
	router := testHandler(t, &hits, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/refresh", nil))

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.EqualValues(t, 2, hits.Load())
}

func TestRefreshFallsBackWhenQueueFails(t *testing.T) {
	var hits atomic.Int64
	router := testHandler(t, &hits, func(ctx context.Context, force bool) error {
		return errors.New("queue down")
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/refresh", nil))

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.EqualValues(t, 2, hits.Load())
}

func TestListSuppliersEndpoint(t *testing.T) {
	var hits atomic.Int64
	router := testHandler(t, &hits, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/suppliers", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Dairy Co")
}
