package purchasing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func testRouter(t *testing.T) (*chi.Mux, *Session) {
	t.Helper()
	session, _ := testSession(t)
	handler := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), session)
	r := chi.NewRouter()
	handler.MountRoutes(r)
	return r, session
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandlerDraftLifecycle(t *testing.T) {
	router, _ := testRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/draft", map[string]any{"supplier_id": 1, "description": "weekly"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/draft/lines", map[string]any{"product_id": 7, "quantity": 3})
	require.Equal(t, http.StatusOK, rec.Code)

	var state DraftState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	require.Len(t, state.Lines, 1)
	require.True(t, state.Total.Equal(decimal.RequireFromString("30.00")), "got %s", state.Total)

	rec = doJSON(t, router, http.MethodPost, "/draft/submit", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var view orderView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, StatusPending, view.Status)
	require.ElementsMatch(t, []Status{StatusSent, StatusCancelled}, view.NextStatuses)

	rec = doJSON(t, router, http.MethodGet, "/draft", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code, "draft is cleared after submit")
}

func TestHandlerRejectsIllegalTransition(t *testing.T) {
	router, session := testRouter(t)
	order := mustCreateOrder(t, session, 7, 3)

	rec := doJSON(t, router, http.MethodPost, fmt.Sprintf("/orders/%d/status", order.ID), map[string]any{"status": "CONFIRMED"})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "Invalid Transition")
}

func TestHandlerAllocationConflict(t *testing.T) {
	router, session := testRouter(t)
	order := mustCreateOrder(t, session, 7, 3)
	mustTransition(t, session, order.ID, StatusSent)

	rec := doJSON(t, router, http.MethodGet, "/allocations/7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"allocated":true`)

	rec = doJSON(t, router, http.MethodPost, "/draft", map[string]any{"supplier_id": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, router, http.MethodPost, "/draft/lines", map[string]any{"product_id": 7, "quantity": 1})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "Allocation Conflict")
}

func TestHandlerReceiveFlow(t *testing.T) {
	router, session := testRouter(t)
	order := mustCreateOrder(t, session, 8, 6)
	mustTransition(t, session, order.ID, StatusSent)
	mustTransition(t, session, order.ID, StatusConfirmed)

	rec := doJSON(t, router, http.MethodPost, fmt.Sprintf("/orders/%d/receive", order.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/receive/commit", map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "sale_price")

	rec = doJSON(t, router, http.MethodPatch, "/receive/lines/0", map[string]any{"sale_price": "0.25", "expires_at": "2026-09-30"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/receive/commit", map[string]any{"description": "all counted"})
	require.Equal(t, http.StatusOK, rec.Code)

	var view orderView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, StatusReceived, view.Status)

	require.False(t, session.IsProductAllocated(8))
}
