package catalog

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mostrador/mostrador/internal/platform/httpx"
)

// Handler serves reference data to the presentation layer.
type Handler struct {
	logger  *slog.Logger
	loader  *Loader
	enqueue func(ctx context.Context, force bool) error
}

// NewHandler builds a Handler instance. enqueue schedules a background
// cache refresh; when nil, refresh requests run inline against the
// reference-data service.
func NewHandler(logger *slog.Logger, loader *Loader, enqueue func(ctx context.Context, force bool) error) *Handler {
	return &Handler{logger: logger, loader: loader, enqueue: enqueue}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/suppliers", h.listSuppliers)
	r.Get("/products", h.listProducts)
	r.Post("/refresh", h.refresh)
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.loader.Suppliers(r.Context())
	if err != nil {
		h.logger.Error("list suppliers", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Reference Data Unavailable", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"suppliers": suppliers})
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.loader.Products(r.Context())
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Reference Data Unavailable", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	if h.enqueue != nil {
		err := h.enqueue(r.Context(), true)
		if err == nil {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		h.logger.Warn("queue catalog refresh, falling back to inline", slog.Any("error", err))
	}
	if err := h.loader.Refresh(r.Context()); err != nil {
		h.logger.Error("catalog refresh", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Reference Data Unavailable", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
