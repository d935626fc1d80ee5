package purchasing

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/mostrador/mostrador/internal/platform/httpx"
)

// Handler exposes the purchasing session to the presentation layer.
type Handler struct {
	logger    *slog.Logger
	session   *Session
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, session *Session) *Handler {
	return &Handler{logger: logger, session: session, validator: validator.New()}
}

// MountRoutes registers purchasing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/orders", h.listOrders)
	r.Post("/orders/reload", h.reloadOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/transitions", h.listTransitions)
	r.Post("/orders/{id}/status", h.setStatus)
	r.Post("/orders/{id}/receive", h.openReceive)
	r.Get("/allocations/{productID}", h.getAllocation)

	r.Post("/draft", h.openDraft)
	r.Post("/draft/from-order/{id}", h.openOrderDraft)
	r.Get("/draft", h.getDraft)
	r.Delete("/draft", h.closeDraft)
	r.Post("/draft/lines", h.addLine)
	r.Patch("/draft/lines/{index}", h.updateLine)
	r.Delete("/draft/lines/{index}", h.removeLine)
	r.Post("/draft/submit", h.submitDraft)

	r.Get("/receive", h.getReceive)
	r.Delete("/receive", h.closeReceive)
	r.Patch("/receive/lines/{index}", h.updateReceiveLine)
	r.Post("/receive/commit", h.commitReceive)
}

// orderView decorates an order with its derived total and the legal next
// statuses, so the UI can disable illegal actions before submission.
type orderView struct {
	Order
	Total        decimal.Decimal `json:"total"`
	NextStatuses []Status        `json:"next_statuses"`
}

func newOrderView(order Order) orderView {
	return orderView{Order: order, Total: order.Total(), NextStatuses: NextStatuses(order.Status)}
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders := h.session.Orders()
	views := make([]orderView, 0, len(orders))
	for _, order := range orders {
		views = append(views, newOrderView(order))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"orders": views})
}

func (h *Handler) reloadOrders(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Load(r.Context()); err != nil {
		h.respondError(w, "reload orders", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	order, err := h.session.Order(id)
	if err != nil {
		h.respondError(w, "get order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, newOrderView(order))
}

func (h *Handler) listTransitions(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	next, err := h.session.LegalNextStatuses(id)
	if err != nil {
		h.respondError(w, "list transitions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"next_statuses": next})
}

func (h *Handler) getAllocation(w http.ResponseWriter, r *http.Request) {
	productID, _ := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"product_id": productID,
		"allocated":  h.session.IsProductAllocated(productID),
	})
}

type setStatusRequest struct {
	Status      string `json:"status" validate:"required"`
	Description string `json:"description"`
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var req setStatusRequest
	if err := h.decode(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	order, err := h.session.Transition(r.Context(), id, Status(req.Status), req.Description)
	if err != nil {
		h.respondError(w, "set status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, newOrderView(order))
}

type openDraftRequest struct {
	SupplierID  int64  `json:"supplier_id" validate:"required"`
	Description string `json:"description"`
}

func (h *Handler) openDraft(w http.ResponseWriter, r *http.Request) {
	var req openDraftRequest
	if err := h.decode(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.session.OpenDraft(req.SupplierID, req.Description); err != nil {
		h.respondError(w, "open draft", err)
		return
	}
	h.renderDraft(w)
}

func (h *Handler) openOrderDraft(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err := h.session.OpenOrderDraft(r.Context(), id); err != nil {
		h.respondError(w, "open order draft", err)
		return
	}
	h.renderDraft(w)
}

func (h *Handler) getDraft(w http.ResponseWriter, r *http.Request) {
	h.renderDraft(w)
}

func (h *Handler) closeDraft(w http.ResponseWriter, r *http.Request) {
	h.session.CloseDraft()
	w.WriteHeader(http.StatusNoContent)
}

type addLineRequest struct {
	ProductID int64 `json:"product_id" validate:"required"`
	Quantity  int64 `json:"quantity" validate:"required"`
}

func (h *Handler) addLine(w http.ResponseWriter, r *http.Request) {
	var req addLineRequest
	if err := h.decode(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.session.AddLine(req.ProductID, req.Quantity); err != nil {
		h.respondError(w, "add line", err)
		return
	}
	h.renderDraft(w)
}

type updateLineRequest struct {
	Quantity *int64           `json:"quantity"`
	BuyPrice *decimal.Decimal `json:"buy_price"`
}

func (h *Handler) updateLine(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "line index must be a number")
		return
	}
	var req updateLineRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if req.Quantity != nil {
		if err := h.session.UpdateLineQuantity(index, *req.Quantity); err != nil {
			h.respondError(w, "update line quantity", err)
			return
		}
	}
	if req.BuyPrice != nil {
		if err := h.session.UpdateLineBuyPrice(index, *req.BuyPrice); err != nil {
			h.respondError(w, "update line price", err)
			return
		}
	}
	h.renderDraft(w)
}

func (h *Handler) removeLine(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "line index must be a number")
		return
	}
	if err := h.session.RemoveLine(index); err != nil {
		h.respondError(w, "remove line", err)
		return
	}
	h.renderDraft(w)
}

func (h *Handler) submitDraft(w http.ResponseWriter, r *http.Request) {
	order, err := h.session.SubmitDraft(r.Context())
	if err != nil {
		h.respondError(w, "submit draft", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, newOrderView(order))
}

func (h *Handler) openReceive(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err := h.session.OpenReceive(r.Context(), id); err != nil {
		h.respondError(w, "open receive", err)
		return
	}
	h.renderReceive(w)
}

func (h *Handler) getReceive(w http.ResponseWriter, r *http.Request) {
	h.renderReceive(w)
}

func (h *Handler) closeReceive(w http.ResponseWriter, r *http.Request) {
	h.session.CloseReceive()
	w.WriteHeader(http.StatusNoContent)
}

type updateReceiveLineRequest struct {
	SalePrice   *decimal.Decimal `json:"sale_price"`
	BuyPrice    *decimal.Decimal `json:"buy_price"`
	ExpiresAt   *string          `json:"expires_at"`
	Observation *string          `json:"observation"`
}

func (h *Handler) updateReceiveLine(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "line index must be a number")
		return
	}
	var req updateReceiveLineRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if req.SalePrice != nil {
		if err := h.session.SetReceiveSalePrice(index, *req.SalePrice); err != nil {
			h.respondError(w, "set sale price", err)
			return
		}
	}
	if req.BuyPrice != nil {
		if err := h.session.SetReceiveBuyPrice(index, *req.BuyPrice); err != nil {
			h.respondError(w, "set buy price", err)
			return
		}
	}
	if req.ExpiresAt != nil {
		expiresAt, err := time.Parse("2006-01-02", *req.ExpiresAt)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "expires_at must be a YYYY-MM-DD date")
			return
		}
		if err := h.session.SetReceiveExpiry(index, expiresAt); err != nil {
			h.respondError(w, "set expiry", err)
			return
		}
	}
	if req.Observation != nil {
		if err := h.session.SetReceiveObservation(index, *req.Observation); err != nil {
			h.respondError(w, "set observation", err)
			return
		}
	}
	h.renderReceive(w)
}

type commitReceiveRequest struct {
	Description string `json:"description"`
}

func (h *Handler) commitReceive(w http.ResponseWriter, r *http.Request) {
	var req commitReceiveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	order, err := h.session.CommitReceive(r.Context(), req.Description)
	if err != nil {
		h.respondError(w, "commit receive", err)
		return
	}
	httpx.JSON(w, http.StatusOK, newOrderView(order))
}

func (h *Handler) renderDraft(w http.ResponseWriter) {
	state, err := h.session.DraftState()
	if err != nil {
		h.respondError(w, "draft state", err)
		return
	}
	httpx.JSON(w, http.StatusOK, state)
}

func (h *Handler) renderReceive(w http.ResponseWriter) {
	lines, err := h.session.ReceiveLines()
	if err != nil {
		h.respondError(w, "receive state", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"lines": lines})
}

func (h *Handler) decode(r *http.Request, target any) error {
	if err := httpx.DecodeJSON(r, target); err != nil {
		return err
	}
	return h.validator.Struct(target)
}

// respondError maps domain errors onto problem responses. Remote failures
// keep the in-progress draft intact; the operator just retries.
func (h *Handler) respondError(w http.ResponseWriter, action string, err error) {
	h.logger.Error(action, slog.Any("error", err))
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrReceiveWorkflow):
		httpx.Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
	case errors.Is(err, ErrAllocationConflict):
		httpx.Problem(w, http.StatusConflict, "Allocation Conflict", err.Error())
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNoDraft), errors.Is(err, ErrNoReceiveDraft):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrRemoteRejected):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Rejected By Order Store", err.Error())
	case errors.Is(err, ErrTransport):
		httpx.Problem(w, http.StatusBadGateway, "Order Store Unreachable", err.Error())
	default:
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
