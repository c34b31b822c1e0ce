package orders

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

const idempotencyTTL = 24 * time.Hour

// IdempotencyStore reserves placement keys for duplicate suppression. A key
// stays reserved only for a placement that succeeded; failed placements
// release it so the caller can retry with the same key.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type Handler struct {
	service *Service
	repo    *OrderRepository
	idem    IdempotencyStore
	logger  *slog.Logger
}

func NewHandler(service *Service, repo *OrderRepository, idem IdempotencyStore, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		repo:    repo,
		idem:    idem,
		logger:  logger,
	}
}

type placeOrderRequest struct {
	CompanyID string        `json:"company_id"`
	Lines     []LineRequest `json:"lines"`
}

func (h *Handler) HandlePlace(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Fast-path duplicate suppression. The core stays idempotency-free;
	// a replayed key is rejected here before any validation or write.
	// The store being unreachable never blocks placement.
	var reservedKey string
	if key := r.Header.Get("Idempotency-Key"); key != "" && h.idem != nil {
		fresh, err := h.idem.Reserve(r.Context(), "idem:order:place:"+key, idempotencyTTL)
		if err != nil {
			h.logger.Warn("idempotency check unavailable", "error", err)
		} else if !fresh {
			h.writeError(w, http.StatusConflict, "duplicate request")
			return
		} else {
			reservedKey = "idem:order:place:" + key
		}
	}

	result, err := h.service.PlaceOrder(r.Context(), req.CompanyID, req.Lines)
	if err != nil {
		// Nothing was placed, so the key must not block a retry.
		if reservedKey != "" {
			if relErr := h.idem.Release(r.Context(), reservedKey); relErr != nil {
				h.logger.Warn("failed to release idempotency key", "error", relErr)
			}
		}
		h.writeWorkflowError(w, err)
		return
	}

	h.logger.Info("order placed", "order_id", result.OrderID, "total", result.Total, "lines", result.LineCount)
	h.writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	result, err := h.service.CancelOrder(r.Context(), id)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}

	h.logger.Info("order cancelled", "order_id", result.OrderID, "restored_lines", result.RestoredLineCount)
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	orders, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list orders", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) writeWorkflowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrForbidden):
		h.writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrMissingBuyer),
		errors.Is(err, ErrEmptyOrder),
		errors.Is(err, ErrMissingProduct),
		errors.Is(err, ErrInvalidQuantity):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInsufficientStock):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrOrderNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("order workflow failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
