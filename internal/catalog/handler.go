package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockflow/stockflow/internal/auth"
	"github.com/stockflow/stockflow/internal/domain"
)

// Sink mirrors orders.Sink; catalog mutations fan out the same best-effort
// notification events.
type Sink interface {
	Notify(ctx context.Context, event domain.NotificationRequested) error
}

type Handler struct {
	repo   *ProductRepository
	sink   Sink
	logger *slog.Logger
}

func NewHandler(repo *ProductRepository, sink Sink, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		sink:   sink,
		logger: logger,
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, products)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	product, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get product", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if product == nil {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.writeJSON(w, http.StatusOK, product)
}

type createProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	MinStock    int             `json:"min_stock"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFrom(r.Context())
	if !principal.IsAdmin() {
		h.writeError(w, http.StatusForbidden, "only admins may create products")
		return
	}

	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		h.writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if !req.UnitPrice.IsPositive() {
		h.writeError(w, http.StatusBadRequest, "unit price must be greater than zero")
		return
	}
	if req.Quantity < 0 {
		h.writeError(w, http.StatusBadRequest, "quantity must not be negative")
		return
	}

	product := &domain.Product{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		UnitPrice:   req.UnitPrice,
		Quantity:    req.Quantity,
		MinStock:    req.MinStock,
	}

	if err := h.repo.Create(r.Context(), product); err != nil {
		h.logger.Error("failed to create product", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.notify(r.Context(), principal.Subject, domain.MethodCreate, "Product Created",
		fmt.Sprintf("Product %q created with id %s. Stock quantity: %d, unit price: %s.",
			product.Name, product.ID, product.Quantity, product.UnitPrice.StringFixed(2)))

	h.logger.Info("product created", "product_id", product.ID, "name", product.Name)
	h.writeJSON(w, http.StatusCreated, product)
}

type updateProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	Quantity    *int             `json:"quantity"`
	MinStock    *int             `json:"min_stock"`
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFrom(r.Context())
	if !principal.IsAdmin() {
		h.writeError(w, http.StatusForbidden, "only admins may update products")
		return
	}

	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	var req updateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	existing, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get product", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if existing == nil {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			h.writeError(w, http.StatusBadRequest, "name must not be blank")
			return
		}
		existing.Name = *req.Name
	}
	if req.UnitPrice != nil {
		if !req.UnitPrice.IsPositive() {
			h.writeError(w, http.StatusBadRequest, "unit price must be greater than zero")
			return
		}
		existing.UnitPrice = *req.UnitPrice
	}
	if req.Quantity != nil {
		if *req.Quantity < 0 {
			h.writeError(w, http.StatusBadRequest, "quantity must not be negative")
			return
		}
		existing.Quantity = *req.Quantity
	}
	if req.Description != nil {
		existing.Description = *req.Description
	}
	if req.Category != nil {
		existing.Category = *req.Category
	}
	if req.MinStock != nil {
		existing.MinStock = *req.MinStock
	}

	updated, err := h.repo.Update(r.Context(), existing)
	if err != nil {
		h.logger.Error("failed to update product", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !updated {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.notify(r.Context(), principal.Subject, domain.MethodUpdate, "Product Updated",
		fmt.Sprintf("Product %q (%s) has been updated.", existing.Name, existing.ID))

	h.logger.Info("product updated", "product_id", id)
	h.writeJSON(w, http.StatusOK, existing)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFrom(r.Context())
	if !principal.IsAdmin() {
		h.writeError(w, http.StatusForbidden, "only admins may delete products")
		return
	}

	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	deleted, err := h.repo.Delete(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to delete product", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !deleted {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.notify(r.Context(), principal.Subject, domain.MethodDelete, "Product Deleted",
		fmt.Sprintf("Product %s has been removed from the catalog.", id))

	h.logger.Info("product deleted", "product_id", id)
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) notify(ctx context.Context, recipient string, method domain.NotificationMethod, title, description string) {
	if h.sink == nil {
		return
	}
	err := h.sink.Notify(ctx, domain.NotificationRequested{
		EventID:     uuid.New().String(),
		Recipient:   recipient,
		Priority:    domain.PriorityMedium,
		Title:       title,
		Description: description,
		Method:      method,
		Timestamp:   time.Now().UTC(),
	})
	if err != nil {
		h.logger.Error("failed to publish notification", "error", err, "title", title)
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
