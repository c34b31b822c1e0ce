package workflow

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type Handler struct {
	client *Client
	logger *slog.Logger
}

func NewHandler(client *Client, logger *slog.Logger) *Handler {
	return &Handler{
		client: client,
		logger: logger,
	}
}

type createInstanceRequest struct {
	CompanyID string `json:"company_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) HandleCreateSalesOrder(w http.ResponseWriter, r *http.Request) {
	if h.client == nil {
		h.writeError(w, http.StatusServiceUnavailable, "workflow integration not configured")
		return
	}

	var req createInstanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CompanyID == "" || req.ProductID == "" || req.Quantity <= 0 {
		h.writeError(w, http.StatusBadRequest, "company_id, product_id and a positive quantity are required")
		return
	}

	instance, err := h.client.CreateSalesOrderInstance(r.Context(), SalesOrderContext{
		CompanyID: req.CompanyID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		h.logger.Error("failed to create workflow instance", "error", err)
		h.writeError(w, http.StatusBadGateway, "workflow creation failed")
		return
	}

	h.logger.Info("workflow instance created", "instance_id", instance.ID)
	h.writeJSON(w, http.StatusCreated, instance)
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
