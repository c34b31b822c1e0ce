package company

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/stockflow/stockflow/internal/domain"
)

type Handler struct {
	repo   *CompanyRepository
	logger *slog.Logger
}

func NewHandler(repo *CompanyRepository, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	companies, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list companies", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, companies)
}

type createCompanyRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		h.writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	company := &domain.Company{
		Name:    req.Name,
		Address: req.Address,
	}

	if err := h.repo.Create(r.Context(), company); err != nil {
		h.logger.Error("failed to create company", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("company created", "company_id", company.ID, "name", company.Name)
	h.writeJSON(w, http.StatusCreated, company)
}

type updateCompanyRequest struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing company id")
		return
	}

	var req updateCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	existing, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get company", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if existing == nil {
		h.writeError(w, http.StatusNotFound, "company not found")
		return
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			h.writeError(w, http.StatusBadRequest, "name must not be blank")
			return
		}
		existing.Name = *req.Name
	}
	if req.Address != nil {
		existing.Address = *req.Address
	}

	updated, err := h.repo.Update(r.Context(), existing)
	if err != nil {
		h.logger.Error("failed to update company", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !updated {
		h.writeError(w, http.StatusNotFound, "company not found")
		return
	}

	h.logger.Info("company updated", "company_id", id)
	h.writeJSON(w, http.StatusOK, existing)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing company id")
		return
	}

	deleted, err := h.repo.Delete(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to delete company", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !deleted {
		h.writeError(w, http.StatusNotFound, "company not found")
		return
	}

	h.logger.Info("company deleted", "company_id", id)
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
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
