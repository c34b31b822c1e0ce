package notifications

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/stockflow/stockflow/internal/auth"
	"github.com/stockflow/stockflow/internal/domain"
)

type Handler struct {
	repo   *NotificationRepository
	logger *slog.Logger
}

func NewHandler(repo *NotificationRepository, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFrom(r.Context())
	if principal == nil {
		h.writeError(w, http.StatusForbidden, "caller identity required")
		return
	}

	list, err := h.repo.ListForRecipient(r.Context(), principal.Subject, principal.IsAdmin())
	if err != nil {
		h.logger.Error("failed to list notifications", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if list == nil {
		list = []domain.Notification{}
	}
	h.writeJSON(w, http.StatusOK, list)
}

func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFrom(r.Context())
	if principal == nil {
		h.writeError(w, http.StatusForbidden, "caller identity required")
		return
	}

	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing notification id")
		return
	}

	marked, err := h.repo.MarkRead(r.Context(), id, principal.Subject)
	if err != nil {
		h.logger.Error("failed to mark notification read", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !marked {
		h.writeError(w, http.StatusNotFound, "notification not found")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

func (h *Handler) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFrom(r.Context())
	if principal == nil {
		h.writeError(w, http.StatusForbidden, "caller identity required")
		return
	}

	count, err := h.repo.MarkAllRead(r.Context(), principal.Subject)
	if err != nil {
		h.logger.Error("failed to mark notifications read", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]int64{"marked": count})
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
