package inventory

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/comptoir-erp/comptoir/internal/platform/httpx"
)

type Handler struct {
	repo   *Repository
	logger *slog.Logger
}

func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo}
}

func (h *Handler) Levels(w http.ResponseWriter, r *http.Request) {
	warehouseID, err := strconv.ParseInt(chi.URLParam(r, "warehouseID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid warehouse id")
		return
	}
	levels, err := h.repo.GetLevels(r.Context(), warehouseID)
	if err != nil {
		h.logger.Error("stock levels", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"stocks": levels})
}

func (h *Handler) Movements(w http.ResponseWriter, r *http.Request) {
	reference := r.URL.Query().Get("reference")
	if reference == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "reference query parameter required")
		return
	}
	movements, err := h.repo.ListMovements(r.Context(), reference)
	if err != nil {
		h.logger.Error("stock movements", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"movements": movements})
}
