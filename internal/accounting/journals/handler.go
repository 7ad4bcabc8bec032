package journals

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/comptoir-erp/comptoir/internal/platform/httpx"
)

type Handler struct {
	repo   *Repository
	logger *slog.Logger
}

func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.repo.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("list journals", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"journals": entries})
}

func (h *Handler) ByReference(w http.ResponseWriter, r *http.Request) {
	reference := r.URL.Query().Get("reference")
	if reference == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "reference query parameter required")
		return
	}
	entries, err := h.repo.GetByReference(r.Context(), reference)
	if err != nil {
		h.logger.Error("journals by reference", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"journals": entries})
}
