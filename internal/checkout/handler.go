package checkout

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/comptoir-erp/comptoir/internal/accounting/config"
	"github.com/comptoir-erp/comptoir/internal/inventory"
	"github.com/comptoir-erp/comptoir/internal/masterdata/products"
	"github.com/comptoir-erp/comptoir/internal/masterdata/services"
	"github.com/comptoir-erp/comptoir/internal/platform/httpx"
	"github.com/comptoir-erp/comptoir/internal/shared"
	"github.com/comptoir-erp/comptoir/jobs"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
	idem     *shared.IdempotencyStore
	jobs     *jobs.Client
	logger   *slog.Logger
}

// NewHandler constructs Handler. idem may be nil, disabling the
// Idempotency-Key guard; jobsClient may be nil, disabling receipt mails.
func NewHandler(logger *slog.Logger, svc *Service, idem *shared.IdempotencyStore, jobsClient *jobs.Client) *Handler {
	return &Handler{svc: svc, validate: validator.New(), idem: idem, jobs: jobsClient, logger: logger}
}

func (h *Handler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req SaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	// Terminals generate a fresh UUID per checkout attempt and reuse it on
	// retry, so a sale that committed on a dropped connection is not rung
	// up twice.
	idemKey := r.Header.Get("Idempotency-Key")
	if idemKey != "" && h.idem != nil {
		if _, err := uuid.Parse(idemKey); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Idempotency-Key must be a UUID")
			return
		}
		if err := h.idem.CheckAndInsert(r.Context(), idemKey, "checkout"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.Problem(w, http.StatusConflict, "Duplicate", "sale already processed for this Idempotency-Key")
				return
			}
			h.logger.Error("idempotency check", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
	}

	result, err := h.svc.ProcessSale(r.Context(), req)
	if err != nil {
		if idemKey != "" && h.idem != nil {
			if derr := h.idem.Delete(r.Context(), idemKey); derr != nil {
				h.logger.Warn("idempotency rollback", slog.Any("error", derr))
			}
		}
		h.respondSaleError(w, r, err)
		return
	}
	if req.ReceiptEmail != "" && h.jobs != nil {
		if _, err := h.jobs.EnqueueReceiptEmail(r.Context(), jobs.ReceiptEmailPayload{
			To:          req.ReceiptEmail,
			OrderNumber: result.Number,
			Total:       result.Total.StringFixed(2),
		}); err != nil {
			h.logger.Warn("enqueue receipt email", slog.Any("error", err))
		}
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) CancelSale(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || orderID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "user_id query parameter required")
		return
	}
	result, err := h.svc.CancelSale(r.Context(), orderID, userID)
	if err != nil {
		h.respondSaleError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || orderID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}
	order, err := h.svc.GetOrder(r.Context(), orderID)
	if err != nil {
		h.respondSaleError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	posID, err := strconv.ParseInt(r.URL.Query().Get("pos_id"), 10, 64)
	if err != nil || posID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "pos_id query parameter required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	status := Status(strings.ToUpper(r.URL.Query().Get("status")))
	orders, err := h.svc.ListOrders(r.Context(), OrderFilter{POSID: posID, Status: status, Limit: limit})
	if err != nil {
		h.logger.Error("list orders", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// respondSaleError maps checkout failures onto problem responses. Stock
// shortages carry the full per-product shortage list so the till can show
// every failing line at once.
func (h *Handler) respondSaleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		shortage   inventory.InsufficientStockError
		incomplete config.IncompleteError
	)
	switch {
	case errors.As(err, &shortage):
		httpx.ProblemWithMeta(w, http.StatusConflict, "Insufficient Stock", err.Error(), map[string]any{"shortages": shortage.Shortages})
	case errors.Is(err, config.ErrConfigMissing):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Accounting Config Missing", err.Error())
	case errors.As(err, &incomplete):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Accounting Config Incomplete", err.Error())
	case errors.Is(err, ErrOrderNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrAlreadyCancelled):
		httpx.Problem(w, http.StatusConflict, "Already Cancelled", err.Error())
	case errors.Is(err, products.ErrNotFound), errors.Is(err, services.ErrNotFound):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrEmptyCart), errors.Is(err, inventory.ErrInvalidQuantity):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("checkout", slog.Any("error", err), slog.String("path", r.URL.Path))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
