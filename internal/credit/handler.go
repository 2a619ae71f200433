package credit

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/almacen-erp/almacen-erp/internal/platform/httpx"
	"github.com/almacen-erp/almacen-erp/internal/shared"
)

// Handler manages credit endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, service: service, validate: validate}
}

// MountRoutes registers credit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/credits/{id}", h.getCredit)
	r.Post("/installments/{id}/payments", h.payInstallment)
}

func (h *Handler) getCredit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.BadRequest(w, "invalid credit id")
		return
	}

	detail, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrCreditNotFound) {
			httpx.NotFound(w, err.Error())
			return
		}
		h.logger.Error("get credit", slog.Int64("credit_id", id), slog.Any("error", err))
		httpx.Internal(w)
		return
	}

	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) payInstallment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.BadRequest(w, "invalid installment id")
		return
	}

	var req PayInstallmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	identity, _ := shared.IdentityFromContext(r.Context())

	result, err := h.service.Pay(r.Context(), PaymentInput{
		InstallmentID: id,
		Amount:        req.Amount,
		ActorID:       identity.UserID,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			httpx.BadRequest(w, err.Error())
		case errors.Is(err, ErrInstallmentNotFound):
			httpx.NotFound(w, err.Error())
		case errors.Is(err, ErrAlreadyPaid), errors.Is(err, ErrAmountExceedsBalance):
			httpx.Conflict(w, err.Error())
		default:
			h.logger.Error("pay installment", slog.Int64("installment_id", id), slog.Any("error", err))
			httpx.Internal(w)
		}
		return
	}

	httpx.JSON(w, http.StatusOK, result)
}
