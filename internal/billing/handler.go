package billing

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/almacen-erp/almacen-erp/internal/credit"
	"github.com/almacen-erp/almacen-erp/internal/platform/httpx"
	"github.com/almacen-erp/almacen-erp/internal/shared"
	"github.com/almacen-erp/almacen-erp/internal/stock"
)

// Handler manages invoice endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	credits  *credit.Service
	validate *validator.Validate
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service, credits *credit.Service, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, service: service, credits: credits, validate: validate}
}

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/invoices", h.create)
	r.Get("/invoices", h.list)
	r.Get("/invoices/{id}", h.get)
	r.Patch("/invoices/{id}/note", h.updateNote)
	r.Post("/invoices/{id}/cancel", h.cancel)
	r.Post("/invoices/{id}/reactivate", h.reactivate)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	identity, _ := shared.IdentityFromContext(r.Context())

	result, err := h.service.Create(r.Context(), req, identity.UserID)
	if err != nil {
		h.respondCreateError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) respondCreateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmptyLineItems),
		errors.Is(err, ErrInvalidLineItem),
		errors.Is(err, ErrCreditConfigRequired),
		errors.Is(err, ErrCreditConfigNotAllowed),
		errors.Is(err, credit.ErrInvalidPlan):
		httpx.BadRequest(w, err.Error())
	case errors.Is(err, stock.ErrProductNotFound):
		httpx.NotFound(w, err.Error())
	case errors.Is(err, stock.ErrInsufficientStock):
		httpx.Conflict(w, err.Error())
	default:
		h.logger.Error("create invoice", slog.Any("error", err))
		httpx.Internal(w)
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	detail, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrInvoiceNotFound) {
			httpx.NotFound(w, err.Error())
			return
		}
		h.logger.Error("get invoice", slog.Int64("invoice_id", id), slog.Any("error", err))
		httpx.Internal(w)
		return
	}

	payload := struct {
		InvoiceDetail
		Credit *credit.CreditDetail `json:"credit,omitempty"`
	}{InvoiceDetail: *detail}

	if detail.Invoice.Method == MethodCredit {
		creditDetail, err := h.credits.GetByInvoice(r.Context(), id)
		if err != nil && !errors.Is(err, credit.ErrCreditNotFound) {
			h.logger.Error("get invoice credit", slog.Int64("invoice_id", id), slog.Any("error", err))
			httpx.Internal(w)
			return
		}
		payload.Credit = creditDetail
	}

	httpx.JSON(w, http.StatusOK, payload)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ListInvoicesFilter{}
	if raw := r.URL.Query().Get("client_id"); raw != "" {
		filter.ClientID, _ = strconv.ParseInt(raw, 10, 64)
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		filter.Status = InvoiceStatus(raw)
	}
	filter.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	filter.PerPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))

	invoices, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list invoices", slog.Any("error", err))
		httpx.Internal(w)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"invoices":   invoices,
		"pagination": shared.NewPagination(filter.Page, filter.PerPage, total),
	})
}

func (h *Handler) updateNote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var req UpdateNoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	inv, err := h.service.UpdateNote(r.Context(), id, req.Note)
	if err != nil {
		if errors.Is(err, ErrInvoiceNotFound) {
			httpx.NotFound(w, err.Error())
			return
		}
		h.logger.Error("update invoice note", slog.Int64("invoice_id", id), slog.Any("error", err))
		httpx.Internal(w)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	inv, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvoiceNotFound):
			httpx.NotFound(w, err.Error())
		case errors.Is(err, ErrAlreadyVoid), errors.Is(err, ErrCreditHasPayments):
			httpx.Conflict(w, err.Error())
		default:
			h.logger.Error("cancel invoice", slog.Int64("invoice_id", id), slog.Any("error", err))
			httpx.Internal(w)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) reactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	inv, err := h.service.Reactivate(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvoiceNotFound):
			httpx.NotFound(w, err.Error())
		case errors.Is(err, ErrAlreadyActive), errors.Is(err, ErrNotCashInvoice), errors.Is(err, stock.ErrInsufficientStock):
			httpx.Conflict(w, err.Error())
		default:
			h.logger.Error("reactivate invoice", slog.Int64("invoice_id", id), slog.Any("error", err))
			httpx.Internal(w)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.BadRequest(w, "invalid invoice id")
		return 0, false
	}
	return id, true
}
