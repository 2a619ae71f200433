package jobs

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/almacen-erp/almacen-erp/internal/platform/httpx"
)

// Enqueuer submits scan tasks to the queue.
type Enqueuer interface {
	EnqueueLowStockScan(ctx context.Context) (*asynq.TaskInfo, error)
	EnqueueOverdueScan(ctx context.Context) (*asynq.TaskInfo, error)
}

var _ Enqueuer = (*Client)(nil)

// Handler exposes HTTP endpoints for triggering scans on demand, ahead of
// their nightly cron runs.
type Handler struct {
	logger *slog.Logger
	queue  Enqueuer
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, queue Enqueuer) *Handler {
	return &Handler{logger: logger, queue: queue}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/jobs/lowstock-scan", h.lowStockScan)
	r.Post("/jobs/overdue-scan", h.overdueScan)
}

func (h *Handler) lowStockScan(w http.ResponseWriter, r *http.Request) {
	info, err := h.queue.EnqueueLowStockScan(r.Context())
	if err != nil {
		h.logger.Error("enqueue low stock scan", slog.Any("error", err))
		httpx.Internal(w)
		return
	}
	respondEnqueued(w, info)
}

func (h *Handler) overdueScan(w http.ResponseWriter, r *http.Request) {
	info, err := h.queue.EnqueueOverdueScan(r.Context())
	if err != nil {
		h.logger.Error("enqueue overdue scan", slog.Any("error", err))
		httpx.Internal(w)
		return
	}
	respondEnqueued(w, info)
}

func respondEnqueued(w http.ResponseWriter, info *asynq.TaskInfo) {
	httpx.JSON(w, http.StatusAccepted, map[string]any{
		"task_id": info.ID,
		"queue":   info.Queue,
	})
}
