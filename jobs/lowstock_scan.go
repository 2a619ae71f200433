package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/almacen-erp/almacen-erp/internal/masterdata"
)

// Catalog is the slice of masterdata the low-stock scan needs.
type Catalog interface {
	ListProductsBelowMinStock(ctx context.Context) ([]masterdata.Product, error)
}

// LowStockScanner flags products whose stock fell to or below their minimum.
type LowStockScanner struct {
	logger  *slog.Logger
	catalog Catalog
}

// NewLowStockScanner constructs LowStockScanner.
func NewLowStockScanner(logger *slog.Logger, catalog Catalog) *LowStockScanner {
	return &LowStockScanner{logger: logger, catalog: catalog}
}

// Handle processes TaskLowStockScan tasks.
func (s *LowStockScanner) Handle(ctx context.Context, t *asynq.Task) error {
	var payload ScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	products, err := s.catalog.ListProductsBelowMinStock(ctx)
	if err != nil {
		return err
	}
	for _, p := range products {
		s.logger.Warn("product below minimum stock",
			slog.Int64("product_id", p.ID),
			slog.String("code", p.Code),
			slog.Int64("stock", p.Stock),
			slog.Int64("min_stock", p.MinStock),
		)
	}
	s.logger.Info("low stock scan complete", slog.Int("flagged", len(products)))
	return nil
}
