package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// OverdueInstallment is one pending installment past its due date.
type OverdueInstallment struct {
	InstallmentID int64
	CreditID      int64
	InvoiceID     int64
	DueDate       time.Time
	Outstanding   decimal.Decimal
}

// OverdueScanner reports pending installments whose due date has passed.
type OverdueScanner struct {
	logger *slog.Logger
	pool   *pgxpool.Pool
}

// NewOverdueScanner constructs OverdueScanner.
func NewOverdueScanner(logger *slog.Logger, pool *pgxpool.Pool) *OverdueScanner {
	return &OverdueScanner{logger: logger, pool: pool}
}

// Handle processes TaskOverdueScan tasks.
func (s *OverdueScanner) Handle(ctx context.Context, t *asynq.Task) error {
	var payload ScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	overdue, err := s.scan(ctx)
	if err != nil {
		return err
	}

	total := decimal.Zero
	for _, item := range overdue {
		total = total.Add(item.Outstanding)
		s.logger.Warn("installment overdue",
			slog.Int64("installment_id", item.InstallmentID),
			slog.Int64("credit_id", item.CreditID),
			slog.Int64("invoice_id", item.InvoiceID),
			slog.Time("due_date", item.DueDate),
			slog.String("outstanding", item.Outstanding.StringFixed(2)),
		)
	}
	s.logger.Info("overdue scan complete",
		slog.Int("count", len(overdue)),
		slog.String("outstanding_total", total.StringFixed(2)),
	)
	return nil
}

func (s *OverdueScanner) scan(ctx context.Context) ([]OverdueInstallment, error) {
	rows, err := s.pool.Query(ctx, `SELECT i.id, i.credit_id, c.invoice_id, i.due_date, i.amount_due - i.amount_paid
FROM installments i
JOIN credits c ON c.id = i.credit_id
WHERE i.status = 'PENDING' AND i.due_date < NOW()
ORDER BY i.due_date ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	overdue := []OverdueInstallment{}
	for rows.Next() {
		var item OverdueInstallment
		if err := rows.Scan(&item.InstallmentID, &item.CreditID, &item.InvoiceID, &item.DueDate, &item.Outstanding); err != nil {
			return nil, err
		}
		overdue = append(overdue, item)
	}
	return overdue, rows.Err()
}
