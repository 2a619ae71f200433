package credit

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/almacen-erp/almacen-erp/internal/money"
)

// BuildSchedule splits total into cfg.Installments ordered installments.
// Each installment gets the floored even share; the remainder is distributed
// one minor unit at a time to the trailing installments, so the amounts sum
// to total exactly with no lost pennies.
func BuildSchedule(total decimal.Decimal, cfg PlanConfig) ([]Installment, error) {
	if !money.IsPositive(total) {
		return nil, fmt.Errorf("%w: total must be positive", ErrInvalidPlan)
	}
	if !total.Equal(money.Round(total)) {
		return nil, fmt.Errorf("%w: total must be expressed in minor units", ErrInvalidPlan)
	}
	if cfg.Installments < 1 || cfg.Installments > MaxInstallments {
		return nil, fmt.Errorf("%w: installment count must be between 1 and %d", ErrInvalidPlan, MaxInstallments)
	}
	if cfg.IntervalDays < 1 || cfg.IntervalDays > MaxIntervalDays {
		return nil, fmt.Errorf("%w: interval must be between 1 and %d days", ErrInvalidPlan, MaxIntervalDays)
	}
	if cfg.FirstDueDate.IsZero() {
		return nil, fmt.Errorf("%w: first due date required", ErrInvalidPlan)
	}

	n := int64(cfg.Installments)
	count := decimal.NewFromInt(n)
	base := money.FloorMinor(total.Div(count))
	remainder := total.Sub(base.Mul(count))
	// Remainder is an exact multiple of the minor unit once base is floored.
	extraCents := remainder.Div(money.MinorUnit()).IntPart()

	installments := make([]Installment, cfg.Installments)
	for k := 0; k < cfg.Installments; k++ {
		amount := base
		if int64(cfg.Installments-k) <= extraCents {
			amount = amount.Add(money.MinorUnit())
		}
		installments[k] = Installment{
			Sequence:   k + 1,
			DueDate:    cfg.FirstDueDate.AddDate(0, 0, k*cfg.IntervalDays),
			AmountDue:  amount,
			AmountPaid: decimal.Zero,
			Status:     InstallmentPending,
		}
	}
	return installments, nil
}

// ScheduleTotal sums installment amounts. Used to assert the no-leakage
// invariant at persistence time.
func ScheduleTotal(installments []Installment) decimal.Decimal {
	sum := decimal.Zero
	for _, inst := range installments {
		sum = sum.Add(inst.AmountDue)
	}
	return sum
}

// NextDueDate reports the earliest pending due date, or zero when fully paid.
func NextDueDate(installments []Installment) time.Time {
	var next time.Time
	for _, inst := range installments {
		if inst.Status != InstallmentPending {
			continue
		}
		if next.IsZero() || inst.DueDate.Before(next) {
			next = inst.DueDate
		}
	}
	return next
}
