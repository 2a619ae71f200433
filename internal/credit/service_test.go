package credit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	credits      map[int64]Credit
	installments map[int64]Installment
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		credits:      make(map[int64]Credit),
		installments: make(map[int64]Installment),
	}
}

// seedPlan stores a credit and its generated installments with assigned IDs.
func (r *memoryRepo) seedPlan(c Credit, installments []Installment) {
	r.credits[c.ID] = c
	for i, inst := range installments {
		inst.ID = c.ID*100 + int64(i+1)
		inst.CreditID = c.ID
		r.installments[inst.ID] = inst
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	// Snapshot so a failed callback leaves state untouched, mirroring
	// transactional rollback.
	creditsBackup := make(map[int64]Credit, len(r.credits))
	for k, v := range r.credits {
		creditsBackup[k] = v
	}
	installmentsBackup := make(map[int64]Installment, len(r.installments))
	for k, v := range r.installments {
		installmentsBackup[k] = v
	}
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.credits = creditsBackup
		r.installments = installmentsBackup
		return err
	}
	return nil
}

func (r *memoryRepo) GetCredit(ctx context.Context, id int64) (*Credit, error) {
	c, ok := r.credits[id]
	if !ok {
		return nil, ErrCreditNotFound
	}
	return &c, nil
}

func (r *memoryRepo) GetCreditByInvoice(ctx context.Context, invoiceID int64) (*Credit, error) {
	for _, c := range r.credits {
		if c.InvoiceID == invoiceID {
			return &c, nil
		}
	}
	return nil, ErrCreditNotFound
}

func (r *memoryRepo) ListInstallments(ctx context.Context, creditID int64) ([]Installment, error) {
	var out []Installment
	for _, inst := range r.installments {
		if inst.CreditID == creditID {
			out = append(out, inst)
		}
	}
	return out, nil
}

func (tx *memoryTx) GetInstallmentForUpdate(ctx context.Context, id int64) (Installment, error) {
	inst, ok := tx.repo.installments[id]
	if !ok {
		return Installment{}, ErrInstallmentNotFound
	}
	return inst, nil
}

func (tx *memoryTx) UpdateInstallment(ctx context.Context, inst Installment) error {
	tx.repo.installments[inst.ID] = inst
	return nil
}

func (tx *memoryTx) GetCreditForUpdate(ctx context.Context, id int64) (Credit, error) {
	c, ok := tx.repo.credits[id]
	if !ok {
		return Credit{}, ErrCreditNotFound
	}
	return c, nil
}

func (tx *memoryTx) UpdateCredit(ctx context.Context, c Credit) error {
	tx.repo.credits[c.ID] = c
	return nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seedCredit(t *testing.T, repo *memoryRepo, total string, n int) {
	t.Helper()
	totalDec := dec(total)
	installments, err := BuildSchedule(totalDec, PlanConfig{
		Installments: n,
		FirstDueDate: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		IntervalDays: 30,
	})
	require.NoError(t, err)
	repo.seedPlan(Credit{
		ID:          1,
		InvoiceID:   10,
		TotalAmount: totalDec,
		Balance:     totalDec,
		StartDate:   time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC),
	}, installments)
}

func TestPayFullInstallment(t *testing.T) {
	repo := newMemoryRepo()
	seedCredit(t, repo, "150.00", 3)
	svc := NewService(repo)
	ctx := context.Background()

	result, err := svc.Pay(ctx, PaymentInput{InstallmentID: 101, Amount: dec("50.00"), ActorID: 1})
	require.NoError(t, err)

	require.Equal(t, InstallmentPaid, result.Installment.Status)
	require.NotNil(t, result.Installment.PaidAt)
	require.Equal(t, "50.00", result.Installment.AmountPaid.StringFixed(2))
	require.Equal(t, "100.00", result.Credit.Balance.StringFixed(2))
	require.Nil(t, result.Credit.CompletedAt)
}

func TestPayPartialKeepsPending(t *testing.T) {
	repo := newMemoryRepo()
	seedCredit(t, repo, "150.00", 3)
	svc := NewService(repo)
	ctx := context.Background()

	result, err := svc.Pay(ctx, PaymentInput{InstallmentID: 101, Amount: dec("30.00"), ActorID: 1})
	require.NoError(t, err)

	require.Equal(t, InstallmentPending, result.Installment.Status)
	require.Nil(t, result.Installment.PaidAt)
	require.Equal(t, "30.00", result.Installment.AmountPaid.StringFixed(2))
	require.Equal(t, "120.00", result.Credit.Balance.StringFixed(2))
}

func TestPayExceedsBalance(t *testing.T) {
	repo := newMemoryRepo()
	seedCredit(t, repo, "150.00", 3)
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Pay(ctx, PaymentInput{InstallmentID: 101, Amount: dec("30.00"), ActorID: 1})
	require.NoError(t, err)

	// 30 paid of 50 due: 25 more would exceed the amount due.
	_, err = svc.Pay(ctx, PaymentInput{InstallmentID: 101, Amount: dec("25.00"), ActorID: 1})
	require.ErrorIs(t, err, ErrAmountExceedsBalance)

	var exceeds *ExceedsBalanceError
	require.True(t, errors.As(err, &exceeds))
	require.Equal(t, "20.00", exceeds.Remaining.StringFixed(2))

	// Rejected payment leaves state untouched.
	inst := repo.installments[101]
	require.Equal(t, "30.00", inst.AmountPaid.StringFixed(2))
	require.Equal(t, "120.00", repo.credits[1].Balance.StringFixed(2))
}

func TestPayAlreadyPaidIsTerminal(t *testing.T) {
	repo := newMemoryRepo()
	seedCredit(t, repo, "150.00", 3)
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Pay(ctx, PaymentInput{InstallmentID: 101, Amount: dec("50.00"), ActorID: 1})
	require.NoError(t, err)

	_, err = svc.Pay(ctx, PaymentInput{InstallmentID: 101, Amount: dec("0.01"), ActorID: 1})
	require.ErrorIs(t, err, ErrAlreadyPaid)
}

func TestPayInvalidAmount(t *testing.T) {
	repo := newMemoryRepo()
	seedCredit(t, repo, "150.00", 3)
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Pay(ctx, PaymentInput{InstallmentID: 101, Amount: decimal.Zero, ActorID: 1})
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Pay(ctx, PaymentInput{InstallmentID: 101, Amount: dec("-10.00"), ActorID: 1})
	require.ErrorIs(t, err, ErrInvalidAmount)

	// Amounts below the minor unit are rejected rather than silently rounded.
	_, err = svc.Pay(ctx, PaymentInput{InstallmentID: 101, Amount: dec("10.001"), ActorID: 1})
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestPayUnknownInstallment(t *testing.T) {
	repo := newMemoryRepo()
	seedCredit(t, repo, "150.00", 3)
	svc := NewService(repo)

	_, err := svc.Pay(context.Background(), PaymentInput{InstallmentID: 999, Amount: dec("10.00"), ActorID: 1})
	require.ErrorIs(t, err, ErrInstallmentNotFound)
}

func TestBalanceInvariantAcrossPayments(t *testing.T) {
	repo := newMemoryRepo()
	seedCredit(t, repo, "100.00", 3)
	svc := NewService(repo)
	ctx := context.Background()

	payments := []struct {
		installment int64
		amount      string
	}{
		{101, "10.00"},
		{102, "33.33"},
		{101, "23.33"},
		{103, "20.00"},
		{103, "13.34"},
	}
	for _, p := range payments {
		_, err := svc.Pay(ctx, PaymentInput{InstallmentID: p.installment, Amount: dec(p.amount), ActorID: 1})
		require.NoError(t, err)

		paidSum := decimal.Zero
		for _, inst := range repo.installments {
			paidSum = paidSum.Add(inst.AmountPaid)
		}
		c := repo.credits[1]
		require.True(t, c.Balance.Equal(c.TotalAmount.Sub(paidSum)),
			"balance %s != total %s - paid %s", c.Balance, c.TotalAmount, paidSum)
		require.False(t, c.Balance.IsNegative())
	}

	// All installments settled: credit completes.
	c := repo.credits[1]
	require.True(t, c.Balance.IsZero())
	require.NotNil(t, c.CompletedAt)
	for _, inst := range repo.installments {
		require.Equal(t, InstallmentPaid, inst.Status)
	}
}

func TestMonotonicAmountPaid(t *testing.T) {
	repo := newMemoryRepo()
	seedCredit(t, repo, "50.00", 1)
	svc := NewService(repo)
	ctx := context.Background()

	prev := decimal.Zero
	for _, amount := range []string{"5.00", "10.00", "0.50", "34.50"} {
		_, err := svc.Pay(ctx, PaymentInput{InstallmentID: 101, Amount: dec(amount), ActorID: 1})
		require.NoError(t, err)
		inst := repo.installments[101]
		require.True(t, inst.AmountPaid.GreaterThan(prev))
		require.False(t, inst.AmountPaid.GreaterThan(inst.AmountDue))
		prev = inst.AmountPaid
	}
	require.Equal(t, InstallmentPaid, repo.installments[101].Status)
}

func TestGetCreditDetail(t *testing.T) {
	repo := newMemoryRepo()
	seedCredit(t, repo, "150.00", 3)
	svc := NewService(repo)

	detail, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, detail.Installments, 3)
	require.Equal(t, int64(10), detail.Credit.InvoiceID)
	require.NotNil(t, detail.NextDueDate)
	require.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), *detail.NextDueDate)

	_, err = svc.Get(context.Background(), 42)
	require.ErrorIs(t, err, ErrCreditNotFound)

	byInvoice, err := svc.GetByInvoice(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), byInvoice.Credit.ID)
}
