package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

const amountPlaces = 2

// SplitAmount divides total into n installments rounded down to cents. The last
// installment absorbs the remainder so the parts always sum to total.
func SplitAmount(total decimal.Decimal, n int) ([]decimal.Decimal, error) {
	if n < 1 || !total.IsPositive() {
		return nil, ErrInvalidSchedule
	}

	total = total.Round(amountPlaces)
	base := total.Div(decimal.NewFromInt(int64(n))).RoundDown(amountPlaces)
	if !base.IsPositive() {
		return nil, ErrInvalidSchedule
	}

	parts := make([]decimal.Decimal, n)
	allocated := decimal.Zero
	for i := 0; i < n-1; i++ {
		parts[i] = base
		allocated = allocated.Add(base)
	}
	parts[n-1] = total.Sub(allocated)

	return parts, nil
}

// DueDate returns start plus k*periodMonths calendar months. The day of month is
// clamped to the last day of the target month.
func DueDate(start time.Time, k, periodMonths int) time.Time {
	months := k * periodMonths
	year, month, day := start.Date()

	target := time.Date(year, month+time.Month(months), 1,
		start.Hour(), start.Minute(), start.Second(), start.Nanosecond(), start.Location())
	if last := daysIn(target.Year(), target.Month(), start.Location()); day > last {
		day = last
	}

	return target.AddDate(0, 0, day-1)
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// BuildInstallments lays out the installments of a new plan.
func BuildInstallments(plan *Plan, start time.Time, periodMonths int) ([]*Installment, error) {
	amounts, err := SplitAmount(plan.TotalAmount, plan.InstallmentCount)
	if err != nil {
		return nil, err
	}

	installments := make([]*Installment, len(amounts))
	for i, amount := range amounts {
		installments[i] = &Installment{
			PlanID:       plan.ID,
			DeviceCodeID: plan.DeviceCodeID,
			Sequence:     i + 1,
			Amount:       amount,
			DueDate:      DueDate(start, i+1, periodMonths),
			Status:       StatusPending,
			CreatedAt:    start,
			UpdatedAt:    start,
		}
	}

	return installments, nil
}
