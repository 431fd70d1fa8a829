package payment

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitAmount(t *testing.T) {
	tests := []struct {
		name  string
		total string
		n     int
		want  []string
	}{
		{name: "given an even split", total: "300", n: 3, want: []string{"100", "100", "100"}},
		{name: "given a remainder", total: "100", n: 3, want: []string{"33.33", "33.33", "33.34"}},
		{name: "given a single installment", total: "99.999", n: 1, want: []string{"100"}},
		{name: "given sub-cent input", total: "0.05", n: 2, want: []string{"0.02", "0.03"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts, err := SplitAmount(decimal.RequireFromString(tt.total), tt.n)
			require.NoError(t, err)
			require.Len(t, parts, len(tt.want))

			sum := decimal.Zero
			for i, p := range parts {
				assert.True(t, p.Equal(decimal.RequireFromString(tt.want[i])), "part %d = %s", i, p)
				sum = sum.Add(p)
			}
			assert.True(t, sum.Equal(decimal.RequireFromString(tt.total).Round(2)))
		})
	}
}

func TestSplitAmountRejectsInvalidInput(t *testing.T) {
	_, err := SplitAmount(decimal.Zero, 3)
	assert.ErrorIs(t, err, ErrInvalidSchedule)

	_, err = SplitAmount(decimal.NewFromInt(10), 0)
	assert.ErrorIs(t, err, ErrInvalidSchedule)

	_, err = SplitAmount(decimal.RequireFromString("0.01"), 2)
	assert.ErrorIs(t, err, ErrInvalidSchedule, "an installment of zero cents is not a schedule")
}

func TestDueDateClampsToMonthEnd(t *testing.T) {
	start := time.Date(2024, 1, 31, 9, 30, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 2, 29, 9, 30, 0, 0, time.UTC), DueDate(start, 1, 1))
	assert.Equal(t, time.Date(2024, 3, 31, 9, 30, 0, 0, time.UTC), DueDate(start, 2, 1))
	assert.Equal(t, time.Date(2024, 4, 30, 9, 30, 0, 0, time.UTC), DueDate(start, 3, 1))
	assert.Equal(t, time.Date(2025, 1, 31, 9, 30, 0, 0, time.UTC), DueDate(start, 4, 3))
}

func TestSummarize(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	plan := &Plan{ID: uuid.New(), DeviceCodeID: uuid.New(), TotalAmount: decimal.NewFromInt(300), InstallmentCount: 3}
	installments, err := BuildInstallments(plan, now.AddDate(0, -1, -1), 1)
	require.NoError(t, err)
	installments[1].Status = StatusCompleted

	s := Summarize(installments, now)

	assert.True(t, s.TotalAmount.Equal(decimal.NewFromInt(300)))
	assert.True(t, s.PaidAmount.Equal(decimal.NewFromInt(100)))
	assert.True(t, s.RemainingAmount.Equal(decimal.NewFromInt(200)))
	assert.True(t, s.HasOverdue)
	require.NotNil(t, s.NextDueDate)
	assert.Equal(t, installments[0].DueDate, *s.NextDueDate)
	assert.Equal(t, 1, s.Completed)
}
