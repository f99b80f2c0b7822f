package reconcile

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cfranco/cobros-mcp/internal/models"
)

// DebtProjection estimates how far behind a payment stream is. It is a
// heuristic, not a ledger: it assumes one payment per month is expected and
// extrapolates the average observed amount onto the missing months. Swapping
// it for invoice matching means replacing this type's producer, nothing else.
type DebtProjection struct {
	// MissingMonths counts consecutive months, from the month after the
	// stream's anchor through the current month, without a payment.
	MissingMonths int `json:"missing_months"`

	// OwedMonths are display labels for the missing months, in calendar
	// order.
	OwedMonths []string `json:"owed_months,omitempty"`

	// EstimatedDebt is MissingMonths times the average payment amount.
	EstimatedDebt decimal.Decimal `json:"estimated_debt"`

	// AveragePayment is the mean amount over every qualifying payment in
	// the stream, regardless of period.
	AveragePayment decimal.Decimal `json:"average_payment"`

	// InsufficientData marks a stream with no payment to anchor on. That is
	// different from MissingMonths == 0, which means the stream is current.
	InsufficientData bool `json:"insufficient_data,omitempty"`
}

// anchorFunc extracts the last accounted period from a stream of payments
// already ordered by date.
type anchorFunc func([]models.Payment) (int, time.Month, bool)

// anchorByBillingMonth anchors on the latest billing_month tag in the stream.
// Payments without a tag fall back to their payment date, so a stream of
// untagged payments still anchors on its most recent one.
func anchorByBillingMonth(stream []models.Payment) (int, time.Month, bool) {
	var (
		year  int
		month time.Month
		found bool
	)
	for _, p := range stream {
		y, m := p.PaymentDate.Year(), p.PaymentDate.Month()
		if p.BillingMonth != nil {
			if by, bm, ok := parseMonthKey(*p.BillingMonth); ok {
				y, m = by, bm
			}
		}
		if !found || y > year || (y == year && m > month) {
			year, month, found = y, m, true
		}
	}
	return year, month, found
}

// anchorByPaymentDate anchors on the calendar month of the most recent
// payment date.
func anchorByPaymentDate(stream []models.Payment) (int, time.Month, bool) {
	if len(stream) == 0 {
		return 0, 0, false
	}
	last := stream[len(stream)-1].PaymentDate
	return last.Year(), last.Month(), true
}

// projectDebt walks the calendar from the month after the anchor through the
// month of now, inclusive, labelling each month owed. December rolls over to
// January of the next year.
func projectDebt(stream []models.Payment, anchor anchorFunc, now time.Time) DebtProjection {
	d := DebtProjection{
		EstimatedDebt:  decimal.Zero,
		AveragePayment: decimal.Zero,
	}

	year, month, ok := anchor(stream)
	if !ok {
		d.InsufficientData = true
		return d
	}

	total := decimal.Zero
	for _, p := range stream {
		total = total.Add(decimal.NewFromFloat(safeNumber(p.Amount)))
	}
	d.AveragePayment = total.Div(decimal.NewFromInt(int64(len(stream))))

	y, m := nextMonth(year, month)
	for y < now.Year() || (y == now.Year() && m <= now.Month()) {
		d.OwedMonths = append(d.OwedMonths, MonthLabel(y, m, now.Year()))
		d.MissingMonths++
		y, m = nextMonth(y, m)
	}

	d.EstimatedDebt = d.AveragePayment.Mul(decimal.NewFromInt(int64(d.MissingMonths)))
	return d
}
