// Package reconcile computes a client's yearly billing picture from raw time
// entries, payments and contracts: a monthly activity table, effective-hours
// and remaining-allocation totals, and two independent debt projections.
//
// The package is pure. It performs no I/O, keeps no state between calls, and
// the only clock it consults is the one injected through Input.Now, so two
// calls with identical inputs produce identical summaries.
package reconcile

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cfranco/cobros-mcp/internal/models"
)

// DefaultAnnualHours is the yearly hour allocation assumed for clients that
// have none configured.
const DefaultAnnualHours = 100.0

// DefaultPaymentDueDay is the day of the month after which a recurring
// payment for the running month is considered late.
const DefaultPaymentDueDay = 5

// Input carries everything a reconciliation needs. Records are expected to be
// deduplicated and restricted to the requested year by the data layer; the
// engine only re-keys them by month.
type Input struct {
	Year        int
	TimeEntries []models.TimeEntry
	Payments    []models.Payment
	Contracts   []models.Contract

	// AnnualAllocationOverride replaces the default yearly hour allocation.
	// Callers normally pass the client's configured annual hours here.
	AnnualAllocationOverride *float64

	// PaymentDueDay is the day-of-month cutoff used to flag the running
	// month as missing its recurring payment. Zero means DefaultPaymentDueDay.
	PaymentDueDay int

	// Now anchors every date-relative computation. Zero means the system
	// clock; tests always set it.
	Now time.Time
}

// MonthBucket is one month of activity. Only months with any hours or
// payments survive into the Summary.
type MonthBucket struct {
	Key           string          `json:"key"`
	Label         string          `json:"label"`
	Hours         float64         `json:"hours"`
	Revenue       decimal.Decimal `json:"revenue"`
	Payments      decimal.Decimal `json:"payments"`
	RecurringPaid decimal.Decimal `json:"recurring_paid"`
	EvolutivePaid decimal.Decimal `json:"evolutive_paid"`
	Balance       decimal.Decimal `json:"balance"`
	Projects      []string        `json:"projects,omitempty"`

	// MissingRecurring marks a month that had activity but no recurring
	// support payment, once the due-day cutoff has passed.
	MissingRecurring bool `json:"missing_recurring,omitempty"`
}

// ContractProgress is the per-contract view of consumed allocation.
type ContractProgress struct {
	ContractID      int     `json:"contract_id"`
	ContractNumber  string  `json:"contract_number"`
	HoursUsed       float64 `json:"hours_used"`
	EquivalentHours float64 `json:"equivalent_hours"`
	EffectiveHours  float64 `json:"effective_hours"`
	TotalHours      float64 `json:"total_hours"`
	ProgressPct     float64 `json:"progress_pct"`
}

// Summary is the full reconciliation result for one (client, year) selection.
type Summary struct {
	Year             int     `json:"year"`
	AnnualAllocation float64 `json:"annual_allocation"`

	TotalHours           float64 `json:"total_hours"`
	TotalEquivalentHours float64 `json:"total_equivalent_hours"`
	TotalEffectiveHours  float64 `json:"total_effective_hours"`
	HoursRemaining       float64 `json:"hours_remaining"`
	AverageHoursPerMonth float64 `json:"average_hours_per_month"`

	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	PendingAmount decimal.Decimal `json:"pending_amount"`

	Months    []MonthBucket      `json:"months"`
	Contracts []ContractProgress `json:"contracts,omitempty"`

	RecurringSupport      DebtProjection `json:"recurring_support"`
	SupportAndDevelopment DebtProjection `json:"support_and_development"`

	RecurringSupportPayments      []models.Payment `json:"recurring_support_payments,omitempty"`
	SupportAndDevelopmentPayments []models.Payment `json:"support_and_development_payments,omitempty"`
}

// Reconcile computes the Summary for one client and year.
//
// Malformed numeric fields (negative, NaN, infinite) degrade to zero instead
// of propagating; the only hard failure is a missing year.
func Reconcile(in Input) (*Summary, error) {
	if in.Year <= 0 {
		return nil, fmt.Errorf("reconcile: year is required")
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	dueDay := in.PaymentDueDay
	if dueDay <= 0 {
		dueDay = DefaultPaymentDueDay
	}

	s := &Summary{
		Year:             in.Year,
		AnnualAllocation: DefaultAnnualHours,
	}
	if in.AnnualAllocationOverride != nil && safeNumber(*in.AnnualAllocationOverride) > 0 {
		s.AnnualAllocation = *in.AnnualAllocationOverride
	}

	s.Months = buildMonthBuckets(in, now, dueDay)

	totals(s, in)
	contractProgress(s, in)

	recurring := streamPayments(in.Payments, models.PaymentTypeRecurringSupport)
	supportDev := streamPayments(in.Payments, models.PaymentTypeFixed, models.PaymentTypeSupportEvolutive)
	s.RecurringSupportPayments = recurring
	s.SupportAndDevelopmentPayments = supportDev

	s.RecurringSupport = projectDebt(recurring, anchorByBillingMonth, now)
	s.SupportAndDevelopment = projectDebt(supportDev, anchorByPaymentDate, now)

	return s, nil
}

// buildMonthBuckets materializes all 12 months, accumulates entries and
// qualifying payments into them, then drops the months that saw neither
// hours nor money. Dropping only fully inactive months keeps a month with
// payments but no hours (or the reverse) visible in the table.
func buildMonthBuckets(in Input, now time.Time, dueDay int) []MonthBucket {
	buckets := make([]MonthBucket, 12)
	seenProjects := make([]map[string]bool, 12)
	for m := 0; m < 12; m++ {
		buckets[m] = MonthBucket{
			Key:           MonthKey(in.Year, time.Month(m+1)),
			Label:         MonthLabel(in.Year, time.Month(m+1), in.Year),
			Revenue:       decimal.Zero,
			Payments:      decimal.Zero,
			RecurringPaid: decimal.Zero,
			EvolutivePaid: decimal.Zero,
		}
		seenProjects[m] = make(map[string]bool)
	}

	for _, e := range in.TimeEntries {
		m := int(e.Date.Month()) - 1
		hours := safeNumber(e.Hours)
		rate := safeNumber(e.HourlyRate)
		buckets[m].Hours += hours
		buckets[m].Revenue = buckets[m].Revenue.Add(
			decimal.NewFromFloat(hours).Mul(decimal.NewFromFloat(rate)))
		if e.Project != nil && e.Project.Name != "" && !seenProjects[m][e.Project.Name] {
			seenProjects[m][e.Project.Name] = true
			buckets[m].Projects = append(buckets[m].Projects, e.Project.Name)
		}
	}

	for _, p := range in.Payments {
		if !models.QualifyingStatus(p.Status) {
			continue
		}
		m := int(p.PaymentDate.Month()) - 1
		amount := decimal.NewFromFloat(safeNumber(p.Amount))
		buckets[m].Payments = buckets[m].Payments.Add(amount)
		switch p.PaymentType {
		case models.PaymentTypeRecurringSupport:
			buckets[m].RecurringPaid = buckets[m].RecurringPaid.Add(amount)
		case models.PaymentTypeSupportEvolutive:
			buckets[m].EvolutivePaid = buckets[m].EvolutivePaid.Add(amount)
		}
	}

	var kept []MonthBucket
	for m := range buckets {
		b := &buckets[m]
		if b.Hours == 0 && b.Payments.IsZero() {
			continue
		}
		b.Balance = b.Payments.Sub(b.Revenue)
		b.MissingRecurring = b.RecurringPaid.IsZero() &&
			recurringDue(in.Year, time.Month(m+1), now, dueDay)
		kept = append(kept, *b)
	}
	return kept
}

// recurringDue reports whether a recurring payment for the given month should
// already have arrived: any fully elapsed month qualifies, the running month
// only once the due-day cutoff has passed.
func recurringDue(year int, month time.Month, now time.Time, dueDay int) bool {
	if year < now.Year() {
		return true
	}
	if year > now.Year() {
		return false
	}
	if month < now.Month() {
		return true
	}
	if month > now.Month() {
		return false
	}
	return now.Day() >= dueDay
}

// totals fills the hour and money aggregates. TotalHours sums over the full
// entry set, independent of which month buckets survived filtering.
func totals(s *Summary, in Input) {
	s.TotalRevenue = decimal.Zero
	s.TotalPaid = decimal.Zero

	for _, e := range in.TimeEntries {
		hours := safeNumber(e.Hours)
		s.TotalHours += hours
		s.TotalRevenue = s.TotalRevenue.Add(
			decimal.NewFromFloat(hours).Mul(decimal.NewFromFloat(safeNumber(e.HourlyRate))))
	}

	for _, p := range in.Payments {
		if !models.QualifyingStatus(p.Status) {
			continue
		}
		amount := decimal.NewFromFloat(safeNumber(p.Amount))
		s.TotalPaid = s.TotalPaid.Add(amount)
		if p.PaymentType == models.PaymentTypeRecurringSupport {
			s.TotalEquivalentHours += equivalentHours(p, in.Contracts)
		}
	}

	s.TotalEffectiveHours = s.TotalHours + s.TotalEquivalentHours
	s.HoursRemaining = s.AnnualAllocation - s.TotalEffectiveHours
	if s.HoursRemaining < 0 {
		s.HoursRemaining = 0
	}
	// Divides by 12 regardless of how many months had activity.
	s.AverageHoursPerMonth = s.TotalHours / 12

	s.PendingAmount = s.TotalRevenue.Sub(s.TotalPaid)
	if s.PendingAmount.IsNegative() {
		s.PendingAmount = decimal.Zero
	}
}

// equivalentHours converts a recurring support payment into the hours it
// buys at the owning contract's hourly rate. A zero or missing rate
// contributes nothing rather than dividing by zero.
func equivalentHours(p models.Payment, contracts []models.Contract) float64 {
	rate := contractRate(p.ContractID, contracts)
	if rate <= 0 {
		return 0
	}
	eq := decimal.NewFromFloat(safeNumber(p.Amount)).Div(decimal.NewFromFloat(rate))
	v, _ := eq.Float64()
	return v
}

// contractRate resolves the hourly rate a payment is valued at: the payment's
// own contract when tagged, otherwise the client's first contract.
func contractRate(contractID *int, contracts []models.Contract) float64 {
	if contractID != nil {
		for _, c := range contracts {
			if c.ID == *contractID {
				return safeNumber(c.HourlyRate)
			}
		}
	}
	if len(contracts) > 0 {
		return safeNumber(contracts[0].HourlyRate)
	}
	return 0
}

// contractProgress attributes hours and recurring payments to contracts and
// computes each contract's consumed share. Untagged entries and payments fall
// to the client's first contract.
func contractProgress(s *Summary, in Input) {
	if len(in.Contracts) == 0 {
		return
	}

	index := make(map[int]int, len(in.Contracts))
	progress := make([]ContractProgress, len(in.Contracts))
	for i, c := range in.Contracts {
		index[c.ID] = i
		progress[i] = ContractProgress{
			ContractID:     c.ID,
			ContractNumber: c.ContractNumber,
			TotalHours:     safeNumber(c.TotalHours),
		}
	}

	attribute := func(id *int) int {
		if id != nil {
			if i, ok := index[*id]; ok {
				return i
			}
		}
		return 0
	}

	for _, e := range in.TimeEntries {
		progress[attribute(e.ContractID)].HoursUsed += safeNumber(e.Hours)
	}
	for _, p := range in.Payments {
		if !models.QualifyingStatus(p.Status) || p.PaymentType != models.PaymentTypeRecurringSupport {
			continue
		}
		progress[attribute(p.ContractID)].EquivalentHours += equivalentHours(p, in.Contracts)
	}

	for i := range progress {
		cp := &progress[i]
		cp.EffectiveHours = cp.HoursUsed + cp.EquivalentHours
		if cp.TotalHours > 0 {
			cp.ProgressPct = cp.EffectiveHours / cp.TotalHours * 100
		}
		if cp.ProgressPct < 0 {
			cp.ProgressPct = 0
		}
		if cp.ProgressPct > 100 {
			cp.ProgressPct = 100
		}
	}
	s.Contracts = progress
}

// streamPayments returns the qualifying payments of the given types, ordered
// by payment date.
func streamPayments(payments []models.Payment, types ...string) []models.Payment {
	var out []models.Payment
	for _, p := range payments {
		if !models.QualifyingStatus(p.Status) {
			continue
		}
		for _, t := range types {
			if p.PaymentType == t {
				out = append(out, p)
				break
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PaymentDate.Before(out[j].PaymentDate)
	})
	return out
}

// safeNumber coerces malformed numeric values to zero so arithmetic never
// produces NaN or infinities.
func safeNumber(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
