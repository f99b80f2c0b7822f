package reconcile

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cfranco/cobros-mcp/internal/models"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func entry(date string, hours, rate float64, project string) models.TimeEntry {
	e := models.TimeEntry{
		ID:         "e-" + date,
		Date:       day(date),
		Hours:      hours,
		HourlyRate: rate,
	}
	if project != "" {
		e.Project = &models.Project{Name: project, HourlyRate: rate}
	}
	return e
}

func payment(date string, amount float64, status, ptype string) models.Payment {
	return models.Payment{
		ID:          "p-" + date,
		Amount:      amount,
		PaymentDate: day(date),
		Status:      status,
		PaymentType: ptype,
	}
}

func billedPayment(date string, amount float64, billingMonth string) models.Payment {
	p := payment(date, amount, models.PaymentStatusCompleted, models.PaymentTypeRecurringSupport)
	p.BillingMonth = &billingMonth
	return p
}

func money(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func TestReconcileRequiresYear(t *testing.T) {
	if _, err := Reconcile(Input{}); err == nil {
		t.Fatal("expected an error for a missing year")
	}
}

// Three entries in March, April and June 2024 at 100,000 COP/h plus one
// 500,000 fixed payment in April. April must net positive, March and June
// negative, and May must be dropped entirely.
func TestMonthlyActivityScenario(t *testing.T) {
	in := Input{
		Year: 2024,
		Now:  day("2024-07-01"),
		TimeEntries: []models.TimeEntry{
			entry("2024-03-10", 2, 100000, "Portal"),
			entry("2024-04-12", 3, 100000, "Portal"),
			entry("2024-06-05", 1, 100000, "Portal"),
		},
		Payments: []models.Payment{
			payment("2024-04-15", 500000, models.PaymentStatusCompleted, models.PaymentTypeFixed),
		},
	}

	s, err := Reconcile(in)
	if err != nil {
		t.Fatal(err)
	}

	if len(s.Months) != 3 {
		t.Fatalf("expected 3 retained months, got %d", len(s.Months))
	}

	expect := []struct {
		key     string
		hours   float64
		revenue decimal.Decimal
		paid    decimal.Decimal
		balance decimal.Decimal
	}{
		{"2024-03", 2, money(200000), money(0), money(-200000)},
		{"2024-04", 3, money(300000), money(500000), money(200000)},
		{"2024-06", 1, money(100000), money(0), money(-100000)},
	}
	for i, want := range expect {
		got := s.Months[i]
		if got.Key != want.key {
			t.Errorf("month %d: key %s, want %s", i, got.Key, want.key)
		}
		if got.Hours != want.hours {
			t.Errorf("%s: hours %.2f, want %.2f", want.key, got.Hours, want.hours)
		}
		if !got.Revenue.Equal(want.revenue) {
			t.Errorf("%s: revenue %s, want %s", want.key, got.Revenue, want.revenue)
		}
		if !got.Payments.Equal(want.paid) {
			t.Errorf("%s: payments %s, want %s", want.key, got.Payments, want.paid)
		}
		if !got.Balance.Equal(want.balance) {
			t.Errorf("%s: balance %s, want %s", want.key, got.Balance, want.balance)
		}
	}

	if s.TotalHours != 6 {
		t.Errorf("total hours %.2f, want 6", s.TotalHours)
	}
	if !s.TotalRevenue.Equal(money(600000)) {
		t.Errorf("total revenue %s, want 600000", s.TotalRevenue)
	}
	if !s.TotalPaid.Equal(money(500000)) {
		t.Errorf("total paid %s, want 500000", s.TotalPaid)
	}
	if !s.PendingAmount.Equal(money(100000)) {
		t.Errorf("pending %s, want 100000", s.PendingAmount)
	}
}

func TestBucketSumNeverExceedsTotalHours(t *testing.T) {
	in := Input{
		Year: 2024,
		Now:  day("2024-12-31"),
		TimeEntries: []models.TimeEntry{
			entry("2024-01-10", 4, 50000, ""),
			entry("2024-02-03", 0, 50000, ""), // zero-activity month, dropped
			entry("2024-09-20", 2.5, 50000, ""),
		},
	}

	s, err := Reconcile(in)
	if err != nil {
		t.Fatal(err)
	}

	var bucketSum float64
	for _, m := range s.Months {
		bucketSum += m.Hours
	}
	if bucketSum > s.TotalHours {
		t.Errorf("bucket sum %.2f exceeds total hours %.2f", bucketSum, s.TotalHours)
	}
	if s.TotalHours != 6.5 {
		t.Errorf("total hours %.2f, want 6.5", s.TotalHours)
	}
}

func TestExcludedStatusesDoNotCount(t *testing.T) {
	in := Input{
		Year: 2024,
		Now:  day("2024-12-31"),
		Payments: []models.Payment{
			payment("2024-03-01", 300000, models.PaymentStatusPaid, models.PaymentTypeFixed),
			payment("2024-03-02", 900000, "cancelled", models.PaymentTypeFixed),
		},
	}

	s, err := Reconcile(in)
	if err != nil {
		t.Fatal(err)
	}
	if !s.TotalPaid.Equal(money(300000)) {
		t.Errorf("total paid %s, want 300000", s.TotalPaid)
	}
	if len(s.Months) != 1 || !s.Months[0].Payments.Equal(money(300000)) {
		t.Errorf("march bucket should hold only the qualifying payment, got %+v", s.Months)
	}
}

func TestZeroRateYieldsZeroEquivalentHours(t *testing.T) {
	in := Input{
		Year: 2024,
		Now:  day("2024-06-01"),
		Contracts: []models.Contract{
			{ID: 1, ContractNumber: "CT-01", HourlyRate: 0, TotalHours: 120},
		},
		Payments: []models.Payment{
			payment("2024-02-01", 1000000, models.PaymentStatusCompleted, models.PaymentTypeRecurringSupport),
		},
	}

	s, err := Reconcile(in)
	if err != nil {
		t.Fatal(err)
	}
	if s.TotalEquivalentHours != 0 {
		t.Errorf("equivalent hours %.4f, want 0", s.TotalEquivalentHours)
	}
	if s.TotalEffectiveHours != 0 {
		t.Errorf("effective hours %.4f, want 0", s.TotalEffectiveHours)
	}
}

func TestEquivalentAndRemainingHours(t *testing.T) {
	allocation := 80.0
	in := Input{
		Year: 2024,
		Now:  day("2024-06-01"),
		AnnualAllocationOverride: &allocation,
		Contracts: []models.Contract{
			{ID: 1, ContractNumber: "CT-01", HourlyRate: 100000, TotalHours: 40},
		},
		TimeEntries: []models.TimeEntry{
			entry("2024-01-15", 10, 100000, "Soporte"),
		},
		Payments: []models.Payment{
			// 2,000,000 at 100,000/h buys 20 hours.
			payment("2024-02-01", 2000000, models.PaymentStatusCompleted, models.PaymentTypeRecurringSupport),
		},
	}

	s, err := Reconcile(in)
	if err != nil {
		t.Fatal(err)
	}
	if s.TotalEquivalentHours != 20 {
		t.Errorf("equivalent hours %.2f, want 20", s.TotalEquivalentHours)
	}
	if s.TotalEffectiveHours != 30 {
		t.Errorf("effective hours %.2f, want 30", s.TotalEffectiveHours)
	}
	if s.HoursRemaining != 50 {
		t.Errorf("remaining %.2f, want 50", s.HoursRemaining)
	}
	if s.AverageHoursPerMonth != 10.0/12 {
		t.Errorf("average hours/month %.4f, want %.4f", s.AverageHoursPerMonth, 10.0/12)
	}

	if len(s.Contracts) != 1 {
		t.Fatalf("expected 1 contract progress row, got %d", len(s.Contracts))
	}
	cp := s.Contracts[0]
	if cp.EffectiveHours != 30 {
		t.Errorf("contract effective hours %.2f, want 30", cp.EffectiveHours)
	}
	if cp.ProgressPct != 75 {
		t.Errorf("contract progress %.2f%%, want 75", cp.ProgressPct)
	}
}

// Hours and recurring payments tagged to a contract must land on that
// contract, valued at its own rate; untagged records fall to the client's
// oldest contract. Per-contract effective hours must add up to the client
// total.
func TestMultiContractAttribution(t *testing.T) {
	ct2 := 2

	taggedEntry := entry("2024-03-01", 4, 200000, "")
	taggedEntry.ContractID = &ct2

	// 400,000 tagged to CT-02 buys 2 hours at its 200,000/h rate, not 4
	// hours at CT-01's.
	taggedPayment := payment("2024-02-05", 400000, models.PaymentStatusCompleted, models.PaymentTypeRecurringSupport)
	taggedPayment.ContractID = &ct2

	in := Input{
		Year: 2024,
		Now:  day("2024-06-01"),
		Contracts: []models.Contract{
			{ID: 1, ContractNumber: "CT-01", HourlyRate: 100000, TotalHours: 50},
			{ID: 2, ContractNumber: "CT-02", HourlyRate: 200000, TotalHours: 20},
		},
		TimeEntries: []models.TimeEntry{
			entry("2024-02-01", 5, 100000, ""), // untagged, falls to CT-01
			taggedEntry,
		},
		Payments: []models.Payment{taggedPayment},
	}

	s, err := Reconcile(in)
	if err != nil {
		t.Fatal(err)
	}

	if len(s.Contracts) != 2 {
		t.Fatalf("expected 2 contract progress rows, got %d", len(s.Contracts))
	}

	first, second := s.Contracts[0], s.Contracts[1]
	if first.ContractNumber != "CT-01" || second.ContractNumber != "CT-02" {
		t.Fatalf("contract order %s, %s; want CT-01, CT-02", first.ContractNumber, second.ContractNumber)
	}

	if first.HoursUsed != 5 || first.EquivalentHours != 0 || first.EffectiveHours != 5 {
		t.Errorf("CT-01: used %.2f eq %.2f effective %.2f, want 5/0/5",
			first.HoursUsed, first.EquivalentHours, first.EffectiveHours)
	}
	if second.HoursUsed != 4 || second.EquivalentHours != 2 || second.EffectiveHours != 6 {
		t.Errorf("CT-02: used %.2f eq %.2f effective %.2f, want 4/2/6",
			second.HoursUsed, second.EquivalentHours, second.EffectiveHours)
	}

	if s.TotalEquivalentHours != 2 {
		t.Errorf("client equivalent hours %.2f, want 2", s.TotalEquivalentHours)
	}
	if got := first.EffectiveHours + second.EffectiveHours; got != s.TotalEffectiveHours {
		t.Errorf("per-contract effective hours sum %.2f, client total %.2f", got, s.TotalEffectiveHours)
	}
}

func TestProgressClampedAtHundred(t *testing.T) {
	in := Input{
		Year: 2024,
		Now:  day("2024-06-01"),
		Contracts: []models.Contract{
			{ID: 1, ContractNumber: "CT-01", HourlyRate: 100000, TotalHours: 10},
		},
		TimeEntries: []models.TimeEntry{
			entry("2024-01-15", 25, 100000, ""),
		},
	}

	s, err := Reconcile(in)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Contracts[0].ProgressPct; got != 100 {
		t.Errorf("progress %.2f%%, want clamped 100", got)
	}
	// Over-consumed allocation clamps remaining hours at zero.
	if s.HoursRemaining != DefaultAnnualHours-25 {
		t.Errorf("remaining %.2f, want %.2f", s.HoursRemaining, DefaultAnnualHours-25)
	}
}

func TestRemainingAndPendingNeverNegative(t *testing.T) {
	allocation := 5.0
	in := Input{
		Year: 2024,
		Now:  day("2024-12-01"),
		AnnualAllocationOverride: &allocation,
		TimeEntries: []models.TimeEntry{
			entry("2024-03-01", 50, 100000, ""),
		},
		Payments: []models.Payment{
			payment("2024-03-05", 99000000, models.PaymentStatusCompleted, models.PaymentTypeFixed),
		},
	}

	s, err := Reconcile(in)
	if err != nil {
		t.Fatal(err)
	}
	if s.HoursRemaining != 0 {
		t.Errorf("remaining %.2f, want clamped 0", s.HoursRemaining)
	}
	if s.PendingAmount.IsNegative() {
		t.Errorf("pending %s, want >= 0", s.PendingAmount)
	}
	if !s.PendingAmount.IsZero() {
		t.Errorf("pending %s, want 0 when paid exceeds billed", s.PendingAmount)
	}
}

func TestMalformedNumbersDegradeToZero(t *testing.T) {
	nan := math.NaN()
	in := Input{
		Year: 2024,
		Now:  day("2024-12-01"),
		TimeEntries: []models.TimeEntry{
			{ID: "bad", Date: day("2024-05-01"), Hours: nan, HourlyRate: -3},
			entry("2024-05-02", 2, 100000, ""),
		},
		Payments: []models.Payment{
			payment("2024-05-03", -500, models.PaymentStatusCompleted, models.PaymentTypeFixed),
		},
	}

	s, err := Reconcile(in)
	if err != nil {
		t.Fatal(err)
	}
	if s.TotalHours != 2 {
		t.Errorf("total hours %.2f, want 2", s.TotalHours)
	}
	if !s.TotalRevenue.Equal(money(200000)) {
		t.Errorf("revenue %s, want 200000", s.TotalRevenue)
	}
	if !s.TotalPaid.IsZero() {
		t.Errorf("paid %s, want 0 for a negative amount", s.TotalPaid)
	}
}

func TestReconcileIsDeterministic(t *testing.T) {
	in := Input{
		Year: 2024,
		Now:  day("2024-08-15"),
		Contracts: []models.Contract{
			{ID: 1, ContractNumber: "CT-01", HourlyRate: 90000, TotalHours: 60},
		},
		TimeEntries: []models.TimeEntry{
			entry("2024-02-01", 3, 90000, "Portal"),
			entry("2024-03-01", 4, 90000, "Intranet"),
		},
		Payments: []models.Payment{
			billedPayment("2024-02-05", 450000, "2024-02"),
			payment("2024-03-20", 700000, models.PaymentStatusPending, models.PaymentTypeSupportEvolutive),
		},
	}

	first, err := Reconcile(in)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Reconcile(in)
	if err != nil {
		t.Fatal(err)
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Errorf("identical inputs produced different summaries:\n%s\n%s", a, b)
	}
}

func TestMissingRecurringFlagHonorsDueDay(t *testing.T) {
	in := Input{
		Year:          2024,
		PaymentDueDay: 10,
		Now:           day("2024-04-05"),
		TimeEntries: []models.TimeEntry{
			entry("2024-03-02", 2, 100000, ""),
			entry("2024-04-02", 2, 100000, ""),
		},
	}

	s, err := Reconcile(in)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Months) != 2 {
		t.Fatalf("expected 2 months, got %d", len(s.Months))
	}
	if !s.Months[0].MissingRecurring {
		t.Errorf("fully elapsed March should be flagged")
	}
	// April 5 is before the day-10 cutoff.
	if s.Months[1].MissingRecurring {
		t.Errorf("running month should not be flagged before the due day")
	}

	in.Now = day("2024-04-10")
	s, err = Reconcile(in)
	if err != nil {
		t.Fatal(err)
	}
	if !s.Months[1].MissingRecurring {
		t.Errorf("running month should be flagged once the due day arrives")
	}
}

func TestActivityCSV(t *testing.T) {
	in := Input{
		Year: 2024,
		Now:  day("2024-07-01"),
		TimeEntries: []models.TimeEntry{
			entry("2024-04-12", 3, 100000, "Portal"),
		},
		Payments: []models.Payment{
			payment("2024-04-15", 500000, models.PaymentStatusCompleted, models.PaymentTypeFixed),
		},
	}

	s, err := Reconcile(in)
	if err != nil {
		t.Fatal(err)
	}

	got := ActivityCSV(s)
	want := "Mes,Horas,Facturado,Pagado,Balance,Proyectos\n" +
		"Abr,3.00,300000,500000,200000,Portal\n"
	if got != want {
		t.Errorf("csv mismatch:\ngot:  %q\nwant: %q", got, want)
	}
}
