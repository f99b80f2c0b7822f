package reconcile

import (
	"reflect"
	"testing"

	"github.com/cfranco/cobros-mcp/internal/models"
)

func TestRecurringDebtCountsFromBillingMonth(t *testing.T) {
	in := Input{
		Year: 2024,
		Now:  day("2024-06-15"),
		Payments: []models.Payment{
			billedPayment("2024-01-10", 400000, "2024-01"),
			billedPayment("2024-02-08", 400000, "2024-02"),
			billedPayment("2024-03-12", 400000, "2024-03"),
		},
	}

	s, err := Reconcile(in)
	if err != nil {
		t.Fatal(err)
	}

	d := s.RecurringSupport
	if d.InsufficientData {
		t.Fatal("stream has payments, insufficient_data must be false")
	}
	if d.MissingMonths != 3 {
		t.Errorf("missing months %d, want 3", d.MissingMonths)
	}
	want := []string{"Abr", "May", "Jun"}
	if !reflect.DeepEqual(d.OwedMonths, want) {
		t.Errorf("owed months %v, want %v", d.OwedMonths, want)
	}
	if !d.AveragePayment.Equal(money(400000)) {
		t.Errorf("average %s, want 400000", d.AveragePayment)
	}
	if !d.EstimatedDebt.Equal(money(1200000)) {
		t.Errorf("estimated debt %s, want 1200000", d.EstimatedDebt)
	}
}

func TestRecurringDebtRollsOverYearBoundary(t *testing.T) {
	in := Input{
		Year: 2024,
		Now:  day("2025-02-01"),
		Payments: []models.Payment{
			billedPayment("2024-12-20", 350000, "2024-12"),
		},
	}

	s, err := Reconcile(in)
	if err != nil {
		t.Fatal(err)
	}

	d := s.RecurringSupport
	if d.MissingMonths != 2 {
		t.Errorf("missing months %d, want 2", d.MissingMonths)
	}
	want := []string{"Ene", "Feb"}
	if !reflect.DeepEqual(d.OwedMonths, want) {
		t.Errorf("owed months %v, want %v", d.OwedMonths, want)
	}
}

func TestOwedLabelsCarryYearAcrossSpans(t *testing.T) {
	in := Input{
		Year: 2024,
		Now:  day("2025-01-20"),
		Payments: []models.Payment{
			billedPayment("2024-10-05", 300000, "2024-10"),
		},
	}

	s, err := Reconcile(in)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"Nov 2024", "Dic 2024", "Ene"}
	if !reflect.DeepEqual(s.RecurringSupport.OwedMonths, want) {
		t.Errorf("owed months %v, want %v", s.RecurringSupport.OwedMonths, want)
	}
}

func TestUntaggedRecurringPaymentsAnchorOnPaymentDate(t *testing.T) {
	in := Input{
		Year: 2024,
		Now:  day("2024-05-10"),
		Payments: []models.Payment{
			payment("2024-03-07", 400000, models.PaymentStatusCompleted, models.PaymentTypeRecurringSupport),
		},
	}

	s, err := Reconcile(in)
	if err != nil {
		t.Fatal(err)
	}

	d := s.RecurringSupport
	if d.InsufficientData {
		t.Fatal("untagged payment should still anchor the stream")
	}
	if d.MissingMonths != 2 {
		t.Errorf("missing months %d, want 2 (Abr, May)", d.MissingMonths)
	}
}

func TestSupportDevDebtAnchorsOnLatestPaymentDate(t *testing.T) {
	in := Input{
		Year: 2024,
		Now:  day("2024-06-15"),
		Payments: []models.Payment{
			payment("2024-01-20", 800000, models.PaymentStatusCompleted, models.PaymentTypeFixed),
			payment("2024-04-02", 1200000, models.PaymentStatusPaid, models.PaymentTypeSupportEvolutive),
			// recurring payments belong to the other stream
			billedPayment("2024-05-05", 400000, "2024-05"),
		},
	}

	s, err := Reconcile(in)
	if err != nil {
		t.Fatal(err)
	}

	d := s.SupportAndDevelopment
	if d.MissingMonths != 2 {
		t.Errorf("missing months %d, want 2 (May, Jun)", d.MissingMonths)
	}
	if !d.AveragePayment.Equal(money(1000000)) {
		t.Errorf("average %s, want 1000000", d.AveragePayment)
	}
	if !d.EstimatedDebt.Equal(money(2000000)) {
		t.Errorf("estimated debt %s, want 2000000", d.EstimatedDebt)
	}
	if len(s.SupportAndDevelopmentPayments) != 2 {
		t.Errorf("pass-through list has %d payments, want 2", len(s.SupportAndDevelopmentPayments))
	}
}

func TestEmptyStreamIsInsufficientDataNotZeroDebt(t *testing.T) {
	in := Input{
		Year: 2024,
		Now:  day("2024-06-15"),
		Payments: []models.Payment{
			// only recurring payments exist; the support+dev stream is empty
			billedPayment("2024-05-05", 400000, "2024-05"),
		},
	}

	s, err := Reconcile(in)
	if err != nil {
		t.Fatal(err)
	}

	d := s.SupportAndDevelopment
	if !d.InsufficientData {
		t.Error("empty stream must be marked insufficient_data")
	}
	if d.MissingMonths != 0 || len(d.OwedMonths) != 0 {
		t.Errorf("empty stream must not project debt, got %d months %v", d.MissingMonths, d.OwedMonths)
	}
	if !d.EstimatedDebt.IsZero() {
		t.Errorf("estimated debt %s, want 0", d.EstimatedDebt)
	}

	// The recurring stream, current through May with now in June, owes June.
	if s.RecurringSupport.InsufficientData {
		t.Error("recurring stream has data")
	}
	if s.RecurringSupport.MissingMonths != 1 {
		t.Errorf("recurring missing months %d, want 1", s.RecurringSupport.MissingMonths)
	}
}

func TestCurrentStreamHasZeroDebt(t *testing.T) {
	in := Input{
		Year: 2024,
		Now:  day("2024-05-10"),
		Payments: []models.Payment{
			billedPayment("2024-05-05", 400000, "2024-05"),
		},
	}

	s, err := Reconcile(in)
	if err != nil {
		t.Fatal(err)
	}

	d := s.RecurringSupport
	if d.InsufficientData {
		t.Error("stream has a payment")
	}
	if d.MissingMonths != 0 {
		t.Errorf("missing months %d, want 0 for a current stream", d.MissingMonths)
	}
}
