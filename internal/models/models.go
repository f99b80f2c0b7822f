package models

import (
	"time"
)

// Payment statuses that count toward billing totals. Anything else
// (cancelled, rejected, draft) is ignored by the reconciliation engine.
const (
	PaymentStatusCompleted = "completed"
	PaymentStatusPending   = "pending"
	PaymentStatusPaid      = "paid"
)

// Payment types. recurring_support is the monthly support retainer;
// fixed and support_evolutive together form the support-and-development
// stream.
const (
	PaymentTypeRecurringSupport = "recurring_support"
	PaymentTypeFixed            = "fixed"
	PaymentTypeSupportEvolutive = "support_evolutive"
)

type Client struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	ContactName string    `json:"contact_name,omitempty"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	City        string    `json:"city,omitempty"`
	Country     string    `json:"country,omitempty"`
	AnnualHours *float64  `json:"annual_hours,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Project struct {
	ID         int       `json:"id"`
	ClientID   int       `json:"client_id"`
	Name       string    `json:"name"`
	HourlyRate float64   `json:"hourly_rate"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`

	Client *Client `json:"client,omitempty"`
}

type Contract struct {
	ID             int        `json:"id"`
	ClientID       int        `json:"client_id"`
	ContractNumber string     `json:"contract_number"`
	Name           string     `json:"name"`
	TotalHours     float64    `json:"total_hours"`
	HourlyRate     float64    `json:"hourly_rate"`
	Currency       string     `json:"currency"`
	StartDate      time.Time  `json:"start_date"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	Status         string     `json:"status"`
	Notes          string     `json:"notes,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	Client *Client `json:"client,omitempty"`
}

type TimeEntry struct {
	ID          string    `json:"id"`
	ProjectID   int       `json:"project_id"`
	ContractID  *int      `json:"contract_id,omitempty"`
	Date        time.Time `json:"date"`
	Hours       float64   `json:"hours"`
	Description string    `json:"description,omitempty"`
	// HourlyRate is inherited from the associated project when entries are
	// loaded; it is not stored on the entry itself.
	HourlyRate float64   `json:"hourly_rate"`
	CreatedAt  time.Time `json:"created_at"`

	Project *Project `json:"project,omitempty"`
}

type Payment struct {
	ID          string    `json:"id"`
	ClientID    int       `json:"client_id"`
	ContractID  *int      `json:"contract_id,omitempty"`
	ProjectID   *int      `json:"project_id,omitempty"`
	Amount      float64   `json:"amount"`
	PaymentDate time.Time `json:"payment_date"`
	Status      string    `json:"status"`
	PaymentType string    `json:"payment_type"`
	// BillingMonth tags the period a recurring payment covers ("YYYY-MM"),
	// distinct from the date the money actually moved.
	BillingMonth *string   `json:"billing_month,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`

	Client *Client `json:"client,omitempty"`
}

type BusinessInfo struct {
	ID           int       `json:"id"`
	BusinessName string    `json:"business_name"`
	ContactName  string    `json:"contact_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	City         string    `json:"city,omitempty"`
	Country      string    `json:"country,omitempty"`
	TaxID        string    `json:"tax_id,omitempty"`
	Website      string    `json:"website,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// QualifyingStatus reports whether a payment in this status counts toward
// totals and debt projections.
func QualifyingStatus(status string) bool {
	switch status {
	case PaymentStatusCompleted, PaymentStatusPending, PaymentStatusPaid:
		return true
	}
	return false
}
