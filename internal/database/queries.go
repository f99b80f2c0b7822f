package database

import (
	"database/sql"
	"fmt"

	"github.com/cfranco/cobros-mcp/internal/models"
)

// Query helpers backing the reconciliation tools. Each selection is a single
// scoped query, so callers never need to merge overlapping result sets or
// deduplicate rows.

func ClientByName(db *sql.DB, name string) (*models.Client, error) {
	var c models.Client
	err := db.QueryRow(`
		SELECT id, name, contact_name, email, phone, city, country, annual_hours
		FROM clients WHERE name = ?
	`, name).Scan(&c.ID, &c.Name, &c.ContactName, &c.Email, &c.Phone, &c.City, &c.Country, &c.AnnualHours)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("client '%s' not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load client: %w", err)
	}
	return &c, nil
}

// ContractsForClient returns the client's contracts oldest first, so the
// first row is the primary contract unattributed records fall back to.
func ContractsForClient(db *sql.DB, clientID int) ([]models.Contract, error) {
	rows, err := db.Query(`
		SELECT id, client_id, contract_number, name, total_hours, hourly_rate,
		       currency, start_date, end_date, status
		FROM contracts
		WHERE client_id = ?
		ORDER BY start_date, id
	`, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	defer rows.Close()

	var contracts []models.Contract
	for rows.Next() {
		var c models.Contract
		if err := rows.Scan(&c.ID, &c.ClientID, &c.ContractNumber, &c.Name, &c.TotalHours,
			&c.HourlyRate, &c.Currency, &c.StartDate, &c.EndDate, &c.Status); err != nil {
			return nil, fmt.Errorf("failed to scan contract: %w", err)
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

// TimeEntriesForYear returns the client's entries within the calendar year,
// each carrying the hourly rate and name of its project.
func TimeEntriesForYear(db *sql.DB, clientID, year int) ([]models.TimeEntry, error) {
	rows, err := db.Query(`
		SELECT te.id, te.project_id, te.contract_id, te.date, te.hours, te.description,
		       p.name, p.hourly_rate
		FROM time_entries te
		JOIN projects p ON te.project_id = p.id
		WHERE p.client_id = ? AND te.date >= ? AND te.date <= ?
		ORDER BY te.date
	`, clientID, fmt.Sprintf("%04d-01-01", year), fmt.Sprintf("%04d-12-31", year))
	if err != nil {
		return nil, fmt.Errorf("failed to list time entries: %w", err)
	}
	defer rows.Close()

	var entries []models.TimeEntry
	for rows.Next() {
		var e models.TimeEntry
		var projectName string
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.ContractID, &e.Date, &e.Hours,
			&e.Description, &projectName, &e.HourlyRate); err != nil {
			return nil, fmt.Errorf("failed to scan time entry: %w", err)
		}
		e.Project = &models.Project{ID: e.ProjectID, ClientID: clientID, Name: projectName, HourlyRate: e.HourlyRate}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PaymentsForYear returns the client's payments dated within the calendar
// year, every status included; the reconciliation engine decides which ones
// qualify.
func PaymentsForYear(db *sql.DB, clientID, year int) ([]models.Payment, error) {
	rows, err := db.Query(`
		SELECT id, client_id, contract_id, project_id, amount, payment_date,
		       status, payment_type, billing_month, notes
		FROM payments
		WHERE client_id = ? AND payment_date >= ? AND payment_date <= ?
		ORDER BY payment_date
	`, clientID, fmt.Sprintf("%04d-01-01", year), fmt.Sprintf("%04d-12-31", year))
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.ClientID, &p.ContractID, &p.ProjectID, &p.Amount,
			&p.PaymentDate, &p.Status, &p.PaymentType, &p.BillingMonth, &p.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// ProjectByName resolves a project within a client's portfolio.
func ProjectByName(db *sql.DB, clientID int, name string) (*models.Project, error) {
	var p models.Project
	err := db.QueryRow(`
		SELECT id, client_id, name, hourly_rate, status
		FROM projects WHERE client_id = ? AND name = ?
	`, clientID, name).Scan(&p.ID, &p.ClientID, &p.Name, &p.HourlyRate, &p.Status)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project '%s' not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	return &p, nil
}
