package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cfranco/cobros-mcp/internal/database"
	"github.com/cfranco/cobros-mcp/internal/models"
	"github.com/cfranco/cobros-mcp/internal/reconcile"
	"github.com/cfranco/cobros-mcp/internal/report"
	"github.com/cfranco/cobros-mcp/internal/timeparse"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterTools registers all tools with the MCP server
func RegisterTools(server *mcp.Server, db *sql.DB) {
	h := &Handler{db: db}

	// Add Client tool
	type addClientArgs struct {
		Name        string   `json:"name" jsonschema:"Client name"`
		ContactName string   `json:"contact_name,omitempty" jsonschema:"Contact person"`
		Email       string   `json:"email,omitempty" jsonschema:"Contact email"`
		Phone       string   `json:"phone,omitempty" jsonschema:"Contact phone"`
		City        string   `json:"city,omitempty" jsonschema:"City"`
		Country     string   `json:"country,omitempty" jsonschema:"Country"`
		AnnualHours *float64 `json:"annual_hours,omitempty" jsonschema:"Yearly hour allocation (optional)"`
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_client",
		Description: "Add a new client; the optional annual_hours sets its yearly hour allocation",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args addClientArgs) (*mcp.CallToolResult, any, error) {
		result, err := db.Exec(`
			INSERT INTO clients (name, contact_name, email, phone, city, country, annual_hours)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, args.Name, args.ContactName, args.Email, args.Phone, args.City, args.Country, args.AnnualHours)

		if err != nil {
			return nil, nil, fmt.Errorf("failed to add client: %w", err)
		}

		id, _ := result.LastInsertId()

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Client '%s' added successfully (ID: %d)", args.Name, id),
				},
			},
		}, nil, nil
	})

	// List Clients tool
	type listClientsArgs struct{}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_clients",
		Description: "List all clients",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args listClientsArgs) (*mcp.CallToolResult, any, error) {
		rows, err := db.Query(`
			SELECT id, name, contact_name, email, annual_hours
			FROM clients
			ORDER BY name
		`)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list clients: %w", err)
		}
		defer rows.Close()

		var clients []models.Client
		for rows.Next() {
			var c models.Client
			if err := rows.Scan(&c.ID, &c.Name, &c.ContactName, &c.Email, &c.AnnualHours); err != nil {
				return nil, nil, fmt.Errorf("failed to scan client: %w", err)
			}
			clients = append(clients, c)
		}

		text := fmt.Sprintf("Found %d clients:\n", len(clients))
		for _, c := range clients {
			allocation := "default allocation"
			if c.AnnualHours != nil {
				allocation = fmt.Sprintf("%.0f h/year", *c.AnnualHours)
			}
			text += fmt.Sprintf("- %s (%s)\n", c.Name, allocation)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: text},
			},
		}, clients, nil
	})

	// Add Project tool
	type addProjectArgs struct {
		ClientName string  `json:"client_name" jsonschema:"Client name"`
		Name       string  `json:"name" jsonschema:"Project name"`
		HourlyRate float64 `json:"hourly_rate" jsonschema:"Hourly rate billed for this project (COP)"`
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_project",
		Description: "Add a project for a client; time entries inherit the project's hourly rate",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args addProjectArgs) (*mcp.CallToolResult, any, error) {
		clientID, err := h.getClientIDByName(args.ClientName)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to find client: %w", err)
		}

		result, err := db.Exec(`
			INSERT INTO projects (client_id, name, hourly_rate)
			VALUES (?, ?, ?)
		`, clientID, args.Name, args.HourlyRate)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to add project: %w", err)
		}

		id, _ := result.LastInsertId()

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Project '%s' added for %s at %.0f COP/h (ID: %d)", args.Name, args.ClientName, args.HourlyRate, id),
				},
			},
		}, nil, nil
	})

	// Add Contract tool
	type addContractArgs struct {
		ClientName     string  `json:"client_name" jsonschema:"Client name"`
		ContractNumber string  `json:"contract_number" jsonschema:"Contract number (unique identifier)"`
		Name           string  `json:"name" jsonschema:"Contract name/description"`
		TotalHours     float64 `json:"total_hours" jsonschema:"Total hours covered by the contract"`
		HourlyRate     float64 `json:"hourly_rate" jsonschema:"Hourly rate for this contract (COP)"`
		Currency       string  `json:"currency,omitempty" jsonschema:"Currency code (defaults to COP)"`
		StartDate      string  `json:"start_date" jsonschema:"Contract start date (YYYY-MM-DD)"`
		EndDate        string  `json:"end_date,omitempty" jsonschema:"Contract end date (YYYY-MM-DD, optional)"`
		Notes          string  `json:"notes,omitempty" jsonschema:"Additional notes"`
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_contract",
		Description: "Add a contract for a client with its hour allocation and rate",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args addContractArgs) (*mcp.CallToolResult, any, error) {
		clientID, err := h.getClientIDByName(args.ClientName)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to find client: %w", err)
		}

		if args.Currency == "" {
			args.Currency = "COP"
		}

		startDate, err := timeparse.ParseDate(args.StartDate)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid start date: %w", err)
		}

		var endDate interface{}
		if args.EndDate != "" {
			ed, err := timeparse.ParseDate(args.EndDate)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid end date: %w", err)
			}
			endDate = ed.Format("2006-01-02")
		}

		result, err := db.Exec(`
			INSERT INTO contracts (client_id, contract_number, name, total_hours, hourly_rate, currency, start_date, end_date, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, clientID, args.ContractNumber, args.Name, args.TotalHours, args.HourlyRate, args.Currency,
			startDate.Format("2006-01-02"), endDate, args.Notes)

		if err != nil {
			return nil, nil, fmt.Errorf("failed to add contract: %w", err)
		}

		id, _ := result.LastInsertId()

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Contract %s added for %s (ID: %d)", args.ContractNumber, args.ClientName, id),
				},
			},
		}, nil, nil
	})

	// List Contracts tool
	type listContractsArgs struct {
		ClientName string `json:"client_name,omitempty" jsonschema:"Filter by client name (optional)"`
		Status     string `json:"status,omitempty" jsonschema:"Filter by status (active, completed, cancelled)"`
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_contracts",
		Description: "List contracts with optional filtering by client or status",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args listContractsArgs) (*mcp.CallToolResult, any, error) {
		query := `
			SELECT c.id, c.contract_number, c.name, c.total_hours, c.hourly_rate, c.currency,
			       c.start_date, c.end_date, c.status, cl.name as client_name
			FROM contracts c
			JOIN clients cl ON c.client_id = cl.id
			WHERE 1=1
		`
		queryArgs := []interface{}{}

		if args.ClientName != "" {
			query += " AND cl.name LIKE ?"
			queryArgs = append(queryArgs, "%"+args.ClientName+"%")
		}

		if args.Status != "" {
			query += " AND c.status = ?"
			queryArgs = append(queryArgs, args.Status)
		}

		query += " ORDER BY c.start_date DESC, c.contract_number"

		rows, err := db.Query(query, queryArgs...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list contracts: %w", err)
		}
		defer rows.Close()

		var contracts []models.Contract
		for rows.Next() {
			var c models.Contract
			var clientName string
			var endDate *string

			err := rows.Scan(&c.ID, &c.ContractNumber, &c.Name, &c.TotalHours, &c.HourlyRate, &c.Currency,
				&c.StartDate, &endDate, &c.Status, &clientName)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to scan contract: %w", err)
			}

			if endDate != nil {
				ed, _ := time.Parse("2006-01-02", *endDate)
				c.EndDate = &ed
			}

			c.Client = &models.Client{Name: clientName}
			contracts = append(contracts, c)
		}

		text := fmt.Sprintf("Found %d contracts:\n", len(contracts))
		for _, c := range contracts {
			endDateStr := "ongoing"
			if c.EndDate != nil {
				endDateStr = c.EndDate.Format("2006-01-02")
			}
			text += fmt.Sprintf("- %s: %s (%s) - %.0f h at %.0f %s/h [%s] %s to %s\n",
				c.ContractNumber, c.Client.Name, c.Name, c.TotalHours, c.HourlyRate, c.Currency,
				c.Status, c.StartDate.Format("2006-01-02"), endDateStr)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: text},
			},
		}, contracts, nil
	})

	// Add Hours tool
	type addHoursArgs struct {
		ClientName     string  `json:"client_name" jsonschema:"Client name"`
		ProjectName    string  `json:"project_name" jsonschema:"Project to log hours against"`
		Hours          float64 `json:"hours" jsonschema:"Hours worked (15-minute increments: 0.25, 0.5, 0.75, 1.0, ...)"`
		Date           string  `json:"date,omitempty" jsonschema:"Date (YYYY-MM-DD or natural language like 'today' or 'ayer')"`
		Description    string  `json:"description,omitempty" jsonschema:"Description of work done"`
		ContractNumber string  `json:"contract_number,omitempty" jsonschema:"Contract to attribute the hours to (optional)"`
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_hours",
		Description: "Add hours worked on a client's project",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args addHoursArgs) (*mcp.CallToolResult, any, error) {
		clientID, err := h.getClientIDByName(args.ClientName)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to find client: %w", err)
		}

		project, err := database.ProjectByName(db, clientID, args.ProjectName)
		if err != nil {
			return nil, nil, err
		}

		var contractID interface{}
		if args.ContractNumber != "" {
			id, err := h.getContractID(clientID, args.ContractNumber)
			if err != nil {
				return nil, nil, err
			}
			contractID = id
		}

		date := time.Now()
		if args.Date != "" {
			date, err = timeparse.ParseDate(args.Date)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid date: %w", err)
			}
		}

		entryID := uuid.New().String()

		_, err = db.Exec(`
			INSERT INTO time_entries (id, project_id, contract_id, date, hours, description)
			VALUES (?, ?, ?, ?, ?, ?)
		`, entryID, project.ID, contractID, date.Format("2006-01-02"), args.Hours, args.Description)

		if err != nil {
			return nil, nil, fmt.Errorf("failed to add hours: %w", err)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Added %.2f hours for %s (%s) on %s (ID: %s)",
						args.Hours, args.ClientName, project.Name, date.Format("2006-01-02"), entryID),
				},
			},
		}, nil, nil
	})

	// List Hours tool
	type listHoursArgs struct {
		ClientName string `json:"client_name" jsonschema:"Client name"`
		Period     string `json:"period,omitempty" jsonschema:"Named period ('this month', 'mes pasado', 'marzo 2024'); replaces start/end dates"`
		StartDate  string `json:"start_date,omitempty" jsonschema:"Start date (YYYY-MM-DD or natural language)"`
		EndDate    string `json:"end_date,omitempty" jsonschema:"End date (YYYY-MM-DD or natural language)"`
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_hours",
		Description: "List hours for a client within a date range or named period",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args listHoursArgs) (*mcp.CallToolResult, any, error) {
		clientID, err := h.getClientIDByName(args.ClientName)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to find client: %w", err)
		}

		query := `
			SELECT te.id, te.project_id, te.date, te.hours, te.description, p.name, p.hourly_rate
			FROM time_entries te
			JOIN projects p ON te.project_id = p.id
			WHERE p.client_id = ?
		`
		queryArgs := []interface{}{clientID}

		if args.Period != "" {
			start, end, err := timeparse.ParsePeriod(args.Period)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid period: %w", err)
			}
			args.StartDate = start.Format("2006-01-02")
			args.EndDate = end.Format("2006-01-02")
		}

		if args.StartDate != "" {
			startDate, err := timeparse.ParseDate(args.StartDate)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid start date: %w", err)
			}
			query += " AND te.date >= ?"
			queryArgs = append(queryArgs, startDate.Format("2006-01-02"))
		}

		if args.EndDate != "" {
			endDate, err := timeparse.ParseDate(args.EndDate)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid end date: %w", err)
			}
			query += " AND te.date <= ?"
			queryArgs = append(queryArgs, endDate.Format("2006-01-02"))
		}

		query += " ORDER BY te.date DESC, te.created_at DESC"

		rows, err := db.Query(query, queryArgs...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list hours: %w", err)
		}
		defer rows.Close()

		var entries []models.TimeEntry
		var totalHours float64

		for rows.Next() {
			var e models.TimeEntry
			var projectName string
			if err := rows.Scan(&e.ID, &e.ProjectID, &e.Date, &e.Hours, &e.Description,
				&projectName, &e.HourlyRate); err != nil {
				return nil, nil, fmt.Errorf("failed to scan entry: %w", err)
			}
			e.Project = &models.Project{ID: e.ProjectID, Name: projectName, HourlyRate: e.HourlyRate}
			entries = append(entries, e)
			totalHours += e.Hours
		}

		text := fmt.Sprintf("Found %d entries (%.2f total hours):\n", len(entries), totalHours)
		for _, e := range entries {
			text += fmt.Sprintf("- ID %s: %s: %.2f hours [%s]", e.ID, e.Date.Format("2006-01-02"), e.Hours, e.Project.Name)
			if e.Description != "" {
				text += fmt.Sprintf(" - %s", e.Description)
			}
			text += "\n"
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: text},
			},
		}, entries, nil
	})

	// Delete Time Entry tool
	type deleteTimeEntryArgs struct {
		EntryID string `json:"entry_id" jsonschema:"Time entry ID to delete"`
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_time_entry",
		Description: "Delete a specific time entry by ID",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args deleteTimeEntryArgs) (*mcp.CallToolResult, any, error) {
		var projectName, date string
		var hours float64
		err := db.QueryRow(`
			SELECT p.name, te.date, te.hours
			FROM time_entries te
			JOIN projects p ON te.project_id = p.id
			WHERE te.id = ?
		`, args.EntryID).Scan(&projectName, &date, &hours)

		if err == sql.ErrNoRows {
			return nil, nil, fmt.Errorf("time entry with ID %s not found", args.EntryID)
		} else if err != nil {
			return nil, nil, fmt.Errorf("failed to find time entry: %w", err)
		}

		if _, err := db.Exec("DELETE FROM time_entries WHERE id = ?", args.EntryID); err != nil {
			return nil, nil, fmt.Errorf("failed to delete time entry: %w", err)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Deleted time entry ID %s: %.2f hours on %s (%s)",
						args.EntryID, hours, date, projectName),
				},
			},
		}, nil, nil
	})

	// Add Payment tool
	type addPaymentArgs struct {
		ClientName     string  `json:"client_name" jsonschema:"Client name"`
		Amount         float64 `json:"amount" jsonschema:"Payment amount (COP)"`
		Date           string  `json:"date,omitempty" jsonschema:"Payment date (YYYY-MM-DD, defaults to today)"`
		Status         string  `json:"status,omitempty" jsonschema:"Status (completed, pending, paid; defaults to completed)"`
		PaymentType    string  `json:"payment_type" jsonschema:"Type (recurring_support, fixed, support_evolutive)"`
		BillingMonth   string  `json:"billing_month,omitempty" jsonschema:"Billing period this payment covers (YYYY-MM, for recurring payments)"`
		ContractNumber string  `json:"contract_number,omitempty" jsonschema:"Contract the payment belongs to (optional)"`
		ProjectName    string  `json:"project_name,omitempty" jsonschema:"Project the payment belongs to (optional)"`
		Notes          string  `json:"notes,omitempty" jsonschema:"Additional notes"`
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_payment",
		Description: "Record a payment from a client; recurring support payments should carry a billing_month tag",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args addPaymentArgs) (*mcp.CallToolResult, any, error) {
		clientID, err := h.getClientIDByName(args.ClientName)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to find client: %w", err)
		}

		if args.Status == "" {
			args.Status = models.PaymentStatusCompleted
		}
		switch args.PaymentType {
		case models.PaymentTypeRecurringSupport, models.PaymentTypeFixed, models.PaymentTypeSupportEvolutive:
		default:
			return nil, nil, fmt.Errorf("invalid payment type '%s'. Valid types are: recurring_support, fixed, support_evolutive", args.PaymentType)
		}

		date := time.Now()
		if args.Date != "" {
			date, err = timeparse.ParseDate(args.Date)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid date: %w", err)
			}
		}

		var billingMonth interface{}
		if args.BillingMonth != "" {
			tag, err := timeparse.ParseBillingMonth(args.BillingMonth)
			if err != nil {
				return nil, nil, err
			}
			billingMonth = tag
		}

		var contractID interface{}
		if args.ContractNumber != "" {
			id, err := h.getContractID(clientID, args.ContractNumber)
			if err != nil {
				return nil, nil, err
			}
			contractID = id
		}

		var projectID interface{}
		if args.ProjectName != "" {
			project, err := database.ProjectByName(db, clientID, args.ProjectName)
			if err != nil {
				return nil, nil, err
			}
			projectID = project.ID
		}

		paymentID := uuid.New().String()

		_, err = db.Exec(`
			INSERT INTO payments (id, client_id, contract_id, project_id, amount, payment_date, status, payment_type, billing_month, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, paymentID, clientID, contractID, projectID, args.Amount, date.Format("2006-01-02"),
			args.Status, args.PaymentType, billingMonth, args.Notes)

		if err != nil {
			return nil, nil, fmt.Errorf("failed to add payment: %w", err)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Payment of %.0f COP recorded for %s (%s, %s) on %s (ID: %s)",
						args.Amount, args.ClientName, args.PaymentType, args.Status, date.Format("2006-01-02"), paymentID),
				},
			},
		}, nil, nil
	})

	// List Payments tool
	type listPaymentsArgs struct {
		ClientName  string `json:"client_name" jsonschema:"Client name"`
		Year        string `json:"year,omitempty" jsonschema:"Calendar year (defaults to this year)"`
		PaymentType string `json:"payment_type,omitempty" jsonschema:"Filter by payment type (optional)"`
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_payments",
		Description: "List a client's payments for a calendar year",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args listPaymentsArgs) (*mcp.CallToolResult, any, error) {
		client, err := database.ClientByName(db, args.ClientName)
		if err != nil {
			return nil, nil, err
		}

		year, err := timeparse.ParseYear(args.Year, time.Now())
		if err != nil {
			return nil, nil, err
		}

		payments, err := database.PaymentsForYear(db, client.ID, year)
		if err != nil {
			return nil, nil, err
		}

		var filtered []models.Payment
		var total float64
		for _, p := range payments {
			if args.PaymentType != "" && p.PaymentType != args.PaymentType {
				continue
			}
			filtered = append(filtered, p)
			if models.QualifyingStatus(p.Status) {
				total += p.Amount
			}
		}

		text := fmt.Sprintf("Found %d payments for %s in %d (%.0f COP counted):\n", len(filtered), client.Name, year, total)
		for _, p := range filtered {
			text += fmt.Sprintf("- ID %s: %s - %.0f COP (%s, %s)", p.ID, p.PaymentDate.Format("2006-01-02"), p.Amount, p.PaymentType, p.Status)
			if p.BillingMonth != nil {
				text += fmt.Sprintf(" [billing month %s]", *p.BillingMonth)
			}
			text += "\n"
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: text},
			},
		}, filtered, nil
	})

	// Reconcile Client tool
	type reconcileClientArgs struct {
		ClientName    string   `json:"client_name" jsonschema:"Client name"`
		Year          string   `json:"year,omitempty" jsonschema:"Calendar year to reconcile (defaults to this year)"`
		AsOf          string   `json:"as_of,omitempty" jsonschema:"Reference date for debt counting (YYYY-MM-DD, defaults to today)"`
		AnnualHours   *float64 `json:"annual_hours,omitempty" jsonschema:"Override the client's yearly hour allocation (optional)"`
		PaymentDueDay int      `json:"payment_due_day,omitempty" jsonschema:"Day of month after which the running month counts as unpaid (defaults to 5)"`
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "reconcile_client",
		Description: "Compute a client's yearly reconciliation: monthly activity, effective hours, remaining allocation and debt projections",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args reconcileClientArgs) (*mcp.CallToolResult, any, error) {
		summary, client, err := h.reconcileClient(args.ClientName, args.Year, args.AsOf, args.AnnualHours, args.PaymentDueDay)
		if err != nil {
			return nil, nil, err
		}

		text := fmt.Sprintf("Reconciliation for %s (%d):\n", client.Name, summary.Year)
		text += fmt.Sprintf("Hours: %.2f worked + %.2f equivalent = %.2f effective of %.0f allocated (%.2f remaining)\n",
			summary.TotalHours, summary.TotalEquivalentHours, summary.TotalEffectiveHours,
			summary.AnnualAllocation, summary.HoursRemaining)
		text += fmt.Sprintf("Billed: %s COP | Paid: %s COP | Pending: %s COP\n",
			summary.TotalRevenue.StringFixed(0), summary.TotalPaid.StringFixed(0), summary.PendingAmount.StringFixed(0))

		text += fmt.Sprintf("\nMonthly activity (%d months):\n", len(summary.Months))
		for _, m := range summary.Months {
			flag := ""
			if m.MissingRecurring {
				flag = " [no recurring payment]"
			}
			text += fmt.Sprintf("- %s: %.2f h, billed %s, paid %s, balance %s%s\n",
				m.Label, m.Hours, m.Revenue.StringFixed(0), m.Payments.StringFixed(0), m.Balance.StringFixed(0), flag)
		}

		text += "\n" + debtLine("Recurring support", summary.RecurringSupport)
		text += debtLine("Support and development", summary.SupportAndDevelopment)

		for _, cp := range summary.Contracts {
			text += fmt.Sprintf("Contract %s: %.2f of %.0f hours (%.0f%%)\n",
				cp.ContractNumber, cp.EffectiveHours, cp.TotalHours, cp.ProgressPct)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: text},
			},
		}, summary, nil
	})

	// Export Activity CSV tool
	type exportActivityArgs struct {
		ClientName string `json:"client_name" jsonschema:"Client name"`
		Year       string `json:"year,omitempty" jsonschema:"Calendar year (defaults to this year)"`
		AsOf       string `json:"as_of,omitempty" jsonschema:"Reference date (YYYY-MM-DD, defaults to today)"`
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "export_activity_csv",
		Description: "Export a client's monthly activity table as comma-separated text",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args exportActivityArgs) (*mcp.CallToolResult, any, error) {
		summary, client, err := h.reconcileClient(args.ClientName, args.Year, args.AsOf, nil, 0)
		if err != nil {
			return nil, nil, err
		}

		csv := reconcile.ActivityCSV(summary)

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: csv},
			},
		}, map[string]interface{}{
			"client": client.Name,
			"year":   summary.Year,
			"csv":    csv,
		}, nil
	})

	// Generate Statement tool
	type generateStatementArgs struct {
		ClientName string `json:"client_name" jsonschema:"Client name"`
		Year       string `json:"year,omitempty" jsonschema:"Calendar year (defaults to this year)"`
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_statement",
		Description: "Generate a PDF account statement (estado de cuenta) for a client's year",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args generateStatementArgs) (*mcp.CallToolResult, any, error) {
		summary, client, err := h.reconcileClient(args.ClientName, args.Year, "", nil, 0)
		if err != nil {
			return nil, nil, err
		}

		var business models.BusinessInfo
		err = db.QueryRow(`
			SELECT id, business_name, contact_name, email, phone, address, city, country, tax_id, website, updated_at
			FROM business_info WHERE id = 1
		`).Scan(&business.ID, &business.BusinessName, &business.ContactName, &business.Email,
			&business.Phone, &business.Address, &business.City, &business.Country,
			&business.TaxID, &business.Website, &business.UpdatedAt)
		if err == sql.ErrNoRows {
			return nil, nil, fmt.Errorf("business information not configured. Please use 'set_business_info' before generating statements")
		} else if err != nil {
			return nil, nil, fmt.Errorf("failed to check business info: %w", err)
		}

		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		pdfPath := filepath.Join(homeDir, "Downloads",
			fmt.Sprintf("estado_cuenta_%s_%d.pdf", sanitizeFilename(client.Name), summary.Year))

		generator := report.NewStatementGenerator()
		if err := generator.Generate(*client, summary, business, pdfPath); err != nil {
			return nil, nil, fmt.Errorf("failed to generate PDF: %w", err)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Statement for %s (%d) saved to: %s", client.Name, summary.Year, pdfPath),
				},
			},
		}, map[string]interface{}{
			"pdf_path": pdfPath,
		}, nil
	})

	// Set Business Info tool
	type setBusinessInfoArgs struct {
		BusinessName string `json:"business_name" jsonschema:"Business name"`
		ContactName  string `json:"contact_name" jsonschema:"Contact person name"`
		Email        string `json:"email" jsonschema:"Business email address"`
		Phone        string `json:"phone,omitempty" jsonschema:"Phone number (optional)"`
		Address      string `json:"address,omitempty" jsonschema:"Street address (optional)"`
		City         string `json:"city,omitempty" jsonschema:"City (optional)"`
		Country      string `json:"country,omitempty" jsonschema:"Country (optional)"`
		TaxID        string `json:"tax_id,omitempty" jsonschema:"Tax ID / NIT (optional)"`
		Website      string `json:"website,omitempty" jsonschema:"Website URL (optional)"`
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_business_info",
		Description: "Set or update your business information for statements",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args setBusinessInfoArgs) (*mcp.CallToolResult, any, error) {
		_, err := db.Exec(`
			INSERT INTO business_info (id, business_name, contact_name, email, phone, address, city, country, tax_id, website, updated_at)
			VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				business_name = excluded.business_name,
				contact_name = excluded.contact_name,
				email = excluded.email,
				phone = excluded.phone,
				address = excluded.address,
				city = excluded.city,
				country = excluded.country,
				tax_id = excluded.tax_id,
				website = excluded.website,
				updated_at = excluded.updated_at
		`, args.BusinessName, args.ContactName, args.Email, args.Phone, args.Address,
			args.City, args.Country, args.TaxID, args.Website, time.Now())

		if err != nil {
			return nil, nil, fmt.Errorf("failed to set business info: %w", err)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Business information updated successfully for '%s'", args.BusinessName),
				},
			},
		}, nil, nil
	})
}

type Handler struct {
	db *sql.DB
}

func (h *Handler) getClientIDByName(name string) (int, error) {
	var id int
	err := h.db.QueryRow("SELECT id FROM clients WHERE name = ?", name).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("client '%s' not found", name)
	}
	return id, err
}

func (h *Handler) getContractID(clientID int, contractNumber string) (int, error) {
	var id int
	err := h.db.QueryRow("SELECT id FROM contracts WHERE contract_number = ? AND client_id = ?",
		contractNumber, clientID).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("contract %s not found", contractNumber)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to find contract: %w", err)
	}
	return id, nil
}

// reconcileClient loads everything the engine needs for one client and year
// and runs the reconciliation.
func (h *Handler) reconcileClient(clientName, yearStr, asOf string, annualHours *float64, dueDay int) (*reconcile.Summary, *models.Client, error) {
	client, err := database.ClientByName(h.db, clientName)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	if asOf != "" {
		now, err = timeparse.ParseDate(asOf)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid as_of date: %w", err)
		}
	}

	year, err := timeparse.ParseYear(yearStr, now)
	if err != nil {
		return nil, nil, err
	}

	entries, err := database.TimeEntriesForYear(h.db, client.ID, year)
	if err != nil {
		return nil, nil, err
	}
	payments, err := database.PaymentsForYear(h.db, client.ID, year)
	if err != nil {
		return nil, nil, err
	}
	contracts, err := database.ContractsForClient(h.db, client.ID)
	if err != nil {
		return nil, nil, err
	}

	allocation := annualHours
	if allocation == nil {
		allocation = client.AnnualHours
	}

	summary, err := reconcile.Reconcile(reconcile.Input{
		Year:                     year,
		TimeEntries:              entries,
		Payments:                 payments,
		Contracts:                contracts,
		AnnualAllocationOverride: allocation,
		PaymentDueDay:            dueDay,
		Now:                      now,
	})
	if err != nil {
		return nil, nil, err
	}
	return summary, client, nil
}

func debtLine(label string, d reconcile.DebtProjection) string {
	if d.InsufficientData {
		return fmt.Sprintf("%s: insufficient data (no payments recorded for this stream)\n", label)
	}
	if d.MissingMonths == 0 {
		return fmt.Sprintf("%s: up to date\n", label)
	}
	line := fmt.Sprintf("%s: %d months owed (", label, d.MissingMonths)
	for i, m := range d.OwedMonths {
		if i > 0 {
			line += ", "
		}
		line += m
	}
	line += fmt.Sprintf("), estimated %s COP\n", d.EstimatedDebt.StringFixed(0))
	return line
}

func sanitizeFilename(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		case r == ' ', r == '-', r == '_':
			out = append(out, '_')
		}
	}
	return string(out)
}
