package report

import (
	"fmt"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/cfranco/cobros-mcp/internal/models"
	"github.com/cfranco/cobros-mcp/internal/reconcile"
)

type StatementGenerator struct{}

func NewStatementGenerator() *StatementGenerator {
	return &StatementGenerator{}
}

// Generate renders a client's yearly account statement: the totals block,
// the monthly activity table and both debt projections.
func (g *StatementGenerator) Generate(client models.Client, summary *reconcile.Summary, business models.BusinessInfo, outputPath string) error {
	m := maroto.New(config.NewBuilder().Build())

	m.AddRow(10,
		col.New(8).Add(
			text.New(business.BusinessName, props.Text{
				Size:  16,
				Style: fontstyle.Bold,
			}),
		),
		col.New(4).Add(
			text.New("ESTADO DE CUENTA", props.Text{
				Size:  16,
				Style: fontstyle.BoldItalic,
				Align: align.Right,
			}),
		),
	)

	m.AddRow(6,
		col.New(8).Add(
			text.New(business.ContactName, props.Text{
				Size: 10,
			}),
		),
		col.New(4).Add(
			text.New(fmt.Sprintf("Año: %d", summary.Year), props.Text{
				Size:  10,
				Style: fontstyle.Bold,
				Align: align.Right,
			}),
		),
	)

	if business.Email != "" {
		m.AddRow(5,
			col.New(12).Add(
				text.New(business.Email, props.Text{
					Size: 9,
				}),
			),
		)
	}

	m.AddRow(10)

	m.AddRow(8,
		col.New(12).Add(
			text.New(fmt.Sprintf("Cliente: %s", client.Name), props.Text{
				Size:  11,
				Style: fontstyle.Bold,
			}),
		),
	)
	if client.ContactName != "" {
		m.AddRow(5,
			col.New(12).Add(
				text.New(client.ContactName, props.Text{
					Size: 9,
				}),
			),
		)
	}

	m.AddRow(10)

	m.AddRow(8,
		col.New(12).Add(
			text.New("Resumen", props.Text{
				Size:  12,
				Style: fontstyle.Bold,
			}),
		),
	)

	summaryLines := []string{
		fmt.Sprintf("Horas registradas: %.2f", summary.TotalHours),
		fmt.Sprintf("Horas equivalentes (soporte recurrente): %.2f", summary.TotalEquivalentHours),
		fmt.Sprintf("Horas efectivas: %.2f de %.2f", summary.TotalEffectiveHours, summary.AnnualAllocation),
		fmt.Sprintf("Horas restantes: %.2f", summary.HoursRemaining),
		fmt.Sprintf("Facturado: $%s COP", summary.TotalRevenue.StringFixed(0)),
		fmt.Sprintf("Pagado: $%s COP", summary.TotalPaid.StringFixed(0)),
		fmt.Sprintf("Pendiente: $%s COP", summary.PendingAmount.StringFixed(0)),
	}
	for _, line := range summaryLines {
		m.AddRow(5,
			col.New(12).Add(
				text.New(line, props.Text{
					Size: 9,
				}),
			),
		)
	}

	m.AddRow(10)

	m.AddRow(8,
		col.New(12).Add(
			text.New("Actividad mensual", props.Text{
				Size:  12,
				Style: fontstyle.Bold,
			}),
		),
	)

	m.AddRow(7,
		col.New(2).Add(
			text.New("Mes", props.Text{
				Size:  9,
				Style: fontstyle.Bold,
			}),
		),
		col.New(1).Add(
			text.New("Horas", props.Text{
				Size:  9,
				Style: fontstyle.Bold,
				Align: align.Right,
			}),
		),
		col.New(3).Add(
			text.New("Facturado", props.Text{
				Size:  9,
				Style: fontstyle.Bold,
				Align: align.Right,
			}),
		),
		col.New(3).Add(
			text.New("Pagado", props.Text{
				Size:  9,
				Style: fontstyle.Bold,
				Align: align.Right,
			}),
		),
		col.New(3).Add(
			text.New("Balance", props.Text{
				Size:  9,
				Style: fontstyle.Bold,
				Align: align.Right,
			}),
		),
	)

	for _, month := range summary.Months {
		m.AddRow(6,
			col.New(2).Add(
				text.New(month.Label, props.Text{
					Size: 8,
				}),
			),
			col.New(1).Add(
				text.New(fmt.Sprintf("%.2f", month.Hours), props.Text{
					Size:  8,
					Align: align.Right,
				}),
			),
			col.New(3).Add(
				text.New(month.Revenue.StringFixed(0), props.Text{
					Size:  8,
					Align: align.Right,
				}),
			),
			col.New(3).Add(
				text.New(month.Payments.StringFixed(0), props.Text{
					Size:  8,
					Align: align.Right,
				}),
			),
			col.New(3).Add(
				text.New(month.Balance.StringFixed(0), props.Text{
					Size:  8,
					Align: align.Right,
				}),
			),
		)
	}

	m.AddRow(10)

	m.AddRow(8,
		col.New(12).Add(
			text.New("Proyección de deuda", props.Text{
				Size:  12,
				Style: fontstyle.Bold,
			}),
		),
	)
	addDebtSection(m, "Soporte recurrente", summary.RecurringSupport)
	addDebtSection(m, "Soporte y desarrollo", summary.SupportAndDevelopment)

	document, err := m.Generate()
	if err != nil {
		return fmt.Errorf("failed to generate PDF document: %w", err)
	}

	if err := document.Save(outputPath); err != nil {
		return fmt.Errorf("failed to save PDF: %w", err)
	}

	return nil
}

func addDebtSection(m core.Maroto, label string, d reconcile.DebtProjection) {
	status := fmt.Sprintf("%d meses pendientes, deuda estimada $%s COP",
		d.MissingMonths, d.EstimatedDebt.StringFixed(0))
	if d.InsufficientData {
		status = "sin datos suficientes"
	} else if d.MissingMonths == 0 {
		status = "al día"
	}

	m.AddRow(6,
		col.New(4).Add(
			text.New(label, props.Text{
				Size:  9,
				Style: fontstyle.Bold,
			}),
		),
		col.New(8).Add(
			text.New(status, props.Text{
				Size: 9,
			}),
		),
	)

	if len(d.OwedMonths) > 0 {
		m.AddRow(5,
			col.New(4),
			col.New(8).Add(
				text.New(fmt.Sprintf("Meses adeudados: %s", strings.Join(d.OwedMonths, ", ")), props.Text{
					Size: 8,
				}),
			),
		)
	}
}
