package reconcile

import (
	"fmt"
	"strings"
)

// ActivityCSV renders the monthly activity table as comma-separated text,
// one row per retained month. Fields are joined without quoting, so a
// project name containing a comma breaks its row; callers that need strict
// CSV must sanitize names first.
func ActivityCSV(s *Summary) string {
	var b strings.Builder
	b.WriteString("Mes,Horas,Facturado,Pagado,Balance,Proyectos\n")
	for _, m := range s.Months {
		b.WriteString(fmt.Sprintf("%s,%.2f,%s,%s,%s,%s\n",
			m.Label,
			m.Hours,
			m.Revenue.StringFixed(0),
			m.Payments.StringFixed(0),
			m.Balance.StringFixed(0),
			strings.Join(m.Projects, " / ")))
	}
	return b.String()
}
