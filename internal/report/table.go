package report

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/matthieukhl/storepulse/internal/analyze"
)

// DefaultMaxRows is how many rows a table shows before summarising the rest.
const DefaultMaxRows = 15

// Table is a set of pre-formatted cells with a header row.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Render lays the table out in fixed-width columns, showing at most maxRows
// rows followed by "... (N more)". An empty table renders as "_No data_".
func (t Table) Render(maxRows int) string {
	if len(t.Rows) == 0 {
		return "_No data_"
	}
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	shown := t.Rows
	if len(shown) > maxRows {
		shown = shown[:maxRows]
	}

	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range shown {
		for i := range widths {
			if i < len(row) {
				if w := utf8.RuneCountInString(row[i]); w > widths[i] {
					widths[i] = w
				}
			}
		}
	}

	lines := make([]string, 0, len(shown)+3)
	lines = append(lines, formatRow(t.Headers, widths))

	rule := make([]string, len(widths))
	for i, w := range widths {
		rule[i] = strings.Repeat("-", w)
	}
	lines = append(lines, strings.Join(rule, "-+-"))

	for _, row := range shown {
		lines = append(lines, formatRow(row, widths))
	}
	if extra := len(t.Rows) - len(shown); extra > 0 {
		lines = append(lines, fmt.Sprintf("... (%d more)", extra))
	}
	return strings.Join(lines, "\n")
}

func formatRow(cells []string, widths []int) string {
	padded := make([]string, len(widths))
	for i, w := range widths {
		var cell string
		if i < len(cells) {
			cell = cells[i]
		}
		padded[i] = cell + strings.Repeat(" ", w-utf8.RuneCountInString(cell))
	}
	return strings.Join(padded, " | ")
}

// RefundRateTable formats refund-rate rows without reordering them.
func RefundRateTable(rows []analyze.RefundRateRow) Table {
	t := Table{Headers: []string{"product", "sold_units", "refunded_units", "refund_rate_pct"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Product,
			strconv.Itoa(r.SoldUnits),
			strconv.Itoa(r.RefundedUnits),
			r.RefundRatePct.StringFixed(2),
		})
	}
	return t
}

// LTVTable formats lifetime-value rows without reordering them.
func LTVTable(rows []analyze.LTVRow) Table {
	t := Table{Headers: []string{"product", "buyers_count", "avg_ltv_per_buyer"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Product,
			strconv.Itoa(r.BuyersCount),
			r.AvgLTVPerBuyer.StringFixed(2),
		})
	}
	return t
}
