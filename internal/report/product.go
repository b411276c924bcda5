package report

import (
	"fmt"
	"strings"

	"github.com/matthieukhl/storepulse/internal/analyze"
	"github.com/matthieukhl/storepulse/internal/models"
)

// ProductReport holds the two computed product tables and their windows.
type ProductReport struct {
	RefundWindow models.Window
	LTVWindow    models.Window
	RefundRows   []analyze.RefundRateRow
	LTVRows      []analyze.LTVRow
}

// Build runs both aggregators with the same eligibility policy. The refund
// window orders also define the LTV cohorts.
func Build(refundWindow, ltvWindow models.Window, refundOrders, ltvOrders []models.Order, policy analyze.Policy) ProductReport {
	return ProductReport{
		RefundWindow: refundWindow,
		LTVWindow:    ltvWindow,
		RefundRows:   analyze.RefundRates(refundOrders, policy),
		LTVRows:      analyze.LifetimeValues(refundOrders, ltvOrders, policy),
	}
}

// Message renders the report as a chat message body.
func (r ProductReport) Message(maxRows int) string {
	var b strings.Builder
	b.WriteString("*Shopify Product Report*\n")
	fmt.Fprintf(&b, "• Refund window: %s\n", r.RefundWindow.Label())
	fmt.Fprintf(&b, "• LTV window: %s\n\n", r.LTVWindow.Label())

	b.WriteString("*1) Refund rate per product (units)*\n")
	b.WriteString(codeBlock(RefundRateTable(r.RefundRows).Render(maxRows)))
	b.WriteString("\n\n")

	b.WriteString("*2) LTV per product (avg net spend of buyers)*\n")
	b.WriteString(codeBlock(LTVTable(r.LTVRows).Render(maxRows)))
	b.WriteString("\n")

	b.WriteString("_Notes:_ Refund rate = refunded units ÷ sold units in refund window. ")
	b.WriteString("LTV(product) = average customer net spend across LTV window for buyers of that product. ")
	b.WriteString("Refunded value uses original line item prices and excludes shipping and tax adjustments.")
	return b.String()
}

func codeBlock(s string) string {
	if s == "_No data_" {
		return s
	}
	return "```" + s + "```"
}
