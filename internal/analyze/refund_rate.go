package analyze

import (
	"fmt"
	"sort"

	"github.com/matthieukhl/storepulse/internal/models"
	"github.com/shopspring/decimal"
)

// RefundRateRow is one product line of the refund-rate table.
type RefundRateRow struct {
	ProductID     int64
	Product       string
	SoldUnits     int
	RefundedUnits int
	// RefundRatePct is 100 × refunded / sold, rounded to 2 places; 0 when
	// nothing was sold.
	RefundRatePct decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// RefundRates computes per-product sold and refunded units over the
// eligible orders. Refunded units are attributed through the product id of
// the refunded line item. A product seen only through refunds (e.g. a
// product deleted since) is still reported, with zero sold units and a
// zero rate. Rows are sorted by rate, then refunded units, both descending.
func RefundRates(orders []models.Order, policy Policy) []RefundRateRow {
	sold := make(map[int64]int)
	refunded := make(map[int64]int)
	titles := make(titleIndex)

	for _, o := range orders {
		if !policy.Eligible(o) {
			continue
		}

		for _, li := range o.LineItems {
			if li.ProductID == nil {
				continue
			}
			pid := *li.ProductID
			sold[pid] += li.Quantity
			titles.note(pid, li.Title)
		}

		for pid, units := range refundedUnitsByProduct(o) {
			refunded[pid] += units
		}
	}

	rows := make([]RefundRateRow, 0, len(sold)+len(refunded))
	for pid, units := range sold {
		rows = append(rows, refundRow(pid, titles.title(pid), units, refunded[pid]))
	}
	for pid, units := range refunded {
		if _, ok := sold[pid]; ok {
			continue
		}
		rows = append(rows, refundRow(pid, titles.title(pid), 0, units))
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if c := a.RefundRatePct.Cmp(b.RefundRatePct); c != 0 {
			return c > 0
		}
		if a.RefundedUnits != b.RefundedUnits {
			return a.RefundedUnits > b.RefundedUnits
		}
		return a.ProductID < b.ProductID
	})
	return rows
}

func refundRow(pid int64, title string, sold, refunded int) RefundRateRow {
	rate := decimal.Zero
	if sold != 0 {
		rate = decimal.NewFromInt(int64(refunded)).Mul(hundred).
			Div(decimal.NewFromInt(int64(sold))).Round(2)
	}
	return RefundRateRow{
		ProductID:     pid,
		Product:       title,
		SoldUnits:     sold,
		RefundedUnits: refunded,
		RefundRatePct: rate,
	}
}

// refundedUnitsByProduct sums refund line item quantities of one order by
// the product of the original line item. Lines without a product are skipped.
func refundedUnitsByProduct(o models.Order) map[int64]int {
	m := make(map[int64]int)
	for _, ref := range o.Refunds {
		for _, rli := range ref.RefundLineItems {
			if rli.LineItem.ProductID == nil {
				continue
			}
			m[*rli.LineItem.ProductID] += rli.Quantity
		}
	}
	return m
}

// titleIndex remembers the first title seen for each product.
type titleIndex map[int64]string

func (t titleIndex) note(pid int64, title string) {
	if _, ok := t[pid]; ok || title == "" {
		return
	}
	t[pid] = title
}

func (t titleIndex) title(pid int64) string {
	if title, ok := t[pid]; ok {
		return title
	}
	return fmt.Sprintf("Product %d", pid)
}
