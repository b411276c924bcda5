package analyze

import (
	"sort"

	"github.com/matthieukhl/storepulse/internal/models"
	"github.com/shopspring/decimal"
)

// LTVRow is one product line of the lifetime-value table.
type LTVRow struct {
	ProductID      int64
	Product        string
	BuyersCount    int
	AvgLTVPerBuyer decimal.Decimal
}

// LifetimeValues averages customer net spend per product cohort.
//
// The cohort of a product is every distinct customer who bought it in
// cohortOrders. Each customer's net spend is accumulated over spendOrders,
// which usually cover a longer window. Buyers without spend in that window
// count as zero. Guest orders are ignored in both passes and products with
// no identified buyer are left out. Rows are sorted by average spend, then
// cohort size, both descending.
func LifetimeValues(cohortOrders, spendOrders []models.Order, policy Policy) []LTVRow {
	cohorts := make(map[int64]map[int64]struct{})
	titles := make(titleIndex)

	for _, o := range cohortOrders {
		if !policy.Eligible(o) {
			continue
		}
		cid, ok := o.CustomerID()
		if !ok {
			continue
		}
		for _, li := range o.LineItems {
			if li.ProductID == nil {
				continue
			}
			pid := *li.ProductID
			titles.note(pid, li.Title)
			if cohorts[pid] == nil {
				cohorts[pid] = make(map[int64]struct{})
			}
			cohorts[pid][cid] = struct{}{}
		}
	}

	spend := NetSpendByCustomer(spendOrders, policy)

	rows := make([]LTVRow, 0, len(cohorts))
	for pid, buyers := range cohorts {
		if len(buyers) == 0 {
			continue
		}
		total := decimal.Zero
		for cid := range buyers {
			total = total.Add(spend[cid])
		}
		rows = append(rows, LTVRow{
			ProductID:      pid,
			Product:        titles.title(pid),
			BuyersCount:    len(buyers),
			AvgLTVPerBuyer: total.Div(decimal.NewFromInt(int64(len(buyers)))).Round(2),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if c := a.AvgLTVPerBuyer.Cmp(b.AvgLTVPerBuyer); c != 0 {
			return c > 0
		}
		if a.BuyersCount != b.BuyersCount {
			return a.BuyersCount > b.BuyersCount
		}
		return a.ProductID < b.ProductID
	})
	return rows
}

// NetSpendByCustomer sums max(total_price - NetRefundAmount, 0) per
// identified customer over the eligible orders.
func NetSpendByCustomer(orders []models.Order, policy Policy) map[int64]decimal.Decimal {
	spend := make(map[int64]decimal.Decimal)
	for _, o := range orders {
		if !policy.Eligible(o) {
			continue
		}
		cid, ok := o.CustomerID()
		if !ok {
			continue
		}
		net := o.TotalPrice.Sub(NetRefundAmount(o))
		if net.IsNegative() {
			net = decimal.Zero
		}
		spend[cid] = spend[cid].Add(net)
	}
	return spend
}

// NetRefundAmount approximates the value refunded on an order as the sum of
// refunded quantity × original line item unit price. Shipping and tax
// adjustments, discounts and later price edits are not reflected.
func NetRefundAmount(o models.Order) decimal.Decimal {
	total := decimal.Zero
	for _, ref := range o.Refunds {
		for _, rli := range ref.RefundLineItems {
			total = total.Add(rli.LineItem.Price.Mul(decimal.NewFromInt(int64(rli.Quantity))))
		}
	}
	return total
}
