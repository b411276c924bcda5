package analyze

import (
	"fmt"
	"testing"
	"time"

	"github.com/matthieukhl/storepulse/internal/models"
	"github.com/shopspring/decimal"
)

var created = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

func line(id, pid int64, title string, qty int, price string) models.LineItem {
	return models.LineItem{ID: id, ProductID: models.Int64(pid), Title: title, Quantity: qty, Price: models.NewMoney(price)}
}

func refund(li models.LineItem, qty int) models.Refund {
	return models.Refund{RefundLineItems: []models.RefundLineItem{{LineItemID: li.ID, Quantity: qty, LineItem: li}}}
}

func order(id int64, customer int64, status models.FinancialStatus, total string, items ...models.LineItem) models.Order {
	o := models.Order{
		ID:              id,
		CreatedAt:       created,
		FinancialStatus: status,
		TotalPrice:      models.NewMoney(total),
		LineItems:       items,
	}
	if customer != 0 {
		o.Customer = &models.Customer{ID: customer}
	}
	return o
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPolicyEligible(t *testing.T) {
	t.Parallel()

	cancelledAt := created.Add(time.Hour)
	tests := []struct {
		name   string
		policy Policy
		order  models.Order
		want   bool
	}{
		{"paid", Policy{}, models.Order{FinancialStatus: models.FinancialPaid}, true},
		{"partially refunded", Policy{}, models.Order{FinancialStatus: models.FinancialPartiallyRefunded}, true},
		{"refunded", Policy{}, models.Order{FinancialStatus: models.FinancialRefunded}, true},
		{"pending", Policy{}, models.Order{FinancialStatus: models.FinancialPending}, false},
		{"voided", Policy{}, models.Order{FinancialStatus: models.FinancialVoided}, false},
		{"authorized", Policy{}, models.Order{FinancialStatus: models.FinancialAuthorized}, false},
		{"unknown status", Policy{}, models.Order{FinancialStatus: "mystery"}, false},
		{"cancelled", Policy{}, models.Order{FinancialStatus: models.FinancialPaid, CancelledAt: &cancelledAt}, false},
		{"cancelled included", Policy{IncludeCancelled: true}, models.Order{FinancialStatus: models.FinancialPaid, CancelledAt: &cancelledAt}, true},
		{"test order", Policy{}, models.Order{FinancialStatus: models.FinancialPaid, Test: true}, false},
		{"test order included", Policy{IncludeTest: true}, models.Order{FinancialStatus: models.FinancialPaid, Test: true}, true},
		{"voided test order included", Policy{IncludeTest: true}, models.Order{FinancialStatus: models.FinancialVoided, Test: true}, false},
	}

	for _, tt := range tests {
		if got := tt.policy.Eligible(tt.order); got != tt.want {
			t.Errorf("%s: Eligible() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestRefundRates(t *testing.T) {
	t.Parallel()

	rope := line(1, 10, "Rope", 4, "10.00")
	bed := line(2, 20, "Bed", 1, "80.00")
	o1 := order(1, 501, models.FinancialPartiallyRefunded, "120.00", rope, bed)
	o1.Refunds = []models.Refund{refund(rope, 1)}

	treats := line(3, 30, "Treats", 2, "5.00")
	rope2 := line(4, 10, "Rope (renamed)", 2, "10.00")
	o2 := order(2, 502, models.FinancialRefunded, "30.00", treats, rope2)
	o2.Refunds = []models.Refund{refund(treats, 2), refund(rope2, 2)}

	rows := RefundRates([]models.Order{o1, o2}, Policy{})

	want := []RefundRateRow{
		{ProductID: 30, Product: "Treats", SoldUnits: 2, RefundedUnits: 2, RefundRatePct: dec("100")},
		{ProductID: 10, Product: "Rope", SoldUnits: 6, RefundedUnits: 3, RefundRatePct: dec("50")},
		{ProductID: 20, Product: "Bed", SoldUnits: 1, RefundedUnits: 0, RefundRatePct: dec("0")},
	}
	assertRefundRows(t, rows, want)
}

func TestRefundRatesRoundsToTwoPlaces(t *testing.T) {
	t.Parallel()

	li := line(1, 10, "Rope", 3, "10.00")
	o := order(1, 501, models.FinancialPartiallyRefunded, "30.00", li)
	o.Refunds = []models.Refund{refund(li, 1)}

	rows := RefundRates([]models.Order{o}, Policy{})
	if len(rows) != 1 || !rows[0].RefundRatePct.Equal(dec("33.33")) {
		t.Fatalf("expected 33.33%%, got %+v", rows)
	}
}

func TestRefundRatesRefundOnlyProduct(t *testing.T) {
	t.Parallel()

	deleted := line(9, 99, "Discontinued", 3, "7.00")
	o := order(1, 501, models.FinancialRefunded, "21.00", line(1, 10, "Rope", 1, "10.00"))
	o.Refunds = []models.Refund{refund(deleted, 3)}

	rows := RefundRates([]models.Order{o}, Policy{})
	want := []RefundRateRow{
		{ProductID: 99, Product: "Product 99", SoldUnits: 0, RefundedUnits: 3, RefundRatePct: dec("0")},
		{ProductID: 10, Product: "Rope", SoldUnits: 1, RefundedUnits: 0, RefundRatePct: dec("0")},
	}
	assertRefundRows(t, rows, want)
}

func TestRefundRatesToleratesOverRefund(t *testing.T) {
	t.Parallel()

	li := line(1, 10, "Rope", 1, "10.00")
	o := order(1, 501, models.FinancialRefunded, "10.00", li)
	o.Refunds = []models.Refund{refund(li, 1), refund(li, 2)}

	rows := RefundRates([]models.Order{o}, Policy{})
	if len(rows) != 1 || rows[0].RefundedUnits != 3 || !rows[0].RefundRatePct.Equal(dec("300")) {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestRefundRatesSkipsIneligibleAndProductlessLines(t *testing.T) {
	t.Parallel()

	custom := models.LineItem{ID: 5, Title: "Engraving", Quantity: 1, Price: models.NewMoney("5.00")}
	voided := order(1, 501, models.FinancialVoided, "50.00", line(1, 10, "Rope", 5, "10.00"))
	paid := order(2, 501, models.FinancialPaid, "15.00", line(2, 20, "Bed", 1, "10.00"), custom)
	paid.Refunds = []models.Refund{refund(custom, 1)}

	rows := RefundRates([]models.Order{voided, paid}, Policy{})
	want := []RefundRateRow{
		{ProductID: 20, Product: "Bed", SoldUnits: 1, RefundedUnits: 0, RefundRatePct: dec("0")},
	}
	assertRefundRows(t, rows, want)
}

func TestRefundRatesOrdering(t *testing.T) {
	t.Parallel()

	var orders []models.Order
	for i, tc := range []struct {
		sold, refunded int
	}{{10, 5}, {2, 1}, {4, 1}, {8, 2}, {3, 0}, {1, 1}} {
		pid := int64(100 + i)
		li := line(int64(i), pid, "P", tc.sold, "1.00")
		o := order(int64(i), 0, models.FinancialPaid, "1.00", li)
		if tc.refunded > 0 {
			o.Refunds = []models.Refund{refund(li, tc.refunded)}
		}
		orders = append(orders, o)
	}

	rows := RefundRates(orders, Policy{})
	for i := 1; i < len(rows); i++ {
		a, b := rows[i-1], rows[i]
		c := a.RefundRatePct.Cmp(b.RefundRatePct)
		if c < 0 || (c == 0 && a.RefundedUnits < b.RefundedUnits) {
			t.Fatalf("rows %d and %d out of order: %+v then %+v", i-1, i, a, b)
		}
	}
	// equal 50% rates: higher refunded volume first
	if rows[1].ProductID != 100 || rows[2].ProductID != 101 {
		t.Errorf("expected product 100 before 101, got %d, %d", rows[1].ProductID, rows[2].ProductID)
	}
}

func TestLifetimeValues(t *testing.T) {
	t.Parallel()

	rope := line(1, 10, "Rope", 1, "10.00")
	bed := line(2, 20, "Bed", 1, "80.00")

	// order 3 is a guest checkout, order 4 was voided, 501 buys twice
	cohort := []models.Order{
		order(1, 501, models.FinancialPaid, "10.00", rope),
		order(2, 502, models.FinancialPaid, "90.00", rope, bed),
		order(3, 0, models.FinancialPaid, "80.00", bed),
		order(4, 503, models.FinancialVoided, "80.00", bed),
		order(5, 501, models.FinancialPaid, "10.00", rope),
	}

	refunded := order(12, 502, models.FinancialPartiallyRefunded, "90.00", rope, bed)
	refunded.Refunds = []models.Refund{refund(bed, 1)}
	spend := []models.Order{
		order(11, 501, models.FinancialPaid, "10.00", rope),
		order(13, 501, models.FinancialPaid, "30.00", rope),
		refunded,
		order(14, 503, models.FinancialPaid, "1000.00", bed),
	}

	rows := LifetimeValues(cohort, spend, Policy{})

	// 501 spent 40, 502 spent 90-80=10
	want := []LTVRow{
		{ProductID: 10, Product: "Rope", BuyersCount: 2, AvgLTVPerBuyer: dec("25")},
		{ProductID: 20, Product: "Bed", BuyersCount: 1, AvgLTVPerBuyer: dec("10")},
	}
	assertLTVRows(t, rows, want)
}

func TestLifetimeValuesSingleBuyerEqualsNetSpend(t *testing.T) {
	t.Parallel()

	li := line(1, 10, "Rope", 2, "12.35")
	cohort := []models.Order{order(1, 501, models.FinancialPaid, "24.70", li)}
	spend := []models.Order{
		order(1, 501, models.FinancialPaid, "24.70", li),
		order(2, 501, models.FinancialPaid, "17.05", li),
	}

	rows := LifetimeValues(cohort, spend, Policy{})
	if len(rows) != 1 || !rows[0].AvgLTVPerBuyer.Equal(dec("41.75")) {
		t.Fatalf("expected single buyer average 41.75, got %+v", rows)
	}
}

func TestLifetimeValuesBuyerWithoutSpendCountsAsZero(t *testing.T) {
	t.Parallel()

	li := line(1, 10, "Rope", 1, "10.00")
	cohort := []models.Order{
		order(1, 501, models.FinancialPaid, "10.00", li),
		order(2, 502, models.FinancialPaid, "10.00", li),
	}
	spend := []models.Order{order(3, 501, models.FinancialPaid, "50.00", li)}

	rows := LifetimeValues(cohort, spend, Policy{})
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %+v", rows)
	}
	if rows[0].BuyersCount != 2 || !rows[0].AvgLTVPerBuyer.Equal(dec("25")) {
		t.Errorf("expected 2 buyers averaging 25, got %+v", rows[0])
	}
}

func TestLifetimeValuesOmitsGuestOnlyProducts(t *testing.T) {
	t.Parallel()

	cohort := []models.Order{order(1, 0, models.FinancialPaid, "10.00", line(1, 10, "Rope", 1, "10.00"))}
	if rows := LifetimeValues(cohort, cohort, Policy{}); len(rows) != 0 {
		t.Fatalf("expected no rows, got %+v", rows)
	}
}

func TestNetSpendIsFlooredAtZero(t *testing.T) {
	t.Parallel()

	li := line(1, 10, "Rope", 1, "10.00")
	o := order(1, 501, models.FinancialRefunded, "10.00", li)
	o.Refunds = []models.Refund{refund(li, 1), refund(li, 1)}

	if got := NetRefundAmount(o); !got.Equal(dec("20")) {
		t.Errorf("NetRefundAmount = %s, want 20", got)
	}
	spend := NetSpendByCustomer([]models.Order{o, order(2, 501, models.FinancialPaid, "7.50", li)}, Policy{})
	if got := spend[501]; !got.Equal(dec("7.5")) {
		t.Errorf("net spend = %s, want 7.5", got)
	}
}

func TestAggregationIsDeterministic(t *testing.T) {
	t.Parallel()

	var orders []models.Order
	for i := 0; i < 40; i++ {
		li := line(int64(i), int64(10+i%7), "P", 1+i%3, "9.99")
		o := order(int64(i), int64(500+i%11), models.FinancialPaid, "19.98", li)
		if i%4 == 0 {
			o.Refunds = []models.Refund{refund(li, 1)}
		}
		orders = append(orders, o)
	}

	if fmt.Sprint(RefundRates(orders, Policy{})) != fmt.Sprint(RefundRates(orders, Policy{})) {
		t.Error("refund rates differ between identical runs")
	}
	if fmt.Sprint(LifetimeValues(orders, orders, Policy{})) != fmt.Sprint(LifetimeValues(orders, orders, Policy{})) {
		t.Error("lifetime values differ between identical runs")
	}
}

func assertRefundRows(t *testing.T, got, want []RefundRateRow) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d rows, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.ProductID != w.ProductID || g.Product != w.Product || g.SoldUnits != w.SoldUnits ||
			g.RefundedUnits != w.RefundedUnits || !g.RefundRatePct.Equal(w.RefundRatePct) {
			t.Errorf("row %d: expected %+v, got %+v", i, w, g)
		}
	}
}

func assertLTVRows(t *testing.T, got, want []LTVRow) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d rows, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.ProductID != w.ProductID || g.Product != w.Product || g.BuyersCount != w.BuyersCount ||
			!g.AvgLTVPerBuyer.Equal(w.AvgLTVPerBuyer) {
			t.Errorf("row %d: expected %+v, got %+v", i, w, g)
		}
	}
}
