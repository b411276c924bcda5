package server

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/matthieukhl/storepulse/internal/models"
	"github.com/shopspring/decimal"
)

// Fixtures is the data set served by the mock shop.
type Fixtures struct {
	Orders    []models.Order
	Locations []models.Location
	// Assigned maps order id to the location expected to fulfil it.
	Assigned map[int64]int64
}

type sampleProduct struct {
	id    int64
	title string
	price string
}

var sampleProducts = []sampleProduct{
	{7001, "Chew Rope Deluxe", "12.50"},
	{7002, "Orthopedic Dog Bed", "89.00"},
	{7003, "Salmon Training Treats", "9.99"},
	{7004, "Reflective Harness", "34.90"},
	{7005, "Squeaky Hedgehog", "6.75"},
	{7006, "Travel Water Bottle", "18.00"},
	{7007, "Grooming Glove", "14.20"},
	{7008, "Winter Dog Coat", "59.95"},
}

var sampleLocations = []models.Location{
	{ID: 68029743337, Name: "William"},
	{ID: 104345567569, Name: "Zenventory"},
}

// SampleFixtures generates a deterministic year of orders ending at now:
// a mix of paid, refunded, voided, cancelled, test and guest orders, with
// partial refunds and fulfillments at two locations.
func SampleFixtures(now time.Time, count int) Fixtures {
	rng := rand.New(rand.NewSource(42))
	now = now.UTC().Truncate(time.Second)

	fx := Fixtures{
		Locations: append([]models.Location(nil), sampleLocations...),
		Assigned:  make(map[int64]int64, count),
	}

	start := now.AddDate(-1, 0, 0)
	span := now.Sub(start)
	step := span / time.Duration(count+1)

	var lineID int64 = 900000
	for i := 0; i < count; i++ {
		orderID := int64(500000 + i)
		created := start.Add(step * time.Duration(i+1))

		o := models.Order{
			ID:              orderID,
			Name:            fmt.Sprintf("#%d", 1001+i),
			CreatedAt:       created,
			FinancialStatus: models.FinancialPaid,
		}

		if rng.Intn(10) > 0 {
			o.Customer = &models.Customer{ID: int64(300 + rng.Intn(60))}
		}

		total := decimal.Zero
		for n := rng.Intn(3) + 1; n > 0; n-- {
			p := sampleProducts[rng.Intn(len(sampleProducts))]
			lineID++
			li := models.LineItem{
				ID:        lineID,
				ProductID: models.Int64(p.id),
				Title:     p.title,
				Quantity:  rng.Intn(3) + 1,
				Price:     models.NewMoney(p.price),
			}
			total = total.Add(li.Price.Mul(decimal.NewFromInt(int64(li.Quantity))))
			o.LineItems = append(o.LineItems, li)
		}
		if rng.Intn(25) == 0 {
			lineID++
			o.LineItems = append(o.LineItems, models.LineItem{
				ID:       lineID,
				Title:    "Custom engraving",
				Quantity: 1,
				Price:    models.NewMoney("5.00"),
			})
			total = total.Add(decimal.NewFromInt(5))
		}
		o.TotalPrice = models.Money{Decimal: total}

		switch r := rng.Intn(100); {
		case r < 4:
			o.FinancialStatus = models.FinancialVoided
		case r < 8:
			o.FinancialStatus = models.FinancialPending
		case r < 10:
			cancelled := created.Add(3 * time.Hour)
			o.CancelledAt = &cancelled
			o.FinancialStatus = models.FinancialRefunded
		case r < 12:
			o.Test = true
		case r < 22:
			refundFirstLine(&o, created, false)
		case r < 26:
			refundFirstLine(&o, created, true)
		}

		location := sampleLocations[rng.Intn(len(sampleLocations))].ID
		fx.Assigned[orderID] = location
		if o.CancelledAt == nil && o.FinancialStatus != models.FinancialVoided && now.Sub(created) > 72*time.Hour && rng.Intn(8) > 0 {
			fulfilled := created.Add(time.Duration(12+rng.Intn(60)) * time.Hour)
			status := ""
			if now.Sub(fulfilled) > time.Duration(4+rng.Intn(10))*24*time.Hour {
				status = models.ShipmentDelivered
			}
			o.Fulfillments = []models.Fulfillment{{
				ID:             orderID * 10,
				LocationID:     models.Int64(location),
				CreatedAt:      &fulfilled,
				ShipmentStatus: status,
			}}
		}

		fx.Orders = append(fx.Orders, o)
	}
	return fx
}

// refundFirstLine refunds one unit (or, when full, every unit) of the
// order's first line item.
func refundFirstLine(o *models.Order, created time.Time, full bool) {
	li := o.LineItems[0]
	qty := 1
	if full {
		qty = li.Quantity
		o.FinancialStatus = models.FinancialRefunded
	} else {
		o.FinancialStatus = models.FinancialPartiallyRefunded
	}
	refunded := created.Add(7 * 24 * time.Hour)
	o.Refunds = append(o.Refunds, models.Refund{
		ID:        o.ID * 10,
		CreatedAt: &refunded,
		RefundLineItems: []models.RefundLineItem{{
			ID:         li.ID * 10,
			LineItemID: li.ID,
			Quantity:   qty,
			LineItem:   li,
		}},
	})
}
