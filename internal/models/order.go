package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FinancialStatus mirrors the shop API's order financial_status field.
type FinancialStatus string

const (
	FinancialPending           FinancialStatus = "pending"
	FinancialAuthorized        FinancialStatus = "authorized"
	FinancialPartiallyPaid     FinancialStatus = "partially_paid"
	FinancialPaid              FinancialStatus = "paid"
	FinancialPartiallyRefunded FinancialStatus = "partially_refunded"
	FinancialRefunded          FinancialStatus = "refunded"
	FinancialVoided            FinancialStatus = "voided"
)

// ShipmentDelivered is the fulfillment shipment_status of a delivered parcel.
const ShipmentDelivered = "delivered"

// Money is a decimal currency amount. The shop API encodes prices as
// strings ("19.99"); values that are missing or cannot be parsed decode
// as zero instead of failing the whole page.
type Money struct {
	decimal.Decimal
}

func NewMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}
	}
	return Money{d}
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		m.Decimal = decimal.Zero
		return nil
	}
	m.Decimal = d
	return nil
}

// Order is one order record as returned by the orders collection.
type Order struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	CreatedAt       time.Time       `json:"created_at"`
	CancelledAt     *time.Time      `json:"cancelled_at"`
	Test            bool            `json:"test"`
	FinancialStatus FinancialStatus `json:"financial_status"`
	TotalPrice      Money           `json:"total_price"`
	Customer        *Customer       `json:"customer"`
	LineItems       []LineItem      `json:"line_items"`
	Refunds         []Refund        `json:"refunds"`
	Fulfillments    []Fulfillment   `json:"fulfillments"`
}

// CustomerID returns the buyer id, or false for guest checkouts.
func (o Order) CustomerID() (int64, bool) {
	if o.Customer == nil || o.Customer.ID == 0 {
		return 0, false
	}
	return o.Customer.ID, true
}

// Customer is only ever referenced by id.
type Customer struct {
	ID int64 `json:"id"`
}

// LineItem is one product line of an order. ProductID is nil for custom
// or deleted products.
type LineItem struct {
	ID        int64  `json:"id"`
	ProductID *int64 `json:"product_id"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	Price     Money  `json:"price"`
}

type Refund struct {
	ID              int64            `json:"id"`
	CreatedAt       *time.Time       `json:"created_at,omitempty"`
	RefundLineItems []RefundLineItem `json:"refund_line_items"`
}

// RefundLineItem carries a copy of the refunded line item; product and
// unit price are read from that copy.
type RefundLineItem struct {
	ID         int64    `json:"id"`
	LineItemID int64    `json:"line_item_id"`
	Quantity   int      `json:"quantity"`
	LineItem   LineItem `json:"line_item"`
}

type Fulfillment struct {
	ID             int64      `json:"id"`
	LocationID     *int64     `json:"location_id"`
	CreatedAt      *time.Time `json:"created_at"`
	ShipmentStatus string     `json:"shipment_status"`
}

type Location struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Int64 returns a pointer to v, for optional id fields.
func Int64(v int64) *int64 {
	return &v
}
