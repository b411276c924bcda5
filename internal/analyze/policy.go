package analyze

import "github.com/matthieukhl/storepulse/internal/models"

// Policy decides which orders count as completed sales. The same value
// must be handed to every aggregator of a report so the sections agree.
type Policy struct {
	IncludeCancelled bool
	IncludeTest      bool
}

// Eligible reports whether o is a real transaction: not cancelled, not a
// test order (unless configured otherwise) and paid, partially refunded or
// refunded. Pending, authorized and voided orders never count.
func (p Policy) Eligible(o models.Order) bool {
	if !p.IncludeCancelled && o.CancelledAt != nil {
		return false
	}
	if !p.IncludeTest && o.Test {
		return false
	}
	switch o.FinancialStatus {
	case models.FinancialPaid, models.FinancialPartiallyRefunded, models.FinancialRefunded:
		return true
	}
	return false
}

// Filter returns the eligible orders, preserving order.
func (p Policy) Filter(orders []models.Order) []models.Order {
	out := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if p.Eligible(o) {
			out = append(out, o)
		}
	}
	return out
}
