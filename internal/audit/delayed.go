package audit

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/matthieukhl/storepulse/internal/models"
	"github.com/matthieukhl/storepulse/internal/types"
)

// DelayedOrder is a fulfilled order whose parcel has not been delivered.
type DelayedOrder struct {
	OrderName          string
	DaysSinceFulfilled int
}

type DelayedSection struct {
	Target Target
	Orders []DelayedOrder
}

// DelayedReport groups late deliveries by location, in target order.
type DelayedReport struct {
	LookbackDays int
	Sections     []DelayedSection
}

// FindDelayed scans fulfilled orders created in the last lookbackDays and
// flags fulfillments at a watched location that are not delivered and
// older than the location's DelayDays.
func FindDelayed(ctx context.Context, src types.OrderSource, targets []Target, now time.Time, lookbackDays int) (DelayedReport, error) {
	params := url.Values{}
	params.Set("status", "any")
	params.Set("fulfillment_status", "fulfilled")
	params.Set("fields", "id,name,fulfillments")

	orders, err := src.FetchOrders(ctx, models.TrailingWindow(now, lookbackDays), params)
	if err != nil {
		return DelayedReport{}, fmt.Errorf("failed to fetch fulfilled orders: %w", err)
	}
	return ClassifyDelayed(orders, targets, now, lookbackDays), nil
}

// ClassifyDelayed is the pure part of FindDelayed.
func ClassifyDelayed(orders []models.Order, targets []Target, now time.Time, lookbackDays int) DelayedReport {
	index := make(map[int64]int, len(targets))
	report := DelayedReport{LookbackDays: lookbackDays, Sections: make([]DelayedSection, len(targets))}
	for i, t := range targets {
		index[t.LocationID] = i
		report.Sections[i].Target = t
	}

	for _, o := range orders {
		for _, f := range o.Fulfillments {
			if f.CreatedAt == nil || f.LocationID == nil {
				continue
			}
			i, ok := index[*f.LocationID]
			if !ok || f.ShipmentStatus == models.ShipmentDelivered {
				continue
			}
			days := wholeDays(now.Sub(*f.CreatedAt))
			if days > targets[i].DelayDays {
				report.Sections[i].Orders = append(report.Sections[i].Orders, DelayedOrder{
					OrderName:          o.Name,
					DaysSinceFulfilled: days,
				})
			}
		}
	}
	return report
}

func wholeDays(d time.Duration) int {
	return int(math.Floor(d.Hours() / 24))
}

// Message renders every section, including the all-clear ones.
func (r DelayedReport) Message() string {
	lines := []string{fmt.Sprintf("📦 *Delayed Undelivered Orders (Last %d Days)*\n", r.LookbackDays)}
	for _, s := range r.Sections {
		lines = append(lines, fmt.Sprintf("*📍 %s*", s.Target.Name))
		if len(s.Orders) == 0 {
			lines = append(lines, "   ✅ No delayed undelivered orders")
		}
		for _, o := range s.Orders {
			lines = append(lines, fmt.Sprintf("   🔴 Order %s, fulfilled %d days ago, still not delivered", o.OrderName, o.DaysSinceFulfilled))
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// Delayed counts flagged orders across all sections.
func (r DelayedReport) Delayed() int {
	n := 0
	for _, s := range r.Sections {
		n += len(s.Orders)
	}
	return n
}
