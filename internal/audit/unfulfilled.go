package audit

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/matthieukhl/storepulse/internal/models"
	"github.com/matthieukhl/storepulse/internal/types"
)

// Target is a fulfillment location the audits watch.
type Target struct {
	LocationID int64
	Name       string
	WebhookURL string
	// DelayDays is how long a fulfilled parcel may stay undelivered.
	DelayDays int
}

// UnfulfilledResult lists the open, unfulfilled orders of one location.
type UnfulfilledResult struct {
	Target       Target
	LocationName string
	Window       models.Window
	Orders       []models.Order
}

// UnfulfilledWindow covers orders created between lookbackDays and
// minAgeDays ago; younger orders are still within normal handling time.
func UnfulfilledWindow(now time.Time, lookbackDays, minAgeDays int) models.Window {
	return models.Window{
		Min: now.AddDate(0, 0, -lookbackDays),
		Max: now.AddDate(0, 0, -minAgeDays),
	}
}

// FindUnfulfilled checks each target that the shop still knows about.
// Targets missing from the locations endpoint are skipped.
func FindUnfulfilled(ctx context.Context, src types.OrderSource, targets []Target, window models.Window) ([]UnfulfilledResult, error) {
	locations, err := src.FetchLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch locations: %w", err)
	}
	names := make(map[int64]string, len(locations))
	for _, l := range locations {
		names[l.ID] = l.Name
	}

	var results []UnfulfilledResult
	for _, target := range targets {
		name, ok := names[target.LocationID]
		if !ok {
			continue
		}

		params := url.Values{}
		params.Set("status", "open")
		params.Set("fulfillment_status", "unfulfilled")
		params.Set("reference_location_id", strconv.FormatInt(target.LocationID, 10))
		params.Set("fields", "id,name,created_at")

		orders, err := src.FetchOrders(ctx, window, params)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch unfulfilled orders for %s: %w", name, err)
		}
		results = append(results, UnfulfilledResult{
			Target:       target,
			LocationName: name,
			Window:       window,
			Orders:       orders,
		})
	}
	return results, nil
}

// Message renders the alert for one location.
func (r UnfulfilledResult) Message() string {
	from := r.Window.Min.UTC().Format("2006-01-02")
	to := r.Window.Max.UTC().Format("2006-01-02")
	if len(r.Orders) == 0 {
		return fmt.Sprintf("✅ No unfulfilled orders between %s and %s for *%s*.", from, to, r.LocationName)
	}

	names := make([]string, len(r.Orders))
	for i, o := range r.Orders {
		names[i] = o.Name
	}
	return fmt.Sprintf("🚨 *Unfulfilled orders* (from %s to %s) for *%s*:\n%s",
		from, to, r.LocationName, strings.Join(names, "\n"))
}
