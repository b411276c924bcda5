package audit

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/matthieukhl/storepulse/internal/models"
)

var testNow = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	locations []models.Location
	orders    map[string][]models.Order
	err       error
	calls     []url.Values
	windows   []models.Window
}

func (f *fakeSource) FetchOrders(ctx context.Context, window models.Window, params url.Values) ([]models.Order, error) {
	f.calls = append(f.calls, params)
	f.windows = append(f.windows, window)
	if f.err != nil {
		return nil, f.err
	}
	return f.orders[params.Get("reference_location_id")], nil
}

func (f *fakeSource) FetchLocations(ctx context.Context) ([]models.Location, error) {
	return f.locations, nil
}

func ago(d time.Duration) *time.Time {
	t := testNow.Add(-d)
	return &t
}

const day = 24 * time.Hour

func TestFindUnfulfilledSkipsUnknownLocations(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		locations: []models.Location{{ID: 1, Name: "William"}},
		orders: map[string][]models.Order{
			"1": {{ID: 10, Name: "#1010"}, {ID: 11, Name: "#1011"}},
		},
	}
	targets := []Target{{LocationID: 1, Name: "cfg-name"}, {LocationID: 2, Name: "Gone"}}
	window := UnfulfilledWindow(testNow, 31, 2)

	results, err := FindUnfulfilled(context.Background(), src, targets, window)
	if err != nil {
		t.Fatalf("FindUnfulfilled failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if len(src.calls) != 1 {
		t.Fatalf("Expected 1 order fetch, got %d", len(src.calls))
	}

	params := src.calls[0]
	for key, want := range map[string]string{
		"status":                "open",
		"fulfillment_status":    "unfulfilled",
		"reference_location_id": "1",
		"fields":                "id,name,created_at",
	} {
		if got := params.Get(key); got != want {
			t.Errorf("Expected %s=%s, got %q", key, want, got)
		}
	}

	if !src.windows[0].Min.Equal(testNow.AddDate(0, 0, -31)) || !src.windows[0].Max.Equal(testNow.AddDate(0, 0, -2)) {
		t.Errorf("Unexpected window %v", src.windows[0])
	}

	msg := results[0].Message()
	want := "🚨 *Unfulfilled orders* (from 2025-05-30 to 2025-06-28) for *William*:\n#1010\n#1011"
	if msg != want {
		t.Errorf("Expected message %q, got %q", want, msg)
	}
}

func TestUnfulfilledAllClear(t *testing.T) {
	t.Parallel()

	r := UnfulfilledResult{LocationName: "Zenventory", Window: UnfulfilledWindow(testNow, 31, 2)}
	want := "✅ No unfulfilled orders between 2025-05-30 and 2025-06-28 for *Zenventory*."
	if got := r.Message(); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestFindUnfulfilledPropagatesFetchErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	src := &fakeSource{locations: []models.Location{{ID: 1, Name: "William"}}, err: boom}

	_, err := FindUnfulfilled(context.Background(), src, []Target{{LocationID: 1}}, UnfulfilledWindow(testNow, 31, 2))
	if !errors.Is(err, boom) {
		t.Fatalf("Expected wrapped fetch error, got %v", err)
	}
}

func TestClassifyDelayedThresholds(t *testing.T) {
	t.Parallel()

	targets := []Target{
		{LocationID: 1, Name: "William", DelayDays: 10},
		{LocationID: 2, Name: "Zenventory", DelayDays: 5},
	}
	orders := []models.Order{
		{Name: "#1", Fulfillments: []models.Fulfillment{
			{LocationID: models.Int64(1), CreatedAt: ago(11*day + time.Hour)},
		}},
		// exactly at the threshold is not late
		{Name: "#2", Fulfillments: []models.Fulfillment{
			{LocationID: models.Int64(1), CreatedAt: ago(10*day + 23*time.Hour)},
		}},
		{Name: "#3", Fulfillments: []models.Fulfillment{
			{LocationID: models.Int64(1), CreatedAt: ago(15 * day), ShipmentStatus: models.ShipmentDelivered},
		}},
		{Name: "#4", Fulfillments: []models.Fulfillment{
			{LocationID: models.Int64(99), CreatedAt: ago(15 * day)},
			{LocationID: models.Int64(1)},
		}},
		{Name: "#5", Fulfillments: []models.Fulfillment{
			{LocationID: models.Int64(2), CreatedAt: ago(6 * day), ShipmentStatus: "in_transit"},
		}},
	}

	report := ClassifyDelayed(orders, targets, testNow, 21)
	if report.Delayed() != 2 {
		t.Fatalf("Expected 2 delayed orders, got %d", report.Delayed())
	}

	william := report.Sections[0]
	if william.Target.Name != "William" || len(william.Orders) != 1 {
		t.Fatalf("Unexpected William section %+v", william)
	}
	if william.Orders[0].OrderName != "#1" || william.Orders[0].DaysSinceFulfilled != 11 {
		t.Errorf("Expected #1 at 11 days, got %+v", william.Orders[0])
	}

	zen := report.Sections[1]
	if len(zen.Orders) != 1 || zen.Orders[0].OrderName != "#5" || zen.Orders[0].DaysSinceFulfilled != 6 {
		t.Errorf("Unexpected Zenventory section %+v", zen)
	}
}

func TestDelayedMessageKeepsConfiguredOrder(t *testing.T) {
	t.Parallel()

	report := DelayedReport{
		LookbackDays: 21,
		Sections: []DelayedSection{
			{Target: Target{Name: "Zenventory"}},
			{Target: Target{Name: "William"}, Orders: []DelayedOrder{{OrderName: "#1001", DaysSinceFulfilled: 12}}},
		},
	}

	msg := report.Message()
	if !strings.HasPrefix(msg, "📦 *Delayed Undelivered Orders (Last 21 Days)*\n") {
		t.Errorf("Unexpected heading in %q", msg)
	}
	zen := strings.Index(msg, "*📍 Zenventory*")
	william := strings.Index(msg, "*📍 William*")
	if zen < 0 || william < 0 || zen > william {
		t.Errorf("Expected sections in configured order, got %q", msg)
	}
	if !strings.Contains(msg, "   ✅ No delayed undelivered orders") {
		t.Error("Expected all-clear line for Zenventory")
	}
	if !strings.Contains(msg, "   🔴 Order #1001, fulfilled 12 days ago, still not delivered") {
		t.Error("Expected delayed line for #1001")
	}
}

func TestFindDelayedQuery(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	if _, err := FindDelayed(context.Background(), src, nil, testNow, 21); err != nil {
		t.Fatalf("FindDelayed failed: %v", err)
	}
	params := src.calls[0]
	if params.Get("fulfillment_status") != "fulfilled" || params.Get("fields") != "id,name,fulfillments" {
		t.Errorf("Unexpected params %v", params)
	}
	if !src.windows[0].Min.Equal(testNow.AddDate(0, 0, -21)) {
		t.Errorf("Expected 21 day window, got %v", src.windows[0])
	}
}
