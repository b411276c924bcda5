package models

import "time"

// Window is a creation-time range used to scope a fetch.
type Window struct {
	Min time.Time
	Max time.Time
}

// TrailingWindow returns the window of the given number of days ending at now.
func TrailingWindow(now time.Time, days int) Window {
	return Window{
		Min: now.AddDate(0, 0, -days),
		Max: now,
	}
}

// MinParam formats the lower bound the way the orders endpoint expects it.
func (w Window) MinParam() string {
	return formatParam(w.Min)
}

func (w Window) MaxParam() string {
	return formatParam(w.Max)
}

// Label renders the window as "2006-01-02 → 2006-01-02".
func (w Window) Label() string {
	return w.Min.UTC().Format("2006-01-02") + " → " + w.Max.UTC().Format("2006-01-02")
}

func formatParam(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}
