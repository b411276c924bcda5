package types

import (
	"context"
	"net/url"

	"github.com/matthieukhl/storepulse/internal/models"
)

// OrderSource retrieves shop records over a creation-time window
type OrderSource interface {
	FetchOrders(ctx context.Context, window models.Window, params url.Values) ([]models.Order, error)
	FetchLocations(ctx context.Context) ([]models.Location, error)
}

// Notifier delivers a rendered text message to a channel
type Notifier interface {
	Notify(ctx context.Context, text string) error
}
