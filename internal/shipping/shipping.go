// Package shipping prices and books shipments with the delivery provider.
package shipping

import (
	"context"
)

type Item struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	WeightKG float64 `json:"weight_kg"`
}

type Address struct {
	Line    string `json:"line"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
}

type QuoteRequest struct {
	Origin        Address `json:"origin"`
	Destination   Address `json:"destination"`
	WeightKG      float64 `json:"weight_kg"`
	LengthCM      float64 `json:"length_cm"`
	WidthCM       float64 `json:"width_cm"`
	HeightCM      float64 `json:"height_cm"`
	DeclaredValue float64 `json:"declared_value"`
	Items         []Item  `json:"items"`
}

type Quote struct {
	Fee       float64 `json:"fee"`
	ETAWindow string  `json:"eta_window"`
}

type ShipmentRequest struct {
	QuoteRequest
	Reference string `json:"reference"`
}

type Shipment struct {
	TrackingNumber string `json:"tracking_number"`
}

type Client interface {
	Quote(ctx context.Context, req QuoteRequest) (*Quote, error)
	CreateShipment(ctx context.Context, req ShipmentRequest) (*Shipment, error)
}
