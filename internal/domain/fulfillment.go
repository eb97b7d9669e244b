package domain

import "context"

// FulfillmentReport lists what one fulfillment pass did with each item still pending.
type FulfillmentReport struct {
	OrderID        string
	Delivered      []string
	Stockouts      []string
	Manual         []string
	OrderDelivered bool
}

type Fulfiller interface {
	Fulfill(ctx context.Context, orderID string) (*FulfillmentReport, error)
}
