package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Flag is a payment-state boolean. The storefront sends and expects 0/1
// integers, so it marshals as a number while still accepting JSON booleans
// on the way in.
type Flag bool

func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}

func (f *Flag) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "0", "false":
		*f = false
	case "1", "true":
		*f = true
	default:
		return fmt.Errorf("invalid flag value %s", data)
	}
	return nil
}

func (f *Flag) Scan(src any) error {
	switch v := src.(type) {
	case bool:
		*f = Flag(v)
	case int64:
		*f = v != 0
	case nil:
		*f = false
	default:
		return fmt.Errorf("cannot scan %T into Flag", src)
	}
	return nil
}

func (f Flag) Value() (driver.Value, error) {
	return bool(f), nil
}

// Order is the core entity: a priced bundle of products with delivery
// logistics and a two-stage payment state. Observations and Items are opaque
// JSON documents owned by the caller; the service stores and returns them
// byte-for-byte and never recomputes the financial fields from them.
type Order struct {
	ID              int64           `json:"id"`
	ClientID        int64           `json:"client_id"`
	EventDate       string          `json:"event_date"`
	DeliveryDate    string          `json:"delivery_date"`
	DeliveryTime    string          `json:"delivery_time"`
	DeliveryEnabled bool            `json:"is_delivery_enabled"`
	DeliveryAddress string          `json:"delivery_address"`
	Observations    json.RawMessage `json:"observations"`
	Items           json.RawMessage `json:"products_json"`
	Subtotal        float64         `json:"subtotal"`
	Shipping        float64         `json:"shipping"`
	TotalNet        float64         `json:"total_net"`
	Deposit         float64         `json:"deposit"`
	Balance         float64         `json:"balance"`
	DepositPaid     Flag            `json:"anticipo_pagado"`
	BalancePaid     Flag            `json:"pendiente_pagado"`
	CreatedAt       time.Time       `json:"order_date"`
}

// OrderSummary is an order joined with its client's identity, used by the
// list endpoint for display.
type OrderSummary struct {
	Order
	ClientName  string  `json:"client_name"`
	ClientPhone *string `json:"client_phone"`
	ClientEmail *string `json:"client_email"`
}

// PaymentUpdate is a partial update of the two payment flags. A nil field
// means "leave that flag alone". The flags are independent: either can be
// set in any order, and setting one never touches the other.
type PaymentUpdate struct {
	DepositPaid *Flag
	BalancePaid *Flag
}

// Empty reports whether the update carries no flags at all.
func (p PaymentUpdate) Empty() bool {
	return p.DepositPaid == nil && p.BalancePaid == nil
}
