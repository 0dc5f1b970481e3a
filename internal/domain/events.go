package domain

import "time"

type OrderAction string

const (
	OrderActionCreated        OrderAction = "created"
	OrderActionUpdated        OrderAction = "updated"
	OrderActionPaymentUpdated OrderAction = "payment_updated"
	OrderActionDeleted        OrderAction = "deleted"
)

// OrderEvent is published to the order event stream after a successful
// mutation. EventID makes audit recording idempotent on redelivery.
type OrderEvent struct {
	EventID     string      `json:"event_id"`
	OrderID     int64       `json:"order_id"`
	Action      OrderAction `json:"action"`
	DepositPaid Flag        `json:"anticipo_pagado"`
	BalancePaid Flag        `json:"pendiente_pagado"`
	Timestamp   time.Time   `json:"timestamp"`
}
