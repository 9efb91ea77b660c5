package domain

import "time"

type OrderStatus string

const (
	OrderStatusPlaced  OrderStatus = "Placed"
	OrderStatusCooking OrderStatus = "Cooking"
	OrderStatusReady   OrderStatus = "Ready"
	OrderStatusServed  OrderStatus = "Served"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPlaced, OrderStatusCooking, OrderStatusReady, OrderStatusServed:
		return true
	}
	return false
}

// Notifies reports whether reaching s is announced to the customer.
func (s OrderStatus) Notifies() bool {
	return s == OrderStatusReady || s == OrderStatusServed
}

type Order struct {
	ID            string
	Items         []CartItem
	TotalAmount   int64
	Status        OrderStatus
	CustomerName  string
	StaffAssigned string // empty until Served
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Active is true until the order has been served.
func (o Order) Active() bool {
	return o.Status != OrderStatusServed
}

// LineTotal sums price x quantity over the order's line items.
func LineTotal(items []CartItem) int64 {
	var total int64
	for _, it := range items {
		total += it.Price * int64(it.Quantity)
	}
	return total
}
