package domain

type Role string

const (
	RoleCustomer Role = "customer"
	RoleChef     Role = "chef"
	RoleManager  Role = "manager"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleChef, RoleManager:
		return true
	}
	return false
}

type transition struct {
	from, to OrderStatus
}

// transitions maps every legal status change to the role that performs it.
var transitions = map[transition]Role{
	{OrderStatusPlaced, OrderStatusCooking}: RoleChef,
	{OrderStatusCooking, OrderStatusReady}:  RoleChef,
	{OrderStatusReady, OrderStatusServed}:   RoleManager,
}

func CanTransition(from, to OrderStatus) bool {
	_, ok := transitions[transition{from, to}]
	return ok
}

// AuthorizedRole returns the role allowed to move an order from -> to.
func AuthorizedRole(from, to OrderStatus) (Role, bool) {
	r, ok := transitions[transition{from, to}]
	return r, ok
}

// NextStatus returns the single forward step from s; Served is terminal.
func NextStatus(s OrderStatus) (OrderStatus, bool) {
	switch s {
	case OrderStatusPlaced:
		return OrderStatusCooking, true
	case OrderStatusCooking:
		return OrderStatusReady, true
	case OrderStatusReady:
		return OrderStatusServed, true
	}
	return "", false
}

// RequiresStaff is true for the transition that hands an order to a waiter.
func RequiresStaff(to OrderStatus) bool {
	return to == OrderStatusServed
}
