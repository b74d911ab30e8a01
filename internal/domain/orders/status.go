package orders

// OrderStatus is a custom type that represents the current status of an order in its lifecycle.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusCompleted OrderStatus = "completed"
	StatusFailed    OrderStatus = "failed"
)

// Allowed state transitions: pending is the only non-terminal state, and each
// terminal transition is applied exactly once.
var allowed = map[OrderStatus]map[OrderStatus]bool{
	StatusPending:   {StatusCompleted: true, StatusFailed: true},
	StatusCompleted: {},
	StatusFailed:    {},
}

// CanTransition checks if from->to is allowed.
func CanTransition(from, to OrderStatus) bool {
	nexts := allowed[from]
	return nexts != nil && nexts[to]
}

// IsTerminal reports whether the status permits no further transition.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
