package filter

import "fmt"

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// IsValid reports whether the direction is known.
func (d Direction) IsValid() bool { return d == Asc || d == Desc }

// Order sorts results by a scoped value.
type Order struct {
	Scope     Scope
	Direction Direction
}

// NewOrder creates an Order. An empty direction defaults to Asc.
func NewOrder(scope Scope, d Direction) (Order, error) {
	if scope == nil {
		return Order{}, fmt.Errorf("order scope is required")
	}
	if d == "" {
		d = Asc
	}
	if !d.IsValid() {
		return Order{}, fmt.Errorf("invalid sort direction: %q", d)
	}
	return Order{Scope: scope, Direction: d}, nil
}

// TextQuery is a free-text query, optionally restricted to one record field.
type TextQuery struct {
	Text  string
	Field string
}
