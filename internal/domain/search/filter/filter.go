package filter

import (
	"errors"
	"fmt"
)

// MaxFilterDepth bounds the nesting of And filters.
const MaxFilterDepth = 8

// Filter restricts the records a query matches.
// The set of filters is closed: Terms, Range, And.
type Filter interface {
	isFilter()
}

// Terms matches when the scoped value equals any of Values.
// Empty Values match everything.
type Terms struct {
	Scope  Scope
	Values []string
}

// Range matches when the scoped value lies within [GE, LE].
// A missing bound is open; a Range without bounds matches everything.
type Range struct {
	Scope Scope
	GE    *float64
	LE    *float64
}

// And matches when every child filter matches.
type And struct {
	Filters []Filter
}

func (Terms) isFilter() {}
func (Range) isFilter() {}
func (And) isFilter()   {}

// NewTerms creates a Terms filter.
func NewTerms(scope Scope, values ...string) (Terms, error) {
	if scope == nil {
		return Terms{}, errors.New("filter scope is required")
	}
	return Terms{Scope: scope, Values: values}, nil
}

// NewRange creates a Range filter.
func NewRange(scope Scope, ge, le *float64) (Range, error) {
	if scope == nil {
		return Range{}, errors.New("filter scope is required")
	}
	if ge != nil && le != nil && *ge > *le {
		return Range{}, fmt.Errorf("range lower bound %v exceeds upper bound %v", *ge, *le)
	}
	return Range{Scope: scope, GE: ge, LE: le}, nil
}

// NewAnd creates an And filter.
func NewAnd(filters ...Filter) (And, error) {
	a := And{Filters: filters}
	if err := Validate(a); err != nil {
		return And{}, err
	}
	return a, nil
}

// IsEmpty reports whether the range has no bounds.
func (r Range) IsEmpty() bool { return r.GE == nil && r.LE == nil }

// Validate checks scopes and nesting depth of a filter tree.
func Validate(f Filter) error {
	return validate(f, 0)
}

// depth counts the And nodes enclosing f; leaves do not add a level.
func validate(f Filter, depth int) error {
	switch f := f.(type) {
	case nil:
		return nil
	case Terms:
		if f.Scope == nil {
			return errors.New("terms filter scope is required")
		}
	case Range:
		if f.Scope == nil {
			return errors.New("range filter scope is required")
		}
	case And:
		if depth > MaxFilterDepth {
			return fmt.Errorf("filter nesting too deep (max %d)", MaxFilterDepth)
		}
		for _, child := range f.Filters {
			if err := validate(child, depth+1); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown filter %T", f)
	}
	return nil
}
