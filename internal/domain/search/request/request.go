package request

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/kailas-cloud/annosearch/internal/domain"
	"github.com/kailas-cloud/annosearch/internal/domain/search/filter"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed text query length.
	MaxQueryLength = 4096
	DefaultLimit   = 50
	MaxLimit       = 1000
)

// Search is a validated filtered full-text search.
type Search struct {
	query  *filter.TextQuery
	filter filter.Filter
	sort   []filter.Order
	offset int
	limit  int
	userID *uuid.UUID
}

// NewSearch validates and normalizes search parameters.
// Defaults: limit=50. A nil query matches all records.
func NewSearch(
	query *filter.TextQuery,
	f filter.Filter,
	sort []filter.Order,
	offset, limit int,
	userID *uuid.UUID,
) (Search, error) {
	if query != nil && len(query.Text) > MaxQueryLength {
		return Search{}, domain.InvalidInput("query too long (max %d chars)", MaxQueryLength)
	}
	if err := filter.Validate(f); err != nil {
		return Search{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	for _, o := range sort {
		if o.Scope == nil || !o.Direction.IsValid() {
			return Search{}, domain.InvalidInput("invalid sort order %+v", o)
		}
	}
	if offset < 0 {
		return Search{}, domain.InvalidInput("offset must be non-negative, got %d", offset)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Search{
		query:  query,
		filter: f,
		sort:   sort,
		offset: offset,
		limit:  limit,
		userID: userID,
	}, nil
}

// Query returns the text query, nil when matching all records.
func (r *Search) Query() *filter.TextQuery { return r.query }

// Filter returns the filter tree, possibly nil.
func (r *Search) Filter() filter.Filter { return r.filter }

// Sort returns the requested orders.
func (r *Search) Sort() []filter.Order { return r.sort }

// Offset returns the number of hits to skip.
func (r *Search) Offset() int { return r.offset }

// Limit returns the page size.
func (r *Search) Limit() int { return r.limit }

// UserID returns the user whose seeded order applies, if any.
func (r *Search) UserID() *uuid.UUID { return r.userID }
