package request

import (
	"fmt"

	"github.com/kailas-cloud/annosearch/internal/domain"
	"github.com/kailas-cloud/annosearch/internal/domain/search/filter"
)

// SimilarityOrder selects which end of the similarity ranking is returned.
type SimilarityOrder string

const (
	MostSimilar  SimilarityOrder = "most_similar"
	LeastSimilar SimilarityOrder = "least_similar"
)

// Similarity limits.
const (
	DefaultMaxResults = 100
	MaxMaxResults     = 1000
)

// Similarity is a validated vector similarity search.
// Exactly one of value and record is set.
type Similarity struct {
	settings   domain.VectorSettings
	value      []float32
	record     *domain.Record
	query      *filter.TextQuery
	filter     filter.Filter
	maxResults int
	order      SimilarityOrder
	threshold  *float64
}

// NewSimilarity validates similarity parameters.
// Defaults: maxResults=100, order=most_similar.
func NewSimilarity(
	settings domain.VectorSettings,
	value []float32,
	record *domain.Record,
	query *filter.TextQuery,
	f filter.Filter,
	maxResults int,
	order SimilarityOrder,
	threshold *float64,
) (Similarity, error) {
	if value != nil && record != nil {
		return Similarity{}, domain.InvalidInput("must provide either vector value or record, not both")
	}
	if value == nil && record == nil {
		return Similarity{}, domain.InvalidInput("must provide either vector value or record")
	}
	if value != nil && settings.Dimensions > 0 && len(value) != settings.Dimensions {
		return Similarity{}, domain.InvalidInput(
			"vector value has %d dimensions, vector settings %q expect %d",
			len(value), settings.Name, settings.Dimensions)
	}
	if order == "" {
		order = MostSimilar
	}
	if order != MostSimilar && order != LeastSimilar {
		return Similarity{}, domain.InvalidInput("invalid similarity order: %q", order)
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if maxResults > MaxMaxResults {
		maxResults = MaxMaxResults
	}
	if err := filter.Validate(f); err != nil {
		return Similarity{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	return Similarity{
		settings:   settings,
		value:      value,
		record:     record,
		query:      query,
		filter:     f,
		maxResults: maxResults,
		order:      order,
		threshold:  threshold,
	}, nil
}

// Settings returns the vector space searched.
func (r *Similarity) Settings() domain.VectorSettings { return r.settings }

// Value returns the explicit query vector, nil when searching by record.
func (r *Similarity) Value() []float32 { return r.value }

// Record returns the query record, nil when searching by value.
func (r *Similarity) Record() *domain.Record { return r.record }

// Query returns the optional text query.
func (r *Similarity) Query() *filter.TextQuery { return r.query }

// Filter returns the optional filter tree.
func (r *Similarity) Filter() filter.Filter { return r.filter }

// MaxResults returns the number of neighbours requested.
func (r *Similarity) MaxResults() int { return r.maxResults }

// Order returns the similarity order.
func (r *Similarity) Order() SimilarityOrder { return r.order }

// Threshold returns the minimum score kept, if any.
func (r *Similarity) Threshold() *float64 { return r.threshold }

// QueryVector resolves the vector to search with: the explicit value, or the
// record's stored vector for the settings. Least-similar searches get the
// inverted vector.
func (r *Similarity) QueryVector() ([]float32, error) {
	v := r.value
	if v == nil {
		if r.record == nil {
			return nil, domain.InvalidInput("must provide either vector value or record")
		}
		stored, ok := r.record.VectorFor(r.settings.ID)
		if !ok {
			return nil, fmt.Errorf("%w: record %s has no vector for %q",
				domain.ErrNoVector, r.record.ID, r.settings.Name)
		}
		v = stored
	}
	if r.order == LeastSimilar {
		return InvertVector(v), nil
	}
	return v, nil
}

// InvertVector negates every component. Searching nearest neighbours of the
// inverted vector approximates a least-similar ranking.
func InvertVector(v []float32) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = -x
	}
	return out
}
