package searchengine

import (
	"context"

	"github.com/kailas-cloud/annosearch/internal/domain"
	"github.com/kailas-cloud/annosearch/internal/domain/search/request"
	"github.com/kailas-cloud/annosearch/internal/domain/search/result"
)

// SearchEngine indexes dataset records and answers search, similarity and
// metrics queries. Implementations are safe for concurrent use; mapping
// changes for one dataset should be serialized by the caller.
//
//nolint:interfacebloat // full engine contract, consumers declare narrow interfaces
type SearchEngine interface {
	Ping(ctx context.Context) error
	Close() error

	CreateIndex(ctx context.Context, ds *domain.Dataset) error
	DeleteIndex(ctx context.Context, ds *domain.Dataset) error
	ConfigureMetadataProperty(ctx context.Context, ds *domain.Dataset, p domain.MetadataProperty) error
	ConfigureIndexVectors(ctx context.Context, vs domain.VectorSettings) error

	IndexRecords(ctx context.Context, ds *domain.Dataset, records []domain.Record) (BulkResult, error)
	PartialRecordUpdate(ctx context.Context, r *domain.Record, fields map[string]any) error
	DeleteRecords(ctx context.Context, ds *domain.Dataset, records []domain.Record) (BulkResult, error)

	UpdateRecordResponse(ctx context.Context, r *domain.Response) error
	DeleteRecordResponse(ctx context.Context, r *domain.Response) error
	UpdateRecordSuggestion(ctx context.Context, s *domain.Suggestion) error
	DeleteRecordSuggestion(ctx context.Context, s *domain.Suggestion) error

	Search(ctx context.Context, ds *domain.Dataset, req request.Search) (result.SearchResponses, error)
	SimilaritySearch(ctx context.Context, ds *domain.Dataset, req request.Similarity) (result.SearchResponses, error)
	ComputeMetricsFor(ctx context.Context, p domain.MetadataProperty) (result.MetadataMetrics, error)
}

// SimilarityQuery holds the backend-neutral parts of a nearest-neighbour search.
type SimilarityQuery struct {
	Field      string
	Vector     []float32
	K          int
	Filters    []any
	ExcludeIDs []string
}

// Adapter executes the operations whose request shape differs per backend.
//
//nolint:interfacebloat // backend seam
type Adapter interface {
	// Backend returns the registered backend name.
	Backend() string
	Ping(ctx context.Context) error
	Close() error

	IndexExists(ctx context.Context, index string) (bool, error)
	CreateIndex(ctx context.Context, index string, settings, mappings map[string]any) error
	// DeleteIndex succeeds when the index does not exist.
	DeleteIndex(ctx context.Context, index string) error
	PutMapping(ctx context.Context, index string, mapping map[string]any) error

	Search(ctx context.Context, index string, body map[string]any) (*SearchResponse, error)
	// Bulk applies actions with refresh; item failure handling is backend-specific.
	Bulk(ctx context.Context, index string, actions []BulkAction) (BulkResult, error)
	// Update applies a doc merge or script with refresh and conflict retries.
	Update(ctx context.Context, index, id string, body map[string]any) error

	// IndexSettings returns backend settings merged into the creation settings.
	IndexSettings() map[string]any
	VectorMapping(vs domain.VectorSettings) Mapping
	SimilarityBody(q SimilarityQuery) map[string]any
	ResponseUpdateScript(response Document) map[string]any
	ResponseDeleteScript(responseID string) map[string]any
}
