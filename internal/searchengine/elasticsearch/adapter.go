// Package elasticsearch implements the search engine adapter for Elasticsearch 8.x.
package elasticsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"

	"github.com/kailas-cloud/annosearch/internal/domain"
	"github.com/kailas-cloud/annosearch/internal/metrics"
	"github.com/kailas-cloud/annosearch/internal/searchengine"
)

// Name is the registered backend name.
const Name = "elasticsearch"

// RetryOnConflict is the version conflict retry count of update requests.
const RetryOnConflict = 5

// Adapter executes engine operations against Elasticsearch.
type Adapter struct {
	client    *es.Client
	transport *http.Transport
	logger    *zap.Logger
}

var _ searchengine.Adapter = (*Adapter)(nil)

// NewAdapter wraps a client. transport may be nil when the client owns its transport.
func NewAdapter(client *es.Client, transport *http.Transport, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{client: client, transport: transport, logger: logger}
}

// Open is the registry factory for Elasticsearch.
func Open(_ context.Context, cfg searchengine.Config, logger *zap.Logger) (searchengine.SearchEngine, error) {
	client, transport, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return searchengine.New(NewAdapter(client, transport, logger), cfg, logger), nil
}

// Backend returns the registry name of the adapter.
func (a *Adapter) Backend() string { return Name }

// Close releases idle connections of the client transport.
func (a *Adapter) Close() error {
	if a.transport != nil {
		a.transport.CloseIdleConnections()
	}
	return nil
}

// do runs a request, decodes a successful body into dst when dst is set
// and converts error responses.
func (a *Adapter) do(ctx context.Context, req esapi.Request, dst any) (int, error) {
	res, err := req.Do(ctx, a.client)
	if err != nil {
		return 0, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return res.StatusCode, decodeError(res)
	}
	if dst == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return res.StatusCode, nil
	}
	if err := json.NewDecoder(res.Body).Decode(dst); err != nil {
		return res.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return res.StatusCode, nil
}

// Ping checks that the cluster answers.
func (a *Adapter) Ping(ctx context.Context) error {
	_, err := a.do(ctx, esapi.PingRequest{}, nil)
	return err
}

// IndexExists reports whether the index exists.
func (a *Adapter) IndexExists(ctx context.Context, index string) (bool, error) {
	res, err := esapi.IndicesExistsRequest{Index: []string{index}}.Do(ctx, a.client)
	if err != nil {
		return false, err
	}
	defer func() { _ = res.Body.Close() }()

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, decodeError(res)
	}
}

// CreateIndex creates the index with its settings and mappings.
func (a *Adapter) CreateIndex(ctx context.Context, index string, settings, mappings map[string]any) error {
	body, err := searchengine.EncodeBody(map[string]any{"settings": settings, "mappings": mappings})
	if err != nil {
		return err
	}
	_, err = a.do(ctx, esapi.IndicesCreateRequest{Index: index, Body: body}, nil)
	return err
}

// DeleteIndex removes the index; a missing index is not an error.
func (a *Adapter) DeleteIndex(ctx context.Context, index string) error {
	_, err := a.do(ctx, esapi.IndicesDeleteRequest{Index: []string{index}}, nil)
	if isIndexNotFound(err) {
		return nil
	}
	return err
}

// PutMapping adds properties to the index mapping.
func (a *Adapter) PutMapping(ctx context.Context, index string, mapping map[string]any) error {
	body, err := searchengine.EncodeBody(mapping)
	if err != nil {
		return err
	}
	_, err = a.do(ctx, esapi.IndicesPutMappingRequest{Index: []string{index}, Body: body}, nil)
	return err
}

// Search runs a search request body against the index.
func (a *Adapter) Search(ctx context.Context, index string, body map[string]any) (*searchengine.SearchResponse, error) {
	r, err := searchengine.EncodeBody(body)
	if err != nil {
		return nil, err
	}
	var resp searchengine.SearchResponse
	if _, err := a.do(ctx, esapi.SearchRequest{Index: []string{index}, Body: r}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Bulk applies the actions with refresh. Rejected items are logged and
// counted; the call itself succeeds.
func (a *Adapter) Bulk(ctx context.Context, index string, actions []searchengine.BulkAction) (searchengine.BulkResult, error) {
	res := searchengine.BulkResult{Total: len(actions)}
	if len(actions) == 0 {
		return res, nil
	}
	body, err := searchengine.EncodeBulk(actions)
	if err != nil {
		return res, err
	}
	var resp searchengine.BulkResponse
	if _, err := a.do(ctx, esapi.BulkRequest{Index: index, Body: body, Refresh: "true"}, &resp); err != nil {
		return res, err
	}
	if !resp.Errors {
		return res, nil
	}

	op := actions[0].Op
	for _, item := range resp.Failures() {
		res.Failed++
		a.logger.Warn("Bulk item failed",
			zap.String("index", index),
			zap.String("id", item.ID),
			zap.Int("status", item.Status),
			zap.String("error_type", item.Error.Type),
			zap.String("reason", item.Error.Reason),
		)
	}
	metrics.BulkItemFailuresTotal.WithLabelValues(Name, string(op)).Add(float64(res.Failed))
	return res, nil
}

// Update applies a partial update or script to one document with refresh.
func (a *Adapter) Update(ctx context.Context, index, id string, body map[string]any) error {
	r, err := searchengine.EncodeBody(body)
	if err != nil {
		return err
	}
	retries := RetryOnConflict
	_, err = a.do(ctx, esapi.UpdateRequest{
		Index:           index,
		DocumentID:      id,
		Body:            r,
		Refresh:         "true",
		RetryOnConflict: &retries,
	}, nil)
	return err
}

// IndexSettings adds nothing to the shared creation settings.
func (a *Adapter) IndexSettings() map[string]any { return map[string]any{} }

// VectorMapping maps vectors as indexed dense vectors with l2 similarity.
func (a *Adapter) VectorMapping(vs domain.VectorSettings) searchengine.Mapping {
	return searchengine.Mapping{
		"type":       "dense_vector",
		"dims":       vs.Dimensions,
		"index":      true,
		"similarity": "l2_norm",
	}
}

// Candidate pool bounds of the knn search.
const maxNumCandidates = 10000

// NumCandidates returns the knn candidate pool size for k neighbours.
func NumCandidates(k int) int {
	var n int
	switch {
	case k < 50:
		n = 500
	case k < 200:
		n = 1000
	default:
		n = 2000
	}
	return min(max(n, k), maxNumCandidates)
}

// SimilarityBody builds a top-level knn search. Filters are applied inside
// knn as a pre-filter, together with the excluded ids.
func (a *Adapter) SimilarityBody(q searchengine.SimilarityQuery) map[string]any {
	knn := map[string]any{
		"field":          q.Field,
		"query_vector":   q.Vector,
		"k":              q.K,
		"num_candidates": NumCandidates(q.K),
	}
	if len(q.Filters) > 0 || len(q.ExcludeIDs) > 0 {
		b := map[string]any{}
		if len(q.Filters) > 0 {
			b["filter"] = q.Filters
		}
		if len(q.ExcludeIDs) > 0 {
			b["must_not"] = []any{map[string]any{"ids": map[string]any{"values": q.ExcludeIDs}}}
		}
		knn["filter"] = map[string]any{"bool": b}
	}
	return map[string]any{"knn": knn, "size": q.K}
}
