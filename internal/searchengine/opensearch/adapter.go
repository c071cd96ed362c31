// Package opensearch implements the search engine adapter for OpenSearch 2.x.
package opensearch

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"
	"go.uber.org/zap"

	"github.com/kailas-cloud/annosearch/internal/domain"
	"github.com/kailas-cloud/annosearch/internal/metrics"
	"github.com/kailas-cloud/annosearch/internal/searchengine"
)

// Name is the registered backend name.
const Name = "opensearch"

// RetryOnConflict is the version conflict retry count of update requests.
const RetryOnConflict = 5

// Adapter executes engine operations against OpenSearch.
type Adapter struct {
	client    *opensearchapi.Client
	transport *http.Transport
	logger    *zap.Logger
}

var _ searchengine.Adapter = (*Adapter)(nil)

// NewAdapter wraps a client. transport may be nil when the client owns its transport.
func NewAdapter(client *opensearchapi.Client, transport *http.Transport, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{client: client, transport: transport, logger: logger}
}

// Open is the registry factory for OpenSearch.
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
// and parses error responses into opensearch errors.
func (a *Adapter) do(ctx context.Context, req opensearch.Request, dst any) (*opensearch.Response, error) {
	resp, err := a.client.Client.Do(ctx, req, dst)
	if err != nil {
		return resp, err
	}
	if resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	if resp.IsError() {
		return resp, opensearch.ParseError(resp)
	}
	if dst == nil && resp.Body != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return resp, nil
}

func hasErrorType(err error, typ string) bool {
	var se *opensearch.StructError
	return errors.As(err, &se) && se.Err.Type == typ
}

// Ping checks that the cluster answers.
func (a *Adapter) Ping(ctx context.Context) error {
	_, err := a.do(ctx, opensearchapi.PingReq{}, nil)
	return err
}

// IndexExists reports whether the index exists.
func (a *Adapter) IndexExists(ctx context.Context, index string) (bool, error) {
	resp, err := a.client.Client.Do(ctx, opensearchapi.IndicesExistsReq{Indices: []string{index}}, nil)
	if err != nil {
		return false, err
	}
	if resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, opensearch.ParseError(resp)
	}
}

// CreateIndex creates the index with its settings and mappings.
func (a *Adapter) CreateIndex(ctx context.Context, index string, settings, mappings map[string]any) error {
	body, err := searchengine.EncodeBody(map[string]any{"settings": settings, "mappings": mappings})
	if err != nil {
		return err
	}
	_, err = a.do(ctx, opensearchapi.IndicesCreateReq{Index: index, Body: body}, nil)
	return err
}

// DeleteIndex removes the index; a missing index is not an error.
func (a *Adapter) DeleteIndex(ctx context.Context, index string) error {
	_, err := a.do(ctx, opensearchapi.IndicesDeleteReq{Indices: []string{index}}, nil)
	if hasErrorType(err, "index_not_found_exception") {
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
	_, err = a.do(ctx, opensearchapi.MappingPutReq{Indices: []string{index}, Body: body}, nil)
	return err
}

// Search runs a search request body against the index.
func (a *Adapter) Search(ctx context.Context, index string, body map[string]any) (*searchengine.SearchResponse, error) {
	r, err := searchengine.EncodeBody(body)
	if err != nil {
		return nil, err
	}
	var resp searchengine.SearchResponse
	if _, err := a.do(ctx, &opensearchapi.SearchReq{Indices: []string{index}, Body: r}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Bulk applies the actions with refresh and fails with a BulkError when
// any item was rejected.
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
	req := opensearchapi.BulkReq{Index: index, Body: body, Params: opensearchapi.BulkParams{Refresh: "true"}}
	if _, err := a.do(ctx, req, &resp); err != nil {
		return res, err
	}
	if !resp.Errors {
		return res, nil
	}

	op := actions[0].Op
	failures := resp.Failures()
	res.Failed = len(failures)
	for _, item := range failures {
		a.logger.Debug("Bulk item failed",
			zap.String("index", index),
			zap.String("id", item.ID),
			zap.String("error_type", item.Error.Type),
			zap.String("reason", item.Error.Reason),
		)
	}
	metrics.BulkItemFailuresTotal.WithLabelValues(Name, string(op)).Add(float64(res.Failed))
	return res, &searchengine.BulkError{Op: op, Failed: res.Failed, Total: res.Total}
}

// Update applies a partial update or script to one document with refresh.
func (a *Adapter) Update(ctx context.Context, index, id string, body map[string]any) error {
	r, err := searchengine.EncodeBody(body)
	if err != nil {
		return err
	}
	retries := RetryOnConflict
	_, err = a.do(ctx, opensearchapi.UpdateReq{
		Index:      index,
		DocumentID: id,
		Body:       r,
		Params:     opensearchapi.UpdateParams{Refresh: "true", RetryOnConflict: &retries},
	}, nil)
	return err
}

// IndexSettings enables the k-NN plugin on the index.
func (a *Adapter) IndexSettings() map[string]any {
	return map[string]any{"index.knn": true}
}

// VectorMapping maps vectors as HNSW knn vectors on the lucene engine.
func (a *Adapter) VectorMapping(vs domain.VectorSettings) searchengine.Mapping {
	return searchengine.Mapping{
		"type":      "knn_vector",
		"dimension": vs.Dimensions,
		"method": searchengine.Mapping{
			"name":       "hnsw",
			"engine":     "lucene",
			"space_type": "l2",
		},
	}
}

// SimilarityBody builds a knn query inside a bool query. Filters apply to the
// knn results, the excluded ids are removed last.
func (a *Adapter) SimilarityBody(q searchengine.SimilarityQuery) map[string]any {
	b := map[string]any{
		"must": []any{map[string]any{"knn": map[string]any{
			q.Field: map[string]any{"vector": q.Vector, "k": q.K},
		}}},
	}
	if len(q.Filters) > 0 {
		b["filter"] = q.Filters
	}
	if len(q.ExcludeIDs) > 0 {
		b["must_not"] = []any{map[string]any{"ids": map[string]any{"values": q.ExcludeIDs}}}
	}
	return map[string]any{"query": map[string]any{"bool": b}, "size": q.K}
}
