package searchengine

import (
	"context"
	"fmt"
	"maps"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/annosearch/internal/domain"
	"github.com/kailas-cloud/annosearch/internal/domain/search/request"
	"github.com/kailas-cloud/annosearch/internal/domain/search/result"
)

// Engine implements SearchEngine over a backend Adapter.
// It holds no mutable state after construction.
type Engine struct {
	adapter Adapter
	cfg     Config
	logger  *zap.Logger
}

var _ SearchEngine = (*Engine)(nil)

// New creates an engine for the given adapter.
func New(adapter Adapter, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		adapter: adapter,
		cfg:     cfg.WithDefaults(),
		logger:  logger.With(zap.String("backend", adapter.Backend())),
	}
}

// Backend returns the adapter's backend name.
func (e *Engine) Backend() string { return e.adapter.Backend() }

// Ping checks backend connectivity.
func (e *Engine) Ping(ctx context.Context) error {
	return wrap(OpPing, "", e.adapter.Ping(ctx))
}

// Close releases the backend client.
func (e *Engine) Close() error {
	return wrap(OpClose, "", e.adapter.Close())
}

// CreateIndex creates the dataset index unless it exists.
// The mapping is built before any request, so unsupported types abort early.
func (e *Engine) CreateIndex(ctx context.Context, ds *domain.Dataset) error {
	mappings, err := IndexMapping(ds, e.adapter.VectorMapping)
	if err != nil {
		return fmt.Errorf("build mapping for dataset %s: %w", ds.ID, err)
	}
	settings := IndexSettings(e.cfg)
	maps.Copy(settings, e.adapter.IndexSettings())

	index := IndexName(ds.ID)
	exists, err := e.adapter.IndexExists(ctx, index)
	if err != nil {
		return wrap(OpCreateIndex, index, err)
	}
	if exists {
		e.logger.Debug("Index already exists", zap.String("index", index))
		return nil
	}
	if err := e.adapter.CreateIndex(ctx, index, settings, mappings); err != nil {
		return wrap(OpCreateIndex, index, err)
	}
	e.logger.Info("Index created",
		zap.String("index", index),
		zap.Int("fields", len(ds.Fields)),
		zap.Int("metadata_properties", len(ds.MetadataProperties)),
		zap.Int("vector_settings", len(ds.VectorSettings)),
	)
	return nil
}

// DeleteIndex deletes the dataset index; a missing index is not an error.
func (e *Engine) DeleteIndex(ctx context.Context, ds *domain.Dataset) error {
	index := IndexName(ds.ID)
	return wrap(OpDeleteIndex, index, e.adapter.DeleteIndex(ctx, index))
}

// ConfigureMetadataProperty adds the mapping of one metadata property.
func (e *Engine) ConfigureMetadataProperty(
	ctx context.Context, ds *domain.Dataset, p domain.MetadataProperty,
) error {
	m, err := MappingForMetadataProperty(p)
	if err != nil {
		return err
	}
	index := IndexName(ds.ID)
	mapping := Mapping{"properties": Mapping{
		PropMetadata: Mapping{"properties": Mapping{p.Name: m}},
	}}
	return wrap(OpConfigureMetadataProperty, index, e.adapter.PutMapping(ctx, index, mapping))
}

// ConfigureIndexVectors adds the vector field of one vector settings.
func (e *Engine) ConfigureIndexVectors(ctx context.Context, vs domain.VectorSettings) error {
	if vs.Dimensions <= 0 {
		return domain.InvalidInput("vector settings %q need positive dimensions", vs.Name)
	}
	index := IndexName(vs.DatasetID)
	mapping := Mapping{"properties": Mapping{
		PropVectors: Mapping{"properties": Mapping{vs.ID.String(): e.adapter.VectorMapping(vs)}},
	}}
	return wrap(OpConfigureIndexVectors, index, e.adapter.PutMapping(ctx, index, mapping))
}

// IndexRecords replaces the documents of the given records in one bulk call.
func (e *Engine) IndexRecords(
	ctx context.Context, ds *domain.Dataset, records []domain.Record,
) (BulkResult, error) {
	if len(records) == 0 {
		return BulkResult{}, nil
	}
	actions := make([]BulkAction, 0, len(records))
	for i := range records {
		doc, err := RecordDocument(ds, &records[i])
		if err != nil {
			return BulkResult{}, err
		}
		actions = append(actions, BulkAction{Op: BulkIndex, ID: records[i].ID.String(), Doc: doc})
	}
	index := IndexName(ds.ID)
	res, err := e.adapter.Bulk(ctx, index, actions)
	return res, wrap(OpIndexRecords, index, err)
}

// PartialRecordUpdate merges the given top-level fields into the record document.
func (e *Engine) PartialRecordUpdate(ctx context.Context, r *domain.Record, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	index := IndexName(r.DatasetID)
	return wrap(OpPartialRecordUpdate, index,
		e.adapter.Update(ctx, index, r.ID.String(), map[string]any{"doc": fields}))
}

// DeleteRecords deletes record documents; missing documents are not errors.
func (e *Engine) DeleteRecords(
	ctx context.Context, ds *domain.Dataset, records []domain.Record,
) (BulkResult, error) {
	if len(records) == 0 {
		return BulkResult{}, nil
	}
	actions := make([]BulkAction, 0, len(records))
	for _, r := range records {
		actions = append(actions, BulkAction{Op: BulkDelete, ID: r.ID.String()})
	}
	index := IndexName(ds.ID)
	res, err := e.adapter.Bulk(ctx, index, actions)
	return res, wrap(OpDeleteRecords, index, err)
}

// UpdateRecordResponse replaces the record's entry for this response id.
func (e *Engine) UpdateRecordResponse(ctx context.Context, r *domain.Response) error {
	index := IndexName(r.DatasetID)
	script := e.adapter.ResponseUpdateScript(ResponseDocument(r))
	return wrap(OpUpdateRecordResponse, index,
		e.adapter.Update(ctx, index, r.RecordID.String(), map[string]any{"script": script}))
}

// DeleteRecordResponse removes the record's entry for this response id.
func (e *Engine) DeleteRecordResponse(ctx context.Context, r *domain.Response) error {
	index := IndexName(r.DatasetID)
	script := e.adapter.ResponseDeleteScript(r.ID.String())
	return wrap(OpDeleteRecordResponse, index,
		e.adapter.Update(ctx, index, r.RecordID.String(), map[string]any{"script": script}))
}

// UpdateRecordSuggestion replaces the suggestion of one question as a whole.
func (e *Engine) UpdateRecordSuggestion(ctx context.Context, s *domain.Suggestion) error {
	index := IndexName(s.DatasetID)
	body := map[string]any{"script": SuggestionUpdateScript(s.Question, SuggestionDocument(s))}
	return wrap(OpUpdateRecordSuggestion, index, e.adapter.Update(ctx, index, s.RecordID.String(), body))
}

// DeleteRecordSuggestion removes the suggestion of one question.
func (e *Engine) DeleteRecordSuggestion(ctx context.Context, s *domain.Suggestion) error {
	index := IndexName(s.DatasetID)
	body := map[string]any{"script": SuggestionDeleteScript(s.Question)}
	return wrap(OpDeleteRecordSuggestion, index, e.adapter.Update(ctx, index, s.RecordID.String(), body))
}

// SuggestionUpdateScript sets one question key of the suggestions map. A doc
// merge would keep sub-keys of a previous object value.
func SuggestionUpdateScript(question string, suggestion Document) map[string]any {
	return map[string]any{
		"lang": "painless",
		"source": "if (ctx._source.suggestions == null) { ctx._source.suggestions = new HashMap(); } " +
			"ctx._source.suggestions.put(params.question, params.suggestion);",
		"params": map[string]any{"question": question, "suggestion": suggestion},
	}
}

// SuggestionDeleteScript removes one question key from the suggestions map.
func SuggestionDeleteScript(question string) map[string]any {
	return map[string]any{
		"lang":   "painless",
		"source": "if (ctx._source.suggestions != null) { ctx._source.suggestions.remove(params.question); }",
		"params": map[string]any{"question": question},
	}
}

// Search runs a filtered text search. With a user id the ranking is
// randomized with that id as seed, so each user keeps a stable order.
func (e *Engine) Search(
	ctx context.Context, ds *domain.Dataset, req request.Search,
) (result.SearchResponses, error) {
	query, err := combine(ds, req.Query(), req.Filter())
	if err != nil {
		return result.SearchResponses{}, err
	}
	if uid := req.UserID(); uid != nil {
		query = UserRandomScore(query, *uid)
	}
	sort, err := TranslateSort(req.Sort())
	if err != nil {
		return result.SearchResponses{}, err
	}

	body := map[string]any{
		"query":            query,
		"sort":             sort,
		"from":             req.Offset(),
		"size":             req.Limit(),
		"_source":          false,
		"track_total_hits": true,
	}
	index := IndexName(ds.ID)
	resp, err := e.adapter.Search(ctx, index, body)
	if err != nil {
		return result.SearchResponses{}, wrap(OpSearch, index, err)
	}
	items, err := hitsToItems(resp.Hits.Hits, nil)
	if err != nil {
		return result.SearchResponses{}, wrap(OpSearch, index, err)
	}
	return result.SearchResponses{Items: items, Total: resp.Hits.Total.Value}, nil
}

// UserRandomScore wraps a query so scores are random but fixed per user.
func UserRandomScore(query Query, userID uuid.UUID) Query {
	return Query{"function_score": Query{
		"query": query,
		"functions": []any{
			Query{"random_score": Query{"seed": userID.String(), "field": "_seq_no"}},
		},
	}}
}

// SimilaritySearch returns the records nearest to the query vector.
// Least-similar searches use the inverted vector, which approximates the
// far end of the ranking rather than computing it exactly.
func (e *Engine) SimilaritySearch(
	ctx context.Context, ds *domain.Dataset, req request.Similarity,
) (result.SearchResponses, error) {
	settings := req.Settings()
	if _, ok := ds.VectorSettingsByID(settings.ID); !ok {
		return result.SearchResponses{}, domain.InvalidInput(
			"vector settings %q do not belong to dataset %s", settings.Name, ds.ID)
	}
	vector, err := req.QueryVector()
	if err != nil {
		return result.SearchResponses{}, err
	}

	var filters []any
	if f := req.Filter(); f != nil {
		fq, err := TranslateFilter(f)
		if err != nil {
			return result.SearchResponses{}, fmt.Errorf("translate filter: %w", err)
		}
		filters = append(filters, fq)
	}
	if q := req.Query(); q != nil && q.Text != "" {
		tq, err := TranslateTextQuery(ds, q)
		if err != nil {
			return result.SearchResponses{}, err
		}
		filters = append(filters, tq)
	}
	var exclude []string
	if rec := req.Record(); rec != nil {
		exclude = []string{rec.ID.String()}
	}

	body := e.adapter.SimilarityBody(SimilarityQuery{
		Field:      FieldPathForVector(settings.ID),
		Vector:     vector,
		K:          req.MaxResults(),
		Filters:    filters,
		ExcludeIDs: exclude,
	})
	body["_source"] = false

	index := IndexName(ds.ID)
	resp, err := e.adapter.Search(ctx, index, body)
	if err != nil {
		return result.SearchResponses{}, wrap(OpSimilaritySearch, index, err)
	}
	items, err := hitsToItems(resp.Hits.Hits, req.Threshold())
	if err != nil {
		return result.SearchResponses{}, wrap(OpSimilaritySearch, index, err)
	}
	return result.SearchResponses{Items: items, Total: len(items)}, nil
}

func hitsToItems(hits []Hit, threshold *float64) ([]result.Item, error) {
	items := make([]result.Item, 0, len(hits))
	for _, h := range hits {
		if threshold != nil && (h.Score == nil || *h.Score < *threshold) {
			continue
		}
		id, err := uuid.Parse(h.ID)
		if err != nil {
			return nil, fmt.Errorf("parse hit id %q: %w", h.ID, err)
		}
		items = append(items, result.Item{RecordID: id, Score: h.Score})
	}
	return items, nil
}
