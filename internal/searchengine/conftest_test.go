package searchengine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"maps"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/annosearch/internal/domain"
)

// fakeAdapter is an in-memory backend. It applies bulk, doc merges and the
// response scripts it hands out, and evaluates the aggregations the engine sends.
// Queries are not evaluated: searches return every document of the index.
type fakeAdapter struct {
	mu sync.Mutex

	calls      int
	maxBuckets int

	indexes  map[string]bool
	settings map[string]map[string]any
	mappings map[string]map[string]any
	docs     map[string]map[string]Document

	putMappings []map[string]any
	searches    []map[string]any
	similarity  []SimilarityQuery
	updates     []map[string]any

	scoredHits []Hit
	searchErr  error
	bulkErr    error
	closed     bool
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		maxBuckets: 1 << 30,
		indexes:    map[string]bool{},
		settings:   map[string]map[string]any{},
		mappings:   map[string]map[string]any{},
		docs:       map[string]map[string]Document{},
	}
}

func (f *fakeAdapter) Backend() string { return "fake" }

func (f *fakeAdapter) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil
}

func (f *fakeAdapter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeAdapter) IndexExists(_ context.Context, index string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.indexes[index], nil
}

func (f *fakeAdapter) CreateIndex(_ context.Context, index string, settings, mappings map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.indexes[index] = true
	f.settings[index] = settings
	f.mappings[index] = mappings
	f.docs[index] = map[string]Document{}
	return nil
}

func (f *fakeAdapter) DeleteIndex(_ context.Context, index string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	delete(f.indexes, index)
	delete(f.docs, index)
	return nil
}

func (f *fakeAdapter) PutMapping(_ context.Context, _ string, mapping map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.putMappings = append(f.putMappings, mapping)
	return nil
}

func (f *fakeAdapter) Search(_ context.Context, index string, body map[string]any) (*SearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.searches = append(f.searches, body)
	if f.searchErr != nil {
		return nil, f.searchErr
	}

	docs := f.sortedDocs(index)
	resp := &SearchResponse{}
	if aggs, ok := body["aggs"].(Query); ok {
		out, err := f.aggregate(docs, aggs)
		if err != nil {
			return nil, err
		}
		resp.Aggregations = out
		return resp, nil
	}

	if f.scoredHits != nil {
		resp.Hits.Hits = f.scoredHits
		resp.Hits.Total.Value = len(f.scoredHits)
		return resp, nil
	}

	if seed := randomSeed(body); seed != "" {
		slices.SortStableFunc(docs, func(a, b Document) int {
			ha, hb := seededHash(seed, a[PropID].(string)), seededHash(seed, b[PropID].(string))
			switch {
			case ha < hb:
				return -1
			case ha > hb:
				return 1
			}
			return 0
		})
	}

	from, _ := body["from"].(int)
	size, ok := body["size"].(int)
	if !ok {
		size = len(docs)
	}
	resp.Hits.Total.Value = len(docs)
	for i := from; i < len(docs) && i < from+size; i++ {
		resp.Hits.Hits = append(resp.Hits.Hits, Hit{ID: docs[i][PropID].(string)})
	}
	return resp, nil
}

func (f *fakeAdapter) Bulk(_ context.Context, index string, actions []BulkAction) (BulkResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.bulkErr != nil {
		return BulkResult{}, f.bulkErr
	}
	if f.docs[index] == nil {
		f.docs[index] = map[string]Document{}
	}
	for _, a := range actions {
		switch a.Op {
		case BulkIndex:
			f.docs[index][a.ID] = a.Doc
		case BulkDelete:
			delete(f.docs[index], a.ID)
		}
	}
	return BulkResult{Total: len(actions)}, nil
}

func (f *fakeAdapter) Update(_ context.Context, index, id string, body map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.updates = append(f.updates, body)
	doc, ok := f.docs[index][id]
	if !ok {
		return fmt.Errorf("document_missing_exception: [%s]", id)
	}
	if patch, ok := body["doc"].(map[string]any); ok {
		mergeInto(doc, patch)
	}
	if script, ok := body["script"].(map[string]any); ok {
		applyScript(doc, script["params"].(map[string]any))
	}
	return nil
}

func (f *fakeAdapter) IndexSettings() map[string]any {
	return map[string]any{"index.fake": true}
}

func (f *fakeAdapter) VectorMapping(vs domain.VectorSettings) Mapping {
	return Mapping{"type": "fake_vector", "dims": vs.Dimensions}
}

func (f *fakeAdapter) SimilarityBody(q SimilarityQuery) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.similarity = append(f.similarity, q)
	return map[string]any{"fake_knn": q.Field, "size": q.K}
}

func (f *fakeAdapter) ResponseUpdateScript(response Document) map[string]any {
	return map[string]any{"source": "upsert", "params": map[string]any{"response": response}}
}

func (f *fakeAdapter) ResponseDeleteScript(responseID string) map[string]any {
	return map[string]any{"source": "remove", "params": map[string]any{"response_id": responseID}}
}

func (f *fakeAdapter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeAdapter) doc(index, id string) Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docs[index][id]
}

func (f *fakeAdapter) sortedDocs(index string) []Document {
	ids := slices.Sorted(maps.Keys(f.docs[index]))
	docs := make([]Document, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, f.docs[index][id])
	}
	return docs
}

func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		sub, ok := v.(map[string]any)
		cur, curOK := dst[k].(map[string]any)
		if ok && curOK {
			mergeInto(cur, sub)
			continue
		}
		dst[k] = v
	}
}

// applyScript executes the effect of the scripts the engine and fake hand out.
func applyScript(doc Document, params map[string]any) {
	if q, ok := params["question"].(string); ok {
		s, _ := doc[PropSuggestions].(map[string]any)
		if suggestion, ok := params["suggestion"].(Document); ok {
			if s == nil {
				s = map[string]any{}
				doc[PropSuggestions] = s
			}
			s[q] = suggestion
			return
		}
		delete(s, q)
		return
	}
	responses, _ := doc[PropResponses].([]any)
	var id string
	resp, upsert := params["response"].(Document)
	if upsert {
		id = resp["id"].(string)
	} else {
		id = params["response_id"].(string)
	}
	responses = slices.DeleteFunc(responses, func(r any) bool {
		return r.(Document)["id"] == id
	})
	if upsert {
		responses = append(responses, resp)
	}
	doc[PropResponses] = responses
}

func randomSeed(body map[string]any) string {
	q, _ := body["query"].(Query)
	fs, ok := q["function_score"].(Query)
	if !ok {
		return ""
	}
	fns, _ := fs["functions"].([]any)
	if len(fns) == 0 {
		return ""
	}
	rs, _ := fns[0].(Query)["random_score"].(Query)
	seed, _ := rs["seed"].(string)
	return seed
}

func seededHash(seed, id string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed + "/" + id))
	return h.Sum64()
}

func docValue(doc Document, path string) any {
	var cur any = doc
	for part := range strings.SplitSeq(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

func (f *fakeAdapter) aggregate(docs []Document, aggs Query) (map[string]json.RawMessage, error) {
	out := map[string]json.RawMessage{}
	for name, raw := range aggs {
		agg := raw.(Query)
		var res any
		switch {
		case agg["value_count"] != nil:
			field := agg["value_count"].(Query)["field"].(string)
			n := 0
			for _, d := range docs {
				if docValue(d, field) != nil {
					n++
				}
			}
			res = map[string]any{"value": n}
		case agg["terms"] != nil:
			spec := agg["terms"].(Query)
			size := spec["size"].(int)
			if size > f.maxBuckets {
				return nil, errors.New("too_many_buckets_exception")
			}
			counts := termCounts(docs, spec["field"].(string))
			keys := slices.Sorted(maps.Keys(counts))
			slices.SortStableFunc(keys, func(a, b string) int { return counts[b] - counts[a] })
			var buckets []map[string]any
			for _, k := range keys[:min(size, len(keys))] {
				buckets = append(buckets, map[string]any{"key": k, "doc_count": counts[k]})
			}
			res = map[string]any{"buckets": buckets}
		case agg["composite"] != nil:
			spec := agg["composite"].(Query)
			size := spec["size"].(int)
			if size > f.maxBuckets {
				return nil, errors.New("too_many_buckets_exception")
			}
			source := spec["sources"].([]any)[0].(Query)
			var srcName, field string
			for k, v := range source {
				srcName = k
				field = v.(Query)["terms"].(Query)["field"].(string)
			}
			counts := termCounts(docs, field)
			keys := slices.Sorted(maps.Keys(counts))
			if after, ok := spec["after"].(map[string]any); ok {
				last := after[srcName].(string)
				i, _ := slices.BinarySearch(keys, last)
				if i < len(keys) && keys[i] == last {
					i++
				}
				keys = keys[i:]
			}
			page := keys[:min(size, len(keys))]
			var buckets []map[string]any
			for _, k := range page {
				buckets = append(buckets, map[string]any{"key": map[string]any{srcName: k}, "doc_count": counts[k]})
			}
			r := map[string]any{"buckets": buckets}
			if len(page) > 0 {
				r["after_key"] = map[string]any{srcName: page[len(page)-1]}
			}
			res = r
		case agg["stats"] != nil:
			field := agg["stats"].(Query)["field"].(string)
			var lo, hi *float64
			n := 0
			for _, d := range docs {
				v, ok := toFloat(docValue(d, field))
				if !ok {
					continue
				}
				n++
				if lo == nil || v < *lo {
					lo = &v
				}
				if hi == nil || v > *hi {
					vv := v
					hi = &vv
				}
			}
			res = map[string]any{"count": n, "min": lo, "max": hi}
		default:
			return nil, fmt.Errorf("unsupported aggregation %v", agg)
		}
		b, err := json.Marshal(res)
		if err != nil {
			return nil, err
		}
		out[name] = b
	}
	return out, nil
}

func termCounts(docs []Document, field string) map[string]int {
	counts := map[string]int{}
	for _, d := range docs {
		if v := docValue(d, field); v != nil {
			counts[fmt.Sprint(v)]++
		}
	}
	return counts
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}

// --- fixtures ---

func newTestEngine(t *testing.T) (*Engine, *fakeAdapter) {
	t.Helper()
	fa := newFakeAdapter()
	return New(fa, Config{Hosts: []string{"http://fake:9200"}}, zap.NewNop()), fa
}

func testDataset() *domain.Dataset {
	id := uuid.New()
	return &domain.Dataset{
		ID:   id,
		Name: "prompts",
		Fields: []domain.Field{
			{Name: "prompt", Type: domain.FieldText},
			{Name: "conversation", Type: domain.FieldChat},
			{Name: "picture", Type: domain.FieldImage},
		},
		Questions: []domain.Question{
			{DatasetID: id, Name: "quality", Type: domain.QuestionRating},
			{DatasetID: id, Name: "label", Type: domain.QuestionLabelSelection},
		},
		MetadataProperties: []domain.MetadataProperty{
			{DatasetID: id, Name: "topic", Type: domain.MetadataTerms},
			{DatasetID: id, Name: "length", Type: domain.MetadataInteger},
		},
		VectorSettings: []domain.VectorSettings{
			{ID: uuid.New(), DatasetID: id, Name: "emb", Dimensions: 3},
		},
	}
}

func testRecord(ds *domain.Dataset, metadata map[string]any) domain.Record {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return domain.Record{
		ID:         uuid.New(),
		DatasetID:  ds.ID,
		Fields:     map[string]any{"prompt": "hello world"},
		Status:     domain.RecordPending,
		Metadata:   metadata,
		InsertedAt: now,
		UpdatedAt:  now,
	}
}
