package searchengine

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/kailas-cloud/annosearch/internal/domain"
	"github.com/kailas-cloud/annosearch/internal/domain/search/result"
)

// Aggregation names used in metrics requests.
const (
	aggTotal = "total"
	aggTerms = "terms"
	aggStats = "stats"
)

type valueCountAgg struct {
	Value float64 `json:"value"`
}

type termsBucket struct {
	Key      any `json:"key"`
	DocCount int `json:"doc_count"`
}

type termsAgg struct {
	Buckets []termsBucket `json:"buckets"`
}

type compositeBucket struct {
	Key      map[string]any `json:"key"`
	DocCount int            `json:"doc_count"`
}

type compositeAgg struct {
	AfterKey map[string]any    `json:"after_key"`
	Buckets  []compositeBucket `json:"buckets"`
}

type statsAgg struct {
	Count int      `json:"count"`
	Min   *float64 `json:"min"`
	Max   *float64 `json:"max"`
}

// ComputeMetricsFor summarizes the indexed values of a metadata property.
func (e *Engine) ComputeMetricsFor(
	ctx context.Context, p domain.MetadataProperty,
) (result.MetadataMetrics, error) {
	index := IndexName(p.DatasetID)
	path := FieldPathForMetadata(p.Name)

	var (
		m   result.MetadataMetrics
		err error
	)
	switch p.Type {
	case domain.MetadataTerms:
		m, err = e.termsMetrics(ctx, index, path)
	case domain.MetadataInteger:
		m, err = e.integerMetrics(ctx, index, path)
	case domain.MetadataFloat:
		m, err = e.floatMetrics(ctx, index, path)
	default:
		return nil, &domain.MappingUnsupportedError{Kind: "metadata property", Type: string(p.Type)}
	}
	if err != nil {
		return nil, wrap(OpComputeMetrics, index, err)
	}
	return m, nil
}

// termsMetrics counts values first, then fetches exactly that many buckets.
// Counts above the bucket cap are paged through a composite aggregation.
func (e *Engine) termsMetrics(ctx context.Context, index, path string) (result.MetadataMetrics, error) {
	var total valueCountAgg
	if err := e.aggregate(ctx, index, aggTotal, Query{"value_count": Query{"field": path}}, &total); err != nil {
		return nil, err
	}
	count := int(total.Value)
	if count == 0 {
		return result.TermsMetrics{Total: 0, Values: []result.TermCount{}}, nil
	}

	if count <= e.cfg.MaxTermsBuckets {
		var terms termsAgg
		agg := Query{"terms": Query{"field": path, "size": count}}
		if err := e.aggregate(ctx, index, aggTerms, agg, &terms); err != nil {
			return nil, err
		}
		values := make([]result.TermCount, 0, len(terms.Buckets))
		for _, b := range terms.Buckets {
			values = append(values, result.TermCount{Term: fmt.Sprint(b.Key), Count: b.DocCount})
		}
		return result.TermsMetrics{Total: count, Values: values}, nil
	}

	e.logger.Debug("Paging terms beyond bucket cap",
		zap.String("index", index),
		zap.String("field", path),
		zap.Int("values", count),
		zap.Int("bucket_cap", e.cfg.MaxTermsBuckets),
	)
	values, err := e.compositeTerms(ctx, index, path)
	if err != nil {
		return nil, err
	}
	return result.TermsMetrics{Total: count, Values: values}, nil
}

func (e *Engine) compositeTerms(ctx context.Context, index, path string) ([]result.TermCount, error) {
	var values []result.TermCount
	var after map[string]any
	for {
		composite := Query{
			"size":    e.cfg.MaxTermsBuckets,
			"sources": []any{Query{aggTerms: Query{"terms": Query{"field": path}}}},
		}
		if after != nil {
			composite["after"] = after
		}
		var page compositeAgg
		if err := e.aggregate(ctx, index, aggTerms, Query{"composite": composite}, &page); err != nil {
			return nil, err
		}
		for _, b := range page.Buckets {
			values = append(values, result.TermCount{Term: fmt.Sprint(b.Key[aggTerms]), Count: b.DocCount})
		}
		if len(page.Buckets) < e.cfg.MaxTermsBuckets || page.AfterKey == nil {
			return values, nil
		}
		after = page.AfterKey
	}
}

func (e *Engine) integerMetrics(ctx context.Context, index, path string) (result.MetadataMetrics, error) {
	var stats statsAgg
	if err := e.aggregate(ctx, index, aggStats, Query{"stats": Query{"field": path}}, &stats); err != nil {
		return nil, err
	}
	m := result.IntegerMetrics{}
	if stats.Count > 0 && stats.Min != nil && stats.Max != nil {
		lo, hi := int64(math.Round(*stats.Min)), int64(math.Round(*stats.Max))
		m.Min, m.Max = &lo, &hi
	}
	return m, nil
}

func (e *Engine) floatMetrics(ctx context.Context, index, path string) (result.MetadataMetrics, error) {
	var stats statsAgg
	if err := e.aggregate(ctx, index, aggStats, Query{"stats": Query{"field": path}}, &stats); err != nil {
		return nil, err
	}
	m := result.FloatMetrics{}
	if stats.Count > 0 {
		m.Min, m.Max = stats.Min, stats.Max
	}
	return m, nil
}

// aggregate runs a single named aggregation over the whole index and decodes it into dst.
func (e *Engine) aggregate(ctx context.Context, index, name string, agg Query, dst any) error {
	body := map[string]any{
		"size":  0,
		"query": MatchAll(),
		"aggs":  Query{name: agg},
	}
	resp, err := e.adapter.Search(ctx, index, body)
	if err != nil {
		return err
	}
	raw, ok := resp.Aggregations[name]
	if !ok {
		return fmt.Errorf("aggregation %q missing from response", name)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode aggregation %q: %w", name, err)
	}
	return nil
}
