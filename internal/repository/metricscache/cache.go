// Package metricscache caches metadata metrics in a key-value store.
package metricscache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/annosearch/internal/db"
	"github.com/kailas-cloud/annosearch/internal/domain"
	"github.com/kailas-cloud/annosearch/internal/domain/search/result"
	"github.com/kailas-cloud/annosearch/internal/searchengine"
)

const keyPrefix = "annosearch:metrics:"

// DefaultTTL bounds how long a cached value may outlive a write made
// through another process.
const DefaultTTL = time.Minute

// store is the consumer interface for the metrics cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
}

// Engine decorates a SearchEngine with a metrics cache. Every write through
// it bumps the dataset generation, which is part of the cache key.
type Engine struct {
	searchengine.SearchEngine

	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

var _ searchengine.SearchEngine = (*Engine)(nil)

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"/"error"), passed explicitly.
func New(
	inner searchengine.SearchEngine,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *Engine {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		SearchEngine: inner,
		store:        s,
		ttl:          ttl,
		cacheTotal:   cacheTotal,
		logger:       logger,
	}
}

func generationKey(datasetID uuid.UUID) string {
	return keyPrefix + "gen:" + datasetID.String()
}

func valueKey(p domain.MetadataProperty, gen int64) string {
	return fmt.Sprintf("%s%s:%d:%s:%s", keyPrefix, p.DatasetID, gen, p.Type, p.Name)
}

func (e *Engine) incCache(res string) {
	if e.cacheTotal != nil {
		e.cacheTotal.WithLabelValues(res).Inc()
	}
}

// ComputeMetricsFor returns cached metrics for the current dataset generation
// or computes and caches them. Cache failures fall through to the engine.
func (e *Engine) ComputeMetricsFor(ctx context.Context, p domain.MetadataProperty) (result.MetadataMetrics, error) {
	gen, err := e.generation(ctx, p.DatasetID)
	if err != nil {
		e.incCache("error")
		e.logger.Warn("Failed to read metrics generation", zap.Stringer("dataset_id", p.DatasetID), zap.Error(err))
		return e.SearchEngine.ComputeMetricsFor(ctx, p)
	}
	key := valueKey(p, gen)

	if m, ok := e.getFromCache(ctx, key); ok {
		e.incCache("hit")
		return m, nil
	}
	e.incCache("miss")

	m, err := e.SearchEngine.ComputeMetricsFor(ctx, p)
	if err != nil {
		return nil, err
	}
	e.putToCache(ctx, key, m)
	return m, nil
}

func (e *Engine) generation(ctx context.Context, datasetID uuid.UUID) (int64, error) {
	data, err := e.store.Get(ctx, generationKey(datasetID))
	if errors.Is(err, db.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	gen, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse generation %q: %w", data, err)
	}
	return gen, nil
}

func (e *Engine) getFromCache(ctx context.Context, key string) (result.MetadataMetrics, bool) {
	data, err := e.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			e.logger.Warn("Failed to get cached metrics", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	m, err := result.UnmarshalMetrics(data)
	if err != nil {
		e.logger.Warn("Failed to parse cached metrics", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return m, true
}

func (e *Engine) putToCache(ctx context.Context, key string, m result.MetadataMetrics) {
	data, err := result.MarshalMetrics(m)
	if err != nil {
		e.logger.Warn("Failed to encode metrics", zap.String("key", key), zap.Error(err))
		return
	}
	if err := e.store.SetWithTTL(ctx, key, data, e.ttl); err != nil {
		e.logger.Warn("Failed to cache metrics", zap.String("key", key), zap.Error(err))
	}
}

// invalidate bumps the dataset generation. It runs after the write whatever
// the write returned, since a failed bulk may still have applied items.
// Cancellation of the write context must not skip the bump.
func (e *Engine) invalidate(ctx context.Context, datasetID uuid.UUID) {
	ctx = context.WithoutCancel(ctx)
	if _, err := e.store.Incr(ctx, generationKey(datasetID)); err != nil {
		e.incCache("error")
		e.logger.Warn("Failed to bump metrics generation", zap.Stringer("dataset_id", datasetID), zap.Error(err))
	}
}

func (e *Engine) CreateIndex(ctx context.Context, ds *domain.Dataset) error {
	defer e.invalidate(ctx, ds.ID)
	return e.SearchEngine.CreateIndex(ctx, ds)
}

func (e *Engine) DeleteIndex(ctx context.Context, ds *domain.Dataset) error {
	defer e.invalidate(ctx, ds.ID)
	return e.SearchEngine.DeleteIndex(ctx, ds)
}

func (e *Engine) ConfigureMetadataProperty(ctx context.Context, ds *domain.Dataset, p domain.MetadataProperty) error {
	defer e.invalidate(ctx, ds.ID)
	return e.SearchEngine.ConfigureMetadataProperty(ctx, ds, p)
}

func (e *Engine) IndexRecords(
	ctx context.Context, ds *domain.Dataset, records []domain.Record,
) (searchengine.BulkResult, error) {
	defer e.invalidate(ctx, ds.ID)
	return e.SearchEngine.IndexRecords(ctx, ds, records)
}

func (e *Engine) PartialRecordUpdate(ctx context.Context, r *domain.Record, fields map[string]any) error {
	defer e.invalidate(ctx, r.DatasetID)
	return e.SearchEngine.PartialRecordUpdate(ctx, r, fields)
}

func (e *Engine) DeleteRecords(
	ctx context.Context, ds *domain.Dataset, records []domain.Record,
) (searchengine.BulkResult, error) {
	defer e.invalidate(ctx, ds.ID)
	return e.SearchEngine.DeleteRecords(ctx, ds, records)
}

func (e *Engine) UpdateRecordResponse(ctx context.Context, r *domain.Response) error {
	defer e.invalidate(ctx, r.DatasetID)
	return e.SearchEngine.UpdateRecordResponse(ctx, r)
}

func (e *Engine) DeleteRecordResponse(ctx context.Context, r *domain.Response) error {
	defer e.invalidate(ctx, r.DatasetID)
	return e.SearchEngine.DeleteRecordResponse(ctx, r)
}

func (e *Engine) UpdateRecordSuggestion(ctx context.Context, s *domain.Suggestion) error {
	defer e.invalidate(ctx, s.DatasetID)
	return e.SearchEngine.UpdateRecordSuggestion(ctx, s)
}

func (e *Engine) DeleteRecordSuggestion(ctx context.Context, s *domain.Suggestion) error {
	defer e.invalidate(ctx, s.DatasetID)
	return e.SearchEngine.DeleteRecordSuggestion(ctx, s)
}

