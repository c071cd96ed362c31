package searchengine

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kailas-cloud/annosearch/internal/domain"
	"github.com/kailas-cloud/annosearch/internal/domain/search/request"
	"github.com/kailas-cloud/annosearch/internal/domain/search/result"
	"github.com/kailas-cloud/annosearch/internal/metrics"
)

const tracerName = "github.com/kailas-cloud/annosearch/internal/searchengine"

// Instrumented wraps a SearchEngine with logging, Prometheus metrics and tracing.
type Instrumented struct {
	inner   SearchEngine
	backend string
	logger  *zap.Logger
	tracer  trace.Tracer
}

var _ SearchEngine = (*Instrumented)(nil)

// NewInstrumented wraps an engine. Spans come from the global tracer provider.
func NewInstrumented(inner SearchEngine, backend string, logger *zap.Logger) *Instrumented {
	return &Instrumented{
		inner:   inner,
		backend: backend,
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
	}
}

func (i *Instrumented) start(ctx context.Context, op Op, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	attrs = append(attrs, attribute.String("db.system", i.backend))
	ctx, span := i.tracer.Start(ctx, "searchengine."+string(op), trace.WithAttributes(attrs...))
	return ctx, span, time.Now()
}

func (i *Instrumented) finish(span trace.Span, op Op, start time.Time, err error, fields ...zap.Field) {
	defer span.End()
	duration := time.Since(start)
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	metrics.EngineRequestsTotal.WithLabelValues(i.backend, string(op), status).Inc()
	metrics.EngineRequestDuration.WithLabelValues(i.backend, string(op)).Observe(duration.Seconds())

	fields = append(fields,
		zap.String("backend", i.backend),
		zap.String("op", string(op)),
		zap.Duration("duration", duration),
	)
	if err != nil {
		i.logger.Error("Search engine operation failed", append(fields, zap.Error(err))...)
		return
	}
	i.logger.Debug("Search engine operation completed", fields...)
}

func datasetAttr(id string) attribute.KeyValue { return attribute.String("annosearch.dataset_id", id) }

// Ping checks backend connectivity.
func (i *Instrumented) Ping(ctx context.Context) error {
	ctx, span, start := i.start(ctx, OpPing)
	err := i.inner.Ping(ctx)
	i.finish(span, OpPing, start, err)
	return err
}

// Close releases the engine.
func (i *Instrumented) Close() error {
	_, span, start := i.start(context.Background(), OpClose)
	err := i.inner.Close()
	i.finish(span, OpClose, start, err)
	return err
}

// CreateIndex creates the dataset index.
func (i *Instrumented) CreateIndex(ctx context.Context, ds *domain.Dataset) error {
	ctx, span, start := i.start(ctx, OpCreateIndex, datasetAttr(ds.ID.String()))
	err := i.inner.CreateIndex(ctx, ds)
	i.finish(span, OpCreateIndex, start, err, zap.Stringer("dataset_id", ds.ID))
	return err
}

// DeleteIndex deletes the dataset index.
func (i *Instrumented) DeleteIndex(ctx context.Context, ds *domain.Dataset) error {
	ctx, span, start := i.start(ctx, OpDeleteIndex, datasetAttr(ds.ID.String()))
	err := i.inner.DeleteIndex(ctx, ds)
	i.finish(span, OpDeleteIndex, start, err, zap.Stringer("dataset_id", ds.ID))
	return err
}

// ConfigureMetadataProperty adds a metadata property mapping.
func (i *Instrumented) ConfigureMetadataProperty(
	ctx context.Context, ds *domain.Dataset, p domain.MetadataProperty,
) error {
	ctx, span, start := i.start(ctx, OpConfigureMetadataProperty, datasetAttr(ds.ID.String()))
	err := i.inner.ConfigureMetadataProperty(ctx, ds, p)
	i.finish(span, OpConfigureMetadataProperty, start, err,
		zap.Stringer("dataset_id", ds.ID), zap.String("property", p.Name))
	return err
}

// ConfigureIndexVectors adds a vector field mapping.
func (i *Instrumented) ConfigureIndexVectors(ctx context.Context, vs domain.VectorSettings) error {
	ctx, span, start := i.start(ctx, OpConfigureIndexVectors, datasetAttr(vs.DatasetID.String()))
	err := i.inner.ConfigureIndexVectors(ctx, vs)
	i.finish(span, OpConfigureIndexVectors, start, err,
		zap.Stringer("dataset_id", vs.DatasetID), zap.Int("dimensions", vs.Dimensions))
	return err
}

// IndexRecords bulk indexes records.
func (i *Instrumented) IndexRecords(
	ctx context.Context, ds *domain.Dataset, records []domain.Record,
) (BulkResult, error) {
	ctx, span, start := i.start(ctx, OpIndexRecords,
		datasetAttr(ds.ID.String()), attribute.Int("annosearch.records", len(records)))
	res, err := i.inner.IndexRecords(ctx, ds, records)
	i.finish(span, OpIndexRecords, start, err,
		zap.Stringer("dataset_id", ds.ID), zap.Int("total", res.Total), zap.Int("failed", res.Failed))
	return res, err
}

// PartialRecordUpdate merges fields into a record document.
func (i *Instrumented) PartialRecordUpdate(ctx context.Context, r *domain.Record, fields map[string]any) error {
	ctx, span, start := i.start(ctx, OpPartialRecordUpdate, datasetAttr(r.DatasetID.String()))
	err := i.inner.PartialRecordUpdate(ctx, r, fields)
	i.finish(span, OpPartialRecordUpdate, start, err, zap.Stringer("record_id", r.ID))
	return err
}

// DeleteRecords bulk deletes records.
func (i *Instrumented) DeleteRecords(
	ctx context.Context, ds *domain.Dataset, records []domain.Record,
) (BulkResult, error) {
	ctx, span, start := i.start(ctx, OpDeleteRecords,
		datasetAttr(ds.ID.String()), attribute.Int("annosearch.records", len(records)))
	res, err := i.inner.DeleteRecords(ctx, ds, records)
	i.finish(span, OpDeleteRecords, start, err,
		zap.Stringer("dataset_id", ds.ID), zap.Int("total", res.Total), zap.Int("failed", res.Failed))
	return res, err
}

// UpdateRecordResponse upserts a response entry.
func (i *Instrumented) UpdateRecordResponse(ctx context.Context, r *domain.Response) error {
	ctx, span, start := i.start(ctx, OpUpdateRecordResponse, datasetAttr(r.DatasetID.String()))
	err := i.inner.UpdateRecordResponse(ctx, r)
	i.finish(span, OpUpdateRecordResponse, start, err,
		zap.Stringer("record_id", r.RecordID), zap.Stringer("response_id", r.ID))
	return err
}

// DeleteRecordResponse removes a response entry.
func (i *Instrumented) DeleteRecordResponse(ctx context.Context, r *domain.Response) error {
	ctx, span, start := i.start(ctx, OpDeleteRecordResponse, datasetAttr(r.DatasetID.String()))
	err := i.inner.DeleteRecordResponse(ctx, r)
	i.finish(span, OpDeleteRecordResponse, start, err,
		zap.Stringer("record_id", r.RecordID), zap.Stringer("response_id", r.ID))
	return err
}

// UpdateRecordSuggestion sets a suggestion.
func (i *Instrumented) UpdateRecordSuggestion(ctx context.Context, s *domain.Suggestion) error {
	ctx, span, start := i.start(ctx, OpUpdateRecordSuggestion, datasetAttr(s.DatasetID.String()))
	err := i.inner.UpdateRecordSuggestion(ctx, s)
	i.finish(span, OpUpdateRecordSuggestion, start, err,
		zap.Stringer("record_id", s.RecordID), zap.String("question", s.Question))
	return err
}

// DeleteRecordSuggestion removes a suggestion.
func (i *Instrumented) DeleteRecordSuggestion(ctx context.Context, s *domain.Suggestion) error {
	ctx, span, start := i.start(ctx, OpDeleteRecordSuggestion, datasetAttr(s.DatasetID.String()))
	err := i.inner.DeleteRecordSuggestion(ctx, s)
	i.finish(span, OpDeleteRecordSuggestion, start, err,
		zap.Stringer("record_id", s.RecordID), zap.String("question", s.Question))
	return err
}

// Search runs a text search.
func (i *Instrumented) Search(
	ctx context.Context, ds *domain.Dataset, req request.Search,
) (result.SearchResponses, error) {
	ctx, span, start := i.start(ctx, OpSearch, datasetAttr(ds.ID.String()))
	res, err := i.inner.Search(ctx, ds, req)
	i.finish(span, OpSearch, start, err,
		zap.Stringer("dataset_id", ds.ID), zap.Int("hits", len(res.Items)), zap.Int("total", res.Total))
	return res, err
}

// SimilaritySearch runs a vector search.
func (i *Instrumented) SimilaritySearch(
	ctx context.Context, ds *domain.Dataset, req request.Similarity,
) (result.SearchResponses, error) {
	ctx, span, start := i.start(ctx, OpSimilaritySearch,
		datasetAttr(ds.ID.String()), attribute.String("annosearch.order", string(req.Order())))
	res, err := i.inner.SimilaritySearch(ctx, ds, req)
	i.finish(span, OpSimilaritySearch, start, err,
		zap.Stringer("dataset_id", ds.ID), zap.Int("k", req.MaxResults()), zap.Int("hits", len(res.Items)))
	return res, err
}

// ComputeMetricsFor summarizes a metadata property.
func (i *Instrumented) ComputeMetricsFor(
	ctx context.Context, p domain.MetadataProperty,
) (result.MetadataMetrics, error) {
	ctx, span, start := i.start(ctx, OpComputeMetrics, datasetAttr(p.DatasetID.String()))
	m, err := i.inner.ComputeMetricsFor(ctx, p)
	i.finish(span, OpComputeMetrics, start, err,
		zap.Stringer("dataset_id", p.DatasetID), zap.String("property", p.Name))
	return m, err
}
