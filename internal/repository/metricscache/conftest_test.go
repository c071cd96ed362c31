package metricscache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/kailas-cloud/annosearch/internal/db"
	"github.com/kailas-cloud/annosearch/internal/domain"
	"github.com/kailas-cloud/annosearch/internal/domain/search/result"
	"github.com/kailas-cloud/annosearch/internal/searchengine"
)

// mockEngine counts metric computations and returns a fixed total that
// grows with every indexed record.
type mockEngine struct {
	searchengine.SearchEngine

	mu           sync.Mutex
	computeCalls int
	indexed      int
	computeErr   error
	afterWrite   func()
}

func (m *mockEngine) ComputeMetricsFor(context.Context, domain.MetadataProperty) (result.MetadataMetrics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.computeCalls++
	if m.computeErr != nil {
		return nil, m.computeErr
	}
	return result.TermsMetrics{Total: m.indexed}, nil
}

func (m *mockEngine) IndexRecords(_ context.Context, _ *domain.Dataset, records []domain.Record) (searchengine.BulkResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexed += len(records)
	return searchengine.BulkResult{Total: len(records)}, nil
}

func (m *mockEngine) UpdateRecordResponse(context.Context, *domain.Response) error {
	if m.afterWrite != nil {
		m.afterWrite()
	}
	return nil
}

func (m *mockEngine) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.computeCalls
}

// memStore is an in-memory store; TTLs are recorded, not enforced.
type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
	err  error
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	v, ok := s.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (s *memStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.data[key] = value
	s.ttls[key] = ttl
	return nil
}

func (s *memStore) Incr(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s.err != nil {
		return 0, s.err
	}
	n, _ := strconv.ParseInt(string(s.data[key]), 10, 64)
	n++
	s.data[key] = []byte(strconv.FormatInt(n, 10))
	return n, nil
}
