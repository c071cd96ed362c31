// Package backends enumerates the search engine backends compiled into the service.
package backends

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/annosearch/internal/searchengine"
	"github.com/kailas-cloud/annosearch/internal/searchengine/elasticsearch"
	"github.com/kailas-cloud/annosearch/internal/searchengine/opensearch"
)

// Registry returns the registry of all backends. Engines it opens are instrumented.
func Registry() *searchengine.Registry {
	return searchengine.NewRegistry(
		searchengine.Registration{Name: elasticsearch.Name, Factory: instrumented(elasticsearch.Name, elasticsearch.Open)},
		searchengine.Registration{Name: opensearch.Name, Factory: instrumented(opensearch.Name, opensearch.Open)},
	)
}

func instrumented(name string, open searchengine.Factory) searchengine.Factory {
	return func(ctx context.Context, cfg searchengine.Config, logger *zap.Logger) (searchengine.SearchEngine, error) {
		if logger == nil {
			logger = zap.NewNop()
		}
		eng, err := open(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return searchengine.NewInstrumented(eng, name, logger), nil
	}
}
