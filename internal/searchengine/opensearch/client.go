package opensearch

import (
	"fmt"
	"net/http"

	"github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"

	"github.com/kailas-cloud/annosearch/internal/searchengine"
)

// NewClient builds an opensearch-go client from the engine config.
// The returned transport is owned by the caller and released on Close.
func NewClient(cfg searchengine.Config) (*opensearchapi.Client, *http.Transport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	transport, err := cfg.HTTPTransport()
	if err != nil {
		return nil, nil, err
	}

	client, err := opensearchapi.NewClient(opensearchapi.Config{
		Client: opensearch.Config{
			Addresses:            cfg.Hosts,
			Username:             cfg.Username,
			Password:             cfg.Password,
			Transport:            transport,
			MaxRetries:           cfg.MaxRetries,
			DisableRetry:         cfg.MaxRetries == 0,
			EnableRetryOnTimeout: cfg.RetryOnTimeout,
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create opensearch client: %w", err)
	}
	return client, transport, nil
}
