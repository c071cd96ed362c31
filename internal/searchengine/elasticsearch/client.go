package elasticsearch

import (
	"errors"
	"fmt"
	"net"
	"net/http"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/kailas-cloud/annosearch/internal/searchengine"
)

// NewClient builds a go-elasticsearch client from the engine config.
// The returned transport is owned by the caller and released on Close.
func NewClient(cfg searchengine.Config) (*es.Client, *http.Transport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	transport, err := cfg.HTTPTransport()
	if err != nil {
		return nil, nil, err
	}

	retryOnTimeout := cfg.RetryOnTimeout
	client, err := es.NewClient(es.Config{
		Addresses:  cfg.Hosts,
		Username:   cfg.Username,
		Password:   cfg.Password,
		Transport:  transport,
		MaxRetries: cfg.MaxRetries,
		// Connection errors are always retried, timeouts only when enabled.
		RetryOnError: func(_ *http.Request, err error) bool {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return retryOnTimeout
			}
			return true
		},
		DisableRetry: cfg.MaxRetries == 0,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return client, transport, nil
}
