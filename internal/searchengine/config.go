package searchengine

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
)

// Index and aggregation defaults.
const (
	DefaultNumberOfShards   = 1
	DefaultNumberOfReplicas = 0
	DefaultTotalFieldsLimit = 2000
	DefaultMaxResultWindow  = 500000
	DefaultMaxTermsBuckets  = 16384
	DefaultMaxRetries       = 5
)

// Config holds the backend connection and index settings.
// Index settings apply at index creation only; existing indexes keep the
// values they were created with.
type Config struct {
	Hosts          []string
	Username       string
	Password       string
	SSLVerify      bool
	CAPath         string
	RetryOnTimeout bool
	MaxRetries     int

	NumberOfShards   int
	NumberOfReplicas int
	TotalFieldsLimit int
	MaxResultWindow  int
	MaxTermsBuckets  int
}

// WithDefaults fills zero index settings with defaults.
func (c Config) WithDefaults() Config {
	if c.NumberOfShards <= 0 {
		c.NumberOfShards = DefaultNumberOfShards
	}
	if c.NumberOfReplicas < 0 {
		c.NumberOfReplicas = DefaultNumberOfReplicas
	}
	if c.TotalFieldsLimit <= 0 {
		c.TotalFieldsLimit = DefaultTotalFieldsLimit
	}
	if c.MaxResultWindow <= 0 {
		c.MaxResultWindow = DefaultMaxResultWindow
	}
	if c.MaxTermsBuckets <= 0 {
		c.MaxTermsBuckets = DefaultMaxTermsBuckets
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	return c
}

// Validate checks the connection settings.
func (c Config) Validate() error {
	if len(c.Hosts) == 0 {
		return errors.New("search engine: at least one host is required")
	}
	if c.Username == "" && c.Password != "" {
		return errors.New("search engine: password set without username")
	}
	return nil
}

// HTTPTransport builds the transport shared by the backend clients:
// the CA bundle from CAPath is trusted and verification follows SSLVerify.
func (c Config) HTTPTransport() (*http.Transport, error) {
	tlsCfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: !c.SSLVerify, //nolint:gosec // operator opt-out
	}
	if c.CAPath != "" {
		pem, err := os.ReadFile(c.CAPath)
		if err != nil {
			return nil, fmt.Errorf("read ca file %s: %w", c.CAPath, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", c.CAPath)
		}
		tlsCfg.RootCAs = pool
	}

	t := http.DefaultTransport.(*http.Transport).Clone()
	t.TLSClientConfig = tlsCfg
	return t, nil
}
