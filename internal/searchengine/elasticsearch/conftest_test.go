package elasticsearch

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/annosearch/internal/searchengine"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
}

// testCluster is an httptest stand-in for an Elasticsearch node.
type testCluster struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (c *testCluster) recorded() []recordedRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]recordedRequest(nil), c.requests...)
}

// last returns the most recent request.
func (c *testCluster) last(t *testing.T) recordedRequest {
	t.Helper()
	reqs := c.recorded()
	if len(reqs) == 0 {
		t.Fatal("no request recorded")
	}
	return reqs[len(reqs)-1]
}

func newTestAdapter(t *testing.T, logger *zap.Logger, handler func(w http.ResponseWriter, r *http.Request)) (*Adapter, *testCluster) {
	t.Helper()
	cluster := &testCluster{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		cluster.mu.Lock()
		cluster.requests = append(cluster.requests, recordedRequest{
			Method: r.Method, Path: r.URL.Path, Query: r.URL.Query(), Body: body,
		})
		cluster.mu.Unlock()

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, transport, err := NewClient(searchengine.Config{Hosts: []string{srv.URL}, SSLVerify: true})
	if err != nil {
		t.Fatal(err)
	}
	a := NewAdapter(client, transport, logger)
	t.Cleanup(func() { _ = a.Close() })
	return a, cluster
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func ok(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, `{"acknowledged":true}`)
}
