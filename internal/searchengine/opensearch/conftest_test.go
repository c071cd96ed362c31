package opensearch

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/kailas-cloud/annosearch/internal/searchengine"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
}

// testCluster is an httptest stand-in for an OpenSearch node.
type testCluster struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (c *testCluster) last(t *testing.T) recordedRequest {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.requests) == 0 {
		t.Fatal("no request recorded")
	}
	return c.requests[len(c.requests)-1]
}

func newTestAdapter(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Adapter, *testCluster) {
	t.Helper()
	cluster := &testCluster{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		cluster.mu.Lock()
		cluster.requests = append(cluster.requests, recordedRequest{
			Method: r.Method, Path: r.URL.Path, Query: r.URL.Query(), Body: body,
		})
		cluster.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, transport, err := NewClient(searchengine.Config{Hosts: []string{srv.URL}, SSLVerify: true})
	if err != nil {
		t.Fatal(err)
	}
	a := NewAdapter(client, transport, nil)
	t.Cleanup(func() { _ = a.Close() })
	return a, cluster
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
