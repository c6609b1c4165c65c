package flink

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
)

// response is one canned reply of the fake cluster.
type response struct {
	status int
	body   string
}

// recordedRequest is what the fake cluster saw.
type recordedRequest struct {
	Method      string
	Path        string
	Query       url.Values
	Header      http.Header
	ContentType string
	Body        []byte
}

// fakeCluster is an httptest server that answers registered routes in order
// and records every request. The last response of a route repeats.
type fakeCluster struct {
	server *httptest.Server

	mu       sync.Mutex
	routes   map[string][]response
	served   map[string]int
	requests []recordedRequest
}

func newFakeCluster(t *testing.T) *fakeCluster {
	t.Helper()
	f := &fakeCluster{
		routes: make(map[string][]response),
		served: make(map[string]int),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeCluster) handle(method, path string, responses ...response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+path] = responses
}

func (f *fakeCluster) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Method:      r.Method,
		Path:        r.URL.Path,
		Query:       r.URL.Query(),
		Header:      r.Header.Clone(),
		ContentType: r.Header.Get("Content-Type"),
		Body:        body,
	})
	key := r.Method + " " + r.URL.Path
	responses, ok := f.routes[key]
	n := f.served[key]
	f.served[key] = n + 1
	f.mu.Unlock()

	if !ok || len(responses) == 0 {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"errors":["Not found: `+r.URL.Path+`"]}`)
		return
	}
	if n >= len(responses) {
		n = len(responses) - 1
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(responses[n].status)
	io.WriteString(w, responses[n].body)
}

func (f *fakeCluster) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func (f *fakeCluster) target() Target {
	u, _ := url.Parse(f.server.URL)
	return Target{Host: u.Hostname(), Port: u.Port()}
}

func (f *fakeCluster) client(t *testing.T, opts ...Option) *Client {
	t.Helper()
	c, err := New(f.target(), opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

// paths lists "METHOD path" for each recorded request.
func (f *fakeCluster) paths() []string {
	var out []string
	for _, r := range f.recorded() {
		out = append(out, r.Method+" "+r.Path)
	}
	return out
}
