// Package testutil provides shared test helpers: a fake remote document
// source and builders for the JSON records it serves.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// FakeNotion is an httptest server speaking the subset of the remote API the
// client uses: database query and block children listing, both cursor paged.
type FakeNotion struct {
	Server *httptest.Server

	mu        sync.Mutex
	pages     []json.RawMessage
	children  map[string][]json.RawMessage
	failures  map[string]*failure
	requests  map[string]int
	lastQuery map[string]any
	lastAuth  string
}

type failure struct {
	status int
	times  int
}

// NewFakeNotion starts a fake source that is closed when the test ends.
func NewFakeNotion(t *testing.T) *FakeNotion {
	t.Helper()
	f := &FakeNotion{
		children: make(map[string][]json.RawMessage),
		failures: make(map[string]*failure),
		requests: make(map[string]int),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the API root to pass to the client.
func (f *FakeNotion) URL() string { return f.Server.URL }

// AddPages appends page records to the database, in the order they are returned.
func (f *FakeNotion) AddPages(raws ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range raws {
		f.pages = append(f.pages, json.RawMessage(r))
	}
}

// SetChildren replaces the children of a block or page.
func (f *FakeNotion) SetChildren(id string, raws ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := make([]json.RawMessage, 0, len(raws))
	for _, r := range raws {
		list = append(list, json.RawMessage(r))
	}
	f.children[id] = list
}

// FailNext makes the next n requests whose path starts with prefix answer with status.
func (f *FakeNotion) FailNext(prefix string, status, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[prefix] = &failure{status: status, times: n}
}

// Requests returns how many requests hit exactly path.
func (f *FakeNotion) Requests(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[path]
}

// TotalRequests returns the number of requests served.
func (f *FakeNotion) TotalRequests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.requests {
		n += c
	}
	return n
}

// LastQuery returns the decoded body of the latest database query.
func (f *FakeNotion) LastQuery() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastQuery
}

// LastAuthorization returns the Authorization header of the latest request.
func (f *FakeNotion) LastAuthorization() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAuth
}

func (f *FakeNotion) serve(w http.ResponseWriter, r *http.Request) {
	auth := r.Header.Get("Authorization")
	f.mu.Lock()
	f.requests[r.URL.Path]++
	f.lastAuth = auth
	for prefix, fl := range f.failures {
		if fl.times > 0 && strings.HasPrefix(r.URL.Path, prefix) {
			fl.times--
			f.mu.Unlock()
			writeError(w, fl.status, "injected failure")
			return
		}
	}
	f.mu.Unlock()

	if !strings.HasPrefix(auth, "Bearer ") {
		writeError(w, http.StatusUnauthorized, "API token is invalid.")
		return
	}

	switch {
	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/databases/") && strings.HasSuffix(r.URL.Path, "/query"):
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "body is not valid json")
			return
		}
		cursor, _ := body["start_cursor"].(string)
		size := 100
		if ps, ok := body["page_size"].(float64); ok {
			size = int(ps)
		}
		f.mu.Lock()
		f.lastQuery = body
		items := append([]json.RawMessage(nil), f.pages...)
		f.mu.Unlock()
		writeList(w, items, cursor, size)

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/blocks/") && strings.HasSuffix(r.URL.Path, "/children"):
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/blocks/"), "/children")
		size, err := strconv.Atoi(r.URL.Query().Get("page_size"))
		if err != nil || size <= 0 {
			size = 100
		}
		f.mu.Lock()
		items, ok := f.children[id]
		items = append([]json.RawMessage(nil), items...)
		f.mu.Unlock()
		if !ok {
			writeError(w, http.StatusNotFound, "Could not find block with ID: "+id)
			return
		}
		writeList(w, items, r.URL.Query().Get("start_cursor"), size)

	default:
		writeError(w, http.StatusNotFound, "unknown endpoint")
	}
}

func writeList(w http.ResponseWriter, items []json.RawMessage, cursor string, size int) {
	start, _ := strconv.Atoi(cursor)
	if start < 0 || start > len(items) {
		start = len(items)
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	resp := map[string]any{
		"object":      "list",
		"results":     items[start:end],
		"next_cursor": nil,
		"has_more":    end < len(items),
	}
	if end < len(items) {
		resp["next_cursor"] = strconv.Itoa(end)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	code := "internal_server_error"
	switch status {
	case http.StatusBadRequest:
		code = "validation_error"
	case http.StatusUnauthorized:
		code = "unauthorized"
	case http.StatusNotFound:
		code = "object_not_found"
	case http.StatusTooManyRequests:
		code = "rate_limited"
	case http.StatusServiceUnavailable:
		code = "service_unavailable"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"object":  "error",
		"status":  status,
		"code":    code,
		"message": msg,
	})
}
