package hosted

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/naveenspark/talk/pkg/client"
)

const docRoot = "projects/talk-test/databases/(default)/documents"

// fakeBackend serves the subset of the document REST API the Store uses.
type fakeBackend struct {
	mu      sync.Mutex
	docs    map[string]client.Document // keyed by path below docRoot
	clock   time.Time
	version int
	commits int
	queries []client.StructuredQuery
	// bearers holds the Authorization header of each request, keyed by
	// method and document path.
	bearers map[string]string
	// signedWrites rejects commits that carry no bearer token.
	signedWrites bool
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	b := &fakeBackend{
		docs:    map[string]client.Document{},
		clock:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		bearers: map[string]string{},
	}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *fakeBackend) put(path string, fields map[string]client.Value) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.version++
	b.docs[path] = client.Document{
		Name:       docRoot + "/" + path,
		Fields:     fields,
		UpdateTime: fmt.Sprintf("v%d", b.version),
	}
}

func (b *fakeBackend) get(path string) (client.Document, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.docs[path]
	return d, ok
}

func (b *fakeBackend) commitCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.commits
}

func (b *fakeBackend) lastQuery() client.StructuredQuery {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queries[len(b.queries)-1]
}

func writeError(w http.ResponseWriter, code int, status, msg string) {
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
		"error": map[string]any{"code": code, "message": msg, "status": status},
	})
}

func (b *fakeBackend) bearer(method, path string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bearers[method+" "+path]
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/db/"+docRoot)
	auth := r.Header.Get("Authorization")
	b.mu.Lock()
	b.bearers[r.Method+" "+strings.TrimPrefix(path, "/")] = auth
	signed := b.signedWrites
	b.mu.Unlock()
	if path == ":commit" && signed && auth == "" {
		writeError(w, http.StatusForbidden, "PERMISSION_DENIED", "missing or insufficient permissions")
		return
	}
	switch {
	case r.Method == http.MethodGet:
		d, ok := b.get(strings.TrimPrefix(path, "/"))
		if !ok {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "no such document")
			return
		}
		json.NewEncoder(w).Encode(d) //nolint:errcheck
	case path == ":commit":
		b.commit(w, r)
	case strings.HasSuffix(path, ":runQuery"):
		b.runQuery(w, r, strings.Trim(strings.TrimSuffix(path, ":runQuery"), "/"))
	default:
		http.NotFound(w, r)
	}
}

func (b *fakeBackend) commit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Writes []client.Write `json:"writes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.commits++
	b.clock = b.clock.Add(time.Second)
	resp := client.CommitResponse{CommitTime: b.clock.Format(time.RFC3339Nano)}
	for _, wr := range body.Writes {
		path := strings.TrimPrefix(wr.Update.Name, docRoot+"/")
		cur, exists := b.docs[path]
		if pre := wr.CurrentDocument; pre != nil {
			if pre.Exists != nil && *pre.Exists != exists {
				writeError(w, http.StatusConflict, "ALREADY_EXISTS", "document exists")
				return
			}
			if pre.UpdateTime != "" && (!exists || pre.UpdateTime != cur.UpdateTime) {
				writeError(w, http.StatusBadRequest, "FAILED_PRECONDITION", "update time mismatch")
				return
			}
		}
		fields := map[string]client.Value{}
		if wr.UpdateMask != nil && exists {
			for k, v := range cur.Fields {
				fields[k] = v
			}
		}
		for k, v := range wr.Update.Fields {
			fields[k] = v
		}
		var results []client.Value
		for _, tr := range wr.UpdateTransforms {
			v := client.Timestamp(b.clock)
			fields[tr.FieldPath] = v
			results = append(results, v)
		}
		b.version++
		b.docs[path] = client.Document{Name: wr.Update.Name, Fields: fields, UpdateTime: fmt.Sprintf("v%d", b.version)}
		resp.WriteResults = append(resp.WriteResults, client.WriteResult{UpdateTime: fmt.Sprintf("v%d", b.version), TransformResults: results})
	}
	json.NewEncoder(w).Encode(resp) //nolint:errcheck
}

func (b *fakeBackend) runQuery(w http.ResponseWriter, r *http.Request, parent string) {
	var body struct {
		StructuredQuery client.StructuredQuery `json:"structuredQuery"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}
	q := body.StructuredQuery

	b.mu.Lock()
	b.queries = append(b.queries, q)
	prefix := q.From[0].CollectionID + "/"
	if parent != "" {
		prefix = parent + "/" + prefix
	}
	var docs []client.Document
	for path, d := range b.docs {
		rest, ok := strings.CutPrefix(path, prefix)
		if ok && !strings.Contains(rest, "/") {
			docs = append(docs, d)
		}
	}
	readTime := b.clock.Format(time.RFC3339Nano)
	b.mu.Unlock()

	order := q.OrderBy[0]
	sort.Slice(docs, func(i, j int) bool {
		a := docs[i].Fields[order.Field.FieldPath].AsTime()
		c := docs[j].Fields[order.Field.FieldPath].AsTime()
		if order.Direction == client.Descending {
			return a.After(c)
		}
		return a.Before(c)
	})
	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}

	rows := make([]map[string]any, 0, len(docs)+1)
	for _, d := range docs {
		rows = append(rows, map[string]any{"document": d})
	}
	if len(rows) == 0 {
		rows = append(rows, map[string]any{"readTime": readTime})
	}
	json.NewEncoder(w).Encode(rows) //nolint:errcheck
}
