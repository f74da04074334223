package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"ceseminars/internal/config"
	"ceseminars/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCluster struct {
	mu          sync.Mutex
	indexExists bool
	created     bool
	documents   map[string]string
	lastQuery   map[string]interface{}
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	body, _ := io.ReadAll(r.Body)

	switch {
	case r.Method == http.MethodHead && r.URL.Path == "/seminars":
		if f.indexExists {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)

	case r.Method == http.MethodPut && r.URL.Path == "/seminars":
		f.created = true
		f.indexExists = true
		_, _ = w.Write([]byte(`{"acknowledged":true}`))

	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/seminars/_doc/"):
		id := strings.TrimPrefix(r.URL.Path, "/seminars/_doc/")
		if _, ok := f.documents[id]; !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"result":"not_found"}`))
			return
		}
		delete(f.documents, id)
		_, _ = w.Write([]byte(`{"result":"deleted"}`))

	case r.URL.Path == "/seminars/_count":
		_ = json.Unmarshal(body, &f.lastQuery)
		_, _ = w.Write([]byte(`{"count":` + strconv.Itoa(len(f.documents)) + `}`))

	case strings.HasPrefix(r.URL.Path, "/seminars/_doc/"):
		f.documents[strings.TrimPrefix(r.URL.Path, "/seminars/_doc/")] = string(body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))

	case r.URL.Path == "/seminars/_search":
		_ = json.Unmarshal(body, &f.lastQuery)
		_, _ = w.Write([]byte(`{"hits":{"hits":[
			{"_source":{"id":7,"title":"Endodontics Today","year":2026,"status":"active","total_sessions":10}}
		]}}`))

	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"unexpected request"}`))
	}
}

func newTestClient(t *testing.T, cluster *fakeCluster) *ElasticsearchClient {
	t.Helper()

	srv := httptest.NewServer(cluster)
	t.Cleanup(srv.Close)

	client, err := NewElasticsearchClient(config.ElasticsearchConfig{
		Addresses:  []string{srv.URL},
		Index:      "seminars",
		MaxRetries: 0,
	})
	require.NoError(t, err)
	return client
}

func TestNewElasticsearchClient_CreatesMissingIndex(t *testing.T) {
	cluster := &fakeCluster{documents: make(map[string]string)}
	newTestClient(t, cluster)
	assert.True(t, cluster.created)

	existing := &fakeCluster{indexExists: true, documents: make(map[string]string)}
	newTestClient(t, existing)
	assert.False(t, existing.created)
}

func TestIndexSeminar(t *testing.T) {
	cluster := &fakeCluster{indexExists: true, documents: make(map[string]string)}
	client := newTestClient(t, cluster)

	err := client.IndexSeminar(context.Background(), &models.Seminar{ID: 3, Title: "Pediatric Care", Year: 2026, Status: models.SeminarDraft})
	require.NoError(t, err)

	require.Contains(t, cluster.documents, "3")
	assert.Contains(t, cluster.documents["3"], `"title":"Pediatric Care"`)
	assert.Contains(t, cluster.documents["3"], `"status":"draft"`)
}

func TestSearchSeminars(t *testing.T) {
	cluster := &fakeCluster{indexExists: true, documents: make(map[string]string)}
	client := newTestClient(t, cluster)

	seminars, err := client.SearchSeminars(context.Background(), "endo", 2026, 2, 5)
	require.NoError(t, err)
	require.Len(t, seminars, 1)
	assert.Equal(t, int64(7), seminars[0].ID)
	assert.Equal(t, models.SeminarActive, seminars[0].Status)

	assert.EqualValues(t, 5, cluster.lastQuery["from"])
	assert.EqualValues(t, 5, cluster.lastQuery["size"])
}

func TestBuildSearchQuery(t *testing.T) {
	q := buildSearchQuery("", 0)
	assert.Contains(t, q, "match_all")

	q = buildSearchQuery("implants", 2026)
	boolQuery := q["bool"].(map[string]interface{})
	assert.Len(t, boolQuery["must"], 1)
	assert.Len(t, boolQuery["filter"], 1)

	q = buildSearchQuery("  ", 2027)
	boolQuery = q["bool"].(map[string]interface{})
	assert.NotContains(t, boolQuery, "must")
}

func TestDeleteSeminar(t *testing.T) {
	cluster := &fakeCluster{indexExists: true, documents: map[string]string{"4": "{}"}}
	client := newTestClient(t, cluster)

	require.NoError(t, client.DeleteSeminar(context.Background(), 4))
	assert.NotContains(t, cluster.documents, "4")

	// already gone
	require.NoError(t, client.DeleteSeminar(context.Background(), 4))
}

func TestCount(t *testing.T) {
	cluster := &fakeCluster{indexExists: true, documents: map[string]string{"1": "{}", "2": "{}"}}
	client := newTestClient(t, cluster)

	n, err := client.Count(context.Background(), "", 2026)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Contains(t, cluster.lastQuery, "query")
}

func TestBuildSortQuery(t *testing.T) {
	assert.Equal(t, "_score", buildSortQuery("implants")[0])
	assert.Len(t, buildSortQuery(""), 2)
}
