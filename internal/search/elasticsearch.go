package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ceseminars/internal/config"
	"ceseminars/internal/logger"
	"ceseminars/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/esutil"
)

const defaultPageSize = 20

// ElasticsearchClient indexes the seminar catalog for full-text search
type ElasticsearchClient struct {
	es    *elasticsearch.Client
	index string
}

// NewElasticsearchClient connects and makes sure the seminar index exists
func NewElasticsearchClient(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     cfg.Addresses,
		Username:      cfg.Username,
		Password:      cfg.Password,
		RetryOnStatus: []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusTooManyRequests},
		MaxRetries:    cfg.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	c := &ElasticsearchClient{es: es, index: cfg.Index}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := c.ensureIndex(ctx, cfg.Replicas); err != nil {
		return nil, fmt.Errorf("failed to ensure index exists: %w", err)
	}
	return c, nil
}

// seminarIndex is the analyzer and field mapping for seminar documents.
// Titles get a keyword subfield for exact sorting.
func seminarIndex(replicas int) map[string]interface{} {
	text := map[string]interface{}{"type": "text", "analyzer": "seminar_text"}
	credits := map[string]interface{}{"type": "scaled_float", "scaling_factor": 100}

	return map[string]interface{}{
		"settings": map[string]interface{}{
			"number_of_shards":   1,
			"number_of_replicas": replicas,
			"analysis": map[string]interface{}{
				"analyzer": map[string]interface{}{
					"seminar_text": map[string]interface{}{
						"type":      "custom",
						"tokenizer": "standard",
						"filter":    []string{"lowercase", "asciifolding", "english_stop", "english_stemmer"},
					},
				},
				"filter": map[string]interface{}{
					"english_stop":    map[string]interface{}{"type": "stop", "stopwords": "_english_"},
					"english_stemmer": map[string]interface{}{"type": "stemmer", "language": "english"},
				},
			},
		},
		"mappings": map[string]interface{}{
			"dynamic": "false",
			"properties": map[string]interface{}{
				"id": map[string]interface{}{"type": "long"},
				"title": map[string]interface{}{
					"type":     "text",
					"analyzer": "seminar_text",
					"fields": map[string]interface{}{
						"keyword": map[string]interface{}{"type": "keyword", "ignore_above": 256},
					},
				},
				"description":         text,
				"year":                map[string]interface{}{"type": "integer"},
				"status":              map[string]interface{}{"type": "keyword"},
				"total_sessions":      map[string]interface{}{"type": "integer"},
				"credits_per_session": credits,
				"total_credits":       credits,
				"updated_at":          map[string]interface{}{"type": "date"},
			},
		},
	}
}

func (c *ElasticsearchClient) ensureIndex(ctx context.Context, replicas int) error {
	log := logger.WithContext(ctx)

	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		log.Debug("Seminar index present", "index", c.index)
		return nil
	}

	res, err = c.es.Indices.Create(c.index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(esutil.NewJSONReader(seminarIndex(replicas))),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("failed to create index: %s", res.String())
	}

	log.Info("Created seminar index", "index", c.index, "replicas", replicas)
	return nil
}

// SearchSeminars runs a relevance query over title and description.
// year == 0 matches every year; page is 1-based.
func (c *ElasticsearchClient) SearchSeminars(ctx context.Context, query string, year, page, pageSize int) ([]models.Seminar, error) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if page < 1 {
		page = 1
	}

	body := map[string]interface{}{
		"query": buildSearchQuery(query, year),
		"sort":  buildSortQuery(query),
		"from":  (page - 1) * pageSize,
		"size":  pageSize,
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(esutil.NewJSONReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	var out struct {
		Hits struct {
			Hits []struct {
				Source models.Seminar `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	seminars := make([]models.Seminar, 0, len(out.Hits.Hits))
	for _, hit := range out.Hits.Hits {
		seminars = append(seminars, hit.Source)
	}
	return seminars, nil
}

func buildSearchQuery(query string, year int) map[string]interface{} {
	var must, filter []map[string]interface{}

	if q := strings.TrimSpace(query); q != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     q,
				"fields":    []string{"title^2", "description"},
				"fuzziness": "AUTO",
			},
		})
	}
	if year != 0 {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"year": year},
		})
	}

	if len(must) == 0 && len(filter) == 0 {
		return map[string]interface{}{"match_all": map[string]interface{}{}}
	}

	clauses := map[string]interface{}{}
	if len(must) > 0 {
		clauses["must"] = must
	}
	if len(filter) > 0 {
		clauses["filter"] = filter
	}
	return map[string]interface{}{"bool": clauses}
}

// buildSortQuery orders by score when there is free text, newest year first otherwise
func buildSortQuery(query string) []interface{} {
	if strings.TrimSpace(query) != "" {
		return []interface{}{"_score", map[string]interface{}{"year": "desc"}}
	}
	return []interface{}{
		map[string]interface{}{"year": "desc"},
		map[string]interface{}{"title.keyword": "asc"},
	}
}

// IndexSeminar upserts the seminar document
func (c *ElasticsearchClient) IndexSeminar(ctx context.Context, seminar *models.Seminar) error {
	doc := *seminar
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now().UTC()
	}

	res, err := c.es.Index(c.index, esutil.NewJSONReader(doc),
		c.es.Index.WithContext(ctx),
		c.es.Index.WithDocumentID(strconv.FormatInt(seminar.ID, 10)),
		c.es.Index.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("failed to index seminar %d: %w", seminar.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("indexing error: %s", res.String())
	}
	return nil
}

// DeleteSeminar removes the document; a missing document is not an error
func (c *ElasticsearchClient) DeleteSeminar(ctx context.Context, id int64) error {
	res, err := c.es.Delete(c.index, strconv.FormatInt(id, 10),
		c.es.Delete.WithContext(ctx),
		c.es.Delete.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("failed to delete seminar %d: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete error: %s", res.String())
	}
	return nil
}

// Count returns how many documents match the query
func (c *ElasticsearchClient) Count(ctx context.Context, query string, year int) (int64, error) {
	res, err := c.es.Count(
		c.es.Count.WithContext(ctx),
		c.es.Count.WithIndex(c.index),
		c.es.Count.WithBody(esutil.NewJSONReader(map[string]interface{}{
			"query": buildSearchQuery(query, year),
		})),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to execute count: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("count error: %s", res.String())
	}

	var out struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("failed to decode count response: %w", err)
	}
	return out.Count, nil
}

// HealthCheck waits up to ten seconds for at least a yellow cluster
func (c *ElasticsearchClient) HealthCheck(ctx context.Context) error {
	res, err := c.es.Cluster.Health(
		c.es.Cluster.Health.WithContext(ctx),
		c.es.Cluster.Health.WithWaitForStatus("yellow"),
		c.es.Cluster.Health.WithTimeout(10*time.Second),
	)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer res.Body.Close()
	return responseError(res)
}

func responseError(res *esapi.Response) error {
	if res.IsError() {
		return fmt.Errorf("cluster error: %s", res.String())
	}
	return nil
}
