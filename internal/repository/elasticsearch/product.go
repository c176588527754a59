// Package elasticsearch implements repository.ProductRepository on an
// Elasticsearch index. Filter trees are compiled to the query DSL.
package elasticsearch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	jsoniter "github.com/json-iterator/go"

	"github.com/Uchennem/sleepoutsideServer/internal/domain"
	"github.com/Uchennem/sleepoutsideServer/internal/repository"
	"github.com/Uchennem/sleepoutsideServer/pkg/database"
	apperrors "github.com/Uchennem/sleepoutsideServer/pkg/errors"
	"github.com/Uchennem/sleepoutsideServer/pkg/filter"
	"github.com/Uchennem/sleepoutsideServer/pkg/query"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// wildcardEscaper escapes wildcard metacharacters in user-supplied terms.
var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

// Config holds the connection settings.
type Config struct {
	Addresses []string
	Index     string
	Username  string
	Password  string
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// ProductRepository is an Elasticsearch-backed product store.
type ProductRepository struct {
	client    *elasticsearch.Client
	indexName string
	logger    *slog.Logger
}

var _ repository.ProductRepository = (*ProductRepository)(nil)

type esSearchResponse struct {
	Hits struct {
		Hits []struct {
			Source domain.Document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type esCountResponse struct {
	Count int `json:"count"`
}

type esGetResponse struct {
	Found  bool            `json:"found"`
	Source domain.Document `json:"_source"`
}

type esBulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// New connects to the cluster and ensures the products index exists.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*ProductRepository, error) {
	if cfg.Index == "" {
		cfg.Index = DefaultIndexName
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: create client: %w", err)
	}

	r := &ProductRepository{client: client, indexName: cfg.Index, logger: logger}
	if err := r.ensureIndex(ctx); err != nil {
		return nil, fmt.Errorf("elasticsearch: ensure index: %w", err)
	}
	return r, nil
}

// Ping checks whether the cluster is reachable.
func (r *ProductRepository) Ping(ctx context.Context) error {
	res, err := r.client.Ping(r.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

func (r *ProductRepository) ensureIndex(ctx context.Context) error {
	res, err := r.client.Indices.Exists([]string{r.indexName}, r.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index exists: %w", err)
	}
	_ = res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = r.client.Indices.Create(
		r.indexName,
		r.client.Indices.Create.WithBody(strings.NewReader(buildIndexMapping())),
		r.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("create index", res)
	}

	r.logger.Info("elasticsearch index created", slog.String("index", r.indexName))
	return nil
}

// Count returns the number of documents matching f.
func (r *ProductRepository) Count(ctx context.Context, f filter.Expression) (n int, err error) {
	body, err := json.Marshal(map[string]any{"query": compile(f)})
	if err != nil {
		return 0, fmt.Errorf("elasticsearch count: marshal query: %w", err)
	}

	ctx, end := database.TraceOperation(ctx, database.SystemElasticsearch, "CountProducts", string(body))
	defer func() { end(err) }()

	res, err := r.client.Count(
		r.client.Count.WithIndex(r.indexName),
		r.client.Count.WithBody(bytes.NewReader(body)),
		r.client.Count.WithContext(ctx),
	)
	if err != nil {
		return 0, fmt.Errorf("elasticsearch count: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return 0, responseError("elasticsearch count", res)
	}

	var resp esCountResponse
	if err = json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return 0, fmt.Errorf("elasticsearch count: decode response: %w", err)
	}
	return resp.Count, nil
}

// Find returns a page of matching documents ordered by id.
func (r *ProductRepository) Find(ctx context.Context, opts repository.FindOptions) (docs []domain.Document, err error) {
	docs = []domain.Document{}
	if opts.Limit <= 0 {
		return docs, nil
	}

	esQuery := map[string]any{
		"query": compile(opts.Filter),
		"from":  max(opts.Skip, 0),
		"size":  opts.Limit,
		"sort":  []any{map[string]any{domain.FieldID: "asc"}},
	}
	if fields := query.ProjectionFields(opts.Projection); len(fields) > 0 {
		esQuery["_source"] = append([]string{domain.FieldID}, fields...)
	}

	body, err := json.Marshal(esQuery)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: marshal query: %w", err)
	}

	ctx, end := database.TraceOperation(ctx, database.SystemElasticsearch, "FindProducts", string(body))
	defer func() { end(err) }()

	res, err := r.client.Search(
		r.client.Search.WithIndex(r.indexName),
		r.client.Search.WithBody(bytes.NewReader(body)),
		r.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, responseError("elasticsearch search", res)
	}

	var resp esSearchResponse
	if err = json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("elasticsearch search: decode response: %w", err)
	}

	for _, hit := range resp.Hits.Hits {
		docs = append(docs, query.Project(hit.Source, opts.Projection, domain.FieldID))
	}
	return docs, nil
}

// FindByID retrieves a document by its id.
func (r *ProductRepository) FindByID(ctx context.Context, id string) (doc domain.Document, err error) {
	ctx, end := database.TraceOperation(ctx, database.SystemElasticsearch, "GetProduct", id)
	defer func() { end(err) }()

	res, err := r.client.Get(r.indexName, id, r.client.Get.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch get: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusNotFound {
		return nil, apperrors.NotFound("product", id)
	}
	if res.IsError() {
		return nil, responseError("elasticsearch get", res)
	}

	var resp esGetResponse
	if err = json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("elasticsearch get: decode response: %w", err)
	}
	if !resp.Found {
		return nil, apperrors.NotFound("product", id)
	}
	return resp.Source, nil
}

// InsertOne indexes p under its id, rejecting an existing id.
func (r *ProductRepository) InsertOne(ctx context.Context, p *domain.Product) (_ string, err error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("elasticsearch create: marshal product: %w", err)
	}

	ctx, end := database.TraceOperation(ctx, database.SystemElasticsearch, "InsertProduct", p.ID)
	defer func() { end(err) }()

	res, err := r.client.Create(
		r.indexName,
		p.ID,
		bytes.NewReader(data),
		r.client.Create.WithRefresh("true"),
		r.client.Create.WithContext(ctx),
	)
	if err != nil {
		return "", fmt.Errorf("elasticsearch create: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusConflict {
		return "", apperrors.AlreadyExists("product", "id", p.ID)
	}
	if res.IsError() {
		return "", responseError("elasticsearch create", res)
	}
	return p.ID, nil
}

// InsertMany indexes every product through the bulk API with create
// actions. It returns the number created; a duplicate id fails the batch
// with an already-exists error after the others are stored.
func (r *ProductRepository) InsertMany(ctx context.Context, products []domain.Product) (n int, err error) {
	if len(products) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range products {
		action := map[string]any{"create": map[string]any{"_id": products[i].ID}}
		if err := enc.Encode(action); err != nil {
			return 0, fmt.Errorf("elasticsearch bulk: encode action: %w", err)
		}
		if err := enc.Encode(&products[i]); err != nil {
			return 0, fmt.Errorf("elasticsearch bulk: encode document: %w", err)
		}
	}

	ctx, end := database.TraceOperation(ctx, database.SystemElasticsearch, "InsertProducts",
		fmt.Sprintf("bulk create %d documents", len(products)))
	defer func() { end(err) }()

	res, err := r.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		r.client.Bulk.WithIndex(r.indexName),
		r.client.Bulk.WithRefresh("true"),
		r.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return 0, fmt.Errorf("elasticsearch bulk: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return 0, responseError("elasticsearch bulk", res)
	}

	var resp esBulkResponse
	if err = json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return 0, fmt.Errorf("elasticsearch bulk: decode response: %w", err)
	}

	var (
		duplicate string
		failures  []string
	)
	for _, item := range resp.Items {
		for _, result := range item {
			switch {
			case result.Status < http.StatusMultipleChoices:
				n++
			case result.Status == http.StatusConflict && duplicate == "":
				duplicate = result.ID
			case result.Status != http.StatusConflict:
				failures = append(failures, fmt.Sprintf("id=%s: %s: %s", result.ID, result.Error.Type, result.Error.Reason))
			}
		}
	}

	if len(failures) > 0 {
		return n, fmt.Errorf("elasticsearch bulk: partial errors: %s", strings.Join(failures, "; "))
	}
	if duplicate != "" {
		return n, apperrors.AlreadyExists("product", "id", duplicate)
	}

	r.logger.InfoContext(ctx, "bulk indexed products", slog.Int("count", n))
	return n, nil
}

// Reset drops the index and recreates it empty.
func (r *ProductRepository) Reset(ctx context.Context) (err error) {
	ctx, end := database.TraceOperation(ctx, database.SystemElasticsearch, "ResetProducts", r.indexName)
	defer func() { end(err) }()

	res, err := r.client.Indices.Delete([]string{r.indexName}, r.client.Indices.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch delete index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("elasticsearch delete index", res)
	}
	return r.ensureIndex(ctx)
}

// responseError decodes an error body into a descriptive error.
func responseError(op string, res *esapi.Response) error {
	raw, _ := io.ReadAll(res.Body)
	var errResp esErrorResponse
	if err := json.Unmarshal(raw, &errResp); err == nil && errResp.Error.Type != "" {
		return fmt.Errorf("%s: %s: %s", op, errResp.Error.Type, errResp.Error.Reason)
	}
	return fmt.Errorf("%s: unexpected status %s", op, res.Status())
}

// compile translates f into a query DSL clause.
func compile(f filter.Expression) map[string]any {
	return filter.Walk[map[string]any](f, dslFilter{})
}

type dslFilter struct{}

func (dslFilter) All() map[string]any {
	return map[string]any{"match_all": map[string]any{}}
}

func (dslFilter) Eq(field, value string) map[string]any {
	return map[string]any{"term": map[string]any{exactField(field): value}}
}

func (dslFilter) Contains(field, term string) map[string]any {
	return map[string]any{"wildcard": map[string]any{
		exactField(field): map[string]any{
			"value":            "*" + wildcardEscaper.Replace(term) + "*",
			"case_insensitive": true,
		},
	}}
}

func (dslFilter) And(children []map[string]any) map[string]any {
	return map[string]any{"bool": map[string]any{"filter": children}}
}

func (dslFilter) Or(children []map[string]any) map[string]any {
	return map[string]any{"bool": map[string]any{
		"should":               children,
		"minimum_should_match": 1,
	}}
}

// exactField returns the field holding the untokenized value: explicitly
// mapped fields as is, dynamic strings through their keyword subfield.
func exactField(field string) string {
	if keywordFields[field] || wildcardFields[field] {
		return field
	}
	return field + ".keyword"
}
