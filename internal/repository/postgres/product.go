// Package postgres implements the repositories on PostgreSQL. Products are
// stored as JSONB documents and queried through goqu; users live in a plain
// relational table.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // registers the postgres dialect
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5"
	jsoniter "github.com/json-iterator/go"

	"github.com/Uchennem/sleepoutsideServer/internal/domain"
	"github.com/Uchennem/sleepoutsideServer/internal/repository"
	"github.com/Uchennem/sleepoutsideServer/pkg/database"
	apperrors "github.com/Uchennem/sleepoutsideServer/pkg/errors"
	"github.com/Uchennem/sleepoutsideServer/pkg/filter"
	"github.com/Uchennem/sleepoutsideServer/pkg/query"
)

const (
	productsTable = "products"
	colID         = "id"
	colDocument   = "document"
)

var (
	json    = jsoniter.ConfigCompatibleWithStandardLibrary
	dialect = goqu.Dialect("postgres")

	// likeEscaper neutralizes LIKE wildcards in user-supplied terms.
	likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
)

// ProductRepository implements repository.ProductRepository on a products
// table of (id TEXT PRIMARY KEY, document JSONB).
type ProductRepository struct {
	db database.DBTX
}

var _ repository.ProductRepository = (*ProductRepository)(nil)

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// Count returns the number of documents matching f.
func (r *ProductRepository) Count(ctx context.Context, f filter.Expression) (n int, err error) {
	stmt := where(dialect.From(productsTable).Select(goqu.COUNT(goqu.Star())), f)
	sql, args, err := stmt.Prepared(true).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}

	ctx, end := database.TraceQuery(ctx, "CountProducts", sql)
	defer func() { end(err) }()

	if err = r.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

// Find returns a page of matching documents ordered by id. The projection is
// applied after decoding so absent fields are omitted rather than null.
func (r *ProductRepository) Find(ctx context.Context, opts repository.FindOptions) (docs []domain.Document, err error) {
	docs = []domain.Document{}
	if opts.Limit <= 0 {
		return docs, nil
	}

	stmt := where(dialect.From(productsTable).Select(colDocument), opts.Filter).
		Order(goqu.C(colID).Asc()).
		Offset(uint(max(opts.Skip, 0))).
		Limit(uint(opts.Limit))
	sql, args, err := stmt.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build find query: %w", err)
	}

	ctx, end := database.TraceQuery(ctx, "FindProducts", sql)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var raw []byte
		if err = rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		var doc domain.Document
		if err = json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode product document: %w", err)
		}
		docs = append(docs, query.Project(doc, opts.Projection, domain.FieldID))
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return docs, nil
}

// FindByID retrieves a product document by its id.
func (r *ProductRepository) FindByID(ctx context.Context, id string) (doc domain.Document, err error) {
	sql, args, err := dialect.From(productsTable).
		Select(colDocument).
		Where(goqu.C(colID).Eq(id)).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build get query: %w", err)
	}

	ctx, end := database.TraceQuery(ctx, "GetProduct", sql)
	defer func() { end(err) }()

	var raw []byte
	if err = r.db.QueryRow(ctx, sql, args...).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	if err = json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode product document: %w", err)
	}
	return doc, nil
}

// InsertOne inserts a single product.
func (r *ProductRepository) InsertOne(ctx context.Context, p *domain.Product) (string, error) {
	if _, err := r.insert(ctx, "InsertProduct", []domain.Product{*p}); err != nil {
		return "", err
	}
	return p.ID, nil
}

// InsertMany inserts every product in one statement. On failure nothing is
// inserted.
func (r *ProductRepository) InsertMany(ctx context.Context, products []domain.Product) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}
	return r.insert(ctx, "InsertProducts", products)
}

func (r *ProductRepository) insert(ctx context.Context, op string, products []domain.Product) (n int, err error) {
	rows := make([][]any, len(products))
	for i := range products {
		raw, err := json.Marshal(&products[i])
		if err != nil {
			return 0, fmt.Errorf("encode product %s: %w", products[i].ID, err)
		}
		rows[i] = []any{products[i].ID, string(raw)}
	}

	sql, args, err := dialect.Insert(productsTable).
		Cols(colID, colDocument).
		Vals(rows...).
		Prepared(true).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build insert query: %w", err)
	}

	ctx, end := database.TraceQuery(ctx, op, sql)
	defer func() { end(err) }()

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return 0, apperrors.AlreadyExists("product", "id", database.ConflictingValue(err))
		}
		return 0, fmt.Errorf("insert products: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Reset removes every product.
func (r *ProductRepository) Reset(ctx context.Context) (err error) {
	sql, _, err := dialect.Truncate(productsTable).ToSQL()
	if err != nil {
		return fmt.Errorf("build truncate query: %w", err)
	}

	ctx, end := database.TraceQuery(ctx, "ResetProducts", sql)
	defer func() { end(err) }()

	if _, err = r.db.Exec(ctx, sql); err != nil {
		return fmt.Errorf("truncate products: %w", err)
	}
	return nil
}

func where(stmt *goqu.SelectDataset, f filter.Expression) *goqu.SelectDataset {
	if f.IsAll() {
		return stmt
	}
	return stmt.Where(filter.Walk[exp.Expression](f, sqlFilter{}))
}

// sqlFilter compiles a filter tree into goqu expressions over the JSONB
// document column.
type sqlFilter struct{}

func (sqlFilter) All() exp.Expression {
	return goqu.L("TRUE")
}

func (sqlFilter) Eq(field, value string) exp.Expression {
	if field == domain.FieldID {
		return goqu.C(colID).Eq(value)
	}
	return documentField(field).Eq(value)
}

func (sqlFilter) Contains(field, term string) exp.Expression {
	return documentField(field).ILike("%" + likeEscaper.Replace(term) + "%")
}

func (sqlFilter) And(children []exp.Expression) exp.Expression {
	return goqu.And(children...)
}

func (sqlFilter) Or(children []exp.Expression) exp.Expression {
	return goqu.Or(children...)
}

// documentField renders a dotted path as a text extraction from the
// document column, e.g. "brand.name" -> document->'brand'->>'name'.
func documentField(path string) exp.LiteralExpression {
	parts := strings.Split(path, ".")
	var b strings.Builder
	b.WriteString(colDocument)
	args := make([]any, len(parts))
	for i, p := range parts {
		if i == len(parts)-1 {
			b.WriteString("->>?")
		} else {
			b.WriteString("->?")
		}
		args[i] = p
	}
	return goqu.L(b.String(), args...)
}
