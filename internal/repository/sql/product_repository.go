package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/centremart/catalog-service/internal/model"
	"github.com/centremart/catalog-service/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const productColumns = `id, item_code, description, base_unit, group_id, group_name, sub_group, supplier_name,
	last_cp, taxable_cp, sp, stock, last_purc_miti, last_purc_qty, sales_qty, item_number, margin_percent, mrp,
	image_url, image_urls, created_at, updated_at`

// ProductRepository implements repository.ProductStore against Postgres.
type ProductRepository struct {
	db  *sql.DB
	txn *sql.Tx
}

// NewProductRepository creates a new ProductRepository instance.
func NewProductRepository(db *sql.DB) repository.ProductStore {
	return &ProductRepository{db: db}
}

// getExecutor returns the active executor (transaction if exists, otherwise db)
func (r *ProductRepository) getExecutor() dbExecutor {
	if r.txn != nil {
		return r.txn
	}
	return r.db
}

// WithinTransaction executes a function within a database transaction.
// Batch operations run inside one so a failed batch commits nothing.
func (r *ProductRepository) WithinTransaction(ctx context.Context, fn func(store repository.ProductStore) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txRepo := &ProductRepository{
		db:  r.db,
		txn: tx,
	}

	if err := fn(txRepo); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("failed to rollback transaction: %w (original error: %v)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Create inserts a new product into the database.
func (r *ProductRepository) Create(ctx context.Context, product *model.Product) (*model.Product, error) {
	if product.ID == uuid.Nil {
		product.InitMeta()
	}

	query := `INSERT INTO products (` + productColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`

	executor := r.getExecutor()
	stmt, err := executor.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, insertArgs(product)...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &repository.UniqueConstraintError{Detail: "item_code " + product.ItemCode}
		}
		return nil, fmt.Errorf("failed to insert product: %w", err)
	}

	return product, nil
}

// FindByID retrieves a single product by ID.
func (r *ProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	executor := r.getExecutor()
	stmt, err := executor.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	product, err := scanProduct(stmt.QueryRowContext(ctx, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product %s: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return product, nil
}

// List retrieves products for the admin listing with optional field filters
// and cursor pagination.
func (r *ProductRepository) List(ctx context.Context, query repository.Query) ([]*model.Product, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + productColumns + ` FROM products WHERE 1=1`)

	var args []interface{}
	argIndex := 1

	if v, ok := query.Values[repository.GroupNameField]; ok && v != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND group_name = $%d", argIndex))
		args = append(args, v)
		argIndex++
	}
	if v, ok := query.Values[repository.SupplierField]; ok && v != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND supplier_name = $%d", argIndex))
		args = append(args, v)
		argIndex++
	}

	if query.Paginator != nil {
		queryBuilder.WriteString(fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIndex, argIndex+1))
		args = append(args, query.Paginator.LastCreatedAt, query.Paginator.LastID)
		argIndex += 2
	}

	queryBuilder.WriteString(" ORDER BY created_at DESC, id DESC")

	limit := query.Limit
	if limit <= 0 {
		limit = repository.DefaultPaginationLimit
	}
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argIndex))
	args = append(args, limit)

	return r.queryProducts(ctx, queryBuilder.String(), args...)
}

// PageByID returns products strictly after the given id, ordered by id. A
// zero id starts from the beginning. A short page signals the final page.
func (r *ProductRepository) PageByID(ctx context.Context, after uuid.UUID, limit int) ([]*model.Product, error) {
	if after == uuid.Nil {
		query := `SELECT ` + productColumns + ` FROM products ORDER BY id LIMIT $1`
		return r.queryProducts(ctx, query, limit)
	}
	query := `SELECT ` + productColumns + ` FROM products WHERE id > $1 ORDER BY id LIMIT $2`
	return r.queryProducts(ctx, query, after, limit)
}

// KeyPage returns (id, item_code) pairs strictly after the given id, ordered
// by id.
func (r *ProductRepository) KeyPage(ctx context.Context, after uuid.UUID, limit int) ([]repository.KeyRow, error) {
	query := `SELECT id, item_code FROM products WHERE id > $1 ORDER BY id LIMIT $2`
	args := []interface{}{after, limit}
	if after == uuid.Nil {
		query = `SELECT id, item_code FROM products ORDER BY id LIMIT $1`
		args = []interface{}{limit}
	}

	executor := r.getExecutor()
	stmt, err := executor.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query key page: %w", err)
	}
	defer rows.Close()

	var keys []repository.KeyRow
	for rows.Next() {
		var key repository.KeyRow
		if err := rows.Scan(&key.ID, &key.ItemCode); err != nil {
			return nil, fmt.Errorf("failed to scan key row: %w", err)
		}
		keys = append(keys, key)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return keys, nil
}

// BatchInsert inserts the given products. Callers wrap it in
// WithinTransaction so the batch is all-or-nothing.
func (r *ProductRepository) BatchInsert(ctx context.Context, products []*model.Product) error {
	if len(products) == 0 {
		return nil
	}

	query := `INSERT INTO products (` + productColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`

	executor := r.getExecutor()
	stmt, err := executor.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	for _, product := range products {
		if product.ID == uuid.Nil {
			product.InitMeta()
		}
		if _, err := stmt.ExecContext(ctx, insertArgs(product)...); err != nil {
			if isUniqueViolation(err) {
				return &repository.UniqueConstraintError{Detail: "item_code " + product.ItemCode}
			}
			return fmt.Errorf("failed to insert product %s: %w", product.ItemCode, err)
		}
	}

	return nil
}

// BatchUpdate rewrites all reconcilable fields of the given products by id,
// including the image fields the caller merged back from the current rows.
func (r *ProductRepository) BatchUpdate(ctx context.Context, products []*model.Product) error {
	if len(products) == 0 {
		return nil
	}

	query := `UPDATE products SET
		item_code = $2, description = $3, base_unit = $4, group_id = $5, group_name = $6, sub_group = $7,
		supplier_name = $8, last_cp = $9, taxable_cp = $10, sp = $11, stock = $12, last_purc_miti = $13,
		last_purc_qty = $14, sales_qty = $15, item_number = $16, margin_percent = $17, mrp = $18,
		image_url = $19, image_urls = $20, updated_at = $21
		WHERE id = $1`

	executor := r.getExecutor()
	stmt, err := executor.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare update statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, product := range products {
		result, err := stmt.ExecContext(ctx,
			product.ID, product.ItemCode, product.Description, product.BaseUnit, product.GroupID,
			product.GroupName, product.SubGroup, product.SupplierName,
			nullFloat(product.LastCP), nullFloat(product.TaxableCP), nullFloat(product.SP), nullFloat(product.Stock),
			product.LastPurcMiti, nullFloat(product.LastPurcQty), nullFloat(product.SalesQty),
			product.ItemNumber, nullFloat(product.MarginPct), nullFloat(product.MRP),
			nullString(product.ImageURL), pq.Array(urlsOrEmpty(product.ImageURLs)), now,
		)
		if err != nil {
			return fmt.Errorf("failed to update product %s: %w", product.ID, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("product %s: %w", product.ID, repository.ErrNotFound)
		}
	}

	return nil
}

// ProtectedFields returns the current image references for the given ids.
func (r *ProductRepository) ProtectedFields(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.ImageRefs, error) {
	refs := make(map[uuid.UUID]model.ImageRefs, len(ids))
	if len(ids) == 0 {
		return refs, nil
	}

	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
	}

	query := `SELECT id, image_url, image_urls FROM products WHERE id = ANY($1::uuid[])`

	executor := r.getExecutor()
	stmt, err := executor.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, pq.Array(idStrings))
	if err != nil {
		return nil, fmt.Errorf("failed to query protected fields: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var imageURL sql.NullString
		var imageURLs pq.StringArray
		if err := rows.Scan(&id, &imageURL, &imageURLs); err != nil {
			return nil, fmt.Errorf("failed to scan protected fields: %w", err)
		}
		ref := model.ImageRefs{ImageURLs: imageURLs}
		if imageURL.Valid {
			url := imageURL.String
			ref.ImageURL = &url
		}
		refs[id] = ref
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return refs, nil
}

// AddImageReference appends a media reference to a product, also setting the
// primary reference when the product had none.
func (r *ProductRepository) AddImageReference(ctx context.Context, id uuid.UUID, url string) error {
	query := `UPDATE products SET
		image_urls = CASE WHEN $2 = ANY(image_urls) THEN image_urls ELSE array_append(image_urls, $2) END,
		image_url = COALESCE(image_url, $2),
		updated_at = $3
		WHERE id = $1`

	executor := r.getExecutor()
	stmt, err := executor.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare update statement: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, id, url, time.Now())
	if err != nil {
		return fmt.Errorf("failed to add image reference: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("product %s: %w", id, repository.ErrNotFound)
	}

	return nil
}

// RemoveImageReference removes a media reference from a product. When the
// removed reference was the primary one, the next remaining reference (or
// NULL) becomes primary. Returns whether the reference was present.
func (r *ProductRepository) RemoveImageReference(ctx context.Context, id uuid.UUID, url string) (bool, error) {
	query := `UPDATE products SET
		image_urls = array_remove(image_urls, $2),
		image_url = (array_remove(image_urls, $2))[1],
		updated_at = $3
		WHERE id = $1 AND $2 = ANY(image_urls)`

	executor := r.getExecutor()
	stmt, err := executor.PrepareContext(ctx, query)
	if err != nil {
		return false, fmt.Errorf("failed to prepare update statement: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, id, url, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to remove image reference: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected > 0, nil
}

func (r *ProductRepository) queryProducts(ctx context.Context, query string, args ...interface{}) ([]*model.Product, error) {
	executor := r.getExecutor()
	stmt, err := executor.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*model.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return products, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*model.Product, error) {
	var p model.Product
	var lastCP, taxableCP, sp, stock, lastPurcQty, salesQty, marginPct, mrp sql.NullFloat64
	var imageURL sql.NullString
	var imageURLs pq.StringArray

	err := row.Scan(
		&p.ID, &p.ItemCode, &p.Description, &p.BaseUnit, &p.GroupID, &p.GroupName, &p.SubGroup, &p.SupplierName,
		&lastCP, &taxableCP, &sp, &stock, &p.LastPurcMiti, &lastPurcQty, &salesQty, &p.ItemNumber, &marginPct, &mrp,
		&imageURL, &imageURLs, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.LastCP = floatPtr(lastCP)
	p.TaxableCP = floatPtr(taxableCP)
	p.SP = floatPtr(sp)
	p.Stock = floatPtr(stock)
	p.LastPurcQty = floatPtr(lastPurcQty)
	p.SalesQty = floatPtr(salesQty)
	p.MarginPct = floatPtr(marginPct)
	p.MRP = floatPtr(mrp)
	p.ImageURLs = imageURLs
	if imageURL.Valid {
		url := imageURL.String
		p.ImageURL = &url
	}

	return &p, nil
}

func insertArgs(p *model.Product) []interface{} {
	return []interface{}{
		p.ID, p.ItemCode, p.Description, p.BaseUnit, p.GroupID, p.GroupName, p.SubGroup, p.SupplierName,
		nullFloat(p.LastCP), nullFloat(p.TaxableCP), nullFloat(p.SP), nullFloat(p.Stock),
		p.LastPurcMiti, nullFloat(p.LastPurcQty), nullFloat(p.SalesQty), p.ItemNumber,
		nullFloat(p.MarginPct), nullFloat(p.MRP),
		nullString(p.ImageURL), pq.Array(urlsOrEmpty(p.ImageURLs)), p.CreatedAt, p.UpdatedAt,
	}
}

// urlsOrEmpty keeps the NOT NULL image_urls column satisfied for nil slices.
func urlsOrEmpty(urls []string) []string {
	if urls == nil {
		return []string{}
	}
	return urls
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationErrCode
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
