package masterdata

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository persists masterdata in PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const uniqueViolation = "23505"

func mapInsertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateCode
	}
	return err
}

const productColumns = `id, code, name, unit_price, stock, min_stock, is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.UnitPrice, &p.Stock, &p.MinStock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// CreateProduct inserts a product.
func (r *PGRepository) CreateProduct(ctx context.Context, p Product) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO products (code, name, unit_price, stock, min_stock, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		p.Code, p.Name, p.UnitPrice, p.Stock, p.MinStock, p.IsActive, p.CreatedAt, p.UpdatedAt).Scan(&id)
	if err != nil {
		return 0, mapInsertError(err)
	}
	return id, nil
}

// GetProduct loads a product by ID.
func (r *PGRepository) GetProduct(ctx context.Context, id int64) (*Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

// UpdateProduct writes catalog fields. Stock is intentionally excluded.
func (r *PGRepository) UpdateProduct(ctx context.Context, p Product) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET name = $2, unit_price = $3, min_stock = $4, is_active = $5, updated_at = $6 WHERE id = $1`,
		p.ID, p.Name, p.UnitPrice, p.MinStock, p.IsActive, p.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// ListProducts returns a catalog page and the total row count.
func (r *PGRepository) ListProducts(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	page, perPage := normalise(filter)
	pattern := "%" + filter.Search + "%"

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE ($1 = '%%' OR name ILIKE $1 OR code ILIKE $1)`, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products
WHERE ($1 = '%%' OR name ILIKE $1 OR code ILIKE $1) ORDER BY name ASC LIMIT $2 OFFSET $3`,
		pattern, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

// ListProductsBelowMinStock reports products at or below their threshold.
func (r *PGRepository) ListProductsBelowMinStock(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products
WHERE is_active AND stock <= min_stock ORDER BY stock ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

const clientColumns = `id, name, document, phone, email, address, created_at, updated_at`

// CreateClient inserts a client.
func (r *PGRepository) CreateClient(ctx context.Context, c Client) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO clients (name, document, phone, email, address, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		c.Name, c.Document, c.Phone, c.Email, c.Address, c.CreatedAt, c.UpdatedAt).Scan(&id)
	if err != nil {
		return 0, mapInsertError(err)
	}
	return id, nil
}

// GetClient loads a client by ID.
func (r *PGRepository) GetClient(ctx context.Context, id int64) (*Client, error) {
	var c Client
	err := r.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Document, &c.Phone, &c.Email, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListClients returns a client page and the total row count.
func (r *PGRepository) ListClients(ctx context.Context, filter ListFilter) ([]Client, int, error) {
	page, perPage := normalise(filter)
	pattern := "%" + filter.Search + "%"

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM clients WHERE ($1 = '%%' OR name ILIKE $1 OR document ILIKE $1)`, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `SELECT `+clientColumns+` FROM clients
WHERE ($1 = '%%' OR name ILIKE $1 OR document ILIKE $1) ORDER BY name ASC LIMIT $2 OFFSET $3`,
		pattern, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	clients := []Client{}
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Document, &c.Phone, &c.Email, &c.Address, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		clients = append(clients, c)
	}
	return clients, total, rows.Err()
}

const providerColumns = `id, name, company, phone, email, address, created_at, updated_at`

// CreateProvider inserts a provider.
func (r *PGRepository) CreateProvider(ctx context.Context, p Provider) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO providers (name, company, phone, email, address, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		p.Name, p.Company, p.Phone, p.Email, p.Address, p.CreatedAt, p.UpdatedAt).Scan(&id)
	if err != nil {
		return 0, mapInsertError(err)
	}
	return id, nil
}

// GetProvider loads a provider by ID.
func (r *PGRepository) GetProvider(ctx context.Context, id int64) (*Provider, error) {
	var p Provider
	err := r.pool.QueryRow(ctx, `SELECT `+providerColumns+` FROM providers WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Company, &p.Phone, &p.Email, &p.Address, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListProviders returns a provider page and the total row count.
func (r *PGRepository) ListProviders(ctx context.Context, filter ListFilter) ([]Provider, int, error) {
	page, perPage := normalise(filter)
	pattern := "%" + filter.Search + "%"

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM providers WHERE ($1 = '%%' OR name ILIKE $1 OR company ILIKE $1)`, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `SELECT `+providerColumns+` FROM providers
WHERE ($1 = '%%' OR name ILIKE $1 OR company ILIKE $1) ORDER BY name ASC LIMIT $2 OFFSET $3`,
		pattern, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	providers := []Provider{}
	for rows.Next() {
		var p Provider
		if err := rows.Scan(&p.ID, &p.Name, &p.Company, &p.Phone, &p.Email, &p.Address, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		providers = append(providers, p)
	}
	return providers, total, rows.Err()
}

func normalise(filter ListFilter) (page, perPage int) {
	page = filter.Page
	if page <= 0 {
		page = 1
	}
	perPage = filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	return page, perPage
}
