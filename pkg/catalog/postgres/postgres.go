package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"

	"github.com/lib/pq"

	"cartflow/pkg/catalog"
)

// Schema creates the products table read by Repository.
const Schema = "CREATE TABLE IF NOT EXISTS products (id TEXT PRIMARY KEY, title TEXT NOT NULL DEFAULT '', images TEXT[] NOT NULL DEFAULT '{}', price NUMERIC(12,2) NOT NULL DEFAULT 0 CHECK (price >= 0))"

// Repository reads products from PostgreSQL.
type Repository struct {
	db *sql.DB
}

// New creates a PostgreSQL catalog.
func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Lookup fetches the products whose id is in ids, in request order.
func (r *Repository) Lookup(ctx context.Context, ids []string) ([]catalog.Product, error) {
	ids = catalog.Distinct(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, "SELECT id,title,images,price FROM products WHERE id = ANY($1)", pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", catalog.ErrLookupFailed, err)
	}
	defer rows.Close()
	found := make(map[string]catalog.Product, len(ids))
	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(&p.ID, &p.Title, pq.Array(&p.Images), &p.Price); err != nil {
			return nil, fmt.Errorf("%w: %w", catalog.ErrLookupFailed, err)
		}
		found[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", catalog.ErrLookupFailed, err)
	}
	products := make([]catalog.Product, 0, len(found))
	for _, id := range ids {
		if p, ok := found[id]; ok {
			products = append(products, p)
		}
	}
	return products, nil
}

const upsertQuery = "INSERT INTO products (id,title,images,price) VALUES ($1,$2,$3,$4) ON CONFLICT (id) DO UPDATE SET title=$2, images=$3, price=$4"

// Seed upserts the JSON array of products read from src in one transaction
// and returns how many were written.
func (r *Repository) Seed(ctx context.Context, src io.Reader) (int, error) {
	var products []catalog.Product
	if err := json.NewDecoder(src).Decode(&products); err != nil {
		return 0, fmt.Errorf("decode seed: %w", err)
	}
	for _, p := range products {
		if p.ID == "" || p.Price.IsNegative() {
			return 0, fmt.Errorf("seed product %q: id required and price must be non-negative", p.ID)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	for _, p := range products {
		if _, err := tx.ExecContext(ctx, upsertQuery, p.ID, p.Title, pq.Array(p.Images), p.Price); err != nil {
			return 0, fmt.Errorf("seed product %q: %w", p.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(products), nil
}
