package sqlxrepos

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/coursedesk/core"
	"github.com/trezcool/coursedesk/core/product"
)

const (
	productColumns = `p.id, p.name, p.description, p.image_url, p.price_in_dollars, p.status, p.created_at, p.updated_at`

	selectProducts = `SELECT ` + productColumns + `,
		COALESCE(array_agg(cp.course_id::text ORDER BY cp.course_id) FILTER (WHERE cp.course_id IS NOT NULL), '{}') AS course_ids
		FROM products p
		LEFT JOIN course_products cp ON cp.product_id = p.id`
)

type productRow struct {
	ID             string         `db:"id"`
	Name           string         `db:"name"`
	Description    string         `db:"description"`
	ImageURL       string         `db:"image_url"`
	PriceInDollars int            `db:"price_in_dollars"`
	Status         string         `db:"status"`
	CourseIDs      pq.StringArray `db:"course_ids"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func (row productRow) product() product.Product {
	return product.Product{
		ID:             row.ID,
		Name:           row.Name,
		Description:    row.Description,
		ImageURL:       row.ImageURL,
		PriceInDollars: row.PriceInDollars,
		Status:         row.Status,
		CourseIDs:      row.CourseIDs,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}

type productRepository struct {
	base
}

var _ product.Repository = (*productRepository)(nil) // interface compliance check

func NewProductRepository(exec core.DBExecutor) *productRepository {
	return &productRepository{base{exec: exec}}
}

func (repo productRepository) QueryProducts(ctx context.Context, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]product.Product, error) {
	var rows []productRow
	q := selectProducts + ` GROUP BY p.id ORDER BY ` + core.OrderByClause(ordering, product.Orderings, "name ASC")
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting products")
	}
	products := make([]product.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, row.product())
	}
	return products, nil
}

func (repo productRepository) GetProduct(ctx context.Context, id string, exec ...core.DBExecutor) (product.Product, error) {
	if !validID(id) {
		return product.Product{}, product.ErrNotFound
	}
	var row productRow
	q := selectProducts + ` WHERE p.id = $1 GROUP BY p.id`
	if err := repo.getExec(exec).GetContext(ctx, &row, q, id); err != nil {
		return product.Product{}, trapNoRowsErr(err, product.ErrNotFound, "finding product")
	}
	return row.product(), nil
}

func (repo productRepository) CreateProduct(ctx context.Context, p product.Product, exec ...core.DBExecutor) (product.Product, error) {
	var row productRow
	q := `WITH p AS (
			INSERT INTO products (name, description, image_url, price_in_dollars, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING *
		), links AS (
			INSERT INTO course_products (course_id, product_id)
			SELECT DISTINCT c.id, p.id FROM p, unnest($8::uuid[]) AS c(id)
		)
		SELECT ` + productColumns + `, $8::text[] AS course_ids FROM p`
	err := repo.getExec(exec).GetContext(ctx, &row, q,
		p.Name, p.Description, p.ImageURL, p.PriceInDollars, p.Status, p.CreatedAt, p.UpdatedAt, pq.Array(p.CourseIDs))
	if err != nil {
		return product.Product{}, errors.Wrap(err, "inserting product")
	}
	return row.product(), nil
}

func (repo productRepository) UpdateProduct(ctx context.Context, p product.Product, exec ...core.DBExecutor) (product.Product, error) {
	if !validID(p.ID) {
		return product.Product{}, product.ErrNotFound
	}
	var row productRow
	q := `WITH p AS (
			UPDATE products
			SET name = $2, description = $3, image_url = $4, price_in_dollars = $5, status = $6, updated_at = $7
			WHERE id = $1
			RETURNING *
		), unlinked AS (
			DELETE FROM course_products cp USING p
			WHERE cp.product_id = p.id AND NOT cp.course_id = ANY($8::uuid[])
		), linked AS (
			INSERT INTO course_products (course_id, product_id)
			SELECT DISTINCT c.id, p.id FROM p, unnest($8::uuid[]) AS c(id)
			ON CONFLICT DO NOTHING
		)
		SELECT ` + productColumns + `, $8::text[] AS course_ids FROM p`
	err := repo.getExec(exec).GetContext(ctx, &row, q,
		p.ID, p.Name, p.Description, p.ImageURL, p.PriceInDollars, p.Status, p.UpdatedAt, pq.Array(p.CourseIDs))
	if err != nil {
		return product.Product{}, trapNoRowsErr(err, product.ErrNotFound, "updating product")
	}
	return row.product(), nil
}

func (repo productRepository) DeleteProduct(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return repo.deleteByID(ctx, "products", id, product.ErrNotFound, exec)
}
