package memdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/coursedesk/core"
	"github.com/trezcool/coursedesk/core/product"
)

type productRepository struct {
	db *productTable
}

var _ product.Repository = (*productRepository)(nil) // interface compliance check

func NewProductRepository(db *DB) product.Repository {
	return &productRepository{db: db.product}
}

func (repo *productRepository) QueryProducts(_ context.Context, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]product.Product, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	products := make([]product.Product, 0, len(repo.db.table))
	for _, p := range repo.db.table {
		products = append(products, clonedProduct(*p))
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	sort.SliceStable(products, func(i, j int) bool {
		for _, ord := range ordering {
			c := compareProducts(products[i], products[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
	return products, nil
}

func compareProducts(a, b product.Product, field string) int {
	switch field {
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "price_in_dollars":
		return a.PriceInDollars - b.PriceInDollars
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	}
	return 0
}

func (repo *productRepository) GetProduct(_ context.Context, id string, _ ...core.DBExecutor) (product.Product, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.table[id]; ok {
		return clonedProduct(*p), nil
	}
	return product.Product{}, product.ErrNotFound
}

func (repo *productRepository) CreateProduct(_ context.Context, p product.Product, _ ...core.DBExecutor) (product.Product, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	p.ID = uuid.New().String()
	p = clonedProduct(p)
	repo.db.table[p.ID] = &p
	return clonedProduct(p), nil
}

func (repo *productRepository) UpdateProduct(_ context.Context, p product.Product, _ ...core.DBExecutor) (product.Product, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[p.ID]; !ok {
		return product.Product{}, product.ErrNotFound
	}
	p = clonedProduct(p)
	repo.db.table[p.ID] = &p
	return clonedProduct(p), nil
}

func (repo *productRepository) DeleteProduct(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return product.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}

func clonedProduct(p product.Product) product.Product {
	p.CourseIDs = append([]string(nil), p.CourseIDs...)
	return p
}
