package product

import (
	"context"

	"github.com/antonminaichev/dermamart/internal/types/product"
)

type ProductRepository interface {
	CreateProduct(ctx context.Context, p *product.Product) error
	GetProduct(ctx context.Context, id string) (*product.Product, error)
	ListProducts(ctx context.Context) ([]product.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]product.Product, error)
	UpdateProduct(ctx context.Context, p *product.Product) error
	DeleteProduct(ctx context.Context, id string) error
}
