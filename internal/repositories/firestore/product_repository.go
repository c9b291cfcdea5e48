package firestore

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/shutterworks/api/internal/domain"
	pfirestore "github.com/shutterworks/api/internal/platform/firestore"
	"github.com/shutterworks/api/internal/repositories"
)

const productsCollection = "products"

// ProductRepository persists catalog products within Firestore.
type ProductRepository struct {
	base *pfirestore.BaseRepository[productDocument]
}

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[productDocument](provider, productsCollection, nil, nil)
	return &ProductRepository{base: base}, nil
}

// Get loads a product by its numeric identifier.
func (r *ProductRepository) Get(ctx context.Context, productID int64) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	if productID <= 0 {
		return domain.Product{}, errors.New("product repository: product id is required")
	}

	doc, err := r.base.Get(ctx, formatProductID(productID))
	if err != nil {
		return domain.Product{}, err
	}
	return decodeProductDocument(productID, doc.Data, doc.UpdateTime), nil
}

// Upsert persists the product using its numeric identifier as the document ID.
func (r *ProductRepository) Upsert(ctx context.Context, product domain.Product) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	if product.ID <= 0 {
		return domain.Product{}, errors.New("product repository: product id is required")
	}

	now := time.Now().UTC()
	if !product.UpdatedAt.IsZero() {
		now = product.UpdatedAt.UTC()
	}
	createdAt := product.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = now
	}

	doc := productDocument{
		Name:          strings.TrimSpace(product.Name),
		RegularRateM2: product.RegularRateM2,
		SaleRateM2:    product.SaleRateM2,
		Active:        product.Active,
		CreatedAt:     createdAt,
		UpdatedAt:     now,
	}

	result, err := r.base.Set(ctx, formatProductID(product.ID), doc)
	if err != nil {
		return domain.Product{}, err
	}

	saved := product
	saved.Name = doc.Name
	saved.CreatedAt = createdAt
	saved.UpdatedAt = result.UpdateTime
	return saved, nil
}

// ListActive returns every product currently offered for sale.
func (r *ProductRepository) ListActive(ctx context.Context) ([]domain.Product, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("product repository not initialised")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("active", "==", true).OrderBy("name", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		id, err := strconv.ParseInt(doc.ID, 10, 64)
		if err != nil {
			continue
		}
		products = append(products, decodeProductDocument(id, doc.Data, doc.UpdateTime))
	}
	return products, nil
}

func decodeProductDocument(id int64, doc productDocument, updateTime time.Time) domain.Product {
	updatedAt := doc.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = updateTime
	}
	return domain.Product{
		ID:            id,
		Name:          doc.Name,
		RegularRateM2: doc.RegularRateM2,
		SaleRateM2:    doc.SaleRateM2,
		Active:        doc.Active,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     updatedAt,
	}
}

func formatProductID(id int64) string {
	return strconv.FormatInt(id, 10)
}

type productDocument struct {
	Name          string    `firestore:"name"`
	RegularRateM2 float64   `firestore:"regularRateM2"`
	SaleRateM2    float64   `firestore:"saleRateM2"`
	Active        bool      `firestore:"active"`
	CreatedAt     time.Time `firestore:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)
