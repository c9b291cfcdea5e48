package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	domain "github.com/shutterworks/api/internal/domain"
	"github.com/shutterworks/api/internal/repositories"
)

const defaultProductCacheTTL = 5 * time.Minute

var (
	// ErrCatalogProductNotFound indicates the product does not exist in the catalog.
	ErrCatalogProductNotFound = errors.New("catalog service: product not found")
	// ErrCatalogInvalidInput indicates the caller supplied invalid data to a catalog operation.
	ErrCatalogInvalidInput = errors.New("catalog service: invalid input")
	// ErrCatalogUnavailable indicates the catalog backend cannot fulfil the request.
	ErrCatalogUnavailable = errors.New("catalog service: unavailable")
)

// CatalogServiceDeps bundles constructor inputs for the catalog service.
type CatalogServiceDeps struct {
	Products repositories.ProductRepository
	CacheTTL time.Duration
	Clock    func() time.Time
	Logger   func(context.Context, string, map[string]any)
}

type catalogService struct {
	repo   repositories.ProductRepository
	cache  *productCache
	now    func() time.Time
	logger func(context.Context, string, map[string]any)
}

// NewCatalogService constructs the catalog service with a read-through product cache.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil {
		return nil, errors.New("catalog service: product repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	now := func() time.Time { return clock().UTC() }

	ttl := deps.CacheTTL
	if ttl <= 0 {
		ttl = defaultProductCacheTTL
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &catalogService{
		repo:   deps.Products,
		cache:  newProductCache(ttl, now),
		now:    now,
		logger: logger,
	}, nil
}

func (s *catalogService) GetProduct(ctx context.Context, productID int64) (Product, error) {
	if productID <= 0 {
		return Product{}, ErrCatalogInvalidInput
	}

	if product, ok := s.cache.Get(productID); ok {
		return product, nil
	}

	product, err := s.repo.Get(ctx, productID)
	if err != nil {
		return Product{}, s.translateRepoError(err)
	}

	s.cache.Put(productID, product)
	return product, nil
}

func (s *catalogService) ProductExists(ctx context.Context, productID int64) (bool, error) {
	_, err := s.GetProduct(ctx, productID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrCatalogProductNotFound) {
		return false, nil
	}
	return false, err
}

func (s *catalogService) ProductName(ctx context.Context, productID int64) (string, error) {
	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return "", err
	}
	return product.Name, nil
}

func (s *catalogService) ListActiveProducts(ctx context.Context) ([]Product, error) {
	products, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, s.translateRepoError(err)
	}
	return products, nil
}

func (s *catalogService) UpsertProduct(ctx context.Context, cmd UpsertProductCommand) (Product, error) {
	name := strings.TrimSpace(cmd.Name)
	if cmd.ID <= 0 || name == "" || cmd.RegularRateM2 <= 0 || cmd.SaleRateM2 < 0 {
		return Product{}, ErrCatalogInvalidInput
	}

	product := Product{
		ID:            cmd.ID,
		Name:          name,
		RegularRateM2: cmd.RegularRateM2,
		SaleRateM2:    cmd.SaleRateM2,
		Active:        cmd.Active,
		UpdatedAt:     s.now(),
	}

	saved, err := s.repo.Upsert(ctx, product)
	if err != nil {
		return Product{}, s.translateRepoError(err)
	}

	s.cache.Invalidate(cmd.ID)
	s.logger(ctx, "catalog.product_upserted", map[string]any{
		"productId": saved.ID,
		"active":    saved.Active,
	})
	return saved, nil
}

func (s *catalogService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return ErrCatalogProductNotFound
	}
	return ErrCatalogUnavailable
}

type productCache struct {
	ttl time.Duration
	now func() time.Time
	mu  sync.RWMutex
	m   map[int64]productCacheEntry
}

type productCacheEntry struct {
	product domain.Product
	expires time.Time
}

func newProductCache(ttl time.Duration, now func() time.Time) *productCache {
	return &productCache{
		ttl: ttl,
		now: now,
		m:   make(map[int64]productCacheEntry),
	}
}

func (c *productCache) Get(id int64) (domain.Product, bool) {
	c.mu.RLock()
	entry, ok := c.m[id]
	c.mu.RUnlock()
	if !ok {
		return domain.Product{}, false
	}
	if c.now().After(entry.expires) {
		c.mu.Lock()
		delete(c.m, id)
		c.mu.Unlock()
		return domain.Product{}, false
	}
	return entry.product, true
}

func (c *productCache) Put(id int64, product domain.Product) {
	c.mu.Lock()
	c.m[id] = productCacheEntry{product: product, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *productCache) Invalidate(id int64) {
	c.mu.Lock()
	delete(c.m, id)
	c.mu.Unlock()
}
