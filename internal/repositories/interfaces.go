package repositories

import (
	"context"

	domain "github.com/shutterworks/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Products() ProductRepository
	Carts() CartRepository
	FormConfigs() FormConfigRepository
	Health() HealthRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ProductRepository persists catalog products keyed by their numeric identifier.
type ProductRepository interface {
	Get(ctx context.Context, productID int64) (domain.Product, error)
	Upsert(ctx context.Context, product domain.Product) (domain.Product, error)
	ListActive(ctx context.Context) ([]domain.Product, error)
}

// CartRepository owns basket header + items persistence. Items travel inside
// the cart document; ReplaceItems swaps the full line set atomically.
type CartRepository interface {
	GetCart(ctx context.Context, cartID string) (domain.Cart, error)
	UpsertCart(ctx context.Context, cart domain.Cart) (domain.Cart, error)
	ReplaceItems(ctx context.Context, cartID string, items []domain.CartItem) (domain.Cart, error)
}

// FormConfigRepository stores the calculator configuration per form.
type FormConfigRepository interface {
	Get(ctx context.Context, formID int64) (domain.CalculatorConfig, error)
	Save(ctx context.Context, config domain.CalculatorConfig) (domain.CalculatorConfig, error)
}

// HealthRepository aggregates dependency signals for readiness probes.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
