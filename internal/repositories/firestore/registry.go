package firestore

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/shutterworks/api/internal/platform/firestore"
	"github.com/shutterworks/api/internal/repositories"
)

// Registry bundles the Firestore-backed repositories behind the repositories.Registry contract.
type Registry struct {
	provider    *pfirestore.Provider
	products    *ProductRepository
	carts       *CartRepository
	formConfigs *FormConfigRepository
	health      repositories.HealthRepository
}

// NewRegistry constructs every repository against the shared provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry: firestore provider is required")
	}

	products, err := NewProductRepository(provider)
	if err != nil {
		return nil, err
	}
	carts, err := NewCartRepository(provider)
	if err != nil {
		return nil, err
	}
	formConfigs, err := NewFormConfigRepository(provider)
	if err != nil {
		return nil, err
	}

	health, err := repositories.NewDependencyHealthRepository([]repositories.DependencyCheck{
		{
			Name: "firestore",
			Check: func(ctx context.Context) error {
				_, err := provider.Client(ctx)
				return err
			},
		},
	})
	if err != nil {
		return nil, err
	}

	return &Registry{
		provider:    provider,
		products:    products,
		carts:       carts,
		formConfigs: formConfigs,
		health:      health,
	}, nil
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

// Products returns the product repository.
func (r *Registry) Products() repositories.ProductRepository { return r.products }

// Carts returns the basket repository.
func (r *Registry) Carts() repositories.CartRepository { return r.carts }

// FormConfigs returns the form configuration repository.
func (r *Registry) FormConfigs() repositories.FormConfigRepository { return r.formConfigs }

// Health returns the dependency health repository.
func (r *Registry) Health() repositories.HealthRepository { return r.health }

// RunInTx executes fn within a Firestore transaction.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if r == nil || r.provider == nil {
		return errors.New("registry: firestore provider is required")
	}
	return r.provider.RunTransaction(ctx, func(txCtx context.Context, _ *firestore.Transaction) error {
		return fn(txCtx)
	})
}

var _ repositories.Registry = (*Registry)(nil)
