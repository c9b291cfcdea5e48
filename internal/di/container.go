package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shutterworks/api/internal/platform/config"
	"github.com/shutterworks/api/internal/repositories"
	"github.com/shutterworks/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Calculator services.PriceCalculator
	Catalog    services.CatalogService
	Cart       services.CartService
	Forms      services.FormService
	System     services.SystemService
}

// Options carries the cross-cutting collaborators the container threads into services.
type Options struct {
	Publisher services.EventPublisher
	Logger    func(context.Context, string, map[string]any)
	Clock     func() time.Time
	Build     services.BuildInfo
}

// Container wires repositories, services, and background infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// NewContainer constructs the runtime dependencies. Production wiring provides a Firestore
// registry, while tests can supply in-memory implementations.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, opts Options) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	svc, err := buildServices(ctx, reg, cfg, opts)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients, background workers, or caches.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(_ context.Context, reg repositories.Registry, cfg config.Config, opts Options) (Services, error) {
	var svc Services

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Products: reg.Products(),
		CacheTTL: cfg.Catalog.CacheTTL,
		Clock:    clock,
		Logger:   opts.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	calculator, err := services.NewPriceCalculator(services.PriceCalculatorDeps{
		Catalog:   catalogSvc,
		Publisher: opts.Publisher,
		Clock:     clock,
		Logger:    opts.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build price calculator: %w", err)
	}
	svc.Calculator = calculator

	cartSvc, err := services.NewCartService(services.CartServiceDeps{
		Repository: reg.Carts(),
		Tx:         reg,
		Calculator: calculator,
		Catalog:    catalogSvc,
		Publisher:  opts.Publisher,
		Clock:      clock,
		CartURL:    cfg.Basket.CartURL,
		Logger:     opts.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart service: %w", err)
	}
	svc.Cart = cartSvc

	formSvc, err := services.NewFormService(services.FormServiceDeps{
		Configs: reg.FormConfigs(),
		Catalog: catalogSvc,
		Cart:    cartSvc,
		Clock:   clock,
		Logger:  opts.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build form service: %w", err)
	}
	svc.Forms = formSvc

	if healthRepo := reg.Health(); healthRepo != nil {
		build := opts.Build
		if build.Environment == "" {
			build.Environment = cfg.Security.Environment
		}
		if build.StartedAt.IsZero() {
			build.StartedAt = clock().UTC()
		}
		systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
			HealthRepository: healthRepo,
			Clock:            clock,
			Build:            build,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build system service: %w", err)
		}
		svc.System = systemSvc
	}

	return svc, nil
}
