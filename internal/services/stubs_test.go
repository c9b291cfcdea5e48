package services

import (
	"context"
	"errors"
	"sync"
	"time"

	domain "github.com/shutterworks/api/internal/domain"
)

// repoError satisfies repositories.RepositoryError for stubbed failures.
type repoError struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e repoError) Error() string       { return "repository error" }
func (e repoError) IsNotFound() bool    { return e.notFound }
func (e repoError) IsConflict() bool    { return e.conflict }
func (e repoError) IsUnavailable() bool { return e.unavailable }

type stubProductRepository struct {
	mu       sync.Mutex
	products map[int64]domain.Product
	getCalls int
	err      error
}

func (s *stubProductRepository) Get(_ context.Context, productID int64) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	if s.err != nil {
		return domain.Product{}, s.err
	}
	product, ok := s.products[productID]
	if !ok {
		return domain.Product{}, repoError{notFound: true}
	}
	return product, nil
}

func (s *stubProductRepository) Upsert(_ context.Context, product domain.Product) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return domain.Product{}, s.err
	}
	if s.products == nil {
		s.products = map[int64]domain.Product{}
	}
	s.products[product.ID] = product
	return product, nil
}

func (s *stubProductRepository) ListActive(context.Context) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.Product
	for _, product := range s.products {
		if product.Active {
			out = append(out, product)
		}
	}
	return out, nil
}

type stubCartRepository struct {
	mu        sync.Mutex
	carts     map[string]domain.Cart
	getErr    error
	upsertErr error
	upserts   int
}

func (s *stubCartRepository) GetCart(_ context.Context, cartID string) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return domain.Cart{}, s.getErr
	}
	cart, ok := s.carts[cartID]
	if !ok {
		return domain.Cart{}, repoError{notFound: true}
	}
	return cart, nil
}

func (s *stubCartRepository) UpsertCart(_ context.Context, cart domain.Cart) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if s.upsertErr != nil {
		return domain.Cart{}, s.upsertErr
	}
	if s.carts == nil {
		s.carts = map[string]domain.Cart{}
	}
	s.carts[cart.ID] = cart
	return cart, nil
}

func (s *stubCartRepository) ReplaceItems(ctx context.Context, cartID string, items []domain.CartItem) (domain.Cart, error) {
	cart, err := s.GetCart(ctx, cartID)
	if err != nil {
		return domain.Cart{}, err
	}
	cart.Items = items
	return s.UpsertCart(ctx, cart)
}

type stubUnitOfWork struct {
	mu   sync.Mutex
	runs int
	err  error
}

func (s *stubUnitOfWork) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	s.runs++
	err := s.err
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return fn(ctx)
}

func (s *stubUnitOfWork) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

type stubFormConfigRepository struct {
	mu      sync.Mutex
	configs map[int64]domain.CalculatorConfig
	err     error
}

func (s *stubFormConfigRepository) Get(_ context.Context, formID int64) (domain.CalculatorConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return domain.CalculatorConfig{}, s.err
	}
	config, ok := s.configs[formID]
	if !ok {
		return domain.CalculatorConfig{}, repoError{notFound: true}
	}
	return config, nil
}

func (s *stubFormConfigRepository) Save(_ context.Context, config domain.CalculatorConfig) (domain.CalculatorConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return domain.CalculatorConfig{}, s.err
	}
	if s.configs == nil {
		s.configs = map[int64]domain.CalculatorConfig{}
	}
	s.configs[config.FormID] = config
	return config, nil
}

type capturedEvent struct {
	name  string
	event domain.Event
}

type stubPublisher struct {
	mu     sync.Mutex
	events []capturedEvent
	err    error
}

func (s *stubPublisher) Publish(_ context.Context, event domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, capturedEvent{name: event.EventName(), event: event})
	return nil
}

func (s *stubPublisher) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.name)
	}
	return out
}

type logRecord struct {
	event  string
	fields map[string]any
}

type logRecorder struct {
	mu      sync.Mutex
	records []logRecord
}

func (r *logRecorder) log(_ context.Context, event string, fields map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, logRecord{event: event, fields: fields})
}

func (r *logRecorder) has(event string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.event == event {
			return true
		}
	}
	return false
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestCatalog(products map[int64]domain.Product) CatalogService {
	catalog, err := NewCatalogService(CatalogServiceDeps{
		Products: &stubProductRepository{products: products},
	})
	if err != nil {
		panic(err)
	}
	return catalog
}

var errStubUnavailable = errors.New("stub unavailable")
