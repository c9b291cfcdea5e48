package handlers

import (
	"context"

	domain "github.com/shutterworks/api/internal/domain"
	"github.com/shutterworks/api/internal/services"
)

type stubCalculator struct {
	quote    domain.PriceQuote
	lastCmd  services.QuoteCommand
	callouts int
}

func (s *stubCalculator) Calculate(_ context.Context, cmd services.QuoteCommand) domain.PriceQuote {
	s.lastCmd = cmd
	s.callouts++
	return s.quote
}

type stubCatalog struct {
	products map[int64]domain.Product
	err      error
	upserted []services.UpsertProductCommand
}

func (s *stubCatalog) GetProduct(_ context.Context, productID int64) (domain.Product, error) {
	if s.err != nil {
		return domain.Product{}, s.err
	}
	product, ok := s.products[productID]
	if !ok {
		return domain.Product{}, services.ErrCatalogProductNotFound
	}
	return product, nil
}

func (s *stubCatalog) ProductExists(ctx context.Context, productID int64) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	_, ok := s.products[productID]
	return ok, nil
}

func (s *stubCatalog) ProductName(ctx context.Context, productID int64) (string, error) {
	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return "", err
	}
	return product.Name, nil
}

func (s *stubCatalog) ListActiveProducts(context.Context) ([]domain.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubCatalog) UpsertProduct(_ context.Context, cmd services.UpsertProductCommand) (domain.Product, error) {
	if s.err != nil {
		return domain.Product{}, s.err
	}
	s.upserted = append(s.upserted, cmd)
	product := domain.Product{
		ID:            cmd.ID,
		Name:          cmd.Name,
		RegularRateM2: cmd.RegularRateM2,
		SaleRateM2:    cmd.SaleRateM2,
		Active:        cmd.Active,
	}
	if s.products == nil {
		s.products = make(map[int64]domain.Product)
	}
	s.products[cmd.ID] = product
	return product, nil
}

type stubCartService struct {
	cart           domain.Cart
	result         services.AddItemResult
	err            error
	lastAdd        services.AddItemCommand
	lastRemovedKey string
}

func (s *stubCartService) GetOrCreateCart(_ context.Context, cartID string) (domain.Cart, error) {
	if s.err != nil {
		return domain.Cart{}, s.err
	}
	cart := s.cart
	if cart.ID == "" {
		cart.ID = cartID
	}
	return cart, nil
}

func (s *stubCartService) AddItem(_ context.Context, cmd services.AddItemCommand) (services.AddItemResult, error) {
	s.lastAdd = cmd
	if s.err != nil {
		return services.AddItemResult{}, s.err
	}
	result := s.result
	if result.Cart.ID == "" {
		result.Cart.ID = cmd.CartID
	}
	return result, nil
}

func (s *stubCartService) RemoveItem(_ context.Context, cartID, itemKey string) (domain.Cart, error) {
	s.lastRemovedKey = itemKey
	if s.err != nil {
		return domain.Cart{}, s.err
	}
	cart := s.cart
	if cart.ID == "" {
		cart.ID = cartID
	}
	return cart, nil
}

func (s *stubCartService) RecalculateTotals(_ context.Context, cartID string) (domain.Cart, error) {
	if s.err != nil {
		return domain.Cart{}, s.err
	}
	cart := s.cart
	if cart.ID == "" {
		cart.ID = cartID
	}
	return cart, nil
}

func (s *stubCartService) PrepareItemData(context.Context, services.PrepareItemCommand) (map[string]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return map[string]string{}, nil
}

func (s *stubCartService) ProductExists(context.Context, int64) (bool, error) {
	return s.err == nil, s.err
}

func (s *stubCartService) ProductName(context.Context, int64) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "Roman Blind", nil
}

type stubFormService struct {
	result     services.SubmissionResult
	view       services.CalculatorView
	config     domain.CalculatorConfig
	validation domain.ValidationResult
	err        error
	lastSubmit services.SubmissionCommand
	lastSave   services.SaveConfigCommand
}

func (s *stubFormService) HandleSubmission(_ context.Context, cmd services.SubmissionCommand) (services.SubmissionResult, error) {
	s.lastSubmit = cmd
	if s.err != nil {
		return services.SubmissionResult{}, s.err
	}
	result := s.result
	if result.Basket.Cart.ID == "" {
		result.Basket.Cart.ID = cmd.CartID
	}
	return result, nil
}

func (s *stubFormService) CalculatorViewForForm(_ context.Context, formID int64) (services.CalculatorView, error) {
	if s.err != nil {
		return services.CalculatorView{}, s.err
	}
	view := s.view
	if view.FormID == 0 {
		view.FormID = formID
	}
	return view, nil
}

func (s *stubFormService) GetConfig(_ context.Context, formID int64) (domain.CalculatorConfig, error) {
	if s.err != nil {
		return domain.CalculatorConfig{}, s.err
	}
	config := s.config
	if config.FormID == 0 {
		config.FormID = formID
	}
	return config, nil
}

func (s *stubFormService) SaveConfig(_ context.Context, cmd services.SaveConfigCommand) (domain.CalculatorConfig, domain.ValidationResult, error) {
	s.lastSave = cmd
	if s.err != nil {
		return domain.CalculatorConfig{}, domain.ValidationResult{}, s.err
	}
	return cmd.Config, s.validation, nil
}

type stubSystemService struct {
	report domain.SystemHealthReport
	err    error
}

func (s *stubSystemService) HealthReport(context.Context) (domain.SystemHealthReport, error) {
	return s.report, s.err
}
