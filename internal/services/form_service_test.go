package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	domain "github.com/shutterworks/api/internal/domain"
)

func testFormConfig() domain.CalculatorConfig {
	return domain.CalculatorConfig{
		FormID:       7,
		ProductID:    101,
		WidthFieldID: 1,
		DropFieldID:  2,
		PriceFieldID: 3,
		UnitFieldID:  4,
		Quantity:     1,
		CustomFieldIDs: map[string]int{
			"style": 5,
			"color": 6,
		},
		ShowCalculation: true,
		CurrencySymbol:  "£",
	}
}

func newTestFormService(t *testing.T, configs *stubFormConfigRepository, recorder *logRecorder) (FormService, *stubCartRepository) {
	t.Helper()
	catalog := saleCatalog()
	cartRepo := &stubCartRepository{}

	var logger func(context.Context, string, map[string]any)
	if recorder != nil {
		logger = recorder.log
	}

	calc, err := NewPriceCalculator(PriceCalculatorDeps{Catalog: catalog})
	if err != nil {
		t.Fatalf("NewPriceCalculator error: %v", err)
	}
	cart, err := NewCartService(CartServiceDeps{
		Repository: cartRepo,
		Calculator: calc,
		Catalog:    catalog,
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("NewCartService error: %v", err)
	}
	service, err := NewFormService(FormServiceDeps{
		Configs: configs,
		Catalog: catalog,
		Cart:    cart,
		Clock:   fixedClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		Logger:  logger,
	})
	if err != nil {
		t.Fatalf("NewFormService error: %v", err)
	}
	return service, cartRepo
}

func TestFormService_HandleSubmission(t *testing.T) {
	configs := &stubFormConfigRepository{configs: map[int64]domain.CalculatorConfig{
		7: testFormConfig(),
	}}
	service, _ := newTestFormService(t, configs, nil)

	result, err := service.HandleSubmission(context.Background(), SubmissionCommand{
		FormID:  7,
		CartID:  "basket_1",
		EntryID: "entry_22",
		FieldValues: map[string]string{
			"1": "100",
			"2": "100",
			"3": "£30.00",
			"4": "cm",
			"5": "full-height",
			"6": "<script>alert(1)</script>white",
		},
	})
	if err != nil {
		t.Fatalf("HandleSubmission error: %v", err)
	}

	if math.Abs(result.Quote.Price-30.00) > 1e-9 || !result.Quote.IsOnSale {
		t.Fatalf("unexpected quote: %+v", result.Quote)
	}
	if result.Basket.CartCount != 1 {
		t.Fatalf("CartCount = %d, want 1", result.Basket.CartCount)
	}

	item := result.Basket.Cart.Items[0]
	if item.EntryID != "entry_22" {
		t.Fatalf("EntryID = %q", item.EntryID)
	}
	if item.CustomFields["style"] != "full-height" {
		t.Fatalf("custom fields = %v", item.CustomFields)
	}
	if item.CustomFields["color"] != "white" {
		t.Fatalf("markup not sanitised: %q", item.CustomFields["color"])
	}
}

func TestFormService_HandleSubmissionInputEncodings(t *testing.T) {
	configs := &stubFormConfigRepository{configs: map[int64]domain.CalculatorConfig{
		7: testFormConfig(),
	}}
	service, _ := newTestFormService(t, configs, nil)
	ctx := context.Background()

	cases := []struct {
		name   string
		values map[string]string
	}{
		{
			name:   "form encoded keys",
			values: map[string]string{"input_1": "1000", "input_2": "1000", "input_4": "mm"},
		},
		{
			name:   "multi input fallback",
			values: map[string]string{"1.1": "1000", "2.1": "1000", "4.1": "mm"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := service.HandleSubmission(ctx, SubmissionCommand{
				FormID:      7,
				CartID:      "basket_" + tc.name,
				FieldValues: tc.values,
			})
			if err != nil {
				t.Fatalf("HandleSubmission error: %v", err)
			}
			if math.Abs(result.Quote.WidthCm-100) > 1e-9 {
				t.Fatalf("WidthCm = %v, want 100", result.Quote.WidthCm)
			}
			if result.Quote.Unit != domain.UnitMillimeters {
				t.Fatalf("Unit = %s, want mm", result.Quote.Unit)
			}
		})
	}
}

func TestFormService_HandleSubmissionUnitFallback(t *testing.T) {
	config := testFormConfig()
	config.UnitFieldID = 0
	configs := &stubFormConfigRepository{configs: map[int64]domain.CalculatorConfig{7: config}}
	service, _ := newTestFormService(t, configs, nil)

	result, err := service.HandleSubmission(context.Background(), SubmissionCommand{
		FormID:      7,
		CartID:      "basket_1",
		FieldValues: map[string]string{"1": "100", "2": "100"},
	})
	if err != nil {
		t.Fatalf("HandleSubmission error: %v", err)
	}
	if result.Quote.Unit != domain.UnitCentimeters {
		t.Fatalf("form without unit selector should price in cm, got %s", result.Quote.Unit)
	}
}

func TestFormService_HandleSubmissionTamperLogged(t *testing.T) {
	configs := &stubFormConfigRepository{configs: map[int64]domain.CalculatorConfig{
		7: testFormConfig(),
	}}
	recorder := &logRecorder{}
	service, _ := newTestFormService(t, configs, recorder)

	result, err := service.HandleSubmission(context.Background(), SubmissionCommand{
		FormID: 7,
		CartID: "basket_1",
		FieldValues: map[string]string{
			"1": "100",
			"2": "100",
			"3": "£1.00",
		},
	})
	if err != nil {
		t.Fatalf("HandleSubmission error: %v", err)
	}
	if !recorder.has("cart.price_mismatch") {
		t.Fatalf("expected submitted price field mismatch to be logged")
	}
	if math.Abs(result.Quote.Price-30.00) > 1e-9 {
		t.Fatalf("server price must win, got %v", result.Quote.Price)
	}
}

func TestFormService_HandleSubmissionErrors(t *testing.T) {
	configs := &stubFormConfigRepository{configs: map[int64]domain.CalculatorConfig{
		7: testFormConfig(),
	}}
	service, _ := newTestFormService(t, configs, nil)
	ctx := context.Background()

	cases := []struct {
		name string
		cmd  SubmissionCommand
		want error
	}{
		{
			name: "unknown form",
			cmd:  SubmissionCommand{FormID: 99, CartID: "b", FieldValues: map[string]string{"1": "100", "2": "100"}},
			want: ErrFormConfigMissing,
		},
		{
			name: "missing width",
			cmd:  SubmissionCommand{FormID: 7, CartID: "b", FieldValues: map[string]string{"2": "100"}},
			want: ErrFormInvalidInput,
		},
		{
			name: "missing cart id",
			cmd:  SubmissionCommand{FormID: 7, FieldValues: map[string]string{"1": "100", "2": "100"}},
			want: ErrFormInvalidInput,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := service.HandleSubmission(ctx, tc.cmd); !errors.Is(err, tc.want) {
				t.Fatalf("HandleSubmission error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestFormService_CalculatorViewForForm(t *testing.T) {
	configs := &stubFormConfigRepository{configs: map[int64]domain.CalculatorConfig{
		7: testFormConfig(),
	}}
	service, _ := newTestFormService(t, configs, nil)

	view, err := service.CalculatorViewForForm(context.Background(), 7)
	if err != nil {
		t.Fatalf("CalculatorViewForForm error: %v", err)
	}
	if view.ProductName != "Full Height Shutter" {
		t.Fatalf("ProductName = %q", view.ProductName)
	}
	if len(view.UnitChoices) != 3 {
		t.Fatalf("expected unit choices for a form with a unit selector, got %d", len(view.UnitChoices))
	}
	if view.CurrencySymbol != "£" {
		t.Fatalf("CurrencySymbol = %q", view.CurrencySymbol)
	}
}

func TestFormService_SaveConfig(t *testing.T) {
	configs := &stubFormConfigRepository{}
	service, _ := newTestFormService(t, configs, nil)

	config := testFormConfig()
	config.CurrencySymbol = ""
	saved, result, err := service.SaveConfig(context.Background(), SaveConfigCommand{Config: config})
	if err != nil {
		t.Fatalf("SaveConfig error: %v", err)
	}
	if result.Failed() {
		t.Fatalf("expected validation to pass: %v", result.Messages())
	}
	if saved.CurrencySymbol != "£" {
		t.Fatalf("CurrencySymbol default = %q", saved.CurrencySymbol)
	}

	loaded, err := service.GetConfig(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetConfig error: %v", err)
	}
	if loaded.ProductID != 101 {
		t.Fatalf("config not persisted: %+v", loaded)
	}
}

func TestFormService_SaveConfigValidationFailures(t *testing.T) {
	service, _ := newTestFormService(t, &stubFormConfigRepository{}, nil)
	ctx := context.Background()

	t.Run("missing field ids", func(t *testing.T) {
		config := testFormConfig()
		config.WidthFieldID = 0
		_, result, err := service.SaveConfig(ctx, SaveConfigCommand{Config: config})
		if err != nil {
			t.Fatalf("SaveConfig error: %v", err)
		}
		if !result.Failed() {
			t.Fatalf("expected failure")
		}
		assertValidationCode(t, result, domain.ValidationInvalidFieldID)
	})

	t.Run("duplicate field ids", func(t *testing.T) {
		config := testFormConfig()
		config.DropFieldID = config.WidthFieldID
		_, result, err := service.SaveConfig(ctx, SaveConfigCommand{Config: config})
		if err != nil {
			t.Fatalf("SaveConfig error: %v", err)
		}
		assertValidationCode(t, result, domain.ValidationDuplicateFieldID)
	})

	t.Run("missing product", func(t *testing.T) {
		config := testFormConfig()
		config.ProductID = 999
		_, result, err := service.SaveConfig(ctx, SaveConfigCommand{Config: config})
		if err != nil {
			t.Fatalf("SaveConfig error: %v", err)
		}
		assertValidationCode(t, result, domain.ValidationMissingProduct)
	})

	t.Run("invalid form id", func(t *testing.T) {
		config := testFormConfig()
		config.FormID = 0
		if _, _, err := service.SaveConfig(ctx, SaveConfigCommand{Config: config}); !errors.Is(err, ErrFormInvalidInput) {
			t.Fatalf("expected ErrFormInvalidInput, got %v", err)
		}
	})
}

func TestFormService_SaveConfigInactiveProduct(t *testing.T) {
	catalog := newTestCatalog(map[int64]domain.Product{
		101: {ID: 101, Name: "Retired Shutter", RegularRateM2: 50, Active: false},
	})
	cartRepo := &stubCartRepository{}
	calc, err := NewPriceCalculator(PriceCalculatorDeps{Catalog: catalog})
	if err != nil {
		t.Fatalf("NewPriceCalculator error: %v", err)
	}
	cart, err := NewCartService(CartServiceDeps{Repository: cartRepo, Calculator: calc, Catalog: catalog})
	if err != nil {
		t.Fatalf("NewCartService error: %v", err)
	}
	service, err := NewFormService(FormServiceDeps{
		Configs: &stubFormConfigRepository{},
		Catalog: catalog,
		Cart:    cart,
	})
	if err != nil {
		t.Fatalf("NewFormService error: %v", err)
	}

	_, result, err := service.SaveConfig(context.Background(), SaveConfigCommand{Config: testFormConfig()})
	if err != nil {
		t.Fatalf("SaveConfig error: %v", err)
	}
	assertValidationCode(t, result, domain.ValidationProductInactive)
}

func assertValidationCode(t *testing.T, result ValidationResult, code domain.ValidationCode) {
	t.Helper()
	if !result.Failed() {
		t.Fatalf("expected validation failure")
	}
	for _, e := range result.Errors {
		if e.Code == code {
			return
		}
	}
	t.Fatalf("expected code %s in %+v", code, result.Errors)
}
