package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	domain "github.com/shutterworks/api/internal/domain"
	"github.com/shutterworks/api/internal/repositories"
)

// maxSubInputIndex bounds the multi-input fallback scan when a field value is
// split across numbered sub-inputs.
const maxSubInputIndex = 10

var (
	// ErrFormInvalidInput indicates the caller supplied invalid input.
	ErrFormInvalidInput = errors.New("form service: invalid input")
	// ErrFormConfigMissing indicates the form has no usable calculator configuration.
	ErrFormConfigMissing = errors.New("form service: calculator config missing")
	// ErrFormUnavailable indicates the configuration backend cannot fulfil the request.
	ErrFormUnavailable = errors.New("form service: unavailable")
)

// FormServiceDeps wires configuration storage and the basket pipeline. Pricing
// happens inside the cart service so the form path can never disagree with a
// direct basket commit.
type FormServiceDeps struct {
	Configs repositories.FormConfigRepository
	Catalog CatalogService
	Cart    CartService
	Clock   func() time.Time
	Logger  func(context.Context, string, map[string]any)
}

type formService struct {
	configs   repositories.FormConfigRepository
	catalog   CatalogService
	cart      CartService
	sanitizer *bluemonday.Policy
	now       func() time.Time
	logger    func(context.Context, string, map[string]any)
}

// NewFormService constructs the form service enforcing dependency validation.
func NewFormService(deps FormServiceDeps) (FormService, error) {
	if deps.Configs == nil {
		return nil, errors.New("form service: config repository is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("form service: catalog is required")
	}
	if deps.Cart == nil {
		return nil, errors.New("form service: cart service is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &formService{
		configs:   deps.Configs,
		catalog:   deps.Catalog,
		cart:      deps.Cart,
		sanitizer: bluemonday.StrictPolicy(),
		now:       func() time.Time { return clock().UTC() },
		logger:    logger,
	}, nil
}

// HandleSubmission reads the dimensional fields from the submitted payload,
// recomputes the price, and commits the line item. The submitted price field
// is only used for tamper logging.
func (s *formService) HandleSubmission(ctx context.Context, cmd SubmissionCommand) (SubmissionResult, error) {
	if cmd.FormID <= 0 || strings.TrimSpace(cmd.CartID) == "" {
		return SubmissionResult{}, ErrFormInvalidInput
	}

	config, err := s.loadConfig(ctx, cmd.FormID)
	if err != nil {
		return SubmissionResult{}, err
	}
	if !config.IsComplete() {
		return SubmissionResult{}, ErrFormConfigMissing
	}

	width := parseSubmittedNumber(extractFieldValue(cmd.FieldValues, config.WidthFieldID))
	drop := parseSubmittedNumber(extractFieldValue(cmd.FieldValues, config.DropFieldID))
	if width <= 0 || drop <= 0 {
		return SubmissionResult{}, ErrFormInvalidInput
	}

	unit := domain.DefaultMeasurementUnit
	if config.HasUnitField() {
		unit, _ = domain.ParseMeasurementUnit(extractFieldValue(cmd.FieldValues, config.UnitFieldID))
	}

	var expected *float64
	if raw := extractFieldValue(cmd.FieldValues, config.PriceFieldID); raw != "" {
		if value := parseSubmittedNumber(raw); value > 0 {
			expected = &value
		}
	}

	quantity := config.Quantity
	if quantity < 1 {
		quantity = 1
	}

	custom := s.collectCustomFields(config, cmd.FieldValues)

	result, err := s.cart.AddItem(ctx, AddItemCommand{
		CartID:        cmd.CartID,
		ProductID:     config.ProductID,
		Width:         width,
		Drop:          drop,
		Unit:          unit,
		Quantity:      quantity,
		ExpectedPrice: expected,
		CustomFields:  custom,
		EntryID:       strings.TrimSpace(cmd.EntryID),
	})
	if err != nil {
		return SubmissionResult{}, err
	}

	s.logger(ctx, "form.submission_committed", map[string]any{
		"formId":  cmd.FormID,
		"cartId":  cmd.CartID,
		"itemKey": result.ItemKey,
	})

	quote := PriceQuote{}
	for _, item := range result.Cart.Items {
		if item.Key == result.ItemKey {
			quote = item.Quote
			break
		}
	}
	return SubmissionResult{Quote: quote, Basket: result}, nil
}

// CalculatorViewForForm bundles the widget rendering data for a form.
func (s *formService) CalculatorViewForForm(ctx context.Context, formID int64) (CalculatorView, error) {
	config, err := s.loadConfig(ctx, formID)
	if err != nil {
		return CalculatorView{}, err
	}

	productName := ""
	if config.ProductID > 0 {
		if name, err := s.catalog.ProductName(ctx, config.ProductID); err == nil {
			productName = name
		}
	}

	view := CalculatorView{
		FormID:             config.FormID,
		ProductID:          config.ProductID,
		ProductName:        productName,
		ShowCalculation:    config.ShowCalculation,
		ShowSaleComparison: config.ShowSaleComparison,
		CurrencySymbol:     config.CurrencySymbol,
		PricePrefix:        config.PricePrefix,
		PriceSuffix:        config.PriceSuffix,
	}
	if config.HasUnitField() {
		view.UnitChoices = domain.MeasurementUnitChoices()
	}
	return view, nil
}

// GetConfig returns the stored calculator configuration.
func (s *formService) GetConfig(ctx context.Context, formID int64) (CalculatorConfig, error) {
	return s.loadConfig(ctx, formID)
}

// SaveConfig validates and persists a calculator configuration. Validation
// failures are reported in the result rather than as an error so the admin
// surface can render them as field-level warnings.
func (s *formService) SaveConfig(ctx context.Context, cmd SaveConfigCommand) (CalculatorConfig, ValidationResult, error) {
	config := cmd.Config
	if config.FormID <= 0 {
		return CalculatorConfig{}, ValidationResult{}, ErrFormInvalidInput
	}

	result := s.validateConfig(ctx, config)
	if result.Failed() {
		return config, result, nil
	}

	config.CurrencySymbol = strings.TrimSpace(config.CurrencySymbol)
	if config.CurrencySymbol == "" {
		config.CurrencySymbol = "£"
	}
	if config.Quantity < 1 {
		config.Quantity = 1
	}
	config.UpdatedAt = s.now()

	saved, err := s.configs.Save(ctx, config)
	if err != nil {
		return CalculatorConfig{}, ValidationResult{}, s.translateRepoError(err)
	}

	s.logger(ctx, "form.config_saved", map[string]any{
		"formId":    saved.FormID,
		"productId": saved.ProductID,
	})
	return saved, result, nil
}

func (s *formService) validateConfig(ctx context.Context, config CalculatorConfig) ValidationResult {
	var errs []domain.ValidationError

	requiredFields := []struct {
		name string
		id   int
	}{
		{"width_field_id", config.WidthFieldID},
		{"drop_field_id", config.DropFieldID},
		{"price_field_id", config.PriceFieldID},
	}
	for _, field := range requiredFields {
		if field.id <= 0 {
			errs = append(errs, domain.ValidationError{
				Code:    domain.ValidationInvalidFieldID,
				Field:   field.name,
				Message: fmt.Sprintf("%s must reference a form field", field.name),
			})
		}
	}
	if config.UnitFieldID < 0 {
		errs = append(errs, domain.ValidationError{
			Code:    domain.ValidationInvalidFieldID,
			Field:   "unit_field_id",
			Message: "unit_field_id must be zero or a form field id",
		})
	}

	seen := map[int]string{}
	checkDuplicate := func(name string, id int) {
		if id <= 0 {
			return
		}
		if other, ok := seen[id]; ok {
			errs = append(errs, domain.ValidationError{
				Code:    domain.ValidationDuplicateFieldID,
				Field:   name,
				Message: fmt.Sprintf("%s reuses field %d already mapped to %s", name, id, other),
			})
			return
		}
		seen[id] = name
	}
	checkDuplicate("width_field_id", config.WidthFieldID)
	checkDuplicate("drop_field_id", config.DropFieldID)
	checkDuplicate("price_field_id", config.PriceFieldID)
	checkDuplicate("unit_field_id", config.UnitFieldID)
	for name, id := range config.CustomFieldIDs {
		checkDuplicate(name, id)
	}

	if config.ProductID <= 0 {
		errs = append(errs, domain.ValidationError{
			Code:    domain.ValidationMissingConfig,
			Field:   "product_id",
			Message: "product_id is required",
		})
	} else {
		product, err := s.catalog.GetProduct(ctx, config.ProductID)
		switch {
		case errors.Is(err, ErrCatalogProductNotFound):
			errs = append(errs, domain.ValidationError{
				Code:    domain.ValidationMissingProduct,
				Field:   "product_id",
				Message: fmt.Sprintf("product %d not found", config.ProductID),
			})
		case err != nil:
			errs = append(errs, domain.ValidationError{
				Code:    domain.ValidationMissingProduct,
				Field:   "product_id",
				Message: "product lookup failed",
			})
		case !product.Active:
			errs = append(errs, domain.ValidationError{
				Code:    domain.ValidationProductInactive,
				Field:   "product_id",
				Message: fmt.Sprintf("product %d is not active", config.ProductID),
			})
		}
	}

	if len(errs) > 0 {
		return domain.ValidationFailure(errs)
	}
	return domain.ValidationSuccess()
}

func (s *formService) collectCustomFields(config CalculatorConfig, values map[string]string) map[string]string {
	if len(config.CustomFieldIDs) == 0 {
		return nil
	}
	out := make(map[string]string, len(config.CustomFieldIDs))
	for name, id := range config.CustomFieldIDs {
		raw := extractFieldValue(values, id)
		if raw == "" {
			continue
		}
		clean := strings.TrimSpace(s.sanitizer.Sanitize(raw))
		if clean != "" {
			out[name] = clean
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (s *formService) loadConfig(ctx context.Context, formID int64) (CalculatorConfig, error) {
	if formID <= 0 {
		return CalculatorConfig{}, ErrFormInvalidInput
	}
	config, err := s.configs.Get(ctx, formID)
	if err != nil {
		return CalculatorConfig{}, s.translateRepoError(err)
	}
	return config, nil
}

func (s *formService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return ErrFormConfigMissing
	}
	return ErrFormUnavailable
}

// extractFieldValue reads a field by numeric ID, falling back to the
// "input_<id>" form encoding and then to numbered sub-inputs for multi-part
// fields.
func extractFieldValue(values map[string]string, fieldID int) string {
	if len(values) == 0 || fieldID <= 0 {
		return ""
	}
	if v := strings.TrimSpace(values[strconv.Itoa(fieldID)]); v != "" {
		return v
	}
	if v := strings.TrimSpace(values[fmt.Sprintf("input_%d", fieldID)]); v != "" {
		return v
	}
	for n := 1; n <= maxSubInputIndex; n++ {
		if v := strings.TrimSpace(values[fmt.Sprintf("%d.%d", fieldID, n)]); v != "" {
			return v
		}
		if v := strings.TrimSpace(values[fmt.Sprintf("input_%d_%d", fieldID, n)]); v != "" {
			return v
		}
	}
	return ""
}

// parseSubmittedNumber reads a numeric form value leniently, tolerating
// currency symbols, grouping commas, and surrounding text.
func parseSubmittedNumber(raw string) float64 {
	cleaned := strings.Builder{}
	for _, r := range strings.TrimSpace(raw) {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			cleaned.WriteRune(r)
		}
	}
	value, err := strconv.ParseFloat(cleaned.String(), 64)
	if err != nil {
		return 0
	}
	return value
}
