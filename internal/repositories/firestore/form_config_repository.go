package firestore

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	domain "github.com/shutterworks/api/internal/domain"
	pfirestore "github.com/shutterworks/api/internal/platform/firestore"
	"github.com/shutterworks/api/internal/repositories"
)

const formConfigsCollection = "formCalculators"

// FormConfigRepository persists per-form calculator configuration.
type FormConfigRepository struct {
	base *pfirestore.BaseRepository[formConfigDocument]
}

// NewFormConfigRepository constructs a Firestore-backed form configuration repository.
func NewFormConfigRepository(provider *pfirestore.Provider) (*FormConfigRepository, error) {
	if provider == nil {
		return nil, errors.New("form config repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[formConfigDocument](provider, formConfigsCollection, nil, nil)
	return &FormConfigRepository{base: base}, nil
}

// Get loads the calculator configuration for the given form.
func (r *FormConfigRepository) Get(ctx context.Context, formID int64) (domain.CalculatorConfig, error) {
	if r == nil || r.base == nil {
		return domain.CalculatorConfig{}, errors.New("form config repository not initialised")
	}
	if formID <= 0 {
		return domain.CalculatorConfig{}, errors.New("form config repository: form id is required")
	}

	doc, err := r.base.Get(ctx, formatFormID(formID))
	if err != nil {
		return domain.CalculatorConfig{}, err
	}
	return decodeFormConfigDocument(formID, doc.Data, doc.UpdateTime), nil
}

// Save replaces the stored configuration for the form.
func (r *FormConfigRepository) Save(ctx context.Context, config domain.CalculatorConfig) (domain.CalculatorConfig, error) {
	if r == nil || r.base == nil {
		return domain.CalculatorConfig{}, errors.New("form config repository not initialised")
	}
	if config.FormID <= 0 {
		return domain.CalculatorConfig{}, errors.New("form config repository: form id is required")
	}

	now := time.Now().UTC()
	if !config.UpdatedAt.IsZero() {
		now = config.UpdatedAt.UTC()
	}

	doc := formConfigDocument{
		ProductID:          config.ProductID,
		WidthFieldID:       config.WidthFieldID,
		DropFieldID:        config.DropFieldID,
		PriceFieldID:       config.PriceFieldID,
		UnitFieldID:        config.UnitFieldID,
		Quantity:           config.Quantity,
		CustomFieldIDs:     cloneFieldIDMap(config.CustomFieldIDs),
		ShowCalculation:    config.ShowCalculation,
		ShowSaleComparison: config.ShowSaleComparison,
		CurrencySymbol:     strings.TrimSpace(config.CurrencySymbol),
		PricePrefix:        config.PricePrefix,
		PriceSuffix:        config.PriceSuffix,
		UpdatedAt:          now,
	}

	result, err := r.base.Set(ctx, formatFormID(config.FormID), doc)
	if err != nil {
		return domain.CalculatorConfig{}, err
	}

	saved := config
	saved.CurrencySymbol = doc.CurrencySymbol
	saved.CustomFieldIDs = cloneFieldIDMap(config.CustomFieldIDs)
	saved.UpdatedAt = result.UpdateTime
	return saved, nil
}

func decodeFormConfigDocument(formID int64, doc formConfigDocument, updateTime time.Time) domain.CalculatorConfig {
	updatedAt := doc.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = updateTime
	}
	return domain.CalculatorConfig{
		FormID:             formID,
		ProductID:          doc.ProductID,
		WidthFieldID:       doc.WidthFieldID,
		DropFieldID:        doc.DropFieldID,
		PriceFieldID:       doc.PriceFieldID,
		UnitFieldID:        doc.UnitFieldID,
		Quantity:           doc.Quantity,
		CustomFieldIDs:     cloneFieldIDMap(doc.CustomFieldIDs),
		ShowCalculation:    doc.ShowCalculation,
		ShowSaleComparison: doc.ShowSaleComparison,
		CurrencySymbol:     doc.CurrencySymbol,
		PricePrefix:        doc.PricePrefix,
		PriceSuffix:        doc.PriceSuffix,
		UpdatedAt:          updatedAt,
	}
}

func formatFormID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func cloneFieldIDMap(values map[string]int) map[string]int {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]int, len(values))
	for k, v := range values {
		if strings.TrimSpace(k) == "" || v <= 0 {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

type formConfigDocument struct {
	ProductID          int64          `firestore:"productId"`
	WidthFieldID       int            `firestore:"widthFieldId"`
	DropFieldID        int            `firestore:"dropFieldId"`
	PriceFieldID       int            `firestore:"priceFieldId"`
	UnitFieldID        int            `firestore:"unitFieldId,omitempty"`
	Quantity           int            `firestore:"quantity,omitempty"`
	CustomFieldIDs     map[string]int `firestore:"customFieldIds,omitempty"`
	ShowCalculation    bool           `firestore:"showCalculation"`
	ShowSaleComparison bool           `firestore:"showSaleComparison"`
	CurrencySymbol     string         `firestore:"currencySymbol,omitempty"`
	PricePrefix        string         `firestore:"pricePrefix,omitempty"`
	PriceSuffix        string         `firestore:"priceSuffix,omitempty"`
	UpdatedAt          time.Time      `firestore:"updatedAt"`
}

var _ repositories.FormConfigRepository = (*FormConfigRepository)(nil)
