package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/shutterworks/api/internal/domain"
	pfirestore "github.com/shutterworks/api/internal/platform/firestore"
	"github.com/shutterworks/api/internal/repositories"
)

const cartsCollection = "baskets"

// CartRepository persists basket documents within Firestore. Line items are
// embedded in the basket document so a basket read or write is a single
// document operation.
type CartRepository struct {
	base *pfirestore.BaseRepository[cartDocument]
}

// NewCartRepository constructs a Firestore-backed basket repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[cartDocument](provider, cartsCollection, nil, nil)
	return &CartRepository{base: base}, nil
}

// GetCart loads the basket for the given identifier.
func (r *CartRepository) GetCart(ctx context.Context, cartID string) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	id := strings.TrimSpace(cartID)
	if id == "" {
		return domain.Cart{}, errors.New("cart repository: cart id is required")
	}

	doc, err := r.base.Get(ctx, id)
	if err != nil {
		return domain.Cart{}, err
	}
	return decodeCartDocument(id, doc.Data, doc.UpdateTime), nil
}

// UpsertCart persists the full basket state, items included.
func (r *CartRepository) UpsertCart(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	id := strings.TrimSpace(cart.ID)
	if id == "" {
		return domain.Cart{}, errors.New("cart repository: cart id is required")
	}

	now := time.Now().UTC()
	if !cart.UpdatedAt.IsZero() {
		now = cart.UpdatedAt.UTC()
	}
	createdAt := cart.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = now
	}

	doc := encodeCartDocument(cart, createdAt, now)
	result, err := r.base.Set(ctx, id, doc)
	if err != nil {
		return domain.Cart{}, err
	}

	saved := decodeCartDocument(id, doc, result.UpdateTime)
	return saved, nil
}

// ReplaceItems swaps the basket's full line set in one write. Totals are
// service-owned; callers re-derive them from the surviving items.
func (r *CartRepository) ReplaceItems(ctx context.Context, cartID string, items []domain.CartItem) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}

	cart, err := r.GetCart(ctx, cartID)
	if err != nil {
		return domain.Cart{}, err
	}
	cart.Items = make([]domain.CartItem, len(items))
	copy(cart.Items, items)
	cart.UpdatedAt = time.Now().UTC()
	return r.UpsertCart(ctx, cart)
}

func encodeCartDocument(cart domain.Cart, createdAt, updatedAt time.Time) cartDocument {
	items := make([]cartItemDocument, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, cartItemDocument{
			Key:          strings.TrimSpace(item.Key),
			ProductID:    item.ProductID,
			ProductName:  strings.TrimSpace(item.ProductName),
			Quantity:     item.Quantity,
			Width:        item.Width,
			Drop:         item.Drop,
			Unit:         string(item.Unit),
			Quote:        item.Quote,
			CustomFields: domain.CloneStringMap(item.CustomFields),
			EntryID:      strings.TrimSpace(item.EntryID),
			AddedAt:      item.AddedAt.UTC(),
		})
	}
	return cartDocument{
		Items:     items,
		Totals:    cart.Totals,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

func decodeCartDocument(id string, doc cartDocument, updateTime time.Time) domain.Cart {
	items := make([]domain.CartItem, 0, len(doc.Items))
	for _, item := range doc.Items {
		unit, _ := domain.ParseMeasurementUnit(item.Unit)
		items = append(items, domain.CartItem{
			Key:          item.Key,
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			Quantity:     item.Quantity,
			Width:        item.Width,
			Drop:         item.Drop,
			Unit:         unit,
			Quote:        item.Quote,
			CustomFields: domain.CloneStringMap(item.CustomFields),
			EntryID:      item.EntryID,
			AddedAt:      item.AddedAt,
		})
	}

	updatedAt := doc.UpdatedAt
	if !updateTime.IsZero() {
		updatedAt = updateTime
	}
	return domain.Cart{
		ID:        id,
		Items:     items,
		Totals:    doc.Totals,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: updatedAt,
	}
}

type cartDocument struct {
	Items     []cartItemDocument `firestore:"items"`
	Totals    domain.CartTotals  `firestore:"totals"`
	CreatedAt time.Time          `firestore:"createdAt"`
	UpdatedAt time.Time          `firestore:"updatedAt"`
}

type cartItemDocument struct {
	Key          string            `firestore:"key"`
	ProductID    int64             `firestore:"productId"`
	ProductName  string            `firestore:"productName"`
	Quantity     int               `firestore:"quantity"`
	Width        float64           `firestore:"width"`
	Drop         float64           `firestore:"drop"`
	Unit         string            `firestore:"unit"`
	Quote        domain.PriceQuote `firestore:"quote"`
	CustomFields map[string]string `firestore:"customFields,omitempty"`
	EntryID      string            `firestore:"entryId,omitempty"`
	AddedAt      time.Time         `firestore:"addedAt"`
}

var _ repositories.CartRepository = (*CartRepository)(nil)
