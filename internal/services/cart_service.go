package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/shutterworks/api/internal/domain"
	"github.com/shutterworks/api/internal/platform/textutil"
	"github.com/shutterworks/api/internal/repositories"
)

// priceTolerance is the largest client/server price difference that is not
// reported as a tamper discrepancy.
const priceTolerance = 0.01

const maxCartCustomFields = 20

var (
	// ErrCartInvalidInput indicates the caller supplied invalid input.
	ErrCartInvalidInput = errors.New("cart service: invalid input")
	// ErrCartProductNotFound indicates the referenced product does not exist.
	ErrCartProductNotFound = errors.New("cart service: product not found")
	// ErrCartAddFailed indicates the line item could not be committed.
	ErrCartAddFailed = errors.New("cart service: add to cart failed")
	// ErrCartNotFound indicates the requested basket does not exist.
	ErrCartNotFound = errors.New("cart service: not found")
	// ErrCartItemNotFound indicates the basket holds no line item with the key.
	ErrCartItemNotFound = errors.New("cart service: item not found")
	// ErrCartUnavailable indicates the basket backend cannot fulfil the request.
	ErrCartUnavailable = errors.New("cart service: unavailable")
)

// CartServiceDeps wires the repository, pricing, and observability dependencies.
// Tx is optional; when set, basket mutations run inside it.
type CartServiceDeps struct {
	Repository  repositories.CartRepository
	Tx          repositories.UnitOfWork
	Calculator  PriceCalculator
	Catalog     CatalogService
	Publisher   EventPublisher
	Clock       func() time.Time
	CartURL     string
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
}

type cartService struct {
	repo       repositories.CartRepository
	tx         repositories.UnitOfWork
	calculator PriceCalculator
	catalog    CatalogService
	publisher  EventPublisher
	now        func() time.Time
	cartURL    string
	logger     func(context.Context, string, map[string]any)
	newID      func() string
}

// NewCartService constructs a CartService enforcing dependency validation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Repository == nil {
		return nil, errors.New("cart service: repository is required")
	}
	if deps.Calculator == nil {
		return nil, errors.New("cart service: calculator is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("cart service: catalog is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	return &cartService{
		repo:       deps.Repository,
		tx:         deps.Tx,
		calculator: deps.Calculator,
		catalog:    deps.Catalog,
		publisher:  deps.Publisher,
		now:        func() time.Time { return clock().UTC() },
		cartURL:    strings.TrimSpace(deps.CartURL),
		logger:     logger,
		newID:      idGen,
	}, nil
}

// GetOrCreateCart loads the basket, creating an empty one when absent.
func (s *cartService) GetOrCreateCart(ctx context.Context, cartID string) (Cart, error) {
	id := strings.TrimSpace(cartID)
	if id == "" {
		return Cart{}, ErrCartInvalidInput
	}

	cart, err := s.repo.GetCart(ctx, id)
	if err == nil {
		return cart, nil
	}
	if translated := s.translateRepoError(err); !errors.Is(translated, ErrCartNotFound) {
		return Cart{}, translated
	}

	now := s.now()
	created := Cart{ID: id, Items: []CartItem{}, CreatedAt: now, UpdatedAt: now}
	saved, err := s.repo.UpsertCart(ctx, created)
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}
	return saved, nil
}

// AddItem recomputes the price from the submitted dimensions and commits the
// line item. The client's displayed estimate is never what gets stored; a
// disagreement beyond the tolerance is logged and the server value wins.
func (s *cartService) AddItem(ctx context.Context, cmd AddItemCommand) (AddItemResult, error) {
	cartID := strings.TrimSpace(cmd.CartID)
	if cartID == "" || cmd.Width <= 0 || cmd.Drop <= 0 {
		return AddItemResult{}, ErrCartInvalidInput
	}
	quantity := cmd.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 || len(cmd.CustomFields) > maxCartCustomFields {
		return AddItemResult{}, ErrCartInvalidInput
	}

	exists, err := s.catalog.ProductExists(ctx, cmd.ProductID)
	if err != nil {
		return AddItemResult{}, ErrCartUnavailable
	}
	if !exists {
		return AddItemResult{}, ErrCartProductNotFound
	}

	quote := s.calculator.Calculate(ctx, QuoteCommand{
		Width:     cmd.Width,
		Drop:      cmd.Drop,
		Unit:      cmd.Unit,
		ProductID: cmd.ProductID,
	})
	if quote.IsZero() {
		return AddItemResult{}, ErrCartInvalidInput
	}

	if cmd.ExpectedPrice != nil && math.Abs(*cmd.ExpectedPrice-quote.Price) > priceTolerance {
		s.logger(ctx, "cart.price_mismatch", map[string]any{
			"cartId":      cartID,
			"productId":   cmd.ProductID,
			"clientPrice": *cmd.ExpectedPrice,
			"serverPrice": quote.Price,
		})
	}

	productName, err := s.catalog.ProductName(ctx, cmd.ProductID)
	if err != nil {
		return AddItemResult{}, ErrCartUnavailable
	}

	var saved Cart
	var item CartItem
	txErr := s.runInTx(ctx, func(ctx context.Context) error {
		cart, err := s.GetOrCreateCart(ctx, cartID)
		if err != nil {
			return err
		}

		now := s.now()
		item = CartItem{
			Key:          s.newID(),
			ProductID:    cmd.ProductID,
			ProductName:  productName,
			Quantity:     quantity,
			Width:        cmd.Width,
			Drop:         cmd.Drop,
			Unit:         quote.Unit,
			Quote:        quote,
			CustomFields: textutil.NormalizeStringMap(cmd.CustomFields),
			EntryID:      strings.TrimSpace(cmd.EntryID),
			AddedAt:      now,
		}

		cart.Items = append(cart.Items, item)
		cart.Totals = computeTotals(cart.Items)
		cart.UpdatedAt = now

		saved, err = s.repo.UpsertCart(ctx, cart)
		if err != nil {
			s.logger(ctx, "cart.add_item_failed", map[string]any{
				"cartId":    cartID,
				"productId": cmd.ProductID,
				"error":     err.Error(),
			})
			if errors.Is(s.translateRepoError(err), ErrCartUnavailable) {
				return ErrCartUnavailable
			}
			return ErrCartAddFailed
		}
		return nil
	})
	if txErr != nil {
		return AddItemResult{}, txErr
	}

	if s.publisher != nil {
		event := domain.BasketItemAddedEvent{
			CartID:     saved.ID,
			ItemKey:    item.Key,
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			Price:      quote.Price,
			EntryID:    item.EntryID,
			OccurredAt: item.AddedAt,
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger(ctx, "cart.event_publish_failed", map[string]any{
				"cartId": saved.ID,
				"error":  err.Error(),
			})
		}
	}

	return s.buildResult(saved, item.Key), nil
}

// RemoveItem drops the line item with the given key and re-derives totals
// from the surviving items.
func (s *cartService) RemoveItem(ctx context.Context, cartID, itemKey string) (Cart, error) {
	id := strings.TrimSpace(cartID)
	key := strings.TrimSpace(itemKey)
	if id == "" || key == "" {
		return Cart{}, ErrCartInvalidInput
	}

	var saved Cart
	var removed CartItem
	txErr := s.runInTx(ctx, func(ctx context.Context) error {
		cart, err := s.repo.GetCart(ctx, id)
		if err != nil {
			return s.translateRepoError(err)
		}

		remaining := make([]CartItem, 0, len(cart.Items))
		found := false
		for _, item := range cart.Items {
			if item.Key == key {
				removed = item
				found = true
				continue
			}
			remaining = append(remaining, item)
		}
		if !found {
			return ErrCartItemNotFound
		}

		swapped, err := s.repo.ReplaceItems(ctx, id, remaining)
		if err != nil {
			return s.translateRepoError(err)
		}

		swapped.Totals = computeTotals(swapped.Items)
		swapped.UpdatedAt = s.now()
		saved, err = s.repo.UpsertCart(ctx, swapped)
		if err != nil {
			return s.translateRepoError(err)
		}
		return nil
	})
	if txErr != nil {
		return Cart{}, txErr
	}

	s.logger(ctx, "cart.item_removed", map[string]any{
		"cartId":    saved.ID,
		"itemKey":   removed.Key,
		"productId": removed.ProductID,
	})

	if s.publisher != nil {
		event := domain.BasketItemRemovedEvent{
			CartID:     saved.ID,
			ItemKey:    removed.Key,
			ProductID:  removed.ProductID,
			OccurredAt: saved.UpdatedAt,
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger(ctx, "cart.event_publish_failed", map[string]any{
				"cartId": saved.ID,
				"error":  err.Error(),
			})
		}
	}

	return saved, nil
}

// PrepareItemData packages a calculation into the payload map a line item
// carries. Calculator-owned keys always win over caller-supplied custom
// fields.
func (s *cartService) PrepareItemData(ctx context.Context, cmd PrepareItemCommand) (map[string]string, error) {
	if cmd.Width <= 0 || cmd.Drop <= 0 {
		return nil, ErrCartInvalidInput
	}

	exists, err := s.catalog.ProductExists(ctx, cmd.ProductID)
	if err != nil {
		return nil, ErrCartUnavailable
	}
	if !exists {
		return nil, ErrCartProductNotFound
	}

	quote := s.calculator.Calculate(ctx, QuoteCommand{
		Width:     cmd.Width,
		Drop:      cmd.Drop,
		Unit:      cmd.Unit,
		ProductID: cmd.ProductID,
	})
	if quote.IsZero() {
		return nil, ErrCartInvalidInput
	}

	payload := map[string]string{
		"width":         strconv.FormatFloat(cmd.Width, 'f', -1, 64),
		"drop":          strconv.FormatFloat(cmd.Drop, 'f', -1, 64),
		"unit":          string(quote.Unit),
		"width_cm":      strconv.FormatFloat(quote.WidthCm, 'f', 1, 64),
		"drop_cm":       strconv.FormatFloat(quote.DropCm, 'f', 1, 64),
		"area_m2":       strconv.FormatFloat(quote.AreaM2, 'f', 2, 64),
		"price":         strconv.FormatFloat(quote.Price, 'f', 2, 64),
		"regular_price": strconv.FormatFloat(quote.RegularPrice, 'f', 2, 64),
		"sale_price":    strconv.FormatFloat(quote.SalePrice, 'f', 2, 64),
		"is_on_sale":    strconv.FormatBool(quote.IsOnSale),
		"calculation":   quote.CalculationText(),
	}
	for key, value := range textutil.NormalizeStringMap(cmd.CustomFields) {
		if _, owned := payload[key]; owned {
			continue
		}
		payload[key] = value
	}
	return payload, nil
}

// ProductExists reports whether the product resolves in the catalog.
func (s *cartService) ProductExists(ctx context.Context, productID int64) (bool, error) {
	return s.catalog.ProductExists(ctx, productID)
}

// ProductName returns the catalog display name for the product.
func (s *cartService) ProductName(ctx context.Context, productID int64) (string, error) {
	return s.catalog.ProductName(ctx, productID)
}

// RecalculateTotals re-derives basket totals from the quotes stored on each
// line item. The catalog is never consulted; running the pass any number of
// times yields the same totals.
func (s *cartService) RecalculateTotals(ctx context.Context, cartID string) (Cart, error) {
	id := strings.TrimSpace(cartID)
	if id == "" {
		return Cart{}, ErrCartInvalidInput
	}

	cart, err := s.repo.GetCart(ctx, id)
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}

	totals := computeTotals(cart.Items)
	if totals == cart.Totals {
		return cart, nil
	}

	cart.Totals = totals
	cart.UpdatedAt = s.now()
	saved, err := s.repo.UpsertCart(ctx, cart)
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}
	return saved, nil
}

func (s *cartService) buildResult(cart Cart, itemKey string) AddItemResult {
	count := cart.ItemCount()
	return AddItemResult{
		Cart:      cart,
		ItemKey:   itemKey,
		CartCount: count,
		CartHash:  cartHash(cart.Items),
		CartURL:   s.cartURL,
		Fragments: map[string]string{
			"cart_count": fmt.Sprintf("%d", count),
			"subtotal":   fmt.Sprintf("%.2f", cart.Totals.Subtotal),
		},
	}
}

// runInTx runs fn inside the configured unit of work, or directly when none
// is wired (tests with in-memory repositories). Service sentinel errors pass
// through; a transaction failure of its own surfaces as ErrCartUnavailable.
func (s *cartService) runInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	if err := s.tx.RunInTx(ctx, fn); err != nil {
		if isCartServiceError(err) {
			return err
		}
		return ErrCartUnavailable
	}
	return nil
}

func isCartServiceError(err error) bool {
	for _, sentinel := range []error{
		ErrCartInvalidInput,
		ErrCartProductNotFound,
		ErrCartAddFailed,
		ErrCartNotFound,
		ErrCartItemNotFound,
		ErrCartUnavailable,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func (s *cartService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrCartNotFound
		case repoErr.IsConflict():
			return ErrCartUnavailable
		}
	}
	return ErrCartUnavailable
}

func computeTotals(items []CartItem) CartTotals {
	var subtotal, regular float64
	count := 0
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		subtotal += item.LineTotal()
		regular += item.LineRegularTotal()
		count += item.Quantity
	}
	subtotal = domain.RoundPrice(subtotal)
	regular = domain.RoundPrice(regular)
	savings := domain.RoundPrice(regular - subtotal)
	if savings < 0 {
		savings = 0
	}
	return CartTotals{
		Subtotal:        subtotal,
		RegularSubtotal: regular,
		Savings:         savings,
		ItemCount:       count,
	}
}

func cartHash(items []CartItem) string {
	h := sha256.New()
	for _, item := range items {
		fmt.Fprintf(h, "%s|%d|%d|%.2f\n", item.Key, item.ProductID, item.Quantity, item.Quote.Price)
	}
	return hex.EncodeToString(h.Sum(nil))
}
