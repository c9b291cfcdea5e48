package domain

import (
	"strconv"
	"time"
)

// Event is the contract for messages handed to the event publisher. Events
// are best-effort notifications; publishing failures never affect the
// request that produced them.
type Event interface {
	EventName() string
	Attributes() map[string]string
}

// PriceCalculatedEvent is emitted after a successful non-empty calculation.
type PriceCalculatedEvent struct {
	ProductID  int64     `json:"product_id"`
	WidthCm    float64   `json:"width_cm"`
	DropCm     float64   `json:"drop_cm"`
	AreaM2     float64   `json:"area_m2"`
	Price      float64   `json:"price"`
	IsOnSale   bool      `json:"is_on_sale"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventName implements Event.
func (PriceCalculatedEvent) EventName() string { return "price.calculated" }

// Attributes implements Event.
func (e PriceCalculatedEvent) Attributes() map[string]string {
	return map[string]string{
		"productId": formatInt64(e.ProductID),
	}
}

// BasketItemAddedEvent is emitted after a line item is committed to a basket.
type BasketItemAddedEvent struct {
	CartID     string    `json:"cart_id"`
	ItemKey    string    `json:"item_key"`
	ProductID  int64     `json:"product_id"`
	Quantity   int       `json:"quantity"`
	Price      float64   `json:"price"`
	EntryID    string    `json:"entry_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventName implements Event.
func (BasketItemAddedEvent) EventName() string { return "basket.item_added" }

// Attributes implements Event.
func (e BasketItemAddedEvent) Attributes() map[string]string {
	attrs := map[string]string{
		"cartId":    e.CartID,
		"productId": formatInt64(e.ProductID),
	}
	if e.EntryID != "" {
		attrs["entryId"] = e.EntryID
	}
	return attrs
}

// BasketItemRemovedEvent is emitted after a line item is removed from a basket.
type BasketItemRemovedEvent struct {
	CartID     string    `json:"cart_id"`
	ItemKey    string    `json:"item_key"`
	ProductID  int64     `json:"product_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventName implements Event.
func (BasketItemRemovedEvent) EventName() string { return "basket.item_removed" }

// Attributes implements Event.
func (e BasketItemRemovedEvent) Attributes() map[string]string {
	return map[string]string{
		"cartId":    e.CartID,
		"productId": formatInt64(e.ProductID),
	}
}

func formatInt64(v int64) string {
	return strconv.FormatInt(v, 10)
}
