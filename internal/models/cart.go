package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CartItem struct {
	ID         int64           `json:"id"`
	CartID     int64           `json:"-"`
	ProductID  int64           `json:"-"`
	Product    *Product        `json:"product"`
	Quantity   int             `json:"quantity"`
	PriceAtAdd decimal.Decimal `json:"price_at_add"`
	AddedAt    time.Time       `json:"added_at"`
	ItemTotal  decimal.Decimal `json:"item_total"`
}

type Cart struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	Items           []CartItem      `json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	TotalItemsCount int             `json:"total_items_count"`
	GrandTotal      decimal.Decimal `json:"grand_total"`
}

// Recalculate fills the derived totals. They are never persisted.
func (c *Cart) Recalculate() {

	if c.Items == nil {
		c.Items = []CartItem{}
	}

	count := 0
	total := decimal.Zero

	for i := range c.Items {
		item := &c.Items[i]
		item.ItemTotal = item.PriceAtAdd.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)

		count += item.Quantity
		total = total.Add(item.ItemTotal)
	}

	c.TotalItemsCount = count
	c.GrandTotal = total.Round(2)
}

type AddItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,min=1,max=2147483647"`
}

// MaxQuantity is the largest value the INTEGER quantity and stock columns hold.
const MaxQuantity = 2147483647

// A quantity of zero removes the item.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,gte=0,max=2147483647"`
}
