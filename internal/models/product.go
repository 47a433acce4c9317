package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// prices are rendered as JSON numbers, not strings
	decimal.MarshalJSONWithoutQuotes = true
}

type Product struct {
	ID            int64               `json:"id"`
	SellerID      int64               `json:"seller_id"`
	Seller        string              `json:"seller"`
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	Price         decimal.NullDecimal `json:"price"`
	OriginalPrice decimal.NullDecimal `json:"original_price"`
	ImageURL      *string             `json:"image_url"`
	Rating        float64             `json:"rating"`
	Sold          int                 `json:"sold"`
	Stock         *int                `json:"stock"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// HasStockFor reports whether quantity units can be held against the product.
// A nil stock means the product's inventory is not tracked.
func (p *Product) HasStockFor(quantity int) bool {
	return p.Stock == nil || *p.Stock >= quantity
}

type CreateProductRequest struct {
	Name          string   `json:"name" validate:"required,min=1,max=255"`
	Description   string   `json:"description" validate:"max=5000"`
	Price         *float64 `json:"price" validate:"required,gte=0,lte=9999999999.99"`
	OriginalPrice *float64 `json:"original_price,omitempty" validate:"omitempty,gte=0,lte=9999999999.99"`
	ImageURL      *string  `json:"image_url,omitempty" validate:"omitempty,url,max=512"`
	Rating        *float64 `json:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	Sold          *int     `json:"sold,omitempty" validate:"omitempty,gte=0,max=2147483647"`
	Stock         *int     `json:"stock,omitempty" validate:"omitempty,gte=0,max=2147483647"`
}

type UpdateProductRequest struct {
	Name          *string  `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Description   *string  `json:"description,omitempty" validate:"omitempty,max=5000"`
	Price         *float64 `json:"price,omitempty" validate:"omitempty,gte=0,lte=9999999999.99"`
	OriginalPrice *float64 `json:"original_price,omitempty" validate:"omitempty,gte=0,lte=9999999999.99"`
	ImageURL      *string  `json:"image_url,omitempty" validate:"omitempty,url,max=512"`
	Rating        *float64 `json:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	Sold          *int     `json:"sold,omitempty" validate:"omitempty,gte=0,max=2147483647"`
	Stock         *int     `json:"stock,omitempty" validate:"omitempty,gte=0,max=2147483647"`
}
