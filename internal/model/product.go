package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ProductCategory is one of the fixed menu categories
type ProductCategory string

const (
	CategoryAlfajores  ProductCategory = "Alfajores artesanales"
	CategoryPastry     ProductCategory = "Pasteleria"
	CategorySavory     ProductCategory = "Snacks salados"
	CategoryHotDrinks  ProductCategory = "Bebidas calientes"
	CategoryColdDrinks ProductCategory = "Bebidas frías"
	CategoryOther      ProductCategory = "Otro"
)

// Categories lists every valid category in menu order
var Categories = []ProductCategory{
	CategoryAlfajores,
	CategoryPastry,
	CategorySavory,
	CategoryHotDrinks,
	CategoryColdDrinks,
	CategoryOther,
}

// Valid reports whether c is one of the fixed categories
func (c ProductCategory) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Product represents a sellable catalog item. Stock may go negative.
type Product struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Barcode      string          `json:"barcode"`
	Price        decimal.Decimal `json:"price"`
	Cost         decimal.Decimal `json:"cost"`
	Stock        int             `json:"stock"`
	MinStock     int             `json:"minStock"`
	Category     ProductCategory `json:"category"`
	Unit         string          `json:"unit"`
	Image        *string         `json:"image,omitempty"`
	DisplayOrder *int            `json:"displayOrder,omitempty"`
}

// LowStock reports whether the product is under its alert threshold
func (p Product) LowStock() bool {
	return p.Stock < p.MinStock
}

// Validate checks the fields a product must carry before it is stored
func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if p.Price.IsNegative() {
		return &ValidationError{Field: "price", Reason: "must not be negative"}
	}
	if p.Cost.IsNegative() {
		return &ValidationError{Field: "cost", Reason: "must not be negative"}
	}
	if !p.Category.Valid() {
		return &ValidationError{Field: "category", Reason: "unknown category " + string(p.Category)}
	}
	return nil
}

// Clone returns a deep copy so optional fields are not shared
func (p Product) Clone() Product {
	out := p
	if p.Image != nil {
		image := *p.Image
		out.Image = &image
	}
	if p.DisplayOrder != nil {
		order := *p.DisplayOrder
		out.DisplayOrder = &order
	}
	return out
}

// FindProduct locates a product by id, falling back to an exact name match
func FindProduct(products []Product, id, name string) (Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	if name == "" {
		return Product{}, false
	}
	for _, p := range products {
		if p.Name == name {
			return p, true
		}
	}
	return Product{}, false
}
