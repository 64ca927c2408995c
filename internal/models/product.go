package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ProductCategory represents the catalog section a product is listed in
type ProductCategory string

const (
	CategorySofas     ProductCategory = "Sofas"
	CategoryBeds      ProductCategory = "Beds"
	CategoryChairs    ProductCategory = "Chairs"
	CategoryTables    ProductCategory = "Tables"
	CategoryCabinets  ProductCategory = "Cabinets"
	CategoryWardrobes ProductCategory = "Wardrobes"
	CategoryDoors     ProductCategory = "Doors"
)

// Valid reports whether the category is one of the catalog sections
func (c ProductCategory) Valid() bool {
	switch c {
	case CategorySofas, CategoryBeds, CategoryChairs, CategoryTables,
		CategoryCabinets, CategoryWardrobes, CategoryDoors:
		return true
	}
	return false
}

// ModelVariant is one 3D model of a product with its own price
type ModelVariant struct {
	ModelURL    string  `json:"modelUrl" db:"model_url" validate:"required"`
	Price       float64 `json:"price" db:"price" validate:"gte=0"`
	Description string  `json:"description" db:"description" validate:"required"`
	VariantName string  `json:"variantName" db:"variant_name" validate:"required"`
}

// ModelVariants is the ordered variant list of a product.
// It decodes from a JSON array or from a string holding one, which is what
// form-based admin clients send.
type ModelVariants []ModelVariant

// UnmarshalJSON implements json.Unmarshaler
func (m *ModelVariants) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*m = ModelVariants{}
		return nil
	}

	if len(trimmed) > 0 && trimmed[0] == '"' {
		var raw string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return fmt.Errorf("invalid models: %w", err)
		}
		if strings.TrimSpace(raw) == "" {
			*m = ModelVariants{}
			return nil
		}
		trimmed = []byte(raw)
	}

	var items []ModelVariant
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return fmt.Errorf("invalid models: %w", err)
	}
	if items == nil {
		items = []ModelVariant{}
	}
	*m = items
	return nil
}

// MarshalJSON renders an empty list instead of null
func (m ModelVariants) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]ModelVariant(m))
}

// Product represents a catalog item
type Product struct {
	ID          string          `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Price       float64         `json:"price" db:"price"`
	Category    ProductCategory `json:"category" db:"category"`
	Stock       int             `json:"stock" db:"stock"`
	Image       string          `json:"image" db:"image"`
	Models      ModelVariants   `json:"models" db:"-"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time       `json:"updatedAt" db:"updated_at"`
}

// IsInStock checks whether the requested quantity is available
func (p *Product) IsInStock(quantity int) bool {
	return quantity > 0 && p.Stock >= quantity
}

// ProductCreation represents product creation data
type ProductCreation struct {
	Name        string          `json:"name" validate:"required,max=200,no_xss"`
	Description string          `json:"description" validate:"required,max=5000"`
	Price       float64         `json:"price" validate:"gte=0"`
	Category    ProductCategory `json:"category" validate:"required,enum"`
	Stock       int             `json:"stock" validate:"gte=0"`
	Image       string          `json:"image" validate:"max=2048"`
	Models      ModelVariants   `json:"models" validate:"dive"`
}

// ProductUpdate represents a partial product update. Nil fields are left unchanged.
type ProductUpdate struct {
	Name        *string          `json:"name,omitempty" validate:"required,max=200,no_xss"`
	Description *string          `json:"description,omitempty" validate:"required,max=5000"`
	Price       *float64         `json:"price,omitempty" validate:"gte=0"`
	Category    *ProductCategory `json:"category,omitempty" validate:"enum"`
	Stock       *int             `json:"stock,omitempty" validate:"gte=0"`
	Image       *string          `json:"image,omitempty" validate:"max=2048"`
	Models      *ModelVariants   `json:"models,omitempty" validate:"dive"`
}
