package models

import (
	"time"
)

// MaxCustomOrderImages caps reference photos attached to a custom order
const MaxCustomOrderImages = 5

// FurnitureType represents what a custom order builds
type FurnitureType string

const (
	FurnitureDoor    FurnitureType = "Door"
	FurnitureTable   FurnitureType = "Table"
	FurnitureCabinet FurnitureType = "Cabinet"
	FurnitureChair   FurnitureType = "Chair"
	FurnitureBed     FurnitureType = "Bed"
)

// Valid reports whether the furniture type can be ordered
func (f FurnitureType) Valid() bool {
	switch f {
	case FurnitureDoor, FurnitureTable, FurnitureCabinet, FurnitureChair, FurnitureBed:
		return true
	}
	return false
}

// WoodType represents the timber used for a custom order
type WoodType string

const (
	WoodMahogany WoodType = "Mahogany"
	WoodGmelina  WoodType = "Gmelina"
)

// Valid reports whether the wood type is stocked
func (w WoodType) Valid() bool {
	return w == WoodMahogany || w == WoodGmelina
}

// VarnishType represents the finish of a custom order
type VarnishType string

const (
	VarnishPlywood          VarnishType = "Plywood"
	VarnishDarkWood         VarnishType = "Dark Wood"
	VarnishOakVeneer        VarnishType = "Oak Veneer"
	VarnishPlywoodVarnished VarnishType = "Plywood Varnished"
)

// Valid reports whether the finish is offered
func (v VarnishType) Valid() bool {
	switch v {
	case VarnishPlywood, VarnishDarkWood, VarnishOakVeneer, VarnishPlywoodVarnished:
		return true
	}
	return false
}

// CustomOrderStatus represents the workshop state of a custom order
type CustomOrderStatus string

const (
	CustomOrderStatusPending      CustomOrderStatus = "pending"
	CustomOrderStatusReviewing    CustomOrderStatus = "reviewing"
	CustomOrderStatusApproved     CustomOrderStatus = "approved"
	CustomOrderStatusInProduction CustomOrderStatus = "in-production"
	CustomOrderStatusCompleted    CustomOrderStatus = "completed"
	CustomOrderStatusCancelled    CustomOrderStatus = "cancelled"
)

// Valid reports whether the status is known
func (s CustomOrderStatus) Valid() bool {
	switch s {
	case CustomOrderStatusPending, CustomOrderStatusReviewing, CustomOrderStatusApproved,
		CustomOrderStatusInProduction, CustomOrderStatusCompleted, CustomOrderStatusCancelled:
		return true
	}
	return false
}

// Dimensions of a custom piece
type Dimensions struct {
	Width  float64 `json:"width" db:"width" validate:"gt=0"`
	Height float64 `json:"height" db:"height" validate:"gt=0"`
}

// CustomOrder represents a made-to-order furniture request
type CustomOrder struct {
	ID            string            `json:"id" db:"id"`
	UserID        string            `json:"userId" db:"user_id"`
	FurnitureType FurnitureType     `json:"furnitureType" db:"furniture_type"`
	Dimensions    Dimensions        `json:"dimensions"`
	WoodType      WoodType          `json:"woodType" db:"wood_type"`
	VarnishType   VarnishType       `json:"varnishType" db:"varnish_type"`
	TotalPrice    float64           `json:"totalPrice" db:"total_price"`
	Notes         string            `json:"notes" db:"notes"`
	Images        StringList        `json:"images" db:"images"`
	Status        CustomOrderStatus `json:"status" db:"status"`
	AdminNotes    string            `json:"adminNotes" db:"admin_notes"`
	CreatedAt     time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time         `json:"updatedAt" db:"updated_at"`
}

// CustomOrderCreation represents custom order intake data
type CustomOrderCreation struct {
	FurnitureType FurnitureType `json:"furnitureType" form:"furnitureType" validate:"required,enum"`
	Width         float64       `json:"width" form:"width" validate:"gt=0"`
	Height        float64       `json:"height" form:"height" validate:"gt=0"`
	WoodType      WoodType      `json:"woodType" form:"woodType" validate:"required,enum"`
	VarnishType   VarnishType   `json:"varnishType" form:"varnishType" validate:"required,enum"`
	TotalPrice    float64       `json:"totalPrice" form:"totalPrice" validate:"gte=0"`
	Notes         string        `json:"notes" form:"notes" validate:"max=2000"`
}

// CustomOrderUpdate represents an admin update. Nil fields are left unchanged.
type CustomOrderUpdate struct {
	Status     *CustomOrderStatus `json:"status,omitempty" validate:"enum"`
	AdminNotes *string            `json:"adminNotes,omitempty" validate:"max=1000"`
}
