package models

import (
	"time"
)

// Limits on repair request text and attachments
const (
	MaxRepairDescriptionLength = 1000
	MaxRepairAdminNotesLength  = 1000
	MaxRepairMediaFiles        = 5
)

// OrderType discriminates which kind of order a repair request points at
type OrderType string

const (
	OrderTypeTransaction OrderType = "Transaction"
	OrderTypeCustomOrder OrderType = "CustomOrder"
)

// Valid reports whether the order type is a known discriminant
func (t OrderType) Valid() bool {
	return t == OrderTypeTransaction || t == OrderTypeCustomOrder
}

// OrderRef references exactly one order, either a transaction or a custom order
type OrderRef struct {
	ID   string    `json:"orderId" db:"order_id"`
	Type OrderType `json:"orderType" db:"order_type"`
}

// OwnedOrder is the part of an order that repair requests depend on
type OwnedOrder interface {
	OwnerID() string
}

// OwnerID implements OwnedOrder
func (t *Transaction) OwnerID() string { return t.UserID }

// OwnerID implements OwnedOrder
func (o *CustomOrder) OwnerID() string { return o.UserID }

// RepairStatus represents the state of a repair request
type RepairStatus string

const (
	RepairStatusPending   RepairStatus = "pending"
	RepairStatusReviewing RepairStatus = "reviewing"
	RepairStatusApproved  RepairStatus = "approved"
	RepairStatusInRepair  RepairStatus = "in-repair"
	RepairStatusCompleted RepairStatus = "completed"
	RepairStatusRejected  RepairStatus = "rejected"
)

// Valid reports whether the status is known
func (s RepairStatus) Valid() bool {
	switch s {
	case RepairStatusPending, RepairStatusReviewing, RepairStatusApproved,
		RepairStatusInRepair, RepairStatusCompleted, RepairStatusRejected:
		return true
	}
	return false
}

// RepairRequest represents a customer's request to repair delivered furniture
type RepairRequest struct {
	ID              string       `json:"id" db:"id"`
	UserID          string       `json:"userId" db:"user_id"`
	OrderRef                     // flattened into orderId/orderType
	Description     string       `json:"description" db:"description"`
	Media           StringList   `json:"media" db:"media"`
	Status          RepairStatus `json:"status" db:"status"`
	AdminNotes      string       `json:"adminNotes" db:"admin_notes"`
	TermsAccepted   bool         `json:"termsAccepted" db:"terms_accepted"`
	TermsAcceptedAt *time.Time   `json:"termsAcceptedAt,omitempty" db:"terms_accepted_at"`
	CreatedAt       time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time    `json:"updatedAt" db:"updated_at"`
}

// RepairRequestCreation represents repair request data submitted by an order owner
type RepairRequestCreation struct {
	OrderID       string    `json:"orderId" validate:"required"`
	OrderType     OrderType `json:"orderType" validate:"required,enum"`
	Description   string    `json:"description" validate:"required,max=1000"`
	Media         []string  `json:"media" validate:"max=5"`
	TermsAccepted bool      `json:"termsAccepted"`
}

// Ref returns the referenced order
func (r RepairRequestCreation) Ref() OrderRef {
	return OrderRef{ID: r.OrderID, Type: r.OrderType}
}

// RepairRequestUpdate represents an admin update. Nil fields are left unchanged.
type RepairRequestUpdate struct {
	Status     *RepairStatus `json:"status,omitempty" validate:"enum"`
	AdminNotes *string       `json:"adminNotes,omitempty" validate:"max=1000"`
}
