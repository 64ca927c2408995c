package models

import (
	"time"
)

// TransactionStatus represents the fulfilment state of a checkout order
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusShipped    TransactionStatus = "shipped"
	TransactionStatusDelivered  TransactionStatus = "delivered"
	TransactionStatusCancelled  TransactionStatus = "cancelled"
)

var transactionTransitions = map[TransactionStatus][]TransactionStatus{
	TransactionStatusPending:    {TransactionStatusProcessing, TransactionStatusCancelled},
	TransactionStatusProcessing: {TransactionStatusShipped, TransactionStatusCancelled},
	TransactionStatusShipped:    {TransactionStatusDelivered, TransactionStatusCancelled},
}

// Valid reports whether the status is known
func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusProcessing, TransactionStatusShipped,
		TransactionStatusDelivered, TransactionStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s TransactionStatus) IsTerminal() bool {
	return len(transactionTransitions[s]) == 0
}

// CanTransitionTo reports whether moving from s to next is allowed
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	for _, allowed := range transactionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PaymentProvider is the channel a customer paid through
type PaymentProvider string

const (
	PaymentProviderGCash          PaymentProvider = "GCash"
	PaymentProviderPayMaya        PaymentProvider = "PayMaya"
	PaymentProviderCashOnDelivery PaymentProvider = "Cash on Delivery"
)

// Valid reports whether the provider is accepted at checkout
func (p PaymentProvider) Valid() bool {
	switch p {
	case PaymentProviderGCash, PaymentProviderPayMaya, PaymentProviderCashOnDelivery:
		return true
	}
	return false
}

// TransactionItem is a line item. Price is the unit price the customer saw.
type TransactionItem struct {
	ProductID string  `json:"productId" db:"product_id" validate:"required"`
	Quantity  int     `json:"quantity" db:"quantity" validate:"gte=1"`
	Price     float64 `json:"price" db:"price" validate:"gte=0"`
}

// Subtotal returns quantity times unit price
func (i TransactionItem) Subtotal() float64 {
	return float64(i.Quantity) * i.Price
}

// ShippingAddress is where a transaction is delivered
type ShippingAddress struct {
	Address string `json:"address" validate:"required,max=500"`
	City    string `json:"city" validate:"required,max=100"`
	ZipCode string `json:"zipCode" validate:"required,max=20"`
	Country string `json:"country" validate:"required,max=100"`
}

// PaymentRecord is the customer's own account of a payment. It is stored, never verified.
type PaymentRecord struct {
	Provider        PaymentProvider `json:"provider,omitempty" validate:"enum"`
	ReferenceNumber string          `json:"referenceNumber,omitempty" validate:"max=100"`
	SenderNumber    string          `json:"senderNumber,omitempty" validate:"phone"`
	SenderName      string          `json:"senderName,omitempty" validate:"max=100"`
	Screenshot      string          `json:"screenshot,omitempty" validate:"max=2048"`
}

// IsZero reports whether no payment details were given
func (p PaymentRecord) IsZero() bool {
	return p == PaymentRecord{}
}

// Transaction represents a checkout order over catalog products
type Transaction struct {
	ID              string            `json:"id"`
	UserID          string            `json:"userId"`
	Items           []TransactionItem `json:"products"`
	TotalAmount     float64           `json:"totalAmount"`
	Status          TransactionStatus `json:"status"`
	ShippingAddress ShippingAddress   `json:"shippingAddress"`
	PaymentMethod   *PaymentRecord    `json:"paymentMethod,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// TransactionCreation represents checkout data
type TransactionCreation struct {
	Items           []TransactionItem `json:"products" validate:"required,dive"`
	TotalAmount     float64           `json:"totalAmount" validate:"gte=0"`
	ShippingAddress ShippingAddress   `json:"shippingAddress" validate:"dive"`
	PaymentMethod   *PaymentRecord    `json:"paymentMethod,omitempty" validate:"dive"`
}

// TransactionStatusUpdate represents an admin status change
type TransactionStatusUpdate struct {
	Status TransactionStatus `json:"status" validate:"required,enum"`
}
