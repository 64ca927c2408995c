package models

import (
	"time"
)

// ServiceProvider is an e-wallet the shop accepts transfers on
type ServiceProvider string

const (
	ServiceProviderGCash   ServiceProvider = "GCash"
	ServiceProviderPayMaya ServiceProvider = "PayMaya"
)

// Valid reports whether the provider is supported
func (p ServiceProvider) Valid() bool {
	return p == ServiceProviderGCash || p == ServiceProviderPayMaya
}

// PaymentMethodTypeEWallet is the only payment method type
const PaymentMethodTypeEWallet = "eWallet"

// PaymentMethod is a shop account customers send payments to
type PaymentMethod struct {
	ID              string          `json:"id" db:"id"`
	ServiceProvider ServiceProvider `json:"serviceProvider" db:"service_provider"`
	Type            string          `json:"type" db:"type"`
	AccountNumber   string          `json:"accountNumber" db:"account_number"`
	AccountName     string          `json:"accountName" db:"account_name"`
	QRImage         string          `json:"qrImage" db:"qr_image"`
	IsActive        bool            `json:"isActive" db:"is_active"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
}

// PaymentMethodCreation represents payment method creation data
type PaymentMethodCreation struct {
	ServiceProvider ServiceProvider `json:"serviceProvider" validate:"required,enum"`
	Type            string          `json:"type" validate:"max=20"`
	AccountNumber   string          `json:"accountNumber" validate:"required,phone"`
	AccountName     string          `json:"accountName" validate:"required,max=100,no_xss"`
	QRImage         string          `json:"qrImage" validate:"required,max=2048"`
}

// PaymentMethodUpdate represents a partial update. Nil fields are left unchanged.
type PaymentMethodUpdate struct {
	ServiceProvider *ServiceProvider `json:"serviceProvider,omitempty" validate:"enum"`
	Type            *string          `json:"type,omitempty" validate:"max=20"`
	AccountNumber   *string          `json:"accountNumber,omitempty" validate:"required,phone"`
	AccountName     *string          `json:"accountName,omitempty" validate:"required,max=100,no_xss"`
	QRImage         *string          `json:"qrImage,omitempty" validate:"required,max=2048"`
	IsActive        *bool            `json:"isActive,omitempty"`
}
