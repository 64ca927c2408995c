package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"furnishop-backend/internal/models"
)

const paymentMethodColumns = "id, service_provider, type, account_number, account_name, qr_image, is_active, created_at, updated_at"

// PaymentMethodService manages the shop's e-wallet accounts
type PaymentMethodService struct {
	db     *sqlx.DB
	store  ObjectStore
	logger logrus.FieldLogger
}

// NewPaymentMethodService creates a new payment method service
func NewPaymentMethodService(db *sqlx.DB, store ObjectStore, logger logrus.FieldLogger) *PaymentMethodService {
	return &PaymentMethodService{db: db, store: store, logger: logger}
}

// GetActivePaymentMethods returns the methods shown at checkout
func (s *PaymentMethodService) GetActivePaymentMethods(ctx context.Context) ([]*models.PaymentMethod, error) {
	return s.list(ctx, "SELECT "+paymentMethodColumns+" FROM payment_methods WHERE is_active = 1 ORDER BY created_at DESC")
}

// GetPaymentMethods returns every method including inactive ones
func (s *PaymentMethodService) GetPaymentMethods(ctx context.Context) ([]*models.PaymentMethod, error) {
	return s.list(ctx, "SELECT "+paymentMethodColumns+" FROM payment_methods ORDER BY created_at DESC")
}

// GetPaymentMethodByID returns one method
func (s *PaymentMethodService) GetPaymentMethodByID(ctx context.Context, id string) (*models.PaymentMethod, error) {
	return getPaymentMethod(ctx, s.db, id)
}

// CreatePaymentMethod adds an active e-wallet account
func (s *PaymentMethodService) CreatePaymentMethod(ctx context.Context, creation *models.PaymentMethodCreation) (*models.PaymentMethod, error) {
	if err := validate(creation); err != nil {
		return nil, err
	}
	if creation.Type != "" && creation.Type != models.PaymentMethodTypeEWallet {
		return nil, invalidInput("Payment method type must be %s", models.PaymentMethodTypeEWallet)
	}

	now := time.Now().UTC()
	method := &models.PaymentMethod{
		ID:              uuid.New().String(),
		ServiceProvider: creation.ServiceProvider,
		Type:            models.PaymentMethodTypeEWallet,
		AccountNumber:   creation.AccountNumber,
		AccountName:     creation.AccountName,
		QRImage:         creation.QRImage,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO payment_methods (`+paymentMethodColumns+`)
		VALUES (:id, :service_provider, :type, :account_number, :account_name, :qr_image, :is_active, :created_at, :updated_at)
	`, method)
	if err != nil {
		return nil, persistenceError(err, "failed to create payment method")
	}

	s.logger.WithFields(logrus.Fields{"payment_method_id": method.ID, "provider": method.ServiceProvider}).Info("payment method created")
	return method, nil
}

// UpdatePaymentMethod applies a partial update. A replaced QR image is
// removed from storage once the update is committed.
func (s *PaymentMethodService) UpdatePaymentMethod(ctx context.Context, id string, update *models.PaymentMethodUpdate) (*models.PaymentMethod, error) {
	if err := validate(update); err != nil {
		return nil, err
	}
	if update.Type != nil && *update.Type != "" && *update.Type != models.PaymentMethodTypeEWallet {
		return nil, invalidInput("Payment method type must be %s", models.PaymentMethodTypeEWallet)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, persistenceError(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	method, err := getPaymentMethod(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	var replacedQR string
	if update.ServiceProvider != nil && *update.ServiceProvider != "" {
		method.ServiceProvider = *update.ServiceProvider
	}
	if update.AccountNumber != nil {
		method.AccountNumber = *update.AccountNumber
	}
	if update.AccountName != nil {
		method.AccountName = *update.AccountName
	}
	if update.QRImage != nil && *update.QRImage != method.QRImage {
		replacedQR = method.QRImage
		method.QRImage = *update.QRImage
	}
	if update.IsActive != nil {
		method.IsActive = *update.IsActive
	}
	method.UpdatedAt = time.Now().UTC()

	_, err = tx.NamedExecContext(ctx, `
		UPDATE payment_methods
		SET service_provider = :service_provider, account_number = :account_number, account_name = :account_name,
			qr_image = :qr_image, is_active = :is_active, updated_at = :updated_at
		WHERE id = :id
	`, method)
	if err != nil {
		return nil, persistenceError(err, "failed to update payment method")
	}

	if err := tx.Commit(); err != nil {
		return nil, persistenceError(err, "failed to commit payment method update")
	}

	if replacedQR != "" {
		BestEffortDelete(ctx, s.store, replacedQR, s.logger)
	}
	return method, nil
}

// DeletePaymentMethod removes the method and its QR image
func (s *PaymentMethodService) DeletePaymentMethod(ctx context.Context, id string) error {
	method, err := getPaymentMethod(ctx, s.db, id)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM payment_methods WHERE id = ?", id); err != nil {
		return persistenceError(err, "failed to delete payment method")
	}

	BestEffortDelete(ctx, s.store, method.QRImage, s.logger)
	s.logger.WithField("payment_method_id", id).Info("payment method deleted")
	return nil
}

func (s *PaymentMethodService) list(ctx context.Context, query string, args ...interface{}) ([]*models.PaymentMethod, error) {
	methods := []*models.PaymentMethod{}
	if err := s.db.SelectContext(ctx, &methods, query, args...); err != nil {
		return nil, persistenceError(err, "failed to list payment methods")
	}
	return methods, nil
}

func getPaymentMethod(ctx context.Context, q sqlx.QueryerContext, id string) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	err := sqlx.GetContext(ctx, q, &method, "SELECT "+paymentMethodColumns+" FROM payment_methods WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("Payment method not found")
	}
	if err != nil {
		return nil, persistenceError(err, "failed to get payment method")
	}
	return &method, nil
}
