package services

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"furnishop-backend/internal/models"
	"furnishop-backend/internal/utils"
)

const transactionColumns = `id, user_id, total_amount, status,
	shipping_address, shipping_city, shipping_zip_code, shipping_country,
	payment_provider, payment_reference_number, payment_sender_number, payment_sender_name, payment_screenshot,
	created_at, updated_at`

// transactionRow is the flat table shape of a transaction
type transactionRow struct {
	ID                     string                   `db:"id"`
	UserID                 string                   `db:"user_id"`
	TotalAmount            float64                  `db:"total_amount"`
	Status                 models.TransactionStatus `db:"status"`
	ShippingAddress        string                   `db:"shipping_address"`
	ShippingCity           string                   `db:"shipping_city"`
	ShippingZipCode        string                   `db:"shipping_zip_code"`
	ShippingCountry        string                   `db:"shipping_country"`
	PaymentProvider        string                   `db:"payment_provider"`
	PaymentReferenceNumber string                   `db:"payment_reference_number"`
	PaymentSenderNumber    string                   `db:"payment_sender_number"`
	PaymentSenderName      string                   `db:"payment_sender_name"`
	PaymentScreenshot      string                   `db:"payment_screenshot"`
	CreatedAt              time.Time                `db:"created_at"`
	UpdatedAt              time.Time                `db:"updated_at"`
}

func newTransactionRow(t *models.Transaction) transactionRow {
	row := transactionRow{
		ID:              t.ID,
		UserID:          t.UserID,
		TotalAmount:     t.TotalAmount,
		Status:          t.Status,
		ShippingAddress: t.ShippingAddress.Address,
		ShippingCity:    t.ShippingAddress.City,
		ShippingZipCode: t.ShippingAddress.ZipCode,
		ShippingCountry: t.ShippingAddress.Country,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
	if p := t.PaymentMethod; p != nil {
		row.PaymentProvider = string(p.Provider)
		row.PaymentReferenceNumber = p.ReferenceNumber
		row.PaymentSenderNumber = p.SenderNumber
		row.PaymentSenderName = p.SenderName
		row.PaymentScreenshot = p.Screenshot
	}
	return row
}

func (r transactionRow) toModel() *models.Transaction {
	t := &models.Transaction{
		ID:          r.ID,
		UserID:      r.UserID,
		Items:       []models.TransactionItem{},
		TotalAmount: r.TotalAmount,
		Status:      r.Status,
		ShippingAddress: models.ShippingAddress{
			Address: r.ShippingAddress,
			City:    r.ShippingCity,
			ZipCode: r.ShippingZipCode,
			Country: r.ShippingCountry,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	payment := models.PaymentRecord{
		Provider:        models.PaymentProvider(r.PaymentProvider),
		ReferenceNumber: r.PaymentReferenceNumber,
		SenderNumber:    r.PaymentSenderNumber,
		SenderName:      r.PaymentSenderName,
		Screenshot:      r.PaymentScreenshot,
	}
	if !payment.IsZero() {
		t.PaymentMethod = &payment
	}
	return t
}

type transactionItemRow struct {
	TransactionID string `db:"transaction_id"`
	models.TransactionItem
}

// TransactionService creates checkout orders and moves them through their
// lifecycle while keeping product stock consistent
type TransactionService struct {
	db     *sqlx.DB
	cache  CatalogCache
	events OrderEventPublisher
	logger logrus.FieldLogger
}

// NewTransactionService creates a new transaction service
func NewTransactionService(db *sqlx.DB, cache CatalogCache, events OrderEventPublisher, logger logrus.FieldLogger) *TransactionService {
	if cache == nil {
		cache = NoopCache{}
	}
	if events == nil {
		events = NoopPublisher{}
	}
	return &TransactionService{db: db, cache: cache, events: events, logger: logger}
}

// CreateTransaction reserves stock for every line item and records the order.
//
// Items are processed in the order given. Each decrement is conditional on
// enough stock remaining, and the first item that cannot be filled rolls the
// whole order back, so no partial deduction is ever visible.
func (s *TransactionService) CreateTransaction(ctx context.Context, userID string, creation *models.TransactionCreation) (*models.Transaction, error) {
	if len(creation.Items) == 0 {
		return nil, invalidInput("No products in transaction")
	}
	if err := validate(creation); err != nil {
		return nil, err
	}
	if creation.PaymentMethod != nil && creation.PaymentMethod.IsZero() {
		creation.PaymentMethod = nil
	}

	now := time.Now().UTC()
	transaction := &models.Transaction{
		ID:              uuid.New().String(),
		UserID:          userID,
		Items:           creation.Items,
		TotalAmount:     creation.TotalAmount,
		Status:          models.TransactionStatusPending,
		ShippingAddress: creation.ShippingAddress,
		PaymentMethod:   creation.PaymentMethod,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, persistenceError(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	productIDs := make([]string, 0, len(creation.Items))
	var itemsTotal float64
	for _, item := range creation.Items {
		if err := s.reserveStock(ctx, tx, item, now); err != nil {
			return nil, err
		}
		productIDs = append(productIDs, item.ProductID)
		itemsTotal += item.Subtotal()
	}

	if math.Abs(utils.RoundToDecimalPlaces(itemsTotal, 2)-transaction.TotalAmount) > 0.005 {
		s.logger.WithFields(logrus.Fields{
			"transaction_id": transaction.ID,
			"total_amount":   transaction.TotalAmount,
			"items_total":    itemsTotal,
		}).Warn("transaction total does not match its line items")
	}

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (:id, :user_id, :total_amount, :status,
			:shipping_address, :shipping_city, :shipping_zip_code, :shipping_country,
			:payment_provider, :payment_reference_number, :payment_sender_number, :payment_sender_name, :payment_screenshot,
			:created_at, :updated_at)
	`, newTransactionRow(transaction))
	if err != nil {
		return nil, persistenceError(err, "failed to create transaction")
	}

	for i, item := range transaction.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO transaction_items (transaction_id, position, product_id, quantity, price)
			VALUES (?, ?, ?, ?, ?)
		`, transaction.ID, i, item.ProductID, item.Quantity, item.Price)
		if err != nil {
			return nil, persistenceError(err, "failed to save transaction item")
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, persistenceError(err, "failed to commit transaction")
	}

	invalidateProducts(ctx, s.cache, productIDs...)
	s.events.PublishOrderEvent(OrderEvent{
		Type:      EventOrderCreated,
		OrderID:   transaction.ID,
		OrderType: models.OrderTypeTransaction,
		UserID:    userID,
		Status:    string(transaction.Status),
		At:        now,
	})
	s.logger.WithFields(logrus.Fields{
		"transaction_id": transaction.ID,
		"user_id":        userID,
		"items":          len(transaction.Items),
		"total":          utils.FormatCurrency(transaction.TotalAmount),
	}).Info("transaction created")

	return transaction, nil
}

// reserveStock deducts one line item from its product inside tx
func (s *TransactionService) reserveStock(ctx context.Context, tx *sqlx.Tx, item models.TransactionItem, now time.Time) error {
	product, err := getProduct(ctx, tx, item.ProductID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return notFound("Product %s not found", item.ProductID)
		}
		return err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE products SET stock = stock - ?, updated_at = ?
		WHERE id = ? AND stock >= ?
	`, item.Quantity, now, item.ProductID, item.Quantity)
	if err != nil {
		return persistenceError(err, "failed to update product stock")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return persistenceError(err, "failed to update product stock")
	}
	if rows == 0 {
		return &InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Available:   product.Stock,
			Requested:   item.Quantity,
		}
	}

	if item.Price != product.Price {
		variants, err := loadProductModels(ctx, tx, product.ID)
		if err != nil {
			return err
		}
		if !matchesVariantPrice(variants, item.Price) {
			s.logger.WithFields(logrus.Fields{
				"product_id":    product.ID,
				"catalog_price": product.Price,
				"item_price":    item.Price,
			}).Warn("line item price differs from catalog price")
		}
	}

	return nil
}

func matchesVariantPrice(variants models.ModelVariants, price float64) bool {
	for _, v := range variants {
		if v.Price == price {
			return true
		}
	}
	return false
}

// UpdateTransactionStatus moves a transaction to a new status.
//
// The status write is conditional on the status read in the same database
// transaction, and stock is restored only when that write moved the order
// into cancelled. A retried cancel therefore restores nothing.
func (s *TransactionService) UpdateTransactionStatus(ctx context.Context, id string, status models.TransactionStatus) (*models.Transaction, error) {
	if err := validate(&models.TransactionStatusUpdate{Status: status}); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, persistenceError(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	transaction, err := getTransaction(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	previous := transaction.Status
	if previous == status {
		return transaction, nil
	}
	if previous.IsTerminal() {
		return nil, invalidInput("Transaction is already %s", previous)
	}
	if !previous.CanTransitionTo(status) {
		return nil, invalidInput("Cannot change transaction status from %s to %s", previous, status)
	}

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, `
		UPDATE transactions SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, status, now, id, previous)
	if err != nil {
		return nil, persistenceError(err, "failed to update transaction status")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, persistenceError(err, "failed to update transaction status")
	}
	if rows == 0 {
		return nil, invalidInput("Transaction status changed concurrently, reload and retry")
	}

	productIDs := make([]string, 0, len(transaction.Items))
	if status == models.TransactionStatusCancelled {
		for _, item := range transaction.Items {
			restored, err := tx.ExecContext(ctx, `
				UPDATE products SET stock = stock + ?, updated_at = ? WHERE id = ?
			`, item.Quantity, now, item.ProductID)
			if err != nil {
				return nil, persistenceError(err, "failed to restore product stock")
			}
			if n, _ := restored.RowsAffected(); n == 0 {
				s.logger.WithFields(logrus.Fields{
					"transaction_id": id,
					"product_id":     item.ProductID,
					"quantity":       item.Quantity,
				}).Warn("product no longer exists, stock not restored")
				continue
			}
			productIDs = append(productIDs, item.ProductID)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, persistenceError(err, "failed to commit status change")
	}

	transaction.Status = status
	transaction.UpdatedAt = now

	if len(productIDs) > 0 {
		invalidateProducts(ctx, s.cache, productIDs...)
	}
	s.events.PublishOrderEvent(OrderEvent{
		Type:           EventOrderStatusChanged,
		OrderID:        id,
		OrderType:      models.OrderTypeTransaction,
		UserID:         transaction.UserID,
		Status:         string(status),
		PreviousStatus: string(previous),
		At:             now,
	})
	s.logger.WithFields(logrus.Fields{
		"transaction_id": id,
		"from":           previous,
		"to":             status,
	}).Info("transaction status updated")

	return transaction, nil
}

// GetTransactions returns every transaction, newest first
func (s *TransactionService) GetTransactions(ctx context.Context) ([]*models.Transaction, error) {
	return s.listTransactions(ctx, "SELECT "+transactionColumns+" FROM transactions ORDER BY created_at DESC")
}

// GetUserTransactions returns a user's transactions, newest first
func (s *TransactionService) GetUserTransactions(ctx context.Context, userID string) ([]*models.Transaction, error) {
	return s.listTransactions(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE user_id = ? ORDER BY created_at DESC", userID)
}

// GetTransactionByID returns a transaction the requester owns, or any transaction for admins
func (s *TransactionService) GetTransactionByID(ctx context.Context, id string, requester models.Identity) (*models.Transaction, error) {
	transaction, err := getTransaction(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if !requester.CanAccess(transaction.UserID) {
		return nil, forbidden("Not authorized to view this transaction")
	}
	return transaction, nil
}

// DeleteTransaction removes a transaction record. Stock is not touched.
func (s *TransactionService) DeleteTransaction(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return persistenceError(err, "failed to delete transaction")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return persistenceError(err, "failed to delete transaction")
	}
	if rows == 0 {
		return notFound("Transaction not found")
	}
	s.logger.WithField("transaction_id", id).Info("transaction deleted")
	return nil
}

func (s *TransactionService) listTransactions(ctx context.Context, query string, args ...interface{}) ([]*models.Transaction, error) {
	var rows []transactionRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, persistenceError(err, "failed to list transactions")
	}

	transactions := make([]*models.Transaction, 0, len(rows))
	byID := make(map[string]*models.Transaction, len(rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		t := row.toModel()
		transactions = append(transactions, t)
		byID[t.ID] = t
		ids = append(ids, t.ID)
	}
	if len(ids) == 0 {
		return transactions, nil
	}

	itemQuery, itemArgs, err := sqlx.In(`
		SELECT transaction_id, product_id, quantity, price
		FROM transaction_items WHERE transaction_id IN (?)
		ORDER BY transaction_id, position
	`, ids)
	if err != nil {
		return nil, persistenceError(err, "failed to build item query")
	}

	var items []transactionItemRow
	if err := s.db.SelectContext(ctx, &items, s.db.Rebind(itemQuery), itemArgs...); err != nil {
		return nil, persistenceError(err, "failed to load transaction items")
	}
	for _, item := range items {
		if t, ok := byID[item.TransactionID]; ok {
			t.Items = append(t.Items, item.TransactionItem)
		}
	}

	return transactions, nil
}

// getTransaction loads a transaction and its items
func getTransaction(ctx context.Context, q sqlx.QueryerContext, id string) (*models.Transaction, error) {
	var row transactionRow
	err := sqlx.GetContext(ctx, q, &row, "SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("Transaction not found")
	}
	if err != nil {
		return nil, persistenceError(err, "failed to get transaction")
	}

	transaction := row.toModel()
	err = sqlx.SelectContext(ctx, q, &transaction.Items, `
		SELECT product_id, quantity, price FROM transaction_items
		WHERE transaction_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, persistenceError(err, "failed to load transaction items")
	}
	return transaction, nil
}
