package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"furnishop-backend/internal/models"
)

const customOrderColumns = `id, user_id, furniture_type, width, height, wood_type, varnish_type,
	total_price, notes, images, status, admin_notes, created_at, updated_at`

type customOrderRow struct {
	models.CustomOrder
	Width  float64 `db:"width"`
	Height float64 `db:"height"`
}

func newCustomOrderRow(o *models.CustomOrder) customOrderRow {
	return customOrderRow{CustomOrder: *o, Width: o.Dimensions.Width, Height: o.Dimensions.Height}
}

func (r customOrderRow) toModel() *models.CustomOrder {
	o := r.CustomOrder
	o.Dimensions = models.Dimensions{Width: r.Width, Height: r.Height}
	if o.Images == nil {
		o.Images = models.StringList{}
	}
	return &o
}

// CustomOrderService handles made-to-order furniture requests
type CustomOrderService struct {
	db     *sqlx.DB
	assets *AssetService
	events OrderEventPublisher
	logger logrus.FieldLogger
}

// NewCustomOrderService creates a new custom order service
func NewCustomOrderService(db *sqlx.DB, assets *AssetService, events OrderEventPublisher, logger logrus.FieldLogger) *CustomOrderService {
	if events == nil {
		events = NoopPublisher{}
	}
	return &CustomOrderService{db: db, assets: assets, events: events, logger: logger}
}

// CreateCustomOrder validates the request, uploads its reference images and
// records the order. Images already uploaded are removed if the insert fails.
func (s *CustomOrderService) CreateCustomOrder(ctx context.Context, userID string, creation *models.CustomOrderCreation, images []Upload) (*models.CustomOrder, error) {
	if err := validate(creation); err != nil {
		return nil, err
	}
	if len(images) > models.MaxCustomOrderImages {
		return nil, invalidInput("At most %d images can be attached", models.MaxCustomOrderImages)
	}

	stored, err := s.assets.UploadCustomOrderImages(ctx, images)
	if err != nil {
		return nil, err
	}
	urls := make(models.StringList, 0, len(stored))
	for _, asset := range stored {
		urls = append(urls, asset.URL)
	}

	now := time.Now().UTC()
	order := &models.CustomOrder{
		ID:            uuid.New().String(),
		UserID:        userID,
		FurnitureType: creation.FurnitureType,
		Dimensions:    models.Dimensions{Width: creation.Width, Height: creation.Height},
		WoodType:      creation.WoodType,
		VarnishType:   creation.VarnishType,
		TotalPrice:    creation.TotalPrice,
		Notes:         strings.TrimSpace(creation.Notes),
		Images:        urls,
		Status:        models.CustomOrderStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO custom_orders (`+customOrderColumns+`)
		VALUES (:id, :user_id, :furniture_type, :width, :height, :wood_type, :varnish_type,
			:total_price, :notes, :images, :status, :admin_notes, :created_at, :updated_at)
	`, newCustomOrderRow(order))
	if err != nil {
		s.assets.RemoveUnder(context.WithoutCancel(ctx), FolderCustomOrders, urls)
		return nil, persistenceError(err, "failed to create custom order")
	}

	s.events.PublishOrderEvent(OrderEvent{
		Type:      EventOrderCreated,
		OrderID:   order.ID,
		OrderType: models.OrderTypeCustomOrder,
		UserID:    userID,
		Status:    string(order.Status),
		At:        now,
	})
	s.logger.WithFields(logrus.Fields{
		"custom_order_id": order.ID,
		"user_id":         userID,
		"images":          len(urls),
	}).Info("custom order created")

	return order, nil
}

// GetCustomOrders returns the requester's orders, or every order for admins
func (s *CustomOrderService) GetCustomOrders(ctx context.Context, requester models.Identity) ([]*models.CustomOrder, error) {
	query := "SELECT " + customOrderColumns + " FROM custom_orders"
	var args []interface{}
	if !requester.IsAdmin() {
		query += " WHERE user_id = ?"
		args = append(args, requester.UserID)
	}
	query += " ORDER BY created_at DESC"

	var rows []customOrderRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, persistenceError(err, "failed to list custom orders")
	}

	orders := make([]*models.CustomOrder, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, row.toModel())
	}
	return orders, nil
}

// GetCustomOrderByID returns an order the requester owns, or any order for admins
func (s *CustomOrderService) GetCustomOrderByID(ctx context.Context, id string, requester models.Identity) (*models.CustomOrder, error) {
	order, err := getCustomOrder(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if !requester.CanAccess(order.UserID) {
		return nil, forbidden("Not authorized to view this order")
	}
	return order, nil
}

// UpdateCustomOrder sets status and admin notes. Any status may follow any other.
func (s *CustomOrderService) UpdateCustomOrder(ctx context.Context, id string, update *models.CustomOrderUpdate) (*models.CustomOrder, error) {
	if err := validate(update); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, persistenceError(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	order, err := getCustomOrder(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	previous := order.Status
	if update.Status != nil && *update.Status != "" {
		order.Status = *update.Status
	}
	if update.AdminNotes != nil {
		order.AdminNotes = *update.AdminNotes
	}
	order.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		UPDATE custom_orders SET status = ?, admin_notes = ?, updated_at = ? WHERE id = ?
	`, order.Status, order.AdminNotes, order.UpdatedAt, id)
	if err != nil {
		return nil, persistenceError(err, "failed to update custom order")
	}

	if err := tx.Commit(); err != nil {
		return nil, persistenceError(err, "failed to commit custom order update")
	}

	if order.Status != previous {
		s.events.PublishOrderEvent(OrderEvent{
			Type:           EventOrderStatusChanged,
			OrderID:        id,
			OrderType:      models.OrderTypeCustomOrder,
			UserID:         order.UserID,
			Status:         string(order.Status),
			PreviousStatus: string(previous),
			At:             order.UpdatedAt,
		})
	}
	return order, nil
}

// DeleteCustomOrder removes the order and then its images. Image cleanup
// failures are logged only.
func (s *CustomOrderService) DeleteCustomOrder(ctx context.Context, id string) error {
	order, err := getCustomOrder(ctx, s.db, id)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM custom_orders WHERE id = ?", id)
	if err != nil {
		return persistenceError(err, "failed to delete custom order")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return notFound("Custom order not found")
	}

	s.assets.RemoveUnder(ctx, FolderCustomOrders, order.Images)
	s.logger.WithField("custom_order_id", id).Info("custom order deleted")
	return nil
}

func getCustomOrder(ctx context.Context, q sqlx.QueryerContext, id string) (*models.CustomOrder, error) {
	var row customOrderRow
	err := sqlx.GetContext(ctx, q, &row, "SELECT "+customOrderColumns+" FROM custom_orders WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("Custom order not found")
	}
	if err != nil {
		return nil, persistenceError(err, "failed to get custom order")
	}
	return row.toModel(), nil
}
