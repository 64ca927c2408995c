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
	"furnishop-backend/internal/utils"
)

const repairRequestColumns = `id, user_id, order_id, order_type, description, media, status,
	admin_notes, terms_accepted, terms_accepted_at, created_at, updated_at`

// RepairRequestService handles repair requests against delivered orders
type RepairRequestService struct {
	db     *sqlx.DB
	assets *AssetService
	logger logrus.FieldLogger
}

// NewRepairRequestService creates a new repair request service
func NewRepairRequestService(db *sqlx.DB, assets *AssetService, logger logrus.FieldLogger) *RepairRequestService {
	return &RepairRequestService{db: db, assets: assets, logger: logger}
}

// ResolveOrder loads the order a reference points at. An empty type tries a
// transaction first and then a custom order.
func (s *RepairRequestService) ResolveOrder(ctx context.Context, ref models.OrderRef) (models.OwnedOrder, models.OrderType, error) {
	switch ref.Type {
	case models.OrderTypeTransaction:
		order, err := getTransaction(ctx, s.db, ref.ID)
		if err != nil {
			return nil, "", orderNotFound(err)
		}
		return order, ref.Type, nil

	case models.OrderTypeCustomOrder:
		order, err := getCustomOrder(ctx, s.db, ref.ID)
		if err != nil {
			return nil, "", orderNotFound(err)
		}
		return order, ref.Type, nil

	case "":
		for _, t := range []models.OrderType{models.OrderTypeTransaction, models.OrderTypeCustomOrder} {
			order, resolved, err := s.ResolveOrder(ctx, models.OrderRef{ID: ref.ID, Type: t})
			if err == nil {
				return order, resolved, nil
			}
			if !errors.Is(err, ErrNotFound) {
				return nil, "", err
			}
		}
		return nil, "", notFound("Order not found")
	}

	return nil, "", invalidInput("Invalid order type")
}

func orderNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return notFound("Order not found")
	}
	return err
}

// CreateRepairRequest files a repair request for an order the requester owns
func (s *RepairRequestService) CreateRepairRequest(ctx context.Context, userID string, creation *models.RepairRequestCreation) (*models.RepairRequest, error) {
	creation.Description = strings.TrimSpace(creation.Description)
	if err := validate(creation); err != nil {
		return nil, err
	}
	if !creation.TermsAccepted {
		return nil, invalidInput("Repair terms must be accepted")
	}
	for _, m := range creation.Media {
		if !s.assets.InFolder(FolderRepairRequests, m) {
			return nil, invalidInput("Media must be uploaded through the repair media upload")
		}
	}

	order, _, err := s.ResolveOrder(ctx, creation.Ref())
	if err != nil {
		return nil, err
	}
	if order.OwnerID() != userID {
		return nil, forbidden("Not authorized to create repair request for this order")
	}

	now := time.Now().UTC()
	media := models.StringList(creation.Media)
	if media == nil {
		media = models.StringList{}
	}
	request := &models.RepairRequest{
		ID:              uuid.New().String(),
		UserID:          userID,
		OrderRef:        creation.Ref(),
		Description:     creation.Description,
		Media:           media,
		Status:          models.RepairStatusPending,
		TermsAccepted:   true,
		TermsAcceptedAt: &now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO repair_requests (`+repairRequestColumns+`)
		VALUES (:id, :user_id, :order_id, :order_type, :description, :media, :status,
			:admin_notes, :terms_accepted, :terms_accepted_at, :created_at, :updated_at)
	`, request)
	if err != nil {
		return nil, persistenceError(err, "failed to create repair request")
	}

	s.logger.WithFields(logrus.Fields{
		"repair_request_id": request.ID,
		"order_id":          request.OrderRef.ID,
		"order_type":        request.OrderRef.Type,
		"summary":           utils.TruncateString(request.Description, 60),
	}).Info("repair request created")
	return request, nil
}

// GetRepairRequests returns every repair request, newest first
func (s *RepairRequestService) GetRepairRequests(ctx context.Context) ([]*models.RepairRequest, error) {
	return s.list(ctx, "SELECT "+repairRequestColumns+" FROM repair_requests ORDER BY created_at DESC")
}

// GetUserRepairRequests returns a user's repair requests
func (s *RepairRequestService) GetUserRepairRequests(ctx context.Context, userID string) ([]*models.RepairRequest, error) {
	return s.list(ctx, "SELECT "+repairRequestColumns+" FROM repair_requests WHERE user_id = ? ORDER BY created_at DESC", userID)
}

// GetOrderRepairRequests returns the repair requests filed against an order.
// Only admins and the order's owner may read them.
func (s *RepairRequestService) GetOrderRepairRequests(ctx context.Context, ref models.OrderRef, requester models.Identity) ([]*models.RepairRequest, error) {
	order, orderType, err := s.ResolveOrder(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !requester.CanAccess(order.OwnerID()) {
		return nil, forbidden("Not authorized to view repair requests for this order")
	}

	return s.list(ctx, `
		SELECT `+repairRequestColumns+` FROM repair_requests
		WHERE order_id = ? AND order_type = ? ORDER BY created_at DESC
	`, ref.ID, orderType)
}

// GetRepairRequestByID returns one repair request
func (s *RepairRequestService) GetRepairRequestByID(ctx context.Context, id string) (*models.RepairRequest, error) {
	return getRepairRequest(ctx, s.db, id)
}

// UpdateRepairRequest sets status and admin notes
func (s *RepairRequestService) UpdateRepairRequest(ctx context.Context, id string, update *models.RepairRequestUpdate) (*models.RepairRequest, error) {
	if err := validate(update); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, persistenceError(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	request, err := getRepairRequest(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if update.Status != nil && *update.Status != "" {
		request.Status = *update.Status
	}
	if update.AdminNotes != nil {
		request.AdminNotes = *update.AdminNotes
	}
	request.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		UPDATE repair_requests SET status = ?, admin_notes = ?, updated_at = ? WHERE id = ?
	`, request.Status, request.AdminNotes, request.UpdatedAt, id)
	if err != nil {
		return nil, persistenceError(err, "failed to update repair request")
	}

	if err := tx.Commit(); err != nil {
		return nil, persistenceError(err, "failed to commit repair request update")
	}
	return request, nil
}

// DeleteRepairRequest removes the request and its media
func (s *RepairRequestService) DeleteRepairRequest(ctx context.Context, id string) error {
	request, err := getRepairRequest(ctx, s.db, id)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM repair_requests WHERE id = ?", id); err != nil {
		return persistenceError(err, "failed to delete repair request")
	}

	s.assets.RemoveUnder(ctx, FolderRepairRequests, request.Media)
	s.logger.WithField("repair_request_id", id).Info("repair request deleted")
	return nil
}

func (s *RepairRequestService) list(ctx context.Context, query string, args ...interface{}) ([]*models.RepairRequest, error) {
	requests := []*models.RepairRequest{}
	if err := s.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, persistenceError(err, "failed to list repair requests")
	}
	return requests, nil
}

func getRepairRequest(ctx context.Context, q sqlx.QueryerContext, id string) (*models.RepairRequest, error) {
	var request models.RepairRequest
	err := sqlx.GetContext(ctx, q, &request, "SELECT "+repairRequestColumns+" FROM repair_requests WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("Repair request not found")
	}
	if err != nil {
		return nil, persistenceError(err, "failed to get repair request")
	}
	return &request, nil
}
