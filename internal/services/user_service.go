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
	"golang.org/x/crypto/bcrypt"

	"furnishop-backend/internal/models"
	"furnishop-backend/internal/utils"
)

const userColumns = "id, name, email, password_hash, role, created_at, updated_at"

// UserService handles storefront accounts
type UserService struct {
	db     *sqlx.DB
	logger logrus.FieldLogger
}

// NewUserService creates a new user service
func NewUserService(db *sqlx.DB, logger logrus.FieldLogger) *UserService {
	return &UserService{db: db, logger: logger}
}

// CreateUser registers a customer account
func (s *UserService) CreateUser(ctx context.Context, registration *models.UserRegistration) (*models.User, error) {
	return s.createUser(ctx, registration, models.UserRoleUser)
}

// CreateAdmin creates an admin account. It is only reachable from the command line.
func (s *UserService) CreateAdmin(ctx context.Context, registration *models.UserRegistration) (*models.User, error) {
	return s.createUser(ctx, registration, models.UserRoleAdmin)
}

func (s *UserService) createUser(ctx context.Context, registration *models.UserRegistration, role models.UserRole) (*models.User, error) {
	if err := validate(registration); err != nil {
		return nil, err
	}

	if passwordErrors := utils.ValidatePassword(registration.Password); len(passwordErrors) > 0 {
		return nil, invalidInput("%s", strings.Join(passwordErrors, ", "))
	}

	email := utils.NormalizeEmail(registration.Email)
	exists, err := s.UserExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, invalidInput("User with this email already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(registration.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(registration.Name),
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (:id, :name, :email, :password_hash, :role, :created_at, :updated_at)
	`, user)
	if err != nil {
		return nil, persistenceError(err, "failed to create user")
	}

	s.logger.WithFields(logrus.Fields{"user_id": user.ID, "role": role}).Info("user created")
	return user, nil
}

// AuthenticateUser checks credentials. Unknown email and wrong password
// produce the same error.
func (s *UserService) AuthenticateUser(ctx context.Context, login *models.UserLogin) (*models.User, error) {
	if err := validate(login); err != nil {
		return nil, err
	}

	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT "+userColumns+" FROM users WHERE email = ?", utils.NormalizeEmail(login.Email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, unauthorized("Invalid email or password")
	}
	if err != nil {
		return nil, persistenceError(err, "failed to load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(login.Password)); err != nil {
		return nil, unauthorized("Invalid email or password")
	}

	return &user, nil
}

// GetUserByID returns one user
func (s *UserService) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT "+userColumns+" FROM users WHERE id = ?", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("User not found")
	}
	if err != nil {
		return nil, persistenceError(err, "failed to get user")
	}
	return &user, nil
}

// UserExists reports whether an account uses the email
func (s *UserService) UserExists(ctx context.Context, email string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM users WHERE email = ?", utils.NormalizeEmail(email))
	if err != nil {
		return false, persistenceError(err, "failed to check user existence")
	}
	return count > 0, nil
}
