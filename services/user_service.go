package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/daylistio/daylist/models"
)

// UserService handles account lookup, registration and credential checks
type UserService struct {
	db *sql.DB
}

// NewUserService creates a new user service
func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db}
}

// Register creates a local account. Registering an email that already has
// an account fails with ErrConflict and creates no row.
func (s *UserService) Register(ctx context.Context, email, name, password string) (*models.User, error) {
	if _, err := s.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("email %s: %w", email, models.ErrConflict)
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hashed),
	}

	query := `INSERT INTO users (email, name, password_hash, federated, verified)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err = s.db.QueryRowContext(ctx, query, user.Email, user.Name, user.PasswordHash, false, false).Scan(&user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// RegisterFederated creates an account for an identity-provider profile.
// No password is collected, so the credential slot is filled with an
// unguessable placeholder.
func (s *UserService) RegisterFederated(ctx context.Context, email, name string) (*models.User, error) {
	placeholder, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash placeholder credential: %w", err)
	}

	user := &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: string(placeholder),
		Federated:    true,
		Verified:     true,
	}

	query := `INSERT INTO users (email, name, password_hash, federated, verified)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err = s.db.QueryRowContext(ctx, query, user.Email, user.Name, user.PasswordHash, true, true).Scan(&user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create federated user: %w", err)
	}

	return user, nil
}

// GetByEmail retrieves a user by email
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.get(ctx, `SELECT id, email, name, password_hash, federated, verified FROM users WHERE email = $1`, email)
}

// GetByID retrieves a user by ID
func (s *UserService) GetByID(ctx context.Context, userID int64) (*models.User, error) {
	return s.get(ctx, `SELECT id, email, name, password_hash, federated, verified FROM users WHERE id = $1`, userID)
}

func (s *UserService) get(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	user := &models.User{}
	var hash sql.NullString
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.Name, &hash, &user.Federated, &user.Verified,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user: %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.PasswordHash = hash.String
	return user, nil
}

// Authenticate checks email and password. An unknown email fails with
// ErrNotFound; a wrong password with ErrUnauthorized. Neither establishes
// any session state.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, fmt.Errorf("password check failed: %w", models.ErrUnauthorized)
	}
	return user, nil
}

// UpdateProfile changes name and/or email. Empty values leave the current
// field untouched. Changing the email to an address that already has an
// account fails with ErrConflict.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, name, email string) error {
	if name != "" {
		if _, err := s.db.ExecContext(ctx, `UPDATE users SET name = $1 WHERE id = $2`, name, userID); err != nil {
			return fmt.Errorf("failed to update name: %w", err)
		}
	}
	if email != "" {
		existing, err := s.GetByEmail(ctx, email)
		if err == nil && existing.ID != userID {
			return fmt.Errorf("email %s: %w", email, models.ErrConflict)
		}
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return err
		}
		if _, err := s.db.ExecContext(ctx, `UPDATE users SET email = $1 WHERE id = $2`, email, userID); err != nil {
			return fmt.Errorf("failed to update email: %w", err)
		}
	}
	return nil
}

// UpdatePassword re-hashes and stores a new password for the account with
// the given email.
func (s *UserService) UpdatePassword(ctx context.Context, email, password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = $1 WHERE email = $2`, string(hashed), email)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user: %w", models.ErrNotFound)
	}
	return nil
}

// MarkVerified flags the account with the given email as email-verified
func (s *UserService) MarkVerified(ctx context.Context, email string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET verified = $1 WHERE email = $2`, true, email)
	if err != nil {
		return fmt.Errorf("failed to mark verified: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user: %w", models.ErrNotFound)
	}
	return nil
}
