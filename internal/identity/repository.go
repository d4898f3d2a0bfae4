package identity

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/skundu/blood-market/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateAccount inserts the user row and its role profile in one transaction.
// A duplicate email or phone surfaces as a ValidationError, not a 500.
func (r *Repository) CreateAccount(ctx context.Context, u *domain.User) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, domain.Persistence("begin signup tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	var userID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (full_name, email, phone, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING user_id
	`, u.FullName, u.Email, u.Phone, u.PasswordHash, u.Role).Scan(&userID)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, domain.Validationf("an account with this email or phone number already exists")
		}
		return 0, domain.Persistence("insert user", err)
	}

	switch u.Role {
	case domain.RoleRetailer:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO retailers (retailer_id, name, contact_person)
			VALUES ($1, $2, $3)
		`, userID, u.FullName, u.FullName)
	case domain.RoleCustomer:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO customers (customer_id, hospital_name, contact_person)
			VALUES ($1, $2, $3)
		`, userID, u.FullName, u.FullName)
	}
	if err != nil {
		return 0, domain.Persistence("insert profile", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, domain.Persistence("commit signup tx", err)
	}

	return userID, nil
}

// GetActiveByEmail returns the active user for a login attempt, or
// ErrNotFound when no such account exists.
func (r *Repository) GetActiveByEmail(ctx context.Context, email string) (*domain.User, error) {
	u := &domain.User{}
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, full_name, email, phone, password_hash, role, is_active, created_at
		FROM users
		WHERE email = $1 AND is_active
	`, email).Scan(&u.ID, &u.FullName, &u.Email, &u.Phone, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.Persistence("query user by email", err)
	}
	return u, nil
}

// EnsureAdmin seeds the platform admin account if it is missing. Safe to run
// on every startup.
func (r *Repository) EnsureAdmin(ctx context.Context, email, passwordHash string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (full_name, email, phone, password_hash, role)
		VALUES ('Platform Admin', $1, '+0000000000', $2, 'admin')
		ON CONFLICT (email) DO NOTHING
	`, email, passwordHash)
	if err != nil {
		return domain.Persistence("seed admin user", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
