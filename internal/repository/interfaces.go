package repository

import (
	"context"
	"errors"
	"time"

	"github.com/smallwares/backoffice/internal/domain"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("repository: not found")

// ErrDuplicateEmail is returned by Create when the email is already taken.
var ErrDuplicateEmail = errors.New("repository: email already registered")

// UserRepository exposes persistence for user accounts. Every method is a
// single atomic statement; in particular SetResetToken and ResetPassword
// each write their field pair in one UPDATE so a record is never observed
// half-updated.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, id int64) (domain.User, error)
	GetByResetToken(ctx context.Context, token string) (domain.User, error)
	// SetResetToken stores the token/expiry pair, overwriting any pending one.
	SetResetToken(ctx context.Context, userID int64, token string, expiry time.Time) error
	// ResetPassword stores the new hash and clears the reset token pair in
	// the same statement.
	ResetPassword(ctx context.Context, userID int64, passwordHash string) error
}

// ProductRepository exposes persistence for catalog records.
type ProductRepository interface {
	Create(ctx context.Context, product domain.Product) (domain.Product, error)
	GetByID(ctx context.Context, id string) (domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
	Update(ctx context.Context, product domain.Product) (domain.Product, error)
	Delete(ctx context.Context, id string) error
}
