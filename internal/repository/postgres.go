package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smallwares/backoffice/internal/domain"
)

// Compile-time interface assertions.
var (
	_ UserRepository    = (*PostgresUserRepo)(nil)
	_ ProductRepository = (*PostgresProductRepo)(nil)
)

const pgUniqueViolation = "23505"

// PostgresUserRepo implements UserRepository on pgx.
type PostgresUserRepo struct {
	db *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{db: pool}
}

const userColumns = `id, first_name, last_name, email, password_hash, reset_token, reset_token_expiry, created_at, updated_at`

func (r *PostgresUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	const query = `
INSERT INTO users (id, first_name, last_name, email, password_hash)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + userColumns

	row := r.db.QueryRow(ctx, query, user.ID, user.FirstName, user.LastName, user.Email, user.PasswordHash)
	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.User{}, ErrDuplicateEmail
		}
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	return created, nil
}

func (r *PostgresUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.getOne(ctx, query, email)
}

func (r *PostgresUserRepo) GetByID(ctx context.Context, id int64) (domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *PostgresUserRepo) GetByResetToken(ctx context.Context, token string) (domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE reset_token = $1`
	return r.getOne(ctx, query, token)
}

func (r *PostgresUserRepo) SetResetToken(ctx context.Context, userID int64, token string, expiry time.Time) error {
	const query = `
UPDATE users SET reset_token = $2, reset_token_expiry = $3, updated_at = now()
WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, userID, token, expiry)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresUserRepo) ResetPassword(ctx context.Context, userID int64, passwordHash string) error {
	const query = `
UPDATE users SET password_hash = $2, reset_token = NULL, reset_token_expiry = NULL, updated_at = now()
WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresUserRepo) getOne(ctx context.Context, query string, arg any) (domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		user   domain.User
		token  *string
		expiry *time.Time
	)
	err := row.Scan(&user.ID, &user.FirstName, &user.LastName, &user.Email, &user.PasswordHash, &token, &expiry, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return domain.User{}, err
	}
	if token != nil {
		user.ResetToken = *token
	}
	user.ResetTokenExpiry = expiry
	return user, nil
}

// PostgresProductRepo implements ProductRepository on pgx.
type PostgresProductRepo struct {
	db *pgxpool.Pool
}

func NewPostgresProductRepo(pool *pgxpool.Pool) *PostgresProductRepo {
	return &PostgresProductRepo{db: pool}
}

const productColumns = `id, name, description, tags, price, created_at, updated_at`

func (r *PostgresProductRepo) Create(ctx context.Context, product domain.Product) (domain.Product, error) {
	const query = `
INSERT INTO products (id, name, description, tags, price)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + productColumns

	row := r.db.QueryRow(ctx, query, product.ID, product.Name, product.Description, product.Tags, product.Price)
	created, err := scanProduct(row)
	if err != nil {
		return domain.Product{}, fmt.Errorf("insert product: %w", err)
	}
	return created, nil
}

func (r *PostgresProductRepo) GetByID(ctx context.Context, id string) (domain.Product, error) {
	const query = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, ErrNotFound
		}
		return domain.Product{}, fmt.Errorf("get product: %w", err)
	}
	return product, nil
}

func (r *PostgresProductRepo) List(ctx context.Context) ([]domain.Product, error) {
	const query = `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (r *PostgresProductRepo) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	const query = `
UPDATE products SET name = $2, description = $3, tags = $4, price = $5, updated_at = now()
WHERE id = $1
RETURNING ` + productColumns

	row := r.db.QueryRow(ctx, query, product.ID, product.Name, product.Description, product.Tags, product.Price)
	updated, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, ErrNotFound
		}
		return domain.Product{}, fmt.Errorf("update product: %w", err)
	}
	return updated, nil
}

func (r *PostgresProductRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var product domain.Product
	err := row.Scan(&product.ID, &product.Name, &product.Description, &product.Tags, &product.Price, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return domain.Product{}, err
	}
	if product.Tags == nil {
		product.Tags = []string{}
	}
	return product, nil
}
