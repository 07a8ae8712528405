// internal/repository/postgres/user_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"bundl-service/internal/domain/user"
	xerrors "bundl-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// UpsertByWallet creates the account on first login and returns the existing
// one afterwards. Wallet address is the identity; the role never changes here.
func (r *UserRepository) UpsertByWallet(ctx context.Context, walletAddress string) (*user.User, error) {
	query := `
		INSERT INTO users (id, wallet_address, role)
		VALUES ($1, $2, 'user')
		ON CONFLICT (wallet_address) DO UPDATE SET updated_at = NOW()
		RETURNING id, wallet_address, COALESCE(customer_type, ''), role, created_at, updated_at
	`
	var u user.User
	err := r.db.QueryRow(ctx, query, ulid.Make().String(), walletAddress).Scan(
		&u.ID, &u.WalletAddress, &u.CustomerType, &u.Role, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*user.User, error) {
	query := `
		SELECT id, wallet_address, COALESCE(customer_type, ''), role, created_at, updated_at
		FROM users WHERE id = $1
	`
	var u user.User
	err := r.db.QueryRow(ctx, query, id).Scan(
		&u.ID, &u.WalletAddress, &u.CustomerType, &u.Role, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, xerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) FindByWallet(ctx context.Context, walletAddress string) (*user.User, error) {
	query := `
		SELECT id, wallet_address, COALESCE(customer_type, ''), role, created_at, updated_at
		FROM users WHERE wallet_address = $1
	`
	var u user.User
	err := r.db.QueryRow(ctx, query, walletAddress).Scan(
		&u.ID, &u.WalletAddress, &u.CustomerType, &u.Role, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("wallet %s: %w", walletAddress, xerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &u, nil
}
