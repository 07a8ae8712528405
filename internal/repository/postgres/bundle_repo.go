// internal/repository/postgres/bundle_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"bundl-service/internal/domain/bundle"
	xerrors "bundl-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

type BundleRepository struct {
	db *pgxpool.Pool
}

func NewBundleRepository(db *pgxpool.Pool) *BundleRepository {
	return &BundleRepository{db: db}
}

// Create persists an immutable bundle document. Selected packages and the
// price schedule are frozen snapshots; the row is never updated except for
// soft-deactivation.
func (r *BundleRepository) Create(ctx context.Context, b *bundle.Bundle) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}

	selectedJSON, err := json.Marshal(b.SelectedPackages)
	if err != nil {
		return fmt.Errorf("failed to marshal selected packages: %w", err)
	}
	scheduleJSON, err := json.Marshal(b.PriceEveryInterval)
	if err != nil {
		return fmt.Errorf("failed to marshal price schedule: %w", err)
	}

	query := `
		INSERT INTO bundles (
			id, name, description, color, is_preset, selected_packages,
			frequency, total_original_price, total_first_discounted_price,
			price_every_interval, is_active, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`
	err = r.db.QueryRow(
		ctx, query,
		b.ID, b.Name, b.Description, b.Color, b.IsPreset, selectedJSON,
		b.Frequency, b.TotalOriginalPrice, b.TotalFirstDiscountedPrice,
		scheduleJSON, b.IsActive, b.CreatedBy,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create bundle: %w", err)
	}
	return nil
}

func (r *BundleRepository) FindByID(ctx context.Context, id string) (*bundle.Bundle, error) {
	query := bundleSelect + ` WHERE id = $1`
	b, err := scanBundle(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("bundle %s: %w", id, xerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find bundle: %w", err)
	}
	return b, nil
}

// FindActiveByCreator lists a user's own active bundles plus the presets.
func (r *BundleRepository) FindActiveByCreator(ctx context.Context, userID string) ([]bundle.Bundle, error) {
	query := bundleSelect + `
		WHERE is_active = true AND (created_by = $1 OR is_preset = true)
		ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bundles: %w", err)
	}
	defer rows.Close()
	return scanBundles(rows)
}

// FindPresets lists the active curated bundles shown to everyone.
func (r *BundleRepository) FindPresets(ctx context.Context) ([]bundle.Bundle, error) {
	query := bundleSelect + ` WHERE is_active = true AND is_preset = true ORDER BY created_at`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list preset bundles: %w", err)
	}
	defer rows.Close()
	return scanBundles(rows)
}

// Deactivate soft-deletes a bundle. Existing subscriptions keep billing off
// their own snapshot.
func (r *BundleRepository) Deactivate(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE bundles SET is_active = false, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate bundle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bundle %s: %w", id, xerrors.ErrNotFound)
	}
	return nil
}

const bundleSelect = `
	SELECT id, name, description, color, is_preset, selected_packages,
	       frequency, total_original_price, total_first_discounted_price,
	       price_every_interval, is_active, created_by, created_at, updated_at
	FROM bundles
`

func scanBundle(row rowScanner) (*bundle.Bundle, error) {
	var b bundle.Bundle
	var selectedJSON, scheduleJSON []byte

	err := row.Scan(
		&b.ID, &b.Name, &b.Description, &b.Color, &b.IsPreset, &selectedJSON,
		&b.Frequency, &b.TotalOriginalPrice, &b.TotalFirstDiscountedPrice,
		&scheduleJSON, &b.IsActive, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(selectedJSON, &b.SelectedPackages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal selected packages: %w", err)
	}
	b.PriceEveryInterval = []decimal.Decimal{}
	if len(scheduleJSON) > 0 {
		if err := json.Unmarshal(scheduleJSON, &b.PriceEveryInterval); err != nil {
			return nil, fmt.Errorf("failed to unmarshal price schedule: %w", err)
		}
	}
	return &b, nil
}

func scanBundles(rows pgx.Rows) ([]bundle.Bundle, error) {
	bundles := []bundle.Bundle{}
	for rows.Next() {
		b, err := scanBundle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bundle: %w", err)
		}
		bundles = append(bundles, *b)
	}
	return bundles, rows.Err()
}
