// internal/repository/postgres/service_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bundl-service/internal/domain/catalog"
	xerrors "bundl-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
	"github.com/oklog/ulid/v2"
)

type ServiceRepository struct {
	db *pgxpool.Pool
}

func NewServiceRepository(db *pgxpool.Pool) *ServiceRepository {
	return &ServiceRepository{db: db}
}

// Create inserts a service document. Packages live inside the document as a
// JSONB column, mirroring the single-document catalog shape.
func (r *ServiceRepository) Create(ctx context.Context, svc *catalog.Service) error {
	if svc.ID == "" {
		svc.ID = ulid.Make().String()
	}
	for i := range svc.Packages {
		if svc.Packages[i].ID == "" {
			svc.Packages[i].ID = ulid.Make().String()
		}
	}

	packagesJSON, err := json.Marshal(svc.Packages)
	if err != nil {
		return fmt.Errorf("failed to marshal packages: %w", err)
	}

	query := `
		INSERT INTO services (
			id, name, logo, category, description, allowed_customer_types,
			is_active, wallet_address, email_address, webhook_url, packages
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`
	err = r.db.QueryRow(
		ctx, query,
		svc.ID, svc.Name, svc.Logo, svc.Category, svc.Description,
		pq.Array(svc.AllowedCustomerTypes),
		svc.IsActive, svc.WalletAddress, svc.EmailAddress, svc.WebhookURL, packagesJSON,
	).Scan(&svc.CreatedAt, &svc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	return nil
}

// Update replaces the mutable fields of a service document.
func (r *ServiceRepository) Update(ctx context.Context, svc *catalog.Service) error {
	packagesJSON, err := json.Marshal(svc.Packages)
	if err != nil {
		return fmt.Errorf("failed to marshal packages: %w", err)
	}

	query := `
		UPDATE services
		SET name = $2, logo = $3, category = $4, description = $5,
		    allowed_customer_types = $6, is_active = $7,
		    wallet_address = $8, email_address = $9, webhook_url = $10,
		    packages = $11, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err = r.db.QueryRow(
		ctx, query,
		svc.ID, svc.Name, svc.Logo, svc.Category, svc.Description,
		pq.Array(svc.AllowedCustomerTypes),
		svc.IsActive, svc.WalletAddress, svc.EmailAddress, svc.WebhookURL, packagesJSON,
	).Scan(&svc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("service %s: %w", svc.ID, xerrors.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update service: %w", err)
	}
	return nil
}

// Deactivate soft-deletes a service; existing bundle snapshots are unaffected.
func (r *ServiceRepository) Deactivate(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE services SET is_active = false, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate service: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("service %s: %w", id, xerrors.ErrNotFound)
	}
	return nil
}

func (r *ServiceRepository) FindByID(ctx context.Context, id string) (*catalog.Service, error) {
	query := serviceSelect + ` WHERE id = $1`
	svc, err := scanService(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("service %s: %w", id, xerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find service: %w", err)
	}
	return svc, nil
}

// FindActiveServices returns full documents of all active services.
func (r *ServiceRepository) FindActiveServices(ctx context.Context) ([]catalog.Service, error) {
	query := serviceSelect + ` WHERE is_active = true ORDER BY created_at`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active services: %w", err)
	}
	defer rows.Close()
	return scanServices(rows)
}

// FindAll returns every service document, active or not. Admin surface.
func (r *ServiceRepository) FindAll(ctx context.Context) ([]catalog.Service, error) {
	query := serviceSelect + ` ORDER BY created_at`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer rows.Close()
	return scanServices(rows)
}

// FindServiceRootDocumentsByIDs returns the services without their package
// payloads. The payout wallet stays on the document: bundle snapshots route
// payments through it. Strip it with RootDocument before exposing publicly.
func (r *ServiceRepository) FindServiceRootDocumentsByIDs(ctx context.Context, ids []string) ([]catalog.Service, error) {
	query := `
		SELECT id, name, logo, category, description, allowed_customer_types,
		       is_active, wallet_address, email_address, webhook_url, created_at, updated_at
		FROM services
		WHERE id = ANY($1)
	`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load service root documents: %w", err)
	}
	defer rows.Close()

	services := []catalog.Service{}
	for rows.Next() {
		var svc catalog.Service
		var customerTypes []string
		err := rows.Scan(
			&svc.ID, &svc.Name, &svc.Logo, &svc.Category, &svc.Description,
			pq.Array(&customerTypes),
			&svc.IsActive, &svc.WalletAddress, &svc.EmailAddress, &svc.WebhookURL,
			&svc.CreatedAt, &svc.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan service root document: %w", err)
		}
		svc.AllowedCustomerTypes = customerTypes
		services = append(services, svc)
	}
	return services, rows.Err()
}

const serviceSelect = `
	SELECT id, name, logo, category, description, allowed_customer_types,
	       is_active, wallet_address, email_address, webhook_url, packages,
	       created_at, updated_at
	FROM services
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanService(row rowScanner) (*catalog.Service, error) {
	var svc catalog.Service
	var customerTypes []string
	var packagesJSON []byte
	var createdAt, updatedAt time.Time

	err := row.Scan(
		&svc.ID, &svc.Name, &svc.Logo, &svc.Category, &svc.Description,
		pq.Array(&customerTypes),
		&svc.IsActive, &svc.WalletAddress, &svc.EmailAddress, &svc.WebhookURL, &packagesJSON,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(packagesJSON) > 0 {
		if err := json.Unmarshal(packagesJSON, &svc.Packages); err != nil {
			return nil, fmt.Errorf("failed to unmarshal packages: %w", err)
		}
	}
	svc.AllowedCustomerTypes = customerTypes
	svc.CreatedAt = createdAt
	svc.UpdatedAt = updatedAt
	return &svc, nil
}

func scanServices(rows pgx.Rows) ([]catalog.Service, error) {
	services := []catalog.Service{}
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		services = append(services, *svc)
	}
	return services, rows.Err()
}
