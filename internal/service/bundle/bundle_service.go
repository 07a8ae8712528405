// internal/service/bundle/bundle_service.go
package bundle

import (
	"context"
	"fmt"

	domain "bundl-service/internal/domain/bundle"
	xerrors "bundl-service/internal/pkg/errors"
	"bundl-service/internal/pricing"
	"bundl-service/internal/repository/postgres"

	"go.uber.org/zap"
)

// BundleService previews and commits bundles. A committed bundle is an
// immutable snapshot: catalog edits after creation never change what an
// existing bundle bills.
type BundleService struct {
	repo   *postgres.BundleRepository
	engine *pricing.Engine
	logger *zap.Logger
}

func NewBundleService(repo *postgres.BundleRepository, engine *pricing.Engine, logger *zap.Logger) *BundleService {
	return &BundleService{repo: repo, engine: engine, logger: logger}
}

// Preview computes the price curve for a selection without persisting anything.
func (s *BundleService) Preview(ctx context.Context, req *domain.PreviewRequest) (*domain.PreviewResponse, error) {
	preview, err := s.engine.PreviewBundle(ctx, req)
	if err != nil {
		return nil, err
	}
	return preview.Response(), nil
}

// Create reprices the selection server-side and freezes the result. Client
// prices are never trusted.
func (s *BundleService) Create(ctx context.Context, userID string, isAdmin bool, req *domain.CreateBundleRequest) (*domain.Bundle, error) {
	if req.IsPreset && !isAdmin {
		return nil, fmt.Errorf("%w: only admins may create preset bundles", xerrors.ErrForbidden)
	}

	preview, err := s.engine.PreviewBundle(ctx, &domain.PreviewRequest{SelectedPackages: req.SelectedPackages})
	if err != nil {
		return nil, err
	}

	selected := make([]domain.SelectedPackage, len(preview.Packages))
	for i, p := range preview.Packages {
		selected[i] = domain.SelectedPackage{
			ServiceID:        p.Service.ID,
			Service:          p.Service,
			Package:          p.Package,
			ApplicableOffers: p.ApplicableOffers,
		}
	}

	b := &domain.Bundle{
		Name:                      req.Name,
		Description:               req.Description,
		Color:                     req.Color,
		IsPreset:                  req.IsPreset,
		SelectedPackages:          selected,
		Frequency:                 preview.Frequency,
		TotalOriginalPrice:        preview.TotalOriginalPrice,
		TotalFirstDiscountedPrice: preview.TotalFirstDiscountedPrice,
		PriceEveryInterval:        preview.PriceEveryInterval,
		IsActive:                  true,
		CreatedBy:                 userID,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}

	s.logger.Info("bundle created",
		zap.String("bundle_id", b.ID),
		zap.String("created_by", userID),
		zap.Bool("is_preset", b.IsPreset),
		zap.Int("packages", len(b.SelectedPackages)))
	return b, nil
}

func (s *BundleService) Get(ctx context.Context, id string) (*domain.Bundle, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns the caller's own bundles plus the presets.
func (s *BundleService) List(ctx context.Context, userID string) ([]domain.Bundle, error) {
	return s.repo.FindActiveByCreator(ctx, userID)
}

// ListPresets returns the curated bundles visible to everyone.
func (s *BundleService) ListPresets(ctx context.Context) ([]domain.Bundle, error) {
	return s.repo.FindPresets(ctx)
}

// Deactivate hides a bundle from listings. The creator or an admin only.
func (s *BundleService) Deactivate(ctx context.Context, id, userID string, isAdmin bool) error {
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !isAdmin && b.CreatedBy != userID {
		return fmt.Errorf("%w: bundle belongs to another user", xerrors.ErrForbidden)
	}
	return s.repo.Deactivate(ctx, id)
}
