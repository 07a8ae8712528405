// internal/service/catalog/catalog_service.go
package catalog

import (
	"context"
	"fmt"

	domain "bundl-service/internal/domain/catalog"
	xerrors "bundl-service/internal/pkg/errors"
	"bundl-service/internal/repository/postgres"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogService manages the service/package catalog. Writes are admin-only
// and validated here; reads feed the pricing engine and the public API.
type CatalogService struct {
	repo   *postgres.ServiceRepository
	logger *zap.Logger
}

func NewCatalogService(repo *postgres.ServiceRepository, logger *zap.Logger) *CatalogService {
	return &CatalogService{repo: repo, logger: logger}
}

// CreateService registers a provider with its packages and offers.
func (s *CatalogService) CreateService(ctx context.Context, req *domain.CreateServiceRequest) (*domain.Service, error) {
	if _, err := solana.PublicKeyFromBase58(req.WalletAddress); err != nil {
		return nil, fmt.Errorf("%w: invalid payout wallet address", xerrors.ErrInvalidInput)
	}

	packages := make([]domain.Package, 0, len(req.Packages))
	for _, p := range req.Packages {
		offers := make([]domain.Offer, 0, len(p.Offers))
		for _, o := range p.Offers {
			if err := validateOfferPeriod(o.Period); err != nil {
				return nil, err
			}
			offers = append(offers, domain.Offer{
				Type:   o.Type,
				Amount: decimal.NewFromFloat(o.Amount),
				Period: o.Period,
				BundleRestrictions: domain.BundleRestrictions{
					MinimumBundleItems:      o.MinimumBundleItems,
					MandatoryListOfServices: o.MandatoryServices,
				},
				AllowedCustomerTypes: o.AllowedCustomerTypes,
				TermsAndConditions:   o.TermsAndConditions,
			})
		}
		packages = append(packages, domain.Package{
			Name:               p.Name,
			Amount:             decimal.NewFromFloat(p.Amount),
			Frequency:          p.Frequency,
			IsActive:           true,
			RequiredFormFields: p.RequiredFormFields,
			Offers:             offers,
		})
	}

	svc := &domain.Service{
		Name:                 req.Name,
		Logo:                 req.Logo,
		Category:             req.Category,
		Description:          req.Description,
		AllowedCustomerTypes: req.AllowedCustomerTypes,
		IsActive:             true,
		WalletAddress:        req.WalletAddress,
		EmailAddress:         req.EmailAddress,
		WebhookURL:           req.WebhookURL,
		Packages:             packages,
	}
	if err := s.repo.Create(ctx, svc); err != nil {
		return nil, err
	}

	s.logger.Info("service created",
		zap.String("service_id", svc.ID),
		zap.String("name", svc.Name),
		zap.Int("packages", len(svc.Packages)))
	return svc, nil
}

// UpdateService applies the non-nil fields of the request.
func (s *CatalogService) UpdateService(ctx context.Context, id string, req *domain.UpdateServiceRequest) (*domain.Service, error) {
	svc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		svc.Name = *req.Name
	}
	if req.Logo != nil {
		svc.Logo = *req.Logo
	}
	if req.Category != nil {
		svc.Category = *req.Category
	}
	if req.Description != nil {
		svc.Description = *req.Description
	}
	if req.WalletAddress != nil {
		if _, err := solana.PublicKeyFromBase58(*req.WalletAddress); err != nil {
			return nil, fmt.Errorf("%w: invalid payout wallet address", xerrors.ErrInvalidInput)
		}
		svc.WalletAddress = *req.WalletAddress
	}
	if req.EmailAddress != nil {
		svc.EmailAddress = *req.EmailAddress
	}
	if req.WebhookURL != nil {
		svc.WebhookURL = *req.WebhookURL
	}
	if req.IsActive != nil {
		svc.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

// DeactivateService soft-deletes a service. Bundle snapshots are unaffected.
func (s *CatalogService) DeactivateService(ctx context.Context, id string) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	s.logger.Info("service deactivated", zap.String("service_id", id))
	return nil
}

// GetService returns a single service with payout fields stripped.
func (s *CatalogService) GetService(ctx context.Context, id string) (*domain.Service, error) {
	svc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	public := *svc
	public.WalletAddress = ""
	public.EmailAddress = ""
	public.WebhookURL = ""
	return &public, nil
}

// ListActiveServices returns the public catalog, payout fields stripped.
func (s *CatalogService) ListActiveServices(ctx context.Context) ([]domain.Service, error) {
	services, err := s.repo.FindActiveServices(ctx)
	if err != nil {
		return nil, err
	}
	for i := range services {
		services[i].WalletAddress = ""
		services[i].EmailAddress = ""
		services[i].WebhookURL = ""
	}
	return services, nil
}

// ListAllServices returns every service including deactivated ones, payout
// fields intact. Admin surface.
func (s *CatalogService) ListAllServices(ctx context.Context) ([]domain.Service, error) {
	return s.repo.FindAll(ctx)
}

// FindActiveServices exposes full documents to the pricing engine.
func (s *CatalogService) FindActiveServices(ctx context.Context) ([]domain.Service, error) {
	return s.repo.FindActiveServices(ctx)
}

// FindServiceRootDocumentsByIDs exposes payout-bearing root documents to the
// pricing engine for snapshotting.
func (s *CatalogService) FindServiceRootDocumentsByIDs(ctx context.Context, ids []string) ([]domain.Service, error) {
	return s.repo.FindServiceRootDocumentsByIDs(ctx, ids)
}

func validateOfferPeriod(period string) error {
	if period == domain.PeriodUnlimited {
		return nil
	}
	var count int
	var unit string
	if _, err := fmt.Sscanf(period, "%d %s", &count, &unit); err != nil || count <= 0 {
		return fmt.Errorf("%w: malformed offer period %q", xerrors.ErrInvalidInput, period)
	}
	switch unit {
	case "day", "days", "week", "weeks", "month", "months", "year", "years":
		return nil
	default:
		return fmt.Errorf("%w: %q", xerrors.ErrInvalidPeriodUnit, unit)
	}
}
