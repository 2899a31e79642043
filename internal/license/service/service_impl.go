package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	cardomain "github.com/carbase/carbase/internal/car/domain"
	"github.com/carbase/carbase/internal/clock"
	"github.com/carbase/carbase/internal/config"
	licensedomain "github.com/carbase/carbase/internal/license/domain"
	tierdomain "github.com/carbase/carbase/internal/tier/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	billing *config.BillingConfigHolder

	repo     licensedomain.Repository
	tierRepo tierdomain.Repository
	carRepo  cardomain.Repository
}

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Billing *config.BillingConfigHolder

	Repo     licensedomain.Repository
	TierRepo tierdomain.Repository
	CarRepo  cardomain.Repository
}

func NewService(p ServiceParam) licensedomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("license.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		billing: p.Billing,

		repo:     p.Repo,
		tierRepo: p.TierRepo,
		carRepo:  p.CarRepo,
	}
}

// GetByOrgID implements domain.Service.
func (s *Service) GetByOrgID(ctx context.Context, orgID snowflake.ID) (*licensedomain.License, error) {
	if orgID == 0 {
		return nil, licensedomain.ErrInvalidOrganization
	}

	license, err := s.repo.FindByOrgID(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}
	if license == nil {
		return nil, licensedomain.ErrLicenseNotFound
	}
	return license, nil
}

// Summarize implements domain.Service.
func (s *Service) Summarize(ctx context.Context, orgID snowflake.ID) (*licensedomain.Summary, error) {
	license, err := s.GetByOrgID(ctx, orgID)
	if err != nil {
		return nil, err
	}

	count, err := s.carRepo.CountByOrg(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}

	summary := &licensedomain.Summary{
		OrgID:              license.OrgID,
		TierName:           license.TierName,
		CarLimit:           license.CarLimit,
		CarCount:           count,
		UsagePercent:       licensedomain.Evaluate(license, count).UsagePercent,
		IsActive:           license.IsActive,
		IsFreeAccount:      license.IsFreeAccount,
		FreeReason:         license.FreeReason,
		SubscriptionStatus: license.SubscriptionStatus,
		CurrentPeriodEnd:   license.CurrentPeriodEnd,
	}

	if license.TierName != nil {
		tier, err := s.tierRepo.FindByName(ctx, s.db, *license.TierName)
		if err != nil {
			return nil, err
		}
		if tier != nil {
			summary.TierDisplayName = tier.DisplayName
			summary.MonthlyPrice = tier.MonthlyPrice
		}
	}

	return summary, nil
}

// CheckCarCreation implements domain.Service.
func (s *Service) CheckCarCreation(ctx context.Context, orgID snowflake.ID) (licensedomain.Entitlement, error) {
	license, err := s.repo.FindByOrgID(ctx, s.db, orgID)
	if err != nil {
		return licensedomain.Entitlement{}, err
	}

	count, err := s.carRepo.CountByOrg(ctx, s.db, orgID)
	if err != nil {
		return licensedomain.Entitlement{}, err
	}

	return licensedomain.Evaluate(license, count), nil
}

// SetFreeLicense implements domain.Service. The resulting license is
// detached from the billing provider entirely.
func (s *Service) SetFreeLicense(ctx context.Context, req licensedomain.SetFreeLicenseRequest) (*licensedomain.License, error) {
	if req.OrgID == 0 {
		return nil, licensedomain.ErrInvalidOrganization
	}

	carLimit := s.billing.Current().FreeAccountCarLimit
	if req.CarLimit != nil {
		if *req.CarLimit <= 0 {
			return nil, licensedomain.ErrInvalidCarLimit
		}
		carLimit = *req.CarLimit
	}

	var updated *licensedomain.License
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		license, err := s.repo.FindByOrgIDForUpdate(ctx, tx, req.OrgID)
		if err != nil {
			return err
		}

		now := s.clock.Now().UTC()
		if license == nil {
			license = &licensedomain.License{
				ID:        s.genID.Generate(),
				OrgID:     req.OrgID,
				CreatedAt: now,
			}
			applyFree(license, carLimit, req.Reason, now)
			updated = license
			return s.repo.Insert(ctx, tx, license)
		}

		applyFree(license, carLimit, req.Reason, now)
		updated = license
		return s.repo.Update(ctx, tx, license)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("free license set",
		zap.Int64("org_id", int64(req.OrgID)),
		zap.Int("car_limit", updated.CarLimit))
	return updated, nil
}

// ToggleActive implements domain.Service. Only the active flag moves;
// subscription state is untouched so reactivation needs no new billing
// event.
func (s *Service) ToggleActive(ctx context.Context, orgID snowflake.ID, active bool) (*licensedomain.License, error) {
	if orgID == 0 {
		return nil, licensedomain.ErrInvalidOrganization
	}

	var updated *licensedomain.License
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		license, err := s.repo.FindByOrgIDForUpdate(ctx, tx, orgID)
		if err != nil {
			return err
		}
		if license == nil {
			return licensedomain.ErrLicenseNotFound
		}

		now := s.clock.Now().UTC()
		license.IsActive = active
		license.LastEventAt = &now
		license.UpdatedAt = now
		updated = license
		return s.repo.Update(ctx, tx, license)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("license active flag toggled",
		zap.Int64("org_id", int64(orgID)),
		zap.Bool("active", active))
	return updated, nil
}

// ChangeTier implements domain.Service. Tiers without a catalog car
// limit require an explicit override from the caller.
func (s *Service) ChangeTier(ctx context.Context, req licensedomain.ChangeTierRequest) (*licensedomain.License, error) {
	if req.OrgID == 0 {
		return nil, licensedomain.ErrInvalidOrganization
	}
	if req.CarLimitOverride != nil && *req.CarLimitOverride <= 0 {
		return nil, licensedomain.ErrInvalidCarLimit
	}

	var updated *licensedomain.License
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tier, err := s.tierRepo.FindByName(ctx, tx, req.TierName)
		if err != nil {
			return err
		}
		if tier == nil {
			return tierdomain.ErrTierNotFound
		}

		carLimit := 0
		switch {
		case req.CarLimitOverride != nil:
			carLimit = *req.CarLimitOverride
		case tier.CarLimit != nil:
			carLimit = *tier.CarLimit
		default:
			return licensedomain.ErrTierLimitRequired
		}

		license, err := s.repo.FindByOrgIDForUpdate(ctx, tx, req.OrgID)
		if err != nil {
			return err
		}
		if license == nil {
			return licensedomain.ErrLicenseNotFound
		}

		now := s.clock.Now().UTC()
		license.TierName = &tier.Name
		license.CarLimit = carLimit
		license.LastEventAt = &now
		license.UpdatedAt = now
		updated = license
		return s.repo.Update(ctx, tx, license)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("license tier changed",
		zap.Int64("org_id", int64(req.OrgID)),
		zap.String("tier", req.TierName),
		zap.Int("car_limit", updated.CarLimit))
	return updated, nil
}

func applyFree(license *licensedomain.License, carLimit int, reason string, now time.Time) {
	license.TierName = nil
	license.CarLimit = carLimit
	license.IsActive = true
	license.IsFreeAccount = true
	if reason != "" {
		license.FreeReason = &reason
	}
	license.ExternalCustomerID = nil
	license.ExternalSubscriptionID = nil
	license.SubscriptionStatus = nil
	license.CurrentPeriodStart = nil
	license.CurrentPeriodEnd = nil
	license.LastEventAt = &now
	license.UpdatedAt = now
}
