package service

import (
	"context"

	tierdomain "github.com/carbase/carbase/internal/tier/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo tierdomain.Repository
}

type ServiceParam struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo tierdomain.Repository
}

func NewService(p ServiceParam) tierdomain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("tier.service"),
		repo: p.Repo,
	}
}

// ListPublic implements domain.Service.
func (s *Service) ListPublic(ctx context.Context) ([]tierdomain.Tier, error) {
	tiers, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}

	public := make([]tierdomain.Tier, 0, len(tiers))
	for _, t := range tiers {
		if t.IsActive && t.AvailableOnline {
			public = append(public, t)
		}
	}
	return public, nil
}

// Get implements domain.Service.
func (s *Service) Get(ctx context.Context, name string) (*tierdomain.Tier, error) {
	tier, err := s.repo.FindByName(ctx, s.db, name)
	if err != nil {
		return nil, err
	}
	if tier == nil {
		return nil, tierdomain.ErrTierNotFound
	}
	return tier, nil
}

// ResolvePrice implements domain.Service.
func (s *Service) ResolvePrice(ctx context.Context, priceID string) (*tierdomain.Tier, error) {
	tier, err := s.repo.FindByExternalPriceID(ctx, s.db, priceID)
	if err != nil {
		return nil, err
	}
	if tier == nil {
		return nil, tierdomain.ErrTierNotFound
	}
	if !tier.IsActive {
		return nil, tierdomain.ErrTierInactive
	}
	return tier, nil
}
