package repository

import (
	"context"

	tierdomain "github.com/carbase/carbase/internal/tier/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() tierdomain.Repository {
	return &repo{}
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]tierdomain.Tier, error) {
	var tiers []tierdomain.Tier
	err := db.WithContext(ctx).Raw(
		`SELECT name, display_name, car_limit, monthly_price, external_price_id,
		 available_online, sort_order, is_active, created_at, updated_at
		 FROM tiers
		 ORDER BY sort_order ASC, name ASC`,
	).Scan(&tiers).Error
	if err != nil {
		return nil, err
	}
	return tiers, nil
}

func (r *repo) FindByName(ctx context.Context, db *gorm.DB, name string) (*tierdomain.Tier, error) {
	var tier tierdomain.Tier
	err := db.WithContext(ctx).Raw(
		`SELECT name, display_name, car_limit, monthly_price, external_price_id,
		 available_online, sort_order, is_active, created_at, updated_at
		 FROM tiers WHERE name = ?`,
		name,
	).Scan(&tier).Error
	if err != nil {
		return nil, err
	}
	if tier.Name == "" {
		return nil, nil
	}
	return &tier, nil
}

func (r *repo) FindByExternalPriceID(ctx context.Context, db *gorm.DB, priceID string) (*tierdomain.Tier, error) {
	var tier tierdomain.Tier
	err := db.WithContext(ctx).Raw(
		`SELECT name, display_name, car_limit, monthly_price, external_price_id,
		 available_online, sort_order, is_active, created_at, updated_at
		 FROM tiers WHERE external_price_id = ?`,
		priceID,
	).Scan(&tier).Error
	if err != nil {
		return nil, err
	}
	if tier.Name == "" {
		return nil, nil
	}
	return &tier, nil
}
