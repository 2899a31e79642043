package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	licensedomain "github.com/carbase/carbase/internal/license/domain"
	"gorm.io/gorm"
)

const licenseColumns = `id, org_id, tier_name, car_limit, is_active, is_free_account, free_reason,
	 external_customer_id, external_subscription_id, subscription_status,
	 current_period_start, current_period_end, last_event_at, created_at, updated_at`

type repo struct{}

func Provide() licensedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, license *licensedomain.License) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO licenses (
			id, org_id, tier_name, car_limit, is_active, is_free_account, free_reason,
			external_customer_id, external_subscription_id, subscription_status,
			current_period_start, current_period_end, last_event_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		license.ID,
		license.OrgID,
		license.TierName,
		license.CarLimit,
		license.IsActive,
		license.IsFreeAccount,
		license.FreeReason,
		license.ExternalCustomerID,
		license.ExternalSubscriptionID,
		license.SubscriptionStatus,
		license.CurrentPeriodStart,
		license.CurrentPeriodEnd,
		license.LastEventAt,
		license.CreatedAt,
		license.UpdatedAt,
	).Error
}

func (r *repo) FindByOrgID(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (*licensedomain.License, error) {
	var license licensedomain.License
	err := db.WithContext(ctx).Raw(
		`SELECT `+licenseColumns+` FROM licenses WHERE org_id = ?`,
		orgID,
	).Scan(&license).Error
	if err != nil {
		return nil, err
	}
	if license.ID == 0 {
		return nil, nil
	}
	return &license, nil
}

func (r *repo) FindByOrgIDForUpdate(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (*licensedomain.License, error) {
	var license licensedomain.License
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE org_id = ?`
	if db.Dialector.Name() != "sqlite" {
		query += ` FOR UPDATE`
	}
	err := db.WithContext(ctx).Raw(query, orgID).Scan(&license).Error
	if err != nil {
		return nil, err
	}
	if license.ID == 0 {
		return nil, nil
	}
	return &license, nil
}

func (r *repo) FindByExternalCustomerID(ctx context.Context, db *gorm.DB, customerID string) (*licensedomain.License, error) {
	var license licensedomain.License
	err := db.WithContext(ctx).Raw(
		`SELECT `+licenseColumns+` FROM licenses WHERE external_customer_id = ? LIMIT 1`,
		customerID,
	).Scan(&license).Error
	if err != nil {
		return nil, err
	}
	if license.ID == 0 {
		return nil, nil
	}
	return &license, nil
}

func (r *repo) FindByExternalSubscriptionID(ctx context.Context, db *gorm.DB, subscriptionID string) (*licensedomain.License, error) {
	var license licensedomain.License
	err := db.WithContext(ctx).Raw(
		`SELECT `+licenseColumns+` FROM licenses WHERE external_subscription_id = ? LIMIT 1`,
		subscriptionID,
	).Scan(&license).Error
	if err != nil {
		return nil, err
	}
	if license.ID == 0 {
		return nil, nil
	}
	return &license, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, license *licensedomain.License) error {
	return db.WithContext(ctx).Exec(
		`UPDATE licenses SET
			tier_name = ?, car_limit = ?, is_active = ?, is_free_account = ?, free_reason = ?,
			external_customer_id = ?, external_subscription_id = ?, subscription_status = ?,
			current_period_start = ?, current_period_end = ?, last_event_at = ?, updated_at = ?
		 WHERE id = ?`,
		license.TierName,
		license.CarLimit,
		license.IsActive,
		license.IsFreeAccount,
		license.FreeReason,
		license.ExternalCustomerID,
		license.ExternalSubscriptionID,
		license.SubscriptionStatus,
		license.CurrentPeriodStart,
		license.CurrentPeriodEnd,
		license.LastEventAt,
		license.UpdatedAt,
		license.ID,
	).Error
}
