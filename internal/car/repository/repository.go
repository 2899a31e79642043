package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	cardomain "github.com/carbase/carbase/internal/car/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() cardomain.Repository {
	return &repo{}
}

func (r *repo) CountByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM cars WHERE org_id = ?`,
		orgID,
	).Scan(&count).Error
	return count, err
}

// Maintenance rows hang off cars, not the organization, so the count
// goes through the parent table.
func (r *repo) CountMaintenanceByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM maintenance_records
		 WHERE car_id IN (SELECT id FROM cars WHERE org_id = ?)`,
		orgID,
	).Scan(&count).Error
	return count, err
}

func (r *repo) CountExpensesByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM expenses WHERE org_id = ?`,
		orgID,
	).Scan(&count).Error
	return count, err
}

func (r *repo) DeleteByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM cars WHERE org_id = ?`,
		orgID,
	).Error
}
