package seed

import (
	"context"
	"errors"
	"time"

	tierdomain "github.com/carbase/carbase/internal/tier/domain"
	"gorm.io/gorm"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

// defaultTiers is the catalog a fresh deployment starts with. Existing
// rows are never overwritten so operators can adjust limits and prices
// in place.
func defaultTiers(now time.Time) []tierdomain.Tier {
	return []tierdomain.Tier{
		{
			Name:            "starter",
			DisplayName:     "Starter",
			CarLimit:        intPtr(5),
			MonthlyPrice:    0,
			AvailableOnline: true,
			SortOrder:       10,
			IsActive:        true,
			CreatedAt:       now,
			UpdatedAt:       now,
		},
		{
			Name:            "standard",
			DisplayName:     "Standard",
			CarLimit:        intPtr(25),
			MonthlyPrice:    4900,
			ExternalPriceID: strPtr("price_standard_monthly"),
			AvailableOnline: true,
			SortOrder:       20,
			IsActive:        true,
			CreatedAt:       now,
			UpdatedAt:       now,
		},
		{
			Name:            "professional",
			DisplayName:     "Professional",
			CarLimit:        intPtr(100),
			MonthlyPrice:    14900,
			ExternalPriceID: strPtr("price_professional_monthly"),
			AvailableOnline: true,
			SortOrder:       30,
			IsActive:        true,
			CreatedAt:       now,
			UpdatedAt:       now,
		},
		{
			Name:         "enterprise",
			DisplayName:  "Enterprise",
			CarLimit:     nil,
			MonthlyPrice: 0,
			SortOrder:    40,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}
}

// EnsureDefaultTiers inserts any catalog tiers missing from the
// database. It runs on every startup after migrations.
func EnsureDefaultTiers(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	now := time.Now().UTC()

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, tier := range defaultTiers(now) {
			var existing tierdomain.Tier
			err := tx.WithContext(ctx).
				Where("name = ?", tier.Name).
				First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if err := tx.WithContext(ctx).Create(&tier).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
