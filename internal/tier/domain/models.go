package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrTierNotFound = errors.New("tier_not_found")
	ErrTierInactive = errors.New("tier_inactive")
)

// Tier is a row in the plan catalog. CarLimit is NULL for tiers whose
// limit is negotiated per customer instead of fixed by the catalog.
type Tier struct {
	Name            string    `gorm:"column:name;primaryKey" json:"name"`
	DisplayName     string    `gorm:"column:display_name" json:"display_name"`
	CarLimit        *int      `gorm:"column:car_limit" json:"car_limit"`
	MonthlyPrice    int64     `gorm:"column:monthly_price" json:"monthly_price"`
	ExternalPriceID *string   `gorm:"column:external_price_id" json:"external_price_id,omitempty"`
	AvailableOnline bool      `gorm:"column:available_online" json:"available_online"`
	SortOrder       int       `gorm:"column:sort_order" json:"sort_order"`
	IsActive        bool      `gorm:"column:is_active" json:"is_active"`
	CreatedAt       time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Tier) TableName() string { return "tiers" }

type Repository interface {
	List(ctx context.Context, db *gorm.DB) ([]Tier, error)
	FindByName(ctx context.Context, db *gorm.DB, name string) (*Tier, error)
	FindByExternalPriceID(ctx context.Context, db *gorm.DB, priceID string) (*Tier, error)
}

type Service interface {
	// ListPublic returns active tiers that may be purchased online,
	// ordered for display.
	ListPublic(ctx context.Context) ([]Tier, error)
	// Get returns the named tier whether or not it is active.
	Get(ctx context.Context, name string) (*Tier, error)
	// ResolvePrice maps a provider price identifier to its tier.
	ResolvePrice(ctx context.Context, priceID string) (*Tier, error)
}
