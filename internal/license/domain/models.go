package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrLicenseNotFound     = errors.New("license_not_found")
	ErrLicenseExists       = errors.New("license_already_exists")
	ErrTierLimitRequired   = errors.New("tier_limit_required")
	ErrInvalidCarLimit     = errors.New("invalid_car_limit")
	ErrInvalidOrganization = errors.New("invalid_organization")
)

// Subscription statuses mirrored from the billing provider.
const (
	SubscriptionStatusActive     = "active"
	SubscriptionStatusPastDue    = "past_due"
	SubscriptionStatusCanceled   = "canceled"
	SubscriptionStatusIncomplete = "incomplete"
	SubscriptionStatusTrialing   = "trialing"
	SubscriptionStatusUnpaid     = "unpaid"
)

// License is the single entitlement row for an organization. LastEventAt
// orders billing-event writes against admin writes: whichever carries
// the later timestamp wins, and NULL loses to everything.
type License struct {
	ID                     snowflake.ID `gorm:"column:id;primaryKey" json:"id"`
	OrgID                  snowflake.ID `gorm:"column:org_id" json:"org_id"`
	TierName               *string      `gorm:"column:tier_name" json:"tier_name"`
	CarLimit               int          `gorm:"column:car_limit" json:"car_limit"`
	IsActive               bool         `gorm:"column:is_active" json:"is_active"`
	IsFreeAccount          bool         `gorm:"column:is_free_account" json:"is_free_account"`
	FreeReason             *string      `gorm:"column:free_reason" json:"free_reason,omitempty"`
	ExternalCustomerID     *string      `gorm:"column:external_customer_id" json:"external_customer_id,omitempty"`
	ExternalSubscriptionID *string      `gorm:"column:external_subscription_id" json:"external_subscription_id,omitempty"`
	SubscriptionStatus     *string      `gorm:"column:subscription_status" json:"subscription_status,omitempty"`
	CurrentPeriodStart     *time.Time   `gorm:"column:current_period_start" json:"current_period_start,omitempty"`
	CurrentPeriodEnd       *time.Time   `gorm:"column:current_period_end" json:"current_period_end,omitempty"`
	LastEventAt            *time.Time   `gorm:"column:last_event_at" json:"last_event_at,omitempty"`
	CreatedAt              time.Time    `gorm:"column:created_at" json:"created_at"`
	UpdatedAt              time.Time    `gorm:"column:updated_at" json:"updated_at"`
}

func (License) TableName() string { return "licenses" }

// Summary is the read model served to the car CRUD layer.
type Summary struct {
	OrgID              snowflake.ID `json:"org_id"`
	TierName           *string      `json:"tier_name"`
	TierDisplayName    string       `json:"tier_display_name"`
	MonthlyPrice       int64        `json:"monthly_price"`
	CarLimit           int          `json:"car_limit"`
	CarCount           int64        `json:"car_count"`
	UsagePercent       float64      `json:"usage_percent"`
	IsActive           bool         `json:"is_active"`
	IsFreeAccount      bool         `json:"is_free_account"`
	FreeReason         *string      `json:"free_reason,omitempty"`
	SubscriptionStatus *string      `json:"subscription_status,omitempty"`
	CurrentPeriodEnd   *time.Time   `json:"current_period_end,omitempty"`
}

type SetFreeLicenseRequest struct {
	OrgID    snowflake.ID `json:"-"`
	CarLimit *int         `json:"car_limit"`
	Reason   string       `json:"reason"`
}

type ChangeTierRequest struct {
	OrgID            snowflake.ID `json:"-"`
	TierName         string       `json:"tier_name"`
	CarLimitOverride *int         `json:"car_limit"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, license *License) error
	FindByOrgID(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (*License, error)
	FindByOrgIDForUpdate(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (*License, error)
	FindByExternalCustomerID(ctx context.Context, db *gorm.DB, customerID string) (*License, error)
	FindByExternalSubscriptionID(ctx context.Context, db *gorm.DB, subscriptionID string) (*License, error)
	Update(ctx context.Context, db *gorm.DB, license *License) error
}

type Service interface {
	// GetByOrgID returns the raw license row.
	GetByOrgID(ctx context.Context, orgID snowflake.ID) (*License, error)
	// Summarize joins the license with its tier and the live car count.
	Summarize(ctx context.Context, orgID snowflake.ID) (*Summary, error)
	// CheckCarCreation evaluates the entitlement for one more car.
	CheckCarCreation(ctx context.Context, orgID snowflake.ID) (Entitlement, error)

	// Admin override path. Every write stamps LastEventAt with the
	// current time so late-arriving billing events appear stale.
	SetFreeLicense(ctx context.Context, req SetFreeLicenseRequest) (*License, error)
	ToggleActive(ctx context.Context, orgID snowflake.ID, active bool) (*License, error)
	ChangeTier(ctx context.Context, req ChangeTierRequest) (*License, error)
}
