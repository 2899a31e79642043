package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrOrganizationNotFound = errors.New("organization_not_found")
	ErrOrganizationExists   = errors.New("organization_already_exists")
	ErrInvalidName          = errors.New("invalid_organization_name")
)

type Organization struct {
	ID           snowflake.ID `gorm:"column:id;primaryKey" json:"id"`
	Name         string       `gorm:"column:name" json:"name"`
	Slug         string       `gorm:"column:slug" json:"slug"`
	ContactEmail string       `gorm:"column:contact_email" json:"contact_email"`
	ContactPhone string       `gorm:"column:contact_phone" json:"contact_phone"`
	Address      string       `gorm:"column:address" json:"address"`
	CreatedAt    time.Time    `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"column:updated_at" json:"updated_at"`
}

func (Organization) TableName() string { return "organizations" }

type User struct {
	ID           snowflake.ID `gorm:"column:id;primaryKey" json:"id"`
	OrgID        snowflake.ID `gorm:"column:org_id" json:"org_id"`
	Email        string       `gorm:"column:email" json:"email"`
	DisplayName  string       `gorm:"column:display_name" json:"display_name"`
	PasswordHash string       `gorm:"column:password_hash" json:"-"`
	Role         string       `gorm:"column:role" json:"role"`
	CreatedAt    time.Time    `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"column:updated_at" json:"updated_at"`
}

func (User) TableName() string { return "users" }

// DeletedCounts reports what a tenant destroy removed. The numbers are
// gathered inside the transaction before any row is deleted.
type DeletedCounts struct {
	Users              int64 `json:"users"`
	Cars               int64 `json:"cars"`
	MaintenanceRecords int64 `json:"maintenance_records"`
	Expenses           int64 `json:"expenses"`
	BillingEvents      int64 `json:"billing_events"`
}

type CreateRequest struct {
	Name         string `json:"name"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
	Address      string `json:"address"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, org *Organization) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Organization, error)
	FindByName(ctx context.Context, db *gorm.DB, name string) (*Organization, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	InsertUser(ctx context.Context, db *gorm.DB, user *User) error
	CountUsers(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (int64, error)
	DeleteUsers(ctx context.Context, db *gorm.DB, orgID snowflake.ID) error
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Organization, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Organization, error)
	// Destroy removes the organization and everything it owns in one
	// transaction and reports the pre-delete row counts.
	Destroy(ctx context.Context, id snowflake.ID) (DeletedCounts, error)
}
