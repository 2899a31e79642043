package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Car struct {
	ID        snowflake.ID `gorm:"column:id;primaryKey" json:"id"`
	OrgID     snowflake.ID `gorm:"column:org_id" json:"org_id"`
	VIN       string       `gorm:"column:vin" json:"vin"`
	Make      string       `gorm:"column:make" json:"make"`
	Model     string       `gorm:"column:model" json:"model"`
	ModelYear *int         `gorm:"column:model_year" json:"model_year,omitempty"`
	CreatedAt time.Time    `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time    `gorm:"column:updated_at" json:"updated_at"`
}

func (Car) TableName() string { return "cars" }

type MaintenanceRecord struct {
	ID          snowflake.ID `gorm:"column:id;primaryKey" json:"id"`
	CarID       snowflake.ID `gorm:"column:car_id" json:"car_id"`
	ServiceDate *time.Time   `gorm:"column:service_date" json:"service_date,omitempty"`
	Description string       `gorm:"column:description" json:"description"`
	CostCents   int64        `gorm:"column:cost_cents" json:"cost_cents"`
	CreatedAt   time.Time    `gorm:"column:created_at" json:"created_at"`
}

func (MaintenanceRecord) TableName() string { return "maintenance_records" }

type ExpenseCategory struct {
	ID        snowflake.ID `gorm:"column:id;primaryKey" json:"id"`
	OrgID     snowflake.ID `gorm:"column:org_id" json:"org_id"`
	Name      string       `gorm:"column:name" json:"name"`
	CreatedAt time.Time    `gorm:"column:created_at" json:"created_at"`
}

func (ExpenseCategory) TableName() string { return "expense_categories" }

type Expense struct {
	ID          snowflake.ID  `gorm:"column:id;primaryKey" json:"id"`
	OrgID       snowflake.ID  `gorm:"column:org_id" json:"org_id"`
	CategoryID  *snowflake.ID `gorm:"column:category_id" json:"category_id,omitempty"`
	CarID       *snowflake.ID `gorm:"column:car_id" json:"car_id,omitempty"`
	AmountCents int64         `gorm:"column:amount_cents" json:"amount_cents"`
	IncurredOn  *time.Time    `gorm:"column:incurred_on" json:"incurred_on,omitempty"`
	Note        string        `gorm:"column:note" json:"note"`
	CreatedAt   time.Time     `gorm:"column:created_at" json:"created_at"`
}

func (Expense) TableName() string { return "expenses" }

// Repository covers the reads the license layer needs and the
// count/delete operations the tenant destroy transaction performs.
// Car CRUD itself lives outside this module.
type Repository interface {
	CountByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (int64, error)
	CountMaintenanceByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (int64, error)
	CountExpensesByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (int64, error)
	DeleteByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) error
}
