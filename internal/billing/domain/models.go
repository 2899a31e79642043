package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrUnknownEventType      = errors.New("unknown_event_type")
)

// Ledger entry statuses.
const (
	EventStatusPending   = "pending"
	EventStatusProcessed = "processed"
	EventStatusFailed    = "failed"
)

// Provider event types the engine reconciles.
const (
	EventCheckoutCompleted    = "checkout.session.completed"
	EventSubscriptionCreated  = "customer.subscription.created"
	EventSubscriptionUpdated  = "customer.subscription.updated"
	EventSubscriptionDeleted  = "customer.subscription.deleted"
	EventInvoicePaymentFailed = "invoice.payment_failed"
)

// BillingEvent is one row in the idempotency ledger. ProviderEventID is
// the unique key; a duplicate delivery never creates a second row.
type BillingEvent struct {
	ID              snowflake.ID   `gorm:"column:id;primaryKey" json:"id"`
	ProviderEventID string         `gorm:"column:provider_event_id" json:"provider_event_id"`
	EventType       string         `gorm:"column:event_type" json:"event_type"`
	OrgID           *snowflake.ID  `gorm:"column:org_id" json:"org_id,omitempty"`
	LicenseID       *snowflake.ID  `gorm:"column:license_id" json:"license_id,omitempty"`
	Status          string         `gorm:"column:status" json:"status"`
	Error           *string        `gorm:"column:error" json:"error,omitempty"`
	Payload         datatypes.JSON `gorm:"column:payload" json:"payload"`
	EventAt         time.Time      `gorm:"column:event_at" json:"event_at"`
	ReceivedAt      time.Time      `gorm:"column:received_at" json:"received_at"`
	ProcessedAt     *time.Time     `gorm:"column:processed_at" json:"processed_at,omitempty"`
}

func (BillingEvent) TableName() string { return "billing_events" }

// SubscriptionEvent is the provider envelope decoded into the fields
// the reconciliation engine acts on.
type SubscriptionEvent struct {
	ProviderEventID    string
	Type               string
	CreatedAt          time.Time
	CustomerID         string
	SubscriptionID     string
	PriceID            string
	SubscriptionStatus string
	PeriodStart        *time.Time
	PeriodEnd          *time.Time

	// Checkout hints for first-time provisioning.
	OrganizationName string
	CustomerEmail    string

	Raw []byte
}

type ListEventsRequest struct {
	OrgID     snowflake.ID
	Status    string
	PageToken string
	PageSize  int
}

type Repository interface {
	// InsertEvent adds a pending ledger row, reporting
	// ErrEventAlreadyProcessed when the provider event id exists.
	InsertEvent(ctx context.Context, db *gorm.DB, event *BillingEvent) error
	FindEvent(ctx context.Context, db *gorm.DB, providerEventID string) (*BillingEvent, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, orgID, licenseID *snowflake.ID, note *string, processedAt time.Time) error
	MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, orgID *snowflake.ID, message string, processedAt time.Time) error
	ListByOrg(ctx context.Context, db *gorm.DB, req ListEventsRequest, limit int, afterID snowflake.ID) ([]BillingEvent, error)

	CountByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (int64, error)
	DeleteByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) error
}

type Service interface {
	// Apply runs the full reconciliation pipeline for one delivered
	// webhook: verify, dedupe, resolve, derive, commit.
	Apply(ctx context.Context, rawPayload []byte, signatureHeader string) error
	// ListEvents pages through the ledger for the admin surface.
	ListEvents(ctx context.Context, req ListEventsRequest) ([]BillingEvent, string, error)
}
