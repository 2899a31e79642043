package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/carbase/carbase/internal/billing/domain"
	pkgdb "github.com/carbase/carbase/pkg/db"
	"gorm.io/gorm"
)

const eventColumns = `id, provider_event_id, event_type, org_id, license_id, status, error,
	 payload, event_at, received_at, processed_at`

type repo struct{}

func Provide() billingdomain.Repository {
	return &repo{}
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *billingdomain.BillingEvent) error {
	err := db.WithContext(ctx).Exec(
		`INSERT INTO billing_events (
			id, provider_event_id, event_type, org_id, license_id, status, error,
			payload, event_at, received_at, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.ProviderEventID,
		event.EventType,
		event.OrgID,
		event.LicenseID,
		event.Status,
		event.Error,
		event.Payload,
		event.EventAt,
		event.ReceivedAt,
		event.ProcessedAt,
	).Error
	if err != nil && pkgdb.IsDuplicateKeyErr(err) {
		return billingdomain.ErrEventAlreadyProcessed
	}
	return err
}

func (r *repo) FindEvent(ctx context.Context, db *gorm.DB, providerEventID string) (*billingdomain.BillingEvent, error) {
	var event billingdomain.BillingEvent
	err := db.WithContext(ctx).Raw(
		`SELECT `+eventColumns+` FROM billing_events WHERE provider_event_id = ?`,
		providerEventID,
	).Scan(&event).Error
	if err != nil {
		return nil, err
	}
	if event.ID == 0 {
		return nil, nil
	}
	return &event, nil
}

func (r *repo) MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, orgID, licenseID *snowflake.ID, note *string, processedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE billing_events SET status = ?, org_id = ?, license_id = ?, error = ?, processed_at = ?
		 WHERE id = ?`,
		billingdomain.EventStatusProcessed,
		orgID,
		licenseID,
		note,
		processedAt,
		id,
	).Error
}

func (r *repo) MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, orgID *snowflake.ID, message string, processedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE billing_events SET status = ?, org_id = ?, error = ?, processed_at = ?
		 WHERE id = ?`,
		billingdomain.EventStatusFailed,
		orgID,
		message,
		processedAt,
		id,
	).Error
}

func (r *repo) ListByOrg(ctx context.Context, db *gorm.DB, req billingdomain.ListEventsRequest, limit int, afterID snowflake.ID) ([]billingdomain.BillingEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM billing_events WHERE 1 = 1`
	args := []any{}

	if req.OrgID != 0 {
		query += ` AND org_id = ?`
		args = append(args, req.OrgID)
	}
	if req.Status != "" {
		query += ` AND status = ?`
		args = append(args, req.Status)
	}
	if afterID != 0 {
		query += ` AND id < ?`
		args = append(args, afterID)
	}

	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	var events []billingdomain.BillingEvent
	err := db.WithContext(ctx).Raw(query, args...).Scan(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repo) CountByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM billing_events WHERE org_id = ?`,
		orgID,
	).Scan(&count).Error
	return count, err
}

func (r *repo) DeleteByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM billing_events WHERE org_id = ?`,
		orgID,
	).Error
}
