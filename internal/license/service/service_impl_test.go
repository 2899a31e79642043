package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	carrepo "github.com/carbase/carbase/internal/car/repository"
	"github.com/carbase/carbase/internal/clock"
	"github.com/carbase/carbase/internal/config"
	licensedomain "github.com/carbase/carbase/internal/license/domain"
	licenserepo "github.com/carbase/carbase/internal/license/repository"
	licenseservice "github.com/carbase/carbase/internal/license/service"
	tierdomain "github.com/carbase/carbase/internal/tier/domain"
	tierrepo "github.com/carbase/carbase/internal/tier/repository"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	svc   licensedomain.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(21)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	fakeClock := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	svc := licenseservice.NewService(licenseservice.ServiceParam{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   fakeClock,
		Billing: config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),

		Repo:     licenserepo.Provide(),
		TierRepo: tierrepo.Provide(),
		CarRepo:  carrepo.Provide(),
	})

	return &testEnv{db: db, node: node, clock: fakeClock, svc: svc}
}

func (e *testEnv) seedOrg(t *testing.T) snowflake.ID {
	t.Helper()
	orgID := e.node.Generate()
	now := e.clock.Now()
	if err := e.db.Exec(
		`INSERT INTO organizations (id, name, slug, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		orgID, fmt.Sprintf("org-%s", orgID), fmt.Sprintf("org-%s", orgID), now, now,
	).Error; err != nil {
		t.Fatalf("seed organization: %v", err)
	}
	return orgID
}

func (e *testEnv) seedTier(t *testing.T, name string, carLimit *int) {
	t.Helper()
	now := e.clock.Now()
	if err := e.db.Exec(
		`INSERT INTO tiers (name, display_name, car_limit, monthly_price, available_online, sort_order, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, 4900, TRUE, 1, TRUE, ?, ?)`,
		name, name, carLimit, now, now,
	).Error; err != nil {
		t.Fatalf("seed tier: %v", err)
	}
}

func (e *testEnv) seedSubscribedLicense(t *testing.T, orgID snowflake.ID, tierName string, carLimit int) {
	t.Helper()
	now := e.clock.Now()
	eventAt := now.Add(-time.Hour)
	if err := e.db.Exec(
		`INSERT INTO licenses (id, org_id, tier_name, car_limit, is_active, is_free_account,
		                       external_customer_id, external_subscription_id, subscription_status,
		                       last_event_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, TRUE, FALSE, 'cus_1', 'sub_1', 'active', ?, ?, ?)`,
		e.node.Generate(), orgID, tierName, carLimit, eventAt, now, now,
	).Error; err != nil {
		t.Fatalf("seed license: %v", err)
	}
}

func TestSetFreeLicenseDetachesBilling(t *testing.T) {
	env := newTestEnv(t)
	env.seedTier(t, "standard", intPtr(25))
	orgID := env.seedOrg(t)
	env.seedSubscribedLicense(t, orgID, "standard", 25)

	license, err := env.svc.SetFreeLicense(context.Background(), licensedomain.SetFreeLicenseRequest{
		OrgID:  orgID,
		Reason: "partner program",
	})
	if err != nil {
		t.Fatalf("set free license: %v", err)
	}

	if !license.IsFreeAccount || !license.IsActive {
		t.Fatalf("expected an active free account, got %+v", license)
	}
	if license.CarLimit != config.DefaultBillingConfig().FreeAccountCarLimit {
		t.Fatalf("expected default free limit, got %d", license.CarLimit)
	}
	if license.TierName != nil || license.ExternalCustomerID != nil || license.ExternalSubscriptionID != nil {
		t.Fatalf("billing linkage not cleared: %+v", license)
	}
	if license.FreeReason == nil || *license.FreeReason != "partner program" {
		t.Fatalf("reason not recorded: %v", license.FreeReason)
	}
	if license.LastEventAt == nil || !license.LastEventAt.Equal(env.clock.Now().UTC()) {
		t.Fatalf("last_event_at not stamped: %v", license.LastEventAt)
	}
}

func TestSetFreeLicenseCreatesWhenMissing(t *testing.T) {
	env := newTestEnv(t)
	orgID := env.seedOrg(t)

	license, err := env.svc.SetFreeLicense(context.Background(), licensedomain.SetFreeLicenseRequest{
		OrgID:    orgID,
		CarLimit: intPtr(7),
	})
	if err != nil {
		t.Fatalf("set free license: %v", err)
	}
	if license.CarLimit != 7 {
		t.Fatalf("explicit limit ignored, got %d", license.CarLimit)
	}
	if !license.IsFreeAccount {
		t.Fatalf("expected a free account")
	}
}

func TestSetFreeLicenseRejectsBadLimit(t *testing.T) {
	env := newTestEnv(t)
	orgID := env.seedOrg(t)

	_, err := env.svc.SetFreeLicense(context.Background(), licensedomain.SetFreeLicenseRequest{
		OrgID:    orgID,
		CarLimit: intPtr(0),
	})
	if !errors.Is(err, licensedomain.ErrInvalidCarLimit) {
		t.Fatalf("expected ErrInvalidCarLimit, got %v", err)
	}
}

func TestChangeTierUsesCatalogLimit(t *testing.T) {
	env := newTestEnv(t)
	env.seedTier(t, "standard", intPtr(25))
	env.seedTier(t, "professional", intPtr(100))
	orgID := env.seedOrg(t)
	env.seedSubscribedLicense(t, orgID, "standard", 25)

	license, err := env.svc.ChangeTier(context.Background(), licensedomain.ChangeTierRequest{
		OrgID:    orgID,
		TierName: "professional",
	})
	if err != nil {
		t.Fatalf("change tier: %v", err)
	}
	if license.TierName == nil || *license.TierName != "professional" {
		t.Fatalf("tier not changed: %v", license.TierName)
	}
	if license.CarLimit != 100 {
		t.Fatalf("catalog limit not applied, got %d", license.CarLimit)
	}
	if license.ExternalSubscriptionID == nil || *license.ExternalSubscriptionID != "sub_1" {
		t.Fatalf("subscription linkage must survive a tier change")
	}
}

func TestChangeTierNullLimitRequiresOverride(t *testing.T) {
	env := newTestEnv(t)
	env.seedTier(t, "enterprise", nil)
	orgID := env.seedOrg(t)
	env.seedSubscribedLicense(t, orgID, "standard", 25)

	_, err := env.svc.ChangeTier(context.Background(), licensedomain.ChangeTierRequest{
		OrgID:    orgID,
		TierName: "enterprise",
	})
	if !errors.Is(err, licensedomain.ErrTierLimitRequired) {
		t.Fatalf("expected ErrTierLimitRequired, got %v", err)
	}

	license, err := env.svc.ChangeTier(context.Background(), licensedomain.ChangeTierRequest{
		OrgID:            orgID,
		TierName:         "enterprise",
		CarLimitOverride: intPtr(500),
	})
	if err != nil {
		t.Fatalf("change tier with override: %v", err)
	}
	if license.CarLimit != 500 {
		t.Fatalf("override not applied, got %d", license.CarLimit)
	}
}

func TestChangeTierUnknownTier(t *testing.T) {
	env := newTestEnv(t)
	orgID := env.seedOrg(t)
	env.seedSubscribedLicense(t, orgID, "standard", 25)

	_, err := env.svc.ChangeTier(context.Background(), licensedomain.ChangeTierRequest{
		OrgID:    orgID,
		TierName: "platinum",
	})
	if !errors.Is(err, tierdomain.ErrTierNotFound) {
		t.Fatalf("expected ErrTierNotFound, got %v", err)
	}
}

func TestToggleActive(t *testing.T) {
	env := newTestEnv(t)
	orgID := env.seedOrg(t)
	env.seedSubscribedLicense(t, orgID, "standard", 25)

	license, err := env.svc.ToggleActive(context.Background(), orgID, false)
	if err != nil {
		t.Fatalf("toggle active: %v", err)
	}
	if license.IsActive {
		t.Fatalf("expected an inactive license")
	}
	if license.SubscriptionStatus == nil || *license.SubscriptionStatus != "active" {
		t.Fatalf("subscription status must not move with the active flag")
	}
	if license.LastEventAt == nil || !license.LastEventAt.Equal(env.clock.Now().UTC()) {
		t.Fatalf("last_event_at not stamped: %v", license.LastEventAt)
	}
}

func TestToggleActiveMissingLicense(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.ToggleActive(context.Background(), env.node.Generate(), false)
	if !errors.Is(err, licensedomain.ErrLicenseNotFound) {
		t.Fatalf("expected ErrLicenseNotFound, got %v", err)
	}
}

func TestCheckCarCreation(t *testing.T) {
	env := newTestEnv(t)
	orgID := env.seedOrg(t)
	env.seedSubscribedLicense(t, orgID, "standard", 2)

	now := env.clock.Now()
	if err := env.db.Exec(
		`INSERT INTO cars (id, org_id, vin, created_at, updated_at) VALUES (?, ?, 'VIN1', ?, ?)`,
		env.node.Generate(), orgID, now, now,
	).Error; err != nil {
		t.Fatalf("seed car: %v", err)
	}

	ent, err := env.svc.CheckCarCreation(context.Background(), orgID)
	if err != nil {
		t.Fatalf("check car creation: %v", err)
	}
	if !ent.Allowed || ent.Remaining != 1 {
		t.Fatalf("expected one slot left, got %+v", ent)
	}

	if err := env.db.Exec(
		`INSERT INTO cars (id, org_id, vin, created_at, updated_at) VALUES (?, ?, 'VIN2', ?, ?)`,
		env.node.Generate(), orgID, now, now,
	).Error; err != nil {
		t.Fatalf("seed car: %v", err)
	}

	ent, err = env.svc.CheckCarCreation(context.Background(), orgID)
	if err != nil {
		t.Fatalf("check car creation: %v", err)
	}
	if ent.Allowed || ent.Remaining != 0 {
		t.Fatalf("expected the limit to be reached, got %+v", ent)
	}
}

func intPtr(v int) *int { return &v }

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_license_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}

	schema := []string{
		`CREATE TABLE organizations (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			slug TEXT NOT NULL,
			contact_email TEXT NOT NULL DEFAULT '',
			contact_phone TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE tiers (
			name TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			car_limit INTEGER,
			monthly_price BIGINT NOT NULL DEFAULT 0,
			external_price_id TEXT,
			available_online BOOLEAN NOT NULL DEFAULT FALSE,
			sort_order INTEGER NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE licenses (
			id BIGINT PRIMARY KEY,
			org_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
			tier_name TEXT,
			car_limit INTEGER NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			is_free_account BOOLEAN NOT NULL DEFAULT FALSE,
			free_reason TEXT,
			external_customer_id TEXT,
			external_subscription_id TEXT,
			subscription_status TEXT,
			current_period_start DATETIME,
			current_period_end DATETIME,
			last_event_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE cars (
			id BIGINT PRIMARY KEY,
			org_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
			vin TEXT NOT NULL DEFAULT '',
			make TEXT NOT NULL DEFAULT '',
			model TEXT NOT NULL DEFAULT '',
			model_year INTEGER,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}
