package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/carbase/carbase/internal/billing/domain"
	billingrepo "github.com/carbase/carbase/internal/billing/repository"
	billingservice "github.com/carbase/carbase/internal/billing/service"
	"github.com/carbase/carbase/internal/billing/stripe"
	carrepo "github.com/carbase/carbase/internal/car/repository"
	"github.com/carbase/carbase/internal/clock"
	"github.com/carbase/carbase/internal/config"
	licensedomain "github.com/carbase/carbase/internal/license/domain"
	licenserepo "github.com/carbase/carbase/internal/license/repository"
	licenseservice "github.com/carbase/carbase/internal/license/service"
	organizationrepo "github.com/carbase/carbase/internal/organization/repository"
	"github.com/carbase/carbase/internal/provision"
	tierrepo "github.com/carbase/carbase/internal/tier/repository"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const webhookSecret = "whsec_test"

type testEnv struct {
	db         *gorm.DB
	node       *snowflake.Node
	clock      *clock.FakeClock
	adapter    *stripe.Adapter
	billingSvc billingdomain.Service
	licenseSvc licensedomain.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(10)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	fakeClock := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	holder := config.NewStaticBillingConfigHolder(config.DefaultBillingConfig())
	adapter := stripe.NewAdapter(webhookSecret, 0)
	provisioner := provision.New(provision.Param{
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fakeClock,
	})

	licenseSvc := licenseservice.NewService(licenseservice.ServiceParam{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fakeClock,
		Billing:  holder,
		Repo:     licenserepo.Provide(),
		TierRepo: tierrepo.Provide(),
		CarRepo:  carrepo.Provide(),
	})

	billingSvc := billingservice.NewService(billingservice.ServiceParam{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       fakeClock,
		Cfg:         config.Config{Environment: "test"},
		Billing:     holder,
		Adapter:     adapter,
		Repo:        billingrepo.Provide(),
		LicenseRepo: licenserepo.Provide(),
		TierRepo:    tierrepo.Provide(),
		OrgRepo:     organizationrepo.Provide(),
		Provisioner: provisioner,
	})

	return &testEnv{
		db:         db,
		node:       node,
		clock:      fakeClock,
		adapter:    adapter,
		billingSvc: billingSvc,
		licenseSvc: licenseSvc,
	}
}

func (e *testEnv) apply(t *testing.T, payload []byte) {
	t.Helper()
	header := e.adapter.Sign(payload, e.clock.Now())
	if err := e.billingSvc.Apply(context.Background(), payload, header); err != nil {
		t.Fatalf("apply event: %v", err)
	}
}

func (e *testEnv) seedTier(t *testing.T, name string, carLimit int, priceID string) {
	t.Helper()
	now := e.clock.Now()
	err := e.db.Exec(
		`INSERT INTO tiers (name, display_name, car_limit, monthly_price, external_price_id,
		 available_online, sort_order, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		name, name, carLimit, 4900, priceID, true, 10, true, now, now,
	).Error
	if err != nil {
		t.Fatalf("seed tier: %v", err)
	}
}

func (e *testEnv) seedOrg(t *testing.T, name string) snowflake.ID {
	t.Helper()
	id := e.node.Generate()
	now := e.clock.Now()
	err := e.db.Exec(
		`INSERT INTO organizations (id, name, slug, contact_email, contact_phone, address, created_at, updated_at)
		 VALUES (?, ?, ?, '', '', '', ?, ?)`,
		id, name, name, now, now,
	).Error
	if err != nil {
		t.Fatalf("seed organization: %v", err)
	}
	return id
}

func (e *testEnv) seedLicense(t *testing.T, orgID snowflake.ID, tierName string, carLimit int, customerID, subscriptionID string) snowflake.ID {
	t.Helper()
	id := e.node.Generate()
	now := e.clock.Now()
	err := e.db.Exec(
		`INSERT INTO licenses (id, org_id, tier_name, car_limit, is_active, is_free_account,
		 external_customer_id, external_subscription_id, subscription_status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, orgID, tierName, carLimit, true, false, customerID, subscriptionID, "active", now, now,
	).Error
	if err != nil {
		t.Fatalf("seed license: %v", err)
	}
	return id
}

func (e *testEnv) loadLicense(t *testing.T, orgID snowflake.ID) *licensedomain.License {
	t.Helper()
	license, err := licenserepo.Provide().FindByOrgID(context.Background(), e.db, orgID)
	if err != nil {
		t.Fatalf("load license: %v", err)
	}
	if license == nil {
		t.Fatalf("license for org %s not found", orgID)
	}
	return license
}

func (e *testEnv) ledgerStatus(t *testing.T, providerEventID string) (string, string) {
	t.Helper()
	event, err := billingrepo.Provide().FindEvent(context.Background(), e.db, providerEventID)
	if err != nil {
		t.Fatalf("load ledger entry: %v", err)
	}
	if event == nil {
		t.Fatalf("ledger entry %s not found", providerEventID)
	}
	note := ""
	if event.Error != nil {
		note = *event.Error
	}
	return event.Status, note
}

func subscriptionEvent(eventID, eventType string, createdAt time.Time, subscriptionID, customerID, status, priceID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"type": %q,
		"created": %d,
		"data": {"object": {
			"id": %q,
			"customer": %q,
			"status": %q,
			"current_period_start": %d,
			"current_period_end": %d,
			"items": {"data": [{"price": {"id": %q}}]}
		}}
	}`, eventID, eventType, createdAt.Unix(), subscriptionID, customerID, status,
		createdAt.Unix(), createdAt.Add(30*24*time.Hour).Unix(), priceID))
}

func invoiceFailedEvent(eventID string, createdAt time.Time, subscriptionID, customerID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"type": "invoice.payment_failed",
		"created": %d,
		"data": {"object": {"id": "in_1", "customer": %q, "subscription": %q}}
	}`, eventID, createdAt.Unix(), customerID, subscriptionID))
}

func checkoutEvent(eventID string, createdAt time.Time, orgName, email, customerID, subscriptionID, priceID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"type": "checkout.session.completed",
		"created": %d,
		"data": {"object": {
			"id": "cs_1",
			"customer": %q,
			"customer_email": %q,
			"subscription": %q,
			"metadata": {"organization_name": %q, "price_id": %q}
		}}
	}`, eventID, createdAt.Unix(), customerID, email, subscriptionID, orgName, priceID))
}

func TestApplyCheckoutProvisionsOrganization(t *testing.T) {
	env := newTestEnv(t)
	env.seedTier(t, "standard", 25, "price_standard")

	eventAt := env.clock.Now().Add(-time.Minute)
	env.apply(t, checkoutEvent("evt_checkout", eventAt, "Acme", "owner@acme.test", "cus_1", "sub_1", "price_standard"))

	var orgID snowflake.ID
	if err := env.db.Raw(`SELECT id FROM organizations WHERE name = 'Acme'`).Scan(&orgID).Error; err != nil || orgID == 0 {
		t.Fatalf("organization not created: %v", err)
	}

	license := env.loadLicense(t, orgID)
	if license.TierName == nil || *license.TierName != "standard" {
		t.Fatalf("unexpected tier %+v", license.TierName)
	}
	if license.CarLimit != 25 {
		t.Fatalf("expected car limit 25, got %d", license.CarLimit)
	}
	if license.SubscriptionStatus == nil || *license.SubscriptionStatus != licensedomain.SubscriptionStatusIncomplete {
		t.Fatalf("expected incomplete status, got %+v", license.SubscriptionStatus)
	}
	if license.IsFreeAccount {
		t.Fatalf("checkout license must not be a free account")
	}

	var users int64
	if err := env.db.Raw(`SELECT COUNT(*) FROM users WHERE org_id = ?`, orgID).Scan(&users).Error; err != nil {
		t.Fatalf("count users: %v", err)
	}
	if users != 1 {
		t.Fatalf("expected 1 owner user, got %d", users)
	}

	status, _ := env.ledgerStatus(t, "evt_checkout")
	if status != billingdomain.EventStatusProcessed {
		t.Fatalf("expected processed ledger entry, got %s", status)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.seedTier(t, "standard", 25, "price_standard")
	orgID := env.seedOrg(t, "Acme")
	env.seedLicense(t, orgID, "standard", 25, "cus_1", "sub_1")

	eventAt := env.clock.Now().Add(-time.Minute)
	payload := subscriptionEvent("evt_1", billingdomain.EventSubscriptionUpdated, eventAt, "sub_1", "cus_1", "past_due", "price_standard")

	env.apply(t, payload)
	first := env.loadLicense(t, orgID)

	env.apply(t, payload)
	second := env.loadLicense(t, orgID)

	if *first.SubscriptionStatus != "past_due" || *second.SubscriptionStatus != "past_due" {
		t.Fatalf("unexpected statuses %v %v", *first.SubscriptionStatus, *second.SubscriptionStatus)
	}
	if !first.UpdatedAt.Equal(second.UpdatedAt) {
		t.Fatalf("duplicate delivery must not touch the license")
	}

	var entries int64
	if err := env.db.Raw(`SELECT COUNT(*) FROM billing_events WHERE provider_event_id = 'evt_1'`).Scan(&entries).Error; err != nil {
		t.Fatalf("count ledger entries: %v", err)
	}
	if entries != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", entries)
	}
}

func TestApplyOutOfOrderEvents(t *testing.T) {
	env := newTestEnv(t)
	env.seedTier(t, "standard", 25, "price_standard")
	orgID := env.seedOrg(t, "Acme")
	env.seedLicense(t, orgID, "standard", 25, "cus_1", "sub_1")

	t1 := env.clock.Now().Add(-10 * time.Minute)
	t2 := env.clock.Now().Add(-5 * time.Minute)
	older := subscriptionEvent("evt_a", billingdomain.EventSubscriptionUpdated, t1, "sub_1", "cus_1", "past_due", "price_standard")
	newer := subscriptionEvent("evt_b", billingdomain.EventSubscriptionUpdated, t2, "sub_1", "cus_1", "active", "price_standard")

	env.apply(t, newer)
	env.apply(t, older)

	license := env.loadLicense(t, orgID)
	if *license.SubscriptionStatus != "active" {
		t.Fatalf("late-arriving older event must not win, status is %s", *license.SubscriptionStatus)
	}
	if license.LastEventAt == nil || !license.LastEventAt.Equal(t2) {
		t.Fatalf("expected last_event_at %v, got %v", t2, license.LastEventAt)
	}

	status, note := env.ledgerStatus(t, "evt_a")
	if status != billingdomain.EventStatusProcessed {
		t.Fatalf("superseded event must still be processed, got %s", status)
	}
	if note == "" {
		t.Fatalf("superseded event should carry a note")
	}
}

func TestFreeAccountImmunity(t *testing.T) {
	env := newTestEnv(t)
	env.seedTier(t, "standard", 25, "price_standard")
	orgID := env.seedOrg(t, "Acme")
	env.seedLicense(t, orgID, "standard", 25, "cus_1", "sub_1")

	if _, err := env.licenseSvc.SetFreeLicense(context.Background(), licensedomain.SetFreeLicenseRequest{
		OrgID:  orgID,
		Reason: "promo",
	}); err != nil {
		t.Fatalf("set free license: %v", err)
	}
	before := env.loadLicense(t, orgID)

	env.clock.Advance(time.Hour)
	eventAt := env.clock.Now().Add(-time.Minute)
	env.apply(t, subscriptionEvent("evt_1", billingdomain.EventSubscriptionUpdated, eventAt, "sub_2", "cus_1", "unpaid", "price_standard"))

	after := env.loadLicense(t, orgID)
	if !after.IsFreeAccount || after.CarLimit != before.CarLimit {
		t.Fatalf("free account mutated: %+v", after)
	}
	if after.SubscriptionStatus != nil || after.ExternalSubscriptionID != nil {
		t.Fatalf("free account regained billing linkage: %+v", after)
	}
}

func TestAdminPrecedenceOverLateEvent(t *testing.T) {
	env := newTestEnv(t)
	env.seedTier(t, "standard", 25, "price_standard")
	env.seedTier(t, "professional", 100, "price_professional")
	orgID := env.seedOrg(t, "Acme")
	env.seedLicense(t, orgID, "standard", 25, "cus_1", "sub_1")

	if _, err := env.licenseSvc.ChangeTier(context.Background(), licensedomain.ChangeTierRequest{
		OrgID:    orgID,
		TierName: "professional",
	}); err != nil {
		t.Fatalf("change tier: %v", err)
	}

	// Billing event stamped before the admin action.
	eventAt := env.clock.Now().Add(-time.Hour)
	env.apply(t, subscriptionEvent("evt_late", billingdomain.EventSubscriptionUpdated, eventAt, "sub_1", "cus_1", "active", "price_standard"))

	license := env.loadLicense(t, orgID)
	if license.TierName == nil || *license.TierName != "professional" {
		t.Fatalf("admin tier reverted by stale event: %+v", license.TierName)
	}
	if license.CarLimit != 100 {
		t.Fatalf("admin car limit reverted, got %d", license.CarLimit)
	}

	status, note := env.ledgerStatus(t, "evt_late")
	if status != billingdomain.EventStatusProcessed || note == "" {
		t.Fatalf("stale event should be processed with a superseded note, got %s %q", status, note)
	}
}

func TestSubscriptionCanceledKeepsLicense(t *testing.T) {
	env := newTestEnv(t)
	env.seedTier(t, "starter", 30, "price_starter")
	orgID := env.seedOrg(t, "Acme")
	env.seedLicense(t, orgID, "starter", 30, "cus_1", "sub_1")

	eventAt := env.clock.Now().Add(-time.Minute)
	env.apply(t, subscriptionEvent("evt_cancel", billingdomain.EventSubscriptionDeleted, eventAt, "sub_1", "cus_1", "canceled", ""))

	license := env.loadLicense(t, orgID)
	if *license.SubscriptionStatus != licensedomain.SubscriptionStatusCanceled {
		t.Fatalf("expected canceled status, got %s", *license.SubscriptionStatus)
	}
	if !license.IsActive {
		t.Fatalf("cancellation must not force-deactivate the license")
	}
	if license.CarLimit != 30 {
		t.Fatalf("car limit changed on cancel, got %d", license.CarLimit)
	}

	var orgs int64
	if err := env.db.Raw(`SELECT COUNT(*) FROM organizations WHERE id = ?`, orgID).Scan(&orgs).Error; err != nil || orgs != 1 {
		t.Fatalf("organization must survive cancellation (count=%d err=%v)", orgs, err)
	}
}

func TestPaymentFailedSetsPastDue(t *testing.T) {
	env := newTestEnv(t)
	env.seedTier(t, "standard", 25, "price_standard")
	orgID := env.seedOrg(t, "Acme")
	env.seedLicense(t, orgID, "standard", 25, "cus_1", "sub_1")

	eventAt := env.clock.Now().Add(-time.Minute)
	env.apply(t, invoiceFailedEvent("evt_fail", eventAt, "sub_1", "cus_1"))

	license := env.loadLicense(t, orgID)
	if *license.SubscriptionStatus != licensedomain.SubscriptionStatusPastDue {
		t.Fatalf("expected past_due, got %s", *license.SubscriptionStatus)
	}
	if !license.IsActive {
		t.Fatalf("payment failure must not deactivate by itself")
	}
}

func TestPaymentFailedAfterFreeLicenseIsUnresolvable(t *testing.T) {
	env := newTestEnv(t)
	env.seedTier(t, "standard", 25, "price_standard")
	orgID := env.seedOrg(t, "Acme")
	env.seedLicense(t, orgID, "standard", 25, "cus_1", "sub_1")

	limit := 10000
	if _, err := env.licenseSvc.SetFreeLicense(context.Background(), licensedomain.SetFreeLicenseRequest{
		OrgID:    orgID,
		CarLimit: &limit,
		Reason:   "promo",
	}); err != nil {
		t.Fatalf("set free license: %v", err)
	}

	env.clock.Advance(time.Hour)
	eventAt := env.clock.Now().Add(-time.Minute)
	env.apply(t, invoiceFailedEvent("evt_old_sub", eventAt, "sub_1", "cus_1"))

	license := env.loadLicense(t, orgID)
	if !license.IsFreeAccount || license.CarLimit != 10000 {
		t.Fatalf("free license mutated by event for detached subscription: %+v", license)
	}

	status, _ := env.ledgerStatus(t, "evt_old_sub")
	if status != billingdomain.EventStatusFailed {
		t.Fatalf("event for detached subscription should be ledgered failed, got %s", status)
	}
}

func TestInvalidSignatureTouchesNothing(t *testing.T) {
	env := newTestEnv(t)

	payload := subscriptionEvent("evt_bad", billingdomain.EventSubscriptionUpdated, env.clock.Now(), "sub_1", "cus_1", "active", "")
	err := env.billingSvc.Apply(context.Background(), payload, "t=1,v1=deadbeef")
	if err == nil {
		t.Fatalf("expected signature error")
	}

	var entries int64
	if err := env.db.Raw(`SELECT COUNT(*) FROM billing_events`).Scan(&entries).Error; err != nil {
		t.Fatalf("count ledger entries: %v", err)
	}
	if entries != 0 {
		t.Fatalf("rejected event must not touch the ledger, got %d rows", entries)
	}
}

func TestUnknownSubscriptionLedgeredFailed(t *testing.T) {
	env := newTestEnv(t)

	eventAt := env.clock.Now().Add(-time.Minute)
	env.apply(t, subscriptionEvent("evt_unknown", billingdomain.EventSubscriptionUpdated, eventAt, "sub_missing", "cus_missing", "active", ""))

	status, note := env.ledgerStatus(t, "evt_unknown")
	if status != billingdomain.EventStatusFailed {
		t.Fatalf("expected failed ledger entry, got %s", status)
	}
	if note == "" {
		t.Fatalf("failed entry should carry a descriptive error")
	}
}

func TestUnknownEventTypeLedgeredFailed(t *testing.T) {
	env := newTestEnv(t)

	payload := []byte(`{"id":"evt_other","type":"charge.refunded","created":1756700000,"data":{"object":{}}}`)
	env.apply(t, payload)

	status, _ := env.ledgerStatus(t, "evt_other")
	if status != billingdomain.EventStatusFailed {
		t.Fatalf("expected failed ledger entry, got %s", status)
	}
}

func TestMalformedObjectLedgeredFailed(t *testing.T) {
	env := newTestEnv(t)

	payload := []byte(`{
		"id": "evt_malformed",
		"type": "customer.subscription.updated",
		"created": 1756700000,
		"data": {"object": {"customer": "cus_1"}}
	}`)
	env.apply(t, payload)

	status, note := env.ledgerStatus(t, "evt_malformed")
	if status != billingdomain.EventStatusFailed {
		t.Fatalf("expected failed ledger entry, got %s", status)
	}
	if note == "" {
		t.Fatalf("failed entry should carry a descriptive error")
	}
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_billing_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}

	for _, stmt := range testSchema() {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func testSchema() []string {
	return []string{
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
		`CREATE UNIQUE INDEX ux_organizations_name ON organizations(name)`,
		`CREATE TABLE users (
			id BIGINT PRIMARY KEY,
			org_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
			email TEXT NOT NULL,
			display_name TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'member',
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
			tier_name TEXT REFERENCES tiers(name),
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
		`CREATE UNIQUE INDEX ux_licenses_org ON licenses(org_id)`,
		`CREATE TABLE billing_events (
			id BIGINT PRIMARY KEY,
			provider_event_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			org_id BIGINT,
			license_id BIGINT,
			status TEXT NOT NULL DEFAULT 'pending',
			error TEXT,
			payload TEXT NOT NULL,
			event_at DATETIME NOT NULL,
			received_at DATETIME NOT NULL,
			processed_at DATETIME
		)`,
		`CREATE UNIQUE INDEX ux_billing_events_provider_event ON billing_events(provider_event_id)`,
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
		`CREATE TABLE maintenance_records (
			id BIGINT PRIMARY KEY,
			car_id BIGINT NOT NULL REFERENCES cars(id) ON DELETE CASCADE,
			service_date DATE,
			description TEXT NOT NULL DEFAULT '',
			cost_cents BIGINT NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE expense_categories (
			id BIGINT PRIMARY KEY,
			org_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE expenses (
			id BIGINT PRIMARY KEY,
			org_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
			category_id BIGINT REFERENCES expense_categories(id) ON DELETE SET NULL,
			car_id BIGINT REFERENCES cars(id) ON DELETE SET NULL,
			amount_cents BIGINT NOT NULL DEFAULT 0,
			incurred_on DATE,
			note TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		)`,
	}
}
