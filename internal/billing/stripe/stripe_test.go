package stripe

import (
	"errors"
	"fmt"
	"testing"
	"time"

	billingdomain "github.com/carbase/carbase/internal/billing/domain"
)

const testSecret = "whsec_test"

func TestVerifyAcceptsValidSignature(t *testing.T) {
	adapter := NewAdapter(testSecret, 5*time.Minute)
	payload := []byte(`{"id":"evt_1","type":"customer.subscription.updated"}`)
	now := time.Now()

	header := adapter.Sign(payload, now)
	if err := adapter.Verify(payload, header, now); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	adapter := NewAdapter(testSecret, 5*time.Minute)
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Now()

	header := adapter.Sign(payload, now)
	err := adapter.Verify([]byte(`{"id":"evt_2"}`), header, now)
	if !errors.Is(err, billingdomain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyRejectsMissingHeader(t *testing.T) {
	adapter := NewAdapter(testSecret, 5*time.Minute)

	err := adapter.Verify([]byte(`{}`), "", time.Now())
	if !errors.Is(err, billingdomain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyRejectsStaleTimestamp(t *testing.T) {
	adapter := NewAdapter(testSecret, 5*time.Minute)
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Now()

	header := adapter.Sign(payload, now.Add(-time.Hour))
	err := adapter.Verify(payload, header, now)
	if !errors.Is(err, billingdomain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for stale timestamp, got %v", err)
	}
}

func TestParseSubscriptionUpdated(t *testing.T) {
	adapter := NewAdapter(testSecret, 0)
	payload := []byte(`{
		"id": "evt_42",
		"type": "customer.subscription.updated",
		"created": 1756700000,
		"data": {"object": {
			"id": "sub_1",
			"customer": "cus_1",
			"status": "active",
			"current_period_start": 1756600000,
			"current_period_end": 1759200000,
			"items": {"data": [{"price": {"id": "price_standard_monthly"}}]}
		}}
	}`)

	event, err := adapter.Parse(payload, time.Now())
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if event.ProviderEventID != "evt_42" {
		t.Fatalf("unexpected event id %q", event.ProviderEventID)
	}
	if event.SubscriptionID != "sub_1" || event.CustomerID != "cus_1" {
		t.Fatalf("unexpected identifiers %+v", event)
	}
	if event.SubscriptionStatus != "active" {
		t.Fatalf("unexpected status %q", event.SubscriptionStatus)
	}
	if event.PriceID != "price_standard_monthly" {
		t.Fatalf("unexpected price id %q", event.PriceID)
	}
	if event.PeriodStart == nil || event.PeriodEnd == nil {
		t.Fatalf("expected period bounds, got %+v", event)
	}
	if !event.CreatedAt.Equal(time.Unix(1756700000, 0).UTC()) {
		t.Fatalf("unexpected created at %v", event.CreatedAt)
	}
}

func TestParseCheckoutCompleted(t *testing.T) {
	adapter := NewAdapter(testSecret, 0)
	payload := []byte(`{
		"id": "evt_7",
		"type": "checkout.session.completed",
		"created": 1756700000,
		"data": {"object": {
			"id": "cs_1",
			"customer": "cus_9",
			"customer_email": "owner@acme.test",
			"subscription": "sub_9",
			"metadata": {"organization_name": "Acme", "price_id": "price_standard_monthly"}
		}}
	}`)

	event, err := adapter.Parse(payload, time.Now())
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if event.OrganizationName != "Acme" {
		t.Fatalf("unexpected organization name %q", event.OrganizationName)
	}
	if event.CustomerEmail != "owner@acme.test" {
		t.Fatalf("unexpected customer email %q", event.CustomerEmail)
	}
	if event.PriceID != "price_standard_monthly" {
		t.Fatalf("unexpected price id %q", event.PriceID)
	}
}

func TestParseRejectsUnknownType(t *testing.T) {
	adapter := NewAdapter(testSecret, 0)
	payload := []byte(`{"id":"evt_9","type":"charge.refunded","data":{"object":{}}}`)

	event, err := adapter.Parse(payload, time.Now())
	if !errors.Is(err, billingdomain.ErrUnknownEventType) {
		t.Fatalf("expected ErrUnknownEventType, got %v", err)
	}
	if event == nil || event.ProviderEventID != "evt_9" {
		t.Fatalf("expected envelope alongside the error, got %+v", event)
	}
}

func TestParseRejectsMalformedPayload(t *testing.T) {
	adapter := NewAdapter(testSecret, 0)

	for i, payload := range []string{
		`not json`,
		`{"type":"customer.subscription.updated"}`,
	} {
		event, err := adapter.Parse([]byte(payload), time.Now())
		if !errors.Is(err, billingdomain.ErrInvalidPayload) {
			t.Fatalf("case %d: expected ErrInvalidPayload, got %v", i, err)
		}
		if event != nil {
			t.Fatalf("case %d: expected no event without an id, got %+v", i, event)
		}
	}
}

func TestParseMalformedObjectKeepsEnvelope(t *testing.T) {
	adapter := NewAdapter(testSecret, 0)
	payload := []byte(fmt.Sprintf(
		`{"id":"evt_%d","type":"customer.subscription.updated","data":{"object":{"customer":"cus_1"}}}`, 1))

	event, err := adapter.Parse(payload, time.Now())
	if !errors.Is(err, billingdomain.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
	if event == nil || event.ProviderEventID != "evt_1" {
		t.Fatalf("expected envelope alongside the error, got %+v", event)
	}
}

func TestParseFallsBackToReceivedAt(t *testing.T) {
	adapter := NewAdapter(testSecret, 0)
	receivedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	payload := []byte(`{
		"id": "evt_11",
		"type": "customer.subscription.deleted",
		"data": {"object": {"id": "sub_1", "customer": "cus_1", "status": "canceled"}}
	}`)

	event, err := adapter.Parse(payload, receivedAt)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !event.CreatedAt.Equal(receivedAt) {
		t.Fatalf("expected created at %v, got %v", receivedAt, event.CreatedAt)
	}
}
