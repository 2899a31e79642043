package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	billingdomain "github.com/carbase/carbase/internal/billing/domain"
)

// Adapter verifies and decodes the provider's webhook envelope. It is
// constructed once at startup with the shared webhook secret.
type Adapter struct {
	webhookSecret string
	tolerance     time.Duration
}

func NewAdapter(webhookSecret string, tolerance time.Duration) *Adapter {
	return &Adapter{
		webhookSecret: strings.TrimSpace(webhookSecret),
		tolerance:     tolerance,
	}
}

// Verify checks the signature header against the exact payload bytes.
// Signatures older than the tolerance window are rejected to limit
// replay.
func (a *Adapter) Verify(payload []byte, sigHeader string, now time.Time) error {
	sigHeader = strings.TrimSpace(sigHeader)
	if sigHeader == "" || a.webhookSecret == "" {
		return billingdomain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return billingdomain.ErrInvalidSignature
	}

	if a.tolerance > 0 {
		ts, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			return billingdomain.ErrInvalidSignature
		}
		signedAt := time.Unix(ts, 0)
		if signedAt.Before(now.Add(-a.tolerance)) || signedAt.After(now.Add(a.tolerance)) {
			return billingdomain.ErrInvalidSignature
		}
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}

	return billingdomain.ErrInvalidSignature
}

// Sign produces a valid signature header for the payload. Used by
// tests and the local event replayer.
func (a *Adapter) Sign(payload []byte, at time.Time) string {
	timestamp := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	_, _ = mac.Write([]byte(fmt.Sprintf("%s.%s", timestamp, string(payload))))
	return fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

// Parse decodes the envelope into the fields the reconciliation engine
// acts on. receivedAt stands in when the envelope carries no created
// timestamp. Event types outside the subscription lifecycle return
// ErrUnknownEventType. Whenever the envelope itself is readable the
// partially-filled event is returned alongside the error so the caller
// can still ledger the event id.
func (a *Adapter) Parse(payload []byte, receivedAt time.Time) (*billingdomain.SubscriptionEvent, error) {
	var event providerEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, billingdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, billingdomain.ErrInvalidPayload
	}

	eventType := strings.TrimSpace(event.Type)
	out := &billingdomain.SubscriptionEvent{
		ProviderEventID: event.ID,
		Type:            eventType,
		CreatedAt:       timestamp(event.Created, receivedAt),
		Raw:             payload,
	}

	switch eventType {
	case billingdomain.EventCheckoutCompleted:
		var session checkoutSession
		if err := json.Unmarshal(event.Data.Object, &session); err != nil {
			return out, billingdomain.ErrInvalidPayload
		}
		out.CustomerID = strings.TrimSpace(session.Customer)
		out.SubscriptionID = strings.TrimSpace(session.Subscription)
		out.CustomerEmail = strings.TrimSpace(session.CustomerEmail)
		out.OrganizationName = strings.TrimSpace(session.Metadata["organization_name"])
		out.PriceID = strings.TrimSpace(session.Metadata["price_id"])
		return out, nil

	case billingdomain.EventSubscriptionCreated,
		billingdomain.EventSubscriptionUpdated,
		billingdomain.EventSubscriptionDeleted:
		var sub subscription
		if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
			return out, billingdomain.ErrInvalidPayload
		}
		if strings.TrimSpace(sub.ID) == "" {
			return out, billingdomain.ErrInvalidPayload
		}
		out.CustomerID = strings.TrimSpace(sub.Customer)
		out.SubscriptionID = strings.TrimSpace(sub.ID)
		out.SubscriptionStatus = strings.TrimSpace(sub.Status)
		if len(sub.Items.Data) > 0 {
			out.PriceID = strings.TrimSpace(sub.Items.Data[0].Price.ID)
		}
		if sub.CurrentPeriodStart > 0 {
			start := time.Unix(sub.CurrentPeriodStart, 0).UTC()
			out.PeriodStart = &start
		}
		if sub.CurrentPeriodEnd > 0 {
			end := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
			out.PeriodEnd = &end
		}
		return out, nil

	case billingdomain.EventInvoicePaymentFailed:
		var inv invoice
		if err := json.Unmarshal(event.Data.Object, &inv); err != nil {
			return out, billingdomain.ErrInvalidPayload
		}
		out.CustomerID = strings.TrimSpace(inv.Customer)
		out.SubscriptionID = strings.TrimSpace(inv.Subscription)
		return out, nil

	default:
		// The envelope is returned so the caller can still ledger the
		// event id.
		return out, billingdomain.ErrUnknownEventType
	}
}

type providerEvent struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Created int64     `json:"created"`
	Data    eventData `json:"data"`
}

type eventData struct {
	Object json.RawMessage `json:"object"`
}

type checkoutSession struct {
	ID            string            `json:"id"`
	Customer      string            `json:"customer"`
	CustomerEmail string            `json:"customer_email"`
	Subscription  string            `json:"subscription"`
	Metadata      map[string]string `json:"metadata"`
}

type subscription struct {
	ID                 string            `json:"id"`
	Customer           string            `json:"customer"`
	Status             string            `json:"status"`
	CurrentPeriodStart int64             `json:"current_period_start"`
	CurrentPeriodEnd   int64             `json:"current_period_end"`
	Items              subscriptionItems `json:"items"`
}

type subscriptionItems struct {
	Data []subscriptionItem `json:"data"`
}

type subscriptionItem struct {
	Price price `json:"price"`
}

type price struct {
	ID string `json:"id"`
}

type invoice struct {
	ID           string `json:"id"`
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
}

func parseSignatureHeader(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, billingdomain.ErrInvalidSignature
	}
	return timestamp, signatures, nil
}

func timestamp(created int64, fallback time.Time) time.Time {
	if created == 0 {
		return fallback.UTC()
	}
	return time.Unix(created, 0).UTC()
}
