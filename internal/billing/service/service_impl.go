package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/carbase/carbase/internal/billing/domain"
	"github.com/carbase/carbase/internal/billing/stripe"
	"github.com/carbase/carbase/internal/clock"
	"github.com/carbase/carbase/internal/config"
	licensedomain "github.com/carbase/carbase/internal/license/domain"
	"github.com/carbase/carbase/internal/observability/metrics"
	organizationdomain "github.com/carbase/carbase/internal/organization/domain"
	"github.com/carbase/carbase/internal/provision"
	tierdomain "github.com/carbase/carbase/internal/tier/domain"
	"github.com/carbase/carbase/pkg/db/pagination"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	noteSuperseded  = "superseded_by_later_event"
	noteFreeAccount = "free_account_unchanged"
)

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	cfg     config.Config
	billing *config.BillingConfigHolder
	adapter *stripe.Adapter
	metrics *metrics.Metrics

	repo        billingdomain.Repository
	licenseRepo licensedomain.Repository
	tierRepo    tierdomain.Repository
	orgRepo     organizationdomain.Repository
	provisioner provision.Provisioner
}

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Cfg     config.Config
	Billing *config.BillingConfigHolder
	Adapter *stripe.Adapter
	Metrics *metrics.Metrics

	Repo        billingdomain.Repository
	LicenseRepo licensedomain.Repository
	TierRepo    tierdomain.Repository
	OrgRepo     organizationdomain.Repository
	Provisioner provision.Provisioner
}

func NewService(p ServiceParam) billingdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("billing.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		cfg:     p.Cfg,
		billing: p.Billing,
		adapter: p.Adapter,
		metrics: p.Metrics,

		repo:        p.Repo,
		licenseRepo: p.LicenseRepo,
		tierRepo:    p.TierRepo,
		orgRepo:     p.OrgRepo,
		provisioner: p.Provisioner,
	}
}

// Apply implements domain.Service. The pipeline is verify, ledger
// insert for idempotency, resolve the target license, derive the new
// state, and commit state plus ledger status in one transaction. A
// failure after the ledger insert is recorded in its own transaction
// so the failure note survives the rollback.
func (s *Service) Apply(ctx context.Context, rawPayload []byte, signatureHeader string) error {
	now := s.clock.Now().UTC()

	if !s.signatureBypassed() {
		if err := s.adapter.Verify(rawPayload, signatureHeader, now); err != nil {
			s.metrics.RecordBillingEvent(ctx, "unknown", "invalid_signature")
			return err
		}
	}

	event, parseErr := s.adapter.Parse(rawPayload, now)
	if event == nil {
		// Not even the envelope survived parsing; there is no event id
		// to ledger against.
		s.metrics.RecordBillingEvent(ctx, "unknown", "invalid_payload")
		return parseErr
	}

	entry := &billingdomain.BillingEvent{
		ID:              s.genID.Generate(),
		ProviderEventID: event.ProviderEventID,
		EventType:       event.Type,
		Status:          billingdomain.EventStatusPending,
		Payload:         rawPayload,
		EventAt:         event.CreatedAt,
		ReceivedAt:      now,
	}

	if err := s.repo.InsertEvent(ctx, s.db, entry); err != nil {
		if !errors.Is(err, billingdomain.ErrEventAlreadyProcessed) {
			return err
		}
		existing, findErr := s.repo.FindEvent(ctx, s.db, event.ProviderEventID)
		if findErr != nil {
			return findErr
		}
		if existing == nil || existing.Status != billingdomain.EventStatusPending {
			// Provider retry of an event already settled in the ledger.
			s.metrics.RecordBillingEvent(ctx, event.Type, "duplicate")
			s.log.Info("duplicate billing event ignored",
				zap.String("provider_event_id", event.ProviderEventID),
				zap.String("event_type", event.Type))
			return nil
		}
		// A pending row means an earlier attempt died before settling;
		// resume it.
		entry = existing
	}

	if parseErr != nil {
		// The envelope carried an event id but the body is unusable.
		// Ledger it failed and acknowledge so the provider stops
		// redelivering something that can never apply.
		if errors.Is(parseErr, billingdomain.ErrUnknownEventType) {
			return s.fail(ctx, entry, nil, "unsupported event type "+event.Type)
		}
		return s.fail(ctx, entry, nil, "malformed payload for event type "+event.Type)
	}

	if err := s.process(ctx, entry, event); err != nil {
		var failure *eventFailure
		if errors.As(err, &failure) {
			return s.fail(ctx, entry, failure.orgID, failure.message)
		}
		// Transient: surface so the provider redelivers. The pending
		// ledger row is resumed on the retry.
		s.metrics.RecordBillingEvent(ctx, event.Type, "error")
		return err
	}

	return nil
}

// signatureBypassed is only honored outside production, regardless of
// what the config file says.
func (s *Service) signatureBypassed() bool {
	return s.billing.Current().AllowUnverifiedEvents && !s.cfg.IsProduction()
}

// eventFailure marks errors that terminate one event without being an
// infrastructure problem. They are ledgered and acknowledged.
type eventFailure struct {
	orgID   *snowflake.ID
	message string
}

func (e *eventFailure) Error() string { return e.message }

func failf(orgID *snowflake.ID, format string, args ...any) error {
	return &eventFailure{orgID: orgID, message: fmt.Sprintf(format, args...)}
}

func (s *Service) process(ctx context.Context, entry *billingdomain.BillingEvent, event *billingdomain.SubscriptionEvent) error {
	if event.Type == billingdomain.EventCheckoutCompleted {
		return s.processCheckout(ctx, entry, event)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		license, err := s.resolveLicense(ctx, tx, event)
		if err != nil {
			return err
		}

		if license.IsFreeAccount {
			return s.markProcessed(ctx, tx, entry, &license.OrgID, &license.ID, strPtr(noteFreeAccount))
		}
		if stale(license, event) {
			s.metrics.RecordBillingEvent(ctx, event.Type, "superseded")
			return s.markProcessed(ctx, tx, entry, &license.OrgID, &license.ID, strPtr(noteSuperseded))
		}

		switch event.Type {
		case billingdomain.EventSubscriptionCreated, billingdomain.EventSubscriptionUpdated:
			if err := s.applySubscription(ctx, tx, license, event); err != nil {
				return err
			}
		case billingdomain.EventSubscriptionDeleted:
			license.SubscriptionStatus = strPtr(licensedomain.SubscriptionStatusCanceled)
		case billingdomain.EventInvoicePaymentFailed:
			license.SubscriptionStatus = strPtr(licensedomain.SubscriptionStatusPastDue)
		default:
			return failf(&license.OrgID, "unsupported event type %s", event.Type)
		}

		eventAt := event.CreatedAt
		license.LastEventAt = &eventAt
		license.UpdatedAt = s.clock.Now().UTC()
		if err := s.licenseRepo.Update(ctx, tx, license); err != nil {
			return err
		}

		return s.markProcessed(ctx, tx, entry, &license.OrgID, &license.ID, nil)
	})
}

// processCheckout provisions the organization, its owner, and an
// initial license when checkout completes for a new customer.
func (s *Service) processCheckout(ctx context.Context, entry *billingdomain.BillingEvent, event *billingdomain.SubscriptionEvent) error {
	tier, err := s.tierRepo.FindByExternalPriceID(ctx, s.db, event.PriceID)
	if err != nil {
		return err
	}
	if tier == nil {
		return failf(nil, "unknown price %q", event.PriceID)
	}
	if tier.CarLimit == nil {
		return failf(nil, "tier %s is not purchasable online", tier.Name)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		org, err := s.resolveCheckoutOrg(ctx, tx, event)
		if err != nil {
			return err
		}

		license, err := s.licenseRepo.FindByOrgIDForUpdate(ctx, tx, org.ID)
		if err != nil {
			return err
		}
		if license != nil {
			if license.IsFreeAccount {
				return s.markProcessed(ctx, tx, entry, &org.ID, &license.ID, strPtr(noteFreeAccount))
			}
			if stale(license, event) {
				s.metrics.RecordBillingEvent(ctx, event.Type, "superseded")
				return s.markProcessed(ctx, tx, entry, &org.ID, &license.ID, strPtr(noteSuperseded))
			}
		}

		now := s.clock.Now().UTC()
		eventAt := event.CreatedAt
		inserting := license == nil
		if inserting {
			license = &licensedomain.License{
				ID:        s.genID.Generate(),
				OrgID:     org.ID,
				IsActive:  true,
				CreatedAt: now,
			}
		}
		license.TierName = &tier.Name
		license.CarLimit = *tier.CarLimit
		license.IsFreeAccount = false
		if event.CustomerID != "" {
			license.ExternalCustomerID = strPtr(event.CustomerID)
		}
		if event.SubscriptionID != "" {
			license.ExternalSubscriptionID = strPtr(event.SubscriptionID)
		}
		// The subscription lifecycle events that follow settle the
		// real status.
		license.SubscriptionStatus = strPtr(licensedomain.SubscriptionStatusIncomplete)
		license.LastEventAt = &eventAt
		license.UpdatedAt = now

		if inserting {
			err = s.licenseRepo.Insert(ctx, tx, license)
		} else {
			err = s.licenseRepo.Update(ctx, tx, license)
		}
		if err != nil {
			return err
		}

		return s.markProcessed(ctx, tx, entry, &org.ID, &license.ID, nil)
	})
}

func (s *Service) resolveCheckoutOrg(ctx context.Context, tx *gorm.DB, event *billingdomain.SubscriptionEvent) (*organizationdomain.Organization, error) {
	if event.CustomerID != "" {
		license, err := s.licenseRepo.FindByExternalCustomerID(ctx, tx, event.CustomerID)
		if err != nil {
			return nil, err
		}
		if license != nil {
			org, err := s.orgRepo.FindByID(ctx, tx, license.OrgID)
			if err != nil {
				return nil, err
			}
			if org != nil {
				return org, nil
			}
		}
	}

	name := strings.TrimSpace(event.OrganizationName)
	if name == "" {
		return nil, failf(nil, "checkout event carries no organization hint")
	}

	org, err := s.orgRepo.FindByName(ctx, tx, name)
	if err != nil {
		return nil, err
	}
	if org != nil {
		return org, nil
	}

	now := s.clock.Now().UTC()
	org = &organizationdomain.Organization{
		ID:           s.genID.Generate(),
		Name:         name,
		Slug:         slug.Make(name),
		ContactEmail: event.CustomerEmail,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.orgRepo.Insert(ctx, tx, org); err != nil {
		return nil, err
	}
	if _, err := s.provisioner.EnsureOwner(ctx, tx, org.ID, event.CustomerEmail); err != nil {
		if errors.Is(err, provision.ErrEmailRequired) {
			s.log.Warn("checkout without customer email, owner not provisioned",
				zap.Int64("org_id", int64(org.ID)))
			return org, nil
		}
		return nil, err
	}

	s.log.Info("organization provisioned from checkout",
		zap.Int64("org_id", int64(org.ID)),
		zap.String("name", org.Name))
	return org, nil
}

// resolveLicense locks the license row targeted by a subscription or
// invoice event. Resolution prefers the subscription id and falls back
// to the customer id.
func (s *Service) resolveLicense(ctx context.Context, tx *gorm.DB, event *billingdomain.SubscriptionEvent) (*licensedomain.License, error) {
	var found *licensedomain.License

	if event.SubscriptionID != "" {
		license, err := s.licenseRepo.FindByExternalSubscriptionID(ctx, tx, event.SubscriptionID)
		if err != nil {
			return nil, err
		}
		found = license
	}
	if found == nil && event.CustomerID != "" {
		license, err := s.licenseRepo.FindByExternalCustomerID(ctx, tx, event.CustomerID)
		if err != nil {
			return nil, err
		}
		found = license
	}
	if found == nil {
		return nil, failf(nil, "no license matches subscription %q customer %q",
			event.SubscriptionID, event.CustomerID)
	}

	// Re-read under lock so concurrent deliveries for the same
	// organization serialize.
	license, err := s.licenseRepo.FindByOrgIDForUpdate(ctx, tx, found.OrgID)
	if err != nil {
		return nil, err
	}
	if license == nil {
		return nil, failf(&found.OrgID, "license disappeared during processing")
	}
	return license, nil
}

func (s *Service) applySubscription(ctx context.Context, tx *gorm.DB, license *licensedomain.License, event *billingdomain.SubscriptionEvent) error {
	license.ExternalSubscriptionID = strPtr(event.SubscriptionID)
	if event.CustomerID != "" {
		license.ExternalCustomerID = strPtr(event.CustomerID)
	}
	if event.SubscriptionStatus != "" {
		license.SubscriptionStatus = strPtr(event.SubscriptionStatus)
	}
	license.CurrentPeriodStart = event.PeriodStart
	license.CurrentPeriodEnd = event.PeriodEnd

	if event.PriceID == "" {
		return nil
	}
	tier, err := s.tierRepo.FindByExternalPriceID(ctx, tx, event.PriceID)
	if err != nil {
		return err
	}
	if tier == nil {
		// Status and period still apply; the tier stays as it was.
		s.log.Warn("subscription references unknown price, keeping current tier",
			zap.Int64("org_id", int64(license.OrgID)),
			zap.String("price_id", event.PriceID))
		return nil
	}
	if tier.CarLimit == nil {
		license.TierName = &tier.Name
		return nil
	}

	// An admin override on the same tier survives; a tier change from
	// the provider resets the limit to the catalog default.
	sameTier := license.TierName != nil && *license.TierName == tier.Name
	if !sameTier || license.CarLimit == 0 {
		license.CarLimit = *tier.CarLimit
	}
	license.TierName = &tier.Name
	return nil
}

func (s *Service) markProcessed(ctx context.Context, tx *gorm.DB, entry *billingdomain.BillingEvent, orgID, licenseID *snowflake.ID, note *string) error {
	if note == nil {
		s.metrics.RecordBillingEvent(ctx, entry.EventType, "processed")
	}
	return s.repo.MarkProcessed(ctx, tx, entry.ID, orgID, licenseID, note, s.clock.Now().UTC())
}

// fail records the terminal error outside any rolled-back transaction
// and acknowledges the event so the provider stops retrying it.
func (s *Service) fail(ctx context.Context, entry *billingdomain.BillingEvent, orgID *snowflake.ID, message string) error {
	s.metrics.RecordBillingEvent(ctx, entry.EventType, "failed")
	s.log.Warn("billing event failed",
		zap.String("provider_event_id", entry.ProviderEventID),
		zap.String("event_type", entry.EventType),
		zap.String("error", message))

	if err := s.repo.MarkFailed(ctx, s.db, entry.ID, orgID, message, s.clock.Now().UTC()); err != nil {
		return err
	}
	return nil
}

// ListEvents implements domain.Service.
func (s *Service) ListEvents(ctx context.Context, req billingdomain.ListEventsRequest) ([]billingdomain.BillingEvent, string, error) {
	pageSize := req.PageSize
	if pageSize <= 0 || pageSize > 250 {
		pageSize = 25
	}

	var afterID snowflake.ID
	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return nil, "", billingdomain.ErrInvalidPayload
		}
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, "", billingdomain.ErrInvalidPayload
		}
		afterID = id
	}

	events, err := s.repo.ListByOrg(ctx, s.db, req, pageSize+1, afterID)
	if err != nil {
		return nil, "", err
	}

	nextToken := ""
	if len(events) > pageSize {
		events = events[:pageSize]
		last := events[len(events)-1]
		nextToken, err = pagination.EncodeCursor(pagination.Cursor{ID: last.ID.String()})
		if err != nil {
			return nil, "", err
		}
	}
	return events, nextToken, nil
}

func stale(license *licensedomain.License, event *billingdomain.SubscriptionEvent) bool {
	return license.LastEventAt != nil && !event.CreatedAt.After(*license.LastEventAt)
}

func strPtr(v string) *string { return &v }
