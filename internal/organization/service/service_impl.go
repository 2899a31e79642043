package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/carbase/carbase/internal/billing/domain"
	cardomain "github.com/carbase/carbase/internal/car/domain"
	"github.com/carbase/carbase/internal/clock"
	"github.com/carbase/carbase/internal/observability/metrics"
	organizationdomain "github.com/carbase/carbase/internal/organization/domain"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	metrics *metrics.Metrics

	repo        organizationdomain.Repository
	carRepo     cardomain.Repository
	billingRepo billingdomain.Repository
}

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Metrics *metrics.Metrics

	Repo        organizationdomain.Repository
	CarRepo     cardomain.Repository
	BillingRepo billingdomain.Repository
}

func NewService(p ServiceParam) organizationdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("organization.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		metrics: p.Metrics,

		repo:        p.Repo,
		carRepo:     p.CarRepo,
		billingRepo: p.BillingRepo,
	}
}

// Create implements domain.Service.
func (s *Service) Create(ctx context.Context, req organizationdomain.CreateRequest) (*organizationdomain.Organization, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, organizationdomain.ErrInvalidName
	}

	existing, err := s.repo.FindByName(ctx, s.db, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, organizationdomain.ErrOrganizationExists
	}

	now := s.clock.Now().UTC()
	org := &organizationdomain.Organization{
		ID:           s.genID.Generate(),
		Name:         name,
		Slug:         slug.Make(name),
		ContactEmail: strings.TrimSpace(req.ContactEmail),
		ContactPhone: strings.TrimSpace(req.ContactPhone),
		Address:      strings.TrimSpace(req.Address),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, s.db, org); err != nil {
		return nil, err
	}

	s.log.Info("organization created",
		zap.Int64("org_id", int64(org.ID)),
		zap.String("slug", org.Slug))
	return org, nil
}

// GetByID implements domain.Service.
func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*organizationdomain.Organization, error) {
	org, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, organizationdomain.ErrOrganizationNotFound
	}
	return org, nil
}

// Destroy implements domain.Service. Counts are gathered before any
// delete so the report reflects what was actually removed; any error
// rolls the whole transaction back.
func (s *Service) Destroy(ctx context.Context, id snowflake.ID) (organizationdomain.DeletedCounts, error) {
	var counts organizationdomain.DeletedCounts

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		org, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if org == nil {
			return organizationdomain.ErrOrganizationNotFound
		}

		if counts.Users, err = s.repo.CountUsers(ctx, tx, id); err != nil {
			return err
		}
		if counts.Cars, err = s.carRepo.CountByOrg(ctx, tx, id); err != nil {
			return err
		}
		if counts.MaintenanceRecords, err = s.carRepo.CountMaintenanceByOrg(ctx, tx, id); err != nil {
			return err
		}
		if counts.Expenses, err = s.carRepo.CountExpensesByOrg(ctx, tx, id); err != nil {
			return err
		}
		if counts.BillingEvents, err = s.billingRepo.CountByOrg(ctx, tx, id); err != nil {
			return err
		}

		if err := s.repo.DeleteUsers(ctx, tx, id); err != nil {
			return err
		}
		// Maintenance rows go with their cars via cascade.
		if err := s.carRepo.DeleteByOrg(ctx, tx, id); err != nil {
			return err
		}
		// Ledger rows carry no foreign key, so they are removed explicitly.
		if err := s.billingRepo.DeleteByOrg(ctx, tx, id); err != nil {
			return err
		}
		// The organization delete cascades to the license, expense
		// categories, and expenses.
		return s.repo.Delete(ctx, tx, id)
	})
	if err != nil {
		return organizationdomain.DeletedCounts{}, err
	}

	rows := counts.Users + counts.Cars + counts.MaintenanceRecords + counts.Expenses + counts.BillingEvents
	s.metrics.RecordTenantDestroyed(ctx, rows)
	s.log.Info("organization destroyed",
		zap.Int64("org_id", int64(id)),
		zap.Int64("users", counts.Users),
		zap.Int64("cars", counts.Cars),
		zap.Int64("maintenance_records", counts.MaintenanceRecords),
		zap.Int64("expenses", counts.Expenses),
		zap.Int64("billing_events", counts.BillingEvents))
	return counts, nil
}
