package provision

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/carbase/carbase/internal/clock"
	organizationdomain "github.com/carbase/carbase/internal/organization/domain"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var ErrEmailRequired = errors.New("owner_email_required")

// Provisioner creates the initial owner user when checkout brings a
// brand-new organization into existence.
type Provisioner interface {
	EnsureOwner(ctx context.Context, db *gorm.DB, orgID snowflake.ID, email string) (*organizationdomain.User, error)
}

type provisioner struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

type Param struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

func New(p Param) Provisioner {
	return &provisioner{
		log:   p.Log.Named("provision"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

// EnsureOwner inserts an owner user for the organization unless one
// with the same email already exists. The account starts with a random
// password; the real credential is established through password reset.
func (p *provisioner) EnsureOwner(ctx context.Context, db *gorm.DB, orgID snowflake.ID, email string) (*organizationdomain.User, error) {
	if email == "" {
		return nil, ErrEmailRequired
	}

	var existing organizationdomain.User
	err := db.WithContext(ctx).
		Where("org_id = ? AND email = ?", orgID, email).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := p.clock.Now().UTC()
	user := &organizationdomain.User{
		ID:           p.genID.Generate(),
		OrgID:        orgID,
		Email:        email,
		PasswordHash: string(hashed),
		Role:         "owner",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}

	p.log.Info("owner user provisioned",
		zap.Int64("org_id", int64(orgID)),
		zap.Int64("user_id", int64(user.ID)))
	return user, nil
}

var Module = fx.Module("provision",
	fx.Provide(New),
)
