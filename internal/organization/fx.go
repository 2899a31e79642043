package organization

import (
	"github.com/carbase/carbase/internal/organization/repository"
	"github.com/carbase/carbase/internal/organization/service"
	"go.uber.org/fx"
)

var Module = fx.Module("organization.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
