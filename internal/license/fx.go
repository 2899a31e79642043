package license

import (
	"github.com/carbase/carbase/internal/license/repository"
	"github.com/carbase/carbase/internal/license/service"
	"go.uber.org/fx"
)

var Module = fx.Module("license.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
