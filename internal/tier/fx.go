package tier

import (
	"github.com/carbase/carbase/internal/tier/repository"
	"github.com/carbase/carbase/internal/tier/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tier.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
