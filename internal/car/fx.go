package car

import (
	"github.com/carbase/carbase/internal/car/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("car.repository",
	fx.Provide(repository.Provide),
)
