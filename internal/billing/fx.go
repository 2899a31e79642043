package billing

import (
	"time"

	"github.com/carbase/carbase/internal/billing/repository"
	"github.com/carbase/carbase/internal/billing/service"
	"github.com/carbase/carbase/internal/billing/stripe"
	"github.com/carbase/carbase/internal/config"
	"go.uber.org/fx"
)

func provideAdapter(cfg config.Config, holder *config.BillingConfigHolder) *stripe.Adapter {
	tolerance := time.Duration(holder.Current().WebhookToleranceSeconds) * time.Second
	return stripe.NewAdapter(cfg.BillingWebhookSecret, tolerance)
}

var Module = fx.Module("billing.service",
	fx.Provide(provideAdapter),
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
