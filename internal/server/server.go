package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/carbase/carbase/internal/billing"
	billingdomain "github.com/carbase/carbase/internal/billing/domain"
	"github.com/carbase/carbase/internal/car"
	"github.com/carbase/carbase/internal/config"
	"github.com/carbase/carbase/internal/license"
	licensedomain "github.com/carbase/carbase/internal/license/domain"
	"github.com/carbase/carbase/internal/observability"
	obslogger "github.com/carbase/carbase/internal/observability/logger"
	obsmetrics "github.com/carbase/carbase/internal/observability/metrics"
	obstracing "github.com/carbase/carbase/internal/observability/tracing"
	"github.com/carbase/carbase/internal/organization"
	organizationdomain "github.com/carbase/carbase/internal/organization/domain"
	"github.com/carbase/carbase/internal/provision"
	"github.com/carbase/carbase/internal/ratelimit"
	"github.com/carbase/carbase/internal/tier"
	tierdomain "github.com/carbase/carbase/internal/tier/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	tier.Module,
	license.Module,
	car.Module,
	organization.Module,
	provision.Module,
	billing.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug: obsCfg.Debug(),
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	db     *gorm.DB
	genID  *snowflake.Node

	tierSvc         tierdomain.Service
	licenseSvc      licensedomain.Service
	organizationSvc organizationdomain.Service
	billingSvc      billingdomain.Service

	obsMetrics     *obsmetrics.Metrics
	webhookLimiter *ratelimit.WebhookLimiter
}

type ServerParams struct {
	fx.In

	Gin   *gin.Engine
	Cfg   config.Config
	DB    *gorm.DB
	GenID *snowflake.Node

	TierSvc         tierdomain.Service
	LicenseSvc      licensedomain.Service
	OrganizationSvc organizationdomain.Service
	BillingSvc      billingdomain.Service

	ObsMetrics     *obsmetrics.Metrics       `optional:"true"`
	WebhookLimiter *ratelimit.WebhookLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine: p.Gin,
		cfg:    p.Cfg,
		db:     p.DB,
		genID:  p.GenID,

		tierSvc:         p.TierSvc,
		licenseSvc:      p.LicenseSvc,
		organizationSvc: p.OrganizationSvc,
		billingSvc:      p.BillingSvc,

		obsMetrics:     p.ObsMetrics,
		webhookLimiter: p.WebhookLimiter,
	}

	svc.registerWebhookRoutes()
	svc.registerAPIRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.GET("/tiers", s.ListTiers)
	api.GET("/organizations/:id/license", s.GetLicenseSummary)
	api.GET("/organizations/:id/entitlement", s.GetEntitlement)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin", s.AdminRequired())
	admin.POST("/organizations", s.CreateOrganization)
	admin.GET("/organizations/:id/license", s.AdminGetLicense)
	admin.POST("/organizations/:id/license/free", s.SetFreeLicense)
	admin.PATCH("/organizations/:id/license", s.UpdateLicense)
	admin.GET("/billing/events", s.ListBillingEvents)

	s.engine.DELETE("/organizations/:id", s.AdminRequired(), s.DestroyOrganization)
}
