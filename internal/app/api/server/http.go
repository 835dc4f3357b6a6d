package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/contactbook/docs"
	"github.com/fatflowers/contactbook/internal/app/api/handlers"
	mw "github.com/fatflowers/contactbook/internal/app/api/middleware"
	"github.com/fatflowers/contactbook/internal/app/service/auth"
	"github.com/fatflowers/contactbook/internal/app/service/billing"
	"github.com/fatflowers/contactbook/internal/app/service/contact"
	"github.com/fatflowers/contactbook/internal/app/service/interaction"
	"github.com/fatflowers/contactbook/internal/app/service/note"
	"github.com/fatflowers/contactbook/internal/app/service/setting"
	"github.com/fatflowers/contactbook/internal/app/service/statistics"
	subsvc "github.com/fatflowers/contactbook/internal/app/service/subscription"
	"github.com/fatflowers/contactbook/internal/app/service/tag"
	"github.com/fatflowers/contactbook/internal/app/service/user"
	webhookhandler "github.com/fatflowers/contactbook/internal/app/service/webhook_handler"
	webhooklog "github.com/fatflowers/contactbook/internal/app/service/webhook_log"
	models "github.com/fatflowers/contactbook/internal/models"
	cfgpkg "github.com/fatflowers/contactbook/pkg/config"
	metrics "github.com/fatflowers/contactbook/pkg/metrics"
)

func newEngine(cfg *cfgpkg.Config) (*gin.Engine, error) {
	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := mw.RegisterValidators(); err != nil {
		return nil, err
	}
	r := gin.New()
	r.Use(gin.Recovery())
	// Add request tracing middleware only; request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r, nil
}

// Routes bundles everything the HTTP surface depends on.
type Routes struct {
	Auth          handlers.AuthService
	Checkout      handlers.CheckoutService
	Webhook       handlers.WebhookHandler
	Contacts      handlers.ContactService
	Interactions  handlers.InteractionService
	Notes         handlers.ResourceService[models.Note, note.Input]
	Tags          handlers.ResourceService[models.Tag, tag.Input]
	Dashboard     handlers.DashboardService
	Admin         handlers.AdminServices
	Tokens        mw.TokenParser
	Users         mw.UserFinder
	AuthRateLimit gin.HandlerFunc
}

// Mount registers every route on r.
func Mount(r *gin.Engine, rt Routes, log *zap.SugaredLogger) {
	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(log))
	handlers.RegisterHealthRoutes(pub)
	// Swagger UI
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api")
	api.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(log))
	bearer := mw.BearerAuth(rt.Tokens, log)

	authGroup := api.Group("/auth")
	if rt.AuthRateLimit != nil {
		authGroup.Use(rt.AuthRateLimit)
	}
	handlers.RegisterAuthRoutes(authGroup, rt.Auth, bearer, log)

	handlers.RegisterSubscriptionRoutes(api.Group("/subscriptions"), rt.Checkout, rt.Webhook, bearer, log)

	handlers.RegisterContactBookRoutes(api.Group("", bearer),
		rt.Contacts, rt.Interactions, rt.Notes, rt.Tags, rt.Dashboard, log)

	handlers.RegisterAdminRoutes(api.Group("/admin", bearer, mw.AdminOnly(rt.Users, log)), rt.Admin, log)
}

type routeDeps struct {
	fx.In

	Lifecycle    fx.Lifecycle
	Engine       *gin.Engine
	Log          *zap.SugaredLogger
	Config       *cfgpkg.Config
	Auth         *auth.Service
	Billing      *billing.Service
	Webhook      *webhookhandler.Handler
	Contacts     *contact.Service
	Interactions *interaction.Service
	Notes        *note.Service
	Tags         *tag.Service
	Statistics   *statistics.Service
	Settings     *setting.Service
	Users        *user.Service
	Subs         *subsvc.Service
	WebhookLogs  *webhooklog.Service
}

func registerRoutes(d routeDeps) {
	// Prometheus metrics
	if d.Config.MetricsAddr != "" {
		p := metrics.NewPrometheus(metrics.NewPrometheusOptions{
			MetricsList: metrics.BusinessMetrics,
			ReqCntURLLabelMappingFn: func(c *gin.Context) string {
				if fp := c.FullPath(); fp != "" {
					return fp
				}
				return "unmatched"
			},
			Logger: d.Log,
		})
		p.SetListenAddress(d.Config.MetricsAddr)
		p.Use(d.Engine)

		d.Log.Infow("metrics started", "addr", d.Config.MetricsAddr)
	}

	limiter := mw.NewIPRateLimiter(d.Config.RateLimit.RPS, d.Config.RateLimit.Burst)
	stop := make(chan struct{})
	d.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go limiter.Run(time.Minute, stop)
			return nil
		},
		OnStop: func(context.Context) error {
			close(stop)
			return nil
		},
	})

	Mount(d.Engine, Routes{
		Auth:         d.Auth,
		Checkout:     d.Billing,
		Webhook:      d.Webhook,
		Contacts:     d.Contacts,
		Interactions: d.Interactions,
		Notes:        d.Notes,
		Tags:         d.Tags,
		Dashboard:    d.Statistics,
		Admin: handlers.AdminServices{
			Settings:      d.Settings,
			Users:         d.Users,
			Statistics:    d.Statistics,
			Subscriptions: d.Subs,
			WebhookLogs:   d.WebhookLogs,
		},
		Tokens:        d.Auth,
		Users:         d.Users,
		AuthRateLimit: limiter.Middleware(),
	}, d.Log)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Errorf("server error: %v", err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
