package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/paperifyhq/paperify/internal/config"
	entitlementdomain "github.com/paperifyhq/paperify/internal/entitlement/domain"
	paymentlinkdomain "github.com/paperifyhq/paperify/internal/paymentlink/domain"
	"github.com/paperifyhq/paperify/internal/plan"
	referraldomain "github.com/paperifyhq/paperify/internal/referral/domain"
	"github.com/paperifyhq/paperify/internal/session"
	subscriptiondomain "github.com/paperifyhq/paperify/internal/subscription/domain"
	userdomain "github.com/paperifyhq/paperify/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Server struct {
	cfg      config.Config
	log      *zap.Logger
	sessions *session.Store
	catalog  *plan.Catalog
	metrics  *Metrics

	userSvc         userdomain.Service
	linkSvc         paymentlinkdomain.Service
	subscriptionSvc subscriptiondomain.Service
	referralSvc     referraldomain.Service
	entitlementSvc  entitlementdomain.Service
}

type ServerParam struct {
	fx.In

	Config   config.Config
	Log      *zap.Logger
	Sessions *session.Store
	Catalog  *plan.Catalog
	Metrics  *Metrics

	UserSvc         userdomain.Service
	LinkSvc         paymentlinkdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	ReferralSvc     referraldomain.Service
	EntitlementSvc  entitlementdomain.Service
}

func NewServer(p ServerParam) *Server {
	return &Server{
		cfg:             p.Config,
		log:             p.Log.Named("server"),
		sessions:        p.Sessions,
		catalog:         p.Catalog,
		metrics:         p.Metrics,
		userSvc:         p.UserSvc,
		linkSvc:         p.LinkSvc,
		subscriptionSvc: p.SubscriptionSvc,
		referralSvc:     p.ReferralSvc,
		entitlementSvc:  p.EntitlementSvc,
	}
}

func (s *Server) Router() *gin.Engine {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.SessionContext())

	r.GET("/healthz", s.Healthz)
	r.GET("/metrics", s.metrics.Handler())

	r.GET("/payment/:linkId", s.GetPaymentLink)

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		auth.POST("/register", s.Register)
		auth.POST("/login", s.Login)
		auth.POST("/logout", s.Logout)
		auth.GET("/me", s.Me)

		referral := api.Group("/referral", s.RequireAuth())
		referral.GET("/status", s.ReferralStatus)
		referral.POST("/apply", s.ApplyReferralCode)

		user := api.Group("/user", s.RequireAuth())
		user.GET("/subscription", s.GetSubscription)
		user.POST("/subscription/lock-book", s.LockBook)

		payment := api.Group("/payment")
		payment.POST("/create-link", s.RequireAuth(), s.CreatePaymentLink)
		payment.POST("/submit/:linkId", s.SubmitPaymentProof)
		payment.POST("/confirm/:linkId", s.RequireAdmin(), s.ConfirmPayment)

		admin := api.Group("/admin", s.RequireAdmin())
		admin.GET("/payments", s.PendingPayments)
		admin.POST("/temp-unlimited", s.TempUnlimited)

		demo := api.Group("/demo")
		demo.GET("/check", s.DemoCheck)
		demo.POST("/track", s.DemoTrack)
	}

	return r
}

func (s *Server) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

var Module = fx.Module("server",
	fx.Provide(NewMetrics),
	fx.Provide(NewServer),
	fx.Invoke(Start),
)

// Start runs the HTTP server under the fx lifecycle.
func Start(lc fx.Lifecycle, s *Server, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: s.Router(),
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.Server.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
