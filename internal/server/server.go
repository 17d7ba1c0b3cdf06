package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/partnerpay/settlo/internal/authorization"
	"github.com/partnerpay/settlo/internal/commission"
	commissiondomain "github.com/partnerpay/settlo/internal/commission/domain"
	"github.com/partnerpay/settlo/internal/config"
	"github.com/partnerpay/settlo/internal/mapping"
	mappingdomain "github.com/partnerpay/settlo/internal/mapping/domain"
	"github.com/partnerpay/settlo/internal/observability"
	obsmiddleware "github.com/partnerpay/settlo/internal/observability/logger"
	obsmetrics "github.com/partnerpay/settlo/internal/observability/metrics"
	obstracing "github.com/partnerpay/settlo/internal/observability/tracing"
	"github.com/partnerpay/settlo/internal/ratelimit"
	"github.com/partnerpay/settlo/internal/ratetable"
	ratedomain "github.com/partnerpay/settlo/internal/ratetable/domain"
	"github.com/partnerpay/settlo/internal/scheme"
	schemedomain "github.com/partnerpay/settlo/internal/scheme/domain"
	"github.com/partnerpay/settlo/internal/transfer"
	transferdomain "github.com/partnerpay/settlo/internal/transfer/domain"
	"github.com/partnerpay/settlo/internal/wallet"
	walletdomain "github.com/partnerpay/settlo/internal/wallet/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	ratelimit.Module,
	scheme.Module,
	ratetable.Module,
	mapping.Module,
	wallet.Module,
	commission.Module,
	transfer.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
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

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
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
	engine         *gin.Engine
	cfg            config.Config
	db             *gorm.DB
	genID          *snowflake.Node
	authzSvc       authorization.Service
	schemeSvc      schemedomain.Service
	rateSvc        ratedomain.Service
	mappingSvc     mappingdomain.Service
	commissionSvc  commissiondomain.Service
	walletSvc      walletdomain.Service
	transferSvc    transferdomain.Service
	resolveLimiter *ratelimit.ResolveLimiter
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	DB             *gorm.DB
	GenID          *snowflake.Node
	AuthzSvc       authorization.Service
	SchemeSvc      schemedomain.Service
	RateSvc        ratedomain.Service
	MappingSvc     mappingdomain.Service
	CommissionSvc  commissiondomain.Service
	WalletSvc      walletdomain.Service
	TransferSvc    transferdomain.Service
	ResolveLimiter *ratelimit.ResolveLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		db:             p.DB,
		genID:          p.GenID,
		authzSvc:       p.AuthzSvc,
		schemeSvc:      p.SchemeSvc,
		rateSvc:        p.RateSvc,
		mappingSvc:     p.MappingSvc,
		commissionSvc:  p.CommissionSvc,
		walletSvc:      p.WalletSvc,
		transferSvc:    p.TransferSvc,
		resolveLimiter: p.ResolveLimiter,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.ActorContext())

	// -------- Schemes --------
	api.POST("/schemes", s.RequirePermission(authorization.ObjectScheme, authorization.ActionSchemeCreate), s.CreateScheme)
	api.GET("/schemes", s.RequirePermission(authorization.ObjectScheme, authorization.ActionSchemeView), s.ListSchemes)
	api.GET("/schemes/:id", s.RequirePermission(authorization.ObjectScheme, authorization.ActionSchemeView), s.GetScheme)
	api.PATCH("/schemes/:id", s.RequirePermission(authorization.ObjectScheme, authorization.ActionSchemeUpdate), s.UpdateScheme)
	api.POST("/schemes/:id/status", s.RequirePermission(authorization.ObjectScheme, authorization.ActionSchemeStatus), s.SetSchemeStatus)
	api.DELETE("/schemes/:id", s.RequirePermission(authorization.ObjectScheme, authorization.ActionSchemeDelete), s.DeleteScheme)

	// -------- Rate tables --------
	api.POST("/schemes/:id/rates/bbps", s.RequirePermission(authorization.ObjectRate, authorization.ActionRateCreate), s.AddBBPSRate)
	api.POST("/schemes/:id/rates/payout", s.RequirePermission(authorization.ObjectRate, authorization.ActionRateCreate), s.AddPayoutRate)
	api.POST("/schemes/:id/rates/mdr", s.RequirePermission(authorization.ObjectRate, authorization.ActionRateCreate), s.AddMDRRate)
	api.GET("/schemes/:id/rates", s.RequirePermission(authorization.ObjectRate, authorization.ActionRateView), s.ListSchemeRates)
	api.POST("/rates/:kind/:id/deactivate", s.RequirePermission(authorization.ObjectRate, authorization.ActionRateDeactivate), s.DeactivateRate)

	// -------- Mappings --------
	api.POST("/mappings", s.RequirePermission(authorization.ObjectMapping, authorization.ActionMappingAssign), s.AssignMapping)
	api.GET("/mappings", s.RequirePermission(authorization.ObjectMapping, authorization.ActionMappingView), s.ListMappings)

	// -------- Commission --------
	api.POST("/commission/resolve", s.RequirePermission(authorization.ObjectCommission, authorization.ActionCommissionResolve), s.resolveLimiter.Middleware(), s.ResolveCommission)
	api.POST("/commission/record", s.RequirePermission(authorization.ObjectCommission, authorization.ActionCommissionRecord), s.RecordCommission)
	api.GET("/commission/:id", s.RequirePermission(authorization.ObjectCommission, authorization.ActionCommissionView), s.GetCommission)
	api.GET("/commission", s.RequirePermission(authorization.ObjectCommission, authorization.ActionCommissionView), s.ListCommissionBySource)
	api.POST("/commission/:id/adjust", s.RequirePermission(authorization.ObjectCommission, authorization.ActionCommissionAdjust), s.AdjustCommission)
	api.POST("/commission/:id/cancel", s.RequirePermission(authorization.ObjectCommission, authorization.ActionCommissionAdjust), s.CancelCommission)

	// -------- Wallets --------
	api.POST("/wallets/entries", s.RequirePermission(authorization.ObjectWallet, authorization.ActionWalletPost), s.PostWalletEntry)
	api.GET("/wallets/balance", s.RequirePermission(authorization.ObjectWallet, authorization.ActionWalletView), s.GetWalletBalance)
	api.GET("/wallets/entries", s.RequirePermission(authorization.ObjectWallet, authorization.ActionWalletView), s.ListWalletEntries)
	api.POST("/wallets/freeze", s.RequirePermission(authorization.ObjectWallet, authorization.ActionWalletFreeze), s.SetWalletFreeze)
	api.POST("/wallets/settlement-hold", s.RequirePermission(authorization.ObjectWallet, authorization.ActionWalletHold), s.SetWalletSettlementHold)

	// -------- Transfers --------
	api.POST("/transfers", s.RequirePermission(authorization.ObjectTransfer, authorization.ActionTransferCreate), s.CreateTransfer)
	api.GET("/transfers/:id", s.RequirePermission(authorization.ObjectTransfer, authorization.ActionTransferView), s.GetTransfer)
}
