package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/bookline/internal/booking"
	bookingdomain "github.com/smallbiznis/bookline/internal/booking/domain"
	"github.com/smallbiznis/bookline/internal/capacity"
	capacitydomain "github.com/smallbiznis/bookline/internal/capacity/domain"
	"github.com/smallbiznis/bookline/internal/config"
	"github.com/smallbiznis/bookline/internal/intent"
	"github.com/smallbiznis/bookline/internal/nlu"
	"github.com/smallbiznis/bookline/internal/observability"
	obsmiddleware "github.com/smallbiznis/bookline/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/bookline/internal/observability/metrics"
	obstracing "github.com/smallbiznis/bookline/internal/observability/tracing"
	"github.com/smallbiznis/bookline/internal/proposal"
	proposaldomain "github.com/smallbiznis/bookline/internal/proposal/domain"
	"github.com/smallbiznis/bookline/internal/providers/sms"
	"github.com/smallbiznis/bookline/internal/ratelimit"
	"github.com/smallbiznis/bookline/internal/tenant"
	tenantdomain "github.com/smallbiznis/bookline/internal/tenant/domain"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	capacity.Module,
	booking.Module,
	proposal.Module,
	tenant.Module,
	intent.Module,
	nlu.Module,
	sms.Module,
	ratelimit.Module,
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

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
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
	allocator      capacitydomain.Allocator
	bookingSvc     bookingdomain.Service
	proposalSvc    proposaldomain.Service
	tenantSvc      tenantdomain.Service
	intents        intent.Classifier
	replies        nlu.Understander
	smsSender      sms.Sender
	inboundLimiter *ratelimit.InboundLimiter
	bookingMetrics *obsmetrics.BookingMetrics
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	DB             *gorm.DB
	Allocator      capacitydomain.Allocator
	BookingSvc     bookingdomain.Service
	ProposalSvc    proposaldomain.Service
	TenantSvc      tenantdomain.Service
	Intents        intent.Classifier
	Replies        nlu.Understander
	SMSSender      sms.Sender
	InboundLimiter *ratelimit.InboundLimiter  `optional:"true"`
	BookingMetrics *obsmetrics.BookingMetrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		db:             p.DB,
		allocator:      p.Allocator,
		bookingSvc:     p.BookingSvc,
		proposalSvc:    p.ProposalSvc,
		tenantSvc:      p.TenantSvc,
		intents:        p.Intents,
		replies:        p.Replies,
		smsSender:      p.SMSSender,
		inboundLimiter: p.InboundLimiter,
		bookingMetrics: p.BookingMetrics,
	}

	svc.registerLeadRoutes()
	svc.registerInboundRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerLeadRoutes() {
	s.engine.POST("/lead", s.HandleLead)
	s.engine.POST("/lead/propose", s.ProposeLead)
	s.engine.GET("/jobs", s.ListJobs)
}

// Inbound webhooks are the only surface an outside party can hammer, so the
// per-phone limiter guards just these.
func (s *Server) registerInboundRoutes() {
	inbound := s.engine.Group("/", s.InboundRateLimit())

	inbound.POST("/sms/callback", s.SMSCallback)
	inbound.POST("/chat/inbound", s.ChatInbound)
	inbound.POST("/chat/reply", s.ChatReply)
}
