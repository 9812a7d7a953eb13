package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"enrollment-gateway/config"
	"enrollment-gateway/database"
	adminapi "enrollment-gateway/internal/api/admin"
	enrollmentsapi "enrollment-gateway/internal/api/enrollments"
	routes "enrollment-gateway/internal/app/http"
	"enrollment-gateway/internal/app/http/middleware"
	"enrollment-gateway/internal/infra/latest"
	"enrollment-gateway/internal/infra/store"
	"enrollment-gateway/internal/infra/upstream"
	"enrollment-gateway/internal/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadEnv,
			NewLogger,
			ProvideDB,
			store.New,
			latest.NewTracker,
			ProvideUpstreamHTTP,
			ProvideEnrollmentsDialer,
			ProvideAdminDialer,
			ProvideMetrics,
			ProvideRefresher,
			func(s *store.Store) enrollmentsapi.Cache { return s },
			func(s *store.Store) adminapi.Catalog { return s },
			enrollmentsapi.NewHandler,
			adminapi.NewHandler,
			ProvideRouter,
		),
		fx.Invoke(StartServer),
		fx.NopLogger,
	)

	app.Run()
}

// NewLogger writes JSON logs; local and dev environments log at debug.
func NewLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelDebug
	if cfg.Production() {
		level = slog.LevelInfo
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)
	return log
}

func ProvideDB(lc fx.Lifecycle, cfg config.Config, log *slog.Logger) (*gorm.DB, error) {
	db, err := database.Open(cfg, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return database.Close(db) },
	})
	return db, nil
}

func ProvideUpstreamHTTP(cfg config.Config) *http.Client {
	return &http.Client{Timeout: cfg.UpstreamTimeout}
}

func newClient(cfg config.Config, httpClient *http.Client, log *slog.Logger, s *upstream.Session) *upstream.Client {
	return upstream.NewClient(cfg.UpstreamURL, s,
		upstream.WithHTTPClient(httpClient),
		upstream.WithLogger(log.With(slog.String("component", "upstream"))),
	)
}

func ProvideEnrollmentsDialer(cfg config.Config, httpClient *http.Client, log *slog.Logger) enrollmentsapi.Dialer {
	return func(s *upstream.Session) enrollmentsapi.Platform {
		return newClient(cfg, httpClient, log, s)
	}
}

func ProvideAdminDialer(cfg config.Config, httpClient *http.Client, log *slog.Logger) adminapi.Dialer {
	return func(s *upstream.Session) adminapi.Platform {
		return newClient(cfg, httpClient, log, s)
	}
}

func ProvideRefresher(cfg config.Config, httpClient *http.Client, log *slog.Logger) middleware.RefreshFunc {
	return func(ctx context.Context, s *upstream.Session) error {
		return newClient(cfg, httpClient, log, s).Refresh(ctx)
	}
}

func ProvideMetrics() http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics.Register(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ProvideRouter(
	cfg config.Config,
	log *slog.Logger,
	enrollments *enrollmentsapi.Handler,
	admin *adminapi.Handler,
	metricsHandler http.Handler,
	refresh middleware.RefreshFunc,
) *gin.Engine {
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.TraceIDMiddleware())
	r.Use(middleware.RequestLogger(log))

	// CORS before routes
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{cfg.CORSOrigin},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization", middleware.RefreshTokenHeader, middleware.TraceIDHeader},
		ExposeHeaders: []string{
			"Content-Length",
			middleware.AccessTokenHeader,
			middleware.RefreshTokenHeader,
			middleware.SessionExpiredHeader,
			middleware.TraceIDHeader,
		},
		AllowCredentials: cfg.CORSOrigin != "*",
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, cfg, enrollments, admin, metricsHandler, refresh)
	return r
}

func StartServer(lc fx.Lifecycle, cfg config.Config, log *slog.Logger, engine *gin.Engine) {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.Info("starting HTTP server", slog.String("addr", srv.Addr), slog.String("env", cfg.Env))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("HTTP server stopped", slog.Any("error", err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("stopping HTTP server")
			return srv.Shutdown(ctx)
		},
	})
}
