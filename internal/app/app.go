// Package app assembles teambot from its configuration: storage, the
// application service, Telegram routing, rate limiting and metrics.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/teambot/core/bootstrap"
	"github.com/m3rciful/teambot/core/buildinfo"
	coreconfig "github.com/m3rciful/teambot/core/config"
	"github.com/m3rciful/teambot/core/logger"
	coremetrics "github.com/m3rciful/teambot/core/metrics"
	tg "github.com/m3rciful/teambot/core/telegram"
	"github.com/m3rciful/teambot/core/telegram/middleware"
	"github.com/m3rciful/teambot/core/telegram/router"
	tgsender "github.com/m3rciful/teambot/core/telegram/sender"
	"github.com/m3rciful/teambot/internal/application"
	"github.com/m3rciful/teambot/internal/bot"
	"github.com/m3rciful/teambot/internal/config"
	"github.com/m3rciful/teambot/internal/metrics"
	"github.com/m3rciful/teambot/internal/storage/memory"
	"github.com/m3rciful/teambot/internal/storage/postgres"
)

const component = "app"

// App owns every long-lived resource of the process.
type App struct {
	cfg        *config.Config
	infra      *bootstrap.Result
	redis      *redis.Client
	limiter    middleware.Limiter
	dispatcher *tgsender.Dispatcher
	tgMetrics  *coremetrics.TelegramCollector
	gatherer   prometheus.Gatherer
	metricsSrv *coremetrics.Server
	registry   *tg.Registry
	bot        *bot.Bot
}

// Options overrides infrastructure for tests.
type Options struct {
	Bootstrap bootstrap.Options
	// Repository replaces the store selected by configuration.
	Repository application.Repository
}

// New bootstraps infrastructure and wires the bot. Close releases what New
// acquired.
func New(ctx context.Context, cfg *config.Config, opts Options) (_ *App, err error) {
	bopts := opts.Bootstrap
	bopts.Config = cfg.CoreConfig()
	if cfg.UsesDatabase() && opts.Repository == nil {
		bopts.Database = &cfg.Database
	}
	infra, err := bootstrap.Run(ctx, bopts)
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, infra: infra, registry: tg.NewRegistry()}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	repo := opts.Repository
	switch {
	case repo != nil:
	case infra.DB != nil:
		repo = postgres.NewStore(infra.DB)
	default:
		repo = memory.NewStore()
	}

	a.tgMetrics = coremetrics.NewTelegramCollector()
	observer := metrics.NewCollector()
	reg, err := coremetrics.NewRegistry(a.tgMetrics, observer, buildinfo.Collector())
	if err != nil {
		return nil, fmt.Errorf("app: metrics registry: %w", err)
	}
	a.gatherer = reg

	a.limiter = a.buildLimiter(cfg.CoreConfig())
	a.dispatcher = tgsender.NewDispatcher(tgsender.Options{
		MaxRetries: 3,
		OnResult:   a.tgMetrics.SendResult,
	})

	svc := application.NewService(repo, application.Options{Observer: observer})
	a.bot, err = bot.New(bot.Options{
		Service:      svc,
		Dispatcher:   a.dispatcher,
		ReviewChatID: cfg.Review.GroupID,
		InviteLink:   cfg.Review.InviteLink,
	})
	if err != nil {
		return nil, err
	}
	if err := a.bot.Register(a.registry); err != nil {
		return nil, fmt.Errorf("app: register handlers: %w", err)
	}
	a.registry.SetCallbackNotFound(a.bot.UnknownCallback())
	a.registry.SetTextFallback(a.bot.UnknownText())

	logger.Info(ctx, component, "wired",
		slog.String("storage", cfg.Storage.Driver),
		slog.String("rate_limit", cfg.RateLimit.Backend),
		slog.Bool("metrics", cfg.Metrics.Listen != ""),
	)
	return a, nil
}

func (a *App) buildLimiter(cfg *coreconfig.Config) middleware.Limiter {
	interval := time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond
	if interval <= 0 {
		return nil
	}
	if cfg.RateLimit.Backend != coreconfig.RateLimitRedis {
		return middleware.NewMemoryLimiter(interval)
	}
	a.redis = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return middleware.NewRedisLimiter(a.redis, cfg.Redis.Prefix, interval, 1)
}

// TelegramRunOptions returns the routes, middlewares and lifecycle hooks.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	core := a.cfg.CoreConfig()
	var routes []tg.Route
	routes = append(routes, router.CommandRoutes(a.registry, router.CommandRouteOptions{
		AdminID:       core.Telegram.AdminID,
		OnAdminReject: a.bot.AdminOnly(),
		Recorder:      a.tgMetrics,
	})...)
	routes = append(routes, router.CallbackRoute(a.registry, router.CallbackOptions{
		NotFound: a.bot.UnknownCallback(),
		Recorder: a.tgMetrics,
	}))
	routes = append(routes, router.TextRoutes(a.registry, router.TextOptions{
		Text:            a.bot.Text(),
		UnknownDocument: a.bot.UnknownDocument(),
		Recorder:        a.tgMetrics,
	})...)

	return tg.RunOptions{
		Config:     core,
		Registry:   a.registry,
		Dispatcher: a.dispatcher,
		Middlewares: tg.DefaultMiddlewares(tg.ChainOptions{
			Limiter:   a.limiter,
			Exclude:   core.RateLimit.ExcludeUpdates,
			Recorder:  a.tgMetrics,
			OnLimited: a.bot.RateLimited(),
		}),
		Routes:  routes,
		OnStart: a.start,
		OnStop:  a.stop,
	}, nil
}

func (a *App) start(ctx context.Context, _ tg.Runtime) error {
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			// the limiter fails open while redis is unreachable
			logger.Warn(ctx, component, "redis.ping",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
	}
	srv, err := coremetrics.Listen(a.cfg.Metrics, a.gatherer)
	if err != nil {
		return fmt.Errorf("app: metrics listener: %w", err)
	}
	if srv != nil {
		a.metricsSrv = srv
		go func() { _ = srv.Serve(ctx) }()
	}
	return nil
}

func (a *App) stop(ctx context.Context, _ tg.Runtime) error {
	if a.metricsSrv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return a.metricsSrv.Shutdown(ctx)
}

// Close drains queued notifications and releases connections.
func (a *App) Close() error {
	if a.dispatcher != nil {
		a.dispatcher.Close()
		logger.Info(context.Background(), component, "dispatcher.closed",
			slog.Uint64("failed_sends", a.dispatcher.Failed()),
		)
	}
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, a.infra.Close())
	return errors.Join(errs...)
}
