// Package app assembles the HTTP server from configuration and connections.
package app

import (
	"context"
	"fmt"
	"time"

	"healthtrack/internal/config"
	"healthtrack/internal/middleware"
	"healthtrack/internal/modules/auth"
	"healthtrack/internal/pkg/jwt"
	"healthtrack/internal/pkg/metrics"
	"healthtrack/internal/pkg/validator"
	"healthtrack/internal/ratelimit"
	"healthtrack/internal/repository"
	"healthtrack/internal/revocation"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	Version = "1.0.0"

	registerWindow  = time.Hour
	registerMax     = 3
	globalWindow    = 15 * time.Minute
	globalMax       = 100
	rateLimitPrefix = "healthtrack:ratelimit:"
)

type App struct {
	Router  *gin.Engine
	Metrics *metrics.Metrics
	// Sweeper is nil when the revocation backend expires records itself.
	Sweeper *revocation.Sweeper

	started time.Time
	stop    context.CancelFunc
}

type Options struct {
	Logger  *logrus.Logger
	Metrics *metrics.Metrics
	// GlobalLimit overrides the per-IP limit on all /api routes.
	GlobalLimit *ratelimit.Config
}

// New wires stores, limiters and routes. rdb may be nil when no backend uses redis.
func New(cfg *config.AuthRuntimeConfig, db *gorm.DB, rdb redis.UniversalClient, opts Options) (*App, error) {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	if cfg.NeedsRedis() && rdb == nil {
		return nil, fmt.Errorf("redis backend selected but no redis client given")
	}
	if err := validator.RegisterGin(); err != nil {
		return nil, err
	}

	tokens, err := jwt.New(jwt.Config{
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.RefreshTokenSecret,
		CSRFSecret:    cfg.CSRFSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("token service: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{Metrics: m, started: time.Now(), stop: cancel}

	store := a.revocationStore(cfg, db, rdb, log)

	global := globalLimitConfig(opts.GlobalLimit)
	globalPolicy := middleware.RateLimitPolicy{
		Name:    "global",
		Limiter: newLimiter(ctx, cfg, rdb, "global", global, false),
		Message: fmt.Sprintf("Too many requests from this IP, please try again after %s", minutes(global.Window)),
	}
	loginPolicy := middleware.RateLimitPolicy{
		Name:    "login",
		Limiter: newLimiter(ctx, cfg, rdb, "login", ratelimit.Config{Max: cfg.MaxLoginAttempts, Window: cfg.LoginWindow}, true),
		Message: fmt.Sprintf("Too many login attempts, please try again after %s", minutes(cfg.LoginWindow)),
	}
	registerPolicy := middleware.RateLimitPolicy{
		Name:    "register",
		Limiter: newLimiter(ctx, cfg, rdb, "register", ratelimit.Config{Max: registerMax, Window: registerWindow}, false),
		Message: "Too many registration attempts, please try again after 1 hour",
	}

	users := repository.NewUserRepository(db)
	service := auth.NewService(users, tokens, store, auth.Options{
		RevokeRefreshOnRotate: cfg.RefreshRevokeOnRotate,
		Metrics:               m,
		Logger:                log,
	})
	handler := auth.NewHandler(service, auth.CookieConfig{
		Enabled:       cfg.CookieSessions(),
		Secure:        cfg.IsProduction(),
		AccessMaxAge:  cfg.AccessTokenTTL,
		RefreshMaxAge: cfg.RefreshCookieMaxAge(),
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		requestid.New(),
		middleware.RequestLogger(log, m),
		middleware.CORS(cfg.AllowedOrigins),
		gzip.Gzip(gzip.DefaultCompression),
		middleware.BodyLimit(middleware.DefaultBodyLimit),
	)

	r.GET("/", a.index)
	r.GET("/health", a.health)
	r.GET("/metrics", gin.WrapH(m.Handler()))

	api := r.Group("/api", middleware.RateLimit(globalPolicy, m, log))
	api.GET("/health", a.health)

	handler.RegisterRoutes(api.Group("/auth"), auth.Guards{
		Authenticate:  middleware.Authenticate(tokens, store, log),
		Logout:        middleware.AuthenticateLogout(tokens, store, log),
		CSRF:          middleware.CSRFProtection(tokens),
		LoginLimit:    middleware.RateLimit(loginPolicy, m, log),
		RegisterLimit: middleware.RateLimit(registerPolicy, m, log),
	})

	r.NoRoute(notFound)

	a.Router = r
	return a, nil
}

// Close stops background work started by New.
func (a *App) Close(ctx context.Context) {
	a.stop()
	if a.Sweeper != nil {
		a.Sweeper.Stop(ctx)
	}
}

func (a *App) revocationStore(cfg *config.AuthRuntimeConfig, db *gorm.DB, rdb redis.UniversalClient, log *logrus.Logger) revocation.Store {
	var store revocation.Store
	switch cfg.RevocationBackend {
	case config.BackendRedis:
		store = revocation.NewRedisStore(rdb, revocation.Retention)
	default:
		repo := repository.NewRevokedTokenRepository(db, revocation.Retention)
		a.Sweeper = revocation.NewSweeper(repo, revocation.Retention, log.WithField("component", "revocation"))
		store = repo
	}

	if cfg.RevocationCacheSize > 0 {
		store = revocation.NewCachedStore(store, cfg.RevocationCacheSize, revocation.Retention)
	}
	return store
}

type cleaner interface {
	ratelimit.Limiter
	StartCleanup(ctx context.Context)
}

func newLimiter(ctx context.Context, cfg *config.AuthRuntimeConfig, rdb redis.UniversalClient, name string, limit ratelimit.Config, sliding bool) ratelimit.Limiter {
	if cfg.RateLimitBackend == config.BackendRedis {
		prefix := rateLimitPrefix + name + ":"
		if sliding {
			return ratelimit.NewRedisSlidingWindow(rdb, prefix, limit)
		}
		return ratelimit.NewRedisFixedWindow(rdb, prefix, limit)
	}

	var l cleaner
	if sliding {
		l = ratelimit.NewSlidingWindow(limit)
	} else {
		l = ratelimit.NewFixedWindow(limit)
	}
	l.StartCleanup(ctx)
	return l
}

func globalLimitConfig(override *ratelimit.Config) ratelimit.Config {
	if override != nil {
		return *override
	}
	return ratelimit.Config{Max: globalMax, Window: globalWindow}
}

func minutes(d time.Duration) string {
	n := int(d.Minutes())
	if n == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", n)
}
