package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/changepassword/internal/admin"
	"github.com/geocoder89/changepassword/internal/auth"
	"github.com/geocoder89/changepassword/internal/config"
	"github.com/geocoder89/changepassword/internal/domain/user"
	"github.com/geocoder89/changepassword/internal/http/handlers"
	"github.com/geocoder89/changepassword/internal/http/middlewares"
	"github.com/geocoder89/changepassword/internal/observability"
	"github.com/geocoder89/changepassword/internal/useradmin"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// UserStore is everything the HTTP surface needs from the user store.
type UserStore interface {
	useradmin.UserRepo
	GetByUsername(ctx context.Context, username string) (user.User, error)
}

type Deps struct {
	Users   UserStore
	Flashes admin.FlashStore
	Tokens  *auth.Manager

	// optional
	Prom *observability.Prom
	Ping func(ctx context.Context) error
}

func NewRouter(log *slog.Logger, cfg config.Config, deps Deps) (*gin.Engine, error) {
	if cfg.Env != "dev" && gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	if deps.Flashes == nil {
		deps.Flashes = admin.NewMemoryFlashStore(5 * time.Minute)
	}

	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	if cfg.OTelEnabled {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(1 << 20))
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}

	// health
	ping := func() error {
		if deps.Ping == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return deps.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	// auth
	loginLimiter := middlewares.NewRateLimiter(10, time.Minute)
	authHandler := handlers.NewAuthHandler(deps.Users, deps.Tokens, log)
	r.POST("/auth/login",
		middlewares.RequireJSON(),
		loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP),
		authHandler.Login,
	)

	// admin views
	registry := admin.NewRegistry()

	var opts []useradmin.Option
	if deps.Prom != nil {
		opts = append(opts, useradmin.WithOpsRecorder(deps.Prom))
	}

	_, err := useradmin.Register(registry, useradmin.PluginConfig{
		Category: cfg.AdminCategory,
		URL:      cfg.AdminURL,
		PageSize: cfg.PageSize,
	}, deps.Users, deps.Flashes, log, opts...)
	if err != nil {
		return nil, err
	}

	authMW := middlewares.NewAuthMiddleware(deps.Tokens)

	adminGroup := r.Group("/admin")
	adminGroup.Use(authMW.RequireAuth(), middlewares.RequireJSON())
	registry.Mount(adminGroup)

	if deps.Prom != nil {
		adminGroup.GET("/metrics", authMW.RequireRole(user.RoleAdmin), gin.WrapH(deps.Prom.Handler()))
	}

	return r, nil
}
