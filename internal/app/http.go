package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/jpvillegas/taskmesh/internal/auth"
	"github.com/jpvillegas/taskmesh/internal/config"
	"github.com/jpvillegas/taskmesh/internal/delivery/http/v1"
	"github.com/jpvillegas/taskmesh/internal/identityclient"
	"github.com/jpvillegas/taskmesh/internal/models"
	identityrepo "github.com/jpvillegas/taskmesh/internal/repository/identity"
	taskrepo "github.com/jpvillegas/taskmesh/internal/repository/task"
	"github.com/jpvillegas/taskmesh/internal/services"
)

func MustListenAndServeTasksHTTP() {
	cfg := config.Global()

	client := identityclient.NewClient(
		globalLogger,
		cfg.Identity.BaseURL,
		cfg.Identity.RequestTimeout,
	)
	resolver := identityclient.NewResolver(globalLogger, client)
	taskService := services.NewTaskService(globalLogger, mustTaskRepository(), resolver)

	guard := auth.NewGuard(cfg.JWT.Issuer, []byte(cfg.JWT.SigningKey))
	router := newRouter()

	handler := v1.NewTaskHandler(globalLogger, taskService)
	handler.RegisterRoutes(
		router.Group("/api/v1"),
		v1.AuthMiddleware(globalLogger, guard),
	)

	serveHTTP(router, cfg.HTTP.TasksPort)
}

func MustListenAndServeIdentityHTTP() {
	cfg := config.Global()

	identityService := services.NewIdentityService(globalLogger, mustIdentityRepository())

	guard := auth.NewGuard(cfg.JWT.Issuer, []byte(cfg.JWT.SigningKey))
	router := newRouter()

	handler := v1.NewIdentityHandler(globalLogger, identityService)
	handler.RegisterRoutes(
		router.Group("/api/v1"),
		v1.AuthMiddleware(globalLogger, guard),
		v1.RequireRole(globalLogger, models.RoleAdmin),
	)

	serveHTTP(router, cfg.HTTP.IdentityPort)
}

func MustListenAndServeAuthHTTP() {
	cfg := config.Global()

	validator := identityclient.NewClient(
		globalLogger,
		cfg.Identity.BaseURL,
		cfg.Identity.RequestTimeout,
	)
	minter := auth.NewMinter(
		cfg.JWT.Issuer,
		[]byte(cfg.JWT.SigningKey),
		cfg.JWT.AccessTokenTTL,
	)
	authService := services.NewAuthService(globalLogger, validator, minter)

	router := newRouter()

	handler := v1.NewAuthHandler(globalLogger, authService)
	handler.RegisterRoutes(router.Group("/api/v1"))

	serveHTTP(router, cfg.HTTP.AuthPort)
}

func newRouter() *gin.Engine {
	if config.Global().Env != config.EnvLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func mustTaskRepository() taskrepo.Repository {
	driver := config.Global().Repository.Driver
	switch driver {
	case config.RepositoryDriverPostgres:
		MustConnectPostgres()
		return taskrepo.NewPostgresRepository(globalLogger, globalPostgresPool)
	case config.RepositoryDriverInMemory:
		return taskrepo.NewInMemoryRepository()
	default:
		globalLogger.Error().
			Str("driver", driver).
			Msg("unknown repository driver")
		panic("unknown repository driver " + driver)
	}
}

func mustIdentityRepository() identityrepo.Repository {
	driver := config.Global().Repository.Driver
	switch driver {
	case config.RepositoryDriverPostgres:
		MustConnectPostgres()
		return identityrepo.NewPostgresRepository(globalLogger, globalPostgresPool)
	case config.RepositoryDriverInMemory:
		return identityrepo.NewInMemoryRepository()
	default:
		globalLogger.Error().
			Str("driver", driver).
			Msg("unknown repository driver")
		panic("unknown repository driver " + driver)
	}
}

func serveHTTP(router *gin.Engine, port string) {
	httpCfg := config.Global().HTTP

	server := &http.Server{
		Addr:    net.JoinHostPort(httpCfg.Host, port),
		Handler: router,
	}

	go func() {
		globalLogger.Info().
			Str("host", httpCfg.Host).
			Str("port", port).
			Msg("setting up http server")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			globalLogger.Error().
				Err(err).
				Msg("failed to listen and serve http")
			panic(err)
		}
	}()

	// Wait for the interrupt signal to gracefully
	// shut down the server.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	globalLogger.Info().
		Msg("shutting down http server")

	ctx, cancel := context.WithTimeout(context.Background(), httpCfg.ShutdownTimeout)
	defer cancel()

	err := server.Shutdown(ctx)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to shutdown http server")
		panic(err)
	}
	globalLogger.Info().Msg("shut down http server")
}
