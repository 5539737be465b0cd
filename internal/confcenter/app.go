// Package confcenter wires the configuration management service: store,
// business services, change notifier hub, HTTP routes and lifecycle.
package confcenter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/confcenter/internal/confcenter/biz"
	"github.com/kart-io/confcenter/internal/confcenter/handler"
	"github.com/kart-io/confcenter/internal/confcenter/notifier"
	"github.com/kart-io/confcenter/internal/confcenter/router"
	"github.com/kart-io/confcenter/internal/confcenter/store"
	"github.com/kart-io/confcenter/pkg/app"
	"github.com/kart-io/confcenter/pkg/component/database"
	"github.com/kart-io/confcenter/pkg/security/jwt"
)

const (
	appName        = "confcenter"
	appDescription = `Confcenter Configuration Management Service

Stores per-application, per-environment configuration, resolves values
through the application inheritance chain, versions and publishes them with
audit history and rollback, and pushes change notifications to connected
runtime clients.`
)

// NewApp creates a new application instance.
func NewApp() *app.App {
	opts := NewOptions()

	return app.NewApp(
		app.WithName(appName),
		app.WithDescription(appDescription),
		app.WithOptions(opts),
		app.WithRunFunc(func() error {
			return Run(opts)
		}),
	)
}

// Run runs the confcenter service with the given options.
func Run(opts *Options) error {
	// 1. Logger
	opts.Log.AddInitialField("service.name", appName)
	opts.Log.AddInitialField("service.version", app.GetVersion())
	if err := opts.Log.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting confcenter service...")

	// 2. Database
	dbClient, err := database.New(opts.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	factory := store.NewFactory(dbClient.DB())
	if err := factory.AutoMigrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	logger.Info("Database migration completed")

	// 3. Notifier hub
	hub, err := notifier.NewHub(notifier.NewRegistry())
	if err != nil {
		return fmt.Errorf("failed to initialize notifier hub: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	// 4. Business services. Change events invalidate the resolution cache
	// before fanning out to connected clients. Publishes, released-item edits
	// and deletes, app disabling and inheritance rewires all emit them.
	resolverSvc := biz.NewCachedResolver(biz.NewResolverService(factory))
	notifiers := biz.Notifiers{resolverSvc, hub}
	appSvc := biz.NewAppService(factory, notifiers)
	publishSvc := biz.NewPublishService(factory, notifiers)
	itemSvc := biz.NewItemService(factory, publishSvc, notifiers)
	logger.Info("Business layer initialized")

	// 5. JWT manager for the management plane
	jwtMgr, err := jwt.New(opts.JWT)
	if err != nil {
		return fmt.Errorf("failed to initialize jwt: %w", err)
	}

	// 6. HTTP routes
	gin.SetMode(opts.Server.Mode)
	engine := gin.New()
	router.Register(engine, jwtMgr, router.Handlers{
		App:     handler.NewAppHandler(appSvc),
		Config:  handler.NewConfigHandler(resolverSvc),
		Item:    handler.NewItemHandler(itemSvc),
		Publish: handler.NewPublishHandler(publishSvc),
		WS:      handler.NewWSHandler(hub, appSvc),
	})
	logger.Info("HTTP routes registered")

	// 7. Serve until signalled
	srv := &http.Server{
		Addr:        opts.Server.Addr,
		Handler:     engine,
		ReadTimeout: opts.Server.ReadTimeout,
		// WriteTimeout stays unset: it would sever long-lived websocket
		// sessions. Handler-level deadlines bound hub writes instead.
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("confcenter service is ready", "addr", opts.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Infow("shutting down", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), opts.Server.ShutdownTimeout)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
