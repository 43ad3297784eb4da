package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"retail-service/internal/backend"
	"retail-service/internal/diagnostics"
	"retail-service/internal/handler"
	mid "retail-service/internal/middleware"
	"retail-service/internal/service"
	"retail-service/pkg/config"
	"retail-service/pkg/jwtutil"
	"retail-service/pkg/logger"
	"retail-service/prometheus"
)

func main() {
	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		// Can't use structured logger yet since it's not initialized
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize JWT utility
	jwtutil.Initialize(&appConfig.JWT)

	// `retail-service token <name> [role]` prints an identity token for a staff member
	if len(os.Args) > 1 && os.Args[1] == "token" {
		os.Exit(issueToken(os.Args[2:]))
	}

	// Initialize logger
	log := logger.InitLogger(appConfig)
	defer log.Sync()

	log.Info("Starting retail-service", appConfig.LogConfig()...)

	// Initialize Prometheus metrics
	prometheus.InitMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Pick the backend once for the whole process
	diag := diagnostics.NewBus(20, log)
	selection, err := backend.Select(ctx, appConfig, diag, log)
	if err != nil {
		log.Fatal("Failed to open a backend", zap.Error(err))
	}
	defer selection.Close()

	info := selection.Info()
	log.Info("Backend selected",
		zap.String("kind", string(info.Kind)),
		zap.String("status", string(info.Status)))

	syncService := service.New(selection.Backend, diag, log, service.Options{
		StrictTransitions: appConfig.Sync.StrictTransitions,
		DefaultCashier:    appConfig.Sync.DefaultCashier,
	})
	defer syncService.Close()

	kitchenService := service.NewKitchenService(selection.Backend, diag, log, service.KitchenOptions{
		Limit:             appConfig.Sync.KitchenFeedLimit,
		StrictTransitions: appConfig.Sync.StrictTransitions,
	})
	defer kitchenService.Close()

	untrack := syncService.TrackStock(ctx)
	defer untrack()

	// Initialize Echo instance
	e := echo.New()
	e.HideBanner = true
	// open streams end when the process is asked to stop
	e.Server.BaseContext = func(net.Listener) context.Context { return ctx }

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(mid.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(mid.MetricsMiddleware)
	e.Use(mid.IdentityMiddleware)

	// Metrics endpoint
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	handler.New(syncService, kitchenService, info, diag).Register(e)

	// Start server
	port := appConfig.Server.Port
	go func() {
		log.Info("Starting server", zap.String("port", port))
		if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
}

func issueToken(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: retail-service token <name> [role]")
		return 2
	}
	role := ""
	if len(args) > 1 {
		role = args[1]
	}
	token, err := jwtutil.GenerateToken(args[0], role)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to generate token:", err)
		return 1
	}
	fmt.Println(token)
	return 0
}
