package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/faultdesk/incident-service-api/internal/config"
	"github.com/faultdesk/incident-service-api/internal/handler"
	"github.com/faultdesk/incident-service-api/internal/handler/middleware"
	"github.com/faultdesk/incident-service-api/internal/ierr"
	"github.com/faultdesk/incident-service-api/internal/resolve"
	"github.com/faultdesk/incident-service-api/internal/service"
	"github.com/faultdesk/incident-service-api/internal/storage/memstorage"
	"github.com/faultdesk/incident-service-api/internal/storage/postgres"
	"github.com/faultdesk/incident-service-api/internal/storage/redis"
	"github.com/faultdesk/incident-service-api/internal/worker"
	"github.com/faultdesk/incident-service-api/pkg/logger"
)

func main() {
	configPath := flag.String("config", "./configs/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.NewZapLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	sugarLogger := appLogger.Sugar()

	sugarLogger.Info("Starting application...")
	sugarLogger.Infof("Log level set to: %s", cfg.Log.Level)

	appCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := postgres.NewPgxPool(appCtx, &cfg.Database, appLogger)
	if err != nil {
		sugarLogger.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer dbPool.Close()

	redisClient, err := redis.NewRedisClient(appCtx, &cfg.Redis, appLogger)
	if err != nil {
		sugarLogger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	incidentRepo := postgres.NewIncidentRepository(dbPool, appLogger)
	apiKeyRepo := postgres.NewAPIKeyRepository(dbPool, appLogger)
	userRepo := memstorage.NewUserRepositoryMock("")
	incidentCache := redis.NewIncidentCache(redisClient, appLogger)

	incidentService := service.NewIncidentService(incidentRepo, incidentCache, appLogger)
	apiKeyService := service.NewAPIKeyService(apiKeyRepo, appLogger)
	authService, err := service.NewAuthService(userRepo, &cfg.JWT, appLogger)
	if err != nil {
		sugarLogger.Fatalf("Failed to initialize auth service: %v", err)
	}

	healthHandler := handler.NewHealthHandler(dbPool, redisClient, appLogger)
	incidentHandler := handler.NewIncidentHandler(incidentService, appLogger)
	authHandler := handler.NewAuthHandler(authService, appLogger)
	apiKeyHandler := handler.NewAPIKeyHandler(apiKeyService, appLogger)

	authMiddleware := middleware.AuthMiddleware(authService, appLogger)
	apiKeyAuthMiddleware := middleware.APIKeyAuthMiddleware(apiKeyRepo, appLogger)

	// The resolver chain. Order is fixed: explicit registrations first,
	// the declarative status table second, binding failure mappers last.
	registry := resolve.NewRegistry().
		On(ierr.ErrInvalidCredentials, func(_ resolve.Request, _ error) *resolve.Resolution {
			return &resolve.Resolution{
				Status:  http.StatusUnauthorized,
				Code:    "INVALID_CREDENTIALS",
				Message: "Invalid username or password.",
			}
		}).
		On(ierr.ErrAPIKeyNotFound, func(_ resolve.Request, _ error) *resolve.Resolution {
			return &resolve.Resolution{
				Status:  http.StatusForbidden,
				Code:    "API_KEY_REJECTED",
				Message: "Invalid or disabled API key.",
			}
		}).
		On(ierr.ErrInvalidTransition, func(_ resolve.Request, err error) *resolve.Resolution {
			return &resolve.Resolution{
				Status:  http.StatusConflict,
				Code:    "INVALID_TRANSITION",
				Message: err.Error(),
			}
		})

	statusMap := resolve.NewStatusMap().
		Map(ierr.ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR", "").
		Map(ierr.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required or failed.").
		Map(ierr.ErrInvalidToken, http.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required or failed.").
		Map(ierr.ErrTokenInvalidClaims, http.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required or failed.").
		Map(ierr.ErrForbidden, http.StatusForbidden, "FORBIDDEN", "Access denied.").
		Map(ierr.ErrIncidentNotFound, http.StatusNotFound, "NOT_FOUND", "The requested incident was not found.").
		Map(ierr.ErrUserNotFound, http.StatusNotFound, "NOT_FOUND", "The requested resource was not found.").
		Map(ierr.ErrNotFound, http.StatusNotFound, "NOT_FOUND", "The requested resource was not found.").
		Map(ierr.ErrConflict, http.StatusConflict, "CONFLICT", "").
		Map(ierr.ErrUpdateFailed, http.StatusInternalServerError, "UPDATE_FAILED", "Resource update failed.")

	chain := resolve.NewChain(appLogger, registry, statusMap, resolve.NewFramework())
	fallback := resolve.NewFallbackRenderer(cfg.Errors.Sanitize)
	resolveMetrics := resolve.NewMetrics(prometheus.DefaultRegisterer)
	dispatchMiddleware := middleware.Dispatch(chain, fallback, resolveMetrics, appLogger)

	router := gin.New()
	router.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))
	router.Use(dispatchMiddleware)

	corsConfig := cors.Config{
		AllowOrigins: []string{"http://localhost:3000"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-API-Key",
		},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authRoutes := router.Group("/api/v1/auth")
	{
		authRoutes.POST("/login", authHandler.Login)
	}

	apiV1 := router.Group("/api/v1")
	{
		incidentRoutes := apiV1.Group("/incidents")
		{
			incidentRoutes.POST("/report", apiKeyAuthMiddleware, incidentHandler.Report)

			incidentRoutes.Use(authMiddleware)

			incidentRoutes.POST("", incidentHandler.Create)
			incidentRoutes.GET("", incidentHandler.List)
			incidentRoutes.GET("/summary", incidentHandler.Summary)
			incidentRoutes.GET("/:id", incidentHandler.GetByID)
			incidentRoutes.PATCH("/:id/status", incidentHandler.UpdateStatus)
		}
		apiKeyRoutes := apiV1.Group("/apikeys")
		apiKeyRoutes.Use(authMiddleware)
		{
			apiKeyRoutes.POST("", apiKeyHandler.Create)
			apiKeyRoutes.GET("", apiKeyHandler.List)
			apiKeyRoutes.DELETE("/:id", apiKeyHandler.Revoke)
		}
	}

	g, groupCtx := errgroup.WithContext(appCtx)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g.Go(func() error {
		sugarLogger.Infof("HTTP server listening on port %s", cfg.Server.Port)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugarLogger.Errorf("HTTP server ListenAndServe error: %v", err)
			return fmt.Errorf("http server failed: %w", err)
		}
		sugarLogger.Info("HTTP server stopped listening.")
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		sugarLogger.Info("Shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownPeriod)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			sugarLogger.Errorf("HTTP server graceful shutdown failed: %v", err)
			return fmt.Errorf("http server shutdown error: %w", err)
		}
		sugarLogger.Info("HTTP server shutdown complete.")
		return nil
	})

	g.Go(func() error {
		if err := worker.RunWorkers(groupCtx, cfg, incidentService, appLogger); err != nil {
			sugarLogger.Error("Asynq worker failed", zap.Error(err))
			return fmt.Errorf("asynq worker error: %w", err)
		}
		sugarLogger.Info("Asynq workers finished gracefully.")
		return nil
	})

	sugarLogger.Info("Application started. Waiting for interrupt signal (Ctrl+C) or component error...")

	waitErr := g.Wait()

	sugarLogger.Info("Shutdown sequence finished.")

	if waitErr != nil {
		if errors.Is(waitErr, context.Canceled) {
			sugarLogger.Info("Shutdown reason: Context canceled (likely due to OS signal).")
		} else if errors.Is(waitErr, http.ErrServerClosed) {
			sugarLogger.Info("Shutdown reason: HTTP server closed normally.")
		} else {
			sugarLogger.Errorf("Application shutdown finished with unexpected error: %v", waitErr)
		}
	} else {
		sugarLogger.Info("Application shutdown successfully (all components finished without errors).")
	}

	sugarLogger.Info("Application exiting now.")
}
