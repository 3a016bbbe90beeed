package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"servicehub/config"
	"servicehub/cron"
	"servicehub/database"
	auditRepo "servicehub/database/repository/audit"
	bookingRepo "servicehub/database/repository/booking"
	providerRepo "servicehub/database/repository/provider"
	"servicehub/handlers"
	"servicehub/middleware"
	"servicehub/routes"
	"servicehub/services/availability"
	"servicehub/services/dispatch"
	"servicehub/services/matching"
	"servicehub/services/metrics"
	"servicehub/services/notification"
	"servicehub/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/juju/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	defer func() { _ = logger.Sync() }()

	if err := database.InitDB(); err != nil {
		logger.Fatal("main: failed to connect to MongoDB", zap.Error(err))
	}
	auditDB, err := database.InitAuditDB(config.AppConfig.AuditDriver, config.AppConfig.AuditDSN)
	if err != nil {
		logger.Fatal("main: failed to open audit database", zap.Error(err))
	}
	if err := auditRepo.AutoMigrate(auditDB); err != nil {
		logger.Fatal("main: failed to migrate audit database", zap.Error(err))
	}
	if err := utils.InitEvents(); err != nil {
		logger.Fatal("main: failed to connect to Redis", zap.Error(err))
	}

	// repositories.
	db := database.Database()
	bookingStore := bookingRepo.NewMongoBookingStore(db)
	if err := bookingStore.EnsureIndexes(context.Background()); err != nil {
		logger.Fatal("main: failed to create booking indexes", zap.Error(err))
	}
	directory := providerRepo.NewMongoDirectory(db, logger)
	archive := auditRepo.NewGormArchive(auditDB)

	// services.
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	resolver := availability.NewResolver(availability.SplitOvernight, logger)
	filter := matching.NewCandidateFilter(resolver, matching.Haversine, logger)
	ranker := matching.NewRanker(matching.Weights{
		Rating:     config.AppConfig.RankRatingWeight,
		Distance:   config.AppConfig.RankDistanceWeight,
		Completion: config.AppConfig.RankCompletionWeight,
		Acceptance: config.AppConfig.RankAcceptanceWeight,
	})

	queue := asynq.NewClient(cron.RedisOpt())
	defer queue.Close()

	coordinator, err := dispatch.NewCoordinator(dispatch.Deps{
		Store:     bookingStore,
		Directory: directory,
		Filter:    filter,
		Ranker:    ranker,
		Notifier:  offerNotifier(directory, logger),
		Events:    dispatch.NewRedisEventPublisher(utils.EventsClient, utils.BookingEventsChannel),
		Retry:     cron.NewRetryScheduler(queue),
		Archive:   archive,
		Metrics:   collector,
		Clock:     clock.WallClock,
		Logger:    logger,
	}, dispatch.Settings{
		OfferWindow:      config.AppConfig.OfferWindow,
		Budget:           config.AppConfig.DispatchBudget,
		Concurrency:      config.AppConfig.DispatchConcurrency,
		RetryBackoff:     config.AppConfig.RetryBackoff,
		RetryMaxAttempts: config.AppConfig.RetryMaxAttempts,
		SearchRadiusKm:   config.AppConfig.SearchRadiusKm,
	})
	if err != nil {
		logger.Fatal("main: failed to initialize dispatch coordinator", zap.Error(err))
	}

	worker := cron.InitRetryWorker(coordinator)

	healthCtx, stopHealth := context.WithCancel(context.Background())
	defer stopHealth()
	utils.StartHealthMonitor(healthCtx, []*redis.Client{utils.EventsClient}, database.MongoClient, auditDB)

	// Create the Gin router.
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(utils.ErrorHandler())
	router.Use(middleware.RequestLogger(logger))

	dispatchHandler := handlers.NewDispatchHandler(coordinator, logger)
	handlerBundle := &handlers.HandlerBundle{
		RequestMatchHandler:  dispatchHandler.RequestMatchHandler,
		RespondOfferHandler:  dispatchHandler.RespondOfferHandler,
		CancelBookingHandler: dispatchHandler.CancelBookingHandler,
		SignalBookingHandler: dispatchHandler.SignalBookingHandler,
		GetBookingHandler:    dispatchHandler.GetBookingHandler,

		HealthHandler:  handlers.HealthHandler,
		MetricsHandler: gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
	}
	limiter := middleware.RateLimitMiddleware(config.AppConfig.MaxRequestsPerMin, logger)
	routes.RegisterRoutes(router, handlerBundle, limiter, config.AppConfig.OpsAPIToken)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}
	worker.Shutdown()
	coordinator.Wait()
	if err := database.MongoClient.Disconnect(ctx); err != nil {
		logger.Warn("main: mongo disconnect failed", zap.Error(err))
	}

	logger.Sugar().Info("main: server stopped gracefully")
}

// offerNotifier pushes offers over FCM when credentials are configured and
// falls back to logging them.
func offerNotifier(directory providerRepo.Directory, logger *zap.Logger) notification.OfferNotifier {
	path := config.AppConfig.FirebaseCredentials
	if path == "" {
		logger.Warn("main: FIREBASE_CREDENTIALS not set, offers will only be logged")
		return notification.LogNotifier{Logger: logger}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := utils.NewFCMClient(ctx, path)
	if err != nil {
		logger.Error("main: firebase unavailable, offers will only be logged", zap.Error(err))
		return notification.LogNotifier{Logger: logger}
	}
	notifier, err := notification.NewFCMOfferNotifier(client, directory, logger)
	if err != nil {
		logger.Fatal("main: failed to initialize offer notifier", zap.Error(err))
	}
	return notifier
}
