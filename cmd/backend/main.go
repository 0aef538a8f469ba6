package main

import (
	"NYCU-SDC/survey-backend/internal"
	"NYCU-SDC/survey-backend/internal/auth"
	"NYCU-SDC/survey-backend/internal/comment"
	"NYCU-SDC/survey-backend/internal/config"
	"NYCU-SDC/survey-backend/internal/cors"
	"NYCU-SDC/survey-backend/internal/file"
	"NYCU-SDC/survey-backend/internal/jwt"
	"NYCU-SDC/survey-backend/internal/storage"
	"NYCU-SDC/survey-backend/internal/survey"
	"NYCU-SDC/survey-backend/internal/survey/response"
	"NYCU-SDC/survey-backend/internal/survey/result"
	"NYCU-SDC/survey-backend/internal/thumbnail"
	"NYCU-SDC/survey-backend/internal/trace"
	"NYCU-SDC/survey-backend/internal/user"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	databaseutil "github.com/NYCU-SDC/summer/pkg/database"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/middleware"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.6.1"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

var AppName = "no-app-name"

var Version = "no-version"

var BuildTime = "no-build-time"

var CommitHash = "no-commit-hash"

var Environment = "no-env"

func main() {
	AppName = os.Getenv("APP_NAME")
	if AppName == "" {
		AppName = "survey-backend"
	}

	if BuildTime == "no-build-time" {
		now := time.Now()
		BuildTime = "not provided (now: " + now.Format(time.RFC3339) + ")"
	}

	Environment = os.Getenv("ENV")
	if Environment == "" {
		Environment = "no-env"
	}

	appMetadata := []zap.Field{
		zap.String("app_name", AppName),
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("commit_hash", CommitHash),
		zap.String("environment", Environment),
	}

	cfg, cfgLog := config.Load()
	err := cfg.Validate()
	if err != nil {
		switch {
		case errors.Is(err, config.ErrDatabaseURLRequired):
			title := "Database URL is required"
			message := "Please set the DATABASE_URL environment variable or provide a config file with the database_url key."
			message = EarlyApplicationFailed(title, message)
			log.Fatal(message)
		case errors.Is(err, config.ErrUnknownStorageType):
			title := "Unknown storage type"
			message := "Set STORAGE_TYPE (or storage.type in the config file) to one of: database, local, minio."
			message = EarlyApplicationFailed(title, message)
			log.Fatal(message)
		default:
			log.Fatalf("Failed to validate config: %v, exiting...", err)
		}
	}

	logger, err := initLogger(&cfg, appMetadata)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v, exiting...", err)
	}

	cfgLog.FlushToZap(logger)

	if cfg.Dev {
		logger.Warn("Running in development mode, make sure to disable it in production")
	}

	if cfg.Secret == config.DefaultSecret && !cfg.Debug {
		logger.Warn("Default secret detected in production environment, replace it with a secure random string")
		cfg.Secret = uuid.New().String()
	}

	logger.Info("Starting application...")

	logger.Info("Starting database migration...")

	err = databaseutil.MigrationUp(cfg.MigrationSource, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("Failed to run database migration", zap.Error(err))
	}

	dbPool, err := initDatabasePool(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to initialize database pool", zap.Error(err))
	}
	defer dbPool.Close()

	shutdown, err := initOpenTelemetry(AppName, Version, BuildTime, CommitHash, Environment, cfg.OtelCollectorUrl)
	if err != nil {
		logger.Fatal("Failed to initialize OpenTelemetry", zap.Error(err))
	}

	validator := internal.NewValidator()
	problemWriter := internal.NewProblemWriter()

	// ============================================
	// Service
	// ============================================

	fileService := file.NewService(logger, dbPool)
	userService := user.NewService(logger, dbPool)
	jwtService := jwt.NewService(logger, dbPool, cfg.Secret, cfg.AccessTokenExpiration, cfg.RefreshTokenExpiration)

	blobStorage, err := storage.New(context.Background(), logger, cfg.Storage, cfg.BaseURL, fileService)
	if err != nil {
		logger.Fatal("Failed to initialize blob storage", zap.Error(err))
	}

	thumbnailCache := initThumbnailCache(logger, cfg.RedisURL, cfg.ThumbnailCacheTTL)
	if thumbnailCache != nil {
		defer func() {
			_ = thumbnailCache.Close()
		}()
	}

	surveyService := survey.NewService(logger, dbPool, blobStorage, cfg.BaseURL, cfg.DefaultVotingPeriod, cfg.MaxImageSize)
	responseService := response.NewService(logger, dbPool, surveyService)
	resultService := result.NewService(logger, surveyService, responseService)
	commentService := comment.NewService(logger, dbPool, surveyService)
	var thumbnailService *thumbnail.Service
	if thumbnailCache != nil {
		thumbnailService = thumbnail.NewService(logger, thumbnailCache)
	} else {
		thumbnailService = thumbnail.NewService(logger, nil)
	}

	// ============================================
	// Handler
	// ============================================

	providers := auth.CreateAuthProviders(logger, cfg.BaseURL, cfg.GoogleOauth, cfg.GitHubOauth, cfg.TwitterOauth)
	authHandler := auth.NewHandler(logger, validator, problemWriter, userService, jwtService, jwtService, providers, cfg.BaseURL, cfg.Dev, cfg.AccessTokenExpiration, cfg.RefreshTokenExpiration)
	userHandler := user.NewHandler(logger, validator, problemWriter, userService)
	fileHandler := file.NewHandler(logger, validator, problemWriter, fileService)
	uploadHandler := storage.NewHandler(logger, problemWriter, cfg.Storage.LocalDir)
	surveyHandler := survey.NewHandler(logger, validator, problemWriter, surveyService, responseService, cfg.BaseURL)
	responseHandler := response.NewHandler(logger, validator, problemWriter, responseService)
	resultHandler := result.NewHandler(logger, problemWriter, resultService)
	commentHandler := comment.NewHandler(logger, validator, problemWriter, commentService)
	thumbnailHandler := thumbnail.NewHandler(logger, problemWriter, thumbnailService)

	// ============================================
	// Middleware
	// ============================================

	// Middleware Initialization
	traceMiddleware := trace.NewMiddleware(logger, cfg.Debug)
	corsMiddleware := cors.NewMiddleware(logger, cfg.AllowOrigins)
	jwtMiddleware := jwt.NewMiddleware(logger, validator, problemWriter, jwtService)

	// Basic Middleware (Tracing and Recovery)
	basicMiddleware := middleware.NewSet(traceMiddleware.RecoverMiddleware)
	basicMiddleware = basicMiddleware.Append(traceMiddleware.TraceMiddleware)

	// Auth Middleware
	authMiddleware := basicMiddleware.Append(jwtMiddleware.AuthenticateMiddleware)

	// Optional Auth Middleware, anonymous callers pass through without a user in context
	viewerMiddleware := basicMiddleware.Append(jwtMiddleware.OptionalAuthenticateMiddleware)

	// HTTP Server
	mux := http.NewServeMux()

	// Health check route
	mux.Handle("GET /api/healthz", basicMiddleware.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("OK"))
		if err != nil {
			logger.Error("Failed to write response", zap.Error(err))
		}
	}))

	// Internal Debug route
	if cfg.Dev {
		mux.Handle("POST /api/auth/login/internal", basicMiddleware.HandlerFunc(authHandler.InternalAPITokenLogin))
	}

	// ============================================
	// Basic Authentication routes
	// ============================================

	// OAuth2 Authentication Login
	// ----------------------
	mux.Handle("GET /api/auth/login/oauth/{provider}", basicMiddleware.HandlerFunc(authHandler.Oauth2Start))
	mux.Handle("GET /api/auth/login/oauth/{provider}/callback", basicMiddleware.HandlerFunc(authHandler.Callback))

	mux.Handle("GET /api/auth/logout", basicMiddleware.HandlerFunc(authHandler.Logout))
	mux.Handle("POST /api/auth/logout", basicMiddleware.HandlerFunc(authHandler.Logout))

	// JWT refresh
	// ----------------------
	mux.Handle("POST /api/auth/refresh", basicMiddleware.HandlerFunc(authHandler.RefreshToken))

	// User me
	// ----------------------
	mux.Handle("GET /api/users/me", authMiddleware.HandlerFunc(userHandler.GetMe))
	mux.Handle("GET /api/users/me/surveys", authMiddleware.HandlerFunc(surveyHandler.ListMineHandler))
	mux.Handle("GET /api/users/me/responses", authMiddleware.HandlerFunc(responseHandler.ListMineHandler))

	// ============================================
	// Survey routes
	// ============================================

	// Survey Management
	// ----------------------
	mux.Handle("POST /api/surveys", authMiddleware.HandlerFunc(surveyHandler.CreateHandler))
	mux.Handle("GET /api/surveys/{id}", viewerMiddleware.HandlerFunc(surveyHandler.GetHandler))

	// Response Management
	// ----------------------
	// --- (Update and delete are not allowed, one response per user)
	mux.Handle("POST /api/surveys/{id}/responses", authMiddleware.HandlerFunc(responseHandler.SubmitHandler))
	mux.Handle("POST /api/surveys/response", authMiddleware.HandlerFunc(responseHandler.SubmitHandler))
	mux.Handle("GET /api/surveys/{id}/responses/me", authMiddleware.HandlerFunc(responseHandler.GetMineHandler))

	// Results
	// ----------------------
	mux.Handle("GET /api/surveys/{id}/results", viewerMiddleware.HandlerFunc(resultHandler.GetHandler))
	mux.Handle("GET /api/surveys/{id}/results/export", authMiddleware.HandlerFunc(resultHandler.ExportHandler))

	// Comments
	// ----------------------
	mux.Handle("GET /api/surveys/{id}/comments", basicMiddleware.HandlerFunc(commentHandler.ListHandler))
	mux.Handle("POST /api/surveys/{id}/comments", authMiddleware.HandlerFunc(commentHandler.CreateHandler))
	mux.Handle("POST /api/comments", authMiddleware.HandlerFunc(commentHandler.CreateHandler))

	// Thumbnail
	// ----------------------
	mux.Handle("GET /api/thumbnail", basicMiddleware.HandlerFunc(thumbnailHandler.GetHandler))

	// ============================================
	// File routes
	// ============================================

	mux.Handle("GET /api/files/{id}", basicMiddleware.HandlerFunc(fileHandler.Download))
	mux.Handle("GET /api/files/{id}/info", authMiddleware.HandlerFunc(fileHandler.GetByID))

	if cfg.Storage.Type == config.StorageTypeLocal {
		mux.Handle("GET /api/uploads/{name}", basicMiddleware.HandlerFunc(uploadHandler.Serve))
	}

	// End of API routes
	// ============================================
	// handle interrupt signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// CORS and Entry Point
	entrypoint := corsMiddleware.HandlerFunc(mux.ServeHTTP)

	srv := &http.Server{
		Addr:              cfg.Host + ":" + cfg.Port,
		Handler:           entrypoint,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting listening request", zap.String("host", cfg.Host), zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Fail to start server with error", zap.Error(err))
		}
	}()

	// wait for context close
	<-ctx.Done()
	logger.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	otelCtx, otelCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer otelCancel()
	if err := shutdown(otelCtx); err != nil {
		logger.Error("Forced to shutdown OpenTelemetry", zap.Error(err))
	}

	logger.Info("Successfully shutdown")
}

func initLogger(cfg *config.Config, appMetadata []zap.Field) (*zap.Logger, error) {
	var err error
	var logger *zap.Logger
	if cfg.Debug {
		logger, err = logutil.ZapDevelopmentConfig().Build()
		if err != nil {
			return nil, err
		}
		logger.Info("Running in debug mode", appMetadata...)
	} else {
		logger, err = logutil.ZapProductionConfig().Build()
		if err != nil {
			return nil, err
		}

		logger = logger.With(appMetadata...)
	}
	defer func() {
		err := logger.Sync()
		if err != nil {
			zap.S().Errorw("Failed to sync logger", zap.Error(err))
		}
	}()

	return logger, nil
}

func initDatabasePool(databaseURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	dbPool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, err
	}
	return dbPool, nil
}

// initThumbnailCache returns nil when Redis is not configured or unreachable; thumbnails are then rendered per request
func initThumbnailCache(logger *zap.Logger, redisURL string, ttl time.Duration) *thumbnail.RedisCache {
	if redisURL == "" {
		logger.Info("REDIS_URL not set, thumbnail cache disabled")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cache, err := thumbnail.NewRedisCache(ctx, redisURL, ttl)
	if err != nil {
		logger.Warn("Failed to connect to Redis, thumbnail cache disabled", zap.Error(err))
		return nil
	}

	logger.Info("Thumbnail cache enabled", zap.Duration("ttl", ttl))
	return cache
}

func initOpenTelemetry(appName, version, buildTime, commitHash, environment, otelCollectorUrl string) (func(context.Context) error, error) {
	ctx := context.Background()

	serviceName := semconv.ServiceNameKey.String(appName)
	serviceVersion := semconv.ServiceVersionKey.String(version)
	serviceNamespace := semconv.ServiceNamespaceKey.String("survey")
	serviceBuildTime := attribute.String("service.build_time", buildTime)
	serviceCommitHash := attribute.String("service.commit_hash", commitHash)
	serviceEnvironment := semconv.DeploymentEnvironmentKey.String(environment)

	res, err := resource.New(ctx,
		resource.WithAttributes(
			serviceName,
			serviceVersion,
			serviceNamespace,
			serviceBuildTime,
			serviceCommitHash,
			serviceEnvironment,
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	options := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}

	if otelCollectorUrl != "" {
		conn, err := initGrpcConn(otelCollectorUrl)
		if err != nil {
			return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
		}

		traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}

		bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
		options = append(options, sdktrace.WithSpanProcessor(bsp))
	}

	tracerProvider := sdktrace.NewTracerProvider(options...)

	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tracerProvider.Shutdown, nil
}

func initGrpcConn(target string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	return conn, nil
}

func EarlyApplicationFailed(title, action string) string {
	result := `
-----------------------------------------
Application Failed to Start
-----------------------------------------

# What's wrong?
%s

# How to fix it?
%s

`

	result = fmt.Sprintf(result, title, action)
	return result
}
