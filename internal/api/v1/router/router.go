package router

import (
	"context"
	"net/http"
	"strings"
	"time"

	"app/internal/api/v1/handler"
	"app/internal/config"
	"app/internal/middleware"
	"app/internal/pubsub"
	"app/internal/repository"
	"app/internal/service"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// New wires the full application and returns the root handler plus the
// database pool for shutdown.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (http.Handler, *pgxpool.Pool, error) {
	logger.Info().Str("environment", cfg.Environment).Msg("Router initialized")

	// Open DB connection (connection pooling)
	dsn := cfg.DBConnectionString
	// Local development runs against a non-TLS Postgres; production connection
	// strings carry their own SSL settings.
	if cfg.Environment == "development" && !strings.Contains(dsn, "sslmode") {
		dsn = appendDSNParam(dsn, "sslmode=disable")
	}
	// Transaction poolers like pgbouncer break server-side prepared
	// statements, so use the simple protocol outside development.
	if cfg.Environment != "development" && !strings.Contains(dsn, "default_query_exec_mode") {
		dsn = appendDSNParam(dsn, "default_query_exec_mode=simple_protocol")
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to parse DB connection string")
		return nil, nil, err
	}
	poolCfg.MaxConns = 25
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open DB connection")
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to ping DB")
		return nil, nil, err
	}
	logger.Info().Msg("Database connection successful")

	// Initialize S3 client
	s3Config, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
		awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
	)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load S3 config")
		return nil, nil, err
	}
	s3Client := s3.NewFromConfig(s3Config, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3URL)
		o.UsePathStyle = true
	})

	// Initialize validator
	validate := validator.New(validator.WithRequiredStructEnabled())

	// Initialize Pub/Sub publisher
	pubSubPublisher, err := pubsub.NewPublisher(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create Pub/Sub publisher")
		return nil, nil, err
	}

	// Initialize Gemini client
	geminiClient := service.NewGeminiClient(
		cfg.GeminiBaseURL,
		cfg.GeminiAPIKey,
		cfg.GeminiModel,
		time.Duration(cfg.GeminiTimeoutSec)*time.Second,
		logger,
	)

	// Initialize repositories & services & handlers
	profileRepo := repository.NewProfileRepo(pool)
	limitRepo := repository.NewLimitRepo(pool)
	usageRepo := repository.NewUsageRepo(pool)
	evidenceRepo := repository.NewEvidenceRepo(pool)
	journalRepo := repository.NewJournalRepo(pool)
	coachRepo := repository.NewCoachRepo(pool)
	communityRepo := repository.NewCommunityRepo(pool)

	quotaSvc := service.NewQuotaService(profileRepo, limitRepo, usageRepo, evidenceRepo, logger)
	profileSvc := service.NewProfileService(profileRepo, logger)
	journalSvc := service.NewJournalService(journalRepo, logger)
	evidenceSvc := service.NewEvidenceService(evidenceRepo, quotaSvc, s3Client, s3.NewPresignClient(s3Client), cfg.S3Bucket, pubSubPublisher, cfg.TranscriptionTopic, cfg.TranscriptionCallbackURL, logger)
	coachSvc := service.NewCoachService(coachRepo, quotaSvc, geminiClient, logger)
	communitySvc := service.NewCommunityService(communityRepo, logger)
	suggestionSvc := service.NewSuggestionService(geminiClient, logger)
	stripeSvc := service.NewStripeService(cfg, profileRepo, logger)

	profileHandler := handler.NewProfileHandler(profileSvc, quotaSvc, validate)
	journalHandler := handler.NewJournalHandler(journalSvc, validate)
	evidenceHandler := handler.NewEvidenceHandler(evidenceSvc, quotaSvc, validate)
	coachHandler := handler.NewCoachHandler(coachSvc, validate)
	communityHandler := handler.NewCommunityHandler(communitySvc, validate)
	suggestionHandler := handler.NewSuggestionHandler(suggestionSvc, validate)
	subscriptionHandler := handler.NewSubscriptionHandler(stripeSvc, validate)
	transcriptionHandler := handler.NewTranscriptionHandler(evidenceSvc, validate, logger)

	// Initialize middleware
	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret, logger)
	isLocalDev := cfg.PubSubEmulatorHost != ""
	pubsubAuthMiddleware := middleware.PubSubAuthMiddleware(isLocalDev, cfg.TranscriptionCallbackURL, cfg.PubSubPushServiceAccountEmail, logger)

	// Create ServeMux router with API v1 routes under /v1
	apiV1Mux := http.NewServeMux()
	profileHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	journalHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	evidenceHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	coachHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	communityHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	suggestionHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	subscriptionHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	transcriptionHandler.RegisterRoutes(apiV1Mux, pubsubAuthMiddleware)

	mux := http.NewServeMux()
	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Apply CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return middleware.LoggerMiddleware(logger)(c.Handler(mux)), pool, nil
}

// appendDSNParam adds a query parameter to either URL or key/value DSNs.
func appendDSNParam(dsn, param string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		separator := "?"
		if strings.Contains(dsn, "?") {
			separator = "&"
		}
		return dsn + separator + param
	}
	return dsn + " " + param
}

// removeDisableGzip is a workaround for S3 signature errors with some
// S3-compatible services.
// See: https://github.com/supabase/storage/issues/577
func removeDisableGzip() func(*awsmiddleware.Stack) error {
	return func(stack *awsmiddleware.Stack) error {
		if _, ok := stack.Finalize.Get("DisableAcceptEncodingGzip"); ok {
			_, err := stack.Finalize.Remove("DisableAcceptEncodingGzip")
			return err
		}
		return nil
	}
}
