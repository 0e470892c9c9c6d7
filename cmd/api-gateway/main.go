package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/competition-approval-api/api/swagger"
	"github.com/noah-isme/competition-approval-api/internal/handler"
	internalmiddleware "github.com/noah-isme/competition-approval-api/internal/middleware"
	"github.com/noah-isme/competition-approval-api/internal/repository"
	"github.com/noah-isme/competition-approval-api/internal/service"
	"github.com/noah-isme/competition-approval-api/pkg/cache"
	"github.com/noah-isme/competition-approval-api/pkg/config"
	"github.com/noah-isme/competition-approval-api/pkg/database"
	"github.com/noah-isme/competition-approval-api/pkg/events"
	"github.com/noah-isme/competition-approval-api/pkg/export"
	"github.com/noah-isme/competition-approval-api/pkg/jobs"
	"github.com/noah-isme/competition-approval-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/competition-approval-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/competition-approval-api/pkg/middleware/requestid"
)

// @title Competition Approval API
// @version 1.0.0
// @description Competition applications, award claims and teacher performance scoring.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(cfg.Database, logr); err != nil {
			logr.Sugar().Fatalw("migration failed", "error", err)
		}
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis, cfg.Cache)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	publisher, closePublisher := buildPublisher(ctx, cfg.Events, logr)
	defer closePublisher()

	app := buildApp(cfg, db, redisClient, publisher, logr)
	if err := app.rules.SeedDefaults(ctx); err != nil {
		logr.Sugar().Fatalw("seeding rule tables failed", "error", err)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(app.metrics))
	registerRoutes(r, cfg, app)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	logr.Sugar().Infow("server stopped")
}

// buildPublisher returns the workflow event sink and a func that flushes it.
func buildPublisher(ctx context.Context, cfg config.EventsConfig, logr *zap.Logger) (events.Publisher, func()) {
	if !cfg.Enabled || len(cfg.KafkaBrokers) == 0 {
		return events.NewLogPublisher(logr), func() {}
	}

	writer := events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
	kafkaPublisher := events.NewKafkaPublisher(writer)
	async := events.NewAsyncPublisher(kafkaPublisher, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
	})
	async.Start(ctx)

	return events.Logged(async, logr), func() {
		async.Stop()
		if err := kafkaPublisher.Close(); err != nil {
			logr.Sugar().Warnw("closing kafka writer", "error", err)
		}
	}
}

type application struct {
	logger   *zap.Logger
	metrics  *service.MetricsService
	users    *repository.UserRepository
	rules    *service.RuleService
	auth     *service.AuthService
	handlers handlers
}

type handlers struct {
	auth         *handler.AuthHandler
	applications *handler.ApplicationHandler
	awards       *handler.AwardHandler
	competitions *handler.CompetitionHandler
	profile      *handler.ProfileHandler
	stats        *handler.StatisticsHandler
	rules        *handler.RuleHandler
	users        *handler.UserHandler
	students     *handler.StudentHandler
	departments  *handler.DepartmentHandler
	certificates *handler.CertificateHandler
	metrics      *handler.MetricsHandler
}

func buildApp(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, publisher events.Publisher, logr *zap.Logger) *application {
	validate := validator.New()
	metrics := service.NewMetricsService()
	tx := database.NewTxManager(db)

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, "competition:")
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.RulesTTL, logr, cfg.Cache.Enabled && redisClient != nil)

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	competitionRepo := repository.NewCompetitionRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	awardRepo := repository.NewAwardRepository(db)
	ruleRepo := repository.NewRuleRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	editLogRepo := repository.NewEditLogRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)

	ledger := service.NewLedgerService(userRepo, metrics, logr)
	ruleSvc := service.NewRuleService(ruleRepo, tx, cacheSvc, cfg.Cache.RulesTTL, publisher, validate, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	applicationSvc := service.NewApplicationService(applicationRepo, competitionRepo, studentRepo, userRepo, tx, metrics, publisher, validate, logr)
	awardSvc := service.NewAwardService(awardRepo, applicationRepo, ruleSvc, ledger, tx, cacheSvc, metrics, publisher, validate, logr)
	competitionSvc := service.NewCompetitionService(competitionRepo, editLogRepo, ledger, tx, cfg.Ledger.CompetitionEditPenalty, publisher, validate, logr)
	profileSvc := service.NewProfileService(userRepo, editLogRepo, ledger, tx, service.ProfilePolicy{
		FreeEdits: cfg.Ledger.ProfileFreeEdits,
		Penalty:   cfg.Ledger.ProfileEditPenalty,
	}, publisher, validate, logr)
	statsSvc := service.NewStatisticsService(statsRepo, userRepo, editLogRepo, cacheSvc, cfg.Cache.StatsTTL, cfg.Ledger.ProfileFreeEdits, logr)
	rewardSvc := service.NewRewardService(statsRepo, export.NewCSVExporter(), export.NewPDFExporter(), logr)
	userSvc := service.NewUserService(userRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	departmentSvc := service.NewDepartmentService(departmentRepo, cacheSvc, cfg.Cache.RulesTTL, validate, logr)
	certificateSvc := service.NewCertificateService(awardRepo, export.NewCertificateRenderer(), validate, logr)

	checks := map[string]handler.ReadinessCheck{"database": db.PingContext}
	if redisClient != nil {
		checks["cache"] = repository.NewCacheRepository(redisClient, "competition:").Ping
	}

	return &application{
		logger:  logr,
		metrics: metrics,
		users:   userRepo,
		rules:   ruleSvc,
		auth:    authSvc,
		handlers: handlers{
			auth:         handler.NewAuthHandler(authSvc),
			applications: handler.NewApplicationHandler(applicationSvc),
			awards:       handler.NewAwardHandler(awardSvc),
			competitions: handler.NewCompetitionHandler(competitionSvc),
			profile:      handler.NewProfileHandler(profileSvc),
			stats:        handler.NewStatisticsHandler(statsSvc, rewardSvc),
			rules:        handler.NewRuleHandler(ruleSvc),
			users:        handler.NewUserHandler(userSvc),
			students:     handler.NewStudentHandler(studentSvc),
			departments:  handler.NewDepartmentHandler(departmentSvc),
			certificates: handler.NewCertificateHandler(certificateSvc),
			metrics:      handler.NewMetricsHandler(metrics, checks),
		},
	}
}
