package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/zqshi/thinkcraft-auth/internal/core/port"
	"github.com/zqshi/thinkcraft-auth/internal/infra/config"
	"github.com/zqshi/thinkcraft-auth/internal/infra/database"
	kafkainfra "github.com/zqshi/thinkcraft-auth/internal/infra/kafka"
	"github.com/zqshi/thinkcraft-auth/internal/infra/logger"
	redisinfra "github.com/zqshi/thinkcraft-auth/internal/infra/redis"
	"github.com/zqshi/thinkcraft-auth/internal/infra/security"
	"github.com/zqshi/thinkcraft-auth/internal/infra/sms"
	postgresrepo "github.com/zqshi/thinkcraft-auth/internal/repository/postgres"
	redisrepo "github.com/zqshi/thinkcraft-auth/internal/repository/redis"
	"github.com/zqshi/thinkcraft-auth/internal/transport/http/middleware"
	"github.com/zqshi/thinkcraft-auth/internal/transport/http/routes"
	"github.com/zqshi/thinkcraft-auth/internal/usecase"
)

type Application struct {
	cfg       *config.AppConfig
	engine    *gin.Engine
	logger    *zap.Logger
	pool      *pgxpool.Pool
	redis     *redisinfra.Client
	publisher port.EventPublisher
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	tokenService, err := security.NewTokenService(security.TokenConfig{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessTokenTTL,
		RefreshTTL:    cfg.JWT.RefreshTokenTTL,
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
	})
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init token service: %w", err)
	}

	var publisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			publisher = kafkainfra.NewStubPublisher(log)
		} else {
			publisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		publisher = kafkainfra.NewStubPublisher(log)
	}

	accounts := postgresrepo.NewAccountRepository(pool)
	codeStore := redisrepo.NewCodeStore(redisClient.Client())
	codeSender := sms.NewLogSender(log)

	verificationService := usecase.NewVerificationService(accounts, codeStore, codeSender, usecase.VerificationOptions{
		CodeTTL:       cfg.Verification.CodeTTL,
		ResendWindow:  cfg.Verification.ResendWindow,
		DailyLimit:    cfg.Verification.DailyLimit,
		MaxFailures:   cfg.Verification.MaxFailures,
		FailureWindow: cfg.Verification.FailureWindow,
	}, log)

	authService := usecase.NewAuthService(accounts, verificationService, tokenService, publisher, log)

	passwordValidator := security.NewPasswordValidator(
		security.MinLengthRule(cfg.Password.MinLength),
		security.RequireLetterAndDigitRule(),
		security.RequirePasswordStrengthRule(cfg.Password.MinScore),
	)
	accountService := usecase.NewAccountService(accounts, verificationService, publisher, passwordValidator, log)

	metrics := middleware.NewHTTPMetrics(nil)

	engine := routes.Register(routes.Dependencies{
		Config:   cfg,
		Logger:   log,
		Metrics:  metrics,
		Database: pool,
		Cache:    redisClient,
		Services: routes.ServiceSet{
			Auth:         authService,
			Verification: verificationService,
			Accounts:     accountService,
		},
	})

	return &Application{
		cfg:       cfg,
		engine:    engine,
		logger:    log,
		pool:      pool,
		redis:     redisClient,
		publisher: publisher,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.publisher != nil {
			_ = a.publisher.Close()
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting auth API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
