package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"paysync.backend/internal/config"
	"paysync.backend/internal/infrastructure/notify"
	"paysync.backend/internal/infrastructure/repositories"
	paysynchttp "paysync.backend/internal/interfaces/http"
	"paysync.backend/internal/interfaces/http/handlers"
	"paysync.backend/internal/usecases"
	"paysync.backend/internal/worker"
	"paysync.backend/pkg/jwt"
	"paysync.backend/pkg/logger"
	"paysync.backend/pkg/redis"
)

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
	initLog    = logger.Init
	initRedis  = redis.Init
	openDB     = func(dsn string) (*gorm.DB, error) {
		return gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			PrepareStmt: false,
		})
	}
	newSessionStore = redis.NewSessionStore
	runServer       = func(r *gin.Engine, addr string) error { return r.Run(addr) }
	getStdDB        = func(db *gorm.DB) (*sql.DB, error) { return db.DB() }
)

func main() {
	if err := runMainProcess(); err != nil {
		log.Fatal(err)
	}
}

func runMainProcess() error {
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := loadCfg()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	initLog(os.Getenv("SERVER_ENV"))
	logger.Info(context.Background(), "logger initialized")

	if err := initRedis(cfg.Redis.URL, cfg.Redis.Password); err != nil {
		logger.Error(context.Background(), "failed to initialize redis", zap.Error(err))
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	logger.Info(context.Background(), "redis initialized")

	if os.Getenv("SERVER_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := openDB(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := getStdDB(db)
	if err != nil {
		return fmt.Errorf("failed to get generic database object: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		log.Printf("database not available: %v (endpoints will return errors)", err)
	} else {
		log.Println("connected to postgres via gorm")
	}

	uow := repositories.NewUnitOfWork(db)
	paymentRepo := repositories.NewPaymentRepository(db, uow)
	jobQueue := repositories.NewJobQueue(sqlDB)
	operatorKeyRepo := repositories.NewOperatorKeyRepository(db)

	jwtService := jwt.NewJWTService(cfg.Operator.SessionSecret, cfg.Operator.SessionTTL)

	sessionStore, err := newSessionStore(cfg.Operator.KeyEncryptionKey)
	if err != nil {
		return fmt.Errorf("failed to initialize session store: %w", err)
	}

	operatorUsecase, err := usecases.NewOperatorUsecase(operatorKeyRepo, jwtService, sessionStore, cfg.Operator.SessionTTL, cfg.Operator.KeyEncryptionKey)
	if err != nil {
		return fmt.Errorf("failed to initialize operator usecase: %w", err)
	}

	webhookHandler := handlers.NewWebhookHandler(jobQueue, paymentRepo, cfg.Webhook.SigningSecret)
	operatorHandler := handlers.NewOperatorHandler(jobQueue, paymentRepo)
	operatorSessionHandler := handlers.NewOperatorSessionHandler(operatorUsecase)
	healthHandler := handlers.NewHealthHandler()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener := notify.NewListener(cfg.Database.URL)
	if err := listener.Start(ctx.Done()); err != nil {
		logger.Error(ctx, "failed to start notify listener", zap.Error(err))
	}
	defer listener.Close()

	pool := worker.NewPool(jobQueue, paymentRepo, worker.Config{
		Workers:           cfg.Worker.Count,
		PollInterval:      cfg.Worker.PollInterval,
		VisibilityTimeout: cfg.Worker.VisibilityTimeout,
	}, listener.Wakeups)
	pool.Start(ctx)
	defer pool.Stop()

	reaper := worker.NewReaper(jobQueue, cfg.Worker.ReapInterval)
	reaper.Start(ctx)
	defer reaper.Stop()

	r := paysynchttp.NewRouter(paysynchttp.Deps{
		WebhookHandler:         webhookHandler,
		OperatorHandler:        operatorHandler,
		OperatorSessionHandler: operatorSessionHandler,
		HealthHandler:          healthHandler,
		OperatorUsecase:        operatorUsecase,
		RateLimit:              120,
		RateLimitWindow:        time.Minute,
	})

	log.Println("registered routes:")
	for _, route := range r.Routes() {
		log.Printf("   %s %s", route.Method, route.Path)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("paysync backend starting on %s", cfg.Server.BindAddr)
		if err := runServer(r, cfg.Server.BindAddr); err != nil {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
		log.Println("shutting down server")
		return nil
	}
}
