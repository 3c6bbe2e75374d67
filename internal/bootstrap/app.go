package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"aichat-backend/internal/ai"
	"aichat-backend/internal/config"
	"aichat-backend/internal/migration"
	"aichat-backend/internal/platform/database"
	rabbitmqClient "aichat-backend/internal/platform/rabbitmq"
	redisClient "aichat-backend/internal/platform/redis"
)

// App carries everything handlers need. It is built once and not mutated afterwards.
type App struct {
	Config *config.Config
	Logger *logrus.Logger
	DB     *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection
	LLM    *ai.Client

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	logger := NewLogger(cfg.App)
	if cfg.UsesDefaultSecret() {
		logger.Warn("auth.jwt_secret is the built-in default; set JWT_SECRET outside development")
	}

	app := &App{
		Config:    cfg,
		Logger:    logger,
		LLM:       ai.NewClient(cfg.ChatConfig(), nil),
		StartedAt: time.Now(),
	}

	app.DB, err = database.Open(ctx, cfg.Database.Driver, cfg.DatabaseDSN(), logger)
	if err != nil {
		return nil, err
	}
	if err := migration.Up(app.DB); err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("migrate database failed: %w", err)
	}

	app.Redis, err = redisClient.New(ctx, cfg.Redis)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	if app.Redis == nil {
		logger.Info("redis not configured, history cache disabled")
	}

	app.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	if app.MQConn == nil {
		logger.Info("rabbitmq not configured, chat events disabled")
	}

	logger.WithFields(logrus.Fields{
		"db_driver": cfg.Database.Driver,
		"llm_model": app.LLM.Model(),
	}).Info("bootstrap complete")
	return app, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
