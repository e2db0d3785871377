// Command finguard runs the banking backend: the HTTP API, the transfer
// coordinator and, when a classifier endpoint is configured, the fraud
// scoring worker.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/finguard/finguard/internal/accounts"
	"github.com/finguard/finguard/internal/config"
	"github.com/finguard/finguard/internal/database"
	"github.com/finguard/finguard/internal/fraud"
	"github.com/finguard/finguard/internal/identities"
	"github.com/finguard/finguard/internal/ledger"
	"github.com/finguard/finguard/internal/messaging"
	"github.com/finguard/finguard/internal/notifications"
	"github.com/finguard/finguard/internal/scoring"
	"github.com/finguard/finguard/internal/server"
	"github.com/finguard/finguard/pkg/logger"
	"github.com/finguard/finguard/pkg/models"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	db, err := database.NewPostgresDB(cfg.Database.DSN,
		cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	err = db.AutoMigrate(
		&models.User{}, &models.Account{}, &models.Transaction{},
		&models.MedianState{}, &models.FraudListEntry{},
	)
	if err != nil {
		log.Fatal("Failed to migrate schema", zap.Error(err))
	}

	redisClient, err := database.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	featureProducer := messaging.NewKafkaProducer(messaging.Config{
		Brokers:      cfg.Kafka.Brokers,
		Topic:        cfg.Kafka.FeatureTopic,
		WriteTimeout: cfg.Kafka.WriteTimeout,
	}, log)
	defer featureProducer.Close()

	ledgerSvc, err := ledger.NewService(log, db, fraud.NewGate(db), featureProducer, cfg.Kafka.DispatchTimeout)
	if err != nil {
		log.Fatal("Failed to create transfer coordinator", zap.Error(err))
	}
	accountsSvc := accounts.NewService(log, db)
	identitiesSvc := identities.NewService(log, db, nil, cfg.Auth.JWTSecret)
	notificationsSvc := notifications.NewService(log, redisClient)

	var verifier server.TokenVerifier
	if cfg.Auth.JWTSecret != "" {
		verifier = identitiesSvc
	}

	handlers := server.NewHandlers(log, ledgerSvc, accountsSvc, identitiesSvc, notificationsSvc)
	router := server.NewRouter(log, handlers, verifier)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Scoring.Endpoint != "" {
		alertProducer := messaging.NewKafkaProducer(messaging.Config{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.AlertTopic,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		}, log)
		defer alertProducer.Close()

		consumer := messaging.NewKafkaConsumer(messaging.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.FeatureTopic,
			GroupID: cfg.Kafka.ConsumerGroup,
		}, log)

		classifier := scoring.NewHTTPClassifier(cfg.Scoring.Endpoint, 0)
		worker := scoring.NewWorker(log, classifier, notificationsSvc, alertProducer, cfg.Scoring.Threshold)

		go func() {
			log.Info("Scoring worker started",
				zap.String("topic", cfg.Kafka.FeatureTopic),
				zap.String("group", cfg.Kafka.ConsumerGroup))
			if err := consumer.Run(ctx, worker.Handle); err != nil && ctx.Err() == nil {
				log.Error("Scoring worker stopped", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("Server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
		os.Exit(1)
	}
}
