package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/zingsurvey/payment-gateway/internal/config"
	"github.com/zingsurvey/payment-gateway/internal/dispatcher"
	"github.com/zingsurvey/payment-gateway/internal/mailer"
	"github.com/zingsurvey/payment-gateway/internal/repository"
	"github.com/zingsurvey/payment-gateway/internal/services"
	"github.com/zingsurvey/payment-gateway/pkg/logger"
	"github.com/zingsurvey/payment-gateway/pkg/pg"
	"github.com/zingsurvey/payment-gateway/pkg/prom"
	"github.com/zingsurvey/payment-gateway/pkg/redis"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	readConf := pg.Config{
		User:     config.Get().PostgresReadUser,
		Host:     config.Get().PostgresReadHost,
		Port:     config.Get().PostgresReadPort,
		Password: config.Get().PostgresReadPassword,
		Database: config.Get().PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	pgDebug := false
	if config.Get().AppEnv == "dev" {
		pgDebug = true
	}
	db, err := pg.CreateReadWrite(readConf, writeConf, pgDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", config.Get().RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{config.Get().RedisAddr},
		ClientName: "default",
		DB:         config.Get().RedisDatabase,
		Username:   config.Get().RedisUsername,
		Password:   config.Get().RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	paymentRepo := repository.NewPaymentRepository(db)
	receiptRepo := repository.NewReceiptRepository(db)
	surveyRepo := repository.NewSurveyRepository(db)

	mailClient := mailer.NewClient(mailer.DefaultConfig(
		config.Get().MailAPIURL,
		config.Get().MailAPIKey,
		config.Get().EmailFrom,
		config.Get().EmailSenderName,
	))

	// The dispatcher only redelivers, it never enqueues, so no retry queue
	// is passed to the receipt service here.
	receiptService := services.NewReceiptService(paymentRepo, receiptRepo, surveyRepo, mailClient, nil, services.ReceiptServiceConfig{
		AdminEmail: config.Get().AdminEmail,
	})

	idempotencyConfig := dispatcher.DefaultIdempotencyConfig()
	idempotencyService := dispatcher.NewIdempotencyService(redisAdap, idempotencyConfig)

	service, err := dispatcher.NewDispatcherService(redisAdap)
	if err != nil {
		logger.Error("failed to create the dispatcher", "error", err)
		return
	}
	service.RegisterProcessor(dispatcher.NewReceiptRetryProcessor(receiptService, idempotencyService))

	var hostname string
	hostname, err = os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	err = prom.Create(hostname, config.Get().AppEnv, config.Get().PromNamespace)
	if err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}

	go func() {
		prom.ListenAndServer(":9100", "/metrics")
	}()

	go func() {
		err := service.Start()
		if err != nil {
			logger.Error("failed to start dispatcher", "error", err)
		}
	}()

	select {
	case <-c:
		service.Stop()
	}
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
