package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/zingsurvey/payment-gateway/internal/bank"
	"github.com/zingsurvey/payment-gateway/internal/config"
	"github.com/zingsurvey/payment-gateway/internal/handlers"
	"github.com/zingsurvey/payment-gateway/internal/lock"
	"github.com/zingsurvey/payment-gateway/internal/mailer"
	"github.com/zingsurvey/payment-gateway/internal/queue"
	"github.com/zingsurvey/payment-gateway/internal/repository"
	"github.com/zingsurvey/payment-gateway/internal/services"
	"github.com/zingsurvey/payment-gateway/pkg/crypto"
	xhttp "github.com/zingsurvey/payment-gateway/pkg/http"
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

	// transport (tcp for now)
	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 10))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

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

	retryQueue, err := queue.NewQueue(redisAdap, queue.QueueConfig{
		Name:              config.Get().QueueName,
		ConsumerGroup:     config.Get().QueueConsumerGroup,
		ConsumerName:      config.Get().QueueConsumerName,
		MaxRetries:        config.Get().QueueMaxRetries,
		VisibilityTimeout: config.Get().QueueVisibilityTimeout,
		PollInterval:      config.Get().QueuePollInterval,
		BatchSize:         config.Get().QueueBatchSize,
		MaxLen:            config.Get().QueueMaxLen,
		EnableDLQ:         config.Get().QueueEnableDLQ,
	})
	if err != nil {
		logger.Error("failed creating retry queue", "error", err)
		return
	}

	encryptor, err := crypto.NewEncryptor(config.Get().EncryptionKey)
	if err != nil {
		logger.Error("invalid encryption key", "error", err)
		return
	}

	paymentRepo := repository.NewPaymentRepository(db)
	bankRepo := repository.NewBankTransactionRepository(db)
	receiptRepo := repository.NewReceiptRepository(db)
	surveyRepo := repository.NewSurveyRepository(db)
	adminRepo := repository.NewAdminRepository(db)

	bankClient := bank.NewClient(bank.DefaultConfig(config.Get().BankAPIURL))
	mailClient := mailer.NewClient(mailer.DefaultConfig(
		config.Get().MailAPIURL,
		config.Get().MailAPIKey,
		config.Get().EmailFrom,
		config.Get().EmailSenderName,
	))

	// services
	bankService := services.NewBankService(bankRepo, bankClient, encryptor, services.BankAccount{
		AccountNumber: config.Get().BankAccountNumber,
		BankName:      config.Get().BankName,
		AccountHolder: config.Get().BankAccountHolder,
	})
	receiptService := services.NewReceiptService(paymentRepo, receiptRepo, surveyRepo, mailClient, retryQueue, services.ReceiptServiceConfig{
		AdminEmail: config.Get().AdminEmail,
	})
	paymentService := services.NewPaymentService(paymentRepo, surveyRepo, bankService, receiptService, lock.New(redisAdap))
	surveyService := services.NewSurveyService(surveyRepo, paymentRepo)
	adminService := services.NewAdminService(adminRepo, config.Get().JWTSecret)
	healthService := services.NewHealthService(db)

	// v1 handlers
	paymentHandler := handlers.NewPaymentHandler(paymentService, config.Get().WebhookSecret)
	surveyHandler := handlers.NewSurveyHandler(surveyService)
	adminHandler := handlers.NewAdminHandler(adminService, paymentHandler, surveyHandler)
	healthHandler := handlers.NewHealthHandler(healthService)

	g := s.Router.Group("/api/v1")
	handlers.RegisterPaymentRoutes(g, paymentHandler)
	handlers.RegisterSurveyRoutes(g, surveyHandler)
	handlers.RegisterAdminRoutes(g, adminHandler)
	handlers.RegisterHealthRoutes(g, healthHandler)

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

	metricsAddr := config.Get().AppDebugMetricsAddr
	if metricsAddr == "" {
		metricsAddr = ":9101"
	}
	metricsURI := config.Get().AppDebugMetricsURI
	if metricsURI == "" {
		metricsURI = "/metrics"
	}
	go func() {
		prom.ListenAndServer(metricsAddr, metricsURI)
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		var err = s.ListenAndServe(config.Get().HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	select {
	case <-c:
		s.Shutdown()
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
