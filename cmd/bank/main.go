package main

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// TransferRecord is what the mock bank remembers about a transfer.
type TransferRecord struct {
	BankReference string     `json:"bank_reference"`
	Reference     string     `json:"reference,omitempty"`
	Amount        int64      `json:"amount"`
	Confirmed     bool       `json:"confirmed"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
}

// VerifyResponse mirrors the gateway's transfer lookup contract.
type VerifyResponse struct {
	BankReference string `json:"bank_reference"`
	Confirmed     bool   `json:"confirmed"`
	Amount        int64  `json:"amount"`
}

// SimulateRequest seeds a transfer and optionally pushes a webhook to the
// gateway once the fake settlement delay elapses.
type SimulateRequest struct {
	BankReference string `json:"bank_reference" binding:"required"`
	Reference     string `json:"reference"`
	Amount        int64  `json:"amount" binding:"required"`
}

type HealthResponse struct {
	Status      string    `json:"status"`
	BankID      string    `json:"bank_id"`
	Timestamp   time.Time `json:"timestamp"`
	ConfirmRate float64   `json:"confirm_rate"`
}

// MockBank simulates the partner bank's transfer API.
type MockBank struct {
	mu          sync.RWMutex
	transfers   map[string]*TransferRecord
	confirmRate float64
	minDelay    time.Duration
	maxDelay    time.Duration
	bankID      string
	webhookURL  string
	secret      []byte
	rng         *rand.Rand
}

func NewMockBank(confirmRate float64, minDelay, maxDelay time.Duration, webhookURL, secret string) *MockBank {
	return &MockBank{
		transfers:   make(map[string]*TransferRecord),
		confirmRate: confirmRate,
		minDelay:    minDelay,
		maxDelay:    maxDelay,
		bankID:      "MOCK_BANK_" + uuid.New().String()[:8],
		webhookURL:  webhookURL,
		secret:      []byte(secret),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// settle marks the transfer confirmed or failed after a random delay and,
// when a webhook URL is configured, notifies the gateway.
func (b *MockBank) settle(record *TransferRecord) {
	time.Sleep(b.randomDelay())

	b.mu.Lock()
	confirmed := b.shouldConfirm()
	if confirmed {
		now := time.Now()
		record.Confirmed = true
		record.ConfirmedAt = &now
	}
	b.mu.Unlock()

	event := "payment.failed"
	if confirmed {
		event = "payment.success"
	}

	log.Info().
		Str("bank_reference", record.BankReference).
		Bool("confirmed", confirmed).
		Msg("Transfer settled")

	if b.webhookURL == "" {
		return
	}

	payload := map[string]interface{}{
		"event":     event,
		"reference": record.BankReference,
		"details": map[string]interface{}{
			"amount":  record.Amount,
			"bank_id": b.bankID,
		},
	}
	if !confirmed {
		payload["details"].(map[string]interface{})["code"] = b.randomFailureCode()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal webhook payload")
		return
	}

	mac := hmac.New(sha256.New, b.secret)
	mac.Write(body)
	signature := hex.EncodeToString(mac.Sum(nil))

	req, err := http.NewRequest(http.MethodPost, b.webhookURL, bytes.NewReader(body))
	if err != nil {
		log.Error().Err(err).Msg("Failed to build webhook request")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-signature", signature)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		log.Error().Err(err).Str("url", b.webhookURL).Msg("Webhook push failed")
		return
	}
	defer resp.Body.Close()

	log.Info().
		Str("bank_reference", record.BankReference).
		Str("event", event).
		Int("status", resp.StatusCode).
		Msg("Webhook pushed")
}

func (b *MockBank) randomDelay() time.Duration {
	delta := b.maxDelay - b.minDelay
	if delta <= 0 {
		return b.minDelay
	}
	return b.minDelay + time.Duration(b.rng.Int63n(int64(delta)))
}

func (b *MockBank) shouldConfirm() bool {
	return b.rng.Float64() < b.confirmRate
}

// ConfirmRate reads the rate under the lock; settlement goroutines and
// config updates touch it concurrently.
func (b *MockBank) ConfirmRate() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.confirmRate
}

func (b *MockBank) SetConfirmRate(rate float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmRate = rate
}

func (b *MockBank) randomFailureCode() string {
	codes := []string{
		"INSUFFICIENT_FUNDS",
		"TRANSFER_TIMEOUT",
		"ACCOUNT_BLOCKED",
		"LIMIT_EXCEEDED",
	}
	return codes[b.rng.Intn(len(codes))]
}

type Handler struct {
	bank *MockBank
}

func NewHandler(bank *MockBank) *Handler {
	return &Handler{bank: bank}
}

// SimulateTransfer registers an inbound transfer and kicks off settlement.
func (h *Handler) SimulateTransfer(c *gin.Context) {
	var req SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	record := &TransferRecord{
		BankReference: req.BankReference,
		Reference:     req.Reference,
		Amount:        req.Amount,
	}

	h.bank.mu.Lock()
	h.bank.transfers[req.BankReference] = record
	h.bank.mu.Unlock()

	log.Info().
		Str("bank_reference", req.BankReference).
		Int64("amount", req.Amount).
		Msg("Transfer received, settling")

	go h.bank.settle(record)

	c.JSON(http.StatusAccepted, gin.H{
		"bank_reference": req.BankReference,
		"status":         "settling",
	})
}

// VerifyTransfer answers the gateway's transfer lookup.
func (h *Handler) VerifyTransfer(c *gin.Context) {
	bankReference := c.Param("bank_reference")
	if bankReference == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bank_reference is required"})
		return
	}

	h.bank.mu.RLock()
	record, ok := h.bank.transfers[bankReference]
	h.bank.mu.RUnlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "transfer not found"})
		return
	}

	c.JSON(http.StatusOK, VerifyResponse{
		BankReference: record.BankReference,
		Confirmed:     record.Confirmed,
		Amount:        record.Amount,
	})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:      "healthy",
		BankID:      h.bank.bankID,
		Timestamp:   time.Now(),
		ConfirmRate: h.bank.ConfirmRate(),
	})
}

// UpdateConfig allows changing the confirm rate at runtime.
func (h *Handler) UpdateConfig(c *gin.Context) {
	var config struct {
		ConfirmRate *float64 `json:"confirm_rate"`
	}

	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if config.ConfirmRate != nil {
		if *config.ConfirmRate >= 0 && *config.ConfirmRate <= 1.0 {
			h.bank.SetConfirmRate(*config.ConfirmRate)
			log.Info().Float64("rate", *config.ConfirmRate).Msg("Updated confirm rate")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Configuration updated",
		"confirm_rate": h.bank.ConfirmRate(),
	})
}

func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.Default()

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Msg("Request processed")
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/transfers/simulate", handler.SimulateTransfer)
		v1.GET("/transfers/verify/:bank_reference", handler.VerifyTransfer)
		v1.GET("/health", handler.HealthCheck)
		v1.PUT("/config", handler.UpdateConfig)
	}

	router.GET("/health", handler.HealthCheck)

	return router
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	port := getEnv("PORT", "8082")
	confirmRate := getEnvFloat("CONFIRM_RATE", 1)
	minDelay := getEnvDuration("MIN_DELAY", 1*time.Second)
	maxDelay := getEnvDuration("MAX_DELAY", 5*time.Second)
	webhookURL := getEnv("WEBHOOK_URL", "")
	secret := getEnv("PAYMENT_SECRET_KEY", "")

	log.Info().
		Str("port", port).
		Float64("confirm_rate", confirmRate).
		Dur("min_delay", minDelay).
		Dur("max_delay", maxDelay).
		Str("webhook_url", webhookURL).
		Msg("Starting Mock Bank")

	bank := NewMockBank(confirmRate, minDelay, maxDelay, webhookURL, secret)
	handler := NewHandler(bank)
	router := SetupRouter(handler)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
