package e2e

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zingsurvey/payment-gateway/internal/bank"
	"github.com/zingsurvey/payment-gateway/internal/lock"
	"github.com/zingsurvey/payment-gateway/internal/mailer"
	"github.com/zingsurvey/payment-gateway/internal/model"
	"github.com/zingsurvey/payment-gateway/internal/queue"
	"github.com/zingsurvey/payment-gateway/internal/repository"
	"github.com/zingsurvey/payment-gateway/internal/services"
	"github.com/zingsurvey/payment-gateway/pkg/crypto"
	"github.com/zingsurvey/payment-gateway/pkg/pg"
	"github.com/zingsurvey/payment-gateway/pkg/redis"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var (
	referencePattern     = regexp.MustCompile(`^ZING-\d+-[0-9a-f]{8}$`)
	bankReferencePattern = regexp.MustCompile(`^BANK-\d+$`)
)

type stubVerifier struct {
	mu        sync.Mutex
	confirmed bool
	amount    int64
	missing   bool
}

func (s *stubVerifier) VerifyTransfer(ctx context.Context, bankReference string) (*bank.VerifyResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.missing {
		return nil, bank.ErrTransferNotFound
	}
	return &bank.VerifyResponse{
		BankReference: bankReference,
		Confirmed:     s.confirmed,
		Amount:        s.amount,
	}, nil
}

type captureMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	fail bool
}

func (m *captureMailer) Send(ctx context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return fmt.Errorf("mail provider down")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *captureMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type TestEnvironment struct {
	DB             *pg.DB
	Redis          *miniredis.Miniredis
	Queue          *queue.Queue
	PaymentRepo    *repository.PaymentRepository
	BankRepo       *repository.BankTransactionRepository
	ReceiptRepo    *repository.ReceiptRepository
	SurveyRepo     *repository.SurveyRepository
	Verifier       *stubVerifier
	Mailer         *captureMailer
	PaymentService *services.PaymentService
	SurveyService  *services.SurveyService
}

func setupE2EEnvironment(t *testing.T) *TestEnvironment {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A second pool connection would see its own empty in-memory database.
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&repository.SurveyResponseEntity{},
		&repository.PaymentEntity{},
		&repository.BankTransactionEntity{},
		&repository.ReceiptEntity{},
		&repository.AdminUserEntity{},
	)
	require.NoError(t, err)

	pgDB := &pg.DB{}
	pgDBValue := reflect.ValueOf(pgDB).Elem()

	readField := pgDBValue.FieldByName("read")
	writeField := pgDBValue.FieldByName("write")

	readField = reflect.NewAt(readField.Type(), readField.Addr().UnsafePointer()).Elem()
	writeField = reflect.NewAt(writeField.Type(), writeField.Addr().UnsafePointer()).Elem()

	readField.Set(reflect.ValueOf(db))
	writeField.Set(reflect.ValueOf(db))

	mr, err := miniredis.Run()
	require.NoError(t, err)

	// Use unique connection name per test to avoid global adapter caching issues
	connName := fmt.Sprintf("e2e-%d", time.Now().UnixNano())
	redisAdapter, err := redis.NewRedisAdapter(connName, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	q, err := queue.NewQueue(redisAdapter, queue.QueueConfig{
		Name:              "receipts:retry",
		ConsumerGroup:     "dispatcher",
		ConsumerName:      "dispatcher-e2e",
		MaxRetries:        3,
		VisibilityTimeout: 5 * time.Second,
		PollInterval:      100 * time.Millisecond,
		BatchSize:         10,
		MaxLen:            1000,
		EnableDLQ:         true,
	})
	require.NoError(t, err)

	paymentRepo := repository.NewPaymentRepository(pgDB)
	bankRepo := repository.NewBankTransactionRepository(pgDB)
	receiptRepo := repository.NewReceiptRepository(pgDB)
	surveyRepo := repository.NewSurveyRepository(pgDB)

	encryptor, err := crypto.NewEncryptor("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	verifier := &stubVerifier{}
	mail := &captureMailer{}

	bankService := services.NewBankService(bankRepo, verifier, encryptor, services.BankAccount{
		AccountNumber: "0123456789",
		BankName:      "Mock Bank",
		AccountHolder: "Zing Survey Ltd",
	})
	receiptService := services.NewReceiptService(paymentRepo, receiptRepo, surveyRepo, mail, q, services.ReceiptServiceConfig{
		AdminEmail: "admin@zingsurvey.com",
	})
	paymentService := services.NewPaymentService(paymentRepo, surveyRepo, bankService, receiptService, lock.New(redisAdapter))
	surveyService := services.NewSurveyService(surveyRepo, paymentRepo)

	return &TestEnvironment{
		DB:             pgDB,
		Redis:          mr,
		Queue:          q,
		PaymentRepo:    paymentRepo,
		BankRepo:       bankRepo,
		ReceiptRepo:    receiptRepo,
		SurveyRepo:     surveyRepo,
		Verifier:       verifier,
		Mailer:         mail,
		PaymentService: paymentService,
		SurveyService:  surveyService,
	}
}

func (env *TestEnvironment) Cleanup() {
	if env.Queue != nil {
		_ = env.Queue.Stop(5 * time.Second)
	}
	time.Sleep(100 * time.Millisecond)
	if env.Redis != nil {
		env.Redis.Close()
	}
}

func (env *TestEnvironment) createResponse(t *testing.T, bracket model.AgeBracket) *model.SurveyResponse {
	resp, _, err := env.SurveyService.Create(context.Background(), model.SurveyResponseCreateRequest{
		Email:      "jane@example.com",
		FullName:   "Jane Doe",
		AgeBracket: bracket,
		Language:   "en",
		Answers:    `{"q1":"yes"}`,
	})
	require.NoError(t, err)
	return resp
}

func (env *TestEnvironment) initiate(t *testing.T, responseID, amount int64) *services.PaymentInitiateResult {
	result, err := env.PaymentService.Initiate(context.Background(), model.PaymentInitiateRequest{
		ResponseID: responseID,
		Email:      "jane@example.com",
		Amount:     amount,
	})
	require.NoError(t, err)
	return result
}

func TestE2E_PaymentInitiation(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	resp := env.createResponse(t, model.AgeBracketOver18)
	result := env.initiate(t, resp.ID, model.AmountOver18)

	assert.Regexp(t, referencePattern, result.Transaction.Reference)
	assert.Equal(t, model.PaymentStatusPending, result.Transaction.Status)
	assert.Equal(t, model.AmountOver18, result.Transaction.Amount)

	assert.Regexp(t, bankReferencePattern, result.Transfer.BankReference)
	assert.Equal(t, "0123456789", result.Transfer.AccountNumber)

	// The stored account number must not be the plaintext.
	txn, err := env.BankRepo.GetByPaymentID(context.Background(), result.Transaction.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "0123456789", txn.AccountNumber)
	assert.Contains(t, txn.AccountNumber, ":")
	assert.Equal(t, model.PaymentStatusPending, txn.Status)
}

func TestE2E_AmountMismatchRejected(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	resp := env.createResponse(t, model.AgeBracketUnder18)

	_, err := env.PaymentService.Initiate(context.Background(), model.PaymentInitiateRequest{
		ResponseID: resp.ID,
		Email:      "jane@example.com",
		Amount:     model.AmountOver18, // wrong bracket fee
	})
	assert.ErrorIs(t, err, services.ErrAmountMismatch)

	_, total, err := env.PaymentRepo.List(context.Background(), model.PaymentFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestE2E_VerifyCompletesPayment(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	resp := env.createResponse(t, model.AgeBracketOver18)
	result := env.initiate(t, resp.ID, model.AmountOver18)
	reference := result.Transaction.Reference

	env.Verifier.confirmed = true
	env.Verifier.amount = model.AmountOver18

	verify, err := env.PaymentService.Verify(context.Background(), reference)
	require.NoError(t, err)
	assert.True(t, verify.Verified)
	assert.Equal(t, model.PaymentStatusCompleted, verify.Transaction.Status)
	require.NotNil(t, verify.Receipt)
	assert.True(t, verify.Receipt.Complete())

	// Customer and admin copies.
	assert.Equal(t, 2, env.Mailer.count())

	// Survey response flips to completed.
	updated, err := env.SurveyRepo.GetByID(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.True(t, updated.Completed)

	// A second verify is idempotent: no bank call, no second receipt.
	verify2, err := env.PaymentService.Verify(context.Background(), reference)
	require.NoError(t, err)
	assert.True(t, verify2.Verified)
	assert.Equal(t, 2, env.Mailer.count())
}

func TestE2E_VerifyUnconfirmedTransfer(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	resp := env.createResponse(t, model.AgeBracketOver18)
	result := env.initiate(t, resp.ID, model.AmountOver18)

	env.Verifier.confirmed = false

	verify, err := env.PaymentService.Verify(context.Background(), result.Transaction.Reference)
	require.NoError(t, err)
	assert.False(t, verify.Verified)
	assert.Equal(t, model.PaymentStatusPending, verify.Transaction.Status)
	assert.Zero(t, env.Mailer.count())
}

func TestE2E_WebhookSuccessByBankReference(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	resp := env.createResponse(t, model.AgeBracketOver18)
	result := env.initiate(t, resp.ID, model.AmountOver18)

	webhook, err := env.PaymentService.ProcessWebhook(context.Background(), model.WebhookPayload{
		Event:     model.WebhookEventSuccess,
		Reference: result.Transfer.BankReference,
	})
	require.NoError(t, err)
	assert.True(t, webhook.Verified)

	payment, err := env.PaymentRepo.GetByReference(context.Background(), result.Transaction.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, payment.Status)
	assert.NotNil(t, payment.CompletedAt)
	assert.Equal(t, 2, env.Mailer.count())

	// The bank leg settles together with the payment.
	txn, err := env.BankRepo.GetByPaymentID(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, txn.Status)

	// Replayed event acknowledges without a second receipt.
	replay, err := env.PaymentService.ProcessWebhook(context.Background(), model.WebhookPayload{
		Event:     model.WebhookEventSuccess,
		Reference: result.Transfer.BankReference,
	})
	require.NoError(t, err)
	assert.True(t, replay.Verified)
	assert.Equal(t, 2, env.Mailer.count())
}

func TestE2E_WebhookFailureRecordsCode(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	resp := env.createResponse(t, model.AgeBracketOver18)
	result := env.initiate(t, resp.ID, model.AmountOver18)

	webhook, err := env.PaymentService.ProcessWebhook(context.Background(), model.WebhookPayload{
		Event:     model.WebhookEventFailed,
		Reference: result.Transaction.Reference,
		Details:   map[string]interface{}{"code": "INSUFFICIENT_FUNDS"},
	})
	require.NoError(t, err)
	assert.False(t, webhook.Verified)

	payment, err := env.PaymentRepo.GetByReference(context.Background(), result.Transaction.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusFailed, payment.Status)
	assert.Equal(t, "INSUFFICIENT_FUNDS", payment.FailureCode)
	assert.Zero(t, env.Mailer.count())

	// A late success for the failed payment does not resurrect it.
	late, err := env.PaymentService.ProcessWebhook(context.Background(), model.WebhookPayload{
		Event:     model.WebhookEventSuccess,
		Reference: result.Transaction.Reference,
	})
	require.NoError(t, err)
	assert.False(t, late.Verified)
}

func TestE2E_ReceiptFailureQueuesRetry(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	resp := env.createResponse(t, model.AgeBracketOver18)
	result := env.initiate(t, resp.ID, model.AmountOver18)

	env.Mailer.fail = true

	webhook, err := env.PaymentService.ProcessWebhook(context.Background(), model.WebhookPayload{
		Event:     model.WebhookEventSuccess,
		Reference: result.Transaction.Reference,
	})
	require.NoError(t, err)
	assert.True(t, webhook.Verified)
	require.NotNil(t, webhook.Receipt)
	assert.False(t, webhook.Receipt.Complete())

	stats, err := env.Queue.GetStats()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.TotalMessages, int64(1))

	// Payment completion never depends on the receipt.
	payment, err := env.PaymentRepo.GetByReference(context.Background(), result.Transaction.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, payment.Status)
}

func TestE2E_DashboardStats(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()

	respA := env.createResponse(t, model.AgeBracketOver18)
	env.createResponse(t, model.AgeBracketUnder18)

	result := env.initiate(t, respA.ID, model.AmountOver18)
	env.Verifier.confirmed = true
	env.Verifier.amount = model.AmountOver18
	_, err := env.PaymentService.Verify(ctx, result.Transaction.Reference)
	require.NoError(t, err)

	stats, err := env.SurveyService.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalResponses)
	assert.Equal(t, model.AmountOver18, stats.TotalRevenue)
	assert.InDelta(t, 0.5, stats.CompletionRate, 0.001)
	assert.Equal(t, int64(1), stats.AgeDistribution[string(model.AgeBracketOver18)])
	assert.Equal(t, "en", stats.TopLanguage)
}
