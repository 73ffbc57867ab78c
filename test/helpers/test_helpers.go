package helpers

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/zingsurvey/payment-gateway/internal/model"
	"github.com/zingsurvey/payment-gateway/internal/repository"
	"github.com/zingsurvey/payment-gateway/pkg/pg"
	"github.com/zingsurvey/payment-gateway/pkg/redis"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func SetupTestDB(t *testing.T) *pg.DB {
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

	return pgDB
}

func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	// Unique connection name per test, the adapter registry caches by name
	adapter, err := redis.NewRedisAdapter(t.Name()+"-"+mr.Addr(), "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func CreateTestResponse(t *testing.T, db *pg.DB, email string, bracket model.AgeBracket) *repository.SurveyResponseEntity {
	ctx := context.Background()
	resp := &repository.SurveyResponseEntity{
		Email:      email,
		FullName:   "Test Respondent",
		AgeBracket: string(bracket),
		Language:   "en",
		Answers:    "{}",
		CreatedAt:  time.Now(),
	}
	err := db.Write(ctx).Create(resp).Error
	require.NoError(t, err)
	return resp
}

func CreateTestPayment(t *testing.T, db *pg.DB, responseID int64, reference string, amount int64, status model.PaymentStatus) *repository.PaymentEntity {
	ctx := context.Background()
	payment := &repository.PaymentEntity{
		Reference:  reference,
		ResponseID: &responseID,
		Email:      "payer@example.com",
		Amount:     amount,
		Currency:   "NGN",
		Status:     string(status),
		CreatedAt:  time.Now(),
	}
	err := db.Write(ctx).Create(payment).Error
	require.NoError(t, err)
	return payment
}

func CreateTestBankTransaction(t *testing.T, db *pg.DB, paymentID int64, bankReference string, amount int64) *repository.BankTransactionEntity {
	ctx := context.Background()
	txn := &repository.BankTransactionEntity{
		PaymentID:     paymentID,
		BankReference: bankReference,
		AccountNumber: "aabb:ccdd",
		BankName:      "Mock Bank",
		AccountHolder: "Zing Survey Ltd",
		Amount:        amount,
		CreatedAt:     time.Now(),
	}
	err := db.Write(ctx).Create(txn).Error
	require.NoError(t, err)
	return txn
}

func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func AssertEventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	if !WaitForCondition(t, timeout, condition) {
		t.Fatal(msg)
	}
}

func ContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func Ptr[T any](v T) *T {
	return &v
}
