package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zingsurvey/payment-gateway/pkg/logger"
	"github.com/zingsurvey/payment-gateway/pkg/redis"
)

var (
	ErrAlreadyDelivered   = errors.New("receipt already delivered")
	ErrLockAcquireFailed  = errors.New("failed to acquire processing lock")
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")
)

type IdempotencyConfig struct {
	LockTTL time.Duration

	DeliveredTTL time.Duration

	MaxRetries int

	RetryKeyPrefix string

	LockKeyPrefix string

	DeliveredKeyPrefix string
}

func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		LockTTL:            30 * time.Second,
		DeliveredTTL:       24 * time.Hour,
		MaxRetries:         3,
		RetryKeyPrefix:     "receipt:retry:",
		LockKeyPrefix:      "receipt:lock:",
		DeliveredKeyPrefix: "receipt:delivered:",
	}
}

// IdempotencyService keeps receipt redelivery at-most-once per reference
// across dispatcher instances. The delivered marker is belt and braces on
// top of the database flags; it saves a round trip for replayed jobs.
type IdempotencyService struct {
	redis  redis.RedisAdapter
	config IdempotencyConfig
}

func NewIdempotencyService(redisAdapter redis.RedisAdapter, config IdempotencyConfig) *IdempotencyService {
	return &IdempotencyService{
		redis:  redisAdapter,
		config: config,
	}
}

type ProcessingContext struct {
	Reference    string
	RetryCount   int
	IsRetry      bool
	lockAcquired bool
	service      *IdempotencyService
}

func (s *IdempotencyService) AcquireProcessingLock(ctx context.Context, reference string) (*ProcessingContext, error) {
	// Check the long-term delivered marker first.
	deliveredKey := s.config.DeliveredKeyPrefix + reference
	exists, err := s.redis.Exist(deliveredKey)
	if err != nil {
		logger.Warn("Failed to check delivered status", "reference", reference, "error", err)
		// Continue even if the check fails, the database flags catch duplicates
	} else if exists > 0 {
		logger.Info("Receipt already delivered, skipping", "reference", reference)
		return nil, ErrAlreadyDelivered
	}

	retryKey := s.config.RetryKeyPrefix + reference
	retryCountBytes, err := s.redis.Get(retryKey)
	retryCount := 0
	if err == nil && len(retryCountBytes) > 0 {
		fmt.Sscanf(string(retryCountBytes), "%d", &retryCount)
	}

	if retryCount >= s.config.MaxRetries {
		logger.Error("Max retries exceeded for receipt", "reference", reference, "retry_count", retryCount)
		return nil, fmt.Errorf("%w: reference=%s, retries=%d", ErrMaxRetriesExceeded, reference, retryCount)
	}

	lockKey := s.config.LockKeyPrefix + reference
	lockValue := []byte(fmt.Sprintf("%d", time.Now().UnixNano()))

	acquired, err := s.redis.SetNX(lockKey, lockValue, s.config.LockTTL)
	if err != nil {
		logger.Error("Failed to acquire lock", "reference", reference, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrLockAcquireFailed, err)
	}

	if !acquired {
		logger.Info("Lock already held by another consumer", "reference", reference)
		return nil, ErrLockAcquireFailed
	}

	logger.Info("Processing lock acquired",
		"reference", reference,
		"retry_count", retryCount,
		"lock_ttl", s.config.LockTTL)

	return &ProcessingContext{
		Reference:    reference,
		RetryCount:   retryCount,
		IsRetry:      retryCount > 0,
		lockAcquired: true,
		service:      s,
	}, nil
}

func (s *IdempotencyService) MarkSuccess(ctx context.Context, pc *ProcessingContext) error {
	reference := pc.Reference

	deliveredKey := s.config.DeliveredKeyPrefix + reference
	err := s.redis.Set(deliveredKey, []byte("1"), s.config.DeliveredTTL)
	if err != nil {
		logger.Error("Failed to mark receipt as delivered", "reference", reference, "error", err)
		return fmt.Errorf("failed to mark as delivered: %w", err)
	}

	s.cleanup(ctx, pc)

	logger.Info("Receipt marked as delivered",
		"reference", reference,
		"retry_count", pc.RetryCount)

	return nil
}

func (s *IdempotencyService) MarkFailure(ctx context.Context, pc *ProcessingContext, reason error) error {
	reference := pc.Reference

	retryKey := s.config.RetryKeyPrefix + reference
	newRetryCount := pc.RetryCount + 1
	retryValue := []byte(fmt.Sprintf("%d", newRetryCount))

	// Keep the retry counter for longer to track across redeliveries.
	err := s.redis.Set(retryKey, retryValue, s.config.DeliveredTTL)
	if err != nil {
		logger.Error("Failed to increment retry counter", "reference", reference, "error", err)
	}

	lockKey := s.config.LockKeyPrefix + reference
	if err := s.redis.Del(lockKey); err != nil {
		logger.Warn("Failed to remove lock", "reference", reference, "error", err)
	}

	logger.Warn("Receipt redelivery failed, will retry",
		"reference", reference,
		"retry_count", newRetryCount,
		"max_retries", s.config.MaxRetries,
		"reason", reason)

	return nil
}

func (s *IdempotencyService) ReleaseLock(ctx context.Context, pc *ProcessingContext) error {
	if pc == nil || !pc.lockAcquired {
		return nil
	}

	lockKey := s.config.LockKeyPrefix + pc.Reference
	if err := s.redis.Del(lockKey); err != nil {
		logger.Warn("Failed to release lock", "reference", pc.Reference, "error", err)
		return err
	}

	pc.lockAcquired = false
	logger.Debug("Processing lock released", "reference", pc.Reference)
	return nil
}

func (s *IdempotencyService) cleanup(ctx context.Context, pc *ProcessingContext) {
	reference := pc.Reference

	lockKey := s.config.LockKeyPrefix + reference
	if err := s.redis.Del(lockKey); err != nil {
		logger.Warn("Failed to cleanup lock", "reference", reference, "error", err)
	}

	retryKey := s.config.RetryKeyPrefix + reference
	if err := s.redis.Del(retryKey); err != nil {
		logger.Warn("Failed to cleanup retry counter", "reference", reference, "error", err)
	}

	pc.lockAcquired = false
}

func (s *IdempotencyService) GetRetryCount(ctx context.Context, reference string) (int, error) {
	retryKey := s.config.RetryKeyPrefix + reference
	retryCountBytes, err := s.redis.Get(retryKey)
	if err != nil {
		if err == redis.NilError {
			return 0, nil
		}
		return 0, err
	}

	retryCount := 0
	fmt.Sscanf(string(retryCountBytes), "%d", &retryCount)
	return retryCount, nil
}

func (s *IdempotencyService) IsDelivered(ctx context.Context, reference string) (bool, error) {
	deliveredKey := s.config.DeliveredKeyPrefix + reference
	exists, err := s.redis.Exist(deliveredKey)
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
