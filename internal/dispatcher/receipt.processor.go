package dispatcher

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/zingsurvey/payment-gateway/internal/model"
	"github.com/zingsurvey/payment-gateway/internal/queue"
	"github.com/zingsurvey/payment-gateway/pkg/logger"
)

// Redeliverer resends the receipt copies a job marks as missing.
type Redeliverer interface {
	Redeliver(ctx context.Context, job model.ReceiptRetryJob) (*model.ReceiptDispatchResult, error)
}

type ReceiptRetryProcessor struct {
	receipts    Redeliverer
	idempotency *IdempotencyService
}

func NewReceiptRetryProcessor(receipts Redeliverer, idempotency *IdempotencyService) *ReceiptRetryProcessor {
	return &ReceiptRetryProcessor{
		receipts:    receipts,
		idempotency: idempotency,
	}
}

func (p *ReceiptRetryProcessor) GetType() string {
	return "receipt-retry"
}

// Process resends the missing receipt copies for one queued job with
// idempotency guarantees.
func (p *ReceiptRetryProcessor) Process(ctx context.Context, queueMessage *queue.Message) error {
	var job model.ReceiptRetryJob
	err := json.Unmarshal(queueMessage.Data, &job)
	if err != nil {
		logger.Error("Failed to unmarshal retry job", "error", err)
		return err // malformed job goes to the DLQ
	}

	procCtx, err := p.idempotency.AcquireProcessingLock(ctx, job.Reference)
	if err != nil {
		if errors.Is(err, ErrAlreadyDelivered) {
			// Already delivered - ACK to remove from queue
			logger.Info("Receipt already delivered, skipping", "reference", job.Reference)
			return nil
		}
		if errors.Is(err, ErrMaxRetriesExceeded) {
			// Give up - ACK to move to DLQ, the receipt stays incomplete in
			// the database for manual follow-up
			logger.Error("Max retries exceeded", "reference", job.Reference)
			return nil
		}
		if errors.Is(err, ErrLockAcquireFailed) {
			// Another consumer is processing - NACK to retry later
			logger.Info("Lock held by another consumer, will retry", "reference", job.Reference)
			return errors.New("lock held by another consumer")
		}
		logger.Error("Failed to acquire lock", "reference", job.Reference, "error", err)
		return err
	}

	defer func() {
		if procCtx.lockAcquired {
			p.idempotency.ReleaseLock(ctx, procCtx)
		}
	}()

	logger.Info("Redelivering receipt",
		"reference", job.Reference,
		"receipt_number", job.ReceiptNumber,
		"retry_count", procCtx.RetryCount,
		"is_retry", procCtx.IsRetry)

	result, err := p.receipts.Redeliver(ctx, job)
	if err != nil {
		logger.Error("Failed to redeliver receipt", "reference", job.Reference, "error", err)
		if markErr := p.idempotency.MarkFailure(ctx, procCtx, err); markErr != nil {
			logger.Error("Failed to mark failure", "reference", job.Reference, "error", markErr)
		}
		return err // NACK to retry from queue
	}

	logger.Info("Receipt redelivered",
		"reference", job.Reference,
		"receipt_number", result.ReceiptNumber,
		"customer", result.SentToCustomer,
		"admin", result.SentToAdmin)

	if markErr := p.idempotency.MarkSuccess(ctx, procCtx); markErr != nil {
		logger.Error("Failed to mark success", "reference", job.Reference, "error", markErr)
		// Continue - the copies went out
	}

	return nil
}
