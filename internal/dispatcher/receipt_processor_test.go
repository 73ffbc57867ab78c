package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zingsurvey/payment-gateway/internal/model"
	"github.com/zingsurvey/payment-gateway/internal/queue"
)

type fakeRedeliverer struct {
	calls []model.ReceiptRetryJob
	err   error
}

func (f *fakeRedeliverer) Redeliver(ctx context.Context, job model.ReceiptRetryJob) (*model.ReceiptDispatchResult, error) {
	f.calls = append(f.calls, job)
	if f.err != nil {
		return nil, f.err
	}
	return &model.ReceiptDispatchResult{
		ReceiptNumber:  job.ReceiptNumber,
		SentToCustomer: true,
		SentToAdmin:    true,
	}, nil
}

func retryJobMessage(t *testing.T, job model.ReceiptRetryJob) *queue.Message {
	t.Helper()
	data, err := json.Marshal(job)
	require.NoError(t, err)
	return &queue.Message{ID: "1-0", Data: data}
}

func TestReceiptRetryProcessor_Process(t *testing.T) {
	ctx := context.Background()
	job := model.ReceiptRetryJob{
		PaymentID:     1,
		Reference:     "ZING-1-aaaaaaaa",
		ReceiptNumber: "RCP-100",
		RetryCustomer: true,
	}

	t.Run("successful redelivery acks and marks delivered", func(t *testing.T) {
		redeliverer := &fakeRedeliverer{}
		idem := NewIdempotencyService(newMockRedisAdapter(), DefaultIdempotencyConfig())
		p := NewReceiptRetryProcessor(redeliverer, idem)

		err := p.Process(ctx, retryJobMessage(t, job))
		require.NoError(t, err)
		assert.Len(t, redeliverer.calls, 1)

		delivered, err := idem.IsDelivered(ctx, job.Reference)
		require.NoError(t, err)
		assert.True(t, delivered)
	})

	t.Run("delivered jobs are skipped", func(t *testing.T) {
		redeliverer := &fakeRedeliverer{}
		idem := NewIdempotencyService(newMockRedisAdapter(), DefaultIdempotencyConfig())
		p := NewReceiptRetryProcessor(redeliverer, idem)

		require.NoError(t, p.Process(ctx, retryJobMessage(t, job)))
		require.NoError(t, p.Process(ctx, retryJobMessage(t, job)))

		assert.Len(t, redeliverer.calls, 1)
	})

	t.Run("failed redelivery nacks and counts the retry", func(t *testing.T) {
		redeliverer := &fakeRedeliverer{err: errors.New("mail provider down")}
		idem := NewIdempotencyService(newMockRedisAdapter(), DefaultIdempotencyConfig())
		p := NewReceiptRetryProcessor(redeliverer, idem)

		err := p.Process(ctx, retryJobMessage(t, job))
		require.Error(t, err)

		count, err := idem.GetRetryCount(ctx, job.Reference)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("exhausted retries ack without redelivering", func(t *testing.T) {
		redeliverer := &fakeRedeliverer{err: errors.New("mail provider down")}
		cfg := DefaultIdempotencyConfig()
		cfg.MaxRetries = 1
		idem := NewIdempotencyService(newMockRedisAdapter(), cfg)
		p := NewReceiptRetryProcessor(redeliverer, idem)

		require.Error(t, p.Process(ctx, retryJobMessage(t, job)))

		// Second attempt is over the limit and must be acked away.
		err := p.Process(ctx, retryJobMessage(t, job))
		require.NoError(t, err)
		assert.Len(t, redeliverer.calls, 1)
	})

	t.Run("malformed payload is an error", func(t *testing.T) {
		redeliverer := &fakeRedeliverer{}
		idem := NewIdempotencyService(newMockRedisAdapter(), DefaultIdempotencyConfig())
		p := NewReceiptRetryProcessor(redeliverer, idem)

		err := p.Process(ctx, &queue.Message{ID: "1-0", Data: []byte("not json")})
		require.Error(t, err)
		assert.Empty(t, redeliverer.calls)
	})
}
