package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zingsurvey/payment-gateway/internal/model"
)

func TestReceiptRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReceiptRepository(db.DB)
	ctx := context.Background()

	created, err := repo.Create(ctx, &model.Receipt{
		ReceiptNumber: "RCP-1000-1",
		PaymentID:     1,
		Reference:     "ZING-1-aaaaaaaa",
		Email:         "payer@example.com",
		Amount:        5000,
		Currency:      "NGN",
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	t.Run("get by number", func(t *testing.T) {
		r, err := repo.GetByNumber(ctx, "RCP-1000-1")
		require.NoError(t, err)
		assert.Equal(t, created.ID, r.ID)
		assert.False(t, r.SentToCustomer)
		assert.False(t, r.SentToAdmin)
	})

	t.Run("get by payment id", func(t *testing.T) {
		r, err := repo.GetByPaymentID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "RCP-1000-1", r.ReceiptNumber)
	})

	t.Run("missing receipt", func(t *testing.T) {
		_, err := repo.GetByNumber(ctx, "RCP-0-0")
		assert.ErrorIs(t, err, ErrReceiptNotFound)
	})

	t.Run("mark one copy sent", func(t *testing.T) {
		require.NoError(t, repo.MarkSent(ctx, created.ID, true, false))

		r, err := repo.GetByNumber(ctx, "RCP-1000-1")
		require.NoError(t, err)
		assert.True(t, r.SentToCustomer)
		assert.False(t, r.SentToAdmin)
	})

	t.Run("later retry cannot clear earlier flag", func(t *testing.T) {
		require.NoError(t, repo.MarkSent(ctx, created.ID, false, true))

		r, err := repo.GetByNumber(ctx, "RCP-1000-1")
		require.NoError(t, err)
		assert.True(t, r.SentToCustomer)
		assert.True(t, r.SentToAdmin)
	})

	t.Run("no flags is a no-op", func(t *testing.T) {
		assert.NoError(t, repo.MarkSent(ctx, created.ID, false, false))
	})

	t.Run("unknown receipt id", func(t *testing.T) {
		assert.ErrorIs(t, repo.MarkSent(ctx, 99999, true, false), ErrReceiptNotFound)
	})
}
