package bank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig(srv.URL)
	cfg.RetryDelay = 5 * time.Millisecond
	return NewClient(cfg)
}

func TestClient_VerifyTransfer(t *testing.T) {
	t.Run("confirmed transfer", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/transfers/verify/BANK-1000", r.URL.Path)
			json.NewEncoder(w).Encode(VerifyResponse{
				BankReference: "BANK-1000",
				Confirmed:     true,
				Amount:        5000,
			})
		})

		resp, err := c.VerifyTransfer(context.Background(), "BANK-1000")
		require.NoError(t, err)
		assert.True(t, resp.Confirmed)
		assert.Equal(t, int64(5000), resp.Amount)
	})

	t.Run("unconfirmed transfer", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(VerifyResponse{BankReference: "BANK-1001"})
		})

		resp, err := c.VerifyTransfer(context.Background(), "BANK-1001")
		require.NoError(t, err)
		assert.False(t, resp.Confirmed)
	})

	t.Run("unknown reference is final, no retries", func(t *testing.T) {
		var calls atomic.Int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		})

		_, err := c.VerifyTransfer(context.Background(), "BANK-9999")
		assert.ErrorIs(t, err, ErrTransferNotFound)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("transient errors are retried", func(t *testing.T) {
		var calls atomic.Int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 2 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			json.NewEncoder(w).Encode(VerifyResponse{BankReference: "BANK-1002", Confirmed: true})
		})

		resp, err := c.VerifyTransfer(context.Background(), "BANK-1002")
		require.NoError(t, err)
		assert.True(t, resp.Confirmed)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("persistent failure surfaces ErrBankUnavailable", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := c.VerifyTransfer(context.Background(), "BANK-1003")
		assert.ErrorIs(t, err, ErrBankUnavailable)
	})
}
