package main

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMockBank_ConfirmRateConcurrency(t *testing.T) {
	bank := NewMockBank(1.0, time.Millisecond, time.Millisecond, "", "secret")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bank.SetConfirmRate(float64(i) / 10)
		}(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = bank.ConfirmRate()
		}()
	}
	wg.Wait()

	rate := bank.ConfirmRate()
	assert.GreaterOrEqual(t, rate, 0.0)
	assert.LessOrEqual(t, rate, 1.0)
}

func TestMockBank_SetConfirmRateVisibleToSettlement(t *testing.T) {
	bank := NewMockBank(1.0, 0, 0, "", "secret")
	bank.SetConfirmRate(0)

	bank.mu.Lock()
	confirmed := bank.shouldConfirm()
	bank.mu.Unlock()

	assert.False(t, confirmed)
}
