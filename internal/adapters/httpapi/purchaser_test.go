package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bnema/stars-relay/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurchaseReturnsTransactionHash(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var body purchaseRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice", body.Username)
		assert.Equal(t, 50, body.Amount)
		assert.Equal(t, "frag", body.FragmentCookies)
		assert.Equal(t, "seed words", body.Seed)
		assert.False(t, body.ShowSender)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"transaction_hash":"0xabc"}`))
	}))
	t.Cleanup(server.Close)

	metrics := newCountingMetrics()
	purchaser := Purchaser{
		Endpoint:        server.URL,
		FragmentCookies: "frag",
		Seed:            "seed words",
		HTTPClient:      server.Client(),
		Retrier:         Retrier{Clock: &fakeClock{}},
		Metrics:         metrics,
	}

	result, ok := purchaser.Purchase(context.Background(), "alice", 50)
	require.True(t, ok)
	assert.True(t, result.Success)
	assert.Equal(t, "0xabc", result.TransactionHash)
	assert.Equal(t, []bool{true}, metrics.purchases)
}

func TestPurchaseLogsRecipientFingerprintOnly(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"transaction_hash":"0xabc"}`))
	}))
	t.Cleanup(server.Close)

	var logs bytes.Buffer
	purchaser := Purchaser{
		Endpoint:   server.URL,
		HTTPClient: server.Client(),
		Retrier:    Retrier{Clock: &fakeClock{}},
		Logger:     zerolog.New(&logs),
	}

	_, ok := purchaser.Purchase(context.Background(), "alice", 50)
	require.True(t, ok)
	assert.Contains(t, logs.String(), domain.FingerprintPrefix("@alice"))
	assert.NotContains(t, logs.String(), "alice")
}

func TestPurchaseTreatsSuccessFalseAsFailure(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		_, _ = w.Write([]byte(`{"success":false,"message":"unknown user"}`))
	}))
	t.Cleanup(server.Close)

	clock := &fakeClock{}
	metrics := newCountingMetrics()
	purchaser := Purchaser{
		Endpoint:   server.URL,
		HTTPClient: server.Client(),
		Retrier:    Retrier{Attempts: 3, BackoffFactor: 2, Clock: clock},
		Metrics:    metrics,
	}

	result, ok := purchaser.Purchase(context.Background(), "ghost", 10)
	assert.False(t, ok)
	assert.Equal(t, "", result.TransactionHash)
	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, clock.Sleeps())
	assert.Equal(t, []bool{false}, metrics.purchases)
}

func TestPurchaseRetriesNonOKStatus(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"transaction_hash":"0xdef"}`))
	}))
	t.Cleanup(server.Close)

	clock := &fakeClock{}
	purchaser := Purchaser{
		Endpoint:   server.URL,
		HTTPClient: server.Client(),
		Retrier:    Retrier{Clock: clock},
	}

	result, ok := purchaser.Purchase(context.Background(), "alice", 5)
	require.True(t, ok)
	assert.Equal(t, "0xdef", result.TransactionHash)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, clock.Sleeps())
}

func TestPurchaseAttemptTimeout(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(200 * time.Millisecond):
		}
		_, _ = w.Write([]byte(`{"success":true,"transaction_hash":"late"}`))
	}))
	t.Cleanup(server.Close)

	purchaser := Purchaser{
		Endpoint:       server.URL,
		HTTPClient:     server.Client(),
		AttemptTimeout: 20 * time.Millisecond,
		Retrier:        Retrier{Attempts: 2, Clock: &fakeClock{}},
	}

	_, ok := purchaser.Purchase(context.Background(), "alice", 5)
	assert.False(t, ok)
	assert.Equal(t, DefaultPurchaseTimeout, Purchaser{}.attemptTimeout())
}
