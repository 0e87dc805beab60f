package ledger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/uhyunpark/perpdesk/pkg/app/core/transaction"
	"github.com/uhyunpark/perpdesk/pkg/errors"
)

func testTx() *transaction.SignedTransaction {
	return &transaction.SignedTransaction{
		Type: transaction.TxTypePlan,
		Plan: &transaction.PlanPayload{
			Owner: "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0",
			Nonce: "1",
		},
		Signature: "0x01",
	}
}

// fakeNode accepts every submission as tx-1 and answers status polls from
// statuses in order, repeating the last one.
func fakeNode(t *testing.T, statuses ...string) (*httptest.Server, *int32) {
	t.Helper()
	var polls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/transactions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"txId":"tx-1"}`))
	})
	mux.HandleFunc("/v1/transactions/tx-1", func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(&polls, 1)) - 1
		if n >= len(statuses) {
			n = len(statuses) - 1
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(statuses[n]))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &polls
}

func TestBroadcaster_Confirmed(t *testing.T) {
	srv, polls := fakeNode(t,
		`{"status":"pending"}`,
		`{"status":"pending"}`,
		`{"status":"confirmed"}`,
	)
	b := NewBroadcaster(newTestConfig(srv.URL), zap.NewNop().Sugar(), nil)

	res, err := b.Broadcast(context.Background(), testTx())
	require.NoError(t, err)
	assert.Equal(t, transaction.Ok{ID: "tx-1"}, res)
	assert.Equal(t, int32(3), atomic.LoadInt32(polls))
}

func TestBroadcaster_Failed(t *testing.T) {
	srv, _ := fakeNode(t, `{"status":"failed","error":"insufficient collateral"}`)
	b := NewBroadcaster(newTestConfig(srv.URL), zap.NewNop().Sugar(), nil)

	res, err := b.Broadcast(context.Background(), testTx())
	require.NoError(t, err)
	assert.Equal(t, transaction.Failed{ID: "tx-1", Reason: "insufficient collateral"}, res)
}

func TestBroadcaster_TimedOut(t *testing.T) {
	srv, _ := fakeNode(t, `{"status":"pending"}`)
	cfg := newTestConfig(srv.URL)
	cfg.ConfirmTimeout = 50 * time.Millisecond
	b := NewBroadcaster(cfg, zap.NewNop().Sugar(), nil)

	res, err := b.Broadcast(context.Background(), testTx())
	require.NoError(t, err)
	timedOut, ok := res.(transaction.TimedOut)
	require.True(t, ok, "got %T", res)
	assert.Equal(t, "tx-1", timedOut.ID)
	assert.Greater(t, timedOut.After, time.Duration(0))
}

func TestBroadcaster_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"stale nonce"}`))
	}))
	defer srv.Close()

	b := NewBroadcaster(newTestConfig(srv.URL), zap.NewNop().Sugar(), nil)
	res, err := b.Broadcast(context.Background(), testTx())
	require.NoError(t, err)
	assert.Equal(t, transaction.Failed{Reason: "stale nonce"}, res)
}

func TestBroadcaster_NodeDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	b := NewBroadcaster(newTestConfig(srv.URL), zap.NewNop().Sugar(), nil)
	res, err := b.Broadcast(context.Background(), testTx())
	assert.Nil(t, res)
	assert.True(t, errors.HasCode(err, errors.ErrCodeUpstreamUnavailable))
}

func TestBroadcaster_CallerCancelled(t *testing.T) {
	srv, _ := fakeNode(t, `{"status":"pending"}`)
	cfg := newTestConfig(srv.URL)
	cfg.ConfirmTimeout = 5 * time.Second
	b := NewBroadcaster(cfg, zap.NewNop().Sugar(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	res, err := b.Broadcast(ctx, testTx())
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
}
