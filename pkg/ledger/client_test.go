package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/perpdesk/pkg/errors"
)

func newTestConfig(url string) Config {
	return Config{
		BaseURL:        url,
		Timeout:        2 * time.Second,
		ConfirmTimeout: 500 * time.Millisecond,
		PollInterval:   time.Millisecond,
	}
}

func TestStateClient_AccountState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/users/SubAcct111", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"subAccountId": 1,
			"authority": "Wallet111",
			"spotPositions": [{"marketIndex": 0, "scaledBalance": "10", "balanceType": {"deposit": {}}, "tokenAmount": "5000000"}],
			"spotMarkets": [{"marketIndex": 0, "decimals": 6, "lastOraclePrice": "1000000"}]
		}`))
	}))
	defer srv.Close()

	raw, err := NewStateClient(newTestConfig(srv.URL)).AccountState(context.Background(), "SubAcct111")
	require.NoError(t, err)
	assert.Equal(t, uint16(1), raw.SubAccountID)
	assert.Equal(t, "Wallet111", raw.Authority)
	require.Len(t, raw.SpotPositions, 1)
	assert.True(t, raw.SpotPositions[0].BalanceType.Is("deposit"))
	assert.Equal(t, "5000000", raw.SpotPositions[0].TokenAmount.String())
}

func TestStateClient_Subaccounts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/authorities/Wallet111/users", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"users": []map[string]any{
				{"subAccountId": 0, "name": "Main", "authority": "Wallet111", "delegate": "Del0"},
				{"subAccountId": 1, "name": "", "authority": "Wallet111", "delegate": "Del1"},
			},
		})
	}))
	defer srv.Close()

	users, err := NewStateClient(newTestConfig(srv.URL)).Subaccounts(context.Background(), "Wallet111")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Main", users[0].Name)
	assert.Equal(t, "Del1", users[1].Delegate)
}

func TestStateClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   errors.ErrorCode
	}{
		{"not found", http.StatusNotFound, errors.ErrCodeAccountNotFound},
		{"bad request", http.StatusBadRequest, errors.ErrCodeInvalidRequest},
		{"node down", http.StatusServiceUnavailable, errors.ErrCodeUpstreamUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"boom"}`))
			}))
			defer srv.Close()

			_, err := NewStateClient(newTestConfig(srv.URL)).AccountState(context.Background(), "x")
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
			assert.Contains(t, err.Error(), "boom")
		})
	}
}

func TestStateClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewStateClient(newTestConfig(url)).Subaccounts(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, errors.IsRetryable(err))
}
