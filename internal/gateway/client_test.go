package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/homeserve/internal/domain"
	"github.com/vladislavdragonenkov/homeserve/internal/gateway"
)

func newClient(baseURL string) *gateway.Client {
	return gateway.NewClient(gateway.Config{
		BaseURL:       baseURL,
		StoreID:       "store-1",
		StorePassword: "secret",
	}, nil)
}

func sessionRequest() domain.SessionRequest {
	return domain.SessionRequest{
		TransactionID: "txn-1",
		OrderRef:      "HS-20260831-ABCDEF",
		Amount:        decimal.New(11500, -2),
		Currency:      "BDT",
		CustomerName:  "Rahim Uddin",
		CustomerPhone: "+8801700000000",
	}
}

func TestCreateSessionSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/sessions", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "store-1", body["store_id"])
		require.Equal(t, "secret", body["store_password"])
		require.Equal(t, "txn-1", body["tran_id"])
		require.Equal(t, "115.00", body["amount"])

		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":       "SUCCESS",
			"session_id":   "sess-1",
			"redirect_url": "https://gateway.example/pay/sess-1",
		})
	}))
	defer srv.Close()

	session, err := newClient(srv.URL).CreateSession(context.Background(), sessionRequest())
	require.NoError(t, err)
	require.Equal(t, "sess-1", session.SessionID)
	require.Equal(t, "https://gateway.example/pay/sess-1", session.RedirectURL)
}

func TestCreateSessionDeclined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":        "FAILED",
			"failed_reason": "store disabled",
		})
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).CreateSession(context.Background(), sessionRequest())
	require.ErrorIs(t, err, domain.ErrGatewayRejected)
}

func TestCreateSessionServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).CreateSession(context.Background(), sessionRequest())
	require.ErrorIs(t, err, domain.ErrGatewayUnavailable)
}

func TestCreateSessionNetworkErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // сервер уже мёртв

	_, err := newClient(srv.URL).CreateSession(context.Background(), sessionRequest())
	require.ErrorIs(t, err, domain.ErrGatewayUnavailable)
}

func TestCreateSessionTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := gateway.NewClient(gateway.Config{
		BaseURL:        srv.URL,
		RequestTimeout: 50 * time.Millisecond,
	}, nil)

	_, err := client.CreateSession(context.Background(), sessionRequest())
	require.ErrorIs(t, err, domain.ErrGatewayUnavailable)
}

func TestValidateSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/validate", r.URL.Path)
		require.Equal(t, "val-1", r.URL.Query().Get("val_id"))

		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":   "valid",
			"tran_id":  "txn-1",
			"val_id":   "val-1",
			"amount":   "115.00",
			"currency": "BDT",
		})
	}))
	defer srv.Close()

	result, err := newClient(srv.URL).Validate(context.Background(), "val-1")
	require.NoError(t, err)
	require.Equal(t, "VALID", result.Status) // статус нормализуется
	require.Equal(t, "txn-1", result.TransactionID)
	require.True(t, result.Amount.Equal(decimal.New(11500, -2)))
	require.NotEmpty(t, result.Raw)
}

func TestValidateMalformedAmount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status": "VALID",
			"amount": "one hundred",
		})
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).Validate(context.Background(), "val-1")
	require.Error(t, err)
}

func TestValidateRejectedStatusCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).Validate(context.Background(), "val-1")
	require.ErrorIs(t, err, domain.ErrGatewayRejected)
}
