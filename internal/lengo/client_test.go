package lengo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(url string) *Client {
	return NewClient(Config{
		APIURL:  url,
		SiteID:  "site-1",
		APIKey:  "key-1",
		Timeout: 2 * time.Second,
	}, zap.NewNop())
}

func TestCheckStatus(t *testing.T) {
	t.Run("decodes a successful response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "Basic key-1", r.Header.Get("Authorization"))

			var req map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "site-1", req["site_id"])
			assert.Equal(t, "pay-42", req["pay_id"])

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"SUCCESS","pay_id":"pay-42","amount":150000,"date":"2026-08-15T10:00:00Z"}`))
		}))
		defer server.Close()

		snapshot, err := newTestClient(server.URL).CheckStatus(context.Background(), "pay-42")
		require.NoError(t, err)

		assert.Equal(t, "SUCCESS", snapshot.Status)
		assert.Equal(t, "pay-42", snapshot.PayID)
		assert.Equal(t, "150000", snapshot.Amount.String())
	})

	t.Run("returns ErrUnauthorized on 401", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid credentials"}`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).CheckStatus(context.Background(), "pay-42")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("returns ErrUnavailable on 500", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).CheckStatus(context.Background(), "pay-42")
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("returns ErrUnavailable when the provider is unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		_, err := newTestClient(server.URL).CheckStatus(context.Background(), "pay-42")
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("returns ErrUnavailable on a malformed response body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).CheckStatus(context.Background(), "pay-42")
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("rejects an empty pay_id before calling the provider", func(t *testing.T) {
		called := false
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).CheckStatus(context.Background(), "")
		assert.Error(t, err)
		assert.False(t, called)
	})
}
