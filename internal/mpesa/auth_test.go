package mpesa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenCachedWithinWindow(t *testing.T) {
	var fetches atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		require.Equal(t, "client_credentials", r.URL.Query().Get("grant_type"))
		json.NewEncoder(w).Encode(authResponse{AccessToken: "token123", ExpiresIn: "3599"})
	}))
	defer srv.Close()

	now := time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC)
	ts := NewTokenSource(srv.URL, "key", "secret", srv.Client())
	ts.now = func() time.Time { return now }

	ctx := context.Background()

	token, err := ts.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, "token123", token)

	_, err = ts.Token(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, fetches.Load(), "second call within window must not refetch")

	// Just inside the 55 minute window.
	now = now.Add(54 * time.Minute)
	_, err = ts.Token(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, fetches.Load())

	// Past expiry.
	now = now.Add(2 * time.Minute)
	_, err = ts.Token(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, fetches.Load(), "call after expiry must refetch")
}

func TestTokenUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"errorMessage":"Invalid credentials"}`))
	}))
	defer srv.Close()

	ts := NewTokenSource(srv.URL, "key", "wrong", srv.Client())

	_, err := ts.Token(context.Background())
	require.ErrorIs(t, err, ErrAuth)
}

func TestTokenMissingInResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ts := NewTokenSource(srv.URL, "key", "secret", srv.Client())

	_, err := ts.Token(context.Background())
	require.ErrorIs(t, err, ErrAuth)
}
