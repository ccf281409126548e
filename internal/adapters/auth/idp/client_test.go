package idp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIdP(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != verifyPath || r.Header.Get("X-Api-Key") != "k" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch body["token"] {
		case "good":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"user_id":"elder-1","role":"elder","name":"Madam Lee"}`))
		case "boom":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVerifier(t *testing.T) {
	srv := newIdP(t)
	c, err := NewClient(Config{BaseURL: srv.URL, APIKey: "k"})
	require.NoError(t, err)
	v := NewVerifier(c)

	claims, err := v.Verify(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "elder-1", claims.UserID)
	assert.Equal(t, "elder", claims.Role)
	assert.Equal(t, "Madam Lee", claims.Name)

	_, err = v.Verify(context.Background(), "bad")
	assert.True(t, errors.Is(err, ErrUnauthorized))

	_, err = v.Verify(context.Background(), "boom")
	assert.True(t, errors.Is(err, ErrUpstream))

	_, err = v.Verify(context.Background(), " ")
	assert.True(t, errors.Is(err, ErrTokenEmpty))
}

func TestClient_NotConfigured(t *testing.T) {
	c, err := NewClient(Config{BaseURL: "http://localhost"})
	require.NoError(t, err)

	_, err = c.VerifyToken(context.Background(), "good")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
