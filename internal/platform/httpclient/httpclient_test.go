package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caregiver-access/internal/platform/apperrors"
)

func TestDoJSON_RoundTripWithHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/echo", r.URL.Path)
		assert.Equal(t, "k1", r.Header.Get("X-Api-Key"))
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["msg"]})
	}))
	defer srv.Close()

	c, err := NewWithBaseURL(srv.URL, time.Second)
	require.NoError(t, err)
	c.Headers["X-Api-Key"] = "k1"

	var out map[string]string
	require.NoError(t, c.DoJSON(context.Background(), http.MethodPost, "v1/echo", nil, map[string]string{"msg": "hi"}, &out))
	assert.Equal(t, "hi", out["echo"])
}

func TestDoJSON_StatusMapping(t *testing.T) {
	status := http.StatusNotFound
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", status)
	}))
	defer srv.Close()

	c, err := NewWithBaseURL(srv.URL, time.Second)
	require.NoError(t, err)

	err = c.DoJSON(context.Background(), http.MethodGet, "/x", nil, nil, nil)
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
	assert.False(t, errors.Is(err, apperrors.ErrUnavailable))

	status = http.StatusBadGateway
	err = c.DoJSON(context.Background(), http.MethodGet, "/x", nil, nil, nil)
	assert.Equal(t, http.StatusBadGateway, StatusCode(err))
	assert.True(t, errors.Is(err, apperrors.ErrUnavailable))
}

func TestDoJSON_TransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(200 * time.Millisecond)
	err := c.DoJSON(context.Background(), http.MethodGet, url+"/x", nil, nil, nil)
	assert.True(t, errors.Is(err, apperrors.ErrUnavailable))
}

func TestDoJSON_RelativePathNeedsBaseURL(t *testing.T) {
	c := New(0)
	assert.Error(t, c.DoJSON(context.Background(), http.MethodGet, "/x", nil, nil, nil))
}
