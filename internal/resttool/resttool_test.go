package resttool

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeRequestDecodesJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"login":"google","public_repos":2500}`))
	}))
	defer server.Close()

	resp := NewClient(time.Second).MakeRequest(context.Background(), server.URL+"/users/google")
	require.True(t, resp.Success)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "google", data["login"])
	assert.Equal(t, float64(2500), data["public_repos"])
}

func TestMakeRequestFallsBackToText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("plain body"))
	}))
	defer server.Close()

	resp := NewClient(time.Second).MakeRequest(context.Background(), server.URL)
	assert.True(t, resp.Success)
	assert.Equal(t, "plain body", resp.Data)
}

func TestMakeRequestNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	resp := NewClient(time.Second).MakeRequest(context.Background(), server.URL)
	assert.False(t, resp.Success)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Request failed with status code 404", resp.Error)
	assert.Nil(t, resp.Data)
}

func TestMakeRequestTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	address := server.URL
	server.Close()

	resp := NewClient(time.Second).MakeRequest(context.Background(), address)
	assert.False(t, resp.Success)
	assert.Zero(t, resp.StatusCode)
	assert.Contains(t, resp.Error, "Request failed: ")
}

func TestMakeRequestRejectsInvalidURL(t *testing.T) {
	for _, raw := range []string{"", "ftp://example.com", "not a url", "http://"} {
		resp := NewClient(0).MakeRequest(context.Background(), raw)
		assert.False(t, resp.Success, raw)
		assert.Contains(t, resp.Error, "invalid URL", raw)
	}
}
