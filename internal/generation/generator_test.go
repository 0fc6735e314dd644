package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPGenerator_RequiresBaseURLAndAPIKey(t *testing.T) {
	_, err := NewHTTPGenerator(HTTPConfig{})
	assert.Error(t, err)

	_, err = NewHTTPGenerator(HTTPConfig{BaseURL: "http://x"})
	assert.Error(t, err)
}

func TestHTTPGenerator_Generate_ReturnsProviderAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/generate", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "how does X work", req.Query)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(generateResponse{Answer: "X works by Y."})
	}))
	defer srv.Close()

	g, err := NewHTTPGenerator(HTTPConfig{BaseURL: srv.URL, APIKey: "secret", Model: "test-model"})
	require.NoError(t, err)

	answer, err := g.Generate(context.Background(), "how does X work", "context blob", 256)
	require.NoError(t, err)
	assert.Equal(t, "X works by Y.", answer)
}

func TestHTTPGenerator_Generate_ErrorsOnNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g, err := NewHTTPGenerator(HTTPConfig{BaseURL: srv.URL, APIKey: "secret"})
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "q", "c", 10)
	assert.Error(t, err)
}

func TestHTTPGenerator_Generate_ErrorsOnEmptyAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(generateResponse{})
	}))
	defer srv.Close()

	g, err := NewHTTPGenerator(HTTPConfig{BaseURL: srv.URL, APIKey: "secret"})
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "q", "c", 10)
	assert.Error(t, err)
}
