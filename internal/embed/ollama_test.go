package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	verrs "github.com/vaultmcp/vaultmcp/internal/errors"
)

func ollamaTestServer(t *testing.T, dims int, models []string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/embed", func(w http.ResponseWriter, r *http.Request) {
		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		embeddings := make([][]float32, len(req.Input))
		for i := range req.Input {
			vec := make([]float32, dims)
			vec[i%dims] = 1
			embeddings[i] = vec
		}
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Model: req.Model, Embeddings: embeddings})
	})
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		resp := ollamaTagsResponse{}
		for _, m := range models {
			resp.Models = append(resp.Models, struct {
				Name string `json:"name"`
			}{Name: m})
		}
		json.NewEncoder(w).Encode(resp)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaEmbedBatch(t *testing.T) {
	srv := ollamaTestServer(t, 8, []string{"nomic-embed-text"})
	e := NewOllamaEmbedder(OllamaConfig{Host: srv.URL, Dimensions: 8, MaxRetries: 1})

	vecs, err := e.EmbedBatch(context.Background(), []string{"one", "two"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Len(t, vecs[0], 8)
	assert.NotEqual(t, vecs[0], vecs[1])
}

func TestOllamaDimensionMismatch(t *testing.T) {
	srv := ollamaTestServer(t, 4, nil)
	e := NewOllamaEmbedder(OllamaConfig{Host: srv.URL, Dimensions: 8, MaxRetries: 1})

	_, err := e.EmbedBatch(context.Background(), []string{"one"})
	require.Error(t, err)
}

func TestOllamaMisalignedResponse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/embed", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float32{{1, 0}}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	e := NewOllamaEmbedder(OllamaConfig{Host: srv.URL, Dimensions: 2, MaxRetries: 1})
	_, err := e.EmbedBatch(context.Background(), []string{"one", "two"})
	require.Error(t, err)
	assert.Equal(t, verrs.ErrCodeEmbeddingFailed, verrs.GetCode(err))
}

func TestOllamaAvailable(t *testing.T) {
	srv := ollamaTestServer(t, 8, []string{"nomic-embed-text:latest"})

	available := NewOllamaEmbedder(OllamaConfig{Host: srv.URL, Model: "nomic-embed-text"})
	assert.True(t, available.Available(context.Background()))

	missing := NewOllamaEmbedder(OllamaConfig{Host: srv.URL, Model: "other-model"})
	assert.False(t, missing.Available(context.Background()))
}

func TestOllamaUnreachable(t *testing.T) {
	e := NewOllamaEmbedder(OllamaConfig{
		Host: "http://127.0.0.1:1", Dimensions: 8, MaxRetries: 1,
	})

	assert.False(t, e.Available(context.Background()))
	_, err := e.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.True(t, verrs.IsRetryable(err))
}

func TestOllamaEmptyBatch(t *testing.T) {
	e := NewOllamaEmbedder(OllamaConfig{})
	vecs, err := e.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}
