package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/embeddings", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req embeddingsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "text-embedding-3-small", req.Model)

		resp := map[string]interface{}{"data": []map[string]interface{}{}}
		data := resp["data"].([]map[string]interface{})
		// Return the vectors out of order; the client must reorder by index.
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]interface{}{
				"index":     i,
				"embedding": []float32{float32(i), 0, 0},
			})
		}
		resp["data"] = data
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewEmbeddingsClient(server.URL, "test-key", "text-embedding-3-small")
	vectors, err := client.Embed(context.Background(), []string{"first", "second", "third"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	for i, v := range vectors {
		require.Equal(t, float32(i), v[0], "vector %d must land at its input index", i)
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	client := NewEmbeddingsClient("http://unused.invalid", "k", "m")
	vectors, err := client.Embed(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, vectors)
}

func TestEmbedUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewEmbeddingsClient(server.URL, "test-key", "text-embedding-3-small")
	_, err := client.Embed(context.Background(), []string{"text"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "429")
}

func TestEmbedDuplicateIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Two entries for index 0; index 1 never arrives.
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"index": 0, "embedding": []float32{1, 0, 0}},
				{"index": 0, "embedding": []float32{0, 1, 0}},
			},
		})
	}))
	defer server.Close()

	client := NewEmbeddingsClient(server.URL, "test-key", "text-embedding-3-small")
	_, err := client.Embed(context.Background(), []string{"one", "two"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no vector for input 1")
}

func TestEmbedCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"index": 0, "embedding": []float32{1, 0}},
			},
		})
	}))
	defer server.Close()

	client := NewEmbeddingsClient(server.URL, "test-key", "text-embedding-3-small")
	_, err := client.Embed(context.Background(), []string{"one", "two"})
	require.Error(t, err)
}
