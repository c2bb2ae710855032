package volc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *ArkClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &ArkClient{
		BaseURL:    srv.URL,
		APIKey:     "test-key",
		HTTPClient: srv.Client(),
	}
}

func TestGenerateImagesB64(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/images/generations", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "b64_json", body["response_format"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"b64_json": "aW1n", "format": "jpeg"},
			},
		})
	})

	img, err := c.GenerateImage(context.Background(), ImageGenParams{Model: "m", Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "data:image/jpeg;base64,aW1n", img)
}

func TestGenerateImagesURLFallback(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"url": "https://example.com/a.png"},
			},
		})
	})

	img, err := c.GenerateImage(context.Background(), ImageGenParams{Model: "m", Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a.png", img)
}

func TestGenerateImagesEmptyResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []map[string]any{}})
	})

	_, err := c.GenerateImages(context.Background(), ImageGenParams{Model: "m", Prompt: "p"})
	assert.Error(t, err)
}

func TestGenerateImagesWithInputs(t *testing.T) {
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"b64_json": "aW1n"}},
		})
	})

	_, err := c.GenerateImage(context.Background(), ImageGenParams{
		Model:       "m",
		Prompt:      "p",
		ImageInputs: []string{"ref-1", "ref-2"},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"ref-1", "ref-2"}, gotBody["image"])
}

func TestGenerateImagesMock(t *testing.T) {
	c := &ArkClient{Mock: true}
	img, err := c.GenerateImage(context.Background(), ImageGenParams{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(img, "data:image/png;base64,"))
}

func TestChatCompletion(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/chat/completions", r.URL.Path)

		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		msgs, _ := body["messages"].([]any)
		assert.Len(t, msgs, 2) // system + user

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "hello"}},
			},
		})
	})

	content, err := c.ChatCompletion(context.Background(), "model", "sys", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "hello", content)
}

func TestChatCompletionEmptyChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []map[string]any{}})
	})

	_, err := c.ChatCompletion(context.Background(), "model", "", "prompt")
	assert.Error(t, err)
}

func TestChatCompletionMock(t *testing.T) {
	c := &ArkClient{Mock: true}
	content, err := c.ChatCompletion(context.Background(), "", "", "")
	require.NoError(t, err)
	assert.Contains(t, content, "Title:")
	assert.Equal(t, 12, strings.Count(content, "Stanza "))
}

func TestChatJSONStripsFence(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "```json\n{\"name\":\"Mia\"}\n```"}},
			},
		})
	})

	var out struct {
		Name string `json:"name"`
	}
	require.NoError(t, c.ChatJSON(context.Background(), "model", "prompt", &out))
	assert.Equal(t, "Mia", out.Name)
}

func TestPostJSONHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := c.ChatCompletion(context.Background(), "model", "", "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
