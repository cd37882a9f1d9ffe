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

func newEden(t *testing.T, handler http.HandlerFunc) *EdenAIAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewEdenAIAdapter(&EdenAIConfig{BaseURL: srv.URL, APIKey: "eden_test"})
}

func TestEdenAIAdapter_Generate(t *testing.T) {
	a := newEden(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/video/generation", r.URL.Path)
		assert.Equal(t, "Bearer eden_test", r.Header.Get("Authorization"))

		var req edenVideoRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, edenVideoRequest{
			Providers:  "runway",
			Text:       "a cat surfing",
			Resolution: "1024x576",
			FPS:        24,
			Duration:   3,
		}, req)

		_, _ = w.Write([]byte(`{"runway":{"status":"success","items":[{"video_resource_url":"https://cdn.example/v.mp4"}]}}`))
	})

	out, err := a.Generate(context.Background(), "a cat surfing")
	require.NoError(t, err)
	assert.JSONEq(t, `{"url":"https://cdn.example/v.mp4"}`, string(out))
}

func TestEdenAIAdapter_MissingURL(t *testing.T) {
	bodies := map[string]string{
		"no provider key": `{}`,
		"no items":        `{"runway":{"status":"fail","items":[]}}`,
		"empty url":       `{"runway":{"items":[{"video_resource_url":""}]}}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			a := newEden(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})

			out, err := a.Generate(context.Background(), "a cat surfing")
			assert.Nil(t, out)
			pe, ok := AsProviderError(err)
			require.True(t, ok)
			assert.Equal(t, KindOther, pe.Kind)
			assert.Equal(t, "No video URL in response", pe.Message)
		})
	}
}

func TestEdenAIAdapter_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    ErrorKind
		message string
	}{
		{"insufficient credits", http.StatusBadRequest, `{"code":"INSUFFICIENT_CREDITS","message":"out of credits"}`, KindInsufficientCredits, "out of credits"},
		{"rate limit", http.StatusBadRequest, `{"error":{"code":"RATE_LIMIT_EXCEEDED","message":"too fast"}}`, KindRateLimited, "too fast"},
		{"invalid key", http.StatusBadRequest, `{"code":"INVALID_API_KEY","message":"bad key"}`, KindMisconfigured, "bad key"},
		{"unknown code", http.StatusBadRequest, `{"error":{"type":"validation","message":"text too long"}}`, KindOther, "text too long"},
		{"string error", http.StatusInternalServerError, `{"error":"upstream down"}`, KindOther, "upstream down"},
		{"status fallback", http.StatusUnauthorized, `{"detail":"Invalid token"}`, KindMisconfigured, "Failed to generate video (status 401)"},
		{"not json", http.StatusTooManyRequests, `slow down`, KindRateLimited, "Failed to generate video (status 429)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newEden(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := a.Generate(context.Background(), "a cat surfing")
			pe, ok := AsProviderError(err)
			require.True(t, ok)
			assert.Equal(t, edenName, pe.Provider)
			assert.Equal(t, tt.kind, pe.Kind)
			assert.Equal(t, tt.message, pe.Message)
		})
	}
}
