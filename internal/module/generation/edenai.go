package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/genius/server/internal/shared/httpclient"
)

const edenName = "edenai"

// Eden AI error codes.
const (
	edenCodeInsufficientCredits = "INSUFFICIENT_CREDITS"
	edenCodeRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
	edenCodeInvalidAPIKey       = "INVALID_API_KEY"
)

// EdenAIConfig holds Eden AI adapter configuration.
type EdenAIConfig struct {
	BaseURL    string
	APIKey     string
	Provider   string
	Resolution string
	FPS        int
	Duration   int
	Timeout    time.Duration
	// HTTPClient is used when set; otherwise a client is built from Timeout.
	HTTPClient *http.Client
}

// EdenAIAdapter generates video through Eden AI.
type EdenAIAdapter struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	provider   string
	resolution string
	fps        int
	duration   int
}

// NewEdenAIAdapter creates a new Eden AI adapter.
func NewEdenAIAdapter(cfg *EdenAIConfig) *EdenAIAdapter {
	a := &EdenAIAdapter{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		provider:   cfg.Provider,
		resolution: cfg.Resolution,
		fps:        cfg.FPS,
		duration:   cfg.Duration,
	}
	if a.baseURL == "" {
		a.baseURL = "https://api.edenai.run"
	}
	if a.provider == "" {
		a.provider = "runway"
	}
	if a.resolution == "" {
		a.resolution = "1024x576"
	}
	if a.fps <= 0 {
		a.fps = 24
	}
	if a.duration <= 0 {
		a.duration = 3
	}

	a.client = cfg.HTTPClient
	if a.client == nil {
		a.client = httpclient.New(httpclient.Config{Timeout: cfg.Timeout})
	}
	return a
}

// Name returns the provider name.
func (a *EdenAIAdapter) Name() string {
	return edenName
}

type edenVideoRequest struct {
	Providers  string `json:"providers"`
	Text       string `json:"text"`
	Resolution string `json:"resolution"`
	FPS        int    `json:"fps"`
	Duration   int    `json:"duration"`
}

type edenProviderResult struct {
	Status string `json:"status"`
	Items  []struct {
		VideoResourceURL string `json:"video_resource_url"`
	} `json:"items"`
}

// edenError covers both the flat and the nested error bodies Eden AI returns.
type edenError struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
}

type edenNestedError struct {
	Code    string `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Generate submits a video generation and returns {"url": ...}.
func (a *EdenAIAdapter) Generate(ctx context.Context, prompt string) (json.RawMessage, error) {
	body, err := json.Marshal(&edenVideoRequest{
		Providers:  a.provider,
		Text:       prompt,
		Resolution: a.resolution,
		FPS:        a.fps,
		Duration:   a.duration,
	})
	if err != nil {
		return nil, newProviderError(edenName, KindOther, "failed to encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v2/video/generation", bytes.NewReader(body))
	if err != nil {
		return nil, newProviderError(edenName, KindOther, "failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, newProviderError(edenName, KindOther, "request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newProviderError(edenName, KindOther, "failed to read response", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, parseEdenError(resp.StatusCode, respBody)
	}

	var results map[string]json.RawMessage
	if err := json.Unmarshal(respBody, &results); err != nil {
		return nil, newProviderError(edenName, KindOther, "failed to decode response", err)
	}

	var result edenProviderResult
	if raw, ok := results[a.provider]; ok {
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, newProviderError(edenName, KindOther, "failed to decode response", err)
		}
	}
	if len(result.Items) == 0 || result.Items[0].VideoResourceURL == "" {
		return nil, newProviderError(edenName, KindOther, "No video URL in response", nil)
	}

	out, err := json.Marshal(map[string]string{"url": result.Items[0].VideoResourceURL})
	if err != nil {
		return nil, newProviderError(edenName, KindOther, "failed to encode result", err)
	}
	return out, nil
}

func parseEdenError(status int, body []byte) *ProviderError {
	var e edenError
	_ = json.Unmarshal(body, &e)

	code, message := e.Code, e.Message
	if len(e.Error) > 0 {
		var nested edenNestedError
		var text string
		switch {
		case json.Unmarshal(e.Error, &nested) == nil:
			if code == "" {
				code = nested.Code
			}
			if message == "" {
				message = nested.Message
			}
		case json.Unmarshal(e.Error, &text) == nil && message == "":
			message = text
		}
	}
	if message == "" {
		message = fmt.Sprintf("Failed to generate video (status %d)", status)
	}

	var kind ErrorKind
	switch code {
	case edenCodeInsufficientCredits:
		kind = KindInsufficientCredits
	case edenCodeRateLimitExceeded:
		kind = KindRateLimited
	case edenCodeInvalidAPIKey:
		kind = KindMisconfigured
	default:
		kind = kindFromStatus(status)
	}
	return newProviderError(edenName, kind, message, nil)
}
