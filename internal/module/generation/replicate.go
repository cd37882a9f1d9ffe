package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/genius/server/internal/shared/httpclient"
	"github.com/replicate/replicate-go"
)

const (
	replicateName = "replicate"

	// cancelTimeout bounds the cancel request sent for an abandoned prediction.
	cancelTimeout = 5 * time.Second
)

// ReplicateConfig holds Replicate adapter configuration.
type ReplicateConfig struct {
	// BaseURL overrides the API endpoint. Empty uses api.replicate.com/v1.
	BaseURL      string
	APIToken     string
	Version      string
	PollInterval time.Duration
	Timeout      time.Duration
	// HTTPClient is used when set; otherwise a client is built from Timeout.
	HTTPClient *http.Client
}

// ReplicateAdapter generates music through a Replicate prediction.
type ReplicateAdapter struct {
	client       *replicate.Client
	setupErr     error
	version      string
	pollInterval time.Duration
}

// NewReplicateAdapter creates a new Replicate adapter. A client that cannot
// be built, for example without a token, fails every call as misconfigured.
func NewReplicateAdapter(cfg *ReplicateConfig) *ReplicateAdapter {
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = httpclient.New(httpclient.Config{Timeout: cfg.Timeout})
	}

	opts := []replicate.ClientOption{
		replicate.WithToken(cfg.APIToken),
		replicate.WithHTTPClient(httpClient),
		replicate.WithRetryPolicy(0, &replicate.ConstantBackoff{Base: poll}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, replicate.WithBaseURL(cfg.BaseURL))
	}

	client, err := replicate.NewClient(opts...)
	return &ReplicateAdapter{
		client:       client,
		setupErr:     err,
		version:      cfg.Version,
		pollInterval: poll,
	}
}

// Name returns the provider name.
func (a *ReplicateAdapter) Name() string {
	return replicateName
}

// Generate creates a prediction and waits for it to finish. The output is
// returned as the provider reported it.
func (a *ReplicateAdapter) Generate(ctx context.Context, prompt string) (json.RawMessage, error) {
	if a.setupErr != nil {
		return nil, newProviderError(replicateName, KindMisconfigured, "client setup failed", a.setupErr)
	}

	input := replicate.PredictionInput{"prompt_a": prompt}
	pred, err := a.client.CreatePrediction(ctx, a.version, input, nil, false)
	if err != nil {
		return nil, replicateError(ctx, err)
	}

	if !predictionDone(pred) {
		if err := a.client.Wait(ctx, pred, replicate.WithPollingInterval(a.pollInterval)); err != nil {
			if ctx.Err() != nil {
				a.cancel(ctx, pred.ID)
			}
			return nil, replicateError(ctx, err)
		}
		if !predictionDone(pred) {
			if pred, err = a.client.GetPrediction(ctx, pred.ID); err != nil {
				return nil, replicateError(ctx, err)
			}
		}
	}

	switch pred.Status {
	case replicate.Succeeded:
		if pred.Output == nil {
			return nil, newProviderError(replicateName, KindOther, "prediction returned no output", nil)
		}
		out, err := json.Marshal(pred.Output)
		if err != nil {
			return nil, newProviderError(replicateName, KindOther, "failed to encode output", err)
		}
		return out, nil
	case replicate.Failed, replicate.Canceled:
		return nil, newProviderError(replicateName, KindOther, predictionError(pred), nil)
	default:
		return nil, newProviderError(replicateName, KindOther, "prediction "+string(pred.Status), nil)
	}
}

// cancel stops a prediction the caller no longer waits for so it is not
// left running. Failures are ignored.
func (a *ReplicateAdapter) cancel(ctx context.Context, id string) {
	if id == "" {
		return
	}
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelTimeout)
	defer cancel()
	_, _ = a.client.CancelPrediction(cctx, id)
}

func predictionDone(pred *replicate.Prediction) bool {
	switch pred.Status {
	case replicate.Succeeded, replicate.Failed, replicate.Canceled:
		return true
	}
	return false
}

func predictionError(pred *replicate.Prediction) string {
	if msg, ok := pred.Error.(string); ok && msg != "" {
		return msg
	}
	return "prediction " + string(pred.Status)
}

// replicateError maps a client error onto a ProviderError.
func replicateError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return newProviderError(replicateName, KindOther, "prediction did not finish in time", ctxErr)
	}

	var apiErr *replicate.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Detail
		if msg == "" {
			msg = fmt.Sprintf("status %d", apiErr.Status)
		}
		return newProviderError(replicateName, kindFromStatus(apiErr.Status), msg, err)
	}
	return newProviderError(replicateName, KindOther, "request failed", err)
}
