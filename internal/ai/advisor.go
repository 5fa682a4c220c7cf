package ai

import (
	"context"
	"strings"

	oteltrace "go.opentelemetry.io/otel/trace"

	"resumescore/internal/config"
	"resumescore/internal/errors"
	"resumescore/internal/observability"
	"resumescore/internal/scoring"
)

// Advisor answers free-form chat questions the rule table does not cover.
type Advisor struct {
	provider     Provider
	systemPrompt string
	logger       *errors.Logger

	metrics *observability.Metrics
	tracer  oteltrace.Tracer
}

// NewAdvisor creates an advisor backed by the configured provider.
func NewAdvisor(ctx context.Context, cfg config.AIConfig, logger *errors.Logger) (*Advisor, error) {
	if logger == nil {
		logger = errors.Discard()
	}

	var provider Provider
	switch strings.ToLower(cfg.Provider) {
	case "gemini", "":
		p, err := NewGeminiProvider(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		provider = p
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "unsupported AI provider: "+cfg.Provider, nil)
	}

	return NewAdvisorWithProvider(provider, cfg.SystemPrompt, logger), nil
}

// NewAdvisorWithProvider wraps an existing provider. An empty systemPrompt selects DefaultSystemPrompt.
func NewAdvisorWithProvider(provider Provider, systemPrompt string, logger *errors.Logger) *Advisor {
	if logger == nil {
		logger = errors.Discard()
	}
	return &Advisor{
		provider:     provider,
		systemPrompt: resolvePrompt(systemPrompt, DefaultSystemPrompt),
		logger:       logger,
	}
}

// Instrument records every provider call as an "advise" AI operation.
func (a *Advisor) Instrument(metrics *observability.Metrics, tracer oteltrace.Tracer) *Advisor {
	a.metrics = metrics
	a.tracer = tracer
	return a
}

// Advise asks the provider about result. An empty answer is reported as an error
// so the caller falls back to its canned reply.
func (a *Advisor) Advise(ctx context.Context, question string, result scoring.Result) (string, error) {
	if result == nil {
		return "", errors.NewValidationError(errors.ErrCodeInvalidInput, "no score result to discuss", nil)
	}

	var (
		text  string
		usage *TokenUsage
		err   error
	)
	prompt := BuildAdvicePrompt(question, result)
	if a.metrics != nil && a.tracer != nil {
		err = a.metrics.TrackAIOperation(ctx, a.tracer, "advise", func(ctx context.Context) *observability.AIOperationResult {
			text, usage, err = a.provider.Generate(ctx, a.systemPrompt, prompt)
			return &observability.AIOperationResult{Error: err, TokenUsage: (*observability.TokenUsage)(usage)}
		})
	} else {
		text, usage, err = a.provider.Generate(ctx, a.systemPrompt, prompt)
	}
	if err != nil {
		return "", err
	}
	if usage != nil {
		a.logger.Debug("Advisor answered",
			"input_tokens", usage.InputTokens,
			"output_tokens", usage.OutputTokens)
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.NewAIError(errors.ErrCodeAIRequestFailed, "advisor returned an empty answer", nil)
	}
	return text, nil
}

// ModelInfo reports the provider's model availability.
func (a *Advisor) ModelInfo(ctx context.Context) *ModelInfo {
	return a.provider.GetModelInfo(ctx)
}

// Close releases the provider.
func (a *Advisor) Close() error {
	return a.provider.Close()
}
