// Package ai submits prompts to a hosted generative model and returns its raw text.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"budgetplanner/internal/config"
	"budgetplanner/internal/core"
	applog "budgetplanner/internal/log"
)

// Generator performs one generation round trip. It does not retry.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// New builds the generator selected by cfg.AIProvider, wrapped with the
// configured timeout and rate limit.
func New(ctx context.Context, cfg *config.Config, logger *applog.Logger) (Generator, error) {
	var (
		next  Generator
		model string
	)
	switch cfg.AIProvider {
	case config.ProviderGemini:
		c, err := NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		next, model = c, cfg.GeminiModel
	case config.ProviderAnthropic:
		next = NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AnthropicMaxTokens)
		model = cfg.AnthropicModel
	case config.ProviderNone:
		next = Unavailable{}
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.AIProvider)
	}

	return NewLimited(next, LimitOptions{
		Provider:      cfg.AIProvider,
		Model:         model,
		Timeout:       cfg.GenerationTimeout,
		RatePerMinute: cfg.GenerationRatePerMinute,
	}, logger), nil
}

// Unavailable fails every call so callers fall back deterministically.
type Unavailable struct{}

func (Unavailable) Generate(context.Context, string) (string, error) {
	return "", fmt.Errorf("%w: no AI provider configured", core.ErrGenerationFailed)
}

type LimitOptions struct {
	Provider      string
	Model         string
	Timeout       time.Duration
	RatePerMinute float64 // zero disables throttling
}

// Limited bounds every call with a timeout and a process-wide token bucket.
type Limited struct {
	next    Generator
	opts    LimitOptions
	limiter *rate.Limiter
	logger  *applog.Logger
}

func NewLimited(next Generator, opts LimitOptions, logger *applog.Logger) *Limited {
	if logger == nil {
		logger = applog.Default(applog.ComponentGenerator)
	}
	l := &Limited{
		next:   next,
		opts:   opts,
		logger: logger.With(applog.FieldProvider, opts.Provider, applog.FieldModel, opts.Model),
	}
	if opts.RatePerMinute > 0 {
		l.limiter = rate.NewLimiter(rate.Limit(opts.RatePerMinute/60), 1)
	}
	return l
}

func (l *Limited) Generate(ctx context.Context, prompt string) (string, error) {
	if l.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.opts.Timeout)
		defer cancel()
	}

	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: %s: rate limit wait: %w", core.ErrGenerationFailed, l.opts.Provider, err)
		}
	}

	start := time.Now()
	out, err := l.next.Generate(ctx, prompt)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		if !errors.Is(err, core.ErrGenerationFailed) {
			err = fmt.Errorf("%w: %s: %w", core.ErrGenerationFailed, l.opts.Provider, err)
		}
		l.logger.WarnContext(ctx, "Generation request failed",
			applog.FieldDuration, elapsed,
			applog.FieldError, err.Error())
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("%w: %s: empty response", core.ErrGenerationFailed, l.opts.Provider)
	}

	l.logger.DebugContext(ctx, "Generation request completed",
		applog.FieldDuration, elapsed,
		applog.FieldPromptBytes, len(prompt),
		applog.FieldResponseBytes, len(out))
	return out, nil
}
