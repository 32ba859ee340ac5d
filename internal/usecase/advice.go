package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"Auditorium/internal/domain"
	"Auditorium/internal/ports"
)

const defaultPublication = "G1"

// Advisor asks a generative model for editorial feedback on a headline.
type Advisor struct {
	generator   ports.TextGenerator
	timeout     time.Duration
	publication string
	log         *slog.Logger
}

// NewAdvisor wires a generator. Zero timeout falls back to 30 seconds.
func NewAdvisor(generator ports.TextGenerator, timeout time.Duration, publication string, log *slog.Logger) *Advisor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if strings.TrimSpace(publication) == "" {
		publication = defaultPublication
	}
	return &Advisor{generator: generator, timeout: timeout, publication: publication, log: log}
}

// Prompt builds the single request sent to the model.
func (a *Advisor) Prompt(headline string) string {
	return fmt.Sprintf(`Analyze the headline: '%s' (Context: %s).
1. Give a 0-10 score for SEO/Attractiveness.
2. Give a 0-10 score for Google Discover.
3. Suggest two professional, optimized alternatives, one for SEO and one for Google Discover, based on the %s context.
`, strings.TrimSpace(headline), a.publication, a.publication)
}

// Advise never fails: errors are folded into the returned Advice.
func (a *Advisor) Advise(ctx context.Context, headline string) domain.Advice {
	provider := "advisor"
	if a == nil || a.generator == nil {
		return failedAdvice(provider, errors.New("no generator configured"))
	}
	provider = a.generator.Name()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	started := time.Now()
	text, err := a.generator.Generate(ctx, a.Prompt(headline))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("no answer within %s: %w", a.timeout, err)
		}
		if a.log != nil {
			a.log.Warn("advice failed", "provider", provider, "error", err)
		}
		return failedAdvice(provider, err)
	}

	if a.log != nil {
		a.log.Debug("advice received", "provider", provider, "elapsed", time.Since(started))
	}
	return domain.Advice{Text: text}
}

func failedAdvice(provider string, err error) domain.Advice {
	adviceErr := &domain.AdviceError{Provider: provider, Err: err}
	return domain.Advice{
		Text: "AI advisor error: " + adviceErr.Error(),
		Err:  adviceErr,
	}
}
