package generation

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"lokalfakta/server/internal/models"
)

// ErrGenerationFailed is the only error surfaced to callers when every
// strategy has failed. Provider errors are logged, never returned.
var ErrGenerationFailed = errors.New("could not generate listing content")

var errNotApplicable = errors.New("strategy not applicable")

// Request is the input shared by every strategy
type Request struct {
	System string
	Prompt string
	Images []string
}

// Strategy is one way of asking a model for listing content. Complete
// returns the raw model output; validation happens in the Generator.
type Strategy interface {
	Name() string
	Applicable(req Request) bool
	Complete(ctx context.Context, req Request) (string, error)
}

// Generator tries strategies in order and returns the first valid result
type Generator struct {
	strategies []Strategy
	logger     *logrus.Logger
}

func NewGenerator(logger *logrus.Logger, strategies ...Strategy) *Generator {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Generator{strategies: strategies, logger: logger}
}

// Generate runs the cascade. A failed or invalid attempt falls through to
// the next strategy; the same strategy is never retried.
func (g *Generator) Generate(ctx context.Context, req Request) (*models.GeneratedContent, error) {
	lastErr := errNotApplicable

	for _, s := range g.strategies {
		if !s.Applicable(req) {
			continue
		}

		content, err := g.attempt(ctx, s, req)
		if err == nil {
			g.logger.WithField("strategy", s.Name()).Debug("Generated listing content")
			return content, nil
		}

		lastErr = err
		g.logger.WithError(err).WithField("strategy", s.Name()).Warn("Generation strategy failed")
		if ctx.Err() != nil {
			break
		}
	}

	g.logger.WithError(lastErr).Error("All generation strategies failed")
	return nil, ErrGenerationFailed
}

func (g *Generator) attempt(ctx context.Context, s Strategy, req Request) (*models.GeneratedContent, error) {
	raw, err := s.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	content, err := ParseContent(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid output: %w", err)
	}
	return content, nil
}
