package generation

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStrategy struct {
	name       string
	applicable bool
	output     string
	err        error
	calls      int
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Applicable(Request) bool { return f.applicable }

func (f *fakeStrategy) Complete(ctx context.Context, req Request) (string, error) {
	f.calls++
	return f.output, f.err
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

const validOutput = `{"title":"Ljust kontor vid Odenplan","description":"Nyrenoverat kontor.","tags":["kontor","Odenplan"]}`

func TestGenerator_FallsThroughToSecondStrategy(t *testing.T) {
	first := &fakeStrategy{name: "vision", applicable: true, err: errors.New("rate limited")}
	second := &fakeStrategy{name: "text", applicable: true, output: validOutput}
	third := &fakeStrategy{name: "fallback", applicable: true, output: `{"title":"Other","description":"Other","tags":[]}`}

	content, err := NewGenerator(quietLogger(), first, second, third).Generate(context.Background(), Request{Prompt: "p"})
	require.NoError(t, err)

	alone, err := NewGenerator(quietLogger(), second).Generate(context.Background(), Request{Prompt: "p"})
	require.NoError(t, err)

	assert.Equal(t, alone, content)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, third.calls)
}

func TestGenerator_SchemaViolationFallsThrough(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{name: "Empty response", output: ""},
		{name: "Not JSON", output: "Här är din annons: ..."},
		{name: "Tags not an array", output: `{"title":"a","description":"b","tags":"kontor"}`},
		{name: "Missing description", output: `{"title":"a","tags":[]}`},
		{name: "Blank title", output: `{"title":"  ","description":"b","tags":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := &fakeStrategy{name: "bad", applicable: true, output: tt.output}
			good := &fakeStrategy{name: "good", applicable: true, output: validOutput}

			content, err := NewGenerator(quietLogger(), bad, good).Generate(context.Background(), Request{})
			require.NoError(t, err)
			assert.Equal(t, "Ljust kontor vid Odenplan", content.Title)
			assert.Equal(t, 1, bad.calls, "a failed strategy is not retried")
			assert.Equal(t, 1, good.calls)
		})
	}
}

func TestGenerator_SkipsInapplicableStrategies(t *testing.T) {
	vision := &fakeStrategy{name: "vision", applicable: false, output: validOutput}
	text := &fakeStrategy{name: "text", applicable: true, output: validOutput}

	_, err := NewGenerator(quietLogger(), vision, text).Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, 0, vision.calls)
	assert.Equal(t, 1, text.calls)
}

func TestGenerator_AllStrategiesFail(t *testing.T) {
	providerErr := errors.New("401 invalid api key sk-secret")
	strategies := []Strategy{
		&fakeStrategy{name: "one", applicable: true, err: providerErr},
		&fakeStrategy{name: "two", applicable: true, output: "garbage"},
		&fakeStrategy{name: "three", applicable: true, err: providerErr},
	}

	content, err := NewGenerator(quietLogger(), strategies...).Generate(context.Background(), Request{})
	assert.Nil(t, content)
	assert.Equal(t, ErrGenerationFailed, err)
	assert.NotContains(t, err.Error(), "sk-secret")
}

func TestGenerator_NoStrategies(t *testing.T) {
	_, err := NewGenerator(quietLogger()).Generate(context.Background(), Request{})
	assert.True(t, errors.Is(err, ErrGenerationFailed))
}

func TestGenerator_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	first := &fakeStrategy{name: "one", applicable: true, err: context.Canceled}
	second := &fakeStrategy{name: "two", applicable: true, output: validOutput}

	_, err := NewGenerator(quietLogger(), first, second).Generate(ctx, Request{})
	assert.Equal(t, ErrGenerationFailed, err)
	assert.Equal(t, 0, second.calls)
}
