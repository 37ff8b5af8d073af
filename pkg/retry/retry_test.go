package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/schema"
)

func fastConfig(attempts int) schema.RetryConfig {
	return schema.RetryConfig{
		MaxAttempts:     attempts,
		BackoffStrategy: schema.BackoffConstant,
		InitialDelay:    time.Millisecond,
		MaxDelay:        time.Millisecond,
		MaxElapsedTime:  time.Second,
	}
}

func TestExecute_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := New(fastConfig(3)).Execute(context.Background(), func() error {
		calls++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestExecute_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := New(fastConfig(3)).Execute(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestExecute_ExhaustsAttempts(t *testing.T) {
	transient := errors.New("transient")
	calls := 0
	err := New(fastConfig(3)).Execute(context.Background(), func() error {
		calls++
		return transient
	})
	assert.Error(t, err)
	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithPredicate_StopsOnNonRetryable(t *testing.T) {
	fatal := errors.New("fatal")
	calls := 0
	err := New(fastConfig(5)).ExecuteWithPredicate(context.Background(), func() error {
		calls++
		return fatal
	}, func(err error) bool { return !errors.Is(err, fatal) })
	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestExecute_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := fastConfig(3)
	cfg.InitialDelay = time.Minute
	cfg.MaxDelay = time.Minute

	err := New(cfg).Execute(ctx, func() error { return errors.New("transient") })
	assert.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCalculateDelay_Strategies(t *testing.T) {
	tests := []struct {
		name     string
		strategy schema.BackoffStrategy
		attempt  int
		want     time.Duration
	}{
		{"constant", schema.BackoffConstant, 3, 100 * time.Millisecond},
		{"linear", schema.BackoffLinear, 3, 300 * time.Millisecond},
		{"exponential", schema.BackoffExponential, 3, 400 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(schema.RetryConfig{
				MaxAttempts:     5,
				BackoffStrategy: tt.strategy,
				InitialDelay:    100 * time.Millisecond,
				MaxDelay:        time.Second,
				Multiplier:      2.0,
			})
			assert.Equal(t, tt.want, e.calculateDelay(tt.attempt))
		})
	}
}

func TestCalculateDelay_CappedAtMax(t *testing.T) {
	e := New(schema.RetryConfig{
		MaxAttempts:     10,
		BackoffStrategy: schema.BackoffExponential,
		InitialDelay:    time.Second,
		MaxDelay:        2 * time.Second,
		Multiplier:      10.0,
	})
	assert.Equal(t, 2*time.Second, e.calculateDelay(5))
}

func TestDefaultConfig_Bounded(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.NotZero(t, cfg.MaxElapsedTime)
}
