package schema

import "time"

// BackoffStrategy defines how retry delays grow between attempts.
type BackoffStrategy string

const (
	BackoffConstant    BackoffStrategy = "constant"
	BackoffLinear      BackoffStrategy = "linear"
	BackoffExponential BackoffStrategy = "exponential"
)

// RetryConfig controls the retry executor for federation and quota calls.
type RetryConfig struct {
	MaxAttempts     int             `yaml:"max_attempts,omitempty" json:"max_attempts,omitempty" mapstructure:"max_attempts"`
	BackoffStrategy BackoffStrategy `yaml:"backoff_strategy,omitempty" json:"backoff_strategy,omitempty" mapstructure:"backoff_strategy"`
	InitialDelay    time.Duration   `yaml:"initial_delay,omitempty" json:"initial_delay,omitempty" mapstructure:"initial_delay"`
	MaxDelay        time.Duration   `yaml:"max_delay,omitempty" json:"max_delay,omitempty" mapstructure:"max_delay"`
	RandomJitter    bool            `yaml:"random_jitter,omitempty" json:"random_jitter,omitempty" mapstructure:"random_jitter"`
	Multiplier      float64         `yaml:"multiplier,omitempty" json:"multiplier,omitempty" mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration   `yaml:"max_elapsed_time,omitempty" json:"max_elapsed_time,omitempty" mapstructure:"max_elapsed_time"`
}
