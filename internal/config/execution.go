package config

import "time"

// ExecutionConfig configures the tactile command runner.
type ExecutionConfig struct {
	// Default timeout for commands (git clone of a large catalog can be slow)
	DefaultTimeout string `yaml:"default_timeout"`

	// Cap on captured stdout/stderr per command
	MaxOutputBytes int64 `yaml:"max_output_bytes"`
}

// GetDefaultTimeout returns the command timeout as a duration.
func (c ExecutionConfig) GetDefaultTimeout() time.Duration {
	d, err := time.ParseDuration(c.DefaultTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}
