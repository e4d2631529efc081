package jit

import "go.uber.org/zap"

// Config configures a Jit instance. newConfig starts from a nop logger
// and a zero maxInstructions (frontend.Translate's default per-block
// cap) before applying Options; a zero-value Config has a nil logger.
type Config struct {
	logger          *zap.Logger
	maxInstructions int
}

// Option configures a Jit at construction time.
type Option func(*Config)

// WithLogger sets the structured logger the dispatcher uses; its only
// log call is a Warn when a compile fails and the cache is cleared for
// a retry. Mirrors
// the ambient-stack convention named in SPEC_FULL.md §1.1: defaults to
// zap.NewNop() when unset, so logging never becomes a required
// dependency for embedders that don't want it.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) { c.logger = logger }
}

// WithMaxInstructionsPerBlock overrides frontend.Translate's default
// per-block instruction cap.
func WithMaxInstructionsPerBlock(n int) Option {
	return func(c *Config) { c.maxInstructions = n }
}

func newConfig(opts []Option) *Config {
	c := &Config{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
