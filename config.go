package dbproc

import (
	"github.com/rs/zerolog"

	"github.com/ignaciocaff/dbproc/internal/core"
)

type config struct {
	schema   string
	prefix   string
	logger   zerolog.Logger
	dialects []core.Dialect
}

// Option configures Wrap.
type Option func(*config)

func newConfig(opts []Option) *config {
	cfg := &config{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.dialects = append(cfg.dialects, DefaultDialects()...)
	return cfg
}

// WithSchema inspects schema instead of the connection's current one.
func WithSchema(schema string) Option {
	return func(c *config) { c.schema = schema }
}

// WithPrefix namespaces lookups: Get("x") resolves the routine prefix+"x".
func WithPrefix(prefix string) Option {
	return func(c *config) { c.prefix = prefix }
}

// WithLogger sets the logger used for signature warnings and call tracing.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithDialects adds dialects that are tried, in order, before the defaults.
func WithDialects(dialects ...Dialect) Option {
	return func(c *config) { c.dialects = append(c.dialects, dialects...) }
}
