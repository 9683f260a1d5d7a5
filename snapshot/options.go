package snapshot

import (
	"github.com/hupe1980/shmimg"
	"github.com/hupe1980/shmimg/resource"
)

type options struct {
	compression Compression
	controller  *resource.Controller
	logger      *shmimg.Logger
}

func defaultOptions() options {
	return options{
		compression: CompressionNone,
		logger:      shmimg.NoopLogger(),
	}
}

// Option configures Save and Restore.
type Option func(*options)

// WithCompression sets the block codec used by Save. Restore reads it from
// the header.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithController throttles snapshot IO and accounts the block buffers
// against the controller's memory budget.
func WithController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

// WithLogger sets the logger. If nil is passed, logging is disabled.
func WithLogger(l *shmimg.Logger) Option {
	return func(o *options) {
		if l == nil {
			l = shmimg.NoopLogger()
		}
		o.logger = l
	}
}
