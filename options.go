package shmimg

import (
	"github.com/hupe1980/shmimg/internal/mmap"
)

// AccessPattern is a kernel hint for how slots will be touched.
type AccessPattern = mmap.AccessPattern

const (
	AccessDefault    = mmap.AccessDefault
	AccessSequential = mmap.AccessSequential
	AccessRandom     = mmap.AccessRandom
	AccessWillNeed   = mmap.AccessWillNeed
)

type options struct {
	dir              string
	logger           *Logger
	metricsCollector MetricsCollector
	accessPattern    AccessPattern
}

func defaultOptions() options {
	return options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		accessPattern:    AccessDefault,
	}
}

// Option configures a Store.
type Option func(*options)

// WithDir sets the directory holding named segments.
//
// The default is /dev/shm when it exists and the OS temporary directory
// otherwise. Tests point this at t.TempDir().
func WithDir(dir string) Option {
	return func(o *options) {
		o.dir = dir
	}
}

// WithLogger sets the logger used for attach and detach events.
//
// If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector sets the collector that observes store operations.
//
// If nil is passed, metrics are disabled.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithAccessPattern passes an madvise hint for the whole segment after
// attaching. Hint failures are ignored.
func WithAccessPattern(p AccessPattern) Option {
	return func(o *options) {
		o.accessPattern = p
	}
}
