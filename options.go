package molscene

import (
	"log/slog"

	"github.com/molvis/molscene/codec"
)

type options struct {
	codec           codec.Codec
	logger          *Logger
	initialCapacity int
	compression     Compression
}

// Option configures Scene constructor behavior.
type Option func(*options)

// WithCodec configures the codec used for snapshot sections.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithLogger configures structured logging for scene operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithInitialCapacity configures the initial instance capacity of each
// buffer store. Values below the registered frame size are grown on demand.
func WithInitialCapacity(capacity int) Option {
	return func(o *options) {
		o.initialCapacity = capacity
	}
}

// WithSnapshotCompression configures the block compression applied to
// snapshot sections. The default is CompressionLZ4.
func WithSnapshotCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:       codec.Default,
		logger:      NoopLogger(),
		compression: CompressionLZ4,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
