// Package pgtx configuration options.
package pgtx

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options configures a transaction handle.
//
// Example:
//
//	txn, err := pgtx.Begin(ctx, pool,
//	    pgtx.WithLogger(logger),
//	    pgtx.WithSavepointPrefix("myapp_sp"),
//	)
type Options struct {
	// Logger receives cleanup failures that have no caller left to report to,
	// such as the rollback of an abandoned transaction.
	Logger zerolog.Logger

	// SavepointPrefix prefixes generated savepoint names.
	SavepointPrefix string
}

type Option func(o *Options)

func WithLogger(logger zerolog.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

func WithSavepointPrefix(prefix string) Option {
	return func(o *Options) { o.SavepointPrefix = prefix }
}

func defaultOptions() Options {
	return Options{
		Logger:          log.Logger,
		SavepointPrefix: "pgtx_sp",
	}
}
