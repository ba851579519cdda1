// Package gologger resolves the pipeline's named loggers and bridges them
// into the go-job logging contracts used by the retention and queue workers.
package gologger

import (
	"strings"

	job "github.com/goliatone/go-job"
	glog "github.com/goliatone/go-logger/glog"
)

// DefaultLoggerName is the logger name used when a component does not supply
// one. It matches the name the notification service resolves at build time.
const DefaultLoggerName = "cargo-notify"

// Resolve picks a logger with deterministic precedence: a named logger from
// the provider wins, then the direct logger, then a nop. A blank name falls
// back to DefaultLoggerName so worker log lines stay attributable.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	if strings.TrimSpace(name) == "" {
		name = DefaultLoggerName
	}
	return glog.Resolve(name, provider, logger)
}

// ToJobProvider adapts a glog provider to the go-job logger provider
// contract.
func ToJobProvider(provider glog.LoggerProvider) job.LoggerProvider {
	if provider == nil {
		return nil
	}
	return job.GoLoggerProvider(provider)
}

// ToJobLogger adapts a glog logger to the go-job logger contract.
func ToJobLogger(logger glog.Logger) job.Logger {
	if logger == nil {
		return nil
	}
	return job.GoLogger(logger)
}

// ResolveForJob resolves the named logger pair and returns the go-job bridges
// alongside it, so a worker can be wired with one call.
func ResolveForJob(
	name string,
	provider glog.LoggerProvider,
	logger glog.Logger,
) (glog.LoggerProvider, glog.Logger, job.LoggerProvider, job.Logger) {
	resolvedProvider, resolvedLogger := Resolve(name, provider, logger)
	return resolvedProvider, resolvedLogger, ToJobProvider(resolvedProvider), ToJobLogger(resolvedLogger)
}
