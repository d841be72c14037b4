package api

import (
	"log/slog"
	"time"
)

// DefaultMaxDocumentSize bounds uploaded documents.
const DefaultMaxDocumentSize = 16 << 20

// HTTPServerConfig configures the verifier HTTP server.
type HTTPServerConfig struct {
	ListenAddr string

	// MetricsAddr serves /metrics; empty disables the metrics listener.
	MetricsAddr string

	EnablePprof bool
	Log         *slog.Logger

	// DrainDuration is how long Shutdown reports not-ready before it stops
	// accepting connections.
	DrainDuration time.Duration

	// GracefulShutdownDuration bounds the wait for in-flight requests.
	GracefulShutdownDuration time.Duration

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// MaxDocumentSize limits POSTed documents. Zero keeps DefaultMaxDocumentSize.
	MaxDocumentSize int64
}
