// Package logging provides structured logging with PII redaction.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - Structured logging with JSON, text, and console formats
//   - Redaction of credentials and email addresses
//   - Trace and request fields pulled from context.Context
//   - Fan-out to additional slog.Handler sinks
//   - Optional async buffering with a dropped-record counter
//
// Components in this module depend on the small LevelLogger interface,
// so a *Logger, a plain *slog.Logger, or Nop() can be injected.
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:     "info",
//	    Format:    "json",
//	    RedactPII: true,
//	})
//
//	logger.Info("request processed",
//	    "authorization", "Bearer abc.def",  // masked
//	    "duration_ms", 1234,
//	)
//
//	ctx = logging.WithTraceID(ctx, traceID)
//	logger.InfoContext(ctx, "span closed")  // includes trace_id
//
// # Sinks
//
// Extra handlers passed in Config.Sinks receive every record. A sink that
// returns an error is counted (SinkFailures) and skipped; logging never
// fails the caller.
package logging
