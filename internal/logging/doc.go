// Package logging provides structured logging for teensysecure.
//
// This package wraps a global zap logger. Logging is silent by default so the
// CLI output stays clean; set TEENSYSECURE_LOG_LEVEL (or pass --log-level) to
// one of debug, info, warn or error to see it on stderr.
//
// Components receive a *zap.Logger, usually logging.Named("bridge") or
// similar, and log with structured fields:
//
//	logger.Info("teensy_secure started",
//	    zap.String("program", program),
//	    zap.Strings("args", args),
//	    zap.Int("pid", pid),
//	)
//
// # Configuration
//
//	if err := logging.Initialize(level); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// # Output Format
//
//	2026-03-02T10:30:45.123+0100  INFO  bridge  Connection event  {"remote_addr": "127.0.0.1:51234", "event": "websocket_upgraded"}
package logging
