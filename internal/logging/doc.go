// Package logging provides structured logging for the gantry engine and CLI.
//
// This package wraps Go's log/slog to provide JSON-formatted logs with
// persistent context attributes, so that every line emitted while analysing
// a schedule can be traced back to the schedule and the operation (analyze,
// recover, whatif, baseline, layout) that produced it.
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. Child loggers
// created via With* methods share the underlying writer. The
// [RotatingWriter] guards file rotation with a mutex.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/var/log/gantry", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	opLogger := logger.WithSchedule("tower-b").WithOperation("recover")
//	opLogger.Info("recovery planned", "crashed_days", 4, "target_met", true)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"recovery planned","schedule":"tower-b","operation":"recover","crashed_days":4,"target_met":true}
//
// # Log Rotation
//
// Long-running watch sessions should use rotation:
//
//	logger, err := logging.NewLoggerWithRotation(dir, "INFO", logging.RotationConfig{
//	    MaxSizeMB:  10,
//	    MaxBackups: 3,
//	    Compress:   true,
//	})
//
// Rotated files are named gantry.log.1, gantry.log.2, ... where .1 is the most
// recent backup (gantry.log.1.gz when compressed).
//
// # Testing
//
// Use [NopLogger] to discard output, or [NewWithWriter] to capture it.
package logging
