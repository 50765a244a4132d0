// Package logging provides structured logging for the mikettle tools.
//
// This package wraps a global zap logger for the CLI and the status server,
// and provides helpers for dumping raw GATT values. Library packages such as
// kettle and ble take a *zap.Logger instead of using the global; the CLI
// builds one here and injects it:
//
//	logger := logging.Named("kettle")
//	client, err := kettle.New(transport, kettle.Options{Logger: logger, ...})
//
// # Log Levels
//
//   - Debug: handshake steps, GATT reads and writes, hex dumps
//   - Info: server connections and requests
//   - Warn: unknown notifications, auth failures, backoff
//   - Error: startup failures
//
// # Configuration
//
// Logging is silent unless a level is passed to Initialize or set in the
// MIKETTLE_LOG_LEVEL environment variable:
//
//	if err := logging.Initialize(logLevel); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// Output goes to stderr in console format so it never mixes with command
// output on stdout.
//
// # GATT Dumps
//
//	logging.LogGATT(logger, "read", 61, value)
//
// logs the value as hex and printable ascii at debug level.
package logging
