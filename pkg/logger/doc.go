// Package logger provides the structured logging interface used across the downloader.
//
// It wraps zerolog and writes human-readable lines to stderr, keeping stdout
// free for the progress messages printed by the ui package. The level
// defaults to warn; the --log flag raises it to debug, which also logs
// every portal request.
//
// Basic Usage:
//
//	err := logger.Initialize(&cfg.Logging)
//	logger.WithField("course", name).Info("syncing course")
//	logger.WithError(err).Warn("link skipped")
//
// Tests use NewTestLogger to capture messages, or NewNopLogger to discard them.
package logger
