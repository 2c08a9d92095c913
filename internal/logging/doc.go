// Package logging provides structured logging for shadowsync.
//
// Logging is silent by default so the CLI output stays clean. Set the
// SHADOWSYNC_LOG_LEVEL environment variable (debug, info, warn, error)
// to enable zap output on stderr.
package logging
