// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a sane console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV/WithFields),
//   - level configuration and parsing utilities,
//   - an optional rotating log file (lumberjack) teed next to the console,
//   - key-value shortcuts (InfoKV, WarnKV, ErrorKV) used by the pipeline stages.
//
// Every pipeline stage accepts a context and extracts the logger from it,
// enabling scoped, structured logging throughout the codebase.
package logger
