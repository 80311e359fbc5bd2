// Package logger configures the process-wide slog logger (JSON, or tint for
// local text output) and carries request- and task-scoped loggers through
// contexts.
package logger
