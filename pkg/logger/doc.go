// Package logger builds the structured slog loggers shared by the service and
// the pool demo. Production environments log JSON, the rest log text, and
// every record carries the environment name.
package logger
