// Package httpserver wraps net/http's server with address validation,
// configurable timeouts and graceful shutdown.
package httpserver
