// Package interceptor provides the logging interceptor registered with the
// dispatcher.
package interceptor
