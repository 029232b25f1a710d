// Package apperr defines the failure kinds route handlers signal and the
// boundary resolvers translate: invalid argument, user failure, unexpected
// failure, status-carrying failure and parameter type mismatch.
package apperr
