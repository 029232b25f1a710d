// Package filter holds the outermost request logger. It runs once per
// dispatch, so a request that ends on the error page is logged twice under
// the same correlation id.
package filter
