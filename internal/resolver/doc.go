// Package resolver contains the resolvers that answer failures by asking the
// container for an error page instead of writing a body themselves.
package resolver
