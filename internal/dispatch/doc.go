// Package dispatch runs route handlers the way a web framework's front
// controller would: interceptors before and after, the handler itself, and on
// failure an ordered list of resolvers where the first that accepts the error
// answers it. Failures nobody resolves go to the error-page container.
package dispatch
