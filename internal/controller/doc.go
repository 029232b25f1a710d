// Package controller holds the route handlers. Each returns its failure
// instead of writing it; the dispatcher decides how the failure is answered.
package controller
