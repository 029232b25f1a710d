// Package exhandler maps failures to structured ErrorResult bodies.
//
// Entries are evaluated top-down and the first whose predicate accepts the
// failure answers it, so a catch-all entry must come last.
package exhandler
