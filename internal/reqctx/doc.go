// Package reqctx carries per-request values through context.Context: the
// correlation id assigned by the request filter, the dispatch type (REQUEST
// or ERROR) and, on an error dispatch, the attributes of the failure being
// rendered.
package reqctx
