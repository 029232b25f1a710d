// Package errorpage plays the servlet container's part in error handling.
//
// Handlers and resolvers call SendError to answer with a bare status, and the
// dispatcher calls Raise for failures nobody resolved. Container notices the
// pending error once the REQUEST dispatch returns and forwards to ErrorPath as
// an ERROR dispatch, reusing the correlation id, where Page renders a plain
// text page or, for clients accepting JSON, a Body document.
package errorpage
