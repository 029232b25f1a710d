package errorpage

import (
	"net/http"

	"github.com/cockroachdb/errors"
)

// ErrCommitted is returned when an error is sent after the response started.
var ErrCommitted = errors.New("response already committed")

type pendingError struct {
	status  int
	message string
	err     error
}

// responseWriter tracks whether the response was committed and holds the
// container error a handler or resolver asked for. Once an error is pending,
// further writes are swallowed so that the error page owns the body.
type responseWriter struct {
	http.ResponseWriter
	committed bool
	pending   *pendingError
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.pending != nil {
		return
	}
	rw.committed = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.pending != nil {
		return len(b), nil
	}
	rw.committed = true
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func lookup(w http.ResponseWriter) (*responseWriter, bool) {
	for {
		switch t := w.(type) {
		case *responseWriter:
			return t, true
		case interface{ Unwrap() http.ResponseWriter }:
			w = t.Unwrap()
		default:
			return nil, false
		}
	}
}

// SendError asks the container to answer with status and render the error
// page. Outside a Container it falls back to http.Error.
func SendError(w http.ResponseWriter, status int, message string) error {
	rw, ok := lookup(w)
	if !ok {
		http.Error(w, message, status)
		return nil
	}
	if rw.committed {
		return ErrCommitted
	}
	if rw.pending == nil {
		rw.pending = &pendingError{status: status, message: message}
	}
	return nil
}

// Raise hands an unresolved failure to the container, which answers 500.
// It reports false when the response is already committed.
func Raise(w http.ResponseWriter, err error) bool {
	rw, ok := lookup(w)
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return true
	}
	if rw.committed {
		return false
	}
	if rw.pending == nil {
		rw.pending = &pendingError{
			status:  http.StatusInternalServerError,
			message: err.Error(),
			err:     err,
		}
	}
	return true
}

// PendingStatus returns the status of the container error waiting to be
// rendered, if any.
func PendingStatus(w http.ResponseWriter) (int, bool) {
	rw, ok := lookup(w)
	if !ok || rw.pending == nil {
		return 0, false
	}
	return rw.pending.status, true
}
