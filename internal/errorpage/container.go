package errorpage

import (
	"log/slog"
	"net/http"

	"github.com/angeloszaimis/exception-flow/internal/reqctx"
)

// ErrorPath is the URI error pages are dispatched to.
const ErrorPath = "/error"

// Container runs the application for the REQUEST dispatch and, when the
// response ends with a container error, re-dispatches to the error page
// with dispatch type ERROR.
type Container struct {
	app      http.Handler
	errorApp http.Handler
	logger   *slog.Logger
}

func NewContainer(app, errorApp http.Handler, logger *slog.Logger) *Container {
	return &Container{
		app:      app,
		errorApp: errorApp,
		logger:   logger,
	}
}

func (c *Container) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rw := &responseWriter{ResponseWriter: w}
	c.app.ServeHTTP(rw, r.WithContext(reqctx.WithDispatchType(r.Context(), reqctx.DispatchRequest)))

	if rw.pending == nil {
		return
	}

	c.forward(w, r, rw.pending)
}

func (c *Container) forward(w http.ResponseWriter, r *http.Request, p *pendingError) {
	uri := r.URL.RequestURI()

	if p.err != nil {
		c.logger.Error("request processing failed",
			slog.String("uri", uri),
			slog.Any("err", p.err))
	}

	ctx := reqctx.WithDispatchType(r.Context(), reqctx.DispatchError)
	ctx = reqctx.WithErrorAttributes(ctx, reqctx.ErrorAttributes{
		Status:     p.status,
		Message:    p.message,
		Err:        p.err,
		RequestURI: uri,
	})
	// The correlation id assigned during the REQUEST dispatch travels on the
	// response header.
	if id := w.Header().Get(reqctx.HeaderRequestID); id != "" {
		ctx = reqctx.WithCorrelationID(ctx, id)
	}

	errReq := r.Clone(ctx)
	errReq.URL.Path = ErrorPath
	errReq.URL.RawPath = ""
	errReq.URL.RawQuery = ""
	errReq.RequestURI = ErrorPath

	c.errorApp.ServeHTTP(w, errReq)
}
