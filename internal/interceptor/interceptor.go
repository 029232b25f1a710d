package interceptor

import (
	"log/slog"
	"net/http"

	"github.com/angeloszaimis/exception-flow/internal/reqctx"
)

// LogInterceptor logs each stage of a handler invocation.
type LogInterceptor struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *LogInterceptor {
	return &LogInterceptor{logger: logger}
}

func (l *LogInterceptor) PreHandle(w http.ResponseWriter, r *http.Request, handler string) bool {
	id, _ := reqctx.CorrelationID(r.Context())

	l.logger.Info("PREHANDLE",
		slog.String("id", id),
		slog.String("dispatch_type", string(reqctx.DispatchTypeOf(r.Context()))),
		slog.String("uri", r.URL.RequestURI()),
		slog.String("handler", handler))

	return true
}

func (l *LogInterceptor) PostHandle(w http.ResponseWriter, r *http.Request, handler string) {
	l.logger.Info("POSTHANDLE", slog.String("handler", handler))
}

func (l *LogInterceptor) AfterCompletion(w http.ResponseWriter, r *http.Request, handler string, err error) {
	id, _ := reqctx.CorrelationID(r.Context())

	l.logger.Info("AFTER COMPLETION",
		slog.String("id", id),
		slog.String("dispatch_type", string(reqctx.DispatchTypeOf(r.Context()))),
		slog.String("uri", r.URL.RequestURI()),
		slog.String("handler", handler))

	if err != nil {
		l.logger.Error("afterCompletion error", slog.String("id", id), slog.Any("err", err))
	}
}
