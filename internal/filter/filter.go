package filter

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/angeloszaimis/exception-flow/internal/reqctx"
)

// LogFilter assigns each request its correlation id and logs the request
// around the rest of the chain.
type LogFilter struct {
	logger        *slog.Logger
	dispatchTypes []reqctx.DispatchType
}

// New creates the filter for the given dispatch types. An empty list means
// REQUEST only.
func New(logger *slog.Logger, dispatchTypes []string) *LogFilter {
	types := lo.Map(dispatchTypes, func(t string, _ int) reqctx.DispatchType {
		return reqctx.DispatchType(t)
	})
	if len(types) == 0 {
		types = []reqctx.DispatchType{reqctx.DispatchRequest}
	}

	logger.Info("filter initialize", slog.Any("dispatch_types", dispatchTypes))

	return &LogFilter{
		logger:        logger,
		dispatchTypes: lo.Uniq(types),
	}
}

func (f *LogFilter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dispatchType := reqctx.DispatchTypeOf(r.Context())
		if !lo.Contains(f.dispatchTypes, dispatchType) {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		id, ok := reqctx.CorrelationID(ctx)
		if !ok {
			id = uuid.NewString()
			ctx = reqctx.WithCorrelationID(ctx, id)
			w.Header().Set(reqctx.HeaderRequestID, id)
		}
		uri := r.URL.RequestURI()

		f.logger.Info("REQUEST",
			slog.String("id", id),
			slog.String("dispatch_type", string(dispatchType)),
			slog.String("uri", uri))

		defer f.logger.Info("RESPONSE",
			slog.String("id", id),
			slog.String("dispatch_type", string(dispatchType)),
			slog.String("uri", uri))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (f *LogFilter) Close() {
	f.logger.Info("filter destroyed")
}
