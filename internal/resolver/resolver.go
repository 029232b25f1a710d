package resolver

import (
	"log/slog"
	"net/http"

	"github.com/angeloszaimis/exception-flow/internal/apperr"
	"github.com/angeloszaimis/exception-flow/internal/dispatch"
	"github.com/angeloszaimis/exception-flow/internal/errorpage"
	"github.com/angeloszaimis/exception-flow/internal/reqctx"
)

const (
	NameStatus       = "status"
	NameTypeMismatch = "type-mismatch"
	NameFallback     = "fallback"
)

// StatusResolver answers status-carrying failures with their own status and
// reason.
type StatusResolver struct {
	logger *slog.Logger
}

func NewStatusResolver(logger *slog.Logger) *StatusResolver {
	return &StatusResolver{logger: logger}
}

func (s *StatusResolver) Resolve(w http.ResponseWriter, r *http.Request, handler string, err error) (dispatch.Resolution, bool) {
	se, ok := apperr.AsStatus(err)
	if !ok {
		return dispatch.Resolution{}, false
	}
	return sendError(s.logger, w, r, NameStatus, se.Status, se.Reason)
}

// TypeMismatchResolver answers request parameters that failed conversion with
// 400.
type TypeMismatchResolver struct {
	logger *slog.Logger
}

func NewTypeMismatchResolver(logger *slog.Logger) *TypeMismatchResolver {
	return &TypeMismatchResolver{logger: logger}
}

func (t *TypeMismatchResolver) Resolve(w http.ResponseWriter, r *http.Request, handler string, err error) (dispatch.Resolution, bool) {
	tm, ok := apperr.AsTypeMismatch(err)
	if !ok {
		return dispatch.Resolution{}, false
	}
	return sendError(t.logger, w, r, NameTypeMismatch, http.StatusBadRequest, tm.Error())
}

// FallbackResolver turns invalid-argument failures into a bare 400. Anything
// else is left for the container's 500 page.
type FallbackResolver struct {
	logger *slog.Logger
}

func NewFallbackResolver(logger *slog.Logger) *FallbackResolver {
	return &FallbackResolver{logger: logger}
}

func (f *FallbackResolver) Resolve(w http.ResponseWriter, r *http.Request, handler string, err error) (dispatch.Resolution, bool) {
	if !apperr.IsInvalidArgument(err) {
		return dispatch.Resolution{}, false
	}

	id, _ := reqctx.CorrelationID(r.Context())
	f.logger.Info("illegal access bad request",
		slog.String("id", id),
		slog.String("handler", handler))

	return sendError(f.logger, w, r, NameFallback, http.StatusBadRequest, err.Error())
}

func sendError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, name string, status int, message string) (dispatch.Resolution, bool) {
	if err := errorpage.SendError(w, status, message); err != nil {
		id, _ := reqctx.CorrelationID(r.Context())
		logger.Error("resolver handler ex",
			slog.String("id", id),
			slog.String("resolver", name),
			slog.Any("err", err))
		return dispatch.Resolution{}, false
	}

	return dispatch.Resolution{
		Resolver: name,
		Code:     http.StatusText(status),
		Status:   status,
	}, true
}

// DefaultChain is the resolver order for routes without a structured mapper.
// The status resolver runs first so that a status-carrying failure keeps its
// status even when it wraps an invalid argument.
func DefaultChain(logger *slog.Logger) []dispatch.Resolver {
	return []dispatch.Resolver{
		NewStatusResolver(logger),
		NewTypeMismatchResolver(logger),
		NewFallbackResolver(logger),
	}
}
