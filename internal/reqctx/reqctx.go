package reqctx

import "context"

// HeaderRequestID carries the correlation id on responses.
const HeaderRequestID = "X-Request-ID"

// DispatchType tells whether a request is the client's original request or
// the internal re-dispatch that renders an error page.
type DispatchType string

const (
	DispatchRequest DispatchType = "REQUEST"
	DispatchError   DispatchType = "ERROR"
)

// ErrorAttributes describe the failure an ERROR dispatch renders.
type ErrorAttributes struct {
	Status     int
	Message    string
	Err        error
	RequestURI string
}

type (
	correlationIDKey struct{}
	dispatchTypeKey  struct{}
	errorAttrsKey    struct{}
)

func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

func CorrelationID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(correlationIDKey{}).(string)
	return v, ok && v != ""
}

func WithDispatchType(ctx context.Context, dt DispatchType) context.Context {
	return context.WithValue(ctx, dispatchTypeKey{}, dt)
}

// DispatchTypeOf defaults to DispatchRequest.
func DispatchTypeOf(ctx context.Context) DispatchType {
	if v, ok := ctx.Value(dispatchTypeKey{}).(DispatchType); ok {
		return v
	}
	return DispatchRequest
}

func WithErrorAttributes(ctx context.Context, attrs ErrorAttributes) context.Context {
	return context.WithValue(ctx, errorAttrsKey{}, attrs)
}

func ErrorAttributesFrom(ctx context.Context) (ErrorAttributes, bool) {
	v, ok := ctx.Value(errorAttrsKey{}).(ErrorAttributes)
	return v, ok
}
