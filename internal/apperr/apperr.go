package apperr

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Kind classifies a failure for the boundary components that turn it into a
// response.
type Kind int

const (
	KindUnexpected Kind = iota
	KindInvalidArgument
	KindUser
	KindStatus
	KindTypeMismatch
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid-argument"
	case KindUser:
		return "user"
	case KindStatus:
		return "status"
	case KindTypeMismatch:
		return "type-mismatch"
	default:
		return "unexpected"
	}
}

// Reference errors used as marks. errors.Is matches any error built by the
// constructors below against them while the message stays the caller's.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUser            = errors.New("user failure")
)

// InvalidArgument signals that the caller supplied an unacceptable value.
func InvalidArgument(msg string) error {
	return errors.Mark(errors.NewWithDepth(1, msg), ErrInvalidArgument)
}

// User signals a domain-specific user failure.
func User(msg string) error {
	return errors.Mark(errors.NewWithDepth(1, msg), ErrUser)
}

// Unexpected signals a generic failure with no dedicated handling.
func Unexpected(msg string) error {
	return errors.NewWithDepth(1, msg)
}

// StatusError carries the HTTP status the failure must be answered with.
type StatusError struct {
	Status int
	Reason string
	cause  error
}

// NewStatus builds a status-carrying failure. cause may be nil.
func NewStatus(status int, reason string, cause error) *StatusError {
	return &StatusError{Status: status, Reason: reason, cause: cause}
}

// BadRequest is the pre-built 400 failure with reason "error.bad".
func BadRequest() *StatusError {
	return NewStatus(http.StatusBadRequest, "error.bad", nil)
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d %s %q", e.Status, http.StatusText(e.Status), e.Reason)
}

func (e *StatusError) Unwrap() error {
	return e.cause
}

// TypeMismatchError reports a request parameter that could not be converted
// to the type the handler expects.
type TypeMismatchError struct {
	Param    string
	Value    string
	Required string
	cause    error
}

func NewTypeMismatch(param, value, required string, cause error) *TypeMismatchError {
	return &TypeMismatchError{Param: param, Value: value, Required: required, cause: cause}
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("failed to convert parameter %q value %q to required type %s", e.Param, e.Value, e.Required)
}

func (e *TypeMismatchError) Unwrap() error {
	return e.cause
}

func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

func IsUser(err error) bool {
	return errors.Is(err, ErrUser)
}

// AsStatus returns the outermost StatusError in err's chain.
func AsStatus(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

func AsTypeMismatch(err error) (*TypeMismatchError, bool) {
	var te *TypeMismatchError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// KindOf classifies err. Status-carrying and type-mismatch failures win over
// the kinds of any cause they wrap.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnexpected
	case isStatus(err):
		return KindStatus
	case isTypeMismatch(err):
		return KindTypeMismatch
	case IsInvalidArgument(err):
		return KindInvalidArgument
	case IsUser(err):
		return KindUser
	default:
		return KindUnexpected
	}
}

func isStatus(err error) bool {
	_, ok := AsStatus(err)
	return ok
}

func isTypeMismatch(err error) bool {
	_, ok := AsTypeMismatch(err)
	return ok
}

// Message returns the message a client may see for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if se, ok := AsStatus(err); ok {
		return se.Reason
	}
	return err.Error()
}
