package dispatch

import (
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/sourcegraph/conc/panics"

	"github.com/angeloszaimis/exception-flow/internal/apperr"
	"github.com/angeloszaimis/exception-flow/internal/errorpage"
	"github.com/angeloszaimis/exception-flow/internal/metrics"
	"github.com/angeloszaimis/exception-flow/internal/reqctx"
)

// HandlerFunc is a route handler. Failures are returned, never written.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Resolution describes how a resolver answered a failure.
type Resolution struct {
	Resolver string
	Code     string
	Status   int
}

// Resolver turns a failure into a response. It reports false when the
// failure is not one it handles, leaving the response untouched.
type Resolver interface {
	Resolve(w http.ResponseWriter, r *http.Request, handler string, err error) (Resolution, bool)
}

// Interceptor wraps handler invocation. PreHandle returning false stops the
// request; AfterCompletion runs for every interceptor whose PreHandle ran and
// receives the failure only when no resolver handled it.
type Interceptor interface {
	PreHandle(w http.ResponseWriter, r *http.Request, handler string) bool
	PostHandle(w http.ResponseWriter, r *http.Request, handler string)
	AfterCompletion(w http.ResponseWriter, r *http.Request, handler string, err error)
}

type registration struct {
	interceptor  Interceptor
	excludePaths []string
}

func (reg registration) appliesTo(p string) bool {
	for _, pattern := range reg.excludePaths {
		if pattern == p {
			return false
		}
		if ok, _ := path.Match(pattern, p); ok {
			return false
		}
	}
	return true
}

type Dispatcher struct {
	logger       *slog.Logger
	interceptors []registration
	resolvers    []Resolver
	collector    *metrics.Collector
}

type Option func(*Dispatcher)

// WithInterceptor registers an interceptor for every path except the
// excluded ones. Patterns follow path.Match.
func WithInterceptor(i Interceptor, excludePaths ...string) Option {
	return func(d *Dispatcher) {
		d.interceptors = append(d.interceptors, registration{interceptor: i, excludePaths: excludePaths})
	}
}

// WithResolvers appends global resolvers, consulted after a route's own.
func WithResolvers(resolvers ...Resolver) Option {
	return func(d *Dispatcher) {
		d.resolvers = append(d.resolvers, resolvers...)
	}
}

func WithMetrics(collector *metrics.Collector) Option {
	return func(d *Dispatcher) {
		d.collector = collector
	}
}

func New(logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{logger: logger}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle adapts h to an http.Handler. local resolvers run before the
// dispatcher's global ones.
func (d *Dispatcher) Handle(name string, h HandlerFunc, local ...Resolver) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d.serve(w, r, name, h, local)
	})
}

func (d *Dispatcher) serve(w http.ResponseWriter, r *http.Request, name string, h HandlerFunc, local []Resolver) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

	chain := d.chainFor(r.URL.Path)

	applied := 0
	for _, i := range chain {
		if !i.PreHandle(rec, r, name) {
			d.afterCompletion(chain[:applied], rec, r, name, nil)
			d.complete(rec, name, start)
			return
		}
		applied++
	}

	err := d.invoke(rec, r, h)
	if err == nil {
		for idx := len(chain) - 1; idx >= 0; idx-- {
			chain[idx].PostHandle(rec, r, name)
		}
		d.afterCompletion(chain, rec, r, name, nil)
		d.complete(rec, name, start)
		return
	}

	if res, ok := d.resolve(rec, r, name, err, local); ok {
		d.emit(metrics.MetricEvent{
			Type:     metrics.EventErrorResolved,
			Handler:  name,
			Resolver: res.Resolver,
			Code:     res.Code,
		})
		d.afterCompletion(chain, rec, r, name, nil)
		d.complete(rec, name, start)
		return
	}

	if !errorpage.Raise(rec, err) {
		d.logger.Error("unresolved failure after response was committed",
			slog.String("handler", name),
			slog.Any("err", err))
	}
	d.emit(metrics.MetricEvent{Type: metrics.EventErrorUnresolved, Handler: name})
	d.afterCompletion(chain, rec, r, name, err)
	d.complete(rec, name, start)
}

func (d *Dispatcher) chainFor(p string) []Interceptor {
	chain := make([]Interceptor, 0, len(d.interceptors))
	for _, reg := range d.interceptors {
		if reg.appliesTo(p) {
			chain = append(chain, reg.interceptor)
		}
	}
	return chain
}

// invoke runs h and converts a panic into an unexpected failure.
func (d *Dispatcher) invoke(w http.ResponseWriter, r *http.Request, h HandlerFunc) (err error) {
	var pc panics.Catcher
	pc.Try(func() {
		err = h(w, r)
	})

	if recovered := pc.Recovered(); recovered != nil {
		id, _ := reqctx.CorrelationID(r.Context())
		d.logger.Error("handler panicked",
			slog.String("id", id),
			slog.String("uri", r.URL.RequestURI()),
			slog.String("stack", string(recovered.Stack)))
		return apperr.Unexpected(fmt.Sprintf("panic: %v", recovered.Value))
	}

	return err
}

func (d *Dispatcher) resolve(w http.ResponseWriter, r *http.Request, name string, err error, local []Resolver) (Resolution, bool) {
	for _, resolvers := range [][]Resolver{local, d.resolvers} {
		for _, resolver := range resolvers {
			if res, ok := resolver.Resolve(w, r, name, err); ok {
				return res, true
			}
		}
	}
	return Resolution{}, false
}

func (d *Dispatcher) afterCompletion(chain []Interceptor, w http.ResponseWriter, r *http.Request, name string, err error) {
	for idx := len(chain) - 1; idx >= 0; idx-- {
		chain[idx].AfterCompletion(w, r, name, err)
	}
}

func (d *Dispatcher) complete(rec *statusRecorder, name string, start time.Time) {
	status := rec.statusCode
	if pending, ok := errorpage.PendingStatus(rec); ok {
		status = pending
	}

	d.emit(metrics.MetricEvent{
		Type:       metrics.EventResponseCompleted,
		Timestamp:  time.Now(),
		Handler:    name,
		Duration:   time.Since(start),
		StatusCode: status,
	})
}

func (d *Dispatcher) emit(event metrics.MetricEvent) {
	if d.collector == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	d.collector.Emit(event)
}
