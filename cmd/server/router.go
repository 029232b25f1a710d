package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/angeloszaimis/exception-flow/config"
	"github.com/angeloszaimis/exception-flow/internal/controller"
	"github.com/angeloszaimis/exception-flow/internal/dispatch"
	"github.com/angeloszaimis/exception-flow/internal/errorpage"
	"github.com/angeloszaimis/exception-flow/internal/exhandler"
	"github.com/angeloszaimis/exception-flow/internal/filter"
	"github.com/angeloszaimis/exception-flow/internal/interceptor"
	"github.com/angeloszaimis/exception-flow/internal/metrics"
	"github.com/angeloszaimis/exception-flow/internal/resolver"
)

// setupRouter builds the full handler: the request filter around both the
// application and the error page, inside the error-page container. The
// returned func releases the filter.
func setupRouter(cfg *config.Config, log *slog.Logger, collector *metrics.Collector) (http.Handler, func()) {
	logFilter := filter.New(log, cfg.Filter.DispatchTypes)

	d := dispatch.New(log,
		dispatch.WithInterceptor(interceptor.New(log), cfg.Interceptor.ExcludePaths...),
		dispatch.WithResolvers(resolver.DefaultChain(log)...),
		dispatch.WithMetrics(collector))

	app := chi.NewRouter()
	app.Use(middleware.RealIP)
	app.Use(logFilter.Middleware)

	app.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = errorpage.SendError(w, http.StatusNotFound, "No handler found for "+r.Method+" "+r.URL.Path)
	})
	app.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = errorpage.SendError(w, http.StatusMethodNotAllowed, "Request method '"+r.Method+"' is not supported")
	})

	app.Method(http.MethodGet, "/health", d.Handle("health", controller.Health))
	app.Method(http.MethodGet, "/metrics", collector.Handler())

	members := controller.NewMembersController(controller.APIProfile)
	status := controller.NewStatusController()
	app.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/members/{id}", d.Handle("api.members", members.GetMember))
		r.Method(http.MethodGet, "/response-status-ex1", d.Handle("api.responseStatusEx1", status.ResponseStatusEx1))
		r.Method(http.MethodGet, "/response-status-ex2", d.Handle("api.responseStatusEx2", status.ResponseStatusEx2))
		r.Method(http.MethodGet, "/default-handler-ex", d.Handle("api.defaultHandlerEx", status.DefaultHandlerEx))
	})

	members2 := controller.NewMembersController(controller.API2Profile)
	mapper := exhandler.New(log)
	app.Route("/api2", func(r chi.Router) {
		r.Method(http.MethodGet, "/members/{id}", d.Handle("api2.members", members2.GetMember, mapper))
	})

	triggers := controller.NewErrorTriggerController()
	app.Method(http.MethodGet, "/error-ex", d.Handle("servlet.errorEx", triggers.ErrorEx))
	app.Method(http.MethodGet, "/error-400", d.Handle("servlet.error400", triggers.Error400))
	app.Method(http.MethodGet, "/error-404", d.Handle("servlet.error404", triggers.Error404))
	app.Method(http.MethodGet, "/error-500", d.Handle("servlet.error500", triggers.Error500))

	page := errorpage.NewPage(errorpage.Options{
		IncludeMessage:   cfg.ErrorPage.IncludeMessage,
		IncludeException: cfg.ErrorPage.IncludeException,
	})
	errorApp := chi.NewRouter()
	errorApp.Use(logFilter.Middleware)
	errorApp.Handle(errorpage.ErrorPath, d.Handle("errorpage", page.Render))

	return errorpage.NewContainer(app, errorApp, log), logFilter.Close
}
