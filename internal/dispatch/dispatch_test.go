package dispatch_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/exception-flow/internal/apperr"
	"github.com/angeloszaimis/exception-flow/internal/dispatch"
	"github.com/angeloszaimis/exception-flow/internal/errorpage"
	"github.com/angeloszaimis/exception-flow/internal/metrics"
	"github.com/angeloszaimis/exception-flow/pkg/logger"
)

type recordingInterceptor struct {
	name  string
	calls *[]string
	allow bool
	err   error
}

func (i *recordingInterceptor) PreHandle(_ http.ResponseWriter, _ *http.Request, handler string) bool {
	*i.calls = append(*i.calls, fmt.Sprintf("%s.pre(%s)", i.name, handler))
	return i.allow
}

func (i *recordingInterceptor) PostHandle(_ http.ResponseWriter, _ *http.Request, handler string) {
	*i.calls = append(*i.calls, fmt.Sprintf("%s.post(%s)", i.name, handler))
}

func (i *recordingInterceptor) AfterCompletion(_ http.ResponseWriter, _ *http.Request, handler string, err error) {
	i.err = err
	*i.calls = append(*i.calls, fmt.Sprintf("%s.after(%s)", i.name, handler))
}

type resolverFunc func(w http.ResponseWriter, r *http.Request, handler string, err error) (dispatch.Resolution, bool)

func (f resolverFunc) Resolve(w http.ResponseWriter, r *http.Request, handler string, err error) (dispatch.Resolution, bool) {
	return f(w, r, handler, err)
}

func decline() dispatch.Resolver {
	return resolverFunc(func(http.ResponseWriter, *http.Request, string, error) (dispatch.Resolution, bool) {
		return dispatch.Resolution{}, false
	})
}

func accept(name string, status int) dispatch.Resolver {
	return resolverFunc(func(w http.ResponseWriter, _ *http.Request, _ string, _ error) (dispatch.Resolution, bool) {
		w.WriteHeader(status)
		return dispatch.Resolution{Resolver: name, Code: "C", Status: status}, true
	})
}

var _ = Describe("Dispatcher", func() {
	var (
		calls       []string
		first       *recordingInterceptor
		second      *recordingInterceptor
		ok          dispatch.HandlerFunc
		failing     dispatch.HandlerFunc
		errExpected error
	)

	BeforeEach(func() {
		calls = nil
		first = &recordingInterceptor{name: "first", calls: &calls, allow: true}
		second = &recordingInterceptor{name: "second", calls: &calls, allow: true}
		errExpected = apperr.InvalidArgument("wrong url")
		ok = func(w http.ResponseWriter, r *http.Request) error {
			calls = append(calls, "handler")
			w.WriteHeader(http.StatusOK)
			return nil
		}
		failing = func(w http.ResponseWriter, r *http.Request) error {
			calls = append(calls, "handler")
			return errExpected
		}
	})

	serve := func(h http.Handler, target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		return rec
	}

	Context("on success", func() {
		It("should run pre in order and post/after in reverse", func() {
			d := dispatch.New(logger.Discard(),
				dispatch.WithInterceptor(first),
				dispatch.WithInterceptor(second))

			rec := serve(d.Handle("test", ok), "/api/members/1")

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(calls).To(Equal([]string{
				"first.pre(test)", "second.pre(test)",
				"handler",
				"second.post(test)", "first.post(test)",
				"second.after(test)", "first.after(test)",
			}))
			Expect(first.err).NotTo(HaveOccurred())
		})

		It("should skip interceptors for excluded paths", func() {
			d := dispatch.New(logger.Discard(), dispatch.WithInterceptor(first, "/health", "/static/*"))

			serve(d.Handle("health", ok), "/health")
			serve(d.Handle("static", ok), "/static/app.js")

			Expect(calls).To(Equal([]string{"handler", "handler"}))
		})
	})

	Context("when an interceptor vetoes the request", func() {
		It("should stop before the handler and complete only the earlier interceptors", func() {
			second.allow = false
			d := dispatch.New(logger.Discard(),
				dispatch.WithInterceptor(first),
				dispatch.WithInterceptor(second))

			serve(d.Handle("test", ok), "/x")

			Expect(calls).To(Equal([]string{"first.pre(test)", "second.pre(test)", "first.after(test)"}))
		})
	})

	Context("on failure", func() {
		It("should consult local resolvers before global ones", func() {
			d := dispatch.New(logger.Discard(),
				dispatch.WithInterceptor(first),
				dispatch.WithResolvers(accept("global", http.StatusTeapot)))

			rec := serve(d.Handle("test", failing, decline(), accept("local", http.StatusBadRequest)), "/x")

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(calls).NotTo(ContainElement("first.post(test)"))
			Expect(calls).To(ContainElement("first.after(test)"))
			Expect(first.err).NotTo(HaveOccurred())
		})

		It("should hand unresolved failures to afterCompletion and the container", func() {
			d := dispatch.New(logger.Discard(),
				dispatch.WithInterceptor(first),
				dispatch.WithResolvers(decline()))

			var pending int
			app := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				d.Handle("test", failing).ServeHTTP(w, r)
				pending, _ = errorpage.PendingStatus(w)
			})
			errorApp := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			})

			rec := serve(errorpage.NewContainer(app, errorApp, logger.Discard()), "/x")

			Expect(pending).To(Equal(http.StatusInternalServerError))
			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
			Expect(first.err).To(MatchError(errExpected))
		})

		It("should turn a panic into an unexpected failure", func() {
			d := dispatch.New(logger.Discard(), dispatch.WithInterceptor(first))

			panicking := func(w http.ResponseWriter, r *http.Request) error {
				panic("boom")
			}
			rec := serve(d.Handle("test", panicking), "/x")

			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
			Expect(first.err).To(HaveOccurred())
			Expect(first.err.Error()).To(ContainSubstring("boom"))
			Expect(apperr.KindOf(first.err)).To(Equal(apperr.KindUnexpected))
		})
	})

	Context("with metrics", func() {
		It("should record completions and resolutions per handler", func() {
			collector := metrics.NewCollector(16, logger.Discard())
			ctx, cancel := context.WithCancel(context.Background())
			DeferCleanup(cancel)
			collector.Start(ctx)

			d := dispatch.New(logger.Discard(),
				dispatch.WithResolvers(accept("fallback", http.StatusBadRequest)),
				dispatch.WithMetrics(collector))

			serve(d.Handle("members", ok), "/a")
			serve(d.Handle("members", failing), "/b")

			Eventually(func() int64 {
				return collector.Snapshot().Handlers["members"].Requests
			}).Should(Equal(int64(2)))

			snap := collector.Snapshot().Handlers["members"]
			Expect(snap.StatusCodes).To(HaveKeyWithValue(http.StatusBadRequest, int64(1)))
			Expect(snap.Resolved).To(HaveKeyWithValue(metrics.ResolutionKey("fallback", "C"), int64(1)))
		})
	})
})
