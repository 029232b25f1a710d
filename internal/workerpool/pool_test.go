package workerpool_test

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/exception-flow/internal/workerpool"
	"github.com/angeloszaimis/exception-flow/pkg/logger"
)

var _ = Describe("Pool", func() {
	var (
		release chan struct{}
		ran     atomic.Int64
	)

	BeforeEach(func() {
		release = make(chan struct{})
		ran.Store(0)
	})

	blocking := func(ctx context.Context) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		ran.Add(1)
	}

	newPool := func(opts workerpool.Options) *workerpool.Pool {
		pool, err := workerpool.New(logger.Discard(), opts)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			select {
			case <-release:
			default:
				close(release)
			}
			pool.ShutdownNow()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			Expect(pool.AwaitTermination(ctx)).To(Succeed())
		})
		return pool
	}

	Describe("New", func() {
		DescribeTable("invalid options",
			func(opts workerpool.Options) {
				_, err := workerpool.New(logger.Discard(), opts)
				Expect(err).To(HaveOccurred())
			},
			Entry("max below core", workerpool.Options{CorePoolSize: 3, MaxPoolSize: 2}),
			Entry("zero max", workerpool.Options{CorePoolSize: 0, MaxPoolSize: 0}),
			Entry("negative core", workerpool.Options{CorePoolSize: -1, MaxPoolSize: 2}),
			Entry("negative queue", workerpool.Options{CorePoolSize: 1, MaxPoolSize: 2, QueueCapacity: -1}),
			Entry("unknown policy", workerpool.Options{CorePoolSize: 1, MaxPoolSize: 2, Policy: "retry"}),
		)

		It("should reject a max size below core with ErrInvalidPoolSize", func() {
			_, err := workerpool.New(logger.Discard(), workerpool.Options{CorePoolSize: 3, MaxPoolSize: 2})
			Expect(errors.Is(err, workerpool.ErrInvalidPoolSize)).To(BeTrue())
		})
	})

	Describe("ParsePolicy", func() {
		DescribeTable("known policies",
			func(in string, want workerpool.RejectionPolicy) {
				got, err := workerpool.ParsePolicy(in)
				Expect(err).NotTo(HaveOccurred())
				Expect(got).To(Equal(want))
			},
			Entry("default", "", workerpool.CallerRuns),
			Entry("caller-runs", "caller-runs", workerpool.CallerRuns),
			Entry("abort", "abort", workerpool.Abort),
			Entry("discard", "discard", workerpool.Discard),
			Entry("discard-oldest", "discard-oldest", workerpool.DiscardOldest),
		)
	})

	Describe("Execute", func() {
		It("should fill core workers, then the queue, then extra workers", func() {
			pool := newPool(workerpool.Options{CorePoolSize: 2, MaxPoolSize: 4, QueueCapacity: 2, Policy: workerpool.Abort})

			for range 2 {
				Expect(pool.Execute(blocking)).To(Succeed())
			}
			Expect(pool.Stats().PoolSize).To(Equal(2))
			Expect(pool.Stats().QueueSize).To(Equal(0))

			for range 2 {
				Expect(pool.Execute(blocking)).To(Succeed())
			}
			Expect(pool.Stats().PoolSize).To(Equal(2))
			Expect(pool.Stats().QueueSize).To(Equal(2))

			for range 2 {
				Expect(pool.Execute(blocking)).To(Succeed())
			}
			Expect(pool.Stats().PoolSize).To(Equal(4))

			err := pool.Execute(blocking)
			Expect(errors.Is(err, workerpool.ErrRejected)).To(BeTrue())

			Eventually(func() int64 { return pool.Stats().ActiveCount }).Should(Equal(int64(4)))
			stats := pool.Stats()
			Expect(stats.ActiveCount + int64(stats.QueueSize)).To(BeNumerically("<=", 4+2))
			Expect(stats.InFlight).To(Equal(int64(6)))
			Expect(stats.Rejected).To(Equal(int64(1)))
			Expect(stats.LargestPoolSize).To(Equal(4))

			close(release)
			Eventually(func() int64 { return pool.Stats().CompletedTasks }).Should(Equal(int64(6)))
			Eventually(func() int64 { return pool.Stats().TaskCount }).Should(Equal(int64(6)))
		})

		It("should run the task in the caller when saturated under caller-runs", func() {
			pool := newPool(workerpool.Options{CorePoolSize: 1, MaxPoolSize: 1, QueueCapacity: 1})

			Expect(pool.Execute(blocking)).To(Succeed())
			Expect(pool.Execute(blocking)).To(Succeed())

			inCaller := false
			var during workerpool.Stats
			Expect(pool.Execute(func(context.Context) {
				inCaller = true
				during = pool.Stats()
			})).To(Succeed())

			Expect(inCaller).To(BeTrue())
			Expect(during.ActiveCount + int64(during.QueueSize)).To(BeNumerically("<=", 1+1))
			Expect(during.CompletedTasks).To(BeZero())

			stats := pool.Stats()
			Expect(stats.CallerRuns).To(Equal(int64(1)))
			Expect(stats.CompletedTasks).To(BeZero())
			Expect(stats.Rejected).To(BeZero())
		})

		It("should survive a panicking task run in the caller", func() {
			pool := newPool(workerpool.Options{CorePoolSize: 1, MaxPoolSize: 1, QueueCapacity: 0})

			Expect(pool.Execute(blocking)).To(Succeed())
			Expect(pool.Execute(func(context.Context) { panic("boom") })).To(Succeed())

			Expect(pool.Stats().CallerRuns).To(Equal(int64(1)))
			Expect(pool.Stats().CompletedTasks).To(BeZero())
		})

		It("should drop the task under discard", func() {
			pool := newPool(workerpool.Options{CorePoolSize: 1, MaxPoolSize: 1, QueueCapacity: 0, Policy: workerpool.Discard})

			Expect(pool.Execute(blocking)).To(Succeed())
			Expect(pool.Execute(blocking)).To(Succeed())

			Expect(pool.Stats().Rejected).To(Equal(int64(1)))
		})

		It("should replace the oldest queued task under discard-oldest", func() {
			pool := newPool(workerpool.Options{CorePoolSize: 1, MaxPoolSize: 1, QueueCapacity: 1, Policy: workerpool.DiscardOldest})

			var oldest, newest atomic.Bool
			Expect(pool.Execute(blocking)).To(Succeed())
			Expect(pool.Execute(func(context.Context) { oldest.Store(true) })).To(Succeed())
			Expect(pool.Execute(func(context.Context) { newest.Store(true) })).To(Succeed())

			close(release)
			Eventually(newest.Load).Should(BeTrue())
			Expect(oldest.Load()).To(BeFalse())
			Expect(pool.Stats().Rejected).To(Equal(int64(1)))
		})

		It("should refuse nil tasks", func() {
			pool := newPool(workerpool.Options{CorePoolSize: 1, MaxPoolSize: 1})
			Expect(pool.Execute(nil)).To(MatchError(workerpool.ErrNilTask))
		})

		It("should keep the worker alive when a task panics", func() {
			pool := newPool(workerpool.Options{CorePoolSize: 1, MaxPoolSize: 1, QueueCapacity: 2})

			Expect(pool.Execute(func(context.Context) { panic("boom") })).To(Succeed())
			done := make(chan struct{})
			Expect(pool.Execute(func(context.Context) { close(done) })).To(Succeed())

			Eventually(done).Should(BeClosed())
			Eventually(func() int64 { return pool.Stats().CompletedTasks }).Should(Equal(int64(2)))
			Expect(pool.Stats().PoolSize).To(Equal(1))
		})
	})

	Describe("resizing", func() {
		It("should fail to lower max below core", func() {
			pool := newPool(workerpool.Options{CorePoolSize: 2, MaxPoolSize: 4})

			err := pool.SetMaxPoolSize(1)
			Expect(errors.Is(err, workerpool.ErrInvalidPoolSize)).To(BeTrue())
			Expect(pool.Stats().MaxPoolSize).To(Equal(4))
		})

		It("should fail to raise core above max", func() {
			pool := newPool(workerpool.Options{CorePoolSize: 2, MaxPoolSize: 4})
			Expect(errors.Is(pool.SetCorePoolSize(5), workerpool.ErrInvalidPoolSize)).To(BeTrue())
		})

		It("should start workers for queued work when core grows", func() {
			pool := newPool(workerpool.Options{CorePoolSize: 1, MaxPoolSize: 3, QueueCapacity: 5})

			for range 3 {
				Expect(pool.Execute(blocking)).To(Succeed())
			}
			Expect(pool.Stats().QueueSize).To(Equal(2))

			Expect(pool.SetCorePoolSize(3)).To(Succeed())

			Eventually(func() int64 { return pool.Stats().ActiveCount }).Should(Equal(int64(3)))
			Expect(pool.Stats().PoolSize).To(Equal(3))
			Expect(pool.Stats().CorePoolSize).To(Equal(3))
		})

		It("should retire workers above a lowered max", func() {
			pool := newPool(workerpool.Options{CorePoolSize: 1, MaxPoolSize: 3, QueueCapacity: 0, KeepAlive: time.Hour})

			for range 3 {
				Expect(pool.Execute(blocking)).To(Succeed())
			}
			Expect(pool.Stats().PoolSize).To(Equal(3))

			Expect(pool.SetMaxPoolSize(1)).To(Succeed())
			close(release)

			Eventually(func() int { return pool.Stats().PoolSize }).Should(Equal(1))
			Expect(pool.Stats().LargestPoolSize).To(Equal(3))
		})

		It("should let workers above core exit after the keep-alive", func() {
			pool := newPool(workerpool.Options{CorePoolSize: 1, MaxPoolSize: 2, QueueCapacity: 0, KeepAlive: 10 * time.Millisecond})

			Expect(pool.Execute(blocking)).To(Succeed())
			Expect(pool.Execute(blocking)).To(Succeed())
			Expect(pool.Stats().PoolSize).To(Equal(2))

			close(release)

			Eventually(func() int { return pool.Stats().PoolSize }).Should(Equal(1))
		})
	})

	Describe("shutdown", func() {
		It("should run queued tasks and then terminate", func() {
			pool := newPool(workerpool.Options{CorePoolSize: 1, MaxPoolSize: 1, QueueCapacity: 3})

			for range 3 {
				Expect(pool.Execute(blocking)).To(Succeed())
			}
			pool.Shutdown()
			Expect(pool.IsShutdown()).To(BeTrue())
			Expect(errors.Is(pool.Execute(blocking), workerpool.ErrShutdown)).To(BeTrue())

			close(release)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			Expect(pool.AwaitTermination(ctx)).To(Succeed())
			Expect(pool.IsTerminated()).To(BeTrue())
			Expect(ran.Load()).To(Equal(int64(3)))
			Expect(pool.Stats().PoolSize).To(BeZero())
		})

		It("should time out waiting while tasks are still running", func() {
			pool := newPool(workerpool.Options{CorePoolSize: 1, MaxPoolSize: 1})

			Expect(pool.Execute(blocking)).To(Succeed())
			pool.Shutdown()

			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			Expect(pool.AwaitTermination(ctx)).To(MatchError(context.DeadlineExceeded))
		})

		It("should cancel running tasks and return queued ones on ShutdownNow", func() {
			pool := newPool(workerpool.Options{CorePoolSize: 1, MaxPoolSize: 1, QueueCapacity: 3})

			for range 3 {
				Expect(pool.Execute(blocking)).To(Succeed())
			}

			pending := pool.ShutdownNow()
			Expect(pending).To(HaveLen(2))

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			Expect(pool.AwaitTermination(ctx)).To(Succeed())
			Expect(ran.Load()).To(Equal(int64(1)))
			Expect(errors.Is(pool.Execute(blocking), workerpool.ErrShutdown)).To(BeTrue())
		})
	})
})
