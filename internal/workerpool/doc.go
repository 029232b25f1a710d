// Package workerpool is a bounded executor with a core and a max number of
// workers, a bounded queue and a rejection policy for when both are full.
// Pool sizes can be changed while the pool is running.
//
//	pool, err := workerpool.New(log, workerpool.Options{
//		CorePoolSize:  2,
//		MaxPoolSize:   4,
//		QueueCapacity: 5,
//		KeepAlive:     time.Millisecond,
//		Policy:        workerpool.CallerRuns,
//	})
//
// At any time the running plus queued tasks never exceed the max size plus
// the queue capacity. Tasks run by the caller under CallerRuns are outside
// that bound.
package workerpool
