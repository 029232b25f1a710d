package workerpool

import "log/slog"

// Stats is a point-in-time view of the pool. Fields are read without a
// global lock, so the view is approximate while tasks are running.
type Stats struct {
	PoolSize        int
	ActiveCount     int64
	CompletedTasks  int64
	QueueSize       int
	InFlight        int64
	LargestPoolSize int
	TaskCount       int64
	CorePoolSize    int
	MaxPoolSize     int
	Rejected        int64
	CallerRuns      int64
}

func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("pool_size", s.PoolSize),
		slog.Int64("active", s.ActiveCount),
		slog.Int64("completed", s.CompletedTasks),
		slog.Int("queued", s.QueueSize),
		slog.Int64("in_flight", s.InFlight),
		slog.Int("largest_pool_size", s.LargestPoolSize),
		slog.Int64("task_count", s.TaskCount),
		slog.Int("core", s.CorePoolSize),
		slog.Int("max", s.MaxPoolSize),
		slog.Int64("rejected", s.Rejected),
		slog.Int64("caller_runs", s.CallerRuns),
	)
}
