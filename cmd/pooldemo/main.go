package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angeloszaimis/exception-flow/config"
	"github.com/angeloszaimis/exception-flow/internal/workerpool"
	"github.com/angeloszaimis/exception-flow/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, false, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("pool demo failed", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	pool, err := newPool(cfg.Pool, log)
	if err != nil {
		return err
	}
	printStatus(log, pool, "ThreadPool initialized")

	submit(log, pool, 1, cfg.Demo.TaskCount, config.Duration(cfg.Demo.TaskDuration))

	if !sleep(ctx, config.Duration(cfg.Demo.ResizeDelay)) {
		return shutdownNow(log, pool, config.Duration(cfg.Demo.AwaitTimeout))
	}
	if err := pool.SetCorePoolSize(cfg.Demo.ResizedCoreSize); err != nil {
		pool.ShutdownNow()
		return err
	}
	printStatus(log, pool, "Increased core pool size")

	if !sleep(ctx, config.Duration(cfg.Demo.ResizeDelay)) {
		return shutdownNow(log, pool, config.Duration(cfg.Demo.AwaitTimeout))
	}
	if err := pool.SetMaxPoolSize(cfg.Demo.ResizedMaxSize); err != nil {
		pool.ShutdownNow()
		return err
	}
	printStatus(log, pool, "Decreased maximum pool size")

	submit(log, pool, cfg.Demo.TaskCount+1, cfg.Demo.ExtraTaskCount, config.Duration(cfg.Demo.ExtraTaskDuration))

	pool.Shutdown()

	awaitCtx, cancel := context.WithTimeout(ctx, config.Duration(cfg.Demo.AwaitTimeout))
	defer cancel()

	if err := pool.AwaitTermination(awaitCtx); err != nil {
		log.Warn("Forcing shutdown...", slog.Any("err", err))
		return shutdownNow(log, pool, config.Duration(cfg.Demo.AwaitTimeout))
	}

	printStatus(log, pool, "ThreadPool shutdown")
	return nil
}

func newPool(pc config.PoolConfig, log *slog.Logger) (*workerpool.Pool, error) {
	policy, err := workerpool.ParsePolicy(pc.RejectionPolicy)
	if err != nil {
		return nil, err
	}

	return workerpool.New(log, workerpool.Options{
		CorePoolSize:  pc.CoreSize,
		MaxPoolSize:   pc.MaxSize,
		QueueCapacity: pc.QueueCapacity,
		KeepAlive:     config.Duration(pc.KeepAlive),
		Policy:        policy,
	})
}

// submit schedules count tasks numbered from first, each sleeping for d.
func submit(log *slog.Logger, pool *workerpool.Pool, first, count int, d time.Duration) {
	for id := first; id < first+count; id++ {
		if err := pool.Execute(task(log, id, d)); err != nil {
			log.Error("task not scheduled", slog.Int("task", id), slog.Any("err", err))
		}
		printStatus(log, pool, fmt.Sprintf("Submitted Task %d", id))
	}
}

func task(log *slog.Logger, id int, d time.Duration) workerpool.Task {
	return func(ctx context.Context) {
		log.Info("task starting", slog.Int("task", id))
		if !sleep(ctx, d) {
			log.Error("task interrupted", slog.Int("task", id))
			return
		}
		log.Info("task completed", slog.Int("task", id))
	}
}

// sleep waits for d and reports false when ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// shutdownNow cancels running tasks and waits up to timeout for the workers
// to exit.
func shutdownNow(log *slog.Logger, pool *workerpool.Pool, timeout time.Duration) error {
	dropped := pool.ShutdownNow()
	if len(dropped) > 0 {
		log.Warn("tasks never started", slog.Int("count", len(dropped)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := pool.AwaitTermination(ctx); err != nil {
		log.Error("pool did not terminate", slog.Any("err", err))
	}

	printStatus(log, pool, "ThreadPool shutdown")
	return nil
}

func printStatus(log *slog.Logger, pool *workerpool.Pool, message string) {
	log.Info(message, slog.Any("pool", pool.Stats()))
}
