package metrics

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventResponseCompleted EventType = "response_completed"
	EventErrorResolved     EventType = "error_resolved"
	EventErrorUnresolved   EventType = "error_unresolved"
)

type MetricEvent struct {
	Type       EventType
	Timestamp  time.Time
	Handler    string
	Duration   time.Duration
	StatusCode int
	Resolver   string
	Code       string
}

type Collector struct {
	eventCh chan MetricEvent
	metrics *Metrics
	logger  *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh: make(chan MetricEvent, bufferSize),
		metrics: NewMetrics(),
		logger:  logger,
	}
}

// Emit queues an event without blocking. Events are dropped when the buffer
// is full.
func (c *Collector) Emit(event MetricEvent) {
	select {
	case c.eventCh <- event:
	default:
		c.logger.Debug("metrics buffer full, dropping event", slog.String("type", string(event.Type)))
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventResponseCompleted:
		c.metrics.RecordResponse(event.Handler, event.Duration, event.StatusCode)
	case EventErrorResolved:
		c.metrics.RecordResolved(event.Handler, event.Resolver, event.Code)
	case EventErrorUnresolved:
		c.metrics.RecordUnresolved(event.Handler)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}
