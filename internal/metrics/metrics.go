package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
)

const maxSamples = 1000

type Metrics struct {
	mutex         sync.RWMutex
	requests      map[string]int64
	responseTimes map[string][]time.Duration
	statusCodes   map[string]map[int]int64
	resolved      map[string]map[string]int64
	unresolved    map[string]int64
	startTime     time.Time
}

type Snapshot struct {
	TotalRequests   int64                     `json:"total_requests"`
	TotalUnresolved int64                     `json:"total_unresolved"`
	Uptime          time.Duration             `json:"uptime"`
	Handlers        map[string]HandlerMetrics `json:"handlers"`
}

type HandlerMetrics struct {
	Requests    int64            `json:"requests"`
	AvgResponse time.Duration    `json:"avg_response"`
	P50Response time.Duration    `json:"p50_response"`
	P95Response time.Duration    `json:"p95_response"`
	P99Response time.Duration    `json:"p99_response"`
	StatusCodes map[int]int64    `json:"status_codes"`
	Resolved    map[string]int64 `json:"resolved,omitempty"`
	Unresolved  int64            `json:"unresolved"`
}

// ResolutionKey names a resolved error in snapshots, e.g. "exhandler:BAD".
func ResolutionKey(resolver, code string) string {
	if code == "" {
		return resolver
	}
	return resolver + ":" + code
}

func (m *Metrics) RecordResponse(handler string, duration time.Duration, statusCode int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.requests[handler]++

	m.responseTimes[handler] = append(m.responseTimes[handler], duration)
	if len(m.responseTimes[handler]) > maxSamples {
		m.responseTimes[handler] = m.responseTimes[handler][1:]
	}

	if m.statusCodes[handler] == nil {
		m.statusCodes[handler] = make(map[int]int64)
	}
	m.statusCodes[handler][statusCode]++
}

func (m *Metrics) RecordResolved(handler, resolver, code string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.resolved[handler] == nil {
		m.resolved[handler] = make(map[string]int64)
	}
	m.resolved[handler][ResolutionKey(resolver, code)]++
}

func (m *Metrics) RecordUnresolved(handler string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.unresolved[handler]++
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:   time.Since(m.startTime),
		Handlers: make(map[string]HandlerMetrics),
	}

	handlers := lo.Uniq(lo.Flatten([][]string{
		lo.Keys(m.requests),
		lo.Keys(m.resolved),
		lo.Keys(m.unresolved),
	}))

	for _, handler := range handlers {
		snap.TotalRequests += m.requests[handler]
		snap.TotalUnresolved += m.unresolved[handler]

		hm := HandlerMetrics{
			Requests:    m.requests[handler],
			StatusCodes: lo.Assign(m.statusCodes[handler]),
			Resolved:    lo.Assign(m.resolved[handler]),
			Unresolved:  m.unresolved[handler],
		}

		durations := m.responseTimes[handler]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			hm.AvgResponse = average(sorted)
			hm.P50Response = percentile(sorted, 0.50)
			hm.P95Response = percentile(sorted, 0.95)
			hm.P99Response = percentile(sorted, 0.99)
		}

		snap.Handlers[handler] = hm
	}

	return snap
}

func NewMetrics() *Metrics {
	return &Metrics{
		requests:      make(map[string]int64),
		responseTimes: make(map[string][]time.Duration),
		statusCodes:   make(map[string]map[int]int64),
		resolved:      make(map[string]map[string]int64),
		unresolved:    make(map[string]int64),
		startTime:     time.Now(),
	}
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
