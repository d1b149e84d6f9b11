package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// OpStats summarizes one engine operation.
type OpStats struct {
	Calls uint64 `json:"calls" msgpack:"calls"`
	// Misses counts calls answered with the uninitialized sentinel, or that failed.
	Misses     uint64        `json:"misses" msgpack:"misses"`
	AvgLatency time.Duration `json:"avg_latency" msgpack:"avg_latency"`
	LastCall   time.Time     `json:"last_call" msgpack:"last_call"`
}

type metricEvent struct {
	op        string
	latency   time.Duration
	miss      bool
	timestamp time.Time
}

type opMetrics struct {
	calls      atomic.Uint64
	misses     atomic.Uint64
	avgLatency atomic.Int64
	lastCall   atomic.Int64
}

// Metrics aggregates operation timings off the caller's goroutine. Events are
// dropped rather than blocking when the buffer is full.
type Metrics struct {
	events    chan metricEvent
	ops       sync.Map // op -> *opMetrics
	dropped   atomic.Uint64
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	batchSize int
}

func NewMetrics(parent context.Context, bufferSize int) *Metrics {
	ctx, cancel := context.WithCancel(parent)
	m := &Metrics{
		events:    make(chan metricEvent, bufferSize),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		batchSize: 100,
	}
	go m.processEvents()
	return m
}

func (m *Metrics) Record(op string, latency time.Duration, miss bool) {
	select {
	case m.events <- metricEvent{op: op, latency: latency, miss: miss, timestamp: time.Now()}:
	default:
		m.dropped.Add(1)
	}
}

// observe is deferred by engine operations: defer m.observe(op, time.Now(), &miss).
func (m *Metrics) observe(op string, start time.Time, miss *bool) {
	m.Record(op, time.Since(start), *miss)
}

func (m *Metrics) Snapshot() map[string]OpStats {
	out := make(map[string]OpStats)
	m.ops.Range(func(key, value any) bool {
		om := value.(*opMetrics)
		out[key.(string)] = OpStats{
			Calls:      om.calls.Load(),
			Misses:     om.misses.Load(),
			AvgLatency: time.Duration(om.avgLatency.Load()),
			LastCall:   time.Unix(0, om.lastCall.Load()),
		}
		return true
	})
	return out
}

func (m *Metrics) Dropped() uint64 {
	return m.dropped.Load()
}

// Close stops the collector; events still buffered are discarded.
func (m *Metrics) Close() error {
	m.cancel()
	<-m.done
	return nil
}

func (m *Metrics) processEvents() {
	defer close(m.done)

	batch := make([]metricEvent, 0, m.batchSize)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case event := <-m.events:
			batch = append(batch, event)
			if len(batch) >= m.batchSize {
				m.processBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				m.processBatch(batch)
				batch = batch[:0]
			}
		}
	}
}

func (m *Metrics) processBatch(batch []metricEvent) {
	for _, event := range batch {
		m.update(event)
	}
}

func (m *Metrics) update(event metricEvent) {
	value, _ := m.ops.LoadOrStore(event.op, &opMetrics{})
	om := value.(*opMetrics)

	if om.calls.Add(1) == 1 {
		om.avgLatency.Store(int64(event.latency))
	} else {
		// exponential moving average
		current := float64(om.avgLatency.Load())
		om.avgLatency.Store(int64(current*0.9 + float64(event.latency)*0.1))
	}
	if event.miss {
		om.misses.Add(1)
	}
	om.lastCall.Store(event.timestamp.UnixNano())
}
