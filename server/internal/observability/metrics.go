package observability

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics aggregates per-stage counters for the memory pipeline.
type Metrics struct {
	mu     sync.Mutex
	stages map[string]*StageMetrics
}

// StageMetrics represents metrics for a single pipeline stage.
type StageMetrics struct {
	executionCount atomic.Int64
	totalDuration  atomic.Int64 // milliseconds
	errorCount     atomic.Int64
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{stages: make(map[string]*StageMetrics)}
}

func (m *Metrics) stage(name string) *StageMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	sm, ok := m.stages[name]
	if !ok {
		sm = &StageMetrics{}
		m.stages[name] = sm
	}
	return sm
}

// Observe records one execution of stage.
func (m *Metrics) Observe(stage string, duration time.Duration, err error) {
	sm := m.stage(stage)
	sm.executionCount.Add(1)
	sm.totalDuration.Add(duration.Milliseconds())
	if err != nil {
		sm.errorCount.Add(1)
	}
}

// Track starts timing stage; call the returned func with the stage's error.
func (m *Metrics) Track(stage string) func(error) {
	start := time.Now()
	return func(err error) {
		m.Observe(stage, time.Since(start), err)
	}
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := &MetricsSnapshot{Stages: make([]*StageSnapshot, 0, len(m.stages))}
	for name, sm := range m.stages {
		count := sm.executionCount.Load()
		s := &StageSnapshot{
			Stage:          name,
			ExecutionCount: count,
			ErrorCount:     sm.errorCount.Load(),
		}
		if count > 0 {
			s.AverageDurationMs = sm.totalDuration.Load() / count
		}
		snapshot.Stages = append(snapshot.Stages, s)
	}
	sort.Slice(snapshot.Stages, func(i, j int) bool {
		return snapshot.Stages[i].Stage < snapshot.Stages[j].Stage
	})
	return snapshot
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	Stages []*StageSnapshot `json:"stages"`
}

// StageSnapshot represents metrics for a specific stage.
type StageSnapshot struct {
	Stage             string `json:"stage"`
	ExecutionCount    int64  `json:"execution_count"`
	ErrorCount        int64  `json:"error_count"`
	AverageDurationMs int64  `json:"average_duration_ms"`
}

// Get returns the snapshot for stage, or nil.
func (s *MetricsSnapshot) Get(stage string) *StageSnapshot {
	for _, st := range s.Stages {
		if st.Stage == stage {
			return st
		}
	}
	return nil
}
