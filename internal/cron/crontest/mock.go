// Package crontest provides test doubles for the cron package.
package crontest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flemzord/parlo/internal/cron"
)

// MockJob is a configurable cron.Job. A nil RunFunc makes Run return Err.
type MockJob struct {
	NameVal     string
	ScheduleVal string
	RunFunc     func(ctx context.Context) error
	Err         error

	runs atomic.Int32
}

var _ cron.Job = (*MockJob)(nil)

func (m *MockJob) Name() string     { return m.NameVal }
func (m *MockJob) Schedule() string { return m.ScheduleVal }

func (m *MockJob) Run(ctx context.Context) error {
	m.runs.Add(1)
	if m.RunFunc != nil {
		return m.RunFunc(ctx)
	}
	return m.Err
}

// CallCount reports how many times Run was entered.
func (m *MockJob) CallCount() int { return int(m.runs.Load()) }

// MockSweeper is a test double for cron.SessionSweeper.
type MockSweeper struct {
	Removed int
	Calls   atomic.Int32
}

// SweepExpired implements cron.SessionSweeper.
func (m *MockSweeper) SweepExpired() int {
	m.Calls.Add(1)
	return m.Removed
}

// MockPruner is a test double for cron.TranscriptPruner.
type MockPruner struct {
	PruneFunc func(ctx context.Context, cutoff time.Time) (int64, error)

	mu      sync.Mutex
	cutoffs []time.Time
}

// PruneBefore implements cron.TranscriptPruner.
func (m *MockPruner) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	m.cutoffs = append(m.cutoffs, cutoff)
	m.mu.Unlock()
	if m.PruneFunc != nil {
		return m.PruneFunc(ctx, cutoff)
	}
	return 0, nil
}

// Cutoffs returns every cutoff PruneBefore was called with.
func (m *MockPruner) Cutoffs() []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Time(nil), m.cutoffs...)
}
