// Package monitor implements a background resource sampler consulted by
// the job queue as an admission input alongside its capacity counters.
package monitor

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/mem"
	"golang.org/x/time/rate"

	"github.com/scorbettUM/dcrx-kv/internal/common"
	"github.com/scorbettUM/dcrx-kv/internal/interfaces"
)

// memSampler is satisfied by gopsutil/v4/mem, swappable in tests.
type memSampler interface {
	VirtualMemory() (*mem.VirtualMemoryStat, error)
}

type gopsutilSampler struct{}

func (gopsutilSampler) VirtualMemory() (*mem.VirtualMemoryStat, error) {
	return mem.VirtualMemory()
}

// Monitor periodically samples host memory usage on its own goroutine and
// caches the last reading so MemoryPercentUsed calls the OS only when no
// sample has been taken yet.
type Monitor struct {
	sampler  memSampler
	interval time.Duration
	logger   *common.Logger

	mu       sync.RWMutex
	lastPct  float64
	lastErr  error
	sampled  bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Monitor that samples at interval (defaulting to 5s).
func New(interval time.Duration, logger *common.Logger) *Monitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Monitor{
		sampler:  gopsutilSampler{},
		interval: interval,
		logger:   logger,
	}
}

var _ interfaces.ResourceMonitor = (*Monitor)(nil)

// safeGo launches a goroutine with panic recovery and logging, tracked by
// m.wg so Stop can wait for it to exit.
func (m *Monitor) safeGo(name string, fn func()) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error().
					Str("goroutine", name).
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(debug.Stack())).
					Msg("monitor: recovered from panic in sampling loop")
			}
		}()
		fn()
	}()
}

// Start launches the sampling loop. Safe to call multiple times — stops
// any existing loop before starting.
func (m *Monitor) Start() {
	if m.cancel != nil {
		m.Stop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	// sampleOnce runs immediately so an early admission check has a
	// reading to consult rather than treating the monitor as unconfigured.
	m.sampleOnce()

	m.safeGo("resource-monitor", func() { m.sampleLoop(ctx) })
}

// Stop cancels the sampling loop and waits for it to exit.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.wg.Wait()
}

func (m *Monitor) sampleLoop(ctx context.Context) {
	limiter := rate.NewLimiter(rate.Every(m.interval), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
		m.sampleOnce()
	}
}

func (m *Monitor) sampleOnce() {
	stat, err := m.sampler.VirtualMemory()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sampled = true
	if err != nil {
		m.lastErr = err
		m.logger.Warn().Err(err).Msg("monitor: failed to sample virtual memory")
		return
	}
	m.lastErr = nil
	m.lastPct = stat.UsedPercent
}

// MemoryPercentUsed returns the most recently sampled percentage of host
// memory in use. If no sample has run yet it takes one synchronously.
func (m *Monitor) MemoryPercentUsed(ctx context.Context) (float64, error) {
	m.mu.RLock()
	sampled := m.sampled
	pct, err := m.lastPct, m.lastErr
	m.mu.RUnlock()

	if !sampled {
		m.sampleOnce()
		m.mu.RLock()
		pct, err = m.lastPct, m.lastErr
		m.mu.RUnlock()
	}
	return pct, err
}
