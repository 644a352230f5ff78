package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/stretchr/testify/require"

	"github.com/scorbettUM/dcrx-kv/internal/common"
)

type fakeSampler struct {
	pct float64
	err error
}

func (f *fakeSampler) VirtualMemory() (*mem.VirtualMemoryStat, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &mem.VirtualMemoryStat{UsedPercent: f.pct}, nil
}

func TestMonitorSamplesOnFirstCallWithoutStart(t *testing.T) {
	m := New(time.Hour, common.NewSilentLogger())
	m.sampler = &fakeSampler{pct: 42.5}

	pct, err := m.MemoryPercentUsed(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 42.5, pct, 0.001)
}

func TestMonitorStartUpdatesReading(t *testing.T) {
	sampler := &fakeSampler{pct: 10}
	m := New(20*time.Millisecond, common.NewSilentLogger())
	m.sampler = sampler

	m.Start()
	defer m.Stop()

	pct, err := m.MemoryPercentUsed(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 10, pct, 0.001)

	sampler.pct = 90
	require.Eventually(t, func() bool {
		v, _ := m.MemoryPercentUsed(context.Background())
		return v == 90
	}, time.Second, 10*time.Millisecond)
}

func TestMonitorPropagatesSampleError(t *testing.T) {
	m := New(time.Hour, common.NewSilentLogger())
	m.sampler = &fakeSampler{err: errors.New("boom")}

	_, err := m.MemoryPercentUsed(context.Background())
	require.Error(t, err)
}

func TestMonitorStopIsIdempotent(t *testing.T) {
	m := New(10*time.Millisecond, common.NewSilentLogger())
	m.sampler = &fakeSampler{pct: 1}
	m.Start()
	m.Stop()
	m.Stop()
}
