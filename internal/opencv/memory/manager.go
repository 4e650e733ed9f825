package memory

import (
	"sync"
	"time"

	"pixelgraph/internal/logger"
)

// Manager records buffer allocations reported by the buffer package and
// warns once the live total crosses its limit.
type Manager struct {
	allocations map[uint64]*AllocationRecord
	mu          sync.RWMutex
	stats       Stats
	logger      logger.Logger
	warned      bool
}

type AllocationRecord struct {
	Tag       string
	CreatedAt time.Time
	Size      int64
}

type Stats struct {
	TotalAllocated int64
	TotalReleased  int64
	ActiveBuffers  int64
	PeakBytes      int64
	MaxAllowed     int64
}

// InUse returns the bytes currently held by live buffers.
func (s Stats) InUse() int64 {
	return s.TotalAllocated - s.TotalReleased
}

// NewManager creates a tracker. A limit of zero disables the warning.
func NewManager(log logger.Logger, limitBytes int64) *Manager {
	return &Manager{
		allocations: make(map[uint64]*AllocationRecord),
		stats: Stats{
			MaxAllowed: limitBytes,
		},
		logger: logger.OrNop(log),
	}
}

func (m *Manager) TrackAllocation(id uint64, size int64, tag string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.allocations[id] = &AllocationRecord{
		Tag:       tag,
		CreatedAt: time.Now(),
		Size:      size,
	}
	m.stats.TotalAllocated += size
	m.stats.ActiveBuffers++

	if inUse := m.stats.InUse(); inUse > m.stats.PeakBytes {
		m.stats.PeakBytes = inUse
	}

	if m.stats.MaxAllowed > 0 && m.stats.InUse() > m.stats.MaxAllowed && !m.warned {
		m.warned = true
		m.logger.Warning("MemoryManager", "buffer memory above limit", map[string]interface{}{
			"in_use_bytes": m.stats.InUse(),
			"limit_bytes":  m.stats.MaxAllowed,
		})
	}
}

func (m *Manager) TrackDeallocation(id uint64, tag string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, exists := m.allocations[id]
	if !exists {
		m.logger.Debug("MemoryManager", "release of untracked buffer", map[string]interface{}{
			"id":  id,
			"tag": tag,
		})
		return
	}

	delete(m.allocations, id)
	m.stats.TotalReleased += record.Size
	m.stats.ActiveBuffers--

	if m.stats.MaxAllowed > 0 && m.stats.InUse() <= m.stats.MaxAllowed {
		m.warned = false
	}
}

func (m *Manager) GetStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// Live returns the tags of buffers that have not been released, keyed by id.
func (m *Manager) Live() map[uint64]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	live := make(map[uint64]string, len(m.allocations))
	for id, record := range m.allocations {
		live[id] = record.Tag
	}
	return live
}

// Report logs the current statistics at debug level.
func (m *Manager) Report() {
	stats := m.GetStats()
	m.logger.Debug("MemoryManager", "buffer statistics", map[string]interface{}{
		"allocated_bytes": stats.TotalAllocated,
		"released_bytes":  stats.TotalReleased,
		"active_buffers":  stats.ActiveBuffers,
		"peak_bytes":      stats.PeakBytes,
	})
}
