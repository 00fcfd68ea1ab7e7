// Package memory accounts for every OpenCV Mat the filter engine allocates.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"catfilter/internal/logger"
	"catfilter/internal/opencv/safe"

	"gocv.io/x/gocv"
)

const component = "MemoryManager"

type Manager struct {
	mu           sync.RWMutex
	logger       logger.Logger
	maxMemory    int64
	usedMemory   int64
	allocCount   int64
	deallocCount int64
	activeMats   map[uint64]*MatInfo
	ctx          context.Context
	cancel       context.CancelFunc
	stopped      chan struct{}
}

type MatInfo struct {
	ID        uint64
	Tag       string
	Size      int64
	Timestamp time.Time
}

type Stats struct {
	Allocations   int64
	Deallocations int64
	UsedBytes     int64
	Active        int
}

func NewManager(log logger.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		logger:     log,
		maxMemory:  2 << 30,
		activeMats: make(map[uint64]*MatInfo),
		ctx:        ctx,
		cancel:     cancel,
		stopped:    make(chan struct{}),
	}
	go m.monitorMemory()
	return m
}

func (m *Manager) GetMat(rows, cols int, matType gocv.MatType, tag string) (*safe.Mat, error) {
	if err := m.reserve(int64(rows) * int64(cols) * int64(bytesPerElement(matType))); err != nil {
		return nil, err
	}
	return safe.NewMatWithTracker(rows, cols, matType, m, tag)
}

// Adopt places a Mat produced by a gocv call under tracking.
func (m *Manager) Adopt(mat gocv.Mat, tag string) (*safe.Mat, error) {
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("cannot adopt empty Mat %q", tag)
	}
	if err := m.reserve(int64(mat.Total()) * int64(mat.ElemSize())); err != nil {
		mat.Close()
		return nil, err
	}
	return safe.Adopt(mat, m, tag), nil
}

// CloneMat deep-copies src under tracking; src stays owned by the caller.
func (m *Manager) CloneMat(src gocv.Mat, tag string) (*safe.Mat, error) {
	if err := m.reserve(int64(src.Total()) * int64(src.ElemSize())); err != nil {
		return nil, err
	}
	return safe.NewMatFromMatWithTracker(src, m, tag)
}

func (m *Manager) reserve(size int64) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.usedMemory+size > m.maxMemory {
		return fmt.Errorf("memory limit exceeded: would use %d bytes, limit is %d",
			m.usedMemory+size, m.maxMemory)
	}
	return nil
}

func (m *Manager) TrackAllocation(id uint64, size int64, tag string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usedMemory += size
	m.allocCount++
	m.activeMats[id] = &MatInfo{ID: id, Tag: tag, Size: size, Timestamp: time.Now()}
}

func (m *Manager) TrackDeallocation(id uint64, tag string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if info, ok := m.activeMats[id]; ok {
		delete(m.activeMats, id)
		m.usedMemory -= info.Size
	}
	m.deallocCount++
}

func (m *Manager) ReleaseMat(mat *safe.Mat) {
	if mat != nil {
		mat.Close()
	}
}

func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		Allocations:   m.allocCount,
		Deallocations: m.deallocCount,
		UsedBytes:     m.usedMemory,
		Active:        len(m.activeMats),
	}
}

func (m *Manager) monitorMemory() {
	defer close(m.stopped)
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.performMonitoringCheck()
		case <-m.ctx.Done():
			return
		}
	}
}

func (m *Manager) performMonitoringCheck() {
	stats := m.Stats()
	m.logger.Debug(component, "memory statistics", map[string]interface{}{
		"allocations":   stats.Allocations,
		"deallocations": stats.Deallocations,
		"used_bytes":    stats.UsedBytes,
		"active_mats":   stats.Active,
	})
	if stats.Active > 50 {
		m.logOldestMats(5)
	}
}

func (m *Manager) logOldestMats(count int) {
	m.mu.RLock()
	infos := make([]MatInfo, 0, len(m.activeMats))
	for _, info := range m.activeMats {
		infos = append(infos, *info)
	}
	m.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Timestamp.Before(infos[j].Timestamp)
	})
	if len(infos) > count {
		infos = infos[:count]
	}

	now := time.Now()
	for _, info := range infos {
		m.logger.Warning(component, "long-lived Mat detected", map[string]interface{}{
			"tag":  info.Tag,
			"size": info.Size,
			"age":  now.Sub(info.Timestamp).String(),
		})
	}
}

// Shutdown stops the monitor and reports Mats that were never released.
func (m *Manager) Shutdown() {
	m.cancel()
	<-m.stopped

	m.mu.RLock()
	leaked := make([]MatInfo, 0, len(m.activeMats))
	for _, info := range m.activeMats {
		leaked = append(leaked, *info)
	}
	m.mu.RUnlock()

	for _, info := range leaked {
		m.logger.Warning(component, "unreleased Mat at shutdown", map[string]interface{}{
			"tag":  info.Tag,
			"size": info.Size,
		})
	}

	stats := m.Stats()
	m.logger.Info(component, "shutdown completed", map[string]interface{}{
		"allocations":   stats.Allocations,
		"deallocations": stats.Deallocations,
		"leaked":        len(leaked),
	})
}

func bytesPerElement(matType gocv.MatType) int {
	switch matType {
	case gocv.MatTypeCV8UC1:
		return 1
	case gocv.MatTypeCV8UC3:
		return 3
	case gocv.MatTypeCV8UC4:
		return 4
	case gocv.MatTypeCV32FC1:
		return 4
	case gocv.MatTypeCV32FC3:
		return 12
	default:
		return 1
	}
}
