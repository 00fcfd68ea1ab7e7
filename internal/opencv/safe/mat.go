// Package safe wraps gocv.Mat with close-once semantics and allocation tracking.
package safe

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"
)

var ErrClosed = errors.New("mat is closed")

type MemoryTracker interface {
	TrackAllocation(id uint64, size int64, tag string)
	TrackDeallocation(id uint64, tag string)
}

type Mat struct {
	mu         sync.RWMutex
	mat        gocv.Mat
	closed     atomic.Bool
	id         uint64
	size       int64
	memTracker MemoryTracker
	tag        string
}

var nextMatID atomic.Uint64

func NewMatWithTracker(rows, cols int, matType gocv.MatType, memTracker MemoryTracker, tag string) (*Mat, error) {
	if err := validateDimensions(rows, cols); err != nil {
		return nil, err
	}

	mat := gocv.NewMatWithSize(rows, cols, matType)
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("failed to create Mat with size %dx%d", cols, rows)
	}
	return Adopt(mat, memTracker, tag), nil
}

// NewMatFromMatWithTracker deep-copies src; the caller keeps ownership of src.
func NewMatFromMatWithTracker(src gocv.Mat, memTracker MemoryTracker, tag string) (*Mat, error) {
	if err := validateSourceMat(src); err != nil {
		return nil, err
	}

	cloned := src.Clone()
	if cloned.Empty() {
		cloned.Close()
		return nil, errors.New("failed to clone Mat")
	}
	return Adopt(cloned, memTracker, tag), nil
}

// Adopt takes ownership of m. Closing the returned Mat closes m.
func Adopt(m gocv.Mat, memTracker MemoryTracker, tag string) *Mat {
	sm := &Mat{
		mat:        m,
		id:         nextMatID.Add(1),
		size:       int64(m.Total()) * int64(m.ElemSize()),
		memTracker: memTracker,
		tag:        tag,
	}
	if memTracker != nil {
		memTracker.TrackAllocation(sm.id, sm.size, tag)
	}
	runtime.SetFinalizer(sm, (*Mat).finalize)
	return sm
}

func (sm *Mat) IsValid() bool {
	return sm != nil && !sm.closed.Load()
}

func (sm *Mat) Empty() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.IsValid() {
		return true
	}
	return sm.mat.Empty()
}

func (sm *Mat) Rows() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.IsValid() {
		return 0
	}
	return sm.mat.Rows()
}

func (sm *Mat) Cols() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.IsValid() {
		return 0
	}
	return sm.mat.Cols()
}

func (sm *Mat) Channels() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.IsValid() {
		return 0
	}
	return sm.mat.Channels()
}

func (sm *Mat) Clone() (*Mat, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.IsValid() {
		return nil, ErrClosed
	}
	return NewMatFromMatWithTracker(sm.mat, sm.memTracker, sm.tag+"_clone")
}

// GetMat exposes the underlying Mat for gocv calls. It must not be closed by
// the caller and must not outlive sm.
func (sm *Mat) GetMat() gocv.Mat {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.mat
}

// Bytes copies the pixel data out of the Mat.
func (sm *Mat) Bytes() ([]byte, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.IsValid() {
		return nil, ErrClosed
	}
	return sm.mat.ToBytes(), nil
}

func (sm *Mat) Tag() string {
	return sm.tag
}

func (sm *Mat) Size() int64 {
	return sm.size
}

func (sm *Mat) Close() {
	if sm == nil || !sm.closed.CompareAndSwap(false, true) {
		return
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.memTracker != nil {
		sm.memTracker.TrackDeallocation(sm.id, sm.tag)
	}
	sm.mat.Close()
	runtime.SetFinalizer(sm, nil)
}

func (sm *Mat) finalize() {
	sm.Close()
}

func validateDimensions(rows, cols int) error {
	if rows <= 0 || cols <= 0 {
		return fmt.Errorf("invalid dimensions: %dx%d", cols, rows)
	}
	if rows > 32768 || cols > 32768 {
		return fmt.Errorf("dimensions %dx%d exceed maximum size", cols, rows)
	}
	return nil
}

func validateSourceMat(src gocv.Mat) error {
	if src.Empty() {
		return errors.New("source Mat is empty")
	}
	if src.Rows() <= 0 || src.Cols() <= 0 {
		return fmt.Errorf("source Mat has invalid dimensions: %dx%d", src.Cols(), src.Rows())
	}
	return nil
}

func ValidateMatForOperation(mat *Mat, operation string) error {
	if mat == nil {
		return fmt.Errorf("Mat is nil for operation: %s", operation)
	}
	if !mat.IsValid() {
		return fmt.Errorf("Mat is closed for operation: %s", operation)
	}
	if mat.Empty() {
		return fmt.Errorf("Mat is empty for operation: %s", operation)
	}
	return nil
}

func ValidateColorConversion(src *Mat, code gocv.ColorConversionCode) error {
	if err := ValidateMatForOperation(src, "CvtColor"); err != nil {
		return err
	}

	channels := src.Channels()
	switch code {
	case gocv.ColorBGRToGray, gocv.ColorRGBToGray, gocv.ColorBGRToRGB:
		if channels != 3 {
			return fmt.Errorf("conversion requires 3 channels, got %d", channels)
		}
	case gocv.ColorGrayToBGR:
		if channels != 1 {
			return fmt.Errorf("Gray to BGR conversion requires 1 channel, got %d", channels)
		}
	case gocv.ColorBGRAToBGR:
		if channels != 4 {
			return fmt.Errorf("BGRA to BGR conversion requires 4 channels, got %d", channels)
		}
	}
	return nil
}
