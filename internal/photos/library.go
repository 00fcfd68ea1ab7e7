// Package photos is the sink for finished images: a directory-backed photo
// library guarded by an authorization state.
package photos

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"catfilter/internal/logger"

	"github.com/google/uuid"
)

const libraryComponent = "PhotoLibrary"

type AuthorizationStatus int

const (
	StatusNotDetermined AuthorizationStatus = iota
	StatusRestricted
	StatusDenied
	StatusAuthorized
)

func (s AuthorizationStatus) String() string {
	switch s {
	case StatusRestricted:
		return "restricted"
	case StatusDenied:
		return "denied"
	case StatusAuthorized:
		return "authorized"
	default:
		return "not_determined"
	}
}

var (
	ErrNotAuthorized = errors.New("photo library access not authorized")
	ErrReadOnly      = errors.New("photo library is read-only")
)

type Library interface {
	AuthorizationStatus() AuthorizationStatus
	RequestAuthorization(ctx context.Context) (AuthorizationStatus, error)
	Save(ctx context.Context, img image.Image) (string, error)
}

type DirLibrary struct {
	dir      string
	readOnly bool
	encoder  Encoder
	logger   logger.Logger
}

func NewDirLibrary(dir string, readOnly bool, enc Encoder, log logger.Logger) *DirLibrary {
	return &DirLibrary{dir: dir, readOnly: readOnly, encoder: enc, logger: log}
}

func (l *DirLibrary) Dir() string {
	return l.dir
}

func (l *DirLibrary) AuthorizationStatus() AuthorizationStatus {
	if l.readOnly {
		return StatusRestricted
	}

	info, err := os.Stat(l.dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return StatusNotDetermined
	case err != nil:
		return StatusDenied
	case !info.IsDir():
		return StatusDenied
	}

	if !writable(l.dir) {
		return StatusDenied
	}
	return StatusAuthorized
}

func writable(dir string) bool {
	probe, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return false
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return true
}

// RequestAuthorization creates the library directory if needed and returns
// the resulting status.
func (l *DirLibrary) RequestAuthorization(ctx context.Context) (AuthorizationStatus, error) {
	if err := ctx.Err(); err != nil {
		return StatusNotDetermined, err
	}
	if l.readOnly {
		return StatusRestricted, nil
	}

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		l.logger.Warning(libraryComponent, "authorization request failed", map[string]interface{}{
			"dir":   l.dir,
			"error": err.Error(),
		})
		if errors.Is(err, os.ErrPermission) {
			return StatusDenied, nil
		}
		return StatusNotDetermined, fmt.Errorf("create library directory: %w", err)
	}

	status := l.AuthorizationStatus()
	l.logger.Info(libraryComponent, "authorization requested", map[string]interface{}{
		"dir":    l.dir,
		"status": status.String(),
	})
	return status, nil
}

// Save writes img under a fresh UUID name and returns its path.
func (l *DirLibrary) Save(ctx context.Context, img image.Image) (string, error) {
	if l.readOnly {
		return "", ErrReadOnly
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(l.dir, ".saving-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if err := l.encoder.Encode(tmp, img); err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	path := filepath.Join(l.dir, uuid.NewString()+l.encoder.Format.Extension())
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("commit image: %w", err)
	}
	committed = true

	l.logger.Info(libraryComponent, "image saved", map[string]interface{}{
		"path":   path,
		"format": string(l.encoder.Format),
	})
	return path, nil
}
