package photos

import (
	"context"
	"image"
	"sync"
	"time"

	"catfilter/internal/dispatch"
	"catfilter/internal/logger"
	"catfilter/internal/metrics"
)

const interactorComponent = "SaveInteractor"

type SaveResult int

const (
	SaveSucceeded SaveResult = iota
	SaveFailed
	SaveDenied
	SaveRestricted
)

func (r SaveResult) String() string {
	switch r {
	case SaveSucceeded:
		return "success"
	case SaveDenied:
		return "denied"
	case SaveRestricted:
		return "restricted"
	default:
		return "failed"
	}
}

// SaveInteractor saves images off the UI context and reports the result on it.
type SaveInteractor struct {
	library    Library
	dispatcher dispatch.Dispatcher
	logger     logger.Logger
	metrics    *metrics.Registry
	timeout    time.Duration
	wg         sync.WaitGroup
}

func NewSaveInteractor(lib Library, disp dispatch.Dispatcher, log logger.Logger, reg *metrics.Registry) *SaveInteractor {
	return &SaveInteractor{
		library:    lib,
		dispatcher: disp,
		logger:     log,
		metrics:    reg,
		timeout:    30 * time.Second,
	}
}

func (s *SaveInteractor) SaveImage(img image.Image, done func(SaveResult)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		result := s.save(ctx, img, true)
		s.metrics.Inc(ctx, metrics.SavesTotal, map[string]string{"result": result.String()})
		s.dispatcher.Do(func() {
			if done != nil {
				done(result)
			}
		})
	}()
}

func (s *SaveInteractor) save(ctx context.Context, img image.Image, mayRequest bool) SaveResult {
	switch status := s.library.AuthorizationStatus(); status {
	case StatusNotDetermined:
		if !mayRequest {
			return SaveFailed
		}
		if _, err := s.library.RequestAuthorization(ctx); err != nil {
			s.logger.Error(interactorComponent, err, map[string]interface{}{
				"stage": "authorization",
			})
			return SaveFailed
		}
		return s.save(ctx, img, false)
	case StatusRestricted:
		return SaveRestricted
	case StatusDenied:
		return SaveDenied
	}

	path, err := s.library.Save(ctx, img)
	if err != nil {
		s.logger.Error(interactorComponent, err, map[string]interface{}{
			"stage": "save",
		})
		return SaveFailed
	}
	s.logger.Debug(interactorComponent, "image stored", map[string]interface{}{
		"path": path,
	})
	return SaveSucceeded
}

// Wait blocks until outstanding saves have finished.
func (s *SaveInteractor) Wait() {
	s.wg.Wait()
}
