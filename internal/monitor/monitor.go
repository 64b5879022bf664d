// Package monitor reports periodic runtime status while a replay stream is
// being served.
package monitor

import (
	"log/slog"
	"runtime"
	"sync"
	"time"
)

// ViewerCounter reports how many viewers are currently connected.
type ViewerCounter interface {
	ClientCount() int
}

// Status is a point-in-time snapshot of the process.
type Status struct {
	Time           time.Time `json:"time"`
	Goroutines     int       `json:"goroutines"`
	HeapAllocBytes uint64    `json:"heapAllocBytes"`
	NumGC          uint32    `json:"numGC"`
	Viewers        int       `json:"viewers"`
	Tick           int       `json:"tick"`
}

// TickFunc reports the current playback tick.
type TickFunc func() int

// Service logs runtime status at a fixed interval.
type Service struct {
	logger   *slog.Logger
	viewers  ViewerCounter
	tick     TickFunc
	interval time.Duration

	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewService creates a status monitor. viewers and tick may be nil when the
// corresponding value is not available.
func NewService(logger *slog.Logger, viewers ViewerCounter, tick TickFunc, interval time.Duration) *Service {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Service{
		logger:   logger,
		viewers:  viewers,
		tick:     tick,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Snapshot returns the current program status.
func (s *Service) Snapshot() Status {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	st := Status{
		Time:           time.Now(),
		Goroutines:     runtime.NumGoroutine(),
		HeapAllocBytes: mem.HeapAlloc,
		NumGC:          mem.NumGC,
	}
	if s.viewers != nil {
		st.Viewers = s.viewers.ClientCount()
	}
	if s.tick != nil {
		st.Tick = s.tick()
	}
	return st
}

// Start starts the status monitor goroutine.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		s.logger.Debug("Starting status monitor goroutine")
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
				st := s.Snapshot()
				s.logger.Info("Runtime status",
					"goroutines", st.Goroutines,
					"heapAllocBytes", st.HeapAllocBytes,
					"numGC", st.NumGC,
					"viewers", st.Viewers,
					"tick", st.Tick,
				)
			}
		}
	}()

	return nil
}

// Stop stops the status monitor.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
	}
}
