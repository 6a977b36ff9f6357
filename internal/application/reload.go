package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrRateLimited is returned when reloads are triggered too often.
var ErrRateLimited = errors.New("rate limit exceeded")

// ReloadResult contains the result of a reload.
type ReloadResult struct {
	Definitions     int       `json:"definitions"`
	Added           int       `json:"added"`
	Removed         int       `json:"removed"`
	Changed         int       `json:"changed"`
	ReloadedAt      time.Time `json:"reloaded_at"`
	NextScheduledAt time.Time `json:"next_scheduled_at,omitempty"`
}

// ReloadService reloads the catalog periodically and on demand.
type ReloadService struct {
	catalog  *Catalog
	interval time.Duration
	cooldown time.Duration
	logger   *slog.Logger

	// Lifecycle management
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Rate limiting for triggered reloads
	lastTrigger time.Time
	triggerMu   sync.Mutex

	// Track next scheduled reload for reporting
	nextReload time.Time
	nextMu     sync.RWMutex
}

// NewReloadService creates a reload service. A zero interval disables periodic
// reloads; cooldown is the minimum time between triggered reloads.
func NewReloadService(catalog *Catalog, interval, cooldown time.Duration, logger *slog.Logger) *ReloadService {
	return &ReloadService{
		catalog:  catalog,
		interval: interval,
		cooldown: cooldown,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic reload scheduler.
func (s *ReloadService) Start(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	s.logger.Info("starting reload service", "interval", s.interval)

	s.wg.Add(1)
	go s.run(ctx)
}

// run is the main reload loop.
func (s *ReloadService) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.setNextReload(time.Now().Add(s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reload service stopped: context canceled")
			return
		case <-s.stopCh:
			s.logger.Info("reload service stopped")
			return
		case <-ticker.C:
			s.logger.Debug("scheduled reload triggered")
			if _, err := s.catalog.Load(ctx); err != nil {
				s.logger.Error("scheduled reload failed", "error", err)
			}
			s.setNextReload(time.Now().Add(s.interval))
		}
	}
}

// Stop gracefully stops the reload service.
func (s *ReloadService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
}

// Reload reloads the catalog immediately, bypassing the rate limit. It serves
// file watcher events.
func (s *ReloadService) Reload(ctx context.Context) (ReloadResult, error) {
	stats, err := s.catalog.Load(ctx)
	if err != nil {
		return ReloadResult{}, err
	}

	return ReloadResult{
		Definitions:     stats.Definitions,
		Added:           stats.Added,
		Removed:         stats.Removed,
		Changed:         stats.Changed,
		ReloadedAt:      time.Now(),
		NextScheduledAt: s.getNextReload(),
	}, nil
}

// TriggerReload reloads the catalog on request. It returns ErrRateLimited when
// called again within the cooldown.
func (s *ReloadService) TriggerReload(ctx context.Context) (ReloadResult, error) {
	s.triggerMu.Lock()
	if !s.lastTrigger.IsZero() && time.Since(s.lastTrigger) < s.cooldown {
		s.triggerMu.Unlock()
		return ReloadResult{}, ErrRateLimited
	}
	s.lastTrigger = time.Now()
	s.triggerMu.Unlock()

	return s.Reload(ctx)
}

func (s *ReloadService) setNextReload(t time.Time) {
	s.nextMu.Lock()
	defer s.nextMu.Unlock()
	s.nextReload = t
}

func (s *ReloadService) getNextReload() time.Time {
	s.nextMu.RLock()
	defer s.nextMu.RUnlock()
	return s.nextReload
}

// Interval returns the reload interval.
func (s *ReloadService) Interval() time.Duration {
	return s.interval
}
