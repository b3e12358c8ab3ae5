package scheduler

import (
	"context"
	"time"

	"github.com/ikkim/udonggeum-storefront/pkg/logger"
	"github.com/robfig/cron/v3"
)

const evictSchedule = "@every 10m"

// CartPurger deletes stored carts not written since cutoff
type CartPurger interface {
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// CartEvicter drops in-memory carts unused for idle
type CartEvicter interface {
	EvictIdle(idle time.Duration) int
}

// CartCleanupScheduler 장바구니 정리 스케줄러
type CartCleanupScheduler struct {
	cron      *cron.Cron
	purger    CartPurger
	evicter   CartEvicter
	schedule  string
	retention time.Duration
	idle      time.Duration
}

// NewCartCleanupScheduler 장바구니 정리 스케줄러 생성. purger may be nil when
// the storage expires carts by itself.
func NewCartCleanupScheduler(purger CartPurger, evicter CartEvicter, schedule string, retention, idle time.Duration) *CartCleanupScheduler {
	return &CartCleanupScheduler{
		cron:      cron.New(),
		purger:    purger,
		evicter:   evicter,
		schedule:  schedule,
		retention: retention,
		idle:      idle,
	}
}

// Start 스케줄러 시작
func (s *CartCleanupScheduler) Start() error {
	if s.purger != nil {
		if _, err := s.cron.AddFunc(s.schedule, func() { s.Purge(context.Background()) }); err != nil {
			logger.Error("Failed to add cron job for cart purge", err, map[string]interface{}{
				"schedule": s.schedule,
			})
			return err
		}
	}

	if _, err := s.cron.AddFunc(evictSchedule, func() { s.Evict() }); err != nil {
		logger.Error("Failed to add cron job for cart eviction", err)
		return err
	}

	s.cron.Start()
	logger.Info("Cart cleanup scheduler started", map[string]interface{}{
		"purge_schedule": s.schedule,
		"retention":      s.retention.String(),
	})
	return nil
}

// Purge deletes carts untouched for the retention period
func (s *CartCleanupScheduler) Purge(ctx context.Context) int64 {
	if s.purger == nil {
		return 0
	}
	n, err := s.purger.PurgeOlderThan(ctx, time.Now().Add(-s.retention))
	if err != nil {
		logger.Error("Scheduled cart purge failed", err)
		return 0
	}
	logger.Info("Stale carts purged", map[string]interface{}{
		"deleted": n,
	})
	return n
}

// Evict releases in-memory carts idle longer than the idle period
func (s *CartCleanupScheduler) Evict() int {
	n := s.evicter.EvictIdle(s.idle)
	if n > 0 {
		logger.Debug("Idle carts evicted", map[string]interface{}{
			"evicted": n,
		})
	}
	return n
}

// Stop 스케줄러 중지. Waits for running jobs
func (s *CartCleanupScheduler) Stop() {
	logger.Info("Stopping cart cleanup scheduler...")
	<-s.cron.Stop().Done()
	logger.Info("Cart cleanup scheduler stopped")
}
