package jobs

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"facewatch/internal/database"
	"facewatch/internal/services"
)

// StoreHealthChecker periodically pings the active storage backend, keeps
// the health gauge current and logs state transitions. A failing backend is
// never fatal; ingestion keeps running best-effort.
type StoreHealthChecker struct {
	store     database.Store
	metrics   *services.Metrics
	scheduler gocron.Scheduler
	interval  time.Duration
	healthy   bool
	started   bool
}

// NewStoreHealthChecker creates the checker with its own gocron scheduler.
func NewStoreHealthChecker(store database.Store, metrics *services.Metrics, interval time.Duration) (*StoreHealthChecker, error) {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}

	checker := &StoreHealthChecker{
		store:     store,
		metrics:   metrics,
		scheduler: scheduler,
		interval:  interval,
		healthy:   true,
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(checker.check),
		gocron.WithName("store_health"),
	)
	if err != nil {
		return nil, err
	}

	return checker, nil
}

// Start begins periodic checks.
func (h *StoreHealthChecker) Start() {
	h.scheduler.Start()
	h.started = true
	log.Printf("🕐 [HEALTH-JOB] Store health checks every %v (%s backend)", h.interval, h.store.Backend())
}

// Stop shuts the scheduler down. Safe to call when never started.
func (h *StoreHealthChecker) Stop() {
	if !h.started {
		return
	}
	if err := h.scheduler.Shutdown(); err != nil {
		log.Printf("⚠️ [HEALTH-JOB] Error stopping scheduler: %v", err)
	}
}

func (h *StoreHealthChecker) check() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := h.store.Ping(ctx)
	healthy := err == nil

	if h.metrics != nil {
		if healthy {
			h.metrics.StoreHealthy.Set(1)
		} else {
			h.metrics.StoreHealthy.Set(0)
		}
	}

	// Log transitions only, not every tick
	if healthy != h.healthy {
		if healthy {
			log.Printf("✅ [HEALTH-JOB] %s backend recovered", h.store.Backend())
		} else {
			log.Printf("⚠️ [HEALTH-JOB] %s backend unreachable: %v", h.store.Backend(), err)
		}
	}
	h.healthy = healthy
}
