package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TenantProvider provides a list of tenants for scheduling
type TenantProvider interface {
	GetAllActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// CronTriggerConfig holds configuration for the cron trigger
type CronTriggerConfig struct {
	// SweepHour and SweepMinute describe when the daily expiry sweep runs
	// (24h clock, server local time).
	SweepHour   int
	SweepMinute int

	// PayoutInterval is how often a milestone payout retry pass runs.
	PayoutInterval time.Duration

	// CheckInterval is how often to check if it's time to run
	CheckInterval time.Duration
}

// DefaultCronTriggerConfig returns default cron trigger configuration
func DefaultCronTriggerConfig() CronTriggerConfig {
	return CronTriggerConfig{
		SweepHour:      3, // 3am
		SweepMinute:    0,
		PayoutInterval: 5 * time.Minute,
		CheckInterval:  time.Minute,
	}
}

// ParseDailySchedule parses a restricted cron expression of the form
// "M H * * *" into its minute and hour components. Only daily schedules
// are supported; any non-wildcard day, month, or weekday field is rejected.
func ParseDailySchedule(expr string) (hour, minute int, err error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return 0, 0, fmt.Errorf("schedule %q: expected 5 fields, got %d", expr, len(fields))
	}
	for _, f := range fields[2:] {
		if f != "*" {
			return 0, 0, fmt.Errorf("schedule %q: only daily schedules are supported", expr)
		}
	}
	minute, err = strconv.Atoi(fields[0])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("schedule %q: invalid minute field %q", expr, fields[0])
	}
	hour, err = strconv.Atoi(fields[1])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("schedule %q: invalid hour field %q", expr, fields[1])
	}
	return hour, minute, nil
}

// CronTrigger submits the daily expiry sweep and periodic payout retry jobs
type CronTrigger struct {
	config         CronTriggerConfig
	scheduler      *Scheduler
	tenantProvider TenantProvider
	logger         *zap.Logger

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string // Track which date we last swept for
}

// NewCronTrigger creates a new cron trigger
func NewCronTrigger(
	config CronTriggerConfig,
	scheduler *Scheduler,
	tenantProvider TenantProvider,
	logger *zap.Logger,
) *CronTrigger {
	return &CronTrigger{
		config:         config,
		scheduler:      scheduler,
		tenantProvider: tenantProvider,
		logger:         logger,
	}
}

// Start starts the cron trigger
func (c *CronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Cron trigger started",
		zap.Int("sweep_hour", c.config.SweepHour),
		zap.Int("sweep_minute", c.config.SweepMinute),
		zap.Duration("payout_interval", c.config.PayoutInterval),
		zap.Duration("check_interval", c.config.CheckInterval),
	)

	return nil
}

// Stop stops the cron trigger
func (c *CronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Cron trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop checks periodically whether a sweep or payout pass is due
func (c *CronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	payoutTicker := time.NewTicker(c.config.PayoutInterval)
	defer payoutTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkAndTriggerSweep(ctx)
		case <-payoutTicker.C:
			c.triggerPayoutRetry(ctx)
		}
	}
}

// checkAndTriggerSweep submits the daily expiry sweep at the configured time
func (c *CronTrigger) checkAndTriggerSweep(ctx context.Context) {
	now := time.Now()
	currentDate := now.Format("2006-01-02")

	// Skip if we already swept today
	c.mu.Lock()
	if c.lastRunDate == currentDate {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	// Check if it's the right time
	if now.Hour() != c.config.SweepHour || now.Minute() != c.config.SweepMinute {
		return
	}

	c.mu.Lock()
	c.lastRunDate = currentDate
	c.mu.Unlock()

	c.logger.Info("Triggering daily points expiry sweep")
	if err := c.scheduler.ScheduleExpirySweep(nil, now); err != nil {
		c.logger.Error("Failed to schedule expiry sweep", zap.Error(err))
	}
}

// triggerPayoutRetry schedules a payout retry pass for every active tenant
func (c *CronTrigger) triggerPayoutRetry(ctx context.Context) {
	tenantIDs, err := c.tenantProvider.GetAllActiveTenantIDs(ctx)
	if err != nil {
		c.logger.Error("Failed to get tenant IDs for payout retry", zap.Error(err))
		return
	}

	if len(tenantIDs) == 0 {
		return
	}

	c.logger.Debug("Scheduling milestone payout retry for tenants",
		zap.Int("tenant_count", len(tenantIDs)),
	)

	for _, tenantID := range tenantIDs {
		tid := tenantID // Capture for closure
		if err := c.scheduler.ScheduleMilestonePayout(&tid); err != nil {
			c.logger.Error("Failed to schedule milestone payout for tenant",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
		}
	}
}

// TriggerManualSweep allows immediate triggering of an expiry sweep.
// A nil tenantID sweeps every tenant.
func (c *CronTrigger) TriggerManualSweep(ctx context.Context, tenantID *uuid.UUID, asOf time.Time) error {
	return c.scheduler.ScheduleExpirySweep(tenantID, asOf)
}

// TriggerManualPayout allows immediate triggering of a payout retry pass
func (c *CronTrigger) TriggerManualPayout(ctx context.Context, tenantID *uuid.UUID) error {
	if tenantID != nil {
		return c.scheduler.ScheduleMilestonePayout(tenantID)
	}
	tenantIDs, err := c.tenantProvider.GetAllActiveTenantIDs(ctx)
	if err != nil {
		return err
	}
	for _, tid := range tenantIDs {
		t := tid
		if err := c.scheduler.ScheduleMilestonePayout(&t); err != nil {
			return err
		}
	}
	return nil
}
