package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubTenantProvider struct {
	tenants []uuid.UUID
	err     error
}

func (s *stubTenantProvider) GetAllActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.tenants, nil
}

func TestParseDailySchedule(t *testing.T) {
	t.Run("parses daily schedule", func(t *testing.T) {
		hour, minute, err := ParseDailySchedule("0 3 * * *")
		require.NoError(t, err)
		assert.Equal(t, 3, hour)
		assert.Equal(t, 0, minute)
	})

	t.Run("parses non-zero minute", func(t *testing.T) {
		hour, minute, err := ParseDailySchedule("30 14 * * *")
		require.NoError(t, err)
		assert.Equal(t, 14, hour)
		assert.Equal(t, 30, minute)
	})

	t.Run("rejects wrong field count", func(t *testing.T) {
		_, _, err := ParseDailySchedule("0 3 * *")
		assert.Error(t, err)
	})

	t.Run("rejects non-daily schedule", func(t *testing.T) {
		_, _, err := ParseDailySchedule("0 3 1 * *")
		assert.Error(t, err)
	})

	t.Run("rejects out-of-range hour", func(t *testing.T) {
		_, _, err := ParseDailySchedule("0 24 * * *")
		assert.Error(t, err)
	})

	t.Run("rejects out-of-range minute", func(t *testing.T) {
		_, _, err := ParseDailySchedule("60 3 * * *")
		assert.Error(t, err)
	})
}

func TestCronTrigger_TriggerManualSweep(t *testing.T) {
	executor := &mockExecutor{}
	s := NewScheduler(testSchedulerConfig(), executor, zap.NewNop())
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	trigger := NewCronTrigger(DefaultCronTriggerConfig(), s, &stubTenantProvider{}, zap.NewNop())

	asOf := time.Now()
	require.NoError(t, trigger.TriggerManualSweep(context.Background(), nil, asOf))

	waitFor(t, time.Second, func() bool { return executor.count() == 1 })

	executor.mu.Lock()
	job := executor.executed[0]
	executor.mu.Unlock()
	assert.Equal(t, JobTypeExpirySweep, job.JobType)
	assert.Nil(t, job.TenantID)
	assert.WithinDuration(t, asOf, job.AsOf, time.Second)
}

func TestCronTrigger_TriggerManualPayout(t *testing.T) {
	t.Run("single tenant", func(t *testing.T) {
		executor := &mockExecutor{}
		s := NewScheduler(testSchedulerConfig(), executor, zap.NewNop())
		require.NoError(t, s.Start(context.Background()))
		defer s.Stop(context.Background())

		trigger := NewCronTrigger(DefaultCronTriggerConfig(), s, &stubTenantProvider{}, zap.NewNop())

		tenantID := uuid.New()
		require.NoError(t, trigger.TriggerManualPayout(context.Background(), &tenantID))

		waitFor(t, time.Second, func() bool { return executor.count() == 1 })

		executor.mu.Lock()
		job := executor.executed[0]
		executor.mu.Unlock()
		assert.Equal(t, JobTypeMilestonePayout, job.JobType)
		require.NotNil(t, job.TenantID)
		assert.Equal(t, tenantID, *job.TenantID)
	})

	t.Run("all tenants fans out", func(t *testing.T) {
		executor := &mockExecutor{}
		s := NewScheduler(testSchedulerConfig(), executor, zap.NewNop())
		require.NoError(t, s.Start(context.Background()))
		defer s.Stop(context.Background())

		provider := &stubTenantProvider{tenants: []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}}
		trigger := NewCronTrigger(DefaultCronTriggerConfig(), s, provider, zap.NewNop())

		require.NoError(t, trigger.TriggerManualPayout(context.Background(), nil))

		waitFor(t, time.Second, func() bool { return executor.count() == 3 })
	})
}

func TestCronTrigger_StartStop(t *testing.T) {
	s := NewScheduler(testSchedulerConfig(), &mockExecutor{}, zap.NewNop())
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	cfg := DefaultCronTriggerConfig()
	cfg.CheckInterval = 10 * time.Millisecond
	trigger := NewCronTrigger(cfg, s, &stubTenantProvider{}, zap.NewNop())

	require.NoError(t, trigger.Start(context.Background()))
	require.NoError(t, trigger.Start(context.Background())) // idempotent

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, trigger.Stop(ctx))
	require.NoError(t, trigger.Stop(ctx)) // no-op after stop
}
