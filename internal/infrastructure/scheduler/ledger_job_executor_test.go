package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestLedgerJobExecutor_UnknownJobType(t *testing.T) {
	executor := NewLedgerJobExecutor(nil, nil, &stubTenantProvider{}, zap.NewNop())

	job := NewJob(nil, JobType("VACUUM"), time.Now(), 0)
	err := executor.Execute(context.Background(), job)
	assert.ErrorIs(t, err, ErrInvalidJobType)
}
