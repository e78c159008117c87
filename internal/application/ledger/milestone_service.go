package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/voyago/backend/internal/domain/ledger"
	"github.com/voyago/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const (
	// DefaultMaxPayoutAttempts is how often a failed milestone payout is
	// retried before it is left for manual review
	DefaultMaxPayoutAttempts = 5
)

// MilestoneConfig carries the reward rules and payout retry policy
type MilestoneConfig struct {
	Rules             []ledger.MilestoneRule
	MaxPayoutAttempts int
}

// activityCounterSources maps an inbound activity event type to the ledger
// source type whose entries are counted when the event payload carries no
// counter of its own.
var activityCounterSources = map[string]ledger.SourceType{
	ledger.EventTypeTripCompleted:     ledger.SourceTypeTripPayment,
	ledger.EventTypeReferralConverted: ledger.SourceTypeReferral,
}

// MilestoneService evaluates reward rules against holder activity and pays
// achieved milestones out in two phases. Detection is durably recorded first,
// guarded by the (tenant, holder, rule) uniqueness; the payout is a separate
// idempotent step keyed on the milestone ID, so a payout failure never loses
// the achievement and a payout retry never double-credits.
type MilestoneService struct {
	txScope TransactionScope
	ledger  *LedgerService
	config  MilestoneConfig
	logger  *zap.Logger
}

// NewMilestoneService creates a new MilestoneService
func NewMilestoneService(
	txScope TransactionScope,
	ledgerService *LedgerService,
	config MilestoneConfig,
	logger *zap.Logger,
) *MilestoneService {
	if config.MaxPayoutAttempts <= 0 {
		config.MaxPayoutAttempts = DefaultMaxPayoutAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MilestoneService{
		txScope: txScope,
		ledger:  ledgerService,
		config:  config,
		logger:  logger,
	}
}

// EvaluateRequest represents an activity observation to evaluate rules against
type EvaluateRequest struct {
	TenantID  uuid.UUID
	HolderID  uuid.UUID
	EventType string
	// Count overrides the activity counter when the producing context knows
	// it, e.g. a savings goal carries its own progress. Zero means the
	// counter is derived from the holder's ledger history.
	Count int64
}

// Evaluate checks the holder's activity against every rule bound to the event
// type. The first newly achieved milestone is durably recorded, paid out and
// returned; nil means no rule newly matched. Re-evaluating already achieved
// rules is safe and returns nil.
func (s *MilestoneService) Evaluate(ctx context.Context, req EvaluateRequest) (*ledger.Milestone, error) {
	var detected *ledger.Milestone

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		count, err := s.activityCount(ctx, repos, req)
		if err != nil {
			return err
		}

		for _, rule := range s.config.Rules {
			if rule.EventType != req.EventType || !rule.Matches(count) {
				continue
			}

			_, err := repos.MilestoneRepo().FindByHolderAndRule(ctx, req.TenantID, req.HolderID, rule.ID)
			if err == nil {
				// Already achieved; detection is idempotent
				continue
			}
			if !errors.Is(err, shared.ErrNotFound) {
				return err
			}

			milestone, err := ledger.NewMilestone(req.TenantID, req.HolderID, rule)
			if err != nil {
				return err
			}
			if err := repos.MilestoneRepo().Save(ctx, milestone); err != nil {
				if errors.Is(err, shared.ErrAlreadyExists) {
					// Concurrent evaluation recorded it first
					continue
				}
				return err
			}
			detected = milestone
			return nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if detected == nil {
		return nil, nil
	}

	s.logger.Info("milestone achieved",
		zap.String("holder_id", req.HolderID.String()),
		zap.String("rule_id", detected.RuleID),
		zap.Int64("reward_points", detected.RewardPoints))

	// Payout is a separate atomic unit. A failure here leaves the milestone
	// durably recorded as unpaid; the retry job picks it up.
	if err := s.payout(ctx, detected); err != nil {
		s.logger.Error("milestone payout failed, will retry",
			zap.String("milestone_id", detected.ID.String()),
			zap.Error(err))
	}
	return detected, nil
}

// activityCount resolves the counter a rule threshold is compared against.
func (s *MilestoneService) activityCount(ctx context.Context, repos TransactionalRepositories, req EvaluateRequest) (int64, error) {
	if req.Count > 0 {
		return req.Count, nil
	}
	sourceType, ok := activityCounterSources[req.EventType]
	if !ok {
		return 0, nil
	}
	account, err := repos.AccountRepo().FindByHolderAndKind(ctx, req.TenantID, req.HolderID, ledger.AccountKindPoints)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return repos.TransactionRepo().CountByAccountAndSource(ctx, account.ID, sourceType)
}

// payout credits the reward points and links the milestone to the resulting
// transaction. The earn is keyed on the milestone ID, so replays collapse
// onto one entry no matter how often the payout is attempted.
func (s *MilestoneService) payout(ctx context.Context, milestone *ledger.Milestone) error {
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		milestone.RecordPayoutAttempt()
		return repos.MilestoneRepo().SaveWithLock(ctx, milestone)
	})
	if err != nil {
		return err
	}

	result, err := s.ledger.EarnPoints(ctx, EarnPointsRequest{
		TenantID:       milestone.TenantID,
		HolderID:       milestone.HolderID,
		Points:         milestone.RewardPoints,
		SourceType:     ledger.SourceTypeMilestone,
		SourceID:       milestone.ID.String(),
		Reason:         "Milestone reward: " + milestone.RuleID,
		IdempotencyKey: milestone.IdempotencyKey(),
	})
	if err != nil {
		return err
	}

	return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := milestone.MarkPaid(result.TransactionID); err != nil {
			return err
		}
		return repos.MilestoneRepo().SaveWithLock(ctx, milestone)
	})
}

// PayoutPendingResult summarizes one retry sweep over unpaid milestones
type PayoutPendingResult struct {
	Paid      int `json:"paid"`
	Failed    int `json:"failed"`
	Escalated int `json:"escalated"`
}

// PayoutPending retries the payout of detected but unpaid milestones.
// Milestones past the attempt budget are skipped and reported for manual
// review instead of being retried forever.
func (s *MilestoneService) PayoutPending(ctx context.Context, tenantID uuid.UUID, limit int) (*PayoutPendingResult, error) {
	var unpaid []*ledger.Milestone
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		unpaid, err = repos.MilestoneRepo().FindUnpaid(ctx, tenantID, limit)
		return err
	})
	if err != nil {
		return nil, err
	}

	result := &PayoutPendingResult{}
	for _, milestone := range unpaid {
		if milestone.PayoutAttempts >= s.config.MaxPayoutAttempts {
			result.Escalated++
			s.logger.Error("milestone payout attempts exhausted, needs manual review",
				zap.String("milestone_id", milestone.ID.String()),
				zap.String("holder_id", milestone.HolderID.String()),
				zap.Int("attempts", milestone.PayoutAttempts))
			continue
		}
		if err := s.payout(ctx, milestone); err != nil {
			result.Failed++
			s.logger.Warn("milestone payout retry failed",
				zap.String("milestone_id", milestone.ID.String()),
				zap.Error(err))
			continue
		}
		result.Paid++
	}
	return result, nil
}

// GetMilestones returns a holder's achieved milestones.
func (s *MilestoneService) GetMilestones(ctx context.Context, tenantID, holderID uuid.UUID) ([]*ledger.Milestone, error) {
	var result []*ledger.Milestone
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		milestones, err := repos.MilestoneRepo().FindByHolder(ctx, tenantID, holderID)
		if err != nil {
			return err
		}
		result = milestones
		return nil
	})
	return result, err
}
