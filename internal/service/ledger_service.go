package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/competition-approval-api/internal/models"
	appErrors "github.com/noah-isme/competition-approval-api/pkg/errors"
	"github.com/noah-isme/competition-approval-api/pkg/events"
)

type ledgerRepository interface {
	AdjustPerformanceScore(ctx context.Context, id string, delta float64, floorAtZero bool, at time.Time) (float64, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// LedgerService is the single entry point for moving a user's performance score.
// It runs on the caller's transaction; callers report the returned entries once
// the transaction has committed.
type LedgerService struct {
	repo    ledgerRepository
	metrics *MetricsService
	logger  *zap.Logger
}

// NewLedgerService constructs the ledger.
func NewLedgerService(repo ledgerRepository, metrics *MetricsService, logger *zap.Logger) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{repo: repo, metrics: metrics, logger: logger}
}

// Adjust adds delta to the user's score. With floorAtZero a debit that would
// leave the score negative fails with INSUFFICIENT_BALANCE and changes nothing.
func (s *LedgerService) Adjust(ctx context.Context, userID string, delta float64, reason models.LedgerReason, floorAtZero bool) (models.LedgerEntry, error) {
	at := utcNow()
	balance, err := s.repo.AdjustPerformanceScore(ctx, userID, delta, floorAtZero, at)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return models.LedgerEntry{}, appErrors.Internal(err, "failed to adjust performance score")
		}
		if !floorAtZero {
			return models.LedgerEntry{}, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		if _, findErr := s.repo.FindByID(ctx, userID); findErr != nil {
			return models.LedgerEntry{}, notFoundOr(findErr, "user not found", "failed to load user")
		}
		s.metrics.RecordInsufficientBalance()
		return models.LedgerEntry{}, appErrors.Clone(appErrors.ErrInsufficientBalance,
			fmt.Sprintf("performance score too low for a %.2f point penalty", -delta))
	}
	return models.LedgerEntry{UserID: userID, Delta: delta, Balance: balance, Reason: reason, OccurredAt: at}, nil
}

// Committed records metrics for entries whose transaction committed and
// returns the matching events.
func (s *LedgerService) Committed(actorID string, entries ...models.LedgerEntry) []events.Event {
	out := make([]events.Event, 0, len(entries))
	for _, entry := range entries {
		s.metrics.RecordLedgerEntry(entry)
		s.logger.Info("performance score adjusted",
			zap.String("user_id", entry.UserID),
			zap.Float64("delta", entry.Delta),
			zap.Float64("balance", entry.Balance),
			zap.String("reason", string(entry.Reason)),
		)
		out = append(out, events.New(events.TypeLedgerAdjusted, entry.UserID, actorID, map[string]interface{}{
			"delta":   entry.Delta,
			"balance": entry.Balance,
			"reason":  entry.Reason,
		}))
	}
	return out
}
