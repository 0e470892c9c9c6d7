package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/competition-approval-api/internal/models"
)

func TestRuleFindPerformanceMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRuleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM performance_rules WHERE competition_level = $1 AND award_level = $2")).
		WithArgs(models.LevelE, models.AwardSpecialPrize).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindPerformance(context.Background(), models.RuleKey{CompetitionLevel: models.LevelE, AwardLevel: models.AwardSpecialPrize})
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRuleUpsertPerformance(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRuleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DO UPDATE SET score = EXCLUDED.score")).
		WithArgs(models.LevelB, models.AwardFirstPrize, 15.0, 30.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpsertPerformance(context.Background(), []models.PerformanceRule{{CompetitionLevel: models.LevelB, AwardLevel: models.AwardFirstPrize, Score: 15, Workload: 30}}, false)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRuleSeedRewardSkipsExisting(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRuleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (competition_level, award_level) DO NOTHING")).
		WithArgs(models.LevelA, models.AwardSpecialPrize, 5000.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpsertReward(context.Background(), []models.RewardRule{{CompetitionLevel: models.LevelA, AwardLevel: models.AwardSpecialPrize, Amount: 5000}}, true)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
