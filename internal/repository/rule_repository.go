package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/competition-approval-api/internal/models"
	"github.com/noah-isme/competition-approval-api/pkg/database"
)

// RuleRepository reads and writes the performance and reward rule tables.
type RuleRepository struct {
	db *sqlx.DB
}

// NewRuleRepository constructs the repository.
func NewRuleRepository(db *sqlx.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// ListPerformance returns every performance rule.
func (r *RuleRepository) ListPerformance(ctx context.Context) ([]models.PerformanceRule, error) {
	const query = `SELECT competition_level, award_level, score, workload, updated_at FROM performance_rules ORDER BY competition_level, award_level`
	var rules []models.PerformanceRule
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &rules, query); err != nil {
		return nil, fmt.Errorf("list performance rules: %w", err)
	}
	return rules, nil
}

// ListReward returns every reward rule.
func (r *RuleRepository) ListReward(ctx context.Context) ([]models.RewardRule, error) {
	const query = `SELECT competition_level, award_level, amount, updated_at FROM reward_rules ORDER BY competition_level, award_level`
	var rules []models.RewardRule
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &rules, query); err != nil {
		return nil, fmt.Errorf("list reward rules: %w", err)
	}
	return rules, nil
}

// FindPerformance returns the rule for key or sql.ErrNoRows.
func (r *RuleRepository) FindPerformance(ctx context.Context, key models.RuleKey) (*models.PerformanceRule, error) {
	const query = `SELECT competition_level, award_level, score, workload, updated_at FROM performance_rules WHERE competition_level = $1 AND award_level = $2`
	var rule models.PerformanceRule
	if err := database.Conn(ctx, r.db).GetContext(ctx, &rule, query, key.CompetitionLevel, key.AwardLevel); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find performance rule: %w", err)
	}
	return &rule, nil
}

// FindReward returns the rule for key or sql.ErrNoRows.
func (r *RuleRepository) FindReward(ctx context.Context, key models.RuleKey) (*models.RewardRule, error) {
	const query = `SELECT competition_level, award_level, amount, updated_at FROM reward_rules WHERE competition_level = $1 AND award_level = $2`
	var rule models.RewardRule
	if err := database.Conn(ctx, r.db).GetContext(ctx, &rule, query, key.CompetitionLevel, key.AwardLevel); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find reward rule: %w", err)
	}
	return &rule, nil
}

// UpsertPerformance writes rules, overwriting existing keys. When onlyMissing is
// set existing rows are left alone, which is what the startup seed uses.
func (r *RuleRepository) UpsertPerformance(ctx context.Context, rules []models.PerformanceRule, onlyMissing bool) error {
	query := `INSERT INTO performance_rules (competition_level, award_level, score, workload, updated_at) VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (competition_level, award_level) DO UPDATE SET score = EXCLUDED.score, workload = EXCLUDED.workload, updated_at = EXCLUDED.updated_at`
	if onlyMissing {
		query = `INSERT INTO performance_rules (competition_level, award_level, score, workload, updated_at) VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (competition_level, award_level) DO NOTHING`
	}
	conn := database.Conn(ctx, r.db)
	now := time.Now().UTC()
	for _, rule := range rules {
		if _, err := conn.ExecContext(ctx, query, rule.CompetitionLevel, rule.AwardLevel, rule.Score, rule.Workload, now); err != nil {
			return fmt.Errorf("upsert performance rule %s/%s: %w", rule.CompetitionLevel, rule.AwardLevel, err)
		}
	}
	return nil
}

// UpsertReward writes reward rules; see UpsertPerformance for onlyMissing.
func (r *RuleRepository) UpsertReward(ctx context.Context, rules []models.RewardRule, onlyMissing bool) error {
	query := `INSERT INTO reward_rules (competition_level, award_level, amount, updated_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (competition_level, award_level) DO UPDATE SET amount = EXCLUDED.amount, updated_at = EXCLUDED.updated_at`
	if onlyMissing {
		query = `INSERT INTO reward_rules (competition_level, award_level, amount, updated_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (competition_level, award_level) DO NOTHING`
	}
	conn := database.Conn(ctx, r.db)
	now := time.Now().UTC()
	for _, rule := range rules {
		if _, err := conn.ExecContext(ctx, query, rule.CompetitionLevel, rule.AwardLevel, rule.Amount, now); err != nil {
			return fmt.Errorf("upsert reward rule %s/%s: %w", rule.CompetitionLevel, rule.AwardLevel, err)
		}
	}
	return nil
}
