package service

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/competition-approval-api/internal/dto"
	"github.com/noah-isme/competition-approval-api/internal/models"
	appErrors "github.com/noah-isme/competition-approval-api/pkg/errors"
	"github.com/noah-isme/competition-approval-api/pkg/events"
)

//go:embed rules_defaults.yaml
var defaultRulesYAML []byte

type ruleRepository interface {
	ListPerformance(ctx context.Context) ([]models.PerformanceRule, error)
	ListReward(ctx context.Context) ([]models.RewardRule, error)
	FindPerformance(ctx context.Context, key models.RuleKey) (*models.PerformanceRule, error)
	FindReward(ctx context.Context, key models.RuleKey) (*models.RewardRule, error)
	UpsertPerformance(ctx context.Context, rules []models.PerformanceRule, onlyMissing bool) error
	UpsertReward(ctx context.Context, rules []models.RewardRule, onlyMissing bool) error
}

// RuleSnapshot is the set of values copied onto an award when it is filed.
type RuleSnapshot struct {
	Score            float64
	Workload         float64
	Reward           float64
	PerformanceFound bool
	RewardFound      bool
}

// RuleService serves the performance and reward rule tables.
type RuleService struct {
	repo      ruleRepository
	tx        transactor
	cache     *CacheService
	cacheTTL  time.Duration
	publisher events.Publisher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRuleService constructs the rule service.
func NewRuleService(repo ruleRepository, tx transactor, cache *CacheService, cacheTTL time.Duration, publisher events.Publisher, validate *validator.Validate, logger *zap.Logger) *RuleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RuleService{repo: repo, tx: tx, cache: cache, cacheTTL: cacheTTL, publisher: publisherOrNoop(publisher), validator: validate, logger: logger}
}

// Tables returns both rule tables, served from cache when possible.
func (s *RuleService) Tables(ctx context.Context) (*models.RuleTables, error) {
	var cached models.RuleTables
	if s.cache.Get(ctx, cacheKeyRules, &cached) {
		return &cached, nil
	}

	var tables models.RuleTables
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rules, err := s.repo.ListPerformance(gctx)
		tables.Performance = rules
		return err
	})
	g.Go(func() error {
		rules, err := s.repo.ListReward(gctx)
		tables.Reward = rules
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, appErrors.Internal(err, "failed to load rule tables")
	}
	if tables.Performance == nil {
		tables.Performance = []models.PerformanceRule{}
	}
	if tables.Reward == nil {
		tables.Reward = []models.RewardRule{}
	}
	s.cache.Set(ctx, cacheKeyRules, tables, s.cacheTTL)
	return &tables, nil
}

// Snapshot looks up both tables for the key. Missing rows yield zero values and
// a warning; filing an award never fails because a rule is absent.
func (s *RuleService) Snapshot(ctx context.Context, level models.CompetitionLevel, award models.AwardLevel) (RuleSnapshot, error) {
	key := models.RuleKey{CompetitionLevel: level, AwardLevel: award}
	var snap RuleSnapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rule, err := s.repo.FindPerformance(gctx, key)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		snap.Score, snap.Workload, snap.PerformanceFound = rule.Score, rule.Workload, true
		return nil
	})
	g.Go(func() error {
		rule, err := s.repo.FindReward(gctx, key)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		snap.Reward, snap.RewardFound = rule.Amount, true
		return nil
	})
	if err := g.Wait(); err != nil {
		return RuleSnapshot{}, appErrors.Internal(err, "failed to look up rules")
	}

	if !snap.PerformanceFound || !snap.RewardFound {
		s.logger.Warn("rule missing, award snapshot defaults to zero",
			zap.String("competition_level", string(level)),
			zap.String("award_level", string(award)),
			zap.Bool("performance_found", snap.PerformanceFound),
			zap.Bool("reward_found", snap.RewardFound),
		)
	}
	return snap, nil
}

// UpsertPerformance writes a batch of performance rules. Existing awards keep their snapshots.
func (s *RuleService) UpsertPerformance(ctx context.Context, actor models.Actor, req dto.UpsertPerformanceRulesRequest) (*models.RuleTables, error) {
	if actor.Role != models.RoleSuperAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only super admins can change rules")
	}
	if err := validate(s.validator, req, "invalid performance rules"); err != nil {
		return nil, err
	}
	rules := make([]models.PerformanceRule, 0, len(req.Rules))
	for _, in := range req.Rules {
		rules = append(rules, models.PerformanceRule{
			CompetitionLevel: models.CompetitionLevel(in.CompetitionLevel),
			AwardLevel:       models.AwardLevel(in.AwardLevel),
			Score:            in.Score,
			Workload:         in.Workload,
		})
	}
	if err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.repo.UpsertPerformance(ctx, rules, false)
	}); err != nil {
		return nil, appErrors.Internal(err, "failed to save performance rules")
	}
	return s.afterChange(ctx, actor, "performance", len(rules))
}

// UpsertReward writes a batch of reward rules.
func (s *RuleService) UpsertReward(ctx context.Context, actor models.Actor, req dto.UpsertRewardRulesRequest) (*models.RuleTables, error) {
	if actor.Role != models.RoleSuperAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only super admins can change rules")
	}
	if err := validate(s.validator, req, "invalid reward rules"); err != nil {
		return nil, err
	}
	rules := make([]models.RewardRule, 0, len(req.Rules))
	for _, in := range req.Rules {
		rules = append(rules, models.RewardRule{
			CompetitionLevel: models.CompetitionLevel(in.CompetitionLevel),
			AwardLevel:       models.AwardLevel(in.AwardLevel),
			Amount:           in.Amount,
		})
	}
	if err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.repo.UpsertReward(ctx, rules, false)
	}); err != nil {
		return nil, appErrors.Internal(err, "failed to save reward rules")
	}
	return s.afterChange(ctx, actor, "reward", len(rules))
}

func (s *RuleService) afterChange(ctx context.Context, actor models.Actor, table string, count int) (*models.RuleTables, error) {
	s.cache.Invalidate(ctx, cacheKeyRules)
	_ = s.publisher.Publish(ctx, events.New(events.TypeRulesUpdated, table, actor.UserID, map[string]interface{}{"rows": count}))
	s.logger.Info("rule table updated", zap.String("table", table), zap.Int("rows", count), zap.String("actor_id", actor.UserID))
	return s.Tables(ctx)
}

// DefaultRules parses the embedded default rule tables.
func DefaultRules() (*models.RuleTables, error) {
	var tables models.RuleTables
	if err := yaml.Unmarshal(defaultRulesYAML, &tables); err != nil {
		return nil, fmt.Errorf("parse default rules: %w", err)
	}
	for _, r := range tables.Performance {
		if !r.CompetitionLevel.Valid() || !r.AwardLevel.Valid() {
			return nil, fmt.Errorf("default performance rule %s/%s has an unknown key", r.CompetitionLevel, r.AwardLevel)
		}
	}
	for _, r := range tables.Reward {
		if !r.CompetitionLevel.Valid() || !r.AwardLevel.Valid() {
			return nil, fmt.Errorf("default reward rule %s/%s has an unknown key", r.CompetitionLevel, r.AwardLevel)
		}
	}
	return &tables, nil
}

// SeedDefaults fills each rule table from the embedded defaults when the table is empty.
func (s *RuleService) SeedDefaults(ctx context.Context) error {
	defaults, err := DefaultRules()
	if err != nil {
		return err
	}
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		perf, err := s.repo.ListPerformance(ctx)
		if err != nil {
			return err
		}
		if len(perf) == 0 {
			if err := s.repo.UpsertPerformance(ctx, defaults.Performance, true); err != nil {
				return err
			}
			s.logger.Info("seeded performance rules", zap.Int("rows", len(defaults.Performance)))
		}
		reward, err := s.repo.ListReward(ctx)
		if err != nil {
			return err
		}
		if len(reward) == 0 {
			if err := s.repo.UpsertReward(ctx, defaults.Reward, true); err != nil {
				return err
			}
			s.logger.Info("seeded reward rules", zap.Int("rows", len(defaults.Reward)))
		}
		return nil
	})
}
