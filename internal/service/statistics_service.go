package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/competition-approval-api/internal/dto"
	"github.com/noah-isme/competition-approval-api/internal/models"
	appErrors "github.com/noah-isme/competition-approval-api/pkg/errors"
)

const recentEditLogLimit = 10

type statsRepository interface {
	PerformanceAwards(ctx context.Context, userID string) ([]models.PerformanceAward, error)
	LevelStats(ctx context.Context, userID string) ([]models.LevelStat, error)
	DepartmentStats(ctx context.Context) ([]models.DepartmentStat, error)
	OverviewCounts(ctx context.Context) (*models.SchoolOverview, error)
	CompetitionCounts(ctx context.Context, column string, year *int) ([]models.CountBy, error)
	AwardLevelCounts(ctx context.Context, scope models.AwardCountScope, year *int) ([]models.CountBy, error)
}

type rankingRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	RankByDepartment(ctx context.Context, departmentID string, page, pageSize int) ([]models.RankingEntry, int, error)
}

type editLogReader interface {
	ListUserInfoLogs(ctx context.Context, userID string, limit int) ([]models.UserInfoEditLog, error)
}

// StatisticsService serves the performance dashboards.
type StatisticsService struct {
	stats     statsRepository
	users     rankingRepository
	logs      editLogReader
	cache     *CacheService
	cacheTTL  time.Duration
	freeEdits int
	logger    *zap.Logger
	clock     func() time.Time
}

// NewStatisticsService constructs the service.
func NewStatisticsService(stats statsRepository, users rankingRepository, logs editLogReader, cache *CacheService, cacheTTL time.Duration, freeEdits int, logger *zap.Logger) *StatisticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatisticsService{
		stats:     stats,
		users:     users,
		logs:      logs,
		cache:     cache,
		cacheTTL:  cacheTTL,
		freeEdits: freeEdits,
		logger:    logger,
		clock:     utcNow,
	}
}

// MyPerformance assembles the caller's score, quota, awards and recent edits.
func (s *StatisticsService) MyPerformance(ctx context.Context, actor models.Actor) (*models.MyPerformance, error) {
	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "failed to load user")
	}

	out := &models.MyPerformance{
		UserID:           user.ID,
		PerformanceScore: user.PerformanceScore,
		LastEditMonth:    user.LastEditMonth,
	}
	if user.LastEditMonth != nil && *user.LastEditMonth == s.clock().UTC().Format(editMonthLayout) {
		out.MonthlyEditCount = user.MonthlyEditCount
	}
	if left := s.freeEdits - out.MonthlyEditCount; left > 0 {
		out.FreeEditsLeft = left
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		awards, err := s.stats.PerformanceAwards(gctx, user.ID)
		out.Awards = awards
		return err
	})
	g.Go(func() error {
		levels, err := s.stats.LevelStats(gctx, user.ID)
		out.ByLevel = levels
		return err
	})
	g.Go(func() error {
		logs, err := s.logs.ListUserInfoLogs(gctx, user.ID, recentEditLogLimit)
		out.RecentEdits = logs
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, appErrors.Internal(err, "failed to load performance")
	}

	if out.Awards == nil {
		out.Awards = []models.PerformanceAward{}
	}
	if out.ByLevel == nil {
		out.ByLevel = []models.LevelStat{}
	}
	if out.RecentEdits == nil {
		out.RecentEdits = []models.UserInfoEditLog{}
	}
	return out, nil
}

// DepartmentRanking orders a department's teachers by score. Department admins
// always see their own department.
func (s *StatisticsService) DepartmentRanking(ctx context.Context, actor models.Actor, query dto.RankingQuery) ([]models.RankingEntry, *models.Pagination, error) {
	dept, err := scopeDepartment(actor, query.DepartmentID)
	if err != nil {
		return nil, nil, err
	}
	if dept == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "departmentId is required")
	}
	entries, total, err := s.users.RankByDepartment(ctx, dept, query.Page, query.PageSize)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to rank department")
	}
	if entries == nil {
		entries = []models.RankingEntry{}
	}
	return entries, models.NewPagination(query.Page, query.PageSize, total), nil
}

// SchoolOverview returns school-wide totals and per-department scores.
func (s *StatisticsService) SchoolOverview(ctx context.Context, actor models.Actor) (*models.SchoolOverview, error) {
	if !actor.Role.IsSchoolLevel() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "school administrator role required")
	}

	var cached models.SchoolOverview
	if s.cache.Get(ctx, cacheKeySchoolOverview, &cached) {
		return &cached, nil
	}

	var (
		overview    *models.SchoolOverview
		departments []models.DepartmentStat
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		overview, err = s.stats.OverviewCounts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		departments, err = s.stats.DepartmentStats(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, appErrors.Internal(err, "failed to load school overview")
	}

	if departments == nil {
		departments = []models.DepartmentStat{}
	}
	overview.Departments = departments
	overview.GeneratedAt = utcNow()
	s.cache.Set(ctx, cacheKeySchoolOverview, overview, s.cacheTTL)
	return overview, nil
}

// CompetitionStats groups the competition catalogue by tier, region and the
// five latest years, plus approved awards by prize tier. Teachers only count
// their own awards and department admins their department's.
func (s *StatisticsService) CompetitionStats(ctx context.Context, actor models.Actor, query dto.CompetitionStatsQuery) (*models.CompetitionStats, error) {
	if query.Year != 0 && (query.Year < 2000 || query.Year > 2100) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year must be between 2000 and 2100")
	}
	var year *int
	if query.Year != 0 {
		year = &query.Year
	}

	var scope models.AwardCountScope
	switch {
	case actor.Role.IsSchoolLevel():
	case actor.Role == models.RoleDepartmentAdmin && actor.DepartmentID != nil:
		scope.DepartmentID = *actor.DepartmentID
	default:
		scope.ParticipantID = actor.UserID
	}

	out := &models.CompetitionStats{Year: year}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.ByLevel, err = s.stats.CompetitionCounts(gctx, "level", year)
		return err
	})
	g.Go(func() error {
		var err error
		out.ByRegion, err = s.stats.CompetitionCounts(gctx, "region", year)
		return err
	})
	g.Go(func() error {
		var err error
		out.ByYear, err = s.stats.CompetitionCounts(gctx, "year", nil)
		return err
	})
	g.Go(func() error {
		var err error
		out.AwardsByLevel, err = s.stats.AwardLevelCounts(gctx, scope, year)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, appErrors.Internal(err, "failed to load competition statistics")
	}

	for _, bucket := range []*[]models.CountBy{&out.ByLevel, &out.ByRegion, &out.ByYear, &out.AwardsByLevel} {
		if *bucket == nil {
			*bucket = []models.CountBy{}
		}
	}
	return out, nil
}
