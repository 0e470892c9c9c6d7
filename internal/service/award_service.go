package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/competition-approval-api/internal/dto"
	"github.com/noah-isme/competition-approval-api/internal/models"
	"github.com/noah-isme/competition-approval-api/internal/workflow"
	appErrors "github.com/noah-isme/competition-approval-api/pkg/errors"
	"github.com/noah-isme/competition-approval-api/pkg/events"
)

const defaultLatestAwards = 20

type awardRepository interface {
	FindByID(ctx context.Context, id string) (*models.Award, error)
	ExistsForApplication(ctx context.Context, applicationID string) (bool, error)
	ExistsCertificate(ctx context.Context, certificateNo string) (bool, error)
	Create(ctx context.Context, award *models.Award) error
	TransitionStatus(ctx context.Context, id string, from, to models.ApprovalStatus, at time.Time, approvedAt *time.Time) error
	CreateApprovalRecord(ctx context.Context, rec *models.ApprovalRecord) error
	ListApprovalRecords(ctx context.Context, awardID string) ([]models.ApprovalRecord, error)
	List(ctx context.Context, filter models.AwardFilter) ([]models.Award, int, error)
	LatestApproved(ctx context.Context, limit int) ([]models.Award, error)
}

type applicationFinder interface {
	FindByID(ctx context.Context, id string) (*models.Application, error)
}

type ruleSnapshotter interface {
	Snapshot(ctx context.Context, level models.CompetitionLevel, award models.AwardLevel) (RuleSnapshot, error)
}

type scoreLedger interface {
	Adjust(ctx context.Context, userID string, delta float64, reason models.LedgerReason, floorAtZero bool) (models.LedgerEntry, error)
	Committed(actorID string, entries ...models.LedgerEntry) []events.Event
}

// AwardService files prize claims and credits performance scores once a claim is finally approved.
type AwardService struct {
	repo         awardRepository
	applications applicationFinder
	rules        ruleSnapshotter
	ledger       scoreLedger
	tx           transactor
	cache        *CacheService
	metrics      *MetricsService
	publisher    events.Publisher
	validator    *validator.Validate
	logger       *zap.Logger
	now          func() time.Time
}

// NewAwardService constructs the service.
func NewAwardService(repo awardRepository, applications applicationFinder, rules ruleSnapshotter, ledger scoreLedger, tx transactor, cache *CacheService, metrics *MetricsService, publisher events.Publisher, validate *validator.Validate, logger *zap.Logger) *AwardService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AwardService{
		repo:         repo,
		applications: applications,
		rules:        rules,
		ledger:       ledger,
		tx:           tx,
		cache:        cache,
		metrics:      metrics,
		publisher:    publisherOrNoop(publisher),
		validator:    validate,
		logger:       logger,
		now:          utcNow,
	}
}

// Create files an award against an approved application the caller took part in.
// Score, workload and reward are copied from the rule tables at this moment.
func (s *AwardService) Create(ctx context.Context, actor models.Actor, req dto.CreateAwardRequest) (*models.Award, error) {
	if err := validate(s.validator, req, "invalid award payload"); err != nil {
		return nil, err
	}

	app, err := s.applications.FindByID(ctx, req.ApplicationID)
	if err != nil {
		return nil, notFoundOr(err, "application not found", "failed to load application")
	}
	if app.Status != models.StatusApproved {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "awards can only be filed for approved applications")
	}
	if !app.IsParticipant(actor.UserID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the application's teachers can file an award")
	}

	level := models.AwardLevel(req.AwardLevel)
	snap, err := s.rules.Snapshot(ctx, app.CompetitionLevel, level)
	if err != nil {
		return nil, err
	}

	award := &models.Award{
		ApplicationID:    app.ID,
		AwardLevel:       level,
		CertificateNo:    req.CertificateNo,
		PerformanceScore: snap.Score,
		Workload:         snap.Workload,
		RewardAmount:     snap.Reward,
		Status:           models.StatusPendingDepartment,
		CreatedAt:        s.now(),
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		exists, err := s.repo.ExistsForApplication(ctx, app.ID)
		if err != nil {
			return err
		}
		if exists {
			return appErrors.Clone(appErrors.ErrConflict, "an award was already filed for this application")
		}
		taken, err := s.repo.ExistsCertificate(ctx, req.CertificateNo)
		if err != nil {
			return err
		}
		if taken {
			return appErrors.Clone(appErrors.ErrConflict, "certificate number already registered")
		}
		return s.repo.Create(ctx, award)
	})
	if err != nil {
		return nil, s.writeError(err, "failed to create award")
	}

	award.TeacherID, award.CoTeacherID, award.DepartmentID = app.TeacherID, app.CoTeacherID, app.DepartmentID
	award.CompetitionName, award.CompetitionLevel = app.CompetitionName, app.CompetitionLevel
	s.publish(ctx, events.New(events.TypeAwardCreated, award.ID, actor.UserID, map[string]interface{}{
		"applicationId":    app.ID,
		"awardLevel":       level,
		"performanceScore": snap.Score,
		"rewardAmount":     snap.Reward,
	}))
	return award, nil
}

// Decide applies an approver's decision. The final school approval credits the
// teacher with the snapshotted score and the co-teacher with half of it, in the
// same transaction as the status change.
func (s *AwardService) Decide(ctx context.Context, actor models.Actor, id string, req dto.ApprovalDecisionRequest) (*models.Award, error) {
	if err := validate(s.validator, req, "invalid approval payload"); err != nil {
		return nil, err
	}

	var (
		transition workflow.Transition
		credits    []models.LedgerEntry
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		credits = credits[:0]
		award, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "award not found", "failed to load award")
		}
		transition, err = workflow.Award.Decide(actor, workflow.Subject{Status: award.Status, DepartmentID: award.DepartmentID}, req.Action)
		if err != nil {
			return err
		}

		now := s.now()
		var approvedAt *time.Time
		if transition.Final {
			approvedAt = &now
		}
		if err := s.repo.TransitionStatus(ctx, id, transition.From, transition.To, now, approvedAt); err != nil {
			return err
		}
		if err := s.repo.CreateApprovalRecord(ctx, &models.ApprovalRecord{
			SubjectID:  id,
			ApproverID: actor.UserID,
			Stage:      transition.Stage,
			Action:     transition.Action,
			FromStatus: transition.From,
			ToStatus:   transition.To,
			Comment:    req.Comment,
			CreatedAt:  now,
		}); err != nil {
			return err
		}
		if !transition.Final {
			return nil
		}

		entry, err := s.ledger.Adjust(ctx, award.TeacherID, award.PerformanceScore, models.ReasonAwardCredit, false)
		if err != nil {
			return err
		}
		credits = append(credits, entry)
		if award.CoTeacherID != nil && *award.CoTeacherID != award.TeacherID {
			entry, err := s.ledger.Adjust(ctx, *award.CoTeacherID, award.PerformanceScore/2, models.ReasonCoTeacherCredit, false)
			if err != nil {
				return err
			}
			credits = append(credits, entry)
		}
		return nil
	})
	if err != nil {
		return nil, s.transitionError(err, "failed to record decision")
	}

	s.metrics.RecordTransition(workflow.Award.Name, transition.From, transition.To)
	evts := []events.Event{events.New(events.TypeAwardDecided, id, actor.UserID, map[string]interface{}{
		"stage":  transition.Stage,
		"action": transition.Action,
		"from":   transition.From,
		"to":     transition.To,
	})}
	if transition.Final {
		evts = append(evts, s.ledger.Committed(actor.UserID, credits...)...)
		s.cache.InvalidatePattern(ctx, cachePatternStats)
	}
	s.publish(ctx, evts...)
	return s.Get(ctx, actor, id)
}

// Get returns an award when the caller may see it.
func (s *AwardService) Get(ctx context.Context, actor models.Actor, id string) (*models.Award, error) {
	award, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "award not found", "failed to load award")
	}
	participant := award.TeacherID == actor.UserID || (award.CoTeacherID != nil && *award.CoTeacherID == actor.UserID)
	if !canView(actor, participant, award.DepartmentID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "award is outside your scope")
	}
	return award, nil
}

// History returns the approval records of a visible award, newest first.
func (s *AwardService) History(ctx context.Context, actor models.Actor, id string) ([]models.ApprovalRecord, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	records, err := s.repo.ListApprovalRecords(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load approval history")
	}
	return records, nil
}

// ListMine lists awards on applications where the caller is teacher or co-teacher.
func (s *AwardService) ListMine(ctx context.Context, actor models.Actor, query dto.AwardListQuery) ([]models.Award, *models.Pagination, error) {
	if err := validate(s.validator, query, "invalid list query"); err != nil {
		return nil, nil, err
	}
	filter := awardFilterFrom(query)
	filter.ParticipantID = actor.UserID
	filter.DepartmentID = ""
	return s.list(ctx, filter)
}

// List lists awards for administrators; department admins only see their department.
func (s *AwardService) List(ctx context.Context, actor models.Actor, query dto.AwardListQuery) ([]models.Award, *models.Pagination, error) {
	if err := validate(s.validator, query, "invalid list query"); err != nil {
		return nil, nil, err
	}
	dept, err := scopeDepartment(actor, query.DepartmentID)
	if err != nil {
		return nil, nil, err
	}
	filter := awardFilterFrom(query)
	filter.DepartmentID = dept
	return s.list(ctx, filter)
}

// PendingQueue lists awards waiting on the caller's approval stage.
func (s *AwardService) PendingQueue(ctx context.Context, actor models.Actor, page, pageSize int) ([]models.Award, *models.Pagination, error) {
	status, ok := workflow.PendingStatusFor(actor.Role)
	if !ok {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "role has no approval queue")
	}
	dept, err := scopeDepartment(actor, "")
	if err != nil {
		return nil, nil, err
	}
	return s.list(ctx, models.AwardFilter{Status: &status, DepartmentID: dept, Page: page, PageSize: pageSize})
}

// LatestApproved returns the most recently approved awards for the public feed.
func (s *AwardService) LatestApproved(ctx context.Context, limit int) ([]models.Award, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultLatestAwards
	}
	awards, err := s.repo.LatestApproved(ctx, limit)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load latest awards")
	}
	if awards == nil {
		awards = []models.Award{}
	}
	return awards, nil
}

func (s *AwardService) list(ctx context.Context, filter models.AwardFilter) ([]models.Award, *models.Pagination, error) {
	awards, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list awards")
	}
	if awards == nil {
		awards = []models.Award{}
	}
	return awards, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

func awardFilterFrom(query dto.AwardListQuery) models.AwardFilter {
	filter := models.AwardFilter{DepartmentID: query.DepartmentID, Page: query.Page, PageSize: query.PageSize}
	if query.Status != "" {
		st := models.ApprovalStatus(query.Status)
		filter.Status = &st
	}
	if query.AwardLevel != "" {
		lv := models.AwardLevel(query.AwardLevel)
		filter.AwardLevel = &lv
	}
	if query.CompetitionLevel != "" {
		cl := models.CompetitionLevel(query.CompetitionLevel)
		filter.CompetitionLevel = &cl
	}
	return filter
}

func (s *AwardService) writeError(err error, msg string) error {
	if isUniqueViolation(err) {
		s.metrics.RecordConflict(workflow.Award.Name)
		return appErrors.Clone(appErrors.ErrConflict, "award or certificate already registered")
	}
	return passOrInternal(err, msg)
}

func (s *AwardService) transitionError(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		s.metrics.RecordConflict(workflow.Award.Name)
		return appErrors.Clone(appErrors.ErrConflict, "award was changed by another request")
	}
	return s.writeError(err, msg)
}

func (s *AwardService) publish(ctx context.Context, evts ...events.Event) {
	if err := s.publisher.Publish(ctx, evts...); err != nil {
		s.logger.Warn("failed to publish award event", zap.Error(err))
	}
}
