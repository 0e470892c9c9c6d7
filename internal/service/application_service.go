package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/competition-approval-api/internal/dto"
	"github.com/noah-isme/competition-approval-api/internal/models"
	"github.com/noah-isme/competition-approval-api/internal/workflow"
	appErrors "github.com/noah-isme/competition-approval-api/pkg/errors"
	"github.com/noah-isme/competition-approval-api/pkg/events"
)

type applicationRepository interface {
	FindByID(ctx context.Context, id string) (*models.Application, error)
	ExistsActive(ctx context.Context, teacherID, competitionID, excludeID string) (bool, error)
	Create(ctx context.Context, app *models.Application) error
	UpdateCoTeacher(ctx context.Context, id string, coTeacherID *string, at time.Time) error
	ReplaceStudents(ctx context.Context, applicationID string, studentIDs []string) error
	ListStudents(ctx context.Context, applicationID string) ([]models.ApplicationStudent, error)
	CountStudents(ctx context.Context, applicationID string) (int, error)
	TransitionStatus(ctx context.Context, id string, from, to models.ApprovalStatus, at time.Time, submittedAt *time.Time) error
	DeleteDraft(ctx context.Context, id string) error
	CreateApprovalRecord(ctx context.Context, rec *models.ApprovalRecord) error
	ListApprovalRecords(ctx context.Context, applicationID string) ([]models.ApprovalRecord, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error)
}

type competitionFinder interface {
	FindByID(ctx context.Context, id string) (*models.Competition, error)
}

type studentChecker interface {
	ExistingIDs(ctx context.Context, ids []string) ([]string, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// ApplicationService drives competition applications through drafting and the two-stage approval.
type ApplicationService struct {
	repo         applicationRepository
	competitions competitionFinder
	students     studentChecker
	users        userFinder
	tx           transactor
	metrics      *MetricsService
	publisher    events.Publisher
	validator    *validator.Validate
	logger       *zap.Logger
	now          func() time.Time
}

// NewApplicationService constructs the service.
func NewApplicationService(repo applicationRepository, competitions competitionFinder, students studentChecker, users userFinder, tx transactor, metrics *MetricsService, publisher events.Publisher, validate *validator.Validate, logger *zap.Logger) *ApplicationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApplicationService{
		repo:         repo,
		competitions: competitions,
		students:     students,
		users:        users,
		tx:           tx,
		metrics:      metrics,
		publisher:    publisherOrNoop(publisher),
		validator:    validate,
		logger:       logger,
		now:          utcNow,
	}
}

// Create drafts a new application for the calling teacher.
func (s *ApplicationService) Create(ctx context.Context, actor models.Actor, req dto.CreateApplicationRequest) (*models.Application, error) {
	if err := validate(s.validator, req, "invalid application payload"); err != nil {
		return nil, err
	}
	if actor.DepartmentID == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "applicant has no department")
	}

	comp, err := s.competitions.FindByID(ctx, req.CompetitionID)
	if err != nil {
		return nil, notFoundOr(err, "competition not found", "failed to load competition")
	}
	if comp.Expired(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "competition is no longer accepting applications")
	}

	studentIDs, err := s.checkParticipants(ctx, actor.UserID, req.CoTeacherID, req.StudentIDs)
	if err != nil {
		return nil, err
	}

	app := &models.Application{
		CompetitionID: comp.ID,
		TeacherID:     actor.UserID,
		CoTeacherID:   req.CoTeacherID,
		DepartmentID:  actor.DepartmentID,
		Status:        models.StatusDraft,
		CreatedAt:     s.now(),
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		active, err := s.repo.ExistsActive(ctx, actor.UserID, comp.ID, "")
		if err != nil {
			return err
		}
		if active {
			return appErrors.Clone(appErrors.ErrConflict, "an active application for this competition already exists")
		}
		if err := s.repo.Create(ctx, app); err != nil {
			return err
		}
		return s.repo.ReplaceStudents(ctx, app.ID, studentIDs)
	})
	if err != nil {
		return nil, s.writeError(err, "failed to create application")
	}

	app.CompetitionName, app.CompetitionLevel = comp.Name, comp.Level
	app.Students = rosterFromIDs(app.ID, studentIDs)
	s.publish(ctx, events.New(events.TypeApplicationCreated, app.ID, actor.UserID, map[string]interface{}{
		"competitionId": comp.ID,
		"students":      len(studentIDs),
	}))
	return app, nil
}

// Update replaces the co-teacher and the whole student roster.
func (s *ApplicationService) Update(ctx context.Context, actor models.Actor, id string, req dto.UpdateApplicationRequest) (*models.Application, error) {
	if err := validate(s.validator, req, "invalid application payload"); err != nil {
		return nil, err
	}
	studentIDs, err := s.checkParticipants(ctx, actor.UserID, req.CoTeacherID, req.StudentIDs)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		app, err := s.loadOwned(ctx, actor, id)
		if err != nil {
			return err
		}
		if !workflow.Editable(app.Status) {
			return appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("application in %s cannot be edited", app.Status))
		}
		if err := s.repo.UpdateCoTeacher(ctx, id, req.CoTeacherID, s.now()); err != nil {
			return err
		}
		return s.repo.ReplaceStudents(ctx, id, studentIDs)
	})
	if err != nil {
		return nil, s.writeError(err, "failed to update application")
	}
	return s.Get(ctx, actor, id)
}

// Submit sends an editable application to the department queue.
func (s *ApplicationService) Submit(ctx context.Context, actor models.Actor, id string) (*models.Application, error) {
	var from models.ApprovalStatus
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		app, err := s.loadOwned(ctx, actor, id)
		if err != nil {
			return err
		}
		if !workflow.Submittable(app.Status) {
			return appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("application in %s cannot be submitted", app.Status))
		}
		count, err := s.repo.CountStudents(ctx, id)
		if err != nil {
			return err
		}
		if count == 0 {
			return appErrors.Clone(appErrors.ErrInvalidState, "application needs at least one student")
		}
		if app.Status == models.StatusRejected {
			active, err := s.repo.ExistsActive(ctx, app.TeacherID, app.CompetitionID, app.ID)
			if err != nil {
				return err
			}
			if active {
				return appErrors.Clone(appErrors.ErrConflict, "another active application for this competition exists")
			}
		}
		from = app.Status
		now := s.now()
		return s.repo.TransitionStatus(ctx, id, app.Status, models.StatusPendingDepartment, now, &now)
	})
	if err != nil {
		return nil, s.transitionError(err, "failed to submit application")
	}

	s.metrics.RecordTransition(workflow.Application.Name, from, models.StatusPendingDepartment)
	s.publish(ctx, events.New(events.TypeApplicationSubmitted, id, actor.UserID, map[string]interface{}{
		"from": from,
		"to":   models.StatusPendingDepartment,
	}))
	return s.Get(ctx, actor, id)
}

// Decide applies an approver's decision and appends it to the history.
func (s *ApplicationService) Decide(ctx context.Context, actor models.Actor, id string, req dto.ApprovalDecisionRequest) (*models.Application, error) {
	if err := validate(s.validator, req, "invalid approval payload"); err != nil {
		return nil, err
	}

	var transition workflow.Transition
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		app, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "application not found", "failed to load application")
		}
		transition, err = workflow.Application.Decide(actor, workflow.Subject{Status: app.Status, DepartmentID: app.DepartmentID}, req.Action)
		if err != nil {
			return err
		}
		now := s.now()
		if err := s.repo.TransitionStatus(ctx, id, transition.From, transition.To, now, nil); err != nil {
			return err
		}
		return s.repo.CreateApprovalRecord(ctx, &models.ApprovalRecord{
			SubjectID:  id,
			ApproverID: actor.UserID,
			Stage:      transition.Stage,
			Action:     transition.Action,
			FromStatus: transition.From,
			ToStatus:   transition.To,
			Comment:    req.Comment,
			CreatedAt:  now,
		})
	})
	if err != nil {
		return nil, s.transitionError(err, "failed to record decision")
	}

	s.metrics.RecordTransition(workflow.Application.Name, transition.From, transition.To)
	s.logger.Info("application decision",
		zap.String("application_id", id),
		zap.String("approver_id", actor.UserID),
		zap.String("action", string(transition.Action)),
		zap.String("from", string(transition.From)),
		zap.String("to", string(transition.To)),
	)
	s.publish(ctx, events.New(events.TypeApplicationDecided, id, actor.UserID, map[string]interface{}{
		"stage":  transition.Stage,
		"action": transition.Action,
		"from":   transition.From,
		"to":     transition.To,
	}))
	return s.Get(ctx, actor, id)
}

// Delete removes a draft owned by the caller.
func (s *ApplicationService) Delete(ctx context.Context, actor models.Actor, id string) error {
	app, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return err
	}
	if app.Status != models.StatusDraft {
		return appErrors.Clone(appErrors.ErrInvalidState, "only draft applications can be deleted")
	}
	if err := s.repo.DeleteDraft(ctx, id); err != nil {
		return s.transitionError(err, "failed to delete application")
	}
	return nil
}

// Get returns an application with its roster when the caller may see it.
func (s *ApplicationService) Get(ctx context.Context, actor models.Actor, id string) (*models.Application, error) {
	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "application not found", "failed to load application")
	}
	if !canView(actor, app.IsParticipant(actor.UserID), app.DepartmentID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "application is outside your scope")
	}
	students, err := s.repo.ListStudents(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load application students")
	}
	app.Students = students
	return app, nil
}

// History returns the approval records of a visible application, newest first.
func (s *ApplicationService) History(ctx context.Context, actor models.Actor, id string) ([]models.ApprovalRecord, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	records, err := s.repo.ListApprovalRecords(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load approval history")
	}
	return records, nil
}

// ListMine lists applications where the caller is teacher or co-teacher.
func (s *ApplicationService) ListMine(ctx context.Context, actor models.Actor, query dto.ApplicationListQuery) ([]models.Application, *models.Pagination, error) {
	if err := validate(s.validator, query, "invalid list query"); err != nil {
		return nil, nil, err
	}
	filter := models.ApplicationFilter{ParticipantID: actor.UserID, CompetitionID: query.CompetitionID, Page: query.Page, PageSize: query.PageSize}
	if query.Status != "" {
		st := models.ApprovalStatus(query.Status)
		filter.Status = &st
	}
	return s.list(ctx, filter)
}

// List lists applications for administrators; department admins only see their department.
func (s *ApplicationService) List(ctx context.Context, actor models.Actor, query dto.ApplicationListQuery) ([]models.Application, *models.Pagination, error) {
	if err := validate(s.validator, query, "invalid list query"); err != nil {
		return nil, nil, err
	}
	dept, err := scopeDepartment(actor, query.DepartmentID)
	if err != nil {
		return nil, nil, err
	}
	filter := models.ApplicationFilter{
		CompetitionID: query.CompetitionID,
		TeacherID:     query.TeacherID,
		DepartmentID:  dept,
		Page:          query.Page,
		PageSize:      query.PageSize,
	}
	if query.Status != "" {
		st := models.ApprovalStatus(query.Status)
		filter.Status = &st
	}
	return s.list(ctx, filter)
}

// PendingQueue lists the applications waiting on the caller's approval stage, oldest submission first.
func (s *ApplicationService) PendingQueue(ctx context.Context, actor models.Actor, page, pageSize int) ([]models.Application, *models.Pagination, error) {
	status, ok := workflow.PendingStatusFor(actor.Role)
	if !ok {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "role has no approval queue")
	}
	dept, err := scopeDepartment(actor, "")
	if err != nil {
		return nil, nil, err
	}
	return s.list(ctx, models.ApplicationFilter{Status: &status, DepartmentID: dept, Page: page, PageSize: pageSize})
}

func (s *ApplicationService) list(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, *models.Pagination, error) {
	apps, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list applications")
	}
	if apps == nil {
		apps = []models.Application{}
	}
	return apps, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

func (s *ApplicationService) loadOwned(ctx context.Context, actor models.Actor, id string) (*models.Application, error) {
	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "application not found", "failed to load application")
	}
	if app.TeacherID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owning teacher can change this application")
	}
	return app, nil
}

// checkParticipants validates the co-teacher and returns the de-duplicated student ids.
func (s *ApplicationService) checkParticipants(ctx context.Context, teacherID string, coTeacherID *string, studentIDs []string) ([]string, error) {
	if coTeacherID != nil {
		if *coTeacherID == teacherID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "co-teacher must be a different user")
		}
		if _, err := s.users.FindByID(ctx, *coTeacherID); err != nil {
			return nil, notFoundOr(err, "co-teacher not found", "failed to load co-teacher")
		}
	}

	ids := dedupe(studentIDs)
	if len(ids) == 0 {
		return ids, nil
	}
	found, err := s.students.ExistingIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to verify students")
	}
	if len(found) != len(ids) {
		known := make(map[string]struct{}, len(found))
		for _, id := range found {
			known[id] = struct{}{}
		}
		for _, id := range ids {
			if _, ok := known[id]; !ok {
				return nil, appErrors.Clone(appErrors.ErrValidation, "unknown student "+id)
			}
		}
	}
	return ids, nil
}

func (s *ApplicationService) writeError(err error, msg string) error {
	if isUniqueViolation(err) {
		s.metrics.RecordConflict(workflow.Application.Name)
		return appErrors.Clone(appErrors.ErrConflict, "an active application for this competition already exists")
	}
	return passOrInternal(err, msg)
}

// transitionError maps a lost compare-and-swap to CONFLICT.
func (s *ApplicationService) transitionError(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		s.metrics.RecordConflict(workflow.Application.Name)
		return appErrors.Clone(appErrors.ErrConflict, "application was changed by another request")
	}
	return s.writeError(err, msg)
}

func (s *ApplicationService) publish(ctx context.Context, evts ...events.Event) {
	if err := s.publisher.Publish(ctx, evts...); err != nil {
		s.logger.Warn("failed to publish application event", zap.Error(err))
	}
}

func rosterFromIDs(applicationID string, ids []string) []models.ApplicationStudent {
	out := make([]models.ApplicationStudent, len(ids))
	for i, id := range ids {
		out[i] = models.ApplicationStudent{ApplicationID: applicationID, StudentID: id, Position: i + 1}
	}
	return out
}
