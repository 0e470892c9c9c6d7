package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/competition-approval-api/internal/dto"
	"github.com/noah-isme/competition-approval-api/internal/models"
	appErrors "github.com/noah-isme/competition-approval-api/pkg/errors"
	"github.com/noah-isme/competition-approval-api/pkg/events"
)

type competitionRepository interface {
	FindByID(ctx context.Context, id string) (*models.Competition, error)
	List(ctx context.Context, filter models.CompetitionFilter) ([]models.Competition, int, error)
	Create(ctx context.Context, comp *models.Competition) error
	Update(ctx context.Context, comp *models.Competition) error
	Delete(ctx context.Context, id string) error
	HasApplications(ctx context.Context, id string) (bool, error)
}

type competitionLogRepository interface {
	CreateCompetitionLogs(ctx context.Context, logs []models.CompetitionEditLog) error
	ListCompetitionLogs(ctx context.Context, competitionID string) ([]models.CompetitionEditLog, error)
}

// CompetitionService manages the competition catalogue.
type CompetitionService struct {
	repo      competitionRepository
	logs      competitionLogRepository
	ledger    scoreLedger
	tx        transactor
	penalty   float64
	publisher events.Publisher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCompetitionService constructs the service. penalty is debited from the
// editor once per changed field on update.
func NewCompetitionService(repo competitionRepository, logs competitionLogRepository, ledger scoreLedger, tx transactor, penalty float64, publisher events.Publisher, validate *validator.Validate, logger *zap.Logger) *CompetitionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompetitionService{
		repo:      repo,
		logs:      logs,
		ledger:    ledger,
		tx:        tx,
		penalty:   penalty,
		publisher: publisherOrNoop(publisher),
		validator: validate,
		logger:    logger,
	}
}

// List returns competitions matching the query.
func (s *CompetitionService) List(ctx context.Context, query dto.CompetitionListQuery) ([]models.Competition, *models.Pagination, error) {
	if err := validate(s.validator, query, "invalid list query"); err != nil {
		return nil, nil, err
	}
	filter := models.CompetitionFilter{Search: strings.TrimSpace(query.Search), Page: query.Page, PageSize: query.PageSize}
	if query.Level != "" {
		lv := models.CompetitionLevel(query.Level)
		filter.Level = &lv
	}
	if query.Region != "" {
		rg := models.CompetitionRegion(query.Region)
		filter.Region = &rg
	}
	if query.Year > 0 {
		year := query.Year
		filter.Year = &year
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list competitions")
	}
	if items == nil {
		items = []models.Competition{}
	}
	return items, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a competition by id.
func (s *CompetitionService) Get(ctx context.Context, id string) (*models.Competition, error) {
	comp, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "competition not found", "failed to load competition")
	}
	return comp, nil
}

// Create adds a competition. Department admins cannot create tier A or B.
func (s *CompetitionService) Create(ctx context.Context, actor models.Actor, req dto.CreateCompetitionRequest) (*models.Competition, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := validate(s.validator, req, "invalid competition payload"); err != nil {
		return nil, err
	}
	level := models.CompetitionLevel(req.Level)
	if err := checkTierAllowed(actor, level); err != nil {
		return nil, err
	}

	comp := &models.Competition{
		Name:             strings.TrimSpace(req.Name),
		Track:            strings.TrimSpace(req.Track),
		Region:           models.CompetitionRegion(req.Region),
		Level:            level,
		Year:             req.Year,
		LeadDepartmentID: req.LeadDepartmentID,
		ValidUntil:       req.ValidUntil,
		CreatedBy:        actor.UserID,
	}
	if err := s.repo.Create(ctx, comp); err != nil {
		return nil, appErrors.Internal(err, "failed to create competition")
	}
	return comp, nil
}

// Update changes the provided fields. Each changed field is logged and costs
// the editor the configured penalty, debited without a floor.
func (s *CompetitionService) Update(ctx context.Context, actor models.Actor, id string, req dto.UpdateCompetitionRequest) (*models.Competition, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := validate(s.validator, req, "invalid competition payload"); err != nil {
		return nil, err
	}

	var (
		comp    *models.Competition
		changes []models.FieldChange
		entry   *models.LedgerEntry
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		entry = nil
		current, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "competition not found", "failed to load competition")
		}
		if err := checkTierAllowed(actor, current.Level); err != nil {
			return err
		}
		if req.Level != nil {
			if err := checkTierAllowed(actor, models.CompetitionLevel(*req.Level)); err != nil {
				return err
			}
		}

		comp, changes = applyCompetitionChanges(current, req)
		if len(changes) == 0 {
			return nil
		}
		if err := s.repo.Update(ctx, comp); err != nil {
			return err
		}

		now := utcNow()
		logs := make([]models.CompetitionEditLog, 0, len(changes))
		for _, change := range changes {
			logs = append(logs, models.CompetitionEditLog{
				CompetitionID: id,
				EditorID:      actor.UserID,
				FieldName:     change.Field,
				OldValue:      change.OldValue,
				NewValue:      change.NewValue,
				Penalty:       s.penalty,
				CreatedAt:     now,
			})
		}
		if err := s.logs.CreateCompetitionLogs(ctx, logs); err != nil {
			return err
		}

		if s.penalty <= 0 {
			return nil
		}
		debit, err := s.ledger.Adjust(ctx, actor.UserID, -s.penalty*float64(len(changes)), models.ReasonCompetitionPenalty, false)
		if err != nil {
			return err
		}
		entry = &debit
		return nil
	})
	if err != nil {
		return nil, passOrInternal(err, "failed to update competition")
	}
	if len(changes) == 0 {
		return comp, nil
	}

	evts := []events.Event{events.New(events.TypeCompetitionEdited, id, actor.UserID, map[string]interface{}{
		"fields":  fieldNames(changes),
		"penalty": s.penalty * float64(len(changes)),
	})}
	if entry != nil {
		evts = append(evts, s.ledger.Committed(actor.UserID, *entry)...)
	}
	if err := s.publisher.Publish(ctx, evts...); err != nil {
		s.logger.Warn("failed to publish competition event", zap.Error(err))
	}
	return comp, nil
}

// Delete removes a competition that no application references.
func (s *CompetitionService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	comp, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "competition not found", "failed to load competition")
	}
	if err := checkTierAllowed(actor, comp.Level); err != nil {
		return err
	}
	used, err := s.repo.HasApplications(ctx, id)
	if err != nil {
		return appErrors.Internal(err, "failed to check competition usage")
	}
	if used {
		return appErrors.Clone(appErrors.ErrConflict, "competition has applications and cannot be deleted")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "competition not found")
		}
		return appErrors.Internal(err, "failed to delete competition")
	}
	return nil
}

// EditLogs returns the change history of a competition.
func (s *CompetitionService) EditLogs(ctx context.Context, id string) ([]models.CompetitionEditLog, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	logs, err := s.logs.ListCompetitionLogs(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load competition logs")
	}
	if logs == nil {
		logs = []models.CompetitionEditLog{}
	}
	return logs, nil
}

func requireAdmin(actor models.Actor) error {
	if actor.Role.IsSchoolLevel() || actor.Role == models.RoleDepartmentAdmin {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "administrator role required")
}

func checkTierAllowed(actor models.Actor, level models.CompetitionLevel) error {
	if actor.Role == models.RoleDepartmentAdmin && (level == models.LevelA || level == models.LevelB) {
		return appErrors.Clone(appErrors.ErrForbidden, "department admins cannot manage tier A or B competitions")
	}
	return nil
}

// applyCompetitionChanges returns a copy of current with req applied and the
// list of fields whose value actually changed.
func applyCompetitionChanges(current *models.Competition, req dto.UpdateCompetitionRequest) (*models.Competition, []models.FieldChange) {
	next := *current
	var changes []models.FieldChange
	record := func(field, oldValue, newValue string) {
		changes = append(changes, models.FieldChange{Field: field, OldValue: oldValue, NewValue: newValue})
	}

	if req.Name != nil && strings.TrimSpace(*req.Name) != current.Name {
		next.Name = strings.TrimSpace(*req.Name)
		record("name", current.Name, next.Name)
	}
	if req.Track != nil && strings.TrimSpace(*req.Track) != current.Track {
		next.Track = strings.TrimSpace(*req.Track)
		record("track", current.Track, next.Track)
	}
	if req.Region != nil && models.CompetitionRegion(*req.Region) != current.Region {
		next.Region = models.CompetitionRegion(*req.Region)
		record("region", string(current.Region), string(next.Region))
	}
	if req.Level != nil && models.CompetitionLevel(*req.Level) != current.Level {
		next.Level = models.CompetitionLevel(*req.Level)
		record("level", string(current.Level), string(next.Level))
	}
	if req.Year != nil && *req.Year != current.Year {
		next.Year = *req.Year
		record("year", strconv.Itoa(current.Year), strconv.Itoa(next.Year))
	}
	if req.LeadDepartmentID != nil && optionalString(current.LeadDepartmentID) != *req.LeadDepartmentID {
		next.LeadDepartmentID = strPtr(*req.LeadDepartmentID)
		record("leadDepartmentId", optionalString(current.LeadDepartmentID), *req.LeadDepartmentID)
	}
	switch {
	case req.ClearValidUntil && current.ValidUntil != nil:
		next.ValidUntil = nil
		record("validUntil", formatOptionalTime(current.ValidUntil), "")
	case req.ValidUntil != nil && (current.ValidUntil == nil || !req.ValidUntil.Equal(*current.ValidUntil)):
		at := req.ValidUntil.UTC()
		next.ValidUntil = &at
		record("validUntil", formatOptionalTime(current.ValidUntil), formatOptionalTime(&at))
	}
	return &next, changes
}

func optionalString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
