package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/competition-approval-api/internal/dto"
	"github.com/noah-isme/competition-approval-api/internal/models"
	appErrors "github.com/noah-isme/competition-approval-api/pkg/errors"
)

type departmentRepository interface {
	List(ctx context.Context) ([]models.Department, error)
	FindByID(ctx context.Context, id string) (*models.Department, error)
	Create(ctx context.Context, department *models.Department) error
	Update(ctx context.Context, department *models.Department) error
	Delete(ctx context.Context, id string) error
}

// DepartmentService serves the department reference table. Reads are open to
// every signed-in user; changes are super-admin only.
type DepartmentService struct {
	repo      departmentRepository
	cache     *CacheService
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDepartmentService constructs the service.
func NewDepartmentService(repo departmentRepository, cache *CacheService, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *DepartmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DepartmentService{repo: repo, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// List returns all departments ordered by name.
func (s *DepartmentService) List(ctx context.Context) ([]models.Department, error) {
	var cached []models.Department
	if s.cache.Get(ctx, cacheKeyDepartments, &cached) {
		return cached, nil
	}
	departments, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list departments")
	}
	if departments == nil {
		departments = []models.Department{}
	}
	s.cache.Set(ctx, cacheKeyDepartments, departments, s.cacheTTL)
	return departments, nil
}

// Get returns one department.
func (s *DepartmentService) Get(ctx context.Context, id string) (*models.Department, error) {
	department, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "department not found", "failed to load department")
	}
	return department, nil
}

// Create adds a department.
func (s *DepartmentService) Create(ctx context.Context, actor models.Actor, req dto.DepartmentRequest) (*models.Department, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}
	req = normalizeDepartment(req)
	if err := validate(s.validator, req, "invalid department payload"); err != nil {
		return nil, err
	}
	department := &models.Department{Name: req.Name, Code: req.Code}
	if err := s.repo.Create(ctx, department); err != nil {
		return nil, s.writeError(err, "failed to create department")
	}
	s.cache.Invalidate(ctx, cacheKeyDepartments)
	s.logger.Info("department created", zap.String("department_id", department.ID), zap.String("actor_id", actor.UserID))
	return department, nil
}

// Update replaces a department's name and code.
func (s *DepartmentService) Update(ctx context.Context, actor models.Actor, id string, req dto.DepartmentRequest) (*models.Department, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}
	req = normalizeDepartment(req)
	if err := validate(s.validator, req, "invalid department payload"); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, &models.Department{ID: id, Name: req.Name, Code: req.Code}); err != nil {
		return nil, s.writeError(err, "failed to update department")
	}
	s.cache.Invalidate(ctx, cacheKeyDepartments)
	s.cache.InvalidatePattern(ctx, cachePatternStats)
	return s.Get(ctx, id)
}

// Delete removes a department that no user, competition or application references.
func (s *DepartmentService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if err := requireSuperAdmin(actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if isForeignKeyViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "department is still in use")
		}
		return notFoundOr(err, "department not found", "failed to delete department")
	}
	s.cache.Invalidate(ctx, cacheKeyDepartments)
	s.cache.InvalidatePattern(ctx, cachePatternStats)
	s.logger.Info("department deleted", zap.String("department_id", id), zap.String("actor_id", actor.UserID))
	return nil
}

func (s *DepartmentService) writeError(err error, msg string) error {
	if isUniqueViolation(err) {
		return appErrors.Clone(appErrors.ErrConflict, "department name or code already used")
	}
	return notFoundOr(err, "department not found", msg)
}

func normalizeDepartment(req dto.DepartmentRequest) dto.DepartmentRequest {
	return dto.DepartmentRequest{Name: strings.TrimSpace(req.Name), Code: strings.ToUpper(strings.TrimSpace(req.Code))}
}

func requireSuperAdmin(actor models.Actor) error {
	if actor.Role != models.RoleSuperAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "super administrator role required")
	}
	return nil
}
