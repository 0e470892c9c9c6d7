package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/competition-approval-api/internal/dto"
	"github.com/noah-isme/competition-approval-api/internal/models"
	appErrors "github.com/noah-isme/competition-approval-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmployeeID(ctx context.Context, employeeID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// RequestMeta carries client details recorded in audit logs.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// UserService handles user management workflows.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated users. Department admins only see their department.
func (s *UserService) List(ctx context.Context, actor models.Actor, query dto.UserListQuery) ([]models.User, *models.Pagination, error) {
	if err := validate(s.validator, query, "invalid list query"); err != nil {
		return nil, nil, err
	}
	dept, err := scopeDepartment(actor, query.DepartmentID)
	if err != nil {
		return nil, nil, err
	}

	filter := models.UserFilter{
		Search:    strings.TrimSpace(query.Search),
		Page:      query.Page,
		PageSize:  query.PageSize,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
	}
	if dept != "" {
		filter.DepartmentID = &dept
	}
	if query.Role != "" {
		role := models.UserRole(query.Role)
		filter.Role = &role
	}

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list users")
	}
	if users == nil {
		users = []models.User{}
	}
	return users, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a user by ID when it is inside the caller's scope.
func (s *UserService) Get(ctx context.Context, actor models.Actor, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "failed to load user")
	}
	if !canView(actor, user.ID == actor.UserID, user.DepartmentID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "user is outside your scope")
	}
	return user, nil
}

// Create adds a new user. Only super admins may create accounts.
func (s *UserService) Create(ctx context.Context, actor models.Actor, req dto.CreateUserRequest, meta RequestMeta) (*models.User, error) {
	if actor.Role != models.RoleSuperAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "super admin role required")
	}
	if err := validate(s.validator, req, "invalid create user payload"); err != nil {
		return nil, err
	}
	role := models.UserRole(req.Role)
	if err := checkDepartmentForRole(role, req.DepartmentID); err != nil {
		return nil, err
	}

	employeeID := strings.TrimSpace(req.EmployeeID)
	if _, err := s.repo.FindByEmployeeID(ctx, employeeID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "employee id already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to check employee id")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hash password")
	}

	user := &models.User{
		EmployeeID:   employeeID,
		Name:         strings.TrimSpace(req.Name),
		Role:         role,
		DepartmentID: req.DepartmentID,
		Active:       true,
		PasswordHash: string(passwordHash),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "employee id already exists")
		}
		return nil, appErrors.Internal(err, "failed to create user")
	}

	newPayload, _ := json.Marshal(map[string]interface{}{"id": user.ID, "employeeId": user.EmployeeID, "role": user.Role})
	s.audit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionUserCreate,
		Resource:   "users",
		ResourceID: &user.ID,
		NewValues:  newPayload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})
	return user, nil
}

// Update modifies administrative attributes. Only super admins may change roles and departments.
func (s *UserService) Update(ctx context.Context, actor models.Actor, id string, req dto.UpdateUserRequest, meta RequestMeta) (*models.User, error) {
	if actor.Role != models.RoleSuperAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "super admin role required")
	}
	if err := validate(s.validator, req, "invalid update payload"); err != nil {
		return nil, err
	}
	role := models.UserRole(req.Role)
	if err := checkDepartmentForRole(role, req.DepartmentID); err != nil {
		return nil, err
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "failed to load user")
	}

	oldPayload, _ := json.Marshal(map[string]interface{}{"role": user.Role, "departmentId": user.DepartmentID, "active": user.Active})

	user.Name = strings.TrimSpace(req.Name)
	user.Role = role
	user.DepartmentID = req.DepartmentID
	if req.Active != nil {
		user.Active = *req.Active
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Internal(err, "failed to update user")
	}

	newPayload, _ := json.Marshal(map[string]interface{}{"role": user.Role, "departmentId": user.DepartmentID, "active": user.Active})
	s.audit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionUserUpdate,
		Resource:   "users",
		ResourceID: &user.ID,
		OldValues:  oldPayload,
		NewValues:  newPayload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})
	return user, nil
}

func (s *UserService) audit(ctx context.Context, log *models.AuditLog) {
	if err := s.repo.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record user audit log", zap.String("action", log.Action), zap.Error(err))
	}
}

// checkDepartmentForRole requires a department for department-scoped roles.
func checkDepartmentForRole(role models.UserRole, departmentID *string) error {
	if role.IsSchoolLevel() {
		return nil
	}
	if departmentID == nil || strings.TrimSpace(*departmentID) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "departmentId is required for role "+string(role))
	}
	return nil
}
