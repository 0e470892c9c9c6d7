package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/competition-approval-api/internal/dto"
	"github.com/noah-isme/competition-approval-api/internal/models"
	appErrors "github.com/noah-isme/competition-approval-api/pkg/errors"
)

func newUserService(t *testing.T) (*UserService, *harness) {
	h := newHarness(t)
	return NewUserService(memUsers{h.store}, nil, nil), h
}

func TestUserServiceListIsScoped(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	users, page, err := svc.List(ctx, deptAdminActor, dto.UserListQuery{DepartmentID: deptArt})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	for _, u := range users {
		assert.Equal(t, deptMath, *u.DepartmentID)
	}

	users, _, err = svc.List(ctx, schoolAdminActor, dto.UserListQuery{Role: "TEACHER"})
	require.NoError(t, err)
	assert.Len(t, users, 3)

	_, _, err = svc.List(ctx, teacherActor, dto.UserListQuery{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestUserServiceGetVisibility(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, teacherActor, teacherActor.UserID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, teacherActor, coTeacherActor.UserID)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Get(ctx, artAdminActor, teacherActor.UserID)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Get(ctx, deptAdminActor, teacherActor.UserID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, schoolAdminActor, "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestUserServiceCreate(t *testing.T) {
	svc, h := newUserService(t)
	ctx := context.Background()
	meta := RequestMeta{IP: "127.0.0.1", UserAgent: "test"}
	req := dto.CreateUserRequest{EmployeeID: "T-0100", Name: "New Teacher", Role: "TEACHER", DepartmentID: strPtr(deptArt), Password: "secret1"}

	_, err := svc.Create(ctx, schoolAdminActor, req, meta)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	noDept := req
	noDept.DepartmentID = nil
	_, err = svc.Create(ctx, superAdminActor, noDept, meta)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	user, err := svc.Create(ctx, superAdminActor, req, meta)
	require.NoError(t, err)
	assert.True(t, user.Active)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "secret1", user.PasswordHash)
	require.Len(t, h.store.audits, 1)
	assert.Equal(t, models.AuditActionUserCreate, h.store.audits[0].Action)

	_, err = svc.Create(ctx, superAdminActor, req, meta)
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	admin := dto.CreateUserRequest{EmployeeID: "A-0001", Name: "Principal", Role: "SCHOOL_ADMIN", Password: "secret1"}
	_, err = svc.Create(ctx, superAdminActor, admin, meta)
	require.NoError(t, err)
}

func TestUserServiceUpdate(t *testing.T) {
	svc, h := newUserService(t)
	ctx := context.Background()
	inactive := false

	updated, err := svc.Update(ctx, superAdminActor, teacherActor.UserID, dto.UpdateUserRequest{
		Name:         "Promoted",
		Role:         "DEPARTMENT_ADMIN",
		DepartmentID: strPtr(deptMath),
		Active:       &inactive,
	}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.RoleDepartmentAdmin, updated.Role)
	assert.False(t, h.store.user(teacherActor.UserID).Active)
	require.Len(t, h.store.audits, 1)
	assert.Contains(t, string(h.store.audits[0].OldValues), "TEACHER")

	_, err = svc.Update(ctx, deptAdminActor, teacherActor.UserID, dto.UpdateUserRequest{Name: "x", Role: "TEACHER", DepartmentID: strPtr(deptMath)}, RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Update(ctx, superAdminActor, "missing", dto.UpdateUserRequest{Name: "x", Role: "SCHOOL_ADMIN"}, RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
