package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"

	"github.com/noah-isme/competition-approval-api/internal/models"
	appErrors "github.com/noah-isme/competition-approval-api/pkg/errors"
	"github.com/noah-isme/competition-approval-api/pkg/events"
)

// transactor runs fn inside one database transaction carried on ctx.
type transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, ...events.Event) error { return nil }

func publisherOrNoop(p events.Publisher) events.Publisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}

func utcNow() time.Time {
	return time.Now().UTC()
}

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation
}

// notFoundOr maps sql.ErrNoRows to NOT_FOUND and passes typed errors through;
// anything else becomes INTERNAL_ERROR with internalMsg.
func notFoundOr(err error, notFoundMsg, internalMsg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFoundMsg)
	}
	return passOrInternal(err, internalMsg)
}

func passOrInternal(err error, msg string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Internal(err, msg)
}

func validate(v *validator.Validate, payload interface{}, msg string) error {
	if err := v.Struct(payload); err != nil {
		return appErrors.Validation(err, msg)
	}
	return nil
}

// dedupe drops repeated ids keeping the first occurrence.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// canView reports whether actor may read a record owned by the given participants and department.
func canView(actor models.Actor, participant bool, departmentID *string) bool {
	switch {
	case participant:
		return true
	case actor.Role.IsSchoolLevel():
		return true
	case actor.Role == models.RoleDepartmentAdmin:
		return actor.DepartmentID != nil && departmentID != nil && *actor.DepartmentID == *departmentID
	}
	return false
}

// scopeDepartment forces department admins onto their own department. It
// returns FORBIDDEN for roles that cannot list across owners.
func scopeDepartment(actor models.Actor, requested string) (string, error) {
	switch {
	case actor.Role.IsSchoolLevel():
		return requested, nil
	case actor.Role == models.RoleDepartmentAdmin:
		if actor.DepartmentID == nil {
			return "", appErrors.Clone(appErrors.ErrForbidden, "department admin has no department")
		}
		return *actor.DepartmentID, nil
	}
	return "", appErrors.Clone(appErrors.ErrForbidden, "insufficient role")
}

func strPtr(s string) *string {
	return &s
}
