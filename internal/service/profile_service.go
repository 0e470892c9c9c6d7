package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/competition-approval-api/internal/dto"
	"github.com/noah-isme/competition-approval-api/internal/models"
	appErrors "github.com/noah-isme/competition-approval-api/pkg/errors"
	"github.com/noah-isme/competition-approval-api/pkg/events"
)

const (
	editMonthLayout   = "2006-01"
	maskedBankAccount = "***"
	myEditLogLimit    = 50
)

type profileRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate, expectCount int, expectMonth *string, at time.Time) error
}

type userInfoLogRepository interface {
	CreateUserInfoLogs(ctx context.Context, logs []models.UserInfoEditLog) error
	ListUserInfoLogs(ctx context.Context, userID string, limit int) ([]models.UserInfoEditLog, error)
}

// ProfilePolicy sets the monthly free-edit quota and the penalty beyond it.
type ProfilePolicy struct {
	FreeEdits int
	Penalty   float64
}

// ProfileService handles self-service profile edits and their monthly quota.
type ProfileService struct {
	users     profileRepository
	logs      userInfoLogRepository
	ledger    scoreLedger
	tx        transactor
	policy    ProfilePolicy
	publisher events.Publisher
	validator *validator.Validate
	logger    *zap.Logger
	clock     func() time.Time
}

// NewProfileService constructs the service.
func NewProfileService(users profileRepository, logs userInfoLogRepository, ledger scoreLedger, tx transactor, policy ProfilePolicy, publisher events.Publisher, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.FreeEdits < 0 {
		policy.FreeEdits = 0
	}
	return &ProfileService{
		users:     users,
		logs:      logs,
		ledger:    ledger,
		tx:        tx,
		policy:    policy,
		publisher: publisherOrNoop(publisher),
		validator: validate,
		logger:    logger,
		clock:     utcNow,
	}
}

// UpdateMyProfile applies the caller's profile changes. The month's first
// FreeEdits edits are free, as is any edit while the profile is still
// incomplete; later edits cost Penalty points and fail with
// INSUFFICIENT_BALANCE when the score cannot cover it.
func (s *ProfileService) UpdateMyProfile(ctx context.Context, actor models.Actor, req dto.UpdateProfileRequest) (*dto.ProfileUpdateResult, error) {
	if err := validate(s.validator, req, "invalid profile payload"); err != nil {
		return nil, err
	}

	var (
		result dto.ProfileUpdateResult
		entry  *models.LedgerEntry
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		entry = nil
		user, err := s.users.FindByID(ctx, actor.UserID)
		if err != nil {
			return notFoundOr(err, "user not found", "failed to load user")
		}

		update, changes := applyProfileChanges(user, req)
		result = dto.ProfileUpdateResult{User: user, ChangedFields: fieldNames(changes)}
		if len(changes) == 0 {
			return nil
		}

		now := s.clock().UTC()
		month := now.Format(editMonthLayout)
		count := 0
		if user.LastEditMonth != nil && *user.LastEditMonth == month {
			count = user.MonthlyEditCount
		}

		firstFill := user.Name == "" || user.Gender == "" || user.BankAccount == ""
		if !firstFill && count >= s.policy.FreeEdits {
			result.Penalty = s.policy.Penalty
		}
		result.FreeEdit = result.Penalty == 0

		if result.Penalty > 0 {
			debit, err := s.ledger.Adjust(ctx, user.ID, -result.Penalty, models.ReasonProfileEditPenalty, true)
			if err != nil {
				return err
			}
			entry = &debit
		}

		update.MonthlyEditCount = count + 1
		update.LastEditMonth = month
		if err := s.users.UpdateProfile(ctx, user.ID, update, user.MonthlyEditCount, user.LastEditMonth, now); err != nil {
			return err
		}

		logs := make([]models.UserInfoEditLog, 0, len(changes))
		for _, change := range changes {
			logs = append(logs, models.UserInfoEditLog{
				UserID:    user.ID,
				FieldName: change.Field,
				OldValue:  change.OldValue,
				NewValue:  change.NewValue,
				Penalty:   result.Penalty,
				CreatedAt: now,
			})
		}
		return s.logs.CreateUserInfoLogs(ctx, logs)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "profile was changed by another request")
		}
		return nil, passOrInternal(err, "failed to update profile")
	}
	if len(result.ChangedFields) == 0 {
		return &result, nil
	}

	if entry != nil {
		s.publish(ctx, s.ledger.Committed(actor.UserID, *entry)...)
	}
	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "failed to load user")
	}
	result.User = user
	return &result, nil
}

// ListMyEditLogs returns the caller's latest profile edit log rows.
func (s *ProfileService) ListMyEditLogs(ctx context.Context, actor models.Actor) ([]models.UserInfoEditLog, error) {
	logs, err := s.logs.ListUserInfoLogs(ctx, actor.UserID, myEditLogLimit)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load edit logs")
	}
	if logs == nil {
		logs = []models.UserInfoEditLog{}
	}
	return logs, nil
}

func (s *ProfileService) publish(ctx context.Context, evts ...events.Event) {
	if err := s.publisher.Publish(ctx, evts...); err != nil {
		s.logger.Warn("failed to publish profile event", zap.Error(err))
	}
}

// applyProfileChanges merges req onto user and returns the full field set to
// store plus one entry per field that actually changed. Blank values count as
// not provided, so a stored field can never be cleared back to empty.
func applyProfileChanges(user *models.User, req dto.UpdateProfileRequest) (models.ProfileUpdate, []models.FieldChange) {
	update := models.ProfileUpdate{
		Name:        user.Name,
		Gender:      user.Gender,
		BankAccount: user.BankAccount,
		BankName:    user.BankName,
	}
	var changes []models.FieldChange

	if v, ok := provided(req.Name); ok && v != user.Name {
		changes = append(changes, models.FieldChange{Field: "name", OldValue: user.Name, NewValue: v})
		update.Name = v
	}
	if v, ok := provided(req.Gender); ok && v != user.Gender {
		changes = append(changes, models.FieldChange{Field: "gender", OldValue: user.Gender, NewValue: v})
		update.Gender = v
	}
	if v, ok := provided(req.BankAccount); ok && v != user.BankAccount {
		changes = append(changes, models.FieldChange{Field: "bankAccount", OldValue: maskedBankAccount, NewValue: maskedBankAccount})
		update.BankAccount = v
	}
	if v, ok := provided(req.BankName); ok && v != user.BankName {
		changes = append(changes, models.FieldChange{Field: "bankName", OldValue: user.BankName, NewValue: v})
		update.BankName = v
	}
	return update, changes
}

func provided(v *string) (string, bool) {
	if v == nil {
		return "", false
	}
	trimmed := strings.TrimSpace(*v)
	return trimmed, trimmed != ""
}

func fieldNames(changes []models.FieldChange) []string {
	out := make([]string, len(changes))
	for i, c := range changes {
		out[i] = c.Field
	}
	return out
}
