package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/competition-approval-api/internal/dto"
	"github.com/noah-isme/competition-approval-api/internal/models"
	appErrors "github.com/noah-isme/competition-approval-api/pkg/errors"
	"github.com/noah-isme/competition-approval-api/pkg/events"
)

var profileNow = time.Date(2026, time.October, 16, 9, 0, 0, 0, time.UTC)

func newProfileHarness(t *testing.T) *harness {
	h := newHarness(t)
	h.profiles.clock = func() time.Time { return profileNow }
	return h
}

func (h *harness) editUser(id string, fn func(u *models.User)) {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	u := h.store.users[id]
	fn(&u)
	h.store.users[id] = u
}

func TestProfileEditWithinQuotaIsFree(t *testing.T) {
	h := newProfileHarness(t)
	res, err := h.profiles.UpdateMyProfile(context.Background(), teacherActor, dto.UpdateProfileRequest{Name: strPtr("Ada Lovelace")})
	require.NoError(t, err)

	assert.True(t, res.FreeEdit)
	assert.Zero(t, res.Penalty)
	assert.Equal(t, []string{"name"}, res.ChangedFields)
	assert.Equal(t, "Ada Lovelace", res.User.Name)
	assert.Equal(t, 1, res.User.MonthlyEditCount)
	require.NotNil(t, res.User.LastEditMonth)
	assert.Equal(t, "2026-10", *res.User.LastEditMonth)
}

func TestProfileEditBeyondQuotaCostsPenalty(t *testing.T) {
	h := newProfileHarness(t)
	ctx := context.Background()
	_, err := h.ledger.Adjust(ctx, teacherActor.UserID, 5, models.ReasonAwardCredit, false)
	require.NoError(t, err)

	_, err = h.profiles.UpdateMyProfile(ctx, teacherActor, dto.UpdateProfileRequest{Name: strPtr("First")})
	require.NoError(t, err)

	res, err := h.profiles.UpdateMyProfile(ctx, teacherActor, dto.UpdateProfileRequest{Name: strPtr("Second"), BankName: strPtr("Other Bank")})
	require.NoError(t, err)
	assert.False(t, res.FreeEdit)
	assert.Equal(t, 1.0, res.Penalty)
	assert.Equal(t, 4.0, res.User.PerformanceScore)
	assert.Equal(t, 2, res.User.MonthlyEditCount)
	assert.Contains(t, h.publisher.types(), events.TypeLedgerAdjusted)

	logs, err := h.profiles.ListMyEditLogs(ctx, teacherActor)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	for _, l := range logs[:2] {
		assert.Equal(t, 1.0, l.Penalty)
	}
	assert.Zero(t, logs[2].Penalty)
}

func TestProfileEditFailsWhenScoreCannotCoverPenalty(t *testing.T) {
	h := newProfileHarness(t)
	month := "2026-10"
	h.editUser(teacherActor.UserID, func(u *models.User) {
		u.MonthlyEditCount = 1
		u.LastEditMonth = &month
	})
	before := h.store.user(teacherActor.UserID)

	_, err := h.profiles.UpdateMyProfile(context.Background(), teacherActor, dto.UpdateProfileRequest{Name: strPtr("Changed")})
	assert.ErrorIs(t, err, appErrors.ErrInsufficientBalance)

	after := h.store.user(teacherActor.UserID)
	assert.Equal(t, before.Name, after.Name)
	assert.Equal(t, 1, after.MonthlyEditCount)
	assert.Zero(t, after.PerformanceScore)
	assert.Empty(t, h.store.userLogs)
}

func TestProfileFirstFillIsAlwaysFree(t *testing.T) {
	h := newProfileHarness(t)
	month := "2026-10"
	h.editUser(teacherActor.UserID, func(u *models.User) {
		u.Gender = ""
		u.MonthlyEditCount = 3
		u.LastEditMonth = &month
	})

	res, err := h.profiles.UpdateMyProfile(context.Background(), teacherActor, dto.UpdateProfileRequest{Gender: strPtr("M")})
	require.NoError(t, err)
	assert.True(t, res.FreeEdit)
	assert.Equal(t, 4, res.User.MonthlyEditCount)
	assert.Zero(t, res.User.PerformanceScore)
}

func TestProfileQuotaResetsEachMonth(t *testing.T) {
	h := newProfileHarness(t)
	previous := "2026-09"
	h.editUser(teacherActor.UserID, func(u *models.User) {
		u.MonthlyEditCount = 7
		u.LastEditMonth = &previous
	})

	res, err := h.profiles.UpdateMyProfile(context.Background(), teacherActor, dto.UpdateProfileRequest{BankName: strPtr("New Bank")})
	require.NoError(t, err)
	assert.True(t, res.FreeEdit)
	assert.Equal(t, 1, res.User.MonthlyEditCount)
	assert.Equal(t, "2026-10", *res.User.LastEditMonth)
}

func TestProfileWithoutChangesIsNotCounted(t *testing.T) {
	h := newProfileHarness(t)
	current := h.store.user(teacherActor.UserID)

	res, err := h.profiles.UpdateMyProfile(context.Background(), teacherActor, dto.UpdateProfileRequest{Name: strPtr(current.Name)})
	require.NoError(t, err)
	assert.Empty(t, res.ChangedFields)
	assert.Zero(t, h.store.user(teacherActor.UserID).MonthlyEditCount)
	assert.Empty(t, h.store.userLogs)
}

func TestProfileBankAccountIsMaskedInLogs(t *testing.T) {
	h := newProfileHarness(t)
	res, err := h.profiles.UpdateMyProfile(context.Background(), teacherActor, dto.UpdateProfileRequest{BankAccount: strPtr("9999000011112222")})
	require.NoError(t, err)
	assert.Equal(t, "9999000011112222", res.User.BankAccount)

	require.Len(t, h.store.userLogs, 1)
	assert.Equal(t, "bankAccount", h.store.userLogs[0].FieldName)
	assert.Equal(t, "***", h.store.userLogs[0].OldValue)
	assert.Equal(t, "***", h.store.userLogs[0].NewValue)
}

func TestProfileRejectsInvalidPayload(t *testing.T) {
	h := newProfileHarness(t)
	_, err := h.profiles.UpdateMyProfile(context.Background(), teacherActor, dto.UpdateProfileRequest{Gender: strPtr("X")})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestProfileBlankValuesAreIgnored(t *testing.T) {
	h := newProfileHarness(t)
	before := h.store.user(teacherActor.UserID)

	res, err := h.profiles.UpdateMyProfile(context.Background(), teacherActor, dto.UpdateProfileRequest{
		Name:        strPtr("   "),
		BankAccount: strPtr(""),
	})
	require.NoError(t, err)
	assert.Empty(t, res.ChangedFields)

	after := h.store.user(teacherActor.UserID)
	assert.Equal(t, before.Name, after.Name)
	assert.Equal(t, before.BankAccount, after.BankAccount)
	assert.Zero(t, after.MonthlyEditCount)
	assert.Empty(t, h.store.userLogs)
}

func TestProfileBlankingAFieldDoesNotUnlockFreeEdits(t *testing.T) {
	h := newProfileHarness(t)
	ctx := context.Background()

	res, err := h.profiles.UpdateMyProfile(ctx, teacherActor, dto.UpdateProfileRequest{Name: strPtr("Grace Hopper"), BankAccount: strPtr("")})
	require.NoError(t, err)
	assert.True(t, res.FreeEdit)
	assert.Equal(t, []string{"name"}, res.ChangedFields)
	assert.NotEmpty(t, res.User.BankAccount)

	_, err = h.profiles.UpdateMyProfile(ctx, teacherActor, dto.UpdateProfileRequest{Name: strPtr("Grace B. Hopper")})
	assert.ErrorIs(t, err, appErrors.ErrInsufficientBalance)

	after := h.store.user(teacherActor.UserID)
	assert.Equal(t, "Grace Hopper", after.Name)
	assert.Equal(t, 1, after.MonthlyEditCount)
}

func TestProfileMonthKeyUsesUTC(t *testing.T) {
	h := newProfileHarness(t)
	jakarta := time.FixedZone("WIB", 7*60*60)
	h.profiles.clock = func() time.Time { return time.Date(2026, time.November, 1, 5, 0, 0, 0, jakarta) }
	previous := "2026-10"
	h.editUser(teacherActor.UserID, func(u *models.User) {
		u.MonthlyEditCount = 1
		u.LastEditMonth = &previous
	})

	_, err := h.profiles.UpdateMyProfile(context.Background(), teacherActor, dto.UpdateProfileRequest{BankName: strPtr("Late Bank")})
	assert.ErrorIs(t, err, appErrors.ErrInsufficientBalance)
	assert.Equal(t, "2026-10", *h.store.user(teacherActor.UserID).LastEditMonth)
}
