package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/competition-approval-api/internal/dto"
	"github.com/noah-isme/competition-approval-api/internal/models"
)

const (
	deptMath = "dept-math"
	deptArt  = "dept-art"
)

var (
	teacherActor     = models.Actor{UserID: "u-teacher", Role: models.RoleTeacher, DepartmentID: strPtr(deptMath)}
	coTeacherActor   = models.Actor{UserID: "u-co", Role: models.RoleTeacher, DepartmentID: strPtr(deptMath)}
	artTeacherActor  = models.Actor{UserID: "u-art", Role: models.RoleTeacher, DepartmentID: strPtr(deptArt)}
	deptAdminActor   = models.Actor{UserID: "u-dept", Role: models.RoleDepartmentAdmin, DepartmentID: strPtr(deptMath)}
	artAdminActor    = models.Actor{UserID: "u-dept-art", Role: models.RoleDepartmentAdmin, DepartmentID: strPtr(deptArt)}
	schoolAdminActor = models.Actor{UserID: "u-school", Role: models.RoleSchoolAdmin}
	superAdminActor  = models.Actor{UserID: "u-super", Role: models.RoleSuperAdmin}
)

type harness struct {
	store        *memStore
	metrics      *MetricsService
	publisher    *capturePublisher
	ledger       *LedgerService
	rules        *RuleService
	apps         *ApplicationService
	awards       *AwardService
	profiles     *ProfileService
	competitions *CompetitionService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := newMemStore()
	for _, a := range []models.Actor{teacherActor, coTeacherActor, artTeacherActor, deptAdminActor, artAdminActor, schoolAdminActor, superAdminActor} {
		store.addUser(models.User{
			ID:           a.UserID,
			EmployeeID:   "E-" + a.UserID,
			Name:         "Name " + a.UserID,
			Gender:       "F",
			BankAccount:  "6222" + a.UserID,
			BankName:     "Bank",
			Role:         a.Role,
			DepartmentID: a.DepartmentID,
		})
	}
	store.addCompetition(models.Competition{ID: "comp-b", Name: "Regional Maths Olympiad", Level: models.LevelB, Region: models.RegionProvincial, Year: 2026})
	store.addCompetition(models.Competition{ID: "comp-a", Name: "National Physics Cup", Level: models.LevelA, Region: models.RegionNational, Year: 2026})
	store.addStudents("s1", "s2", "s3")
	store.setRule(models.LevelB, models.AwardFirstPrize, 15, 30, 3000)
	store.setRule(models.LevelA, models.AwardFirstPrize, 20, 40, 5000)

	h := &harness{store: store, metrics: NewMetricsService(), publisher: &capturePublisher{}}
	tx := memTx{store: store}
	h.ledger = NewLedgerService(memUsers{store}, h.metrics, nil)
	h.rules = NewRuleService(memRules{store}, tx, nil, 0, h.publisher, nil, nil)
	h.apps = NewApplicationService(memApps{store}, memCompetitions{store}, memStudents{store}, memUsers{store}, tx, h.metrics, h.publisher, nil, nil)
	h.awards = NewAwardService(memAwards{store}, memApps{store}, h.rules, h.ledger, tx, nil, h.metrics, h.publisher, nil, nil)
	h.profiles = NewProfileService(memUsers{store}, memLogs{store}, h.ledger, tx, ProfilePolicy{FreeEdits: 1, Penalty: 1}, h.publisher, nil, nil)
	h.competitions = NewCompetitionService(memCompetitions{store}, memLogs{store}, h.ledger, tx, 2, h.publisher, nil, nil)
	return h
}

func (h *harness) draft(t *testing.T, actor models.Actor, competitionID string, coTeacherID *string) *models.Application {
	t.Helper()
	app, err := h.apps.Create(context.Background(), actor, dto.CreateApplicationRequest{
		CompetitionID: competitionID,
		CoTeacherID:   coTeacherID,
		StudentIDs:    []string{"s1", "s2"},
	})
	require.NoError(t, err)
	return app
}

func (h *harness) decideApp(t *testing.T, actor models.Actor, id string, action models.ApprovalAction) *models.Application {
	t.Helper()
	app, err := h.apps.Decide(context.Background(), actor, id, dto.ApprovalDecisionRequest{Action: action})
	require.NoError(t, err)
	return app
}

// approvedApplication runs an application through both approval stages.
func (h *harness) approvedApplication(t *testing.T, competitionID string, coTeacherID *string) *models.Application {
	t.Helper()
	app := h.draft(t, teacherActor, competitionID, coTeacherID)
	_, err := h.apps.Submit(context.Background(), teacherActor, app.ID)
	require.NoError(t, err)
	h.decideApp(t, deptAdminActor, app.ID, models.ActionApprove)
	return h.decideApp(t, schoolAdminActor, app.ID, models.ActionApprove)
}

func (h *harness) fileAward(t *testing.T, applicationID, certificateNo string) *models.Award {
	t.Helper()
	award, err := h.awards.Create(context.Background(), teacherActor, dto.CreateAwardRequest{
		ApplicationID: applicationID,
		AwardLevel:    string(models.AwardFirstPrize),
		CertificateNo: certificateNo,
	})
	require.NoError(t, err)
	return award
}

func (h *harness) decideAward(t *testing.T, actor models.Actor, id string, action models.ApprovalAction) *models.Award {
	t.Helper()
	award, err := h.awards.Decide(context.Background(), actor, id, dto.ApprovalDecisionRequest{Action: action})
	require.NoError(t, err)
	return award
}

func (h *harness) activeApplications(teacherID, competitionID string) int {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	n := 0
	for _, a := range h.store.apps {
		if a.TeacherID == teacherID && a.CompetitionID == competitionID && a.Status != models.StatusRejected {
			n++
		}
	}
	return n
}
