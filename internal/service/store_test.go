package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/noah-isme/competition-approval-api/internal/models"
	"github.com/noah-isme/competition-approval-api/pkg/events"
)

// memStore is an in-memory stand-in for the relational store. memTx
// serializes transactions and restores a snapshot when fn fails, so services
// see the same all-or-nothing behaviour they get from Postgres.
type memStore struct {
	mu   sync.Mutex
	txMu sync.Mutex
	seq  int

	users        map[string]models.User
	competitions map[string]models.Competition
	students     map[string]models.Student
	apps         map[string]models.Application
	rosters      map[string][]string
	awards       map[string]models.Award
	appRecords   []models.ApprovalRecord
	awardRecords []models.ApprovalRecord
	userLogs     []models.UserInfoEditLog
	compLogs     []models.CompetitionEditLog
	audits       []models.AuditLog
	perf         map[models.RuleKey]models.PerformanceRule
	reward       map[models.RuleKey]models.RewardRule

	// beforeCAS runs ahead of every status compare-and-swap.
	beforeCAS func()
}

type storeData struct {
	seq          int
	users        map[string]models.User
	competitions map[string]models.Competition
	students     map[string]models.Student
	apps         map[string]models.Application
	rosters      map[string][]string
	awards       map[string]models.Award
	appRecords   []models.ApprovalRecord
	awardRecords []models.ApprovalRecord
	userLogs     []models.UserInfoEditLog
	compLogs     []models.CompetitionEditLog
	audits       []models.AuditLog
	perf         map[models.RuleKey]models.PerformanceRule
	reward       map[models.RuleKey]models.RewardRule
}

func newMemStore() *memStore {
	return &memStore{
		users:        map[string]models.User{},
		competitions: map[string]models.Competition{},
		students:     map[string]models.Student{},
		apps:         map[string]models.Application{},
		rosters:      map[string][]string{},
		awards:       map[string]models.Award{},
		perf:         map[models.RuleKey]models.PerformanceRule{},
		reward:       map[models.RuleKey]models.RewardRule{},
	}
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (s *memStore) snapshot() storeData {
	s.mu.Lock()
	defer s.mu.Unlock()
	rosters := make(map[string][]string, len(s.rosters))
	for k, v := range s.rosters {
		rosters[k] = append([]string(nil), v...)
	}
	return storeData{
		seq:          s.seq,
		users:        copyMap(s.users),
		competitions: copyMap(s.competitions),
		students:     copyMap(s.students),
		apps:         copyMap(s.apps),
		rosters:      rosters,
		awards:       copyMap(s.awards),
		appRecords:   append([]models.ApprovalRecord(nil), s.appRecords...),
		awardRecords: append([]models.ApprovalRecord(nil), s.awardRecords...),
		userLogs:     append([]models.UserInfoEditLog(nil), s.userLogs...),
		compLogs:     append([]models.CompetitionEditLog(nil), s.compLogs...),
		audits:       append([]models.AuditLog(nil), s.audits...),
		perf:         copyMap(s.perf),
		reward:       copyMap(s.reward),
	}
}

func (s *memStore) restore(d storeData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = d.seq
	s.users, s.competitions, s.students = d.users, d.competitions, d.students
	s.apps, s.rosters, s.awards = d.apps, d.rosters, d.awards
	s.appRecords, s.awardRecords = d.appRecords, d.awardRecords
	s.userLogs, s.compLogs, s.audits = d.userLogs, d.compLogs, d.audits
	s.perf, s.reward = d.perf, d.reward
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *memStore) user(id string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id]
}

func (s *memStore) addUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Active = true
	s.users[u.ID] = u
}

func (s *memStore) addCompetition(c models.Competition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.competitions[c.ID] = c
}

func (s *memStore) addStudents(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.students[id] = models.Student{ID: id, StudentNo: "NO-" + id, Name: "Student " + id}
	}
}

func (s *memStore) setRule(level models.CompetitionLevel, award models.AwardLevel, score, workload, reward float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := models.RuleKey{CompetitionLevel: level, AwardLevel: award}
	s.perf[key] = models.PerformanceRule{CompetitionLevel: level, AwardLevel: award, Score: score, Workload: workload}
	s.reward[key] = models.RewardRule{CompetitionLevel: level, AwardLevel: award, Amount: reward}
}

func uniqueViolation(constraint string) error {
	return &pq.Error{Code: pqUniqueViolation, Constraint: constraint}
}

type memTx struct{ store *memStore }

func (t memTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.store.txMu.Lock()
	defer t.store.txMu.Unlock()
	snap := t.store.snapshot()
	if err := fn(ctx); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

// ---- users ----

type memUsers struct{ *memStore }

func (s memUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}

func (s memUsers) FindByEmployeeID(_ context.Context, employeeID string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.EmployeeID == employeeID {
			u := u
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s memUsers) AdjustPerformanceScore(_ context.Context, id string, delta float64, floorAtZero bool, at time.Time) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || (floorAtZero && u.PerformanceScore+delta < 0) {
		return 0, sql.ErrNoRows
	}
	u.PerformanceScore += delta
	u.UpdatedAt = at
	s.users[id] = u
	return u.PerformanceScore, nil
}

func (s memUsers) UpdateProfile(_ context.Context, id string, update models.ProfileUpdate, expectCount int, expectMonth *string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || u.MonthlyEditCount != expectCount || optionalString(u.LastEditMonth) != optionalString(expectMonth) {
		return sql.ErrNoRows
	}
	u.Name, u.Gender, u.BankAccount, u.BankName = update.Name, update.Gender, update.BankAccount, update.BankName
	u.MonthlyEditCount = update.MonthlyEditCount
	month := update.LastEditMonth
	u.LastEditMonth = &month
	u.UpdatedAt = at
	s.users[id] = u
	return nil
}

func (s memUsers) RankByDepartment(_ context.Context, departmentID string, page, pageSize int) ([]models.RankingEntry, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []models.RankingEntry
	for _, u := range s.users {
		if u.Role == models.RoleTeacher && optionalString(u.DepartmentID) == departmentID {
			all = append(all, models.RankingEntry{UserID: u.ID, EmployeeID: u.EmployeeID, Name: u.Name, PerformanceScore: u.PerformanceScore})
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].PerformanceScore > all[j].PerformanceScore })
	for i := range all {
		all[i].Rank = i + 1
	}
	return window(all, page, pageSize), len(all), nil
}

func (s memUsers) List(_ context.Context, filter models.UserFilter) ([]models.User, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, u := range s.users {
		if filter.DepartmentID != nil && optionalString(u.DepartmentID) != *filter.DepartmentID {
			continue
		}
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(u.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return window(out, filter.Page, filter.PageSize), len(out), nil
}

func (s memUsers) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.EmployeeID == user.EmployeeID {
			return uniqueViolation("users_employee_id_key")
		}
	}
	if user.ID == "" {
		user.ID = s.nextID("user")
	}
	s.users[user.ID] = *user
	return nil
}

func (s memUsers) Update(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = *user
	return nil
}

func (s memUsers) UpdateLastLogin(_ context.Context, id string, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[id]
	u.LastLogin = &ts
	s.users[id] = u
	return nil
}

func (s memUsers) UpdatePassword(_ context.Context, id, passwordHash string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[id]
	u.PasswordHash = passwordHash
	u.UpdatedAt = updatedAt
	s.users[id] = u
	return nil
}

func (s memUsers) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits = append(s.audits, *log)
	return nil
}

// ---- competitions and students ----

type memCompetitions struct{ *memStore }

func (s memCompetitions) FindByID(_ context.Context, id string) (*models.Competition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.competitions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (s memCompetitions) List(_ context.Context, filter models.CompetitionFilter) ([]models.Competition, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Competition
	for _, c := range s.competitions {
		if filter.Level != nil && c.Level != *filter.Level {
			continue
		}
		if filter.Year != nil && c.Year != *filter.Year {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return window(out, filter.Page, filter.PageSize), len(out), nil
}

func (s memCompetitions) Create(_ context.Context, comp *models.Competition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	comp.ID = s.nextID("comp")
	s.competitions[comp.ID] = *comp
	return nil
}

func (s memCompetitions) Update(_ context.Context, comp *models.Competition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.competitions[comp.ID] = *comp
	return nil
}

func (s memCompetitions) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.competitions[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.competitions, id)
	return nil
}

func (s memCompetitions) HasApplications(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.apps {
		if a.CompetitionID == id {
			return true, nil
		}
	}
	return false, nil
}

type memStudents struct{ *memStore }

func (s memStudents) ExistingIDs(_ context.Context, ids []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, id := range ids {
		if _, ok := s.students[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// ---- applications ----

type memApps struct{ *memStore }

func (s memApps) joined(a models.Application) models.Application {
	c := s.competitions[a.CompetitionID]
	a.CompetitionName, a.CompetitionLevel = c.Name, c.Level
	a.TeacherName = s.users[a.TeacherID].Name
	return a
}

func (s memApps) FindByID(_ context.Context, id string) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.apps[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	a = s.joined(a)
	return &a, nil
}

func (s memApps) existsActive(teacherID, competitionID, excludeID string) bool {
	for _, a := range s.apps {
		if a.ID != excludeID && a.TeacherID == teacherID && a.CompetitionID == competitionID && a.Status != models.StatusRejected {
			return true
		}
	}
	return false
}

func (s memApps) ExistsActive(_ context.Context, teacherID, competitionID, excludeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.existsActive(teacherID, competitionID, excludeID), nil
}

func (s memApps) Create(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existsActive(app.TeacherID, app.CompetitionID, "") {
		return uniqueViolation("applications_active_key")
	}
	app.ID = s.nextID("app")
	app.UpdatedAt = app.CreatedAt
	s.apps[app.ID] = *app
	return nil
}

func (s memApps) UpdateCoTeacher(_ context.Context, id string, coTeacherID *string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.apps[id]
	a.CoTeacherID, a.UpdatedAt = coTeacherID, at
	s.apps[id] = a
	return nil
}

func (s memApps) ReplaceStudents(_ context.Context, applicationID string, studentIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rosters[applicationID] = append([]string(nil), studentIDs...)
	return nil
}

func (s memApps) ListStudents(_ context.Context, applicationID string) ([]models.ApplicationStudent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ApplicationStudent, 0, len(s.rosters[applicationID]))
	for i, id := range s.rosters[applicationID] {
		st := s.students[id]
		out = append(out, models.ApplicationStudent{ApplicationID: applicationID, StudentID: id, Position: i + 1, StudentNo: st.StudentNo, Name: st.Name})
	}
	return out, nil
}

func (s memApps) CountStudents(_ context.Context, applicationID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rosters[applicationID]), nil
}

func (s memApps) TransitionStatus(_ context.Context, id string, from, to models.ApprovalStatus, at time.Time, submittedAt *time.Time) error {
	if s.beforeCAS != nil {
		s.beforeCAS()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.apps[id]
	if !ok || a.Status != from {
		return sql.ErrNoRows
	}
	a.Status, a.UpdatedAt = to, at
	if submittedAt != nil {
		a.SubmittedAt = submittedAt
	}
	s.apps[id] = a
	return nil
}

func (s memApps) DeleteDraft(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.apps[id]
	if !ok || a.Status != models.StatusDraft {
		return sql.ErrNoRows
	}
	delete(s.apps, id)
	delete(s.rosters, id)
	return nil
}

func (s memApps) CreateApprovalRecord(_ context.Context, rec *models.ApprovalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = s.nextID("rec")
	s.appRecords = append(s.appRecords, *rec)
	return nil
}

func (s memApps) ListApprovalRecords(_ context.Context, applicationID string) ([]models.ApprovalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return recordsFor(s.appRecords, applicationID), nil
}

func (s memApps) List(_ context.Context, filter models.ApplicationFilter) ([]models.Application, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Application
	for _, a := range s.apps {
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		if filter.DepartmentID != "" && optionalString(a.DepartmentID) != filter.DepartmentID {
			continue
		}
		if filter.ParticipantID != "" && !a.IsParticipant(filter.ParticipantID) {
			continue
		}
		if filter.TeacherID != "" && a.TeacherID != filter.TeacherID {
			continue
		}
		if filter.CompetitionID != "" && a.CompetitionID != filter.CompetitionID {
			continue
		}
		out = append(out, s.joined(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return window(out, filter.Page, filter.PageSize), len(out), nil
}

// ---- awards ----

type memAwards struct{ *memStore }

func (s memAwards) joined(w models.Award) models.Award {
	a := s.apps[w.ApplicationID]
	c := s.competitions[a.CompetitionID]
	w.TeacherID, w.CoTeacherID, w.DepartmentID = a.TeacherID, a.CoTeacherID, a.DepartmentID
	w.CompetitionName, w.CompetitionLevel = c.Name, c.Level
	w.TeacherName = s.users[a.TeacherID].Name
	return w
}

func (s memAwards) FindByID(_ context.Context, id string) (*models.Award, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.awards[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	w = s.joined(w)
	return &w, nil
}

func (s memAwards) ExistsForApplication(_ context.Context, applicationID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.awards {
		if w.ApplicationID == applicationID {
			return true, nil
		}
	}
	return false, nil
}

func (s memAwards) ExistsCertificate(_ context.Context, certificateNo string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.awards {
		if w.CertificateNo == certificateNo {
			return true, nil
		}
	}
	return false, nil
}

func (s memAwards) Create(_ context.Context, award *models.Award) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.awards {
		if w.ApplicationID == award.ApplicationID {
			return uniqueViolation("awards_application_id_key")
		}
		if w.CertificateNo == award.CertificateNo {
			return uniqueViolation("awards_certificate_no_key")
		}
	}
	award.ID = s.nextID("award")
	award.UpdatedAt = award.CreatedAt
	s.awards[award.ID] = *award
	return nil
}

func (s memAwards) TransitionStatus(_ context.Context, id string, from, to models.ApprovalStatus, at time.Time, approvedAt *time.Time) error {
	if s.beforeCAS != nil {
		s.beforeCAS()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.awards[id]
	if !ok || w.Status != from {
		return sql.ErrNoRows
	}
	w.Status, w.UpdatedAt = to, at
	if approvedAt != nil {
		w.ApprovedAt = approvedAt
	}
	s.awards[id] = w
	return nil
}

func (s memAwards) CreateApprovalRecord(_ context.Context, rec *models.ApprovalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = s.nextID("rec")
	s.awardRecords = append(s.awardRecords, *rec)
	return nil
}

func (s memAwards) ListApprovalRecords(_ context.Context, awardID string) ([]models.ApprovalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return recordsFor(s.awardRecords, awardID), nil
}

func (s memAwards) List(_ context.Context, filter models.AwardFilter) ([]models.Award, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Award
	for _, w := range s.awards {
		w = s.joined(w)
		if filter.Status != nil && w.Status != *filter.Status {
			continue
		}
		if filter.DepartmentID != "" && optionalString(w.DepartmentID) != filter.DepartmentID {
			continue
		}
		if filter.ParticipantID != "" && w.TeacherID != filter.ParticipantID && optionalString(w.CoTeacherID) != filter.ParticipantID {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return window(out, filter.Page, filter.PageSize), len(out), nil
}

func (s memAwards) LatestApproved(_ context.Context, limit int) ([]models.Award, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Award
	for _, w := range s.awards {
		if w.Status == models.StatusApproved {
			out = append(out, s.joined(w))
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---- rules ----

type memRules struct{ *memStore }

func (s memRules) ListPerformance(context.Context) ([]models.PerformanceRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.PerformanceRule, 0, len(s.perf))
	for _, r := range s.perf {
		out = append(out, r)
	}
	return out, nil
}

func (s memRules) ListReward(context.Context) ([]models.RewardRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.RewardRule, 0, len(s.reward))
	for _, r := range s.reward {
		out = append(out, r)
	}
	return out, nil
}

func (s memRules) FindPerformance(_ context.Context, key models.RuleKey) (*models.PerformanceRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.perf[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &r, nil
}

func (s memRules) FindReward(_ context.Context, key models.RuleKey) (*models.RewardRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reward[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &r, nil
}

func (s memRules) UpsertPerformance(_ context.Context, rules []models.PerformanceRule, onlyMissing bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rules {
		if _, ok := s.perf[r.Key()]; ok && onlyMissing {
			continue
		}
		s.perf[r.Key()] = r
	}
	return nil
}

func (s memRules) UpsertReward(_ context.Context, rules []models.RewardRule, onlyMissing bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rules {
		if _, ok := s.reward[r.Key()]; ok && onlyMissing {
			continue
		}
		s.reward[r.Key()] = r
	}
	return nil
}

// ---- edit logs ----

type memLogs struct{ *memStore }

func (s memLogs) CreateUserInfoLogs(_ context.Context, logs []models.UserInfoEditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range logs {
		l.ID = s.nextID("ulog")
		s.userLogs = append(s.userLogs, l)
	}
	return nil
}

func (s memLogs) ListUserInfoLogs(_ context.Context, userID string, limit int) ([]models.UserInfoEditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.UserInfoEditLog
	for i := len(s.userLogs) - 1; i >= 0 && len(out) < limit; i-- {
		if s.userLogs[i].UserID == userID {
			out = append(out, s.userLogs[i])
		}
	}
	return out, nil
}

func (s memLogs) CreateCompetitionLogs(_ context.Context, logs []models.CompetitionEditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range logs {
		l.ID = s.nextID("clog")
		s.compLogs = append(s.compLogs, l)
	}
	return nil
}

func (s memLogs) ListCompetitionLogs(_ context.Context, competitionID string) ([]models.CompetitionEditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CompetitionEditLog
	for _, l := range s.compLogs {
		if l.CompetitionID == competitionID {
			out = append(out, l)
		}
	}
	return out, nil
}

// ---- helpers ----

func recordsFor(all []models.ApprovalRecord, subjectID string) []models.ApprovalRecord {
	var out []models.ApprovalRecord
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].SubjectID == subjectID {
			out = append(out, all[i])
		}
	}
	return out
}

func window[T any](items []T, page, pageSize int) []T {
	offset := models.Offset(page, pageSize)
	_, size := models.NormalizePage(page, pageSize)
	if offset >= len(items) {
		return []T{}
	}
	end := offset + size
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturePublisher) Publish(_ context.Context, evts ...events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evts...)
	return nil
}

func (p *capturePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func (s memStudents) List(_ context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Student
	for _, st := range s.students {
		if filter.Search != "" && !strings.Contains(strings.ToLower(st.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return window(out, filter.Page, filter.PageSize), len(out), nil
}

func (s memStudents) FindByID(_ context.Context, id string) (*models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &st, nil
}

func (s memStudents) ExistsByStudentNo(_ context.Context, studentNo string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.students {
		if st.StudentNo == studentNo {
			return true, nil
		}
	}
	return false, nil
}

func (s memStudents) Create(_ context.Context, student *models.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	student.ID = s.nextID("student")
	s.students[student.ID] = *student
	return nil
}
