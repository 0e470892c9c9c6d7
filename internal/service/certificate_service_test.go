package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/competition-approval-api/internal/dto"
	"github.com/noah-isme/competition-approval-api/internal/models"
	appErrors "github.com/noah-isme/competition-approval-api/pkg/errors"
	"github.com/noah-isme/competition-approval-api/pkg/export"
)

type stubCertificateRepo struct {
	rows  map[string]models.AwardCertificate
	asked []string
}

func (s *stubCertificateRepo) CertificateDetails(_ context.Context, ids []string) ([]models.AwardCertificate, error) {
	s.asked = ids
	out := []models.AwardCertificate{}
	for _, id := range ids {
		if row, ok := s.rows[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

type captureRenderer struct {
	certs []export.Certificate
}

func (c *captureRenderer) Render(certs []export.Certificate) ([]byte, error) {
	c.certs = certs
	return []byte("%PDF-1.3"), nil
}

func certificateFixture() *stubCertificateRepo {
	approved := time.Date(2026, time.May, 2, 8, 0, 0, 0, time.UTC)
	return &stubCertificateRepo{rows: map[string]models.AwardCertificate{
		"w-math": {
			AwardID: "w-math", CertificateNo: "MO/2026 #7", AwardLevel: models.AwardFirstPrize, Status: models.StatusApproved, ApprovedAt: &approved,
			CompetitionName: "Regional Maths Olympiad", CompetitionYear: 2026,
			TeacherID: teacherActor.UserID, TeacherName: "Ana", TeacherEmployeeID: "E-1",
			CoTeacherID: strPtr(coTeacherActor.UserID), CoTeacherName: strPtr("Budi"),
			DepartmentID: strPtr(deptMath), DepartmentName: strPtr("Mathematics"), Students: "Sari, Dewi",
		},
		"w-art": {
			AwardID: "w-art", CertificateNo: "ART-1", AwardLevel: models.AwardExcellence, Status: models.StatusPendingSchool,
			CompetitionName: "Poster Contest", CompetitionYear: 2026,
			TeacherID: artTeacherActor.UserID, TeacherName: "Citra", DepartmentID: strPtr(deptArt),
		},
	}}
}

func TestCertificateExportForParticipant(t *testing.T) {
	renderer := &captureRenderer{}
	svc := NewCertificateService(certificateFixture(), renderer, nil, nil)

	file, err := svc.Certificate(context.Background(), coTeacherActor, "w-math")
	require.NoError(t, err)
	assert.Equal(t, "award_MO_2026__7.pdf", file.Filename)
	assert.Equal(t, "application/pdf", file.ContentType)
	require.Len(t, renderer.certs, 1)
	cert := renderer.certs[0]
	assert.Equal(t, "MO/2026 #7", cert.Number)
	assert.Equal(t, "Budi", cert.CoTeacher)
	assert.Equal(t, "Mathematics", cert.Department)
	assert.Equal(t, []string{"Sari", "Dewi"}, cert.Students)
	assert.Equal(t, "2026-05-02", cert.IssuedOn)
}

func TestCertificateExportScope(t *testing.T) {
	svc := NewCertificateService(certificateFixture(), &captureRenderer{}, nil, nil)
	ctx := context.Background()

	_, err := svc.Certificate(ctx, artTeacherActor, "w-math")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = svc.Certificate(ctx, artAdminActor, "w-math")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = svc.Certificate(ctx, deptAdminActor, "w-math")
	assert.NoError(t, err)
	_, err = svc.Certificate(ctx, schoolAdminActor, "w-art")
	assert.NoError(t, err)
	_, err = svc.Certificate(ctx, schoolAdminActor, "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestCertificateBatchKeepsDepartmentAdminsInScope(t *testing.T) {
	repo := certificateFixture()
	renderer := &captureRenderer{}
	svc := NewCertificateService(repo, renderer, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, time.October, 16, 9, 30, 0, 0, time.UTC) }
	ctx := context.Background()

	file, err := svc.Batch(ctx, deptAdminActor, dto.CertificateBatchRequest{AwardIDs: []string{"w-math", "w-art", "w-math"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"w-math", "w-art"}, repo.asked)
	require.Len(t, renderer.certs, 1)
	assert.Equal(t, "MO/2026 #7", renderer.certs[0].Number)
	assert.Equal(t, "awards_batch_20261016-093000.pdf", file.Filename)

	_, err = svc.Batch(ctx, artAdminActor, dto.CertificateBatchRequest{AwardIDs: []string{"w-math"}})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Batch(ctx, schoolAdminActor, dto.CertificateBatchRequest{AwardIDs: []string{"w-math", "w-art"}})
	require.NoError(t, err)
	assert.Len(t, renderer.certs, 2)
}

func TestCertificateBatchRejectsTeachersAndOversizedBatches(t *testing.T) {
	svc := NewCertificateService(certificateFixture(), &captureRenderer{}, nil, nil)
	ctx := context.Background()

	_, err := svc.Batch(ctx, teacherActor, dto.CertificateBatchRequest{AwardIDs: []string{"w-math"}})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Batch(ctx, schoolAdminActor, dto.CertificateBatchRequest{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	ids := make([]string, MaxCertificateBatch+1)
	for i := range ids {
		ids[i] = string(rune('a'+i%26)) + string(rune('a'+i/26))
	}
	_, err = svc.Batch(ctx, schoolAdminActor, dto.CertificateBatchRequest{AwardIDs: ids})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestCertificateExportRendersRealPDF(t *testing.T) {
	svc := NewCertificateService(certificateFixture(), nil, nil, nil)
	file, err := svc.Certificate(context.Background(), teacherActor, "w-math")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF")))
}
