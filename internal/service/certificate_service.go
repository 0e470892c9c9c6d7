package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/competition-approval-api/internal/dto"
	"github.com/noah-isme/competition-approval-api/internal/models"
	appErrors "github.com/noah-isme/competition-approval-api/pkg/errors"
	"github.com/noah-isme/competition-approval-api/pkg/export"
)

// MaxCertificateBatch caps how many certificates one batch export may hold.
const MaxCertificateBatch = 50

type certificateRepository interface {
	CertificateDetails(ctx context.Context, ids []string) ([]models.AwardCertificate, error)
}

type certificateRenderer interface {
	Render(certs []export.Certificate) ([]byte, error)
}

// CertificateService renders watermarked award certificates as PDF.
type CertificateService struct {
	repo      certificateRepository
	renderer  certificateRenderer
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewCertificateService constructs the service.
func NewCertificateService(repo certificateRepository, renderer certificateRenderer, validate *validator.Validate, logger *zap.Logger) *CertificateService {
	if renderer == nil {
		renderer = export.NewCertificateRenderer()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CertificateService{repo: repo, renderer: renderer, validator: validate, logger: logger, now: utcNow}
}

// Certificate renders one award's certificate. Participants, their department
// admin and school-level admins may export it.
func (s *CertificateService) Certificate(ctx context.Context, actor models.Actor, id string) (*ExportFile, error) {
	rows, err := s.repo.CertificateDetails(ctx, []string{id})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load award")
	}
	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "award not found")
	}
	row := rows[0]
	participant := row.TeacherID == actor.UserID || (row.CoTeacherID != nil && *row.CoTeacherID == actor.UserID)
	if !canView(actor, participant, row.DepartmentID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "award is outside your scope")
	}

	data, err := s.renderer.Render([]export.Certificate{toCertificate(row)})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render certificate")
	}
	s.logger.Info("award certificate exported", zap.String("award_id", row.AwardID), zap.String("actor_id", actor.UserID))
	return &ExportFile{
		Filename:    "award_" + safeFilename(row.CertificateNo) + ".pdf",
		ContentType: "application/pdf",
		Data:        data,
	}, nil
}

// Batch renders several certificates into one PDF for administrators.
// Department admins only receive awards from their own department; ids outside
// the caller's scope are skipped.
func (s *CertificateService) Batch(ctx context.Context, actor models.Actor, req dto.CertificateBatchRequest) (*ExportFile, error) {
	dept, err := scopeDepartment(actor, "")
	if err != nil {
		return nil, err
	}
	if err := validate(s.validator, req, "invalid certificate batch"); err != nil {
		return nil, err
	}
	ids := dedupe(req.AwardIDs)
	if len(ids) > MaxCertificateBatch {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("at most %d certificates per export", MaxCertificateBatch))
	}

	rows, err := s.repo.CertificateDetails(ctx, ids)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load awards")
	}
	certs := make([]export.Certificate, 0, len(rows))
	for _, row := range rows {
		if dept != "" && (row.DepartmentID == nil || *row.DepartmentID != dept) {
			continue
		}
		certs = append(certs, toCertificate(row))
	}
	if len(certs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no matching awards found")
	}

	data, err := s.renderer.Render(certs)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render certificates")
	}
	s.logger.Info("award certificates exported",
		zap.Int("requested", len(ids)),
		zap.Int("exported", len(certs)),
		zap.String("actor_id", actor.UserID),
	)
	return &ExportFile{
		Filename:    "awards_batch_" + s.now().Format("20060102-150405") + ".pdf",
		ContentType: "application/pdf",
		Data:        data,
	}, nil
}

func toCertificate(row models.AwardCertificate) export.Certificate {
	cert := export.Certificate{
		Number:      row.CertificateNo,
		Competition: row.CompetitionName,
		Year:        row.CompetitionYear,
		AwardLevel:  string(row.AwardLevel),
		Status:      string(row.Status),
		Teacher:     row.TeacherName,
		EmployeeID:  row.TeacherEmployeeID,
	}
	if row.ApprovedAt != nil {
		cert.IssuedOn = row.ApprovedAt.Format("2006-01-02")
	}
	if row.CoTeacherName != nil {
		cert.CoTeacher = *row.CoTeacherName
	}
	if row.DepartmentName != nil {
		cert.Department = *row.DepartmentName
	}
	if row.Students != "" {
		cert.Students = strings.Split(row.Students, ", ")
	}
	return cert
}

// safeFilename keeps ASCII letters, digits, dash and underscore.
func safeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
