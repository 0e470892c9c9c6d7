package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/competition-approval-api/internal/dto"
	"github.com/noah-isme/competition-approval-api/internal/models"
	appErrors "github.com/noah-isme/competition-approval-api/pkg/errors"
	"github.com/noah-isme/competition-approval-api/pkg/export"
)

type rewardRepository interface {
	RewardShares(ctx context.Context, year int) ([]models.RewardShare, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFile is a rendered report ready to be streamed.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

var rewardHeaders = []string{"Rank", "Employee ID", "Name", "Bank", "Account", "Awards", "Total"}

// RewardService totals the yearly rewards earned from approved awards.
type RewardService struct {
	repo   rewardRepository
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
}

// NewRewardService constructs the service.
func NewRewardService(repo rewardRepository, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *RewardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &RewardService{repo: repo, csv: csv, pdf: pdf, logger: logger}
}

// AnnualRewards returns per-teacher totals for awards approved in year, largest first.
func (s *RewardService) AnnualRewards(ctx context.Context, actor models.Actor, year int) ([]models.AnnualReward, error) {
	if !actor.Role.IsSchoolLevel() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "school administrator role required")
	}
	if year < 2000 || year > 2100 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year must be between 2000 and 2100")
	}
	shares, err := s.repo.RewardShares(ctx, year)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load rewards")
	}
	return aggregateRewards(shares), nil
}

// Export renders the annual rewards as CSV (default) or PDF.
func (s *RewardService) Export(ctx context.Context, actor models.Actor, query dto.RewardExportQuery) (*ExportFile, error) {
	if query.Format == "" {
		query.Format = "csv"
	}
	if query.Format != "csv" && query.Format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	rewards, err := s.AnnualRewards(ctx, actor, query.Year)
	if err != nil {
		return nil, err
	}

	dataset := rewardDataset(rewards, query.Year)
	base := fmt.Sprintf("rewards-%d", query.Year)
	var file ExportFile
	switch query.Format {
	case "pdf":
		data, err := s.pdf.Render(dataset, fmt.Sprintf("Competition Rewards %d", query.Year))
		if err != nil {
			return nil, appErrors.Internal(err, "failed to render pdf")
		}
		file = ExportFile{Filename: base + ".pdf", ContentType: "application/pdf", Data: data}
	default:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to render csv")
		}
		file = ExportFile{Filename: base + ".csv", ContentType: "text/csv", Data: data}
	}
	s.logger.Info("reward report exported",
		zap.Int("year", query.Year),
		zap.String("format", query.Format),
		zap.Int("teachers", len(rewards)),
		zap.String("actor_id", actor.UserID),
	)
	return &file, nil
}

func aggregateRewards(shares []models.RewardShare) []models.AnnualReward {
	byUser := make(map[string]*models.AnnualReward)
	order := make([]string, 0)
	for _, share := range shares {
		row, ok := byUser[share.UserID]
		if !ok {
			row = &models.AnnualReward{
				UserID:      share.UserID,
				EmployeeID:  share.EmployeeID,
				Name:        share.Name,
				BankName:    share.BankName,
				BankAccount: share.BankAccount,
			}
			byUser[share.UserID] = row
			order = append(order, share.UserID)
		}
		row.AwardCount++
		row.TotalAmount += share.Amount
	}

	out := make([]models.AnnualReward, 0, len(order))
	for _, id := range order {
		out = append(out, *byUser[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalAmount != out[j].TotalAmount {
			return out[i].TotalAmount > out[j].TotalAmount
		}
		return out[i].EmployeeID < out[j].EmployeeID
	})
	return out
}

func rewardDataset(rewards []models.AnnualReward, year int) export.Dataset {
	rows := make([]map[string]string, 0, len(rewards))
	var total float64
	awards := 0
	for i, r := range rewards {
		rows = append(rows, map[string]string{
			"Rank":        strconv.Itoa(i + 1),
			"Employee ID": r.EmployeeID,
			"Name":        r.Name,
			"Bank":        r.BankName,
			"Account":     r.BankAccount,
			"Awards":      strconv.Itoa(r.AwardCount),
			"Total":       export.Money(r.TotalAmount),
		})
		total += r.TotalAmount
		awards += r.AwardCount
	}
	return export.Dataset{
		Headers: rewardHeaders,
		Rows:    rows,
		Footer: []map[string]string{{
			"Name":   "Total",
			"Awards": strconv.Itoa(awards),
			"Total":  export.Money(total),
		}},
		Notes: []string{fmt.Sprintf("Awards approved in %d. Co-teachers receive half of the award reward.", year)},
	}
}
