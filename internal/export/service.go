package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/pageharvest/pageharvest/internal/repository"
)

// resultPreviewLen caps the result text column so workbooks stay readable.
const resultPreviewLen = 500

// Service is a tiny façade over the job repository that produces XLSX bytes
// for finished-job reports.
type Service struct {
	jobs   repository.JobRepository
	logger *slog.Logger
}

func NewService(jobs repository.JobRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{jobs: jobs, logger: logger}
}

// ExportJobsXLSX returns an XLSX workbook (as bytes) listing every finished
// job: id, status, page count, timestamps and a preview of the result text.
func (s *Service) ExportJobsXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	jobs, err := s.jobs.ListFinished(ctx)
	if err != nil {
		return nil, fmt.Errorf("query finished jobs: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Jobs"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Job ID",
		"Status",
		"Pages",
		"Created At",
		"Finished At",
		"Result Preview",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, j := range jobs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, j.ID.String())
		write(2, string(j.Status))
		write(3, len(j.Pages))
		write(4, j.CreatedAt.Format("2006-01-02 15:04:05"))
		if j.FinishedAt != nil {
			write(5, j.FinishedAt.Format("2006-01-02 15:04:05"))
		} else {
			write(5, "")
		}
		preview := ""
		if j.ResultText != nil {
			preview = *j.ResultText
			if len(preview) > resultPreviewLen {
				preview = preview[:resultPreviewLen] + "…"
			}
		}
		write(6, preview)
		row++
	}

	// Drop the default sheet if it is not ours.
	if sheet != "Sheet1" {
		_ = f.DeleteSheet("Sheet1")
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render workbook: %w", err)
	}
	s.logger.Info("exported finished jobs",
		"count", len(jobs), "bytes", buf.Len(), "duration_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}
