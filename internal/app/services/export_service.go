package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models"
	"github.com/univgates1-stack/univgates-sub001/internal/app/repositories"
	"github.com/xuri/excelize/v2"
)

const (
	exportSheet    = "Applications"
	exportPageSize = 500
)

var exportHeader = []interface{}{
	"Application ID", "Student ID", "University", "Program", "Degree Level",
	"Status", "Missing Fields", "Confirmed At", "Submitted At", "Created At",
}

// ExportService renders application listings as spreadsheets for administrators
type ExportService struct {
	apps   ApplicationStore
	logger zerolog.Logger
}

// NewExportService creates a new ExportService
func NewExportService(apps ApplicationStore, logger zerolog.Logger) *ExportService {
	return &ExportService{apps: apps, logger: logger.With().Str("component", "export").Logger()}
}

// ApplicationsXLSX writes every application matching status into one sheet
func (s *ExportService) ApplicationsXLSX(ctx context.Context, status *models.ApplicationStatus) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to close workbook")
		}
	}()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("error naming sheet: %w", err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return nil, fmt.Errorf("error writing header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		lastCol, _ := excelize.ColumnNumberToName(len(exportHeader))
		_ = f.SetCellStyle(exportSheet, "A1", lastCol+"1", bold)
		_ = f.SetColWidth(exportSheet, "A", lastCol, 22)
	}

	row := 2
	filter := repositories.ApplicationFilter{Status: status, Limit: exportPageSize}
	for {
		apps, total, err := s.apps.ListAll(ctx, filter)
		if err != nil {
			return nil, err
		}
		for _, app := range apps {
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return nil, err
			}
			values := exportRow(app)
			if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
				return nil, fmt.Errorf("error writing row %d: %w", row, err)
			}
			row++
		}
		filter.Offset += uint64(len(apps))
		if len(apps) == 0 || int64(filter.Offset) >= total {
			break
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("error rendering workbook: %w", err)
	}
	s.logger.Info().Int("rows", row-2).Msg("Applications exported")
	return buf, nil
}

func exportRow(app *models.Application) []interface{} {
	var university, program, level string
	if app.Program != nil {
		university, program, level = app.Program.UniversityName, app.Program.Name, app.Program.DegreeLevel
	}
	return []interface{}{
		app.ID.String(),
		app.StudentID.String(),
		university,
		program,
		level,
		string(app.Status),
		strings.Join(app.MissingFields, ", "),
		formatTime(app.ConfirmedAt),
		formatTime(app.SubmittedAt),
		app.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
