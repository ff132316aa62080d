package services

import (
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/victorcreed/student-power-frontend/internal/models"
)

const applicationsSheet = "Applications"

var applicationColumns = []string{"ID", "Student", "Email", "School", "Status", "Applied At"}

// ExportService builds spreadsheet exports.
type ExportService struct {
	logger *slog.Logger
}

func NewExportService(logger *slog.Logger) *ExportService {
	return &ExportService{logger: logger}
}

// Applications writes one row per application. The job title, when known,
// goes above the header row.
func (e *ExportService) Applications(job *models.JobPosting, apps []models.Application) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			e.logger.Warn("Failed to close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", applicationsSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	row := 1
	if job != nil && job.Title != "" {
		if err := f.SetCellValue(applicationsSheet, "A1", job.Title); err != nil {
			return nil, err
		}
		row = 3
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	for i, title := range applicationColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		if err := f.SetCellValue(applicationsSheet, cell, title); err != nil {
			return nil, err
		}
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(applicationColumns), row)
	if err := f.SetCellStyle(applicationsSheet, first, last, header); err != nil {
		return nil, err
	}

	for _, a := range apps {
		row++
		values := []interface{}{a.ID.String(), "", "", "", string(a.DisplayStatus()), ""}
		if a.Student != nil {
			values[1], values[2], values[3] = a.Student.Name, a.Student.Email, a.Student.School
		}
		if !a.CreatedAt.IsZero() {
			values[5] = a.CreatedAt.Format("2006-01-02 15:04")
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(applicationsSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", row, err)
		}
	}

	if err := f.SetColWidth(applicationsSheet, "B", "D", 28); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
