package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/training-workflow-service/internal/models"
	"github.com/SAP-F-2025/training-workflow-service/internal/repositories"
)

var ErrExportGenerateFail = errors.New("failed to generate export workbook")

const (
	uidSheet     = "UIDs"
	studentSheet = "Students"
)

type exportService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewExportService(repo repositories.Repository, logger *slog.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ExportUids writes every UID and student as an admin report.
func (s *exportService) ExportUids(ctx context.Context, actor models.Actor, w io.Writer) error {
	if actor.Role != models.RoleAdmin {
		return forbiddenf("only admins export UIDs")
	}

	uids, err := s.repo.Uid().List(ctx, repositories.UidFilters{})
	if err != nil {
		return fmt.Errorf("failed to list uids: %w", err)
	}
	students, err := s.repo.Student().List(ctx, repositories.StudentFilters{})
	if err != nil {
		return fmt.Errorf("failed to list students: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(uidSheet)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExportGenerateFail, err)
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")
	if _, err := f.NewSheet(studentSheet); err != nil {
		return fmt.Errorf("%w: %w", ErrExportGenerateFail, err)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	uidRows := make([][]interface{}, 0, len(uids))
	for _, u := range uids {
		uidRows = append(uidRows, []interface{}{
			u.UID,
			string(u.Status),
			u.Assessor.Name,
			u.Assessor.Contact,
			deref(u.AssignedAssessorID),
			deref(u.AssignedModeratorID),
			u.StudentCount,
			u.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeSheet(f, uidSheet, headerStyle,
		[]string{"UID", "Status", "Assessor", "Assessor Contact", "Assigned Assessor", "Assigned Moderator", "Students", "Created At"},
		uidRows)

	studentRows := make([][]interface{}, 0, len(students))
	for _, st := range students {
		reviewed := ""
		if st.ReviewedAt != nil {
			reviewed = st.ReviewedAt.UTC().Format(time.RFC3339)
		}
		studentRows = append(studentRows, []interface{}{
			st.ID,
			st.UID,
			st.LearnerName,
			st.CompanyName,
			string(st.Status),
			st.CreatedAt.UTC().Format(time.RFC3339),
			reviewed,
		})
	}
	writeSheet(f, studentSheet, headerStyle,
		[]string{"Student ID", "UID", "Learner", "Company", "Status", "Submitted At", "Reviewed At"},
		studentRows)

	if err := f.Write(w); err != nil {
		s.logger.Error("Failed to write export workbook", "error", err)
		return fmt.Errorf("%w: %w", ErrExportGenerateFail, err)
	}

	s.logger.Info("UIDs exported", "actor_id", actor.ID, "uids", len(uids), "students", len(students))
	return nil
}

func writeSheet(f *excelize.File, sheet string, headerStyle int, header []string, rows [][]interface{}) {
	for i, h := range header {
		col := colName(i)
		f.SetCellValue(sheet, cell(col, 1), h)
		f.SetColWidth(sheet, col, col, 20)
	}
	f.SetCellStyle(sheet, cell("A", 1), cell(colName(len(header)-1), 1), headerStyle)

	for r, values := range rows {
		for c, v := range values {
			f.SetCellValue(sheet, cell(colName(c), r+2), v)
		}
	}
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
