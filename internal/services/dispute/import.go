package dispute

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"chargeback/internal/metrics"
	"chargeback/internal/models"
	"chargeback/internal/repositories"
	"chargeback/internal/services/audit"
	"chargeback/internal/validation"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Import columns
const (
	ColumnCaseID         = "case_id"
	ColumnNewStatus      = "new_status"
	ColumnResolutionDate = "resolution_date"
	ColumnNotes          = "notes"
)

// ImportStatuses are the statuses a bulk update may set.
var ImportStatuses = []string{
	models.DisputeStatusAwaitingDecision,
	models.DisputeStatusWon,
	models.DisputeStatusLost,
	models.DisputeStatusNotFought,
	models.DisputeStatusSubmitted,
}

// RowError describes one rejected row. Row 1 is the first line after the header.
type RowError struct {
	Row     int    `json:"row"`
	CaseID  string `json:"case_id"`
	Message string `json:"message"`
}

type ImportResult struct {
	Updated int        `json:"updated"`
	Skipped int        `json:"skipped"`
	Errors  []RowError `json:"errors"`
}

func validImportStatus(status string) bool {
	for _, s := range ImportStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// headerIndex maps lower-cased column names to positions.
func headerIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}

	var missing []string
	for _, col := range []string{ColumnCaseID, ColumnNewStatus} {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, eris.Wrapf(ErrMissingColumns, "missing %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

func cell(row []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ImportStatuses applies a CSV of status changes row by row. Each row is
// written on its own; a failing row does not undo earlier ones. When ctx is
// cancelled part way, the rows applied so far are returned with the error.
func (s *Service) ImportStatuses(ctx context.Context, r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, eris.Wrap(err, "dispute: read csv header")
	}
	idx, err := headerIndex(header)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Errors: []RowError{}}
	var interrupted error
	for rowNum := 1; ; rowNum++ {
		if err := ctx.Err(); err != nil {
			interrupted = eris.Wrapf(err, "dispute: import cancelled before row %d", rowNum)
			break
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, RowError{Row: rowNum, Message: "malformed row: " + err.Error()})
			metrics.ImportRow("error")
			continue
		}

		if blank(row) {
			result.Skipped++
			metrics.ImportRow("skipped")
			continue
		}

		if rowErr := s.applyRow(ctx, rowNum, row, idx); rowErr != nil {
			result.Errors = append(result.Errors, *rowErr)
			metrics.ImportRow("error")
			continue
		}
		result.Updated++
		metrics.ImportRow("updated")
	}

	s.audit.Record(context.WithoutCancel(ctx), audit.EntityImport, 0, models.AuditActionImport, map[string]interface{}{
		"updated":     result.Updated,
		"skipped":     result.Skipped,
		"errors":      len(result.Errors),
		"interrupted": interrupted != nil,
	})
	s.logger.Info("status import finished",
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)),
		zap.Bool("interrupted", interrupted != nil))
	return result, interrupted
}

func (s *Service) applyRow(ctx context.Context, rowNum int, row []string, idx map[string]int) *RowError {
	caseID := cell(row, idx, ColumnCaseID)
	fail := func(msg string) *RowError {
		return &RowError{Row: rowNum, CaseID: caseID, Message: msg}
	}

	if caseID == "" {
		return fail("case_id is required")
	}
	status := strings.ToLower(cell(row, idx, ColumnNewStatus))
	if !validImportStatus(status) {
		return fail(fmt.Sprintf("invalid status %q", status))
	}
	patch := StatusPatch{
		Status:         status,
		ResolutionDate: cell(row, idx, ColumnResolutionDate),
		Notes:          cell(row, idx, ColumnNotes),
	}
	if patch.ResolutionDate != "" && !validation.IsDate(patch.ResolutionDate) {
		return fail("resolution_date must be in YYYY-MM-DD format")
	}

	d, err := s.repo.FindByCaseID(ctx, caseID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fail("dispute not found")
		}
		s.logger.Error("status import lookup failed", zap.String("case_id", caseID), zap.Error(err))
		return fail("lookup failed")
	}

	if err := s.repo.Patch(ctx, d.ID, patch.fields()); err != nil {
		s.logger.Error("status import update failed", zap.String("case_id", caseID), zap.Error(err))
		return fail("update failed")
	}
	s.audit.Record(ctx, audit.EntityDispute, d.ID, models.AuditActionStatusChange, map[string]interface{}{
		"from":   d.Status,
		"to":     status,
		"source": "csv",
	})
	return nil
}
