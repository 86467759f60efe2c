// Package report renders the no-answer list as a formatted workbook.
package report

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	apperrors "cdrcli/internal/errors"
	"cdrcli/pkg/contracts/domain"
)

const (
	// DefaultLabel names both the sheet and the file suffix
	DefaultLabel = "미통화리스트"
	// DefaultMaxColumnWidth caps auto-sized columns
	DefaultMaxColumnWidth = 50

	headerFill = "366092"
)

// Options controls naming and layout of the workbook
type Options struct {
	Label          string
	MaxColumnWidth int
}

// Renderer writes no-answer rows to an xlsx file
type Renderer struct {
	schema Schema
	opts   Options
	logger *slog.Logger
}

// NewRenderer creates a renderer for the no-answer schema
func NewRenderer(opts Options, logger *slog.Logger) *Renderer {
	if opts.Label == "" {
		opts.Label = DefaultLabel
	}
	if opts.MaxColumnWidth <= 0 {
		opts.MaxColumnWidth = DefaultMaxColumnWidth
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		schema: NoAnswerSchema(),
		opts:   opts,
		logger: logger.With(slog.String("component", "report_renderer")),
	}
}

// FileName returns {YYYYMMDD}_{label}.xlsx
func (r *Renderer) FileName(dateCode string) string {
	return fmt.Sprintf("%s_%s.xlsx", dateCode, r.opts.Label)
}

// Render writes rows to dir and returns the path of the workbook
func (r *Renderer) Render(rows []domain.NoAnswerRow, dateCode, dir string) (string, error) {
	path := filepath.Join(dir, r.FileName(dateCode))

	f := excelize.NewFile()
	defer f.Close()

	sheet := r.opts.Label
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return "", apperrors.NewRenderError("name sheet", err)
	}

	headerStyle, dataStyle, err := r.styles(f)
	if err != nil {
		return "", apperrors.NewRenderError("create styles", err)
	}

	headers := r.schema.Headers()
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return "", apperrors.NewRenderError("write header", err)
	}
	widths := make([]int, len(headers))
	observeWidths(widths, headers)

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", apperrors.NewRenderError("address row", err)
		}
		values := r.schema.Row(row)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return "", apperrors.NewRenderError(fmt.Sprintf("write row %d", i+2), err)
		}
		observeWidths(widths, values)
	}

	lastCol := len(headers)
	if err := r.applyStyle(f, sheet, 1, 1, lastCol, headerStyle); err != nil {
		return "", apperrors.NewRenderError("style header", err)
	}
	if len(rows) > 0 {
		if err := r.applyStyle(f, sheet, 2, len(rows)+1, lastCol, dataStyle); err != nil {
			return "", apperrors.NewRenderError("style rows", err)
		}
	}

	for i, w := range widths {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return "", apperrors.NewRenderError("address column", err)
		}
		if err := f.SetColWidth(sheet, name, name, float64(r.columnWidth(w))); err != nil {
			return "", apperrors.NewRenderError("size column", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return "", apperrors.NewRenderError(fmt.Sprintf("save %s", path), err).WithContext("path", path)
	}

	r.logger.Info("report_written",
		slog.String("path", path),
		slog.Int("rows", len(rows)),
		slog.Int("schema_version", r.schema.Version))
	return path, nil
}

func (r *Renderer) styles(f *excelize.File) (header, data int, err error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center"}

	header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
		Border:    border,
		Alignment: center,
	})
	if err != nil {
		return 0, 0, err
	}
	data, err = f.NewStyle(&excelize.Style{
		Border:    border,
		Alignment: center,
	})
	return header, data, err
}

func (r *Renderer) applyStyle(f *excelize.File, sheet string, firstRow, lastRow, lastCol, style int) error {
	from, err := excelize.CoordinatesToCellName(1, firstRow)
	if err != nil {
		return err
	}
	to, err := excelize.CoordinatesToCellName(lastCol, lastRow)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, from, to, style)
}

// columnWidth pads the longest value by two and caps it
func (r *Renderer) columnWidth(longest int) int {
	w := longest + 2
	if w > r.opts.MaxColumnWidth {
		return r.opts.MaxColumnWidth
	}
	return w
}

func observeWidths(widths []int, values []any) {
	for i, v := range values {
		if n := utf8.RuneCountInString(fmt.Sprint(v)); n > widths[i] {
			widths[i] = n
		}
	}
}
