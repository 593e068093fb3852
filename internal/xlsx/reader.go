// Package xlsx reads the numbers of an Excel workbook's first column.
//
// Only the first sheet and column A are read. A numeric cell contributes its
// value truncated toward zero; a text cell contributes its integer value once
// spaces are removed ("12 345" reads as 12345). Every other cell is skipped.
package xlsx

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/JonMunkholm/nthmin/internal/core"
	"github.com/xuri/excelize/v2"
)

// Reader is a core.NumberSource backed by excelize.
type Reader struct {
	// MaxRows caps the number of rows scanned. Zero means no limit.
	MaxRows int
}

// NewReader creates a Reader scanning at most maxRows rows (0 = unlimited).
func NewReader(maxRows int) *Reader {
	return &Reader{MaxRows: maxRows}
}

var _ core.NumberSource = (*Reader)(nil)

// Extract implements core.NumberSource.
func (r *Reader) Extract(ctx context.Context, path string) ([]int64, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, core.WrapError(core.InvalidWorkbook, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			slog.Warn("failed to close workbook", "path", path, "error", cerr)
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, core.NewError(core.NoSheets)
	}

	numbers, err := r.firstColumn(ctx, f, sheets[0])
	if err != nil {
		return nil, err
	}
	if len(numbers) == 0 {
		return nil, core.NewError(core.NoNumbers)
	}
	return numbers, nil
}

// firstColumn collects the integer values of column A of sheet in row order.
func (r *Reader) firstColumn(ctx context.Context, f *excelize.File, sheet string) ([]int64, error) {
	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, core.WrapError(core.InvalidWorkbook, err)
	}
	defer rows.Close()

	var numbers []int64
	rowNum := 0
	for rows.Next() {
		rowNum++
		if r.MaxRows > 0 && rowNum > r.MaxRows {
			slog.Debug("row limit reached", "sheet", sheet, "max_rows", r.MaxRows)
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cols, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, core.WrapError(core.InvalidWorkbook, fmt.Errorf("row %d: %w", rowNum, err))
		}
		if len(cols) == 0 || cols[0] == "" {
			continue
		}

		axis, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return nil, core.WrapError(core.InvalidWorkbook, err)
		}
		cellType, err := f.GetCellType(sheet, axis)
		if err != nil {
			return nil, core.WrapError(core.InvalidWorkbook, err)
		}

		if v, ok := cellValue(cellType, cols[0]); ok {
			numbers = append(numbers, v)
		}
	}
	if err := rows.Error(); err != nil {
		return nil, core.WrapError(core.InvalidWorkbook, err)
	}

	return numbers, nil
}

// cellValue converts a raw cell value of the given type to an integer.
// ok is false for cells that do not hold a usable number.
func cellValue(cellType excelize.CellType, raw string) (int64, bool) {
	switch cellType {
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		return parseNumeric(raw)
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString:
		return parseText(raw)
	default:
		return 0, false
	}
}

// parseNumeric truncates a numeric cell value toward zero, saturating at
// the int64 range.
func parseNumeric(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return v, true
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	switch {
	case f >= math.MaxInt64:
		return math.MaxInt64, true
	case f <= math.MinInt64:
		return math.MinInt64, true
	}
	return int64(f), true
}

// parseText reads a text cell as a base-10 integer, ignoring spaces used as
// thousands separators.
func parseText(raw string) (int64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f', '\t':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
	if cleaned == "" {
		return 0, false
	}

	v, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
