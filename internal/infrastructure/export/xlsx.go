package export

import (
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/vbelyaev/docgate/internal/core/domain"
)

const reviewSheet = "Review Queue"

// XLSXExporter renders review-queue records as a spreadsheet for the
// operators triaging the backlog.
type XLSXExporter struct{}

func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

func (e *XLSXExporter) ExportReviewQueue(records []domain.HistoryRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(reviewSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	headers := []string{
		"Document ID", "Priority", "Final Confidence", "Quality Score",
		"Routing Reason", "Format", "Word Count", "Processed At", "Expires At",
	}
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell name: %w", err)
		}
		if err := f.SetCellValue(reviewSheet, cell, header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	for i, record := range records {
		values := reviewRow(record)
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, fmt.Errorf("row cell name: %w", err)
			}
			if err := f.SetCellValue(reviewSheet, cell, value); err != nil {
				return nil, fmt.Errorf("write row %d: %w", i+2, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode spreadsheet: %w", err)
	}
	return buf.Bytes(), nil
}

func reviewRow(record domain.HistoryRecord) []any {
	row := []any{
		record.DocumentID,
		string(record.Priority),
		"", "", "", "", "",
		record.CreatedAt.Format(time.RFC3339),
		record.ExpiresAt.Format(time.RFC3339),
	}
	if record.Result == nil {
		return row
	}

	row[2] = strconv.FormatFloat(record.Result.Confidence.FinalConfidence, 'f', 1, 64)
	if record.Result.Quality != nil {
		row[3] = strconv.FormatFloat(record.Result.Quality.Score, 'f', 1, 64)
	}
	row[4] = record.Result.Confidence.RoutingReason
	row[5] = string(record.Result.Format)
	if record.Result.OCR != nil {
		row[6] = strconv.Itoa(record.Result.OCR.WordCount)
	}
	return row
}
