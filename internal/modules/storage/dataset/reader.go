package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/reviewinsight/server/internal/models"
	"github.com/reviewinsight/server/internal/pkg/apperr"
)

// Column headers looked up in the uploaded sheet.
const (
	TextColumn   = "Text"
	RatingColumn = "Rating"
)

// Sheet is the review content extracted from one upload.
type Sheet struct {
	// Ext is the lower-cased extension the payload was read as.
	Ext       string
	Reviews   models.ReviewSet
	Ratings   []float64
	HasRating bool
}

var supportedExtensions = map[string]string{
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".csv":  "text/csv",
}

// Extension returns the lower-cased extension of name if uploads accept it.
func Extension(name string) (string, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(name)))
	if _, ok := supportedExtensions[ext]; !ok {
		if ext == "" {
			return "", apperr.Upload("file %q has no extension, expected .xlsx or .csv", name)
		}
		return "", apperr.Upload("unsupported file type %q, expected .xlsx or .csv", ext)
	}
	return ext, nil
}

// ReadSheet extracts the Text and Rating columns from an .xlsx or .csv payload.
func ReadSheet(name string, payload []byte) (*Sheet, error) {
	ext, err := Extension(name)
	if err != nil {
		return nil, err
	}
	var rows [][]string
	switch ext {
	case ".xlsx":
		rows, err = readWorkbookRows(payload)
	case ".csv":
		rows, err = readCSVRows(payload)
	}
	if err != nil {
		return nil, err
	}
	sheet, err := sheetFromRows(rows)
	if err != nil {
		return nil, err
	}
	sheet.Ext = ext
	return sheet, nil
}

func readWorkbookRows(payload []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, apperr.Upload("unreadable workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperr.Upload("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperr.Upload("read sheet %q: %v", sheets[0], err)
	}
	return rows, nil
}

func readCSVRows(payload []byte) ([][]string, error) {
	payload = bytes.TrimPrefix(payload, []byte("\xef\xbb\xbf"))
	reader := csv.NewReader(bytes.NewReader(payload))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperr.Upload("unreadable csv: %v", err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func sheetFromRows(rows [][]string) (*Sheet, error) {
	if len(rows) == 0 {
		return nil, apperr.Upload("sheet is empty, a %q column is required", TextColumn)
	}
	header := rows[0]
	textIdx := columnIndex(header, TextColumn)
	if textIdx < 0 {
		return nil, apperr.Upload("sheet has no %q column", TextColumn)
	}
	ratingIdx := columnIndex(header, RatingColumn)

	sheet := &Sheet{Reviews: models.ReviewSet{}, HasRating: ratingIdx >= 0}
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		sheet.Reviews = append(sheet.Reviews, cell(row, textIdx))
		if ratingIdx < 0 {
			continue
		}
		if v, err := strconv.ParseFloat(strings.TrimSpace(cell(row, ratingIdx)), 64); err == nil {
			sheet.Ratings = append(sheet.Ratings, v)
		}
	}
	return sheet, nil
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

// cell returns "" for cells past the end of a short row.
func cell(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ContentType returns the MIME type stored alongside an upload.
func ContentType(ext string) string {
	if ct, ok := supportedExtensions[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}
