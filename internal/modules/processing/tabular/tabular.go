package tabular

import (
	"encoding/csv"
	"errors"
	"io"
	"regexp"
	"strings"
	"unicode"

	"github.com/reviewinsight/server/internal/models"
	"github.com/reviewinsight/server/internal/pkg/apperr"
)

var (
	thinkBlockRegex = regexp.MustCompile(`(?is)<think>.*?</think>`)
	fenceLineRegex  = regexp.MustCompile("(?m)^\\s*```[A-Za-z]*\\s*$")
)

// Parse turns a CSV shaped model reply into a table. The first record is the
// header and columns are addressed by name. When required columns are given,
// prose lines ahead of the first line naming all of them are skipped. A
// multi-column reply also loses trailing sign-off lines that hold letters but
// no comma or quote; any other malformed line still fails the parse.
func Parse(text string, required ...string) (*models.ReviewTable, error) {
	cleaned := Clean(text)
	if strings.TrimSpace(cleaned) == "" {
		return nil, apperr.Parse(nil, "reply is empty")
	}

	if len(required) > 0 {
		start, ok := findHeaderLine(cleaned, required)
		if !ok {
			return nil, apperr.Parse(nil, "no header with columns %s", strings.Join(required, ","))
		}
		cleaned = start
	}
	cleaned = trimTrailingProse(cleaned)

	reader := csv.NewReader(strings.NewReader(cleaned))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperr.Parse(nil, "reply has no header")
		}
		return nil, apperr.Parse(err, "read header")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	table := &models.ReviewTable{Header: header}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperr.Parse(err, "malformed csv")
		}
		row := make(models.Row, len(header))
		for i, name := range header {
			if _, dup := row[name]; dup {
				continue
			}
			row[name] = record[i]
		}
		table.Rows = append(table.Rows, row)
	}

	for _, name := range required {
		if !table.HasColumn(name) {
			return nil, apperr.Parse(nil, "missing column %q", name)
		}
	}
	return table, nil
}

// Clean drops reasoning blocks and markdown fences models wrap around CSV.
func Clean(text string) string {
	text = thinkBlockRegex.ReplaceAllString(text, "")
	text = fenceLineRegex.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

func trimTrailingProse(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) < 2 || !strings.Contains(lines[0], ",") {
		return text
	}
	end := len(lines)
	for end > 1 {
		line := strings.TrimSpace(lines[end-1])
		if line != "" && !isProseLine(line) {
			break
		}
		end--
	}
	return strings.Join(lines[:end], "\n")
}

func isProseLine(line string) bool {
	if strings.ContainsAny(line, `,"`) {
		return false
	}
	return strings.IndexFunc(line, unicode.IsLetter) >= 0
}

func findHeaderLine(text string, required []string) (string, bool) {
	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		if lineHasColumns(line, required) {
			return text[offset:], true
		}
		offset += len(line)
	}
	return "", false
}

func lineHasColumns(line string, required []string) bool {
	fields := strings.Split(strings.TrimSpace(line), ",")
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		f = strings.Trim(strings.TrimSpace(f), `"`)
		seen[f] = struct{}{}
	}
	for _, name := range required {
		if _, ok := seen[name]; !ok {
			return false
		}
	}
	return true
}
