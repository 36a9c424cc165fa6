package tabular

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/reviewinsight/server/internal/models"
)

// FieldCheck inspects one cell and reports why it is unacceptable.
type FieldCheck func(value string) error

// Rejected is a row held back by Validate.
type Rejected struct {
	Position int
	Row      models.Row
	Reason   string
}

// Validate splits rows into those passing every check and the quarantined rest.
// It never fails the table as a whole.
func Validate(t *models.ReviewTable, checks map[string]FieldCheck) (*models.ReviewTable, []Rejected) {
	accepted := &models.ReviewTable{Header: t.Header}
	var rejected []Rejected
	for i, row := range t.Rows {
		if reason := checkRow(row, checks); reason != "" {
			rejected = append(rejected, Rejected{Position: i, Row: row, Reason: reason})
			continue
		}
		accepted.Rows = append(accepted.Rows, row)
	}
	return accepted, rejected
}

func checkRow(row models.Row, checks map[string]FieldCheck) string {
	for name, check := range checks {
		value, ok := row[name]
		if !ok {
			return fmt.Sprintf("%s: missing", name)
		}
		if err := check(value); err != nil {
			return fmt.Sprintf("%s: %v", name, err)
		}
	}
	return ""
}

// IntBetween accepts integers within [lo, hi].
func IntBetween(lo, hi int) FieldCheck {
	return func(value string) error {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%q is not an integer", value)
		}
		if n < lo || n > hi {
			return fmt.Errorf("%d outside %d-%d", n, lo, hi)
		}
		return nil
	}
}

// OneOf accepts exactly one of the given labels.
func OneOf(labels ...string) FieldCheck {
	return func(value string) error {
		for _, l := range labels {
			if value == l {
				return nil
			}
		}
		return fmt.Errorf("%q not in %s", value, strings.Join(labels, "/"))
	}
}

func positiveInt(value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 1 {
		return fmt.Errorf("%q is not a positive integer", value)
	}
	return nil
}

// SummaryChecks are the field types the summary prompt asks for.
var SummaryChecks = map[string]FieldCheck{
	models.ColumnIndex:        positiveInt,
	models.ColumnSatisfaction: IntBetween(1, 100),
	models.ColumnSentiment:    OneOf(models.SentimentPositive, models.SentimentNegative, models.SentimentNeutral),
}

// TagChecks are the field types the tag prompt asks for.
var TagChecks = map[string]FieldCheck{
	models.ColumnIndex: positiveInt,
}
