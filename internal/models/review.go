package models

import "strings"

// ReviewSet is the review column of an uploaded sheet in source order.
// Position i is the 0-based review key.
type ReviewSet []string

// Row maps a column name to its raw cell text.
type Row map[string]string

// ReviewTable is a parsed model reply. Header keeps the column order of the reply.
type ReviewTable struct {
	Header []string `json:"header"`
	Rows   []Row    `json:"rows"`
}

// HasColumn reports whether name is one of the table's columns.
func (t *ReviewTable) HasColumn(name string) bool {
	for _, h := range t.Header {
		if h == name {
			return true
		}
	}
	return false
}

// Column returns the cells of one column, "" where a row lacks the field.
func (t *ReviewTable) Column(name string) []string {
	out := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, row[name])
	}
	return out
}

// Len returns the number of data rows.
func (t *ReviewTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Column names shared by prompts, parser and aggregator.
const (
	ColumnIndex        = "Index"
	ColumnReview       = "Review"
	ColumnSatisfaction = "Satisfaction Score"
	ColumnSentiment    = "Sentiment"
	ColumnTags         = "Tags"
)

// Sentiment labels the summary prompt constrains the model to.
const (
	SentimentPositive = "Positive"
	SentimentNegative = "Negative"
	SentimentNeutral  = "Neutral"
)

var (
	SummaryHeader = []string{ColumnIndex, ColumnReview, ColumnSatisfaction, ColumnSentiment}
	TagHeader     = []string{ColumnIndex, ColumnTags}
)

// MergedRow is one summary row joined with its tag row.
type MergedRow struct {
	Fields Row `json:"fields"`
	// TagsPresent is false when no tag row shared this row's Index.
	TagsPresent bool `json:"tags_present"`
}

// Tags returns the joined tag cell and whether a tag row matched.
func (r MergedRow) Tags() (string, bool) {
	if !r.TagsPresent {
		return "", false
	}
	return r.Fields[ColumnTags], true
}

// TagList splits the comma separated Tags cell.
func (r MergedRow) TagList() []string {
	raw, ok := r.Tags()
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// MergedReport is the summary table left-joined with the tag table on Index.
type MergedReport struct {
	Header []string    `json:"header"`
	Rows   []MergedRow `json:"rows"`
}

// AggregateStats are the dashboard figures derived from a MergedReport.
type AggregateStats struct {
	Rows             int     `json:"rows"`
	Positive         int     `json:"positive"`
	Negative         int     `json:"negative"`
	Neutral          int     `json:"neutral"`
	SatisfactionMean float64 `json:"satisfaction_mean"`
	ActualRating     float64 `json:"actual_rating"`
	HasActualRating  bool    `json:"has_actual_rating"`
}
