package insight

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/reviewinsight/server/internal/models"
	"github.com/reviewinsight/server/internal/pkg/apperr"
)

// Merge left-joins summary with tags on the raw Index cell. Every summary row
// is kept in order; tag rows without a summary partner are dropped, and for a
// repeated tag Index the first row wins.
func Merge(summary, tags *models.ReviewTable) *models.MergedReport {
	header := append(append([]string{}, summary.Header...), models.ColumnTags)
	report := &models.MergedReport{Header: header, Rows: make([]models.MergedRow, 0, summary.Len())}

	byIndex := make(map[string]string, tags.Len())
	if tags != nil {
		for _, row := range tags.Rows {
			idx := row[models.ColumnIndex]
			if _, seen := byIndex[idx]; seen {
				continue
			}
			byIndex[idx] = row[models.ColumnTags]
		}
	}

	for _, row := range summary.Rows {
		fields := make(models.Row, len(row)+1)
		for k, v := range row {
			fields[k] = v
		}
		tag, ok := byIndex[row[models.ColumnIndex]]
		if ok {
			fields[models.ColumnTags] = tag
		}
		report.Rows = append(report.Rows, models.MergedRow{Fields: fields, TagsPresent: ok})
	}
	return report
}

// SentimentCounts holds the per-label totals. Labels outside the three are not counted.
type SentimentCounts struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
}

// CountSentiments counts exact Sentiment labels.
func CountSentiments(report *models.MergedReport) SentimentCounts {
	var counts SentimentCounts
	for _, row := range report.Rows {
		switch row.Fields[models.ColumnSentiment] {
		case models.SentimentPositive:
			counts.Positive++
		case models.SentimentNegative:
			counts.Negative++
		case models.SentimentNeutral:
			counts.Neutral++
		}
	}
	return counts
}

// SatisfactionMean averages the numeric Satisfaction Score cells, rounded to
// two decimals. Non-numeric and empty cells are skipped; with no valid cell
// the mean is 0. A report with fewer than three columns, or without the
// Satisfaction Score column, is a ShapeError.
func SatisfactionMean(report *models.MergedReport) (float64, error) {
	if len(report.Header) < 3 {
		return 0, apperr.Shape("report has %d columns, need at least 3", len(report.Header))
	}
	if !hasColumn(report.Header, models.ColumnSatisfaction) {
		return 0, apperr.Shape("report has no %q column", models.ColumnSatisfaction)
	}

	var sum float64
	var n int
	for _, row := range report.Rows {
		v, ok := parseNumber(row.Fields[models.ColumnSatisfaction])
		if !ok {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return round(sum/float64(n), 2), nil
}

// ActualRating is the mean of the sheet's numeric Rating cells, rounded to one
// decimal. ok is false when the sheet has no Rating column or no numbers in it.
func ActualRating(ds *models.Dataset) (float64, bool) {
	if ds == nil || !ds.HasRating || len(ds.Ratings) == 0 {
		return 0, false
	}
	var sum float64
	for _, r := range ds.Ratings {
		sum += r
	}
	return round(sum/float64(len(ds.Ratings)), 1), true
}

// Aggregate computes the dashboard figures for a merged report.
func Aggregate(report *models.MergedReport, ds *models.Dataset) (models.AggregateStats, error) {
	mean, err := SatisfactionMean(report)
	if err != nil {
		return models.AggregateStats{}, err
	}
	counts := CountSentiments(report)
	rating, hasRating := ActualRating(ds)
	return models.AggregateStats{
		Rows:             len(report.Rows),
		Positive:         counts.Positive,
		Negative:         counts.Negative,
		Neutral:          counts.Neutral,
		SatisfactionMean: mean,
		ActualRating:     rating,
		HasActualRating:  hasRating,
	}, nil
}

// TagCount is how many merged rows carry one tag.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// CountTags tallies the individual tags across rows, most frequent first.
func CountTags(report *models.MergedReport) []TagCount {
	counts := make(map[string]int)
	var order []string
	for _, row := range report.Rows {
		for _, tag := range row.TagList() {
			if _, ok := counts[tag]; !ok {
				order = append(order, tag)
			}
			counts[tag]++
		}
	}
	out := make([]TagCount, 0, len(order))
	for _, tag := range order {
		out = append(out, TagCount{Tag: tag, Count: counts[tag]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

func parseNumber(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func hasColumn(header []string, name string) bool {
	for _, h := range header {
		if h == name {
			return true
		}
	}
	return false
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
