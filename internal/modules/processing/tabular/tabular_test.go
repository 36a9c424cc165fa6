package tabular

import (
	"errors"
	"testing"

	"github.com/reviewinsight/server/internal/models"
	"github.com/reviewinsight/server/internal/pkg/apperr"
)

func TestParseSummaryReply(t *testing.T) {
	reply := `Index,Review,Satisfaction Score,Sentiment
1,"Fast delivery, friendly staff",90,Positive
2,"Item broke after a week",15,Negative
3,"Okay overall",55,Neutral`

	table, err := Parse(reply, models.SummaryHeader...)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if table.Len() != 3 {
		t.Fatalf("rows = %d, want 3", table.Len())
	}
	if got := table.Rows[0][models.ColumnReview]; got != "Fast delivery, friendly staff" {
		t.Fatalf("quoted review = %q", got)
	}
	if got := table.Rows[1][models.ColumnSatisfaction]; got != "15" {
		t.Fatalf("satisfaction = %q, want 15", got)
	}
	if got := table.Rows[2][models.ColumnSentiment]; got != "Neutral" {
		t.Fatalf("sentiment = %q, want Neutral", got)
	}
}

func TestParseMatchesColumnsByName(t *testing.T) {
	reply := "Tags,Index\n\"Delivery, Price\",1\nOther,2\n"
	table, err := Parse(reply, models.TagHeader...)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if table.Rows[0][models.ColumnIndex] != "1" || table.Rows[0][models.ColumnTags] != "Delivery, Price" {
		t.Fatalf("unexpected first row: %#v", table.Rows[0])
	}
}

func TestParseEmbeddedNewlineInsideQuotes(t *testing.T) {
	reply := "Index,Tags\n1,\"Quality,\nService\"\n2,Other\n"
	table, err := Parse(reply, models.TagHeader...)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("rows = %d, want 2", table.Len())
	}
	if table.Rows[0][models.ColumnTags] != "Quality,\nService" {
		t.Fatalf("tags = %q", table.Rows[0][models.ColumnTags])
	}
}

func TestParseSkipsFencesAndLeadingProse(t *testing.T) {
	reply := "<think>counting reviews</think>\nHere is the CSV you asked for:\n```csv\nIndex,Tags\n1,Price\n2,Other\n```\n"
	table, err := Parse(reply, models.TagHeader...)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("rows = %d, want 2", table.Len())
	}
}

func TestParseDropsTrailingSignOff(t *testing.T) {
	reply := "Index,Tags\n1,Price\n2,\"Delivery, Quality\"\n\nLet me know if you need anything else.\n"
	table, err := Parse(reply, models.TagHeader...)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if table.Len() != 2 || table.Rows[1]["Tags"] != "Delivery, Quality" {
		t.Fatalf("unexpected table: %#v", table.Rows)
	}
}

func TestParseFailures(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{name: "unterminated quote", reply: "Index,Tags\n1,\"Price\n2,Other\n"},
		{name: "ragged row", reply: "Index,Tags\n1,Price,Extra\n"},
		{name: "prose only", reply: "I'm sorry, these do not look like reviews."},
		{name: "empty", reply: "   \n"},
		{name: "missing column", reply: "Index,Labels\n1,Price\n"},
		{name: "bare trailing index", reply: "Index,Tags\n1,Price\n2\n"},
		{name: "sign-off inside rows", reply: "Index,Tags\n1,Price\nThanks\n2,Other\n"},
	}
	for _, tt := range tests {
		_, err := Parse(tt.reply, models.TagHeader...)
		if err == nil {
			t.Fatalf("%s: expected error", tt.name)
		}
		if !errors.Is(err, apperr.ErrParse) {
			t.Fatalf("%s: expected ParseError, got %v", tt.name, err)
		}
	}
}

func TestParseWithoutRequiredUsesFirstRecord(t *testing.T) {
	table, err := Parse("a,b\n1,2\n3,4\n")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(table.Header) != 2 || table.Len() != 2 || table.Rows[1]["b"] != "4" {
		t.Fatalf("unexpected table: %#v", table)
	}
}

func TestValidateQuarantinesBadRows(t *testing.T) {
	table := &models.ReviewTable{
		Header: models.SummaryHeader,
		Rows: []models.Row{
			{"Index": "1", "Review": "ok", "Satisfaction Score": "80", "Sentiment": "Positive"},
			{"Index": "2", "Review": "ok", "Satisfaction Score": "abc", "Sentiment": "Positive"},
			{"Index": "3", "Review": "ok", "Satisfaction Score": "40", "Sentiment": "negative"},
			{"Index": "x", "Review": "ok", "Satisfaction Score": "40", "Sentiment": "Neutral"},
		},
	}
	accepted, rejected := Validate(table, SummaryChecks)
	if accepted.Len() != 1 {
		t.Fatalf("accepted = %d, want 1", accepted.Len())
	}
	if len(rejected) != 3 {
		t.Fatalf("rejected = %d, want 3", len(rejected))
	}
	if rejected[0].Position != 1 {
		t.Fatalf("first rejected position = %d, want 1", rejected[0].Position)
	}
}
