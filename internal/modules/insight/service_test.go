package insight

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/reviewinsight/server/internal/models"
	"github.com/reviewinsight/server/internal/pkg/apperr"
)

type fakePrompter struct {
	summary, tags, analysis, suggestions string
	summaryErr, tagErr                   error
	calls                                atomic.Int32
}

func (f *fakePrompter) Summarize(context.Context, models.ReviewSet) (string, error) {
	f.calls.Add(1)
	return f.summary, f.summaryErr
}

func (f *fakePrompter) Tag(context.Context, models.ReviewSet) (string, error) {
	f.calls.Add(1)
	return f.tags, f.tagErr
}

func (f *fakePrompter) Analyze(context.Context, models.ReviewSet) (string, error) {
	f.calls.Add(1)
	return f.analysis, nil
}

func (f *fakePrompter) Suggest(context.Context, models.ReviewSet) (string, error) {
	f.calls.Add(1)
	return f.suggestions, nil
}

func happyPrompter() *fakePrompter {
	return &fakePrompter{
		summary: "Index,Review,Satisfaction Score,Sentiment\n" +
			"1,\"Fast shipping\",90,Positive\n" +
			"2,\"Broken on arrival\",10,Negative\n" +
			"3,\"Does the job\",50,Neutral\n",
		tags:        "Index,Tags\n1,\"Delivery\"\n2,\"Quality, Delivery\"\n3,\"Other\"\n",
		analysis:    "## Overview\nMostly positive.",
		suggestions: "- Improve packaging",
	}
}

func testDataset() *models.Dataset {
	return &models.Dataset{
		ID:        "ds-1",
		FileName:  "reviews.xlsx",
		Reviews:   models.ReviewSet{"fast shipping", "broken", "fine"},
		Ratings:   []float64{5, 1, 3},
		HasRating: true,
	}
}

func TestDashboardHappyPath(t *testing.T) {
	svc := NewService(happyPrompter(), nil)
	dash, err := svc.Dashboard(context.Background(), testDataset())
	if err != nil {
		t.Fatalf("Dashboard error: %v", err)
	}
	if len(dash.Report.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(dash.Report.Rows))
	}
	for i, row := range dash.Report.Rows {
		if !row.TagsPresent {
			t.Fatalf("row %d has null tags", i)
		}
	}
	st := dash.Stats
	if st.Positive != 1 || st.Negative != 1 || st.Neutral != 1 {
		t.Fatalf("sentiments = %+v", st)
	}
	if st.SatisfactionMean != 50 {
		t.Fatalf("satisfaction mean = %v, want 50", st.SatisfactionMean)
	}
	if !st.HasActualRating || st.ActualRating != 3 {
		t.Fatalf("actual rating = %v/%v", st.ActualRating, st.HasActualRating)
	}
	if dash.Suspect != 0 {
		t.Fatalf("suspect = %d, want 0", dash.Suspect)
	}
	if len(dash.Tags) == 0 || dash.Tags[0].Tag != "Delivery" {
		t.Fatalf("tags = %+v", dash.Tags)
	}
}

func TestDashboardProseReplyIsParseError(t *testing.T) {
	p := happyPrompter()
	p.summary = "I'm sorry, but these entries do not look like customer reviews."
	_, err := NewService(p, nil).Dashboard(context.Background(), testDataset())
	if !errors.Is(err, apperr.ErrParse) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if apperr.Status(err) != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", apperr.Status(err))
	}
}

func TestDashboardIndexMismatch(t *testing.T) {
	p := happyPrompter()
	p.tags = "Index,Tags\n1,Price\n2,Delivery\n4,Other\n"
	dash, err := NewService(p, nil).Dashboard(context.Background(), testDataset())
	if err != nil {
		t.Fatalf("Dashboard error: %v", err)
	}
	if len(dash.Report.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(dash.Report.Rows))
	}
	if _, ok := dash.Report.Rows[2].Tags(); ok {
		t.Fatalf("row 3 must have null tags")
	}
}

func TestDashboardProviderFailureHasNoPartialResult(t *testing.T) {
	p := happyPrompter()
	p.tagErr = apperr.Provider(http.StatusTooManyRequests, nil, "tag: rate limited")
	dash, err := NewService(p, nil).Dashboard(context.Background(), testDataset())
	if dash != nil {
		t.Fatalf("partial dashboard returned")
	}
	if apperr.Status(err) != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", apperr.Status(err))
	}
}

func TestDashboardCountsSuspectRows(t *testing.T) {
	p := happyPrompter()
	p.summary = "Index,Review,Satisfaction Score,Sentiment\n1,a,high,positive\n2,b,40,Negative\n"
	dash, err := NewService(p, nil).Dashboard(context.Background(), testDataset())
	if err != nil {
		t.Fatalf("Dashboard error: %v", err)
	}
	if dash.Suspect != 1 || dash.Stats.Rows != 2 {
		t.Fatalf("suspect=%d rows=%d", dash.Suspect, dash.Stats.Rows)
	}
	if dash.Stats.SatisfactionMean != 40 {
		t.Fatalf("mean = %v, want 40", dash.Stats.SatisfactionMean)
	}
}

func TestNarratives(t *testing.T) {
	p := happyPrompter()
	p.suggestions = "PLEASE CROSS CHECK THE FILE YOU UPLOADED"
	svc := NewService(p, nil)

	analysis, err := svc.Analysis(context.Background(), testDataset())
	if err != nil {
		t.Fatalf("Analysis error: %v", err)
	}
	if !strings.Contains(string(analysis.HTML), "<h2>Overview</h2>") || analysis.Mismatch {
		t.Fatalf("analysis = %+v", analysis)
	}
	suggestions, err := svc.Suggestions(context.Background(), testDataset())
	if err != nil {
		t.Fatalf("Suggestions error: %v", err)
	}
	if !suggestions.Mismatch {
		t.Fatalf("sentinel reply not flagged")
	}
}

func TestReportRunsAllFour(t *testing.T) {
	p := happyPrompter()
	rep, err := NewService(p, nil).Report(context.Background(), testDataset())
	if err != nil {
		t.Fatalf("Report error: %v", err)
	}
	if p.calls.Load() != 4 {
		t.Fatalf("calls = %d, want 4", p.calls.Load())
	}
	if rep.Dashboard == nil || rep.Analysis.Raw == "" || rep.Suggestions.Raw == "" {
		t.Fatalf("incomplete report %+v", rep)
	}
}

type mapSource map[string]*models.Dataset

func (m mapSource) Get(_ context.Context, id string) (*models.Dataset, error) {
	if ds, ok := m[id]; ok {
		return ds, nil
	}
	return nil, apperr.NotFound("dataset %q not found", id)
}

func TestHandlerRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	noLimit := func(c *gin.Context) { c.Next() }
	NewHandler(NewService(happyPrompter(), nil), mapSource{"ds-1": testDataset()}).RegisterRoutes(r.Group("/api"), noLimit)

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{path: "/api/datasets/ds-1/dashboard", status: http.StatusOK, body: `"satisfaction_mean":50`},
		{path: "/api/datasets/ds-1/analysis", status: http.StatusOK, body: `"mismatch":false`},
		{path: "/api/datasets/ds-1/suggestions", status: http.StatusOK, body: `packaging`},
		{path: "/api/datasets/ds-1/report", status: http.StatusOK, body: `"dashboard"`},
		{path: "/api/datasets/missing/dashboard", status: http.StatusNotFound, body: `"ok":0`},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, tt.path, nil)
		r.ServeHTTP(w, req)
		if w.Code != tt.status {
			t.Fatalf("%s: status = %d, want %d (%s)", tt.path, w.Code, tt.status, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), tt.body) {
			t.Fatalf("%s: body %s lacks %s", tt.path, w.Body.String(), tt.body)
		}
	}
}

func TestDashboardPropagatesDeadline(t *testing.T) {
	p := &fakePrompter{summaryErr: context.DeadlineExceeded}
	if _, err := NewService(p, nil).Dashboard(context.Background(), testDataset()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}
