package web

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/reviewinsight/server/internal/models"
	"github.com/reviewinsight/server/internal/modules/insight"
	"github.com/reviewinsight/server/internal/modules/processing/markdown"
	"github.com/reviewinsight/server/internal/modules/storage/dataset"
	"github.com/reviewinsight/server/internal/pkg/apperr"
)

type fakePipeline struct {
	err error
}

func (f fakePipeline) Dashboard(_ context.Context, ds *models.Dataset) (*insight.Dashboard, error) {
	if f.err != nil {
		return nil, f.err
	}
	report := &models.MergedReport{
		Header: []string{models.ColumnIndex, models.ColumnReview, models.ColumnSatisfaction, models.ColumnSentiment, models.ColumnTags},
		Rows: []models.MergedRow{
			{Fields: models.Row{models.ColumnIndex: "1", models.ColumnReview: "<b>great</b>", models.ColumnSatisfaction: "90", models.ColumnSentiment: "Positive", models.ColumnTags: "Quality"}, TagsPresent: true},
			{Fields: models.Row{models.ColumnIndex: "2", models.ColumnReview: "late", models.ColumnSatisfaction: "20", models.ColumnSentiment: "Negative"}},
		},
	}
	return &insight.Dashboard{
		DatasetID: ds.ID,
		FileName:  ds.FileName,
		Stats:     models.AggregateStats{Rows: 2, Positive: 1, Negative: 1, SatisfactionMean: 55, ActualRating: 3.5, HasActualRating: true},
		Report:    report,
		Tags:      []insight.TagCount{{Tag: "Quality", Count: 1}},
	}, nil
}

func (f fakePipeline) Analysis(context.Context, *models.Dataset) (markdown.Narrative, error) {
	if f.err != nil {
		return markdown.Narrative{}, f.err
	}
	return markdown.RenderNarrative("## Overview\nAll good.", "SENTINEL"), nil
}

func (f fakePipeline) Suggestions(context.Context, *models.Dataset) (markdown.Narrative, error) {
	return markdown.RenderNarrative("SENTINEL", "SENTINEL"), f.err
}

func newTestRouter(t *testing.T, pipeline Pipeline) (*gin.Engine, *dataset.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	datasets := dataset.NewService(dataset.NewMemoryStore(time.Hour), nil, t.TempDir(), 1<<20, nil)
	h := NewHandler(renderer, datasets, pipeline, 1, nil)
	r := gin.New()
	h.RegisterRoutes(r, func(c *gin.Context) { c.Next() })
	r.NoRoute(h.NotFound)
	return r, datasets
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func uploadRequest(t *testing.T, name, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = fw.Write([]byte(content))
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestStaticPages(t *testing.T) {
	r, _ := newTestRouter(t, fakePipeline{})
	tests := []struct {
		path   string
		status int
		body   string
	}{
		{path: "/", status: http.StatusOK, body: "Upload reviews"},
		{path: "/about", status: http.StatusOK, body: "four times"},
		{path: "/upload", status: http.StatusOK, body: `name="file"`},
		{path: "/errors/404", status: http.StatusNotFound, body: "Not found"},
		{path: "/errors/500", status: http.StatusInternalServerError, body: "Server error"},
		{path: "/errors/502", status: http.StatusBadGateway, body: "Bad gateway"},
		{path: "/errors/503", status: http.StatusServiceUnavailable, body: "Service unavailable"},
		{path: "/errors/418", status: http.StatusNotFound, body: "Not found"},
		{path: "/nowhere", status: http.StatusNotFound, body: "Not found"},
	}
	for _, tt := range tests {
		w := serve(r, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if w.Code != tt.status || !strings.Contains(w.Body.String(), tt.body) {
			t.Fatalf("%s: got %d, body lacks %q", tt.path, w.Code, tt.body)
		}
		if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Fatalf("%s: content type %q", tt.path, ct)
		}
	}
}

func TestUploadThenDashboard(t *testing.T) {
	r, _ := newTestRouter(t, fakePipeline{})

	w := serve(r, uploadRequest(t, "reviews.csv", "Text,Rating\ngreat,4\nlate,3\n"))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "File uploaded successfully") {
		t.Fatalf("upload: %d %s", w.Code, w.Body.String())
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != dataset.CookieName || cookies[0].Value == "" {
		t.Fatalf("cookies = %+v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(cookies[0])
	w = serve(r, req)
	body := w.Body.String()
	if w.Code != http.StatusOK {
		t.Fatalf("dashboard: %d %s", w.Code, body)
	}
	for _, want := range []string{`id="myTable"`, "<th>Tags</th>", "&lt;b&gt;great&lt;/b&gt;", "Quality (1)", "3.5"} {
		if !strings.Contains(body, want) {
			t.Fatalf("dashboard body lacks %q", want)
		}
	}

	req = httptest.NewRequest(http.MethodGet, "/analysis?dataset="+cookies[0].Value, nil)
	w = serve(r, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "<h2>Overview</h2>") {
		t.Fatalf("analysis: %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/suggest", nil)
	req.AddCookie(cookies[0])
	w = serve(r, req)
	if !strings.Contains(w.Body.String(), "does not look like customer reviews") {
		t.Fatalf("suggest page misses mismatch notice")
	}
}

func TestUploadErrorsStayOnForm(t *testing.T) {
	r, _ := newTestRouter(t, fakePipeline{})
	tests := []struct {
		name string
		req  *http.Request
		body string
	}{
		{name: "no file part", req: httptest.NewRequest(http.MethodPost, "/upload", nil), body: "no file part"},
		{name: "wrong extension", req: uploadRequest(t, "reviews.txt", "Text\nx\n"), body: ".txt"},
		{name: "no text column", req: uploadRequest(t, "reviews.csv", "Comment\nx\n"), body: "Text"},
	}
	for _, tt := range tests {
		w := serve(r, tt.req)
		if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), tt.body) {
			t.Fatalf("%s: got %d %s", tt.name, w.Code, w.Body.String())
		}
		if len(w.Result().Cookies()) != 0 {
			t.Fatalf("%s: cookie set on failure", tt.name)
		}
	}
}

func TestPagesMapErrorsToStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "parse", err: apperr.Parse(nil, "not csv"), status: http.StatusInternalServerError},
		{name: "provider", err: apperr.Provider(http.StatusInternalServerError, nil, "upstream"), status: http.StatusBadGateway},
		{name: "rate limited upstream", err: apperr.Provider(http.StatusTooManyRequests, nil, "slow"), status: http.StatusServiceUnavailable},
		{name: "config", err: apperr.Config("no key"), status: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		r, datasets := newTestRouter(t, fakePipeline{err: tt.err})
		ds, err := datasets.Ingest(context.Background(), "r.csv", []byte("Text\nok\n"))
		if err != nil {
			t.Fatalf("Ingest: %v", err)
		}
		w := serve(r, httptest.NewRequest(http.MethodGet, "/dashboard?dataset="+ds.ID, nil))
		if w.Code != tt.status {
			t.Fatalf("%s: status = %d, want %d", tt.name, w.Code, tt.status)
		}
		if strings.Contains(w.Body.String(), "upstream") {
			t.Fatalf("%s: internal detail leaked", tt.name)
		}
	}
}

func TestDashboardWithoutDataset(t *testing.T) {
	r, _ := newTestRouter(t, fakePipeline{})
	w := serve(r, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "no file uploaded yet") {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
}

func TestNewTableViewBlanksMissingTags(t *testing.T) {
	dash, _ := fakePipeline{}.Dashboard(context.Background(), &models.Dataset{})
	view := newTableView(dash.Report)
	if got := view.Rows[1][4]; got != "" {
		t.Fatalf("missing tags cell = %q", got)
	}
	if got := view.Rows[0][4]; got != "Quality" {
		t.Fatalf("tags cell = %q", got)
	}
}
