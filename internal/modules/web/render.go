package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reviewinsight/server/internal/models"
	"github.com/reviewinsight/server/internal/modules/processing/markdown"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"home", "upload", "dashboard", "narrative", "about", "error"}

// page is what every template receives.
type page struct {
	Title string
	Data  interface{}
}

// Renderer holds one parsed template set per page, each joined with the layout.
type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	funcs := template.FuncMap{"style": markdown.Style}
	r := &Renderer{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// HTML renders name inside the layout. Output is buffered; a template error
// becomes a plain 500.
func (r *Renderer) HTML(c *gin.Context, status int, name, title string, data interface{}) {
	t, ok := r.pages[name]
	if !ok {
		c.String(http.StatusInternalServerError, "unknown page %q", name)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", page{Title: title, Data: data}); err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// tableView is a merged report laid out for the HTML table. Rows without a
// tag match show an empty Tags cell.
type tableView struct {
	Header []string
	Rows   [][]string
}

func newTableView(report *models.MergedReport) tableView {
	view := tableView{Header: report.Header, Rows: make([][]string, 0, len(report.Rows))}
	for _, row := range report.Rows {
		cells := make([]string, len(report.Header))
		for i, col := range report.Header {
			if col == models.ColumnTags {
				cells[i], _ = row.Tags()
				continue
			}
			cells[i] = row.Fields[col]
		}
		view.Rows = append(view.Rows, cells)
	}
	return view
}
