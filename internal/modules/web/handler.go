package web

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/reviewinsight/server/internal/models"
	"github.com/reviewinsight/server/internal/modules/insight"
	"github.com/reviewinsight/server/internal/modules/processing/markdown"
	"github.com/reviewinsight/server/internal/modules/storage/dataset"
	"github.com/reviewinsight/server/internal/pkg/apperr"
)

// Datasets is the upload side the pages need.
type Datasets interface {
	IngestFile(ctx context.Context, fh *multipart.FileHeader) (*models.Dataset, error)
	Get(ctx context.Context, id string) (*models.Dataset, error)
}

// Pipeline produces the LLM-backed page contents.
type Pipeline interface {
	Dashboard(ctx context.Context, ds *models.Dataset) (*insight.Dashboard, error)
	Analysis(ctx context.Context, ds *models.Dataset) (markdown.Narrative, error)
	Suggestions(ctx context.Context, ds *models.Dataset) (markdown.Narrative, error)
}

// Handler serves the HTML pages.
type Handler struct {
	renderer  *Renderer
	datasets  Datasets
	pipeline  Pipeline
	maxSizeMB int
	logger    *zap.Logger
}

func NewHandler(renderer *Renderer, datasets Datasets, pipeline Pipeline, maxSizeMB int, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{renderer: renderer, datasets: datasets, pipeline: pipeline, maxSizeMB: maxSizeMB, logger: logger}
}

// RegisterRoutes mounts the pages; limit guards the ones that call the model.
func (h *Handler) RegisterRoutes(r gin.IRouter, limit gin.HandlerFunc) {
	r.GET("/", h.home)
	r.GET("/upload", h.uploadForm)
	r.POST("/upload", h.upload)
	r.GET("/dashboard", limit, h.dashboard)
	r.GET("/analysis", limit, h.analysis)
	r.GET("/suggest", limit, h.suggest)
	r.GET("/about", h.about)
	r.GET("/errors/:code", h.errorPreview)
}

type uploadView struct {
	Message   string
	Failed    bool
	MaxSizeMB int
	Dataset   *models.Dataset
}

func (h *Handler) home(c *gin.Context) {
	h.renderer.HTML(c, http.StatusOK, "home", "Home", nil)
}

func (h *Handler) about(c *gin.Context) {
	h.renderer.HTML(c, http.StatusOK, "about", "About", nil)
}

// GET /upload shows the form and, when a dataset is active, the report links.
func (h *Handler) uploadForm(c *gin.Context) {
	view := uploadView{MaxSizeMB: h.maxSizeMB}
	if id := dataset.ResolveID(c); id != "" {
		if ds, err := h.datasets.Get(c.Request.Context(), id); err == nil {
			view.Dataset = ds
		}
	}
	h.renderer.HTML(c, http.StatusOK, "upload", "Upload", view)
}

// POST /upload stores the file and remembers it in the cookie.
func (h *Handler) upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		h.uploadFailed(c, apperr.Upload("no file part in the request"))
		return
	}
	ds, err := h.datasets.IngestFile(c.Request.Context(), fh)
	if err != nil {
		h.uploadFailed(c, err)
		return
	}
	dataset.SetCookie(c, ds.ID)
	h.renderer.HTML(c, http.StatusOK, "upload", "Upload", uploadView{
		Message:   "File uploaded successfully",
		MaxSizeMB: h.maxSizeMB,
		Dataset:   ds,
	})
}

// Upload problems are shown on the form itself; anything else gets its error page.
func (h *Handler) uploadFailed(c *gin.Context, err error) {
	if !errors.Is(err, apperr.ErrUpload) {
		h.fail(c, err)
		return
	}
	_ = c.Error(err)
	var ae *apperr.Error
	errors.As(err, &ae)
	h.renderer.HTML(c, http.StatusBadRequest, "upload", "Upload", uploadView{
		Message:   ae.Message,
		Failed:    true,
		MaxSizeMB: h.maxSizeMB,
	})
}

func (h *Handler) current(c *gin.Context) (*models.Dataset, bool) {
	id := dataset.ResolveID(c)
	if id == "" {
		h.fail(c, apperr.NotFound("no file uploaded yet"))
		return nil, false
	}
	ds, err := h.datasets.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return ds, true
}

type dashboardView struct {
	FileName string
	Stats    models.AggregateStats
	Tags     []insight.TagCount
	Suspect  int
	Table    tableView
}

func (h *Handler) dashboard(c *gin.Context) {
	ds, ok := h.current(c)
	if !ok {
		return
	}
	dash, err := h.pipeline.Dashboard(c.Request.Context(), ds)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.renderer.HTML(c, http.StatusOK, "dashboard", "Dashboard", dashboardView{
		FileName: dash.FileName,
		Stats:    dash.Stats,
		Tags:     dash.Tags,
		Suspect:  dash.Suspect,
		Table:    newTableView(dash.Report),
	})
}

func (h *Handler) analysis(c *gin.Context) {
	ds, ok := h.current(c)
	if !ok {
		return
	}
	n, err := h.pipeline.Analysis(c.Request.Context(), ds)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.renderer.HTML(c, http.StatusOK, "narrative", "Analysis report", n)
}

func (h *Handler) suggest(c *gin.Context) {
	ds, ok := h.current(c)
	if !ok {
		return
	}
	n, err := h.pipeline.Suggestions(c.Request.Context(), ds)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.renderer.HTML(c, http.StatusOK, "narrative", "Suggested improvements", n)
}

type errorView struct {
	Code    int
	Message string
}

var errorPages = map[int]struct{ title, message string }{
	http.StatusBadRequest:          {"Bad request", "The uploaded file could not be used."},
	http.StatusNotFound:            {"Not found", "There is nothing here. Upload a file to get started."},
	http.StatusTooManyRequests:     {"Too many requests", "You are going a bit fast. Wait a moment and try again."},
	http.StatusInternalServerError: {"Server error", "The model reply could not be turned into a report. Try again."},
	http.StatusBadGateway:          {"Bad gateway", "The language model service failed to answer."},
	http.StatusServiceUnavailable:  {"Service unavailable", "The language model service is not available right now."},
}

// fail renders the error page matching err's status. Typed errors add their
// message; untyped ones keep their detail in the log only.
func (h *Handler) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	status := apperr.Status(err)
	message := errorPages[status].message
	var ae *apperr.Error
	if errors.As(err, &ae) && (ae.Kind == apperr.KindUpload || ae.Kind == apperr.KindNotFound) {
		message = ae.Message
	}
	h.logger.Warn("page failed", zap.String("path", c.Request.URL.Path), zap.Int("status", status), zap.Error(err))
	h.ErrorPage(c, status, message)
}

// ErrorPage renders the page for status, falling back to 500.
func (h *Handler) ErrorPage(c *gin.Context, status int, message string) {
	p, ok := errorPages[status]
	if !ok {
		status = http.StatusInternalServerError
		p = errorPages[status]
	}
	if message == "" {
		message = p.message
	}
	h.renderer.HTML(c, status, "error", p.title, errorView{Code: status, Message: message})
	c.Abort()
}

// NotFound is the HTML fallback for unknown routes.
func (h *Handler) NotFound(c *gin.Context) {
	h.ErrorPage(c, http.StatusNotFound, "")
}

// TooManyRequests is the HTML refusal for the rate limiter.
func (h *Handler) TooManyRequests(c *gin.Context) {
	h.ErrorPage(c, http.StatusTooManyRequests, "")
}

// GET /errors/:code previews an error page with its real status.
func (h *Handler) errorPreview(c *gin.Context) {
	code, err := strconv.Atoi(c.Param("code"))
	if err != nil {
		h.NotFound(c)
		return
	}
	if _, ok := errorPages[code]; !ok {
		h.NotFound(c)
		return
	}
	h.ErrorPage(c, code, "")
}
