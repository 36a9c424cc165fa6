package insight

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/reviewinsight/server/internal/models"
	"github.com/reviewinsight/server/internal/modules/storage/dataset"
	"github.com/reviewinsight/server/internal/pkg/response"
)

// DatasetSource loads a stored dataset by ID.
type DatasetSource interface {
	Get(ctx context.Context, id string) (*models.Dataset, error)
}

// Handler serves the pipeline results as JSON.
type Handler struct {
	svc      *Service
	datasets DatasetSource
}

func NewHandler(svc *Service, datasets DatasetSource) *Handler {
	return &Handler{svc: svc, datasets: datasets}
}

// RegisterRoutes mounts the LLM-backed endpoints; limit guards each of them.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, limit gin.HandlerFunc) {
	g := rg.Group("/datasets/:id", limit)
	g.GET("/dashboard", h.dashboard)
	g.GET("/analysis", h.analysis)
	g.GET("/suggestions", h.suggestions)
	g.GET("/report", h.report)
}

func (h *Handler) load(c *gin.Context) (*models.Dataset, bool) {
	ds, err := h.datasets.Get(c.Request.Context(), dataset.ResolveID(c))
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return ds, true
}

// GET /api/datasets/:id/dashboard
func (h *Handler) dashboard(c *gin.Context) {
	ds, ok := h.load(c)
	if !ok {
		return
	}
	dash, err := h.svc.Dashboard(c.Request.Context(), ds)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dash)
}

// GET /api/datasets/:id/analysis
func (h *Handler) analysis(c *gin.Context) {
	ds, ok := h.load(c)
	if !ok {
		return
	}
	n, err := h.svc.Analysis(c.Request.Context(), ds)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, n)
}

// GET /api/datasets/:id/suggestions
func (h *Handler) suggestions(c *gin.Context) {
	ds, ok := h.load(c)
	if !ok {
		return
	}
	n, err := h.svc.Suggestions(c.Request.Context(), ds)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, n)
}

// GET /api/datasets/:id/report
func (h *Handler) report(c *gin.Context) {
	ds, ok := h.load(c)
	if !ok {
		return
	}
	rep, err := h.svc.Report(c.Request.Context(), ds)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rep)
}
