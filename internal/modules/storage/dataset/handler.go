package dataset

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/reviewinsight/server/internal/pkg/apperr"
	"github.com/reviewinsight/server/internal/pkg/response"
)

// CookieName carries the current dataset ID between page loads.
const CookieName = "dataset"

const cookieMaxAge = 24 * 60 * 60

// Handler exposes dataset upload and lookup under /api.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/datasets")
	g.POST("", h.upload)
	g.GET("/:id", h.get)
}

// POST /api/datasets (multipart field "file")
func (h *Handler) upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.Error(c, apperr.Upload("file is required"))
		return
	}
	ds, err := h.svc.IngestFile(c.Request.Context(), fh)
	if err != nil {
		response.Error(c, err)
		return
	}
	SetCookie(c, ds.ID)
	response.Created(c, gin.H{
		"id":          ds.ID,
		"file_name":   ds.FileName,
		"reviews":     len(ds.Reviews),
		"has_rating":  ds.HasRating,
		"uploaded_at": ds.UploadedAt,
	})
}

// GET /api/datasets/:id
func (h *Handler) get(c *gin.Context) {
	ds, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ds)
}

// ResolveID picks the dataset ID from the :id path param, ?dataset= or the cookie.
func ResolveID(c *gin.Context) string {
	if id := strings.TrimSpace(c.Param("id")); id != "" {
		return id
	}
	if id := strings.TrimSpace(c.Query(CookieName)); id != "" {
		return id
	}
	if id, err := c.Cookie(CookieName); err == nil {
		return strings.TrimSpace(id)
	}
	return ""
}

// SetCookie remembers the dataset for subsequent page loads.
func SetCookie(c *gin.Context, id string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, id, cookieMaxAge, "/", "", c.Request.TLS != nil, true)
}
