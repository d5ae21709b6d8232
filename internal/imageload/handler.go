package imageload

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"imagehub/internal/auth"
	"imagehub/internal/cachekey"
	"imagehub/internal/events"
	"imagehub/pkg/apperr"
	"imagehub/pkg/models"
)

const cacheControl = "public, max-age=86400"

type Handler struct {
	Service *Service
	Hub     *events.Hub
}

func NewHandler(svc *Service, hub *events.Hub) *Handler {
	return &Handler{Service: svc, Hub: hub}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/images/full", h.full)           // GET /images/full?url=
	rg.GET("/images/thumbnail", h.thumbnail) // GET /images/thumbnail?url=&w=&h=
	rg.GET("/cache/stats", h.stats)
}

// RegisterAdminRoutes mounts the destructive routes; rg is expected to
// carry the admin middleware.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.DELETE("/cache", h.clear)
}

func (h *Handler) full(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("url"))
	img, err := h.Service.LoadFull(c.Request.Context(), raw)
	if err != nil {
		writeError(c, err)
		return
	}
	writeImage(c, cachekey.Derive(raw), img)
}

func (h *Handler) thumbnail(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("url"))
	w, errW := strconv.Atoi(c.Query("w"))
	hgt, errH := strconv.Atoi(c.Query("h"))
	if errW != nil || errH != nil {
		writeError(c, apperr.InvalidInput("w and h must be integers"))
		return
	}
	size := models.Size{Width: w, Height: hgt}

	img, err := h.Service.LoadThumbnail(c.Request.Context(), raw, size)
	if err != nil {
		writeError(c, err)
		return
	}
	writeImage(c, cachekey.Thumbnail(raw, size), img)
}

func (h *Handler) stats(c *gin.Context) {
	st, err := h.Service.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats failed"})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) clear(c *gin.Context) {
	if err := h.Service.ClearCache(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "clear failed"})
		return
	}
	var by string
	if claims := auth.MustGetClaims(c); claims != nil {
		by = claims.Subject
	}
	if h.Hub != nil {
		h.Hub.Publish(events.CacheCleared, events.CacheData{By: by})
	}
	c.Status(http.StatusNoContent)
}

func writeImage(c *gin.Context, key string, img *models.CachedImage) {
	etag := `"` + key + `"`
	c.Header("ETag", etag)
	c.Header("Cache-Control", cacheControl)
	if match := c.GetHeader("If-None-Match"); match == etag {
		c.Status(http.StatusNotModified)
		return
	}
	b := img.Bounds()
	c.Header("X-Image-Width", strconv.Itoa(b.Width))
	c.Header("X-Image-Height", strconv.Itoa(b.Height))
	c.Data(http.StatusOK, http.DetectContentType(img.Encoded), img.Encoded)
}

func writeError(c *gin.Context, err error) {
	c.JSON(apperr.HTTPStatus(err), apperr.ToResponse(err))
}
