package manifest

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"imagehub/pkg/apperr"
	"imagehub/pkg/models"
)

type Handler struct {
	Loader *Loader
	Repo   *Repo
}

func NewHandler(loader *Loader, repo *Repo) *Handler {
	return &Handler{Loader: loader, Repo: repo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/manifest", h.list)          // GET /manifest?limit=&offset=&images_only=
	rg.GET("/manifest/status", h.status) // loading flag + last error
	rg.GET("/manifest/loads", h.loads)   // load history
	rg.POST("/manifest/retry", h.retry)  // user-triggered retry after a failure
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/manifest/refresh", h.refresh)
}

func (h *Handler) list(c *gin.Context) {
	q := ListQuery{
		ImagesOnly: parseBool(c.Query("images_only")),
		Limit:      parseInt(c.Query("limit"), 50),
		Offset:     parseInt(c.Query("offset"), 0),
	}
	if q.Limit <= 0 || q.Limit > 500 {
		q.Limit = 50
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	var (
		total int
		items []models.ManifestEntry
	)
	if h.Repo != nil {
		var err error
		total, err = h.Repo.Count(c.Request.Context(), q)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
			return
		}
		items, err = h.Repo.List(c.Request.Context(), q)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
			return
		}
	} else {
		total, items = page(h.Loader.Entries(), q)
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  q.Limit,
		"offset": q.Offset,
		"items":  items,
		"state":  h.Loader.State(),
	})
}

func (h *Handler) status(c *gin.Context) {
	c.JSON(http.StatusOK, h.Loader.State())
}

func (h *Handler) loads(c *gin.Context) {
	if h.Repo == nil {
		c.JSON(http.StatusOK, gin.H{"items": []LoadRecord{}})
		return
	}
	items, err := h.Repo.RecentLoads(c.Request.Context(), parseInt(c.Query("limit"), 20))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) retry(c *gin.Context) {
	if err := h.Loader.Load(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Loader.State())
}

func (h *Handler) refresh(c *gin.Context) {
	if err := h.Loader.Refresh(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Loader.State())
}

// page applies q to an in-memory entry list.
func page(all []models.ManifestEntry, q ListQuery) (int, []models.ManifestEntry) {
	filtered := all
	if q.ImagesOnly {
		filtered = make([]models.ManifestEntry, 0, len(all))
		for _, e := range all {
			if e.IsImage {
				filtered = append(filtered, e)
			}
		}
	}
	total := len(filtered)
	start := min(q.Offset, total)
	end := total
	if q.Limit > 0 {
		end = min(start+q.Limit, total)
	}
	return total, filtered[start:end]
}

func writeError(c *gin.Context, err error) {
	c.JSON(apperr.HTTPStatus(err), apperr.ToResponse(err))
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}
