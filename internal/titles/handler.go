package titles

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"titletrack/internal/scraper"
	"titletrack/pkg/models"
)

const resolveTimeout = 30 * time.Second

type Resolver interface {
	Resolve(ctx context.Context, rawURL string) (models.TitleInfo, error)
}

type Discoverer interface {
	Top(ctx context.Context, kind string) ([]scraper.DiscoveredTitle, error)
	TopAll(ctx context.Context) (map[models.MediaType][]scraper.DiscoveredTitle, error)
	Search(ctx context.Context, query string) ([]scraper.DiscoveredTitle, error)
}

type Handler struct {
	Resolver   Resolver
	Discoverer Discoverer
}

func NewHandler(resolver Resolver, discoverer Discoverer) *Handler {
	return &Handler{Resolver: resolver, Discoverer: discoverer}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/titles/resolve", h.resolve)
	if h.Discoverer != nil {
		r.GET("/discover/top", h.top)
		r.GET("/discover/search", h.search)
	}
}

type resolveReq struct {
	URL string `json:"url"`
}

func (h *Handler) resolve(c *gin.Context) {
	var req resolveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), resolveTimeout)
	defer cancel()

	info, err := h.Resolver.Resolve(ctx, req.URL)
	if err != nil {
		c.JSON(scraper.HTTPStatus(err), gin.H{"error": scraper.UserMessage(err)})
		return
	}
	c.JSON(http.StatusOK, info)
}

// top lists trending titles. Upstream failures yield an empty list rather
// than an error so the page still renders.
func (h *Handler) top(c *gin.Context) {
	kind := strings.ToUpper(strings.TrimSpace(c.Query("type")))

	if kind == "" {
		all, err := h.Discoverer.TopAll(c.Request.Context())
		if err != nil {
			log.Warn().Err(err).Msg("discover top")
			all = map[models.MediaType][]scraper.DiscoveredTitle{}
		}
		c.JSON(http.StatusOK, all)
		return
	}

	switch kind {
	case "ANIME", "MANGA", "MANHWA":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be one of: ANIME, MANGA, MANHWA"})
		return
	}

	items, err := h.Discoverer.Top(c.Request.Context(), kind)
	if err != nil {
		log.Warn().Err(err).Str("type", kind).Msg("discover top")
		items = []scraper.DiscoveredTitle{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusOK, gin.H{"items": []scraper.DiscoveredTitle{}})
		return
	}

	items, err := h.Discoverer.Search(c.Request.Context(), q)
	if err != nil {
		log.Warn().Err(err).Str("q", q).Msg("discover search")
		items = []scraper.DiscoveredTitle{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
