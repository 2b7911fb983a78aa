package library

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"titletrack/internal/auth"
	"titletrack/internal/sync"
	"titletrack/pkg/models"
)

// Refresher schedules a background re-resolve of a stored title.
type Refresher interface {
	Go(userID, titleID string)
}

// DefaultImageURL is used for titles saved without a cover.
const DefaultImageURL = "https://picsum.photos/seed/titletrack/400/600"

type Handler struct {
	Repo      *Repo
	Hub       *sync.Hub
	Refresher Refresher
}

func NewHandler(repo *Repo, hub *sync.Hub, refresher Refresher) *Handler {
	return &Handler{Repo: repo, Hub: hub, Refresher: refresher}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/titles", h.list)
	rg.POST("/titles", h.create)
	rg.GET("/titles/:id", h.getOne)
	rg.PUT("/titles/:id", h.update)
	rg.DELETE("/titles/:id", h.remove)
	rg.POST("/titles/:id/refresh", h.refresh)
}

type createReq struct {
	Title     string `json:"title"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	Progress  int    `json:"progress"`
	Total     int    `json:"total"`
	Score     int    `json:"score"`
	ImageURL  string `json:"image_url"`
	SourceURL string `json:"source_url"`
	IsSecret  bool   `json:"is_secret"`
}

// updateReq carries pointers so omitted fields are left alone.
type updateReq struct {
	Title     *string `json:"title"`
	Type      *string `json:"type"`
	Status    *string `json:"status"`
	Progress  *int    `json:"progress"`
	Total     *int    `json:"total"`
	Score     *int    `json:"score"`
	ImageURL  *string `json:"image_url"`
	SourceURL *string `json:"source_url"`
	IsSecret  *bool   `json:"is_secret"`
}

func (h *Handler) create(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	typ, ok := models.ParseMediaType(req.Type)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be one of: Anime, Manga, Manhwa"})
		return
	}

	rec := models.TitleRecord{
		UserID:    claims.UserID,
		Type:      typ,
		Title:     strings.TrimSpace(req.Title),
		Status:    req.Status,
		Progress:  req.Progress,
		Total:     req.Total,
		Score:     req.Score,
		ImageURL:  strings.TrimSpace(req.ImageURL),
		SourceURL: strings.TrimSpace(req.SourceURL),
		IsSecret:  req.IsSecret,
	}
	if rec.Status == "" {
		rec.Status = StatusPlanned
	}
	if msg := validate(&rec); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	applyImageDefaults(&rec, true)

	if err := h.Repo.Create(c.Request.Context(), &rec); err != nil {
		log.Error().Err(err).Str("user", rec.UserID).Msg("create title")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	h.publish(sync.EventTitleUpdate, &rec)
	h.scheduleRefresh(&rec)
	c.JSON(http.StatusCreated, rec)
}

func (h *Handler) update(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	rec, err := h.Repo.Get(c.Request.Context(), claims.UserID, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	prevSource, prevTitle := rec.SourceURL, rec.Title
	if req.Title != nil {
		rec.Title = strings.TrimSpace(*req.Title)
	}
	if req.Type != nil {
		t, ok := models.ParseMediaType(*req.Type)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "type must be one of: Anime, Manga, Manhwa"})
			return
		}
		rec.Type = t
	}
	if req.Status != nil {
		rec.Status = *req.Status
	}
	if req.Progress != nil {
		rec.Progress = *req.Progress
	}
	if req.Total != nil {
		rec.Total = *req.Total
	}
	if req.Score != nil {
		rec.Score = *req.Score
	}
	if req.ImageURL != nil {
		rec.ImageURL = strings.TrimSpace(*req.ImageURL)
	}
	if req.SourceURL != nil {
		rec.SourceURL = strings.TrimSpace(*req.SourceURL)
	}
	if req.IsSecret != nil {
		rec.IsSecret = *req.IsSecret
	}
	if msg := validate(rec); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	applyImageDefaults(rec, req.ImageURL != nil || rec.Title != prevTitle)

	ok, err := h.Repo.Update(c.Request.Context(), rec)
	if err != nil {
		log.Error().Err(err).Str("user", rec.UserID).Str("id", rec.ID).Msg("update title")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	h.publish(sync.EventTitleUpdate, rec)
	if rec.SourceURL != prevSource {
		h.scheduleRefresh(rec)
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) list(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	f := ListFilter{
		Limit:         parseInt(c.Query("limit"), 20),
		Offset:        parseInt(c.Query("offset"), 0),
		IncludeSecret: c.Query("secret") == "1" || strings.EqualFold(c.Query("secret"), "true"),
	}
	if s := strings.TrimSpace(c.Query("status")); s != "" {
		f.Status = normalizeStatus(s)
		if f.Status == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
			return
		}
	}
	if s := strings.TrimSpace(c.Query("type")); s != "" {
		t, ok := models.ParseMediaType(s)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid type filter"})
			return
		}
		f.Type = t
	}

	items, total, err := h.Repo.List(c.Request.Context(), claims.UserID, f)
	if err != nil {
		log.Error().Err(err).Str("user", claims.UserID).Msg("list titles")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  f.Limit,
		"offset": f.Offset,
		"items":  items,
	})
}

func (h *Handler) getOne(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	rec, err := h.Repo.Get(c.Request.Context(), claims.UserID, strings.TrimSpace(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) remove(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	ok, err := h.Repo.Delete(c.Request.Context(), claims.UserID, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	h.publish(sync.EventTitleDelete, &models.TitleRecord{UserID: claims.UserID, ID: id})
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// refresh schedules a re-resolve and answers before it runs.
func (h *Handler) refresh(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	rec, err := h.Repo.Get(c.Request.Context(), claims.UserID, strings.TrimSpace(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if rec.SourceURL == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "title has no source url"})
		return
	}

	h.scheduleRefresh(rec)
	c.JSON(http.StatusAccepted, gin.H{"message": "refresh scheduled"})
}

func (h *Handler) publish(kind string, rec *models.TitleRecord) {
	if h.Hub == nil {
		return
	}
	ev := sync.TitleEvent{
		Type:     kind,
		UserID:   rec.UserID,
		TitleID:  rec.ID,
		Title:    rec.Title,
		Total:    rec.Total,
		Progress: rec.Progress,
		Status:   rec.Status,
		ImageURL: rec.ImageURL,
		At:       time.Now().UTC(),
	}
	h.Hub.Publish(ev)
}

func (h *Handler) scheduleRefresh(rec *models.TitleRecord) {
	if h.Refresher == nil || rec.SourceURL == "" {
		return
	}
	h.Refresher.Go(rec.UserID, rec.ID)
}

func validate(rec *models.TitleRecord) string {
	if rec.Title == "" {
		return "title required"
	}
	rec.Status = normalizeStatus(rec.Status)
	if rec.Status == "" {
		return "status must be one of: Watching, Reading, Planned, Completed"
	}
	if rec.Progress < 0 || rec.Total < 0 {
		return "progress and total must be >= 0"
	}
	if rec.Score < 0 || rec.Score > 10 {
		return "score must be between 0 and 10"
	}
	if rec.SourceURL != "" {
		u, err := url.Parse(rec.SourceURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return "source_url must be an absolute http(s) url"
		}
	}
	return ""
}

// applyImageDefaults fills in a cover and derives the image hint. The hint
// is the first two words of the title, lower-cased.
func applyImageDefaults(rec *models.TitleRecord, rehint bool) {
	if rec.ImageURL == "" {
		rec.ImageURL = DefaultImageURL
		rec.ImageHint = "abstract cover"
		return
	}
	if rehint || rec.ImageHint == "" {
		words := strings.Fields(strings.ToLower(rec.Title))
		if len(words) > 2 {
			words = words[:2]
		}
		rec.ImageHint = strings.Join(words, " ")
	}
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
