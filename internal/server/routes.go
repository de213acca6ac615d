package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/thywilljoshua/site-diary/internal/ai"
	"github.com/thywilljoshua/site-diary/internal/diary"
	"github.com/thywilljoshua/site-diary/internal/extract"
	"github.com/thywilljoshua/site-diary/internal/logger"
	"github.com/thywilljoshua/site-diary/internal/metrics"
	"github.com/thywilljoshua/site-diary/internal/render"
	"github.com/thywilljoshua/site-diary/internal/review"
)

type API struct {
	store     *review.Store
	extractor *extract.Extractor
	enhancer  ai.Enhancer
	renderer  *render.Renderer
	metrics   *metrics.Metrics
	log       logger.Logger
}

func NewAPI(deps Deps) *API {
	return &API{
		store:     deps.Store,
		extractor: deps.Extractor,
		enhancer:  deps.Enhancer,
		renderer:  deps.Renderer,
		metrics:   deps.Metrics,
		log:       deps.Logger,
	}
}

func registerRoutes(r *gin.Engine, api *API) {
	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/health", api.handleHealth)

		apiGroup.POST("/reports", api.handleUploadReport)

		apiGroup.GET("/sessions", api.handleListSessions)
		apiGroup.GET("/sessions/:id", api.handleGetSession)
		apiGroup.DELETE("/sessions/:id", api.handleDeleteSession)

		apiGroup.GET("/sessions/:id/fields/:name", api.handleGetField)
		apiGroup.PUT("/sessions/:id/fields/:name", api.handleSetField)

		apiGroup.POST("/sessions/:id/enhance", api.handleEnhance)
		apiGroup.POST("/sessions/:id/validate", api.handleValidate)

		apiGroup.GET("/sessions/:id/diary.pdf", api.handleDownloadPDF)
		apiGroup.GET("/sessions/:id/diary.xlsx", api.handleDownloadXLSX)
	}
}

func (a *API) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "sessions": a.store.Len()})
}

// sessionListItem is the short form used by the session listing.
type sessionListItem struct {
	ID        string        `json:"id"`
	Source    string        `json:"source"`
	Date      string        `json:"date"`
	Project   string        `json:"project"`
	Pages     int           `json:"pages"`
	Enhanced  bool          `json:"enhanced"`
	Summary   diary.Summary `json:"summary"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (a *API) handleUploadReport(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(c, err)
			return
		}
		respondMessage(c, http.StatusBadRequest, "missing report file")
		return
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".pdf") {
		respondMessage(c, http.StatusBadRequest, "report must be a .pdf file")
		return
	}

	upload, err := fileHeader.Open()
	if err != nil {
		respondMessage(c, http.StatusInternalServerError, "unable to read uploaded file")
		return
	}
	defer upload.Close()
	data, err := io.ReadAll(upload)
	if err != nil {
		respondMessage(c, http.StatusInternalServerError, "unable to read uploaded file")
		return
	}

	ctx := c.Request.Context()
	start := time.Now()
	res, err := a.extractor.Extract(ctx, extract.RawDocument{Name: fileHeader.Filename, Data: data})
	a.metrics.ObserveStage(metrics.StageExtract, time.Since(start), err)
	if err != nil {
		respondError(c, err)
		return
	}

	sess, err := a.store.Create(review.Draft{
		Source:  fileHeader.Filename,
		Record:  res.Record,
		RawText: res.Text,
		Pages:   res.Pages,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	a.metrics.Sessions.Set(float64(a.store.Len()))

	body := gin.H{"session": sess}
	if wantEnhance(c) {
		enhanced, err := a.enhance(c, sess)
		if err != nil {
			// The draft is kept; the client may retry enhancement.
			body["enhance_error"] = err.Error()
		} else {
			body["session"] = enhanced
		}
	}
	c.JSON(http.StatusCreated, body)
}

func wantEnhance(c *gin.Context) bool {
	v := c.Query("enhance")
	if v == "" {
		v = c.PostForm("enhance")
	}
	return strings.EqualFold(v, "true") || v == "1"
}

func (a *API) enhance(c *gin.Context, sess review.Session) (review.Session, error) {
	start := time.Now()
	rec, err := a.enhancer.Enhance(c.Request.Context(), sess.Record, sess.RawText)
	a.metrics.ObserveStage(metrics.StageEnhance, time.Since(start), err)
	if err != nil {
		a.log.Warn("Enhancement failed", logger.String("session", sess.ID), logger.Error(err))
		return review.Session{}, err
	}
	_, isNoop := a.enhancer.(ai.Noop)
	return a.store.Replace(sess.ID, sess.Version, rec, !isNoop)
}

func (a *API) handleListSessions(c *gin.Context) {
	sessions := a.store.List()
	out := make([]sessionListItem, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionListItem{
			ID:        s.ID,
			Source:    s.Source,
			Date:      s.Record.TextOf("date"),
			Project:   s.Record.TextOf("project"),
			Pages:     s.Pages,
			Enhanced:  s.Enhanced,
			Summary:   s.Summary,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (a *API) handleGetSession(c *gin.Context) {
	sess, err := a.store.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (a *API) handleDeleteSession(c *gin.Context) {
	if err := a.store.Delete(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	a.metrics.Sessions.Set(float64(a.store.Len()))
	c.Status(http.StatusNoContent)
}

func (a *API) handleGetField(c *gin.Context) {
	name := c.Param("name")
	v, err := a.store.GetField(c.Param("id"), name)
	if err != nil {
		respondError(c, err)
		return
	}
	spec, _ := diary.Lookup(name)
	c.JSON(http.StatusOK, gin.H{"name": spec.Name, "kind": spec.Kind.String(), "value": v})
}

func (a *API) handleSetField(c *gin.Context) {
	var payload struct {
		Value json.RawMessage `json:"value"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondMessage(c, http.StatusBadRequest, err.Error())
		return
	}
	if len(bytes.TrimSpace(payload.Value)) == 0 {
		respondMessage(c, http.StatusBadRequest, "value is required")
		return
	}
	var v diary.Value
	if err := v.UnmarshalJSON(payload.Value); err != nil {
		respondMessage(c, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := a.store.SetField(c.Param("id"), c.Param("name"), v)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (a *API) handleEnhance(c *gin.Context) {
	sess, err := a.store.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	updated, err := a.enhance(c, sess)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (a *API) handleValidate(c *gin.Context) {
	err := a.store.Validate(c.Param("id"))
	var vErr *diary.ValidationError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"valid": true, "problems": []diary.Problem{}})
	case errors.As(err, &vErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"valid": false, "problems": vErr.Problems})
	default:
		respondError(c, err)
	}
}

func (a *API) handleDownloadPDF(c *gin.Context) {
	sess, err := a.store.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	start := time.Now()
	b, err := a.renderer.Render(sess.Record)
	a.metrics.ObserveStage(metrics.StageRender, time.Since(start), err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, downloadName(sess, ".pdf")))
	c.Data(http.StatusOK, "application/pdf", b)
}

func (a *API) handleDownloadXLSX(c *gin.Context) {
	sess, err := a.store.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	start := time.Now()
	b, err := render.ExportXLSX(sess.Record)
	a.metrics.ObserveStage(metrics.StageExport, time.Since(start), err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, downloadName(sess, ".xlsx")))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", b)
}

// downloadName is "daily-diary-<date>" with unsafe characters replaced.
func downloadName(sess review.Session, ext string) string {
	name := "daily-diary"
	if d := sess.Record.TextOf("date"); d != "" {
		name += "-" + d
	}
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, name)
	return name + ext
}
