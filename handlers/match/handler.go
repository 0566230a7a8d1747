package match

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	log "github.com/sirupsen/logrus"
	"github.com/umdb-app/umdb/handlers/common"
	"github.com/umdb-app/umdb/models"
	"github.com/umdb-app/umdb/services/matching"
	"github.com/umdb-app/umdb/services/reconcile"
	"github.com/umdb-app/umdb/services/source"
	"github.com/urfave/cli"
)

const (
	corsOriginFlag = "cors-origin"
)

func RegisterFlags(f []cli.Flag) []cli.Flag {
	return append(f,
		cli.StringFlag{
			Name:   corsOriginFlag,
			Usage:  "comma separated origins allowed to call the api (* for any)",
			EnvVar: "CORS_ORIGIN",
			Value:  "*",
		},
	)
}

// Movies is the part of the local catalog the endpoints read and create.
type Movies interface {
	GetMovie(ctx context.Context, movieID uuid.UUID) (*models.Movie, error)
	CreateMovie(ctx context.Context, m *models.Movie) error
	FindExternalMatch(ctx context.Context, src source.Source, externalID string) (*models.ExternalMatch, error)
}

type Handler struct {
	finder   *matching.Finder
	store    *matching.Store
	importer *reconcile.Importer
	movies   Movies
}

func New(finder *matching.Finder, store *matching.Store, importer *reconcile.Importer, movies Movies) *Handler {
	return &Handler{
		finder:   finder,
		store:    store,
		importer: importer,
		movies:   movies,
	}
}

func corsConfig(origins string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
	}
	var list []string
	for _, o := range strings.Split(origins, ",") {
		o = strings.TrimSpace(o)
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
		if o != "" {
			list = append(list, o)
		}
	}
	if len(list) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = list
	return cfg
}

func RegisterHandler(c *cli.Context, r *gin.Engine, h *Handler) {
	gr := r.Group("/api")
	gr.Use(cors.New(corsConfig(c.String(corsOriginFlag))))
	h.Register(gr)
}

func (s *Handler) Register(gr *gin.RouterGroup) {
	gr.GET("/health", s.health)

	ex := gr.Group("/external")
	ex.GET("/search", s.search)
	ex.GET("/matches", s.findMatches)
	ex.GET("/:source/:externalId", s.detail)
	ex.POST("/import", s.importExternal)

	mv := gr.Group("/movies/:id")
	mv.GET("/matches", s.movieMatches)
	mv.GET("/matches/find", s.findMovieMatches)
	mv.POST("/matches", s.saveMatch)
	mv.DELETE("/matches/:source", s.removeMatch)
	mv.POST("/reconcile", s.reconcile)
	mv.POST("/matches/:matchId/reconcile", s.reconcileFromMatch)
}

type matchRequest struct {
	Source     string `json:"source"`
	ExternalID string `json:"externalId"`
}

func bindMatchRequest(c *gin.Context) (source.Source, string, error) {
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return "", "", source.Invalid("malformed body: %v", err)
	}
	src, err := common.ParseSource(req.Source)
	if err != nil {
		return "", "", err
	}
	id := strings.TrimSpace(req.ExternalID)
	if id == "" {
		return "", "", source.Invalid("externalId is required")
	}
	return src, id, nil
}

// Level 1: HTTP handling

func (s *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Handler) search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		common.AbortWithError(c, source.Invalid("query is required"))
		return
	}
	year, err := common.ParseYear(c)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	var only source.Source
	if tag := c.Query("source"); tag != "" {
		only, err = common.ParseSource(tag)
		if err != nil {
			common.AbortWithError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, s.searchSources(c.Request.Context(), query, year, only))
}

func (s *Handler) findMatches(c *gin.Context) {
	title := strings.TrimSpace(c.Query("title"))
	year, err := common.ParseYear(c)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	res, err := s.finder.FindMatches(c.Request.Context(), title, year)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Handler) detail(c *gin.Context) {
	src, err := common.ParseSource(c.Param("source"))
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	d, err := s.store.GetDetailedData(c.Request.Context(), src, c.Param("externalId"))
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Handler) importExternal(c *gin.Context) {
	src, id, err := bindMatchRequest(c)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	res, created, err := s.importMovie(c.Request.Context(), src, id)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	c.JSON(code, res)
}

func (s *Handler) movieMatches(c *gin.Context) {
	mv, err := s.getMovie(c)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	ms, err := s.store.GetMovieMatches(c.Request.Context(), mv.MovieID)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ms)
}

func (s *Handler) findMovieMatches(c *gin.Context) {
	mv, err := s.getMovie(c)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	res, err := s.finder.FindMatches(c.Request.Context(), mv.Title, mv.Year)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Handler) saveMatch(c *gin.Context) {
	mv, err := s.getMovie(c)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	src, id, err := bindMatchRequest(c)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	m, err := s.store.SaveMatch(c.Request.Context(), mv.MovieID, src, id)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (s *Handler) removeMatch(c *gin.Context) {
	movieID, err := common.ParseUUID(c, "id")
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	src, err := common.ParseSource(c.Param("source"))
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	err = s.store.RemoveMatch(c.Request.Context(), movieID, src)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Handler) reconcile(c *gin.Context) {
	movieID, err := common.ParseUUID(c, "id")
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	sum, err := s.importer.Reconcile(c.Request.Context(), movieID)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *Handler) reconcileFromMatch(c *gin.Context) {
	movieID, err := common.ParseUUID(c, "id")
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	matchID, err := common.ParseUUID(c, "matchId")
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	sum, err := s.importer.ReconcileFromMatch(c.Request.Context(), movieID, matchID)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// Level 2: business logic

type sourceResult struct {
	Results []source.Candidate `json:"results,omitempty"`
	Error   string             `json:"error,omitempty"`
}

func (s *Handler) searchSources(ctx context.Context, query string, year *int, only source.Source) map[source.Source]sourceResult {
	hits, failures := s.finder.Search(ctx, query, year)
	res := map[source.Source]sourceResult{}
	for src, cs := range hits {
		res[src] = sourceResult{Results: cs}
	}
	for src, err := range failures {
		res[src] = sourceResult{Error: err.Error()}
	}
	if only != "" {
		r, ok := res[s.store.Canonical(only)]
		if !ok {
			r = sourceResult{Error: source.NotConfigured(only).Error()}
		}
		return map[source.Source]sourceResult{only: r}
	}
	return res
}

func (s *Handler) getMovie(c *gin.Context) (*models.Movie, error) {
	id, err := common.ParseUUID(c, "id")
	if err != nil {
		return nil, err
	}
	mv, err := s.movies.GetMovie(c.Request.Context(), id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get movie")
	}
	if mv == nil {
		return nil, errors.Wrapf(source.ErrNotFound, "movie %v", id)
	}
	return mv, nil
}

type importResult struct {
	Movie   *models.Movie            `json:"movie"`
	Match   *models.ExternalMatch    `json:"match,omitempty"`
	Summary *reconcile.ImportSummary `json:"summary,omitempty"`
}

func movieFromDetail(src source.Source, d *source.Detail) *models.Movie {
	return &models.Movie{
		Title:         d.Title,
		OriginalTitle: d.OriginalTitle,
		Year:          d.Year,
		Runtime:       d.Runtime,
		Plot:          d.Plot,
		Tagline:       d.Tagline,
		Language:      d.Language,
		Country:       d.Country,
		PosterURL:     d.PosterURL,
		BackdropURL:   d.BackdropURL,
		Rating:        d.Rating,
		SourceType:    models.SourceType(src),
	}
}

// importMovie creates a local movie from a catalog entry unless one is already matched to it.
func (s *Handler) importMovie(ctx context.Context, src source.Source, externalID string) (*importResult, bool, error) {
	existing, err := s.movies.FindExternalMatch(ctx, src, externalID)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to look up existing match")
	}
	if existing != nil {
		mv, err := s.movies.GetMovie(ctx, existing.MovieID)
		if err != nil {
			return nil, false, errors.Wrap(err, "failed to get movie")
		}
		if mv != nil {
			return &importResult{Movie: mv, Match: existing}, false, nil
		}
	}
	d, err := s.store.GetDetailedData(ctx, src, externalID)
	if err != nil {
		return nil, false, err
	}
	if strings.TrimSpace(d.Title) == "" {
		return nil, false, source.Invalid("%v %v has no title", src, externalID)
	}
	mv := movieFromDetail(src, d)
	err = s.movies.CreateMovie(ctx, mv)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to create movie")
	}
	m, err := s.store.SaveDetail(ctx, mv.MovieID, src, d)
	if err != nil {
		return nil, false, err
	}
	res := &importResult{Movie: mv, Match: m}
	sum, err := s.importer.ReconcileFromMatch(ctx, mv.MovieID, m.ExternalMatchID)
	if err != nil {
		log.WithError(err).WithField("movie_id", mv.MovieID).Warn("imported movie without reconciliation")
	}
	res.Summary = sum
	return res, true, nil
}
