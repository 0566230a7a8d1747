package reconcile

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	log "github.com/sirupsen/logrus"
	"github.com/umdb-app/umdb/models"
	"github.com/umdb-app/umdb/services/source"
)

// MaxKeyCrew caps the crew imported from key departments as CREW.
const MaxKeyCrew = 20

var keyDepartments = map[string]bool{
	"camera":            true,
	"editing":           true,
	"sound":             true,
	"art":               true,
	"costume & make-up": true,
	"costume":           true,
}

// sourcePreference orders saved matches when reconciling a whole movie.
var sourcePreference = []source.Source{source.SourceTMDB, source.SourceOMDB, source.SourceIMDB}

// Repository holds the find-or-create primitives the importer needs.
type Repository interface {
	GetMovie(ctx context.Context, movieID uuid.UUID) (*models.Movie, error)
	GetExternalMatch(ctx context.Context, matchID uuid.UUID) (*models.ExternalMatch, error)
	GetExternalMatches(ctx context.Context, movieID uuid.UUID) ([]*models.ExternalMatch, error)
	FindOrCreatePerson(ctx context.Context, p *models.Person) (*models.Person, error)
	FindLinkedPerson(ctx context.Context, movieID uuid.UUID, role models.Role, name string) (*models.Person, error)
	LinkPerson(ctx context.Context, mp *models.MoviePerson) (bool, error)
	AddAlternativeTitle(ctx context.Context, t *models.AlternativeTitle) (bool, error)
	FindOrCreateGenre(ctx context.Context, name string, tmdbID *int) (*models.Genre, error)
	LinkGenre(ctx context.Context, movieID uuid.UUID, genreID uuid.UUID) (bool, error)
}

// ImportSummary counts what a run created. A repeated run reports zeros.
type ImportSummary struct {
	MatchID           *uuid.UUID    `json:"matchId,omitempty"`
	Source            source.Source `json:"source,omitempty"`
	People            int           `json:"people"`
	AlternativeTitles int           `json:"alternativeTitles"`
	Genres            int           `json:"genres"`
	Failed            int           `json:"failed"`
}

func (s *ImportSummary) add(o *ImportSummary) {
	s.People += o.People
	s.AlternativeTitles += o.AlternativeTitles
	s.Genres += o.Genres
	s.Failed += o.Failed
}

// Importer merges cached catalog payloads into the local record.
type Importer struct {
	registry *source.Registry
	repo     Repository
}

func New(registry *source.Registry, repo Repository) *Importer {
	return &Importer{
		registry: registry,
		repo:     repo,
	}
}

type credit struct {
	role      models.Role
	ref       source.PersonRef
	name      string
	character string
	order     *int
	job       string
	photoURL  string
}

func crewRole(c source.CrewMember) (models.Role, bool) {
	dep := strings.ToLower(strings.TrimSpace(c.Department))
	switch {
	case strings.EqualFold(c.Job, "Director"):
		return models.RoleDirector, true
	case dep == "writing":
		return models.RoleWriter, true
	case dep == "production" && strings.Contains(strings.ToLower(c.Job), "producer"):
		return models.RoleProducer, true
	case keyDepartments[dep]:
		return models.RoleCrew, true
	default:
		return "", false
	}
}

func credits(d *source.Detail) []credit {
	var res []credit
	for _, c := range d.Cast {
		res = append(res, credit{
			role:      models.RoleActor,
			ref:       c.Person,
			name:      c.Name,
			character: c.Character,
			order:     c.Order,
			photoURL:  c.PhotoURL,
		})
	}
	keyCrew := 0
	for _, c := range d.Crew {
		role, ok := crewRole(c)
		if !ok {
			continue
		}
		if role == models.RoleCrew {
			if keyCrew >= MaxKeyCrew {
				continue
			}
			keyCrew++
		}
		cr := credit{
			role:     role,
			ref:      c.Person,
			name:     c.Name,
			photoURL: c.PhotoURL,
		}
		if role != models.RoleDirector {
			cr.job = c.Job
		}
		res = append(res, cr)
	}
	return res
}

func (s *Importer) resolvePerson(ctx context.Context, movieID uuid.UUID, c credit) (*models.Person, error) {
	p := &models.Person{
		Name:     c.name,
		PhotoURL: c.photoURL,
	}
	if c.ref.ExternalID != "" {
		switch c.ref.Source {
		case source.SourceTMDB:
			id, err := strconv.Atoi(c.ref.ExternalID)
			if err != nil {
				return nil, source.Invalid("tmdb person id %q", c.ref.ExternalID)
			}
			p.TmdbID = &id
		case source.SourceOMDB, source.SourceIMDB:
			id := c.ref.ExternalID
			p.ImdbID = &id
		}
	}
	if p.TmdbID == nil && p.ImdbID == nil {
		linked, err := s.repo.FindLinkedPerson(ctx, movieID, c.role, c.name)
		if err != nil {
			return nil, err
		}
		if linked != nil {
			return linked, nil
		}
	}
	return s.repo.FindOrCreatePerson(ctx, p)
}

func (s *Importer) importCredit(ctx context.Context, movieID uuid.UUID, c credit) (bool, error) {
	p, err := s.resolvePerson(ctx, movieID, c)
	if err != nil {
		return false, errors.Wrap(err, "failed to resolve person")
	}
	created, err := s.repo.LinkPerson(ctx, &models.MoviePerson{
		MovieID:      movieID,
		PersonID:     p.PersonID,
		Role:         c.role,
		Character:    c.character,
		BillingOrder: c.order,
		Job:          c.job,
	})
	if err != nil {
		return false, errors.Wrap(err, "failed to link person")
	}
	return created, nil
}

// ImportCastAndCrew links cast as ACTOR and the relevant crew by role.
// A failing member is logged and skipped.
func (s *Importer) ImportCastAndCrew(ctx context.Context, movieID uuid.UUID, d *source.Detail) (*ImportSummary, error) {
	if d == nil {
		return nil, source.Invalid("detail is required")
	}
	sum := &ImportSummary{}
	for _, c := range credits(d) {
		if err := ctx.Err(); err != nil {
			return sum, errors.Wrap(err, "cast and crew import interrupted")
		}
		c.name = strings.TrimSpace(c.name)
		if c.name == "" {
			continue
		}
		created, err := s.importCredit(ctx, movieID, c)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"movie_id": movieID,
				"name":     c.name,
				"role":     c.role,
			}).Warn("failed to import credit, skipping")
			sum.Failed++
			continue
		}
		if created {
			sum.People++
		}
	}
	return sum, nil
}

// ImportAlternateTitles never updates existing rows: (movie, title, region) is the whole identity.
func (s *Importer) ImportAlternateTitles(ctx context.Context, movieID uuid.UUID, d *source.Detail) (*ImportSummary, error) {
	if d == nil {
		return nil, source.Invalid("detail is required")
	}
	sum := &ImportSummary{}
	for _, at := range d.AlternativeTitles {
		if err := ctx.Err(); err != nil {
			return sum, errors.Wrap(err, "alternative title import interrupted")
		}
		t := strings.TrimSpace(at.Title)
		if t == "" {
			continue
		}
		created, err := s.repo.AddAlternativeTitle(ctx, &models.AlternativeTitle{
			MovieID: movieID,
			Title:   t,
			Region:  strings.TrimSpace(at.Region),
			Type:    at.Type,
			Source:  d.Source,
		})
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"movie_id": movieID,
				"title":    t,
				"region":   at.Region,
			}).Warn("failed to import alternative title, skipping")
			sum.Failed++
			continue
		}
		if created {
			sum.AlternativeTitles++
		}
	}
	return sum, nil
}

func (s *Importer) ImportGenres(ctx context.Context, movieID uuid.UUID, d *source.Detail) (*ImportSummary, error) {
	if d == nil {
		return nil, source.Invalid("detail is required")
	}
	sum := &ImportSummary{}
	for _, g := range d.Genres {
		if err := ctx.Err(); err != nil {
			return sum, errors.Wrap(err, "genre import interrupted")
		}
		name := strings.TrimSpace(g.Name)
		if name == "" {
			continue
		}
		created, err := s.importGenre(ctx, movieID, name, g.ID)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"movie_id": movieID,
				"genre":    name,
			}).Warn("failed to import genre, skipping")
			sum.Failed++
			continue
		}
		if created {
			sum.Genres++
		}
	}
	return sum, nil
}

func (s *Importer) importGenre(ctx context.Context, movieID uuid.UUID, name string, id *int) (bool, error) {
	g, err := s.repo.FindOrCreateGenre(ctx, name, id)
	if err != nil {
		return false, errors.Wrap(err, "failed to resolve genre")
	}
	if g == nil {
		return false, errors.Errorf("genre %q not resolved", name)
	}
	return s.repo.LinkGenre(ctx, movieID, g.GenreID)
}

// Import runs all three imports for one detail.
func (s *Importer) Import(ctx context.Context, movieID uuid.UUID, d *source.Detail) (*ImportSummary, error) {
	sum := &ImportSummary{Source: d.Source}
	for _, fn := range []func(context.Context, uuid.UUID, *source.Detail) (*ImportSummary, error){
		s.ImportCastAndCrew,
		s.ImportAlternateTitles,
		s.ImportGenres,
	} {
		part, err := fn(ctx, movieID, d)
		if part != nil {
			sum.add(part)
		}
		if err != nil {
			return sum, err
		}
	}
	return sum, nil
}

func preferredMatch(ms []*models.ExternalMatch) *models.ExternalMatch {
	for _, src := range sourcePreference {
		for _, m := range ms {
			if m.Source == src && len(m.CachedData) > 0 {
				return m
			}
		}
	}
	return nil
}

// Reconcile imports from the richest saved match of the movie.
func (s *Importer) Reconcile(ctx context.Context, movieID uuid.UUID) (*ImportSummary, error) {
	mv, err := s.repo.GetMovie(ctx, movieID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get movie")
	}
	if mv == nil {
		return nil, errors.Wrapf(source.ErrNotFound, "movie %v", movieID)
	}
	ms, err := s.repo.GetExternalMatches(ctx, movieID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get matches")
	}
	m := preferredMatch(ms)
	if m == nil {
		return nil, source.Invalid("movie %v has no match with cached data", movieID)
	}
	return s.reconcileMatch(ctx, m)
}

// ReconcileFromMatch imports from one specific match of the movie.
func (s *Importer) ReconcileFromMatch(ctx context.Context, movieID uuid.UUID, matchID uuid.UUID) (*ImportSummary, error) {
	m, err := s.repo.GetExternalMatch(ctx, matchID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get match")
	}
	if m == nil {
		return nil, errors.Wrapf(source.ErrNotFound, "match %v", matchID)
	}
	if !uuid.Equal(m.MovieID, movieID) {
		return nil, source.Invalid("match %v does not belong to movie %v", matchID, movieID)
	}
	if len(m.CachedData) == 0 {
		return nil, source.Invalid("match %v has no cached data", matchID)
	}
	return s.reconcileMatch(ctx, m)
}

func (s *Importer) reconcileMatch(ctx context.Context, m *models.ExternalMatch) (*ImportSummary, error) {
	a, err := s.registry.Get(m.Source)
	if err != nil {
		return nil, err
	}
	d, err := a.ParseDetail(m.CachedData)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse cached data of match %v", m.ExternalMatchID)
	}
	d.Source = m.Source
	sum, err := s.Import(ctx, m.MovieID, d)
	id := m.ExternalMatchID
	sum.MatchID = &id
	l := log.WithFields(log.Fields{
		"movie_id":           m.MovieID,
		"source":             m.Source,
		"external_id":        m.ExternalID,
		"people":             sum.People,
		"alternative_titles": sum.AlternativeTitles,
		"genres":             sum.Genres,
		"failed":             sum.Failed,
	})
	if err != nil {
		l.WithError(err).Warn("reconciliation interrupted")
		return sum, err
	}
	l.Info("reconciliation done")
	return sum, nil
}
