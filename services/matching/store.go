package matching

import (
	"context"
	"strings"
	"time"

	uuid "github.com/satori/go.uuid"
	log "github.com/sirupsen/logrus"
	"github.com/umdb-app/umdb/models"
	"github.com/umdb-app/umdb/services/source"
)

// Repository persists matches and the alternative titles that come with them.
type Repository interface {
	UpsertExternalMatch(ctx context.Context, m *models.ExternalMatch) error
	UpsertAlternativeTitle(ctx context.Context, t *models.AlternativeTitle) error
	GetExternalMatches(ctx context.Context, movieID uuid.UUID) ([]*models.ExternalMatch, error)
	DeleteExternalMatch(ctx context.Context, movieID uuid.UUID, src source.Source) (bool, error)
}

// Store persists confirmed matches with a snapshot of the catalog record.
type Store struct {
	registry *source.Registry
	repo     Repository
	timeout  time.Duration
}

func NewStore(registry *source.Registry, repo Repository, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = DefaultSourceTimeout
	}
	return &Store{
		registry: registry,
		repo:     repo,
		timeout:  timeout,
	}
}

// Canonical resolves an alias tag to the tag of the adapter serving it.
func (s *Store) Canonical(src source.Source) source.Source {
	return s.registry.Canonical(src)
}

// GetDetailedData always fetches from the catalog.
func (s *Store) GetDetailedData(ctx context.Context, src source.Source, externalID string) (*source.Detail, error) {
	if strings.TrimSpace(externalID) == "" {
		return nil, source.Invalid("external id is required")
	}
	a, err := s.registry.Get(src)
	if err != nil {
		return nil, err
	}
	fctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return a.FetchDetail(fctx, strings.TrimSpace(externalID))
}

// SaveMatch fetches the catalog record and upserts the match for (movie, source).
// Nothing is written when the fetch fails.
func (s *Store) SaveMatch(ctx context.Context, movieID uuid.UUID, src source.Source, externalID string) (*models.ExternalMatch, error) {
	if uuid.Equal(movieID, uuid.Nil) {
		return nil, source.Invalid("movie id is required")
	}
	d, err := s.GetDetailedData(ctx, src, externalID)
	if err != nil {
		return nil, err
	}
	return s.SaveDetail(ctx, movieID, src, d)
}

// SaveDetail upserts the match from an already fetched detail.
func (s *Store) SaveDetail(ctx context.Context, movieID uuid.UUID, src source.Source, d *source.Detail) (*models.ExternalMatch, error) {
	if d == nil || d.ExternalID == "" {
		return nil, source.Invalid("detail with external id is required")
	}
	m := NewExternalMatch(movieID, src, d)
	err := s.repo.UpsertExternalMatch(ctx, m)
	if err != nil {
		return nil, err
	}
	for _, at := range d.AlternativeTitles {
		t := strings.TrimSpace(at.Title)
		if t == "" {
			continue
		}
		err = s.repo.UpsertAlternativeTitle(ctx, &models.AlternativeTitle{
			MovieID: movieID,
			Title:   t,
			Region:  strings.TrimSpace(at.Region),
			Type:    at.Type,
			Source:  src,
		})
		if err != nil {
			return nil, err
		}
	}
	log.WithFields(log.Fields{
		"movie_id":    movieID,
		"source":      src,
		"external_id": m.ExternalID,
	}).Info("match saved")
	return m, nil
}

// RemoveMatch deletes the match for (movie, source). Removing an absent match is not an error.
func (s *Store) RemoveMatch(ctx context.Context, movieID uuid.UUID, src source.Source) error {
	removed, err := s.repo.DeleteExternalMatch(ctx, movieID, src)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"movie_id": movieID,
		"source":   src,
		"removed":  removed,
	}).Info("match removed")
	return nil
}

func (s *Store) GetMovieMatches(ctx context.Context, movieID uuid.UUID) ([]*models.ExternalMatch, error) {
	ms, err := s.repo.GetExternalMatches(ctx, movieID)
	if err != nil {
		return nil, err
	}
	if ms == nil {
		ms = []*models.ExternalMatch{}
	}
	return ms, nil
}

var releaseDateLayouts = []string{"2006-01-02", "02 Jan 2006"}

func parseReleaseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, l := range releaseDateLayouts {
		t, err := time.Parse(l, s)
		if err == nil {
			return &t
		}
	}
	return nil
}

// NewExternalMatch maps a normalized detail into a match row. The tag the
// caller asked for is recorded, so IMDB matches served by the OMDB adapter keep IMDB.
func NewExternalMatch(movieID uuid.UUID, src source.Source, d *source.Detail) *models.ExternalMatch {
	return &models.ExternalMatch{
		MovieID:       movieID,
		Source:        src,
		ExternalID:    d.ExternalID,
		URL:           source.URL(src, d.ExternalID),
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
		VoteCount:     d.VoteCount,
		ReleaseDate:   parseReleaseDate(d.ReleaseDate),
		CachedData:    d.Raw,
	}
}
