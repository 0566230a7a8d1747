package store

import (
	"context"

	"github.com/go-pg/pg/v10"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	"github.com/umdb-app/umdb/models"
	"github.com/umdb-app/umdb/services/matching"
	"github.com/umdb-app/umdb/services/reconcile"
	"github.com/umdb-app/umdb/services/source"
	cs "github.com/webtor-io/common-services"
)

// PG is the postgres backed repository of matches, people, genres and titles.
type PG struct {
	pg *cs.PG
}

func New(pg *cs.PG) *PG {
	return &PG{
		pg: pg,
	}
}

func (s *PG) db() (*pg.DB, error) {
	db := s.pg.Get()
	if db == nil {
		return nil, errors.New("db is nil")
	}
	return db, nil
}

func (s *PG) GetMovie(ctx context.Context, movieID uuid.UUID) (*models.Movie, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	return models.GetMovieByID(ctx, db, movieID)
}

func (s *PG) GetMovieWithMatches(ctx context.Context, movieID uuid.UUID) (*models.Movie, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	return models.GetMovieWithMatches(ctx, db, movieID)
}

func (s *PG) CreateMovie(ctx context.Context, m *models.Movie) error {
	db, err := s.db()
	if err != nil {
		return err
	}
	return models.CreateMovie(ctx, db, m)
}

func (s *PG) ListMovieIDs(ctx context.Context) ([]uuid.UUID, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	return models.ListMovieIDs(ctx, db)
}

func (s *PG) UpsertExternalMatch(ctx context.Context, m *models.ExternalMatch) error {
	db, err := s.db()
	if err != nil {
		return err
	}
	return errors.Wrapf(models.UpsertExternalMatch(ctx, db, m), "failed to upsert %v match of movie %v", m.Source, m.MovieID)
}

func (s *PG) GetExternalMatches(ctx context.Context, movieID uuid.UUID) ([]*models.ExternalMatch, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	return models.GetExternalMatchesByMovieID(ctx, db, movieID)
}

func (s *PG) GetExternalMatch(ctx context.Context, matchID uuid.UUID) (*models.ExternalMatch, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	return models.GetExternalMatchByID(ctx, db, matchID)
}

func (s *PG) FindExternalMatch(ctx context.Context, src source.Source, externalID string) (*models.ExternalMatch, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	return models.GetExternalMatchByExternalID(ctx, db, src, externalID)
}

func (s *PG) DeleteExternalMatch(ctx context.Context, movieID uuid.UUID, src source.Source) (bool, error) {
	db, err := s.db()
	if err != nil {
		return false, err
	}
	return models.DeleteExternalMatch(ctx, db, movieID, src)
}

func (s *PG) UpsertAlternativeTitle(ctx context.Context, t *models.AlternativeTitle) error {
	db, err := s.db()
	if err != nil {
		return err
	}
	return errors.Wrapf(models.UpsertAlternativeTitle(ctx, db, t), "failed to upsert alternative title %q", t.Title)
}

func (s *PG) AddAlternativeTitle(ctx context.Context, t *models.AlternativeTitle) (bool, error) {
	db, err := s.db()
	if err != nil {
		return false, err
	}
	return models.InsertAlternativeTitleIgnoreConflict(ctx, db, t)
}

func (s *PG) FindOrCreatePerson(ctx context.Context, p *models.Person) (*models.Person, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	return models.FindOrCreatePerson(ctx, db, p)
}

func (s *PG) FindLinkedPerson(ctx context.Context, movieID uuid.UUID, role models.Role, name string) (*models.Person, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	return models.GetLinkedPersonByName(ctx, db, movieID, role, name)
}

func (s *PG) LinkPerson(ctx context.Context, mp *models.MoviePerson) (bool, error) {
	db, err := s.db()
	if err != nil {
		return false, err
	}
	return models.InsertMoviePersonIgnoreConflict(ctx, db, mp)
}

func (s *PG) FindOrCreateGenre(ctx context.Context, name string, tmdbID *int) (*models.Genre, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	return models.FindOrCreateGenre(ctx, db, name, tmdbID)
}

func (s *PG) LinkGenre(ctx context.Context, movieID uuid.UUID, genreID uuid.UUID) (bool, error) {
	db, err := s.db()
	if err != nil {
		return false, err
	}
	return models.InsertMovieGenreIgnoreConflict(ctx, db, movieID, genreID)
}

var (
	_ matching.Repository  = (*PG)(nil)
	_ reconcile.Repository = (*PG)(nil)
)
