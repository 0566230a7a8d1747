package models

import (
	"context"
	"errors"
	"time"

	"github.com/go-pg/pg/v10"
	uuid "github.com/satori/go.uuid"
	"github.com/umdb-app/umdb/services/source"
)

// ExternalMatch is one catalog's identity for a movie. There is at most one
// row per (movie_id, source).
type ExternalMatch struct {
	tableName struct{} `pg:"external_match"`

	ExternalMatchID uuid.UUID      `pg:"external_match_id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	MovieID         uuid.UUID      `pg:"movie_id,type:uuid,notnull" json:"movieId"`
	Source          source.Source  `pg:"source,notnull" json:"source"`
	ExternalID      string         `pg:"external_id,notnull" json:"externalId"`
	URL             string         `pg:"url" json:"url,omitempty"`
	Title           string         `pg:"title" json:"title,omitempty"`
	OriginalTitle   string         `pg:"original_title" json:"originalTitle,omitempty"`
	Year            *int           `pg:"year" json:"year,omitempty"`
	Runtime         *int           `pg:"runtime" json:"runtime,omitempty"`
	Plot            string         `pg:"plot" json:"plot,omitempty"`
	Tagline         string         `pg:"tagline" json:"tagline,omitempty"`
	Language        string         `pg:"language" json:"language,omitempty"`
	Country         string         `pg:"country" json:"country,omitempty"`
	PosterURL       string         `pg:"poster_url" json:"posterUrl,omitempty"`
	BackdropURL     string         `pg:"backdrop_url" json:"backdropUrl,omitempty"`
	Rating          *float64       `pg:"rating" json:"rating,omitempty"`
	VoteCount       *int           `pg:"vote_count" json:"voteCount,omitempty"`
	ReleaseDate     *time.Time     `pg:"release_date,type:date" json:"releaseDate,omitempty"`
	CachedData      map[string]any `pg:"cached_data,type:jsonb" json:"cachedData,omitempty"`
	CreatedAt       time.Time      `pg:"created_at,default:now()" json:"createdAt"`
	UpdatedAt       time.Time      `pg:"updated_at,default:now()" json:"updatedAt"`
}

// UpsertExternalMatch inserts the match or overwrites the existing row for the
// same (movie_id, source) in a single statement.
func UpsertExternalMatch(ctx context.Context, db *pg.DB, m *ExternalMatch) error {
	_, err := db.Model(m).
		Context(ctx).
		OnConflict("(movie_id, source) DO UPDATE").
		Set(`
			external_id = EXCLUDED.external_id,
			url = EXCLUDED.url,
			title = EXCLUDED.title,
			original_title = EXCLUDED.original_title,
			year = EXCLUDED.year,
			runtime = EXCLUDED.runtime,
			plot = EXCLUDED.plot,
			tagline = EXCLUDED.tagline,
			language = EXCLUDED.language,
			country = EXCLUDED.country,
			poster_url = EXCLUDED.poster_url,
			backdrop_url = EXCLUDED.backdrop_url,
			rating = EXCLUDED.rating,
			vote_count = EXCLUDED.vote_count,
			release_date = EXCLUDED.release_date,
			cached_data = EXCLUDED.cached_data,
			updated_at = now()
		`).
		Returning("external_match_id, created_at, updated_at").
		Insert()
	return err
}

func GetExternalMatchesByMovieID(ctx context.Context, db *pg.DB, movieID uuid.UUID) ([]*ExternalMatch, error) {
	var matches []*ExternalMatch

	err := db.Model(&matches).
		Context(ctx).
		Where("movie_id = ?", movieID).
		Order("source ASC").
		Select()

	if err != nil {
		return nil, err
	}

	return matches, nil
}

func GetExternalMatchByID(ctx context.Context, db *pg.DB, matchID uuid.UUID) (*ExternalMatch, error) {
	var m ExternalMatch

	err := db.Model(&m).
		Context(ctx).
		Where("external_match_id = ?", matchID).
		Limit(1).
		Select()

	if errors.Is(err, pg.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &m, nil
}

// GetExternalMatchByExternalID finds any movie already matched to the catalog entry.
func GetExternalMatchByExternalID(ctx context.Context, db *pg.DB, src source.Source, externalID string) (*ExternalMatch, error) {
	var m ExternalMatch

	err := db.Model(&m).
		Context(ctx).
		Where("source IN (?)", pg.In(source.Aliases(src))).
		Where("external_id = ?", externalID).
		Order("created_at ASC").
		Limit(1).
		Select()

	if errors.Is(err, pg.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &m, nil
}

// DeleteExternalMatch reports whether a row was removed.
func DeleteExternalMatch(ctx context.Context, db *pg.DB, movieID uuid.UUID, src source.Source) (bool, error) {
	res, err := db.Model((*ExternalMatch)(nil)).
		Context(ctx).
		Where("movie_id = ?", movieID).
		Where("source = ?", src).
		Delete()
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}
