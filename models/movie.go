package models

import (
	"context"
	"errors"
	"time"

	"github.com/go-pg/pg/v10"
	uuid "github.com/satori/go.uuid"
)

type SourceType string

const (
	SourceTypeManual SourceType = "MANUAL"
	SourceTypeTMDB   SourceType = "TMDB"
	SourceTypeIMDB   SourceType = "IMDB"
	SourceTypeOMDB   SourceType = "OMDB"
	SourceTypeHybrid SourceType = "HYBRID"
)

type Movie struct {
	tableName struct{} `pg:"movie"`

	MovieID       uuid.UUID  `pg:"movie_id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	Title         string     `pg:"title,notnull" json:"title"`
	OriginalTitle string     `pg:"original_title" json:"originalTitle,omitempty"`
	Year          *int       `pg:"year" json:"year,omitempty"`
	Runtime       *int       `pg:"runtime" json:"runtime,omitempty"`
	Plot          string     `pg:"plot" json:"plot,omitempty"`
	Tagline       string     `pg:"tagline" json:"tagline,omitempty"`
	Language      string     `pg:"language" json:"language,omitempty"`
	Country       string     `pg:"country" json:"country,omitempty"`
	PosterURL     string     `pg:"poster_url" json:"posterUrl,omitempty"`
	BackdropURL   string     `pg:"backdrop_url" json:"backdropUrl,omitempty"`
	Rating        *float64   `pg:"rating" json:"rating,omitempty"`
	SourceType    SourceType `pg:"source_type,notnull,default:'MANUAL'" json:"sourceType"`
	CreatedAt     time.Time  `pg:"created_at,default:now()" json:"createdAt"`
	UpdatedAt     time.Time  `pg:"updated_at,default:now()" json:"updatedAt"`

	ExternalMatches   []*ExternalMatch    `pg:"rel:has-many,join_fk:movie_id" json:"externalMatches,omitempty"`
	AlternativeTitles []*AlternativeTitle `pg:"rel:has-many,join_fk:movie_id" json:"alternativeTitles,omitempty"`
}

func GetMovieByID(ctx context.Context, db *pg.DB, movieID uuid.UUID) (*Movie, error) {
	var m Movie

	err := db.Model(&m).
		Context(ctx).
		Where("movie_id = ?", movieID).
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

// GetMovieWithMatches loads the movie together with its matches and alternative titles.
func GetMovieWithMatches(ctx context.Context, db *pg.DB, movieID uuid.UUID) (*Movie, error) {
	var m Movie

	err := db.Model(&m).
		Context(ctx).
		Relation("ExternalMatches").
		Relation("AlternativeTitles").
		Where("movie.movie_id = ?", movieID).
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

func CreateMovie(ctx context.Context, db *pg.DB, m *Movie) error {
	_, err := db.Model(m).
		Context(ctx).
		Returning("*").
		Insert()
	return err
}

// ListMovieIDs returns every catalogued movie id, oldest first.
func ListMovieIDs(ctx context.Context, db *pg.DB) ([]uuid.UUID, error) {
	var ids []uuid.UUID

	err := db.Model((*Movie)(nil)).
		Context(ctx).
		Column("movie_id").
		Order("created_at ASC").
		Select(&ids)

	if err != nil {
		return nil, err
	}

	return ids, nil
}
