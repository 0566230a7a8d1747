package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-pg/pg/v10"
	uuid "github.com/satori/go.uuid"
)

type Genre struct {
	tableName struct{} `pg:"genre"`

	GenreID   uuid.UUID `pg:"genre_id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	Name      string    `pg:"name,notnull,unique" json:"name"`
	TmdbID    *int      `pg:"tmdb_id,unique" json:"tmdbId,omitempty"`
	CreatedAt time.Time `pg:"created_at,default:now()" json:"createdAt"`
}

type MovieGenre struct {
	tableName struct{} `pg:"movie_genre"`

	MovieID uuid.UUID `pg:"movie_id,pk,type:uuid"`
	GenreID uuid.UUID `pg:"genre_id,pk,type:uuid"`
}

func getGenre(ctx context.Context, db *pg.DB, where string, arg any) (*Genre, error) {
	var g Genre

	err := db.Model(&g).
		Context(ctx).
		Where(where, arg).
		Limit(1).
		Select()

	if errors.Is(err, pg.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &g, nil
}

func GetGenreByTmdbID(ctx context.Context, db *pg.DB, tmdbID int) (*Genre, error) {
	return getGenre(ctx, db, "tmdb_id = ?", tmdbID)
}

func GetGenreByName(ctx context.Context, db *pg.DB, name string) (*Genre, error) {
	return getGenre(ctx, db, "lower(name) = lower(?)", strings.TrimSpace(name))
}

// FindOrCreateGenre resolves a genre by TMDB id, then by name. A genre known
// only by name adopts the TMDB id the first time one is reported for it.
func FindOrCreateGenre(ctx context.Context, db *pg.DB, name string, tmdbID *int) (*Genre, error) {
	if tmdbID != nil {
		g, err := GetGenreByTmdbID(ctx, db, *tmdbID)
		if err != nil || g != nil {
			return g, err
		}
	}
	g, err := GetGenreByName(ctx, db, name)
	if err != nil {
		return nil, err
	}
	if g != nil {
		if g.TmdbID == nil && tmdbID != nil {
			g.TmdbID = tmdbID
			_, err = db.Model(g).
				Context(ctx).
				Column("tmdb_id").
				WherePK().
				Update()
			if err != nil {
				return nil, err
			}
		}
		return g, nil
	}
	g = &Genre{
		Name:   strings.TrimSpace(name),
		TmdbID: tmdbID,
	}
	_, err = db.Model(g).
		Context(ctx).
		OnConflict("DO NOTHING").
		Insert()
	if err != nil && !errors.Is(err, pg.ErrNoRows) {
		return nil, err
	}
	// A concurrent import may have won the insert.
	return GetGenreByName(ctx, db, name)
}

// InsertMovieGenreIgnoreConflict reports whether a new link was created.
func InsertMovieGenreIgnoreConflict(ctx context.Context, db *pg.DB, movieID uuid.UUID, genreID uuid.UUID) (bool, error) {
	res, err := db.Model(&MovieGenre{MovieID: movieID, GenreID: genreID}).
		Context(ctx).
		OnConflict("DO NOTHING").
		Insert()
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func GetGenresByMovieID(ctx context.Context, db *pg.DB, movieID uuid.UUID) ([]*Genre, error) {
	var genres []*Genre

	err := db.Model(&genres).
		Context(ctx).
		Join("JOIN movie_genre AS mg ON mg.genre_id = genre.genre_id").
		Where("mg.movie_id = ?", movieID).
		Order("genre.name ASC").
		Select()

	if err != nil {
		return nil, err
	}

	return genres, nil
}
