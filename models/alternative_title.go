package models

import (
	"context"
	"errors"
	"time"

	"github.com/go-pg/pg/v10"
	uuid "github.com/satori/go.uuid"
	"github.com/umdb-app/umdb/services/source"
)

// AlternativeTitle is unique by (movie_id, title, region). An unknown region is
// stored as an empty string so the unique index covers it.
type AlternativeTitle struct {
	tableName struct{} `pg:"alternative_title"`

	AlternativeTitleID uuid.UUID     `pg:"alternative_title_id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	MovieID            uuid.UUID     `pg:"movie_id,type:uuid,notnull" json:"movieId"`
	Title              string        `pg:"title,notnull" json:"title"`
	Region             string        `pg:"region,notnull,use_zero" json:"region,omitempty"`
	Type               string        `pg:"type" json:"type,omitempty"`
	Source             source.Source `pg:"source" json:"source,omitempty"`
	CreatedAt          time.Time     `pg:"created_at,default:now()" json:"createdAt"`
}

// UpsertAlternativeTitle keeps type and source of an existing row unless new values are given.
func UpsertAlternativeTitle(ctx context.Context, db *pg.DB, t *AlternativeTitle) error {
	_, err := db.Model(t).
		Context(ctx).
		OnConflict("(movie_id, title, region) DO UPDATE").
		Set(`
			type = COALESCE(EXCLUDED.type, alternative_title.type),
			source = COALESCE(EXCLUDED.source, alternative_title.source)
		`).
		Returning("alternative_title_id, created_at").
		Insert()
	return err
}

// InsertAlternativeTitleIgnoreConflict reports whether a new row was created.
func InsertAlternativeTitleIgnoreConflict(ctx context.Context, db *pg.DB, t *AlternativeTitle) (bool, error) {
	res, err := db.Model(t).
		Context(ctx).
		OnConflict("(movie_id, title, region) DO NOTHING").
		Insert()
	if errors.Is(err, pg.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func GetAlternativeTitlesByMovieID(ctx context.Context, db *pg.DB, movieID uuid.UUID) ([]*AlternativeTitle, error) {
	var titles []*AlternativeTitle

	err := db.Model(&titles).
		Context(ctx).
		Where("movie_id = ?", movieID).
		Order("region ASC", "title ASC").
		Select()

	if err != nil {
		return nil, err
	}

	return titles, nil
}
