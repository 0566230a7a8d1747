package models

import (
	"context"
	"errors"
	"time"

	"github.com/go-pg/pg/v10"
	uuid "github.com/satori/go.uuid"
)

type Role string

const (
	RoleDirector Role = "DIRECTOR"
	RoleActor    Role = "ACTOR"
	RoleWriter   Role = "WRITER"
	RoleProducer Role = "PRODUCER"
	RoleCrew     Role = "CREW"
)

type Person struct {
	tableName struct{} `pg:"person"`

	PersonID  uuid.UUID `pg:"person_id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	Name      string    `pg:"name,notnull" json:"name"`
	TmdbID    *int      `pg:"tmdb_id,unique" json:"tmdbId,omitempty"`
	ImdbID    *string   `pg:"imdb_id,unique" json:"imdbId,omitempty"`
	PhotoURL  string    `pg:"photo_url" json:"photoUrl,omitempty"`
	CreatedAt time.Time `pg:"created_at,default:now()" json:"createdAt"`
}

// MoviePerson links a person to a movie in a role. Unique by (movie_id, person_id, role).
type MoviePerson struct {
	tableName struct{} `pg:"movie_person"`

	MoviePersonID uuid.UUID `pg:"movie_person_id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	MovieID       uuid.UUID `pg:"movie_id,type:uuid,notnull" json:"movieId"`
	PersonID      uuid.UUID `pg:"person_id,type:uuid,notnull" json:"personId"`
	Role          Role      `pg:"role,notnull" json:"role"`
	Character     string    `pg:"character" json:"character,omitempty"`
	BillingOrder  *int      `pg:"billing_order" json:"order,omitempty"`
	Job           string    `pg:"job" json:"job,omitempty"`

	Person *Person `pg:"rel:has-one" json:"person,omitempty"`
}

// FindOrCreatePerson resolves p by its external id: tmdb_id first, then imdb_id.
// A person without external ids is always created.
func FindOrCreatePerson(ctx context.Context, db *pg.DB, p *Person) (*Person, error) {
	var column string
	var value any
	switch {
	case p.TmdbID != nil:
		column, value = "tmdb_id", *p.TmdbID
	case p.ImdbID != nil:
		column, value = "imdb_id", *p.ImdbID
	default:
		_, err := db.Model(p).
			Context(ctx).
			Returning("person_id, created_at").
			Insert()
		if err != nil {
			return nil, err
		}
		return p, nil
	}

	_, err := db.Model(p).
		Context(ctx).
		OnConflict("(" + column + ") DO NOTHING").
		Insert()
	if err != nil && !errors.Is(err, pg.ErrNoRows) {
		return nil, err
	}

	var existing Person
	err = db.Model(&existing).
		Context(ctx).
		Where("? = ?", pg.Ident(column), value).
		Limit(1).
		Select()
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

// GetLinkedPersonByName finds a person already linked to the movie in role with the given name.
func GetLinkedPersonByName(ctx context.Context, db *pg.DB, movieID uuid.UUID, role Role, name string) (*Person, error) {
	var p Person

	err := db.Model(&p).
		Context(ctx).
		Join("JOIN movie_person AS mp ON mp.person_id = person.person_id").
		Where("mp.movie_id = ?", movieID).
		Where("mp.role = ?", role).
		Where("lower(person.name) = lower(?)", name).
		Limit(1).
		Select()

	if errors.Is(err, pg.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// InsertMoviePersonIgnoreConflict reports whether a new link was created.
func InsertMoviePersonIgnoreConflict(ctx context.Context, db *pg.DB, mp *MoviePerson) (bool, error) {
	res, err := db.Model(mp).
		Context(ctx).
		OnConflict("(movie_id, person_id, role) DO NOTHING").
		Insert()
	if errors.Is(err, pg.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func GetMoviePeople(ctx context.Context, db *pg.DB, movieID uuid.UUID) ([]*MoviePerson, error) {
	var links []*MoviePerson

	err := db.Model(&links).
		Context(ctx).
		Relation("Person").
		Where("movie_person.movie_id = ?", movieID).
		Order("movie_person.role ASC", "movie_person.billing_order ASC NULLS LAST").
		Select()

	if err != nil {
		return nil, err
	}

	return links, nil
}
