package tmdb

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/umdb-app/umdb/services/source"
)

const (
	posterSize   = "w500"
	backdropSize = "original"
	profileSize  = "w500"
)

type movie struct {
	ID                  int     `json:"id"`
	Title               string  `json:"title"`
	OriginalTitle       string  `json:"original_title"`
	OriginalLanguage    string  `json:"original_language"`
	Overview            string  `json:"overview"`
	Tagline             string  `json:"tagline"`
	PosterPath          string  `json:"poster_path"`
	BackdropPath        string  `json:"backdrop_path"`
	ReleaseDate         string  `json:"release_date"`
	Runtime             int     `json:"runtime"`
	VoteAverage         float64 `json:"vote_average"`
	VoteCount           int     `json:"vote_count"`
	ProductionCountries []struct {
		ISO3166_1 string `json:"iso_3166_1"`
		Name      string `json:"name"`
	} `json:"production_countries"`
	Genres []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"genres"`
	Credits *struct {
		Cast []struct {
			ID          int    `json:"id"`
			Name        string `json:"name"`
			Character   string `json:"character"`
			Order       int    `json:"order"`
			ProfilePath string `json:"profile_path"`
		} `json:"cast"`
		Crew []struct {
			ID          int    `json:"id"`
			Name        string `json:"name"`
			Job         string `json:"job"`
			Department  string `json:"department"`
			ProfilePath string `json:"profile_path"`
		} `json:"crew"`
	} `json:"credits"`
	AlternativeTitles *struct {
		Titles []struct {
			ISO3166_1 string `json:"iso_3166_1"`
			Title     string `json:"title"`
			Type      string `json:"type"`
		} `json:"titles"`
	} `json:"alternative_titles"`
}

func yearFromDate(d string) *int {
	if len(d) < 4 {
		return nil
	}
	y, err := strconv.Atoi(d[:4])
	if err != nil || y == 0 {
		return nil
	}
	return &y
}

func (api *Api) imageLink(path string, size string) string {
	if path == "" {
		return ""
	}
	return api.imageURL + "/" + size + path
}

func (api *Api) ParseDetail(raw map[string]any) (*source.Detail, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, errors.Wrap(err, "encode raw metadata")
	}
	var m movie
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, source.Invalid("malformed tmdb payload: %v", err)
	}
	if m.ID == 0 {
		return nil, source.Invalid("tmdb payload has no id")
	}
	d := &source.Detail{
		Source:        source.SourceTMDB,
		ExternalID:    strconv.Itoa(m.ID),
		Title:         m.Title,
		OriginalTitle: m.OriginalTitle,
		Year:          yearFromDate(m.ReleaseDate),
		Plot:          m.Overview,
		Tagline:       m.Tagline,
		Language:      m.OriginalLanguage,
		PosterURL:     api.imageLink(m.PosterPath, posterSize),
		BackdropURL:   api.imageLink(m.BackdropPath, backdropSize),
		ReleaseDate:   m.ReleaseDate,
		Raw:           raw,
	}
	if m.Runtime > 0 {
		r := m.Runtime
		d.Runtime = &r
	}
	if m.VoteCount > 0 {
		rating, votes := m.VoteAverage, m.VoteCount
		d.Rating = &rating
		d.VoteCount = &votes
	}
	var countries []string
	for _, c := range m.ProductionCountries {
		countries = append(countries, c.Name)
	}
	d.Country = strings.Join(countries, ", ")
	for _, g := range m.Genres {
		id := g.ID
		d.Genres = append(d.Genres, source.Genre{ID: &id, Name: g.Name})
	}
	if m.Credits != nil {
		for _, c := range m.Credits.Cast {
			order := c.Order
			d.Cast = append(d.Cast, source.CastMember{
				Person:    personRef(c.ID),
				Name:      c.Name,
				Character: c.Character,
				Order:     &order,
				PhotoURL:  api.imageLink(c.ProfilePath, profileSize),
			})
		}
		for _, c := range m.Credits.Crew {
			d.Crew = append(d.Crew, source.CrewMember{
				Person:     personRef(c.ID),
				Name:       c.Name,
				Job:        c.Job,
				Department: c.Department,
				PhotoURL:   api.imageLink(c.ProfilePath, profileSize),
			})
		}
	}
	if m.AlternativeTitles != nil {
		for _, t := range m.AlternativeTitles.Titles {
			d.AlternativeTitles = append(d.AlternativeTitles, source.AlternativeTitle{
				Title:  t.Title,
				Region: t.ISO3166_1,
				Type:   t.Type,
			})
		}
	}
	return d, nil
}

func personRef(id int) source.PersonRef {
	ref := source.PersonRef{Source: source.SourceTMDB}
	if id > 0 {
		ref.ExternalID = strconv.Itoa(id)
	}
	return ref
}

var _ source.Adapter = (*Api)(nil)
