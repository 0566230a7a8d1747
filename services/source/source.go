package source

import (
	"context"
	"strings"
)

// Source identifies an external movie catalog.
type Source string

const (
	SourceTMDB   Source = "TMDB"
	SourceOMDB   Source = "OMDB"
	SourceIMDB   Source = "IMDB"
	SourceAmazon Source = "AMAZON"
)

var knownSources = []Source{SourceTMDB, SourceOMDB, SourceIMDB, SourceAmazon}

func (s Source) String() string {
	return string(s)
}

// ParseSource accepts a source tag in any letter case.
func ParseSource(s string) (Source, error) {
	tag := Source(strings.ToUpper(strings.TrimSpace(s)))
	for _, k := range knownSources {
		if k == tag {
			return k, nil
		}
	}
	return "", Unsupported(s)
}

// Aliases lists every tag whose external ids address the same catalog entries as s.
func Aliases(s Source) []Source {
	switch s {
	case SourceOMDB, SourceIMDB:
		return []Source{SourceOMDB, SourceIMDB}
	default:
		return []Source{s}
	}
}

// URL returns the public catalog page for an external id. It is not the API endpoint.
func URL(s Source, externalID string) string {
	switch s {
	case SourceTMDB:
		return "https://www.themoviedb.org/movie/" + externalID
	case SourceOMDB, SourceIMDB:
		return "https://www.imdb.com/title/" + externalID + "/"
	case SourceAmazon:
		return "https://www.amazon.com/dp/" + externalID
	default:
		return ""
	}
}

// Candidate is a single search hit as returned by a catalog.
type Candidate struct {
	Source     Source   `json:"source"`
	ExternalID string   `json:"externalId"`
	Title      string   `json:"title"`
	Year       *int     `json:"year,omitempty"`
	PosterURL  string   `json:"posterUrl,omitempty"`
	Rating     *float64 `json:"rating,omitempty"`
}

// PersonRef is the catalog identity of a person. ExternalID is empty when the
// catalog does not expose person ids.
type PersonRef struct {
	Source     Source `json:"source"`
	ExternalID string `json:"externalId,omitempty"`
}

type CastMember struct {
	Person    PersonRef `json:"person"`
	Name      string    `json:"name"`
	Character string    `json:"character,omitempty"`
	Order     *int      `json:"order,omitempty"`
	PhotoURL  string    `json:"photoUrl,omitempty"`
}

type CrewMember struct {
	Person     PersonRef `json:"person"`
	Name       string    `json:"name"`
	Job        string    `json:"job"`
	Department string    `json:"department,omitempty"`
	PhotoURL   string    `json:"photoUrl,omitempty"`
}

type Genre struct {
	ID   *int   `json:"id,omitempty"`
	Name string `json:"name"`
}

type AlternativeTitle struct {
	Title  string `json:"title"`
	Region string `json:"region,omitempty"`
	Type   string `json:"type,omitempty"`
}

// Detail is the normalized full record of one catalog entry.
type Detail struct {
	Source            Source             `json:"source"`
	ExternalID        string             `json:"externalId"`
	Title             string             `json:"title"`
	OriginalTitle     string             `json:"originalTitle,omitempty"`
	Year              *int               `json:"year,omitempty"`
	Runtime           *int               `json:"runtime,omitempty"`
	Plot              string             `json:"plot,omitempty"`
	Tagline           string             `json:"tagline,omitempty"`
	Language          string             `json:"language,omitempty"`
	Country           string             `json:"country,omitempty"`
	PosterURL         string             `json:"posterUrl,omitempty"`
	BackdropURL       string             `json:"backdropUrl,omitempty"`
	Rating            *float64           `json:"rating,omitempty"`
	VoteCount         *int               `json:"voteCount,omitempty"`
	ReleaseDate       string             `json:"releaseDate,omitempty"`
	Cast              []CastMember       `json:"cast,omitempty"`
	Crew              []CrewMember       `json:"crew,omitempty"`
	Genres            []Genre            `json:"genres,omitempty"`
	AlternativeTitles []AlternativeTitle `json:"alternativeTitles,omitempty"`
	Raw               map[string]any     `json:"-"`
}

// Adapter is the capability set every catalog implements.
type Adapter interface {
	// Source is the primary tag served by the adapter.
	Source() Source
	// Configured reports whether the access credential is present.
	Configured() bool
	// Search returns no error for zero results.
	Search(ctx context.Context, query string, year *int) ([]Candidate, error)
	FetchDetail(ctx context.Context, externalID string) (*Detail, error)
	// ParseDetail normalizes a previously cached raw payload.
	ParseDetail(raw map[string]any) (*Detail, error)
}
