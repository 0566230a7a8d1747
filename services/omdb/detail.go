package omdb

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/umdb-app/umdb/services/source"
)

var (
	digitsRegexp    = regexp.MustCompile(`\d+`)
	startYearRegexp = regexp.MustCompile(`^\d{4}`)
	creditRegexp    = regexp.MustCompile(`^(.*?)\s*\(([^)]*)\)\s*$`)
)

// str returns the trimmed string value under key with N/A normalized to empty.
func str(m map[string]any, key string) string {
	v, _ := m[key].(string)
	v = strings.TrimSpace(v)
	if v == NA {
		return ""
	}
	return v
}

func parseYear(s string) *int {
	m := startYearRegexp.FindString(s)
	if m == "" {
		return nil
	}
	y, err := strconv.Atoi(m)
	if err != nil {
		return nil
	}
	return &y
}

// parseRuntime extracts minutes from values like "148 min".
func parseRuntime(s string) *int {
	m := digitsRegexp.FindString(s)
	if m == "" {
		return nil
	}
	r, err := strconv.Atoi(m)
	if err != nil {
		return nil
	}
	return &r
}

func parseFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

func parseVotes(s string) *int {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}

// splitList splits comma separated values, dropping blanks and N/A.
func splitList(s string) []string {
	var res []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" || p == NA {
			continue
		}
		res = append(res, p)
	}
	return res
}

// splitCredit turns "Jonathan Nolan (screenplay)" into name and job.
func splitCredit(s string, defaultJob string) (string, string) {
	m := creditRegexp.FindStringSubmatch(s)
	if m == nil || m[1] == "" {
		return s, defaultJob
	}
	job := strings.TrimSpace(m[2])
	if job == "" {
		return m[1], defaultJob
	}
	return m[1], strings.ToUpper(job[:1]) + job[1:]
}

func (api *Api) ParseDetail(raw map[string]any) (*source.Detail, error) {
	id := str(raw, "imdbID")
	if id == "" {
		return nil, source.Invalid("omdb payload has no imdbID")
	}
	languages := splitList(str(raw, "Language"))
	d := &source.Detail{
		Source:      source.SourceOMDB,
		ExternalID:  id,
		Title:       str(raw, "Title"),
		Year:        parseYear(str(raw, "Year")),
		Runtime:     parseRuntime(str(raw, "Runtime")),
		Plot:        str(raw, "Plot"),
		Country:     str(raw, "Country"),
		PosterURL:   str(raw, "Poster"),
		Rating:      parseFloat(str(raw, "imdbRating")),
		VoteCount:   parseVotes(str(raw, "imdbVotes")),
		ReleaseDate: str(raw, "Released"),
		Raw:         raw,
	}
	if len(languages) > 0 {
		d.Language = strings.Join(languages, ", ")
	}
	for i, name := range splitList(str(raw, "Actors")) {
		order := i
		d.Cast = append(d.Cast, source.CastMember{
			Person: source.PersonRef{Source: source.SourceOMDB},
			Name:   name,
			Order:  &order,
		})
	}
	for _, name := range splitList(str(raw, "Director")) {
		n, job := splitCredit(name, "Director")
		d.Crew = append(d.Crew, source.CrewMember{
			Person:     source.PersonRef{Source: source.SourceOMDB},
			Name:       n,
			Job:        job,
			Department: "Directing",
		})
	}
	for _, name := range splitList(str(raw, "Writer")) {
		n, job := splitCredit(name, "Writer")
		d.Crew = append(d.Crew, source.CrewMember{
			Person:     source.PersonRef{Source: source.SourceOMDB},
			Name:       n,
			Job:        job,
			Department: "Writing",
		})
	}
	for _, g := range splitList(str(raw, "Genre")) {
		d.Genres = append(d.Genres, source.Genre{Name: g})
	}
	return d, nil
}

var _ source.Adapter = (*Api)(nil)
