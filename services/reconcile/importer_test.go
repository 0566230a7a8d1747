package reconcile

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umdb-app/umdb/models"
	"github.com/umdb-app/umdb/services/source"
)

type linkKey struct {
	movieID  uuid.UUID
	personID uuid.UUID
	role     models.Role
}

type titleKey struct {
	movieID uuid.UUID
	title   string
	region  string
}

type genreLinkKey struct {
	movieID uuid.UUID
	genreID uuid.UUID
}

// memRepository mirrors the unique constraints of the schema in memory
type memRepository struct {
	mu         sync.Mutex
	movies     map[uuid.UUID]*models.Movie
	matches    map[uuid.UUID]*models.ExternalMatch
	people     []*models.Person
	links      map[linkKey]*models.MoviePerson
	titles     map[titleKey]*models.AlternativeTitle
	genres     []*models.Genre
	genreLinks map[genreLinkKey]bool
	failPerson string
}

func newMemRepository() *memRepository {
	return &memRepository{
		movies:     map[uuid.UUID]*models.Movie{},
		matches:    map[uuid.UUID]*models.ExternalMatch{},
		links:      map[linkKey]*models.MoviePerson{},
		titles:     map[titleKey]*models.AlternativeTitle{},
		genreLinks: map[genreLinkKey]bool{},
	}
}

func (m *memRepository) GetMovie(ctx context.Context, movieID uuid.UUID) (*models.Movie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.movies[movieID], nil
}

func (m *memRepository) GetExternalMatch(ctx context.Context, matchID uuid.UUID) (*models.ExternalMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matches[matchID], nil
}

func (m *memRepository) GetExternalMatches(ctx context.Context, movieID uuid.UUID) ([]*models.ExternalMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []*models.ExternalMatch
	for _, em := range m.matches {
		if uuid.Equal(em.MovieID, movieID) {
			res = append(res, em)
		}
	}
	return res, nil
}

func (m *memRepository) FindOrCreatePerson(ctx context.Context, p *models.Person) (*models.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPerson != "" && p.Name == m.failPerson {
		return nil, errors.New("constraint violation")
	}
	for _, e := range m.people {
		if p.TmdbID != nil && e.TmdbID != nil && *p.TmdbID == *e.TmdbID {
			return e, nil
		}
		if p.TmdbID == nil && p.ImdbID != nil && e.ImdbID != nil && *p.ImdbID == *e.ImdbID {
			return e, nil
		}
	}
	c := *p
	c.PersonID = uuid.NewV4()
	m.people = append(m.people, &c)
	return &c, nil
}

func (m *memRepository) FindLinkedPerson(ctx context.Context, movieID uuid.UUID, role models.Role, name string) (*models.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.links {
		if !uuid.Equal(k.movieID, movieID) || k.role != role {
			continue
		}
		for _, p := range m.people {
			if uuid.Equal(p.PersonID, k.personID) && strings.EqualFold(p.Name, name) {
				return p, nil
			}
		}
	}
	return nil, nil
}

func (m *memRepository) LinkPerson(ctx context.Context, mp *models.MoviePerson) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := linkKey{mp.MovieID, mp.PersonID, mp.Role}
	if _, ok := m.links[k]; ok {
		return false, nil
	}
	c := *mp
	m.links[k] = &c
	return true, nil
}

func (m *memRepository) AddAlternativeTitle(ctx context.Context, t *models.AlternativeTitle) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := titleKey{t.MovieID, t.Title, t.Region}
	if _, ok := m.titles[k]; ok {
		return false, nil
	}
	c := *t
	m.titles[k] = &c
	return true, nil
}

func (m *memRepository) FindOrCreateGenre(ctx context.Context, name string, tmdbID *int) (*models.Genre, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tmdbID != nil {
		for _, g := range m.genres {
			if g.TmdbID != nil && *g.TmdbID == *tmdbID {
				return g, nil
			}
		}
	}
	for _, g := range m.genres {
		if strings.EqualFold(g.Name, name) {
			if g.TmdbID == nil {
				g.TmdbID = tmdbID
			}
			return g, nil
		}
	}
	g := &models.Genre{GenreID: uuid.NewV4(), Name: name, TmdbID: tmdbID}
	m.genres = append(m.genres, g)
	return g, nil
}

func (m *memRepository) LinkGenre(ctx context.Context, movieID uuid.UUID, genreID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := genreLinkKey{movieID, genreID}
	if m.genreLinks[k] {
		return false, nil
	}
	m.genreLinks[k] = true
	return true, nil
}

// parsingAdapter returns a fixed detail for any cached payload
type parsingAdapter struct {
	src    source.Source
	detail *source.Detail
}

func (m *parsingAdapter) Source() source.Source { return m.src }
func (m *parsingAdapter) Configured() bool      { return true }
func (m *parsingAdapter) Search(ctx context.Context, query string, year *int) ([]source.Candidate, error) {
	return nil, nil
}
func (m *parsingAdapter) FetchDetail(ctx context.Context, externalID string) (*source.Detail, error) {
	return m.detail, nil
}
func (m *parsingAdapter) ParseDetail(raw map[string]any) (*source.Detail, error) {
	if len(raw) == 0 {
		return nil, source.Invalid("empty payload")
	}
	d := *m.detail
	return &d, nil
}

func intPtr(v int) *int {
	return &v
}

func tmdbRef(id int) source.PersonRef {
	return source.PersonRef{Source: source.SourceTMDB, ExternalID: fmt.Sprintf("%d", id)}
}

func tmdbDetail() *source.Detail {
	return &source.Detail{
		Source:     source.SourceTMDB,
		ExternalID: "27205",
		Title:      "Inception",
		Cast: []source.CastMember{
			{Person: tmdbRef(6193), Name: "Leonardo DiCaprio", Character: "Cobb", Order: intPtr(0)},
			{Person: tmdbRef(24045), Name: "Joseph Gordon-Levitt", Character: "Arthur", Order: intPtr(1)},
		},
		Crew: []source.CrewMember{
			{Person: tmdbRef(525), Name: "Christopher Nolan", Job: "Director", Department: "Directing"},
			{Person: tmdbRef(525), Name: "Christopher Nolan", Job: "Screenplay", Department: "Writing"},
			{Person: tmdbRef(556), Name: "Emma Thomas", Job: "Producer", Department: "Production"},
			{Person: tmdbRef(557), Name: "John Papsidera", Job: "Casting", Department: "Production"},
			{Person: tmdbRef(947), Name: "Hans Zimmer", Job: "Original Music Composer", Department: "Sound"},
			{Person: tmdbRef(559), Name: "Wally Pfister", Job: "Director of Photography", Department: "Camera"},
			{Person: tmdbRef(560), Name: "Someone", Job: "Driver", Department: "Crew"},
		},
		Genres: []source.Genre{
			{ID: intPtr(28), Name: "Action"},
			{ID: intPtr(878), Name: "Science Fiction"},
		},
		AlternativeTitles: []source.AlternativeTitle{
			{Title: "El origen", Region: "ES"},
			{Title: "El origen", Region: "ES"},
			{Title: "El origen", Region: "MX"},
			{Title: "Origem"},
		},
	}
}

func roles(repo *memRepository, movieID uuid.UUID) map[models.Role]int {
	res := map[models.Role]int{}
	for k := range repo.links {
		if uuid.Equal(k.movieID, movieID) {
			res[k.role]++
		}
	}
	return res
}

func TestImportCastAndCrew_Idempotent(t *testing.T) {
	repo := newMemRepository()
	im := New(source.NewRegistry(), repo)
	movieID := uuid.NewV4()
	ctx := context.Background()

	first, err := im.ImportCastAndCrew(ctx, movieID, tmdbDetail())
	require.NoError(t, err)
	links := len(repo.links)
	people := len(repo.people)

	second, err := im.ImportCastAndCrew(ctx, movieID, tmdbDetail())
	require.NoError(t, err)

	assert.Equal(t, links, first.People)
	assert.Equal(t, 0, second.People)
	assert.Len(t, repo.links, links)
	assert.Len(t, repo.people, people)
}

func TestImportCastAndCrew_PartitionsCrew(t *testing.T) {
	repo := newMemRepository()
	im := New(source.NewRegistry(), repo)
	movieID := uuid.NewV4()

	_, err := im.ImportCastAndCrew(context.Background(), movieID, tmdbDetail())
	require.NoError(t, err)

	r := roles(repo, movieID)
	assert.Equal(t, 2, r[models.RoleActor])
	assert.Equal(t, 1, r[models.RoleDirector])
	assert.Equal(t, 1, r[models.RoleWriter])
	assert.Equal(t, 1, r[models.RoleProducer])
	assert.Equal(t, 2, r[models.RoleCrew])
	// director and writer share one person
	assert.Len(t, repo.people, 6)

	for _, l := range repo.links {
		if l.Role == models.RoleCrew {
			assert.NotEmpty(t, l.Job)
		}
		if l.Role == models.RoleActor && l.Character == "Cobb" {
			require.NotNil(t, l.BillingOrder)
			assert.Equal(t, 0, *l.BillingOrder)
		}
	}
}

func TestImportCastAndCrew_CapsKeyCrew(t *testing.T) {
	d := &source.Detail{Source: source.SourceTMDB}
	for i := 0; i < MaxKeyCrew+15; i++ {
		d.Crew = append(d.Crew, source.CrewMember{
			Person:     tmdbRef(1000 + i),
			Name:       fmt.Sprintf("Grip %d", i),
			Job:        "Editor",
			Department: "Editing",
		})
	}
	d.Crew = append(d.Crew, source.CrewMember{Person: tmdbRef(1), Name: "Late Director", Job: "Director", Department: "Directing"})
	repo := newMemRepository()
	movieID := uuid.NewV4()

	_, err := New(source.NewRegistry(), repo).ImportCastAndCrew(context.Background(), movieID, d)
	require.NoError(t, err)

	r := roles(repo, movieID)
	assert.Equal(t, MaxKeyCrew, r[models.RoleCrew])
	assert.Equal(t, 1, r[models.RoleDirector])
}

func TestImportCastAndCrew_ContinuesAfterItemFailure(t *testing.T) {
	repo := newMemRepository()
	repo.failPerson = "Leonardo DiCaprio"
	movieID := uuid.NewV4()

	sum, err := New(source.NewRegistry(), repo).ImportCastAndCrew(context.Background(), movieID, tmdbDetail())

	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, roles(repo, movieID)[models.RoleActor])
	assert.Equal(t, 1, roles(repo, movieID)[models.RoleDirector])
}

func TestImportCastAndCrew_NameOnlyPeopleAreIdempotent(t *testing.T) {
	d := &source.Detail{
		Source: source.SourceOMDB,
		Cast: []source.CastMember{
			{Person: source.PersonRef{Source: source.SourceOMDB}, Name: "Al Pacino", Order: intPtr(0)},
			{Person: source.PersonRef{Source: source.SourceOMDB}, Name: "Robert De Niro", Order: intPtr(1)},
		},
		Crew: []source.CrewMember{
			{Person: source.PersonRef{Source: source.SourceOMDB}, Name: "Michael Mann", Job: "Director", Department: "Directing"},
			{Person: source.PersonRef{Source: source.SourceOMDB}, Name: "Michael Mann", Job: "Writer", Department: "Writing"},
		},
	}
	repo := newMemRepository()
	im := New(source.NewRegistry(), repo)
	movieID := uuid.NewV4()
	ctx := context.Background()

	_, err := im.ImportCastAndCrew(ctx, movieID, d)
	require.NoError(t, err)
	people := len(repo.people)
	second, err := im.ImportCastAndCrew(ctx, movieID, d)
	require.NoError(t, err)

	assert.Equal(t, 0, second.People)
	assert.Len(t, repo.people, people)
	assert.Len(t, repo.links, 4)
}

func TestImportCastAndCrew_ImdbPersonIDs(t *testing.T) {
	d := &source.Detail{
		Source: source.SourceIMDB,
		Cast: []source.CastMember{
			{Person: source.PersonRef{Source: source.SourceIMDB, ExternalID: "nm0000199"}, Name: "Al Pacino"},
		},
	}
	repo := newMemRepository()

	_, err := New(source.NewRegistry(), repo).ImportCastAndCrew(context.Background(), uuid.NewV4(), d)

	require.NoError(t, err)
	require.Len(t, repo.people, 1)
	require.NotNil(t, repo.people[0].ImdbID)
	assert.Equal(t, "nm0000199", *repo.people[0].ImdbID)
	assert.Nil(t, repo.people[0].TmdbID)
}

func TestImportAlternateTitles_OneRowPerTitleAndRegion(t *testing.T) {
	repo := newMemRepository()
	im := New(source.NewRegistry(), repo)
	movieID := uuid.NewV4()
	ctx := context.Background()

	first, err := im.ImportAlternateTitles(ctx, movieID, tmdbDetail())
	require.NoError(t, err)
	second, err := im.ImportAlternateTitles(ctx, movieID, tmdbDetail())
	require.NoError(t, err)

	assert.Equal(t, 3, first.AlternativeTitles)
	assert.Equal(t, 0, second.AlternativeTitles)
	assert.Len(t, repo.titles, 3)
	assert.Contains(t, repo.titles, titleKey{movieID, "Origem", ""})
	assert.Equal(t, source.SourceTMDB, repo.titles[titleKey{movieID, "El origen", "ES"}].Source)
}

func TestImportGenres(t *testing.T) {
	repo := newMemRepository()
	im := New(source.NewRegistry(), repo)
	movieID := uuid.NewV4()
	otherID := uuid.NewV4()
	ctx := context.Background()

	// OMDB knows genres by name only
	_, err := im.ImportGenres(ctx, otherID, &source.Detail{Genres: []source.Genre{{Name: "action"}}})
	require.NoError(t, err)

	first, err := im.ImportGenres(ctx, movieID, tmdbDetail())
	require.NoError(t, err)
	second, err := im.ImportGenres(ctx, movieID, tmdbDetail())
	require.NoError(t, err)

	assert.Equal(t, 2, first.Genres)
	assert.Equal(t, 0, second.Genres)
	require.Len(t, repo.genres, 2)
	require.NotNil(t, repo.genres[0].TmdbID)
	assert.Equal(t, 28, *repo.genres[0].TmdbID)
	assert.Len(t, repo.genreLinks, 3)
}

func TestImport_NilDetail(t *testing.T) {
	im := New(source.NewRegistry(), newMemRepository())

	_, err := im.ImportCastAndCrew(context.Background(), uuid.NewV4(), nil)
	assert.True(t, errors.Is(err, source.ErrValidation))
	_, err = im.ImportAlternateTitles(context.Background(), uuid.NewV4(), nil)
	assert.True(t, errors.Is(err, source.ErrValidation))
	_, err = im.ImportGenres(context.Background(), uuid.NewV4(), nil)
	assert.True(t, errors.Is(err, source.ErrValidation))
}

func newReconcileFixture() (*Importer, *memRepository, *models.Movie) {
	repo := newMemRepository()
	mv := &models.Movie{MovieID: uuid.NewV4(), Title: "Inception"}
	repo.movies[mv.MovieID] = mv
	reg := source.NewRegistry().
		Register(&parsingAdapter{src: source.SourceTMDB, detail: tmdbDetail()}).
		Register(&parsingAdapter{src: source.SourceOMDB, detail: &source.Detail{
			Source: source.SourceOMDB,
			Genres: []source.Genre{{Name: "Thriller"}},
		}}, source.SourceIMDB)
	return New(reg, repo), repo, mv
}

func addMatch(repo *memRepository, movieID uuid.UUID, src source.Source, raw map[string]any) *models.ExternalMatch {
	m := &models.ExternalMatch{
		ExternalMatchID: uuid.NewV4(),
		MovieID:         movieID,
		Source:          src,
		CachedData:      raw,
	}
	repo.matches[m.ExternalMatchID] = m
	return m
}

func TestReconcile_PrefersTMDB(t *testing.T) {
	im, repo, mv := newReconcileFixture()
	addMatch(repo, mv.MovieID, source.SourceOMDB, map[string]any{"imdbID": "tt1375666"})
	tm := addMatch(repo, mv.MovieID, source.SourceTMDB, map[string]any{"id": float64(27205)})

	sum, err := im.Reconcile(context.Background(), mv.MovieID)

	require.NoError(t, err)
	assert.Equal(t, source.SourceTMDB, sum.Source)
	require.NotNil(t, sum.MatchID)
	assert.Equal(t, tm.ExternalMatchID, *sum.MatchID)
	assert.Equal(t, 2, sum.Genres)
	assert.Equal(t, 3, sum.AlternativeTitles)

	again, err := im.Reconcile(context.Background(), mv.MovieID)
	require.NoError(t, err)
	assert.Equal(t, 0, again.People+again.Genres+again.AlternativeTitles)
}

func TestReconcile_SkipsMatchesWithoutPayload(t *testing.T) {
	im, repo, mv := newReconcileFixture()
	addMatch(repo, mv.MovieID, source.SourceTMDB, nil)
	addMatch(repo, mv.MovieID, source.SourceIMDB, map[string]any{"imdbID": "tt1375666"})

	sum, err := im.Reconcile(context.Background(), mv.MovieID)

	require.NoError(t, err)
	assert.Equal(t, source.SourceIMDB, sum.Source)
	assert.Equal(t, 1, sum.Genres)
}

func TestReconcile_Errors(t *testing.T) {
	im, _, mv := newReconcileFixture()

	_, err := im.Reconcile(context.Background(), uuid.NewV4())
	assert.True(t, errors.Is(err, source.ErrNotFound))

	_, err = im.Reconcile(context.Background(), mv.MovieID)
	assert.True(t, errors.Is(err, source.ErrValidation))
}

func TestReconcileFromMatch(t *testing.T) {
	im, repo, mv := newReconcileFixture()
	om := addMatch(repo, mv.MovieID, source.SourceOMDB, map[string]any{"imdbID": "tt1375666"})
	foreign := addMatch(repo, uuid.NewV4(), source.SourceTMDB, map[string]any{"id": float64(1)})

	sum, err := im.ReconcileFromMatch(context.Background(), mv.MovieID, om.ExternalMatchID)
	require.NoError(t, err)
	assert.Equal(t, source.SourceOMDB, sum.Source)

	_, err = im.ReconcileFromMatch(context.Background(), mv.MovieID, foreign.ExternalMatchID)
	assert.True(t, errors.Is(err, source.ErrValidation))

	_, err = im.ReconcileFromMatch(context.Background(), mv.MovieID, uuid.NewV4())
	assert.True(t, errors.Is(err, source.ErrNotFound))
}
