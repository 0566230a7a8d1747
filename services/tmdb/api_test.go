package tmdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umdb-app/umdb/services/source"
)

const inceptionJSON = `{
	"id": 27205,
	"title": "Inception",
	"original_title": "Inception",
	"original_language": "en",
	"overview": "Cobb, a skilled thief.",
	"tagline": "Your mind is the scene of the crime.",
	"poster_path": "/poster.jpg",
	"backdrop_path": "/backdrop.jpg",
	"release_date": "2010-07-15",
	"runtime": 148,
	"vote_average": 8.4,
	"vote_count": 35000,
	"production_countries": [
		{"iso_3166_1": "GB", "name": "United Kingdom"},
		{"iso_3166_1": "US", "name": "United States of America"}
	],
	"genres": [{"id": 28, "name": "Action"}, {"id": 878, "name": "Science Fiction"}],
	"credits": {
		"cast": [
			{"id": 6193, "name": "Leonardo DiCaprio", "character": "Cobb", "order": 0, "profile_path": "/leo.jpg"},
			{"id": 24045, "name": "Joseph Gordon-Levitt", "character": "Arthur", "order": 1, "profile_path": null}
		],
		"crew": [
			{"id": 525, "name": "Christopher Nolan", "job": "Director", "department": "Directing"}
		]
	},
	"alternative_titles": {
		"titles": [
			{"iso_3166_1": "ES", "title": "Origen", "type": ""},
			{"iso_3166_1": "BR", "title": "A Origem", "type": "working title"}
		]
	}
}`

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *Api {
	srv := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(srv.Close)
	return NewWithURL(srv.URL, "https://image.tmdb.org/t/p", "token", srv.Client())
}

func TestApi_FetchDetail(t *testing.T) {
	api := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		assert.Equal(t, "/3/movie/27205", r.URL.Path)
		assert.Equal(t, "credits,alternative_titles", r.URL.Query().Get("append_to_response"))
		_, _ = w.Write([]byte(inceptionJSON))
	})

	d, err := api.FetchDetail(context.Background(), "27205")

	require.NoError(t, err)
	assert.Equal(t, source.SourceTMDB, d.Source)
	assert.Equal(t, "27205", d.ExternalID)
	assert.Equal(t, "Inception", d.Title)
	require.NotNil(t, d.Year)
	assert.Equal(t, 2010, *d.Year)
	require.NotNil(t, d.Runtime)
	assert.Equal(t, 148, *d.Runtime)
	require.NotNil(t, d.VoteCount)
	assert.Equal(t, 35000, *d.VoteCount)
	assert.Equal(t, "en", d.Language)
	assert.Equal(t, "United Kingdom, United States of America", d.Country)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/poster.jpg", d.PosterURL)
	assert.Equal(t, "https://image.tmdb.org/t/p/original/backdrop.jpg", d.BackdropURL)
	assert.Equal(t, "2010-07-15", d.ReleaseDate)

	require.Len(t, d.Genres, 2)
	require.NotNil(t, d.Genres[1].ID)
	assert.Equal(t, 878, *d.Genres[1].ID)

	require.Len(t, d.Cast, 2)
	assert.Equal(t, source.PersonRef{Source: source.SourceTMDB, ExternalID: "6193"}, d.Cast[0].Person)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/leo.jpg", d.Cast[0].PhotoURL)
	assert.Empty(t, d.Cast[1].PhotoURL)
	require.NotNil(t, d.Cast[1].Order)
	assert.Equal(t, 1, *d.Cast[1].Order)

	require.Len(t, d.Crew, 1)
	assert.Equal(t, "Directing", d.Crew[0].Department)

	require.Len(t, d.AlternativeTitles, 2)
	assert.Equal(t, source.AlternativeTitle{Title: "A Origem", Region: "BR", Type: "working title"}, d.AlternativeTitles[1])
	assert.EqualValues(t, 27205, d.Raw["id"])
}

func TestApi_FetchDetail_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"not found", http.StatusNotFound, source.ErrNotFound},
		{"bad token", http.StatusUnauthorized, source.ErrSourceUnavailable},
		{"server error", http.StatusBadGateway, source.ErrSourceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			_, err := api.FetchDetail(context.Background(), "27205")

			assert.True(t, errors.Is(err, tt.want))
		})
	}
}

func TestApi_FetchDetail_NonNumericID(t *testing.T) {
	api := NewWithURL("http://127.0.0.1:1", "", "token", http.DefaultClient)

	_, err := api.FetchDetail(context.Background(), "tt1375666")

	assert.True(t, errors.Is(err, source.ErrValidation))
}

func TestApi_Search(t *testing.T) {
	api := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/3/search/movie", r.URL.Path)
		assert.Equal(t, "Inception", r.URL.Query().Get("query"))
		assert.Equal(t, "2010", r.URL.Query().Get("year"))
		_, _ = w.Write([]byte(`{"results": [
			{"id": 27205, "title": "Inception", "release_date": "2010-07-15", "poster_path": "/p.jpg", "vote_average": 8.4},
			{"id": 64956, "title": "Inception: The Cobol Job", "release_date": "", "poster_path": null, "vote_average": 7.1}
		]}`))
	})
	year := 2010

	res, err := api.Search(context.Background(), "Inception", &year)

	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "27205", res[0].ExternalID)
	require.NotNil(t, res[0].Year)
	assert.Equal(t, 2010, *res[0].Year)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/p.jpg", res[0].PosterURL)
	assert.Nil(t, res[1].Year)
	assert.Empty(t, res[1].PosterURL)
	require.NotNil(t, res[1].Rating)
	assert.InDelta(t, 7.1, *res[1].Rating, 1e-9)
}

func TestApi_Search_NoResults(t *testing.T) {
	api := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"page": 1, "results": [], "total_results": 0}`))
	})

	res, err := api.Search(context.Background(), "zzzzzz", nil)

	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestApi_NotConfigured(t *testing.T) {
	api := NewWithURL("http://127.0.0.1:1", "", "", http.DefaultClient)

	assert.False(t, api.Configured())
	_, err := api.Search(context.Background(), "Inception", nil)
	assert.True(t, errors.Is(err, source.ErrNotConfigured))
	_, err = api.FetchDetail(context.Background(), "27205")
	assert.True(t, errors.Is(err, source.ErrNotConfigured))
}

func TestApi_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	u := srv.URL
	srv.Close()
	api := NewWithURL(u, "", "token", http.DefaultClient)

	_, err := api.Search(context.Background(), "Inception", nil)

	assert.True(t, errors.Is(err, source.ErrSourceUnavailable))
	assert.False(t, errors.Is(err, source.ErrNotConfigured))
}

func TestApi_Search_DeadlineKeepsCause(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	api := NewWithURL(srv.URL, "", "token", srv.Client())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := api.Search(ctx, "Heat", nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, source.ErrSourceUnavailable))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestParseDetail_CachedPayload(t *testing.T) {
	api := NewWithURL("", "https://image.tmdb.org/t/p", "", nil)

	d, err := api.ParseDetail(map[string]any{
		"id":    float64(603),
		"title": "The Matrix",
		"credits": map[string]any{
			"cast": []any{map[string]any{"id": float64(6384), "name": "Keanu Reeves", "order": float64(0)}},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "603", d.ExternalID)
	require.Len(t, d.Cast, 1)
	assert.Equal(t, "6384", d.Cast[0].Person.ExternalID)
	assert.Nil(t, d.Runtime)
	assert.Nil(t, d.Rating)

	_, err = api.ParseDetail(map[string]any{"title": "No id"})
	assert.True(t, errors.Is(err, source.ErrValidation))
}
