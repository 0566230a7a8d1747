package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/umdb-app/umdb/services/source"
	"github.com/urfave/cli"
)

const (
	tokenFlag     = "tmdb-api-token"
	hostFlag      = "tmdb-api-host"
	portFlag      = "tmdb-api-port"
	secureFlag    = "tmdb-api-secure"
	imageHostFlag = "tmdb-image-host"
)

func RegisterFlags(f []cli.Flag) []cli.Flag {
	return append(f,
		cli.StringFlag{
			Name:   hostFlag,
			Usage:  "tmdb api host",
			EnvVar: "TMDB_API_HOST",
			Value:  "api.themoviedb.org",
		},
		cli.IntFlag{
			Name:   portFlag,
			Usage:  "tmdb api port",
			EnvVar: "TMDB_API_PORT",
			Value:  443,
		},
		cli.BoolTFlag{
			Name:   secureFlag,
			Usage:  "tmdb api secure (https)",
			EnvVar: "TMDB_API_SECURE",
		},
		cli.StringFlag{
			Name:   tokenFlag,
			Usage:  "tmdb api read access token",
			Value:  "",
			EnvVar: "TMDB_API_TOKEN",
		},
		cli.StringFlag{
			Name:   imageHostFlag,
			Usage:  "tmdb image base url",
			EnvVar: "TMDB_IMAGE_HOST",
			Value:  "https://image.tmdb.org/t/p",
		},
	)
}

type Api struct {
	url            string
	imageURL       string
	configured     bool
	cl             *http.Client
	prepareRequest func(r *http.Request) (*http.Request, error)
}

type searchResponse struct {
	Results []struct {
		ID            int     `json:"id"`
		Title         string  `json:"title"`
		OriginalTitle string  `json:"original_title"`
		ReleaseDate   string  `json:"release_date"`
		PosterPath    string  `json:"poster_path"`
		VoteAverage   float64 `json:"vote_average"`
	} `json:"results"`
}

func New(c *cli.Context, cl *http.Client) *Api {
	host := c.String(hostFlag)
	port := c.Int(portFlag)
	secure := c.BoolT(secureFlag)
	protocol := "http"
	if secure {
		protocol = "https"
	}
	u := fmt.Sprintf("%v://%v:%v", protocol, host, port)
	token := c.String(tokenFlag)
	if token == "" {
		log.Warn("tmdb api token not set, tmdb lookups disabled")
	} else {
		log.Infof("tmdb api endpoint %v", u)
	}
	return NewWithURL(u, c.String(imageHostFlag), token, cl)
}

// NewWithURL builds an Api against an explicit base url.
func NewWithURL(u string, imageURL string, token string, cl *http.Client) *Api {
	return &Api{
		url:        strings.TrimSuffix(u, "/"),
		imageURL:   strings.TrimSuffix(imageURL, "/"),
		configured: token != "",
		cl:         cl,
		prepareRequest: func(r *http.Request) (*http.Request, error) {
			r.Header.Set("Authorization", "Bearer "+token)
			r.Header.Set("Accept", "application/json")
			return r, nil
		},
	}
}

func (api *Api) Source() source.Source {
	return source.SourceTMDB
}

func (api *Api) Configured() bool {
	return api.configured
}

func (api *Api) do(ctx context.Context, u string, externalID string) ([]byte, error) {
	if !api.configured {
		return nil, source.NotConfigured(source.SourceTMDB)
	}
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req, err = api.prepareRequest(req)
	if err != nil {
		return nil, errors.Wrap(err, "prepare request")
	}
	resp, err := api.cl.Do(req)
	if err != nil {
		return nil, source.Unavailable(source.SourceTMDB, errors.Wrap(err, "request failed"))
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound && externalID != "":
		return nil, source.NotFound(source.SourceTMDB, externalID)
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, source.Unavailable(source.SourceTMDB, errors.New("invalid api token"))
	case resp.StatusCode != http.StatusOK:
		return nil, source.Unavailable(source.SourceTMDB, errors.Errorf("unexpected status code: %d", resp.StatusCode))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, source.Unavailable(source.SourceTMDB, errors.Wrap(err, "read response"))
	}
	return data, nil
}

func (api *Api) Search(ctx context.Context, query string, year *int) ([]source.Candidate, error) {
	u, _ := url.Parse(fmt.Sprintf("%s/3/search/movie", api.url))
	q := u.Query()
	q.Set("query", strings.TrimSpace(query))
	q.Set("include_adult", "false")
	if year != nil {
		q.Set("year", strconv.Itoa(*year))
	}
	u.RawQuery = q.Encode()

	data, err := api.do(ctx, u.String(), "")
	if err != nil {
		return nil, err
	}
	var sr searchResponse
	if err := json.Unmarshal(data, &sr); err != nil {
		return nil, source.Unavailable(source.SourceTMDB, errors.Wrap(err, "decode response"))
	}
	res := make([]source.Candidate, 0, len(sr.Results))
	for _, r := range sr.Results {
		rating := r.VoteAverage
		res = append(res, source.Candidate{
			Source:     source.SourceTMDB,
			ExternalID: strconv.Itoa(r.ID),
			Title:      r.Title,
			Year:       yearFromDate(r.ReleaseDate),
			PosterURL:  api.imageLink(r.PosterPath, posterSize),
			Rating:     &rating,
		})
	}
	return res, nil
}

func (api *Api) FetchDetail(ctx context.Context, externalID string) (*source.Detail, error) {
	externalID = strings.TrimSpace(externalID)
	id, err := strconv.Atoi(externalID)
	if err != nil || id <= 0 {
		return nil, source.Invalid("tmdb id must be numeric, got %q", externalID)
	}
	u := fmt.Sprintf("%s/3/movie/%d?append_to_response=credits,alternative_titles", api.url, id)
	data, err := api.do(ctx, u, externalID)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, source.Unavailable(source.SourceTMDB, errors.Wrap(err, "decode raw metadata"))
	}
	return api.ParseDetail(raw)
}
