package omdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/umdb-app/umdb/services/source"
	"github.com/urfave/cli"
)

const (
	omdbApiKeyFlag    = "omdb-api-key"
	omdbApiSecureFlag = "omdb-api-secure"
	omdbApiHostFlag   = "omdb-api-host"
	omdbApiPortFlag   = "omdb-api-port"
)

func RegisterFlags(f []cli.Flag) []cli.Flag {
	return append(f,
		cli.StringFlag{
			Name:   omdbApiHostFlag,
			Usage:  "omdb api host",
			EnvVar: "OMDB_API_HOST",
			Value:  "www.omdbapi.com",
		},
		cli.IntFlag{
			Name:   omdbApiPortFlag,
			Usage:  "omdb api port",
			EnvVar: "OMDB_API_PORT",
			Value:  443,
		},
		cli.BoolTFlag{
			Name:   omdbApiSecureFlag,
			Usage:  "omdb api secure (https)",
			EnvVar: "OMDB_API_SECURE",
		},
		cli.StringFlag{
			Name:   omdbApiKeyFlag,
			Usage:  "omdb api key",
			Value:  "",
			EnvVar: "OMDB_API_KEY",
		},
	)
}

const NA = "N/A"

type Api struct {
	url string
	key string
	cl  *http.Client
}

func New(c *cli.Context, cl *http.Client) *Api {
	host := c.String(omdbApiHostFlag)
	port := c.Int(omdbApiPortFlag)
	secure := c.BoolT(omdbApiSecureFlag)
	protocol := "http"
	if secure {
		protocol = "https"
	}
	u := fmt.Sprintf("%v://%v:%v", protocol, host, port)
	key := c.String(omdbApiKeyFlag)
	if key == "" {
		log.Warn("omdb api key not set, omdb lookups disabled")
	} else {
		log.Infof("omdb api endpoint %v", u)
	}
	return NewWithURL(u, key, cl)
}

// NewWithURL builds an Api against an explicit base url.
func NewWithURL(u string, key string, cl *http.Client) *Api {
	return &Api{
		url: strings.TrimSuffix(u, "/"),
		key: key,
		cl:  cl,
	}
}

func (api *Api) Source() source.Source {
	return source.SourceOMDB
}

func (api *Api) Configured() bool {
	return api.key != ""
}

func (api *Api) get(ctx context.Context, params map[string]string) (map[string]any, error) {
	if !api.Configured() {
		return nil, source.NotConfigured(source.SourceOMDB)
	}
	req, err := http.NewRequestWithContext(ctx, "GET", api.url+"/", nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	q := req.URL.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	q.Set("apikey", api.key)
	req.URL.RawQuery = q.Encode()

	resp, err := api.cl.Do(req)
	if err != nil {
		return nil, source.Unavailable(source.SourceOMDB, errors.Wrap(err, "request failed"))
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, source.Unavailable(source.SourceOMDB, errors.New("invalid api key"))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, source.Unavailable(source.SourceOMDB, errors.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, source.Unavailable(source.SourceOMDB, errors.Wrap(err, "decode response"))
	}
	return raw, nil
}

func responseError(raw map[string]any) (string, bool) {
	if r, _ := raw["Response"].(string); r == "True" {
		return "", false
	}
	msg, _ := raw["Error"].(string)
	return msg, true
}

func isNotFound(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "not found")
}

func (api *Api) Search(ctx context.Context, query string, year *int) ([]source.Candidate, error) {
	params := map[string]string{
		"s":    strings.TrimSpace(query),
		"type": "movie",
	}
	if year != nil {
		params["y"] = strconv.Itoa(*year)
	}
	raw, err := api.get(ctx, params)
	if err != nil {
		return nil, err
	}
	if msg, failed := responseError(raw); failed {
		if isNotFound(msg) {
			return nil, nil
		}
		return nil, source.Unavailable(source.SourceOMDB, errors.Errorf("omdb error: %v", msg))
	}
	items, _ := raw["Search"].([]any)
	res := make([]source.Candidate, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		id := str(m, "imdbID")
		if id == "" {
			continue
		}
		res = append(res, source.Candidate{
			Source:     source.SourceOMDB,
			ExternalID: id,
			Title:      str(m, "Title"),
			Year:       parseYear(str(m, "Year")),
			PosterURL:  str(m, "Poster"),
		})
	}
	return res, nil
}

func (api *Api) FetchDetail(ctx context.Context, externalID string) (*source.Detail, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, source.Invalid("imdb id is required")
	}
	raw, err := api.get(ctx, map[string]string{
		"i":    externalID,
		"plot": "full",
	})
	if err != nil {
		return nil, err
	}
	if msg, failed := responseError(raw); failed {
		if isNotFound(msg) || strings.Contains(strings.ToLower(msg), "incorrect imdb id") {
			return nil, source.NotFound(source.SourceOMDB, externalID)
		}
		return nil, source.Unavailable(source.SourceOMDB, errors.Errorf("omdb error: %v", msg))
	}
	return api.ParseDetail(raw)
}
