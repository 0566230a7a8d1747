package matching

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/umdb-app/umdb/services/source"
	"github.com/urfave/cli"
)

const (
	// MaxCandidatesPerSource bounds how many raw hits per source get scored.
	MaxCandidatesPerSource = 5
	// DefaultSourceTimeout bounds every single adapter call.
	DefaultSourceTimeout = 8 * time.Second
)

const (
	SourceTimeoutFlag        = "source-timeout"
	PerSourceLimitFlag       = "match-per-source-limit"
	SourceSearchCacheTTLFlag = "source-search-cache-ttl"
)

func RegisterFlags(f []cli.Flag) []cli.Flag {
	return append(f,
		cli.DurationFlag{
			Name:   SourceTimeoutFlag,
			Usage:  "timeout of a single catalog call",
			EnvVar: "SOURCE_TIMEOUT",
			Value:  DefaultSourceTimeout,
		},
		cli.IntFlag{
			Name:   PerSourceLimitFlag,
			Usage:  "max search hits scored per catalog",
			EnvVar: "MATCH_PER_SOURCE_LIMIT",
			Value:  MaxCandidatesPerSource,
		},
		cli.DurationFlag{
			Name:   SourceSearchCacheTTLFlag,
			Usage:  "how long identical catalog searches are coalesced (0 disables)",
			EnvVar: "SOURCE_SEARCH_CACHE_TTL",
			Value:  30 * time.Second,
		},
	)
}

// ScoredCandidate is a search hit with its confidence against the query.
type ScoredCandidate struct {
	source.Candidate
	Confidence int `json:"confidence"`
}

// Finder searches every configured catalog in parallel and ranks the hits.
type Finder struct {
	adapters []source.Adapter
	timeout  time.Duration
	limit    int
}

func NewFinder(adapters []source.Adapter, timeout time.Duration, limit int) *Finder {
	if timeout <= 0 {
		timeout = DefaultSourceTimeout
	}
	if limit <= 0 {
		limit = MaxCandidatesPerSource
	}
	return &Finder{
		adapters: adapters,
		timeout:  timeout,
		limit:    limit,
	}
}

// FindMatches never fails because of a single catalog: failing catalogs
// contribute no candidates and are logged.
func (s *Finder) FindMatches(ctx context.Context, title string, year *int) ([]ScoredCandidate, error) {
	if title == "" {
		return nil, source.Invalid("title is required")
	}
	if len(s.adapters) == 0 {
		return []ScoredCandidate{}, nil
	}

	type result struct {
		index      int
		candidates []source.Candidate
		err        error
	}

	results := make(chan result, len(s.adapters))
	var wg sync.WaitGroup

	for i, a := range s.adapters {
		wg.Add(1)
		go func(index int, a source.Adapter) {
			defer wg.Done()

			sctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			c, err := a.Search(sctx, title, year)
			results <- result{
				index:      index,
				candidates: c,
				err:        err,
			}
		}(i, a)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([][]source.Candidate, len(s.adapters))

	for res := range results {
		if res.err != nil {
			l := log.WithError(res.err).WithField("source", s.adapters[res.index].Source())
			if errors.Is(res.err, context.DeadlineExceeded) {
				l.Warn("catalog search timed out, dropping results")
			} else {
				l.Warn("catalog search failed, dropping results")
			}
			continue
		}
		ordered[res.index] = res.candidates
	}

	matches := []ScoredCandidate{}
	for _, cs := range ordered {
		if len(cs) > s.limit {
			cs = cs[:s.limit]
		}
		for _, c := range cs {
			matches = append(matches, ScoredCandidate{
				Candidate:  c,
				Confidence: Confidence(title, c.Title, year, c.Year),
			})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
	return matches, nil
}

// Search returns raw per-catalog hits keyed by source; errors are reported per
// catalog instead of failing the call.
func (s *Finder) Search(ctx context.Context, query string, year *int) (map[source.Source][]source.Candidate, map[source.Source]error) {
	hits := map[source.Source][]source.Candidate{}
	failures := map[source.Source]error{}
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, a := range s.adapters {
		wg.Add(1)
		go func(a source.Adapter) {
			defer wg.Done()
			sctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			c, err := a.Search(sctx, query, year)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.WithError(err).WithField("source", a.Source()).Warn("catalog search failed")
				failures[a.Source()] = err
				return
			}
			if c == nil {
				c = []source.Candidate{}
			}
			hits[a.Source()] = c
		}(a)
	}
	wg.Wait()
	return hits, failures
}
