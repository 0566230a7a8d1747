package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/webtor-io/lazymap"
)

// Cached coalesces identical searches issued within a short window.
// Detail fetches always go to the catalog.
type Cached struct {
	Adapter
	searches *lazymap.LazyMap[[]Candidate]
}

// NewCached wraps a with a search cache. A non-positive ttl returns a unchanged.
func NewCached(a Adapter, ttl time.Duration) Adapter {
	if a == nil || ttl <= 0 {
		return a
	}
	return &Cached{
		Adapter: a,
		searches: lazymap.New[[]Candidate](&lazymap.Config{
			Expire:      ttl,
			ErrorExpire: time.Second,
		}),
	}
}

func searchKey(query string, year *int) string {
	y := ""
	if year != nil {
		y = fmt.Sprintf("%d", *year)
	}
	return strings.ToLower(strings.TrimSpace(query)) + "|" + y
}

func (s *Cached) Search(ctx context.Context, query string, year *int) ([]Candidate, error) {
	return s.searches.Get(searchKey(query, year), func() ([]Candidate, error) {
		return s.Adapter.Search(ctx, query, year)
	})
}

var _ Adapter = (*Cached)(nil)
