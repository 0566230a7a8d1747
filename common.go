package main

import (
	"net/http"

	"github.com/umdb-app/umdb/services/matching"
	"github.com/umdb-app/umdb/services/omdb"
	"github.com/umdb-app/umdb/services/reconcile"
	"github.com/umdb-app/umdb/services/source"
	"github.com/umdb-app/umdb/services/store"
	"github.com/umdb-app/umdb/services/tmdb"
	"github.com/urfave/cli"
)

func configureSources(f []cli.Flag) []cli.Flag {
	f = tmdb.RegisterFlags(f)
	f = omdb.RegisterFlags(f)
	f = matching.RegisterFlags(f)
	return f
}

func makeRegistry(c *cli.Context, cl *http.Client) *source.Registry {
	ttl := c.Duration(matching.SourceSearchCacheTTLFlag)

	// Setting TMDB API
	tmdbApi := tmdb.New(c, cl)

	// Setting OMDB API
	omdbApi := omdb.New(c, cl)

	// Setting Registry, OMDB also serves IMDB ids
	return source.NewRegistry().
		Register(source.NewCached(tmdbApi, ttl)).
		Register(source.NewCached(omdbApi, ttl), source.SourceIMDB)
}

func makeFinder(c *cli.Context, reg *source.Registry) *matching.Finder {
	return matching.NewFinder(
		reg.Configured(),
		c.Duration(matching.SourceTimeoutFlag),
		c.Int(matching.PerSourceLimitFlag),
	)
}

func makeStore(c *cli.Context, reg *source.Registry, st *store.PG) *matching.Store {
	return matching.NewStore(reg, st, c.Duration(matching.SourceTimeoutFlag))
}

func makeImporter(reg *source.Registry, st *store.PG) *reconcile.Importer {
	return reconcile.New(reg, st)
}
