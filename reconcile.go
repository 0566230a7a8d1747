package main

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	log "github.com/sirupsen/logrus"
	"github.com/umdb-app/umdb/services/migration"
	"github.com/umdb-app/umdb/services/reconcile"
	"github.com/umdb-app/umdb/services/source"
	"github.com/umdb-app/umdb/services/store"
	"github.com/urfave/cli"
	cs "github.com/webtor-io/common-services"
)

func makeReconcileCMD() cli.Command {
	reconcileCMD := cli.Command{
		Name:    "reconcile",
		Aliases: []string{"r"},
		Usage:   "Imports cast, crew, genres and alternative titles from saved matches",
		Action:  runReconcile,
	}
	configureReconcile(&reconcileCMD)
	return reconcileCMD
}

func configureReconcile(c *cli.Command) {
	c.Flags = append(c.Flags,
		cli.StringFlag{
			Name:  "id",
			Usage: "movie id, all movies when empty",
		},
		cli.StringFlag{
			Name:  "match-id",
			Usage: "reconcile from this match of the movie only",
		},
	)
	c.Flags = cs.RegisterPGFlags(c.Flags)
	c.Flags = migration.RegisterFlags(c.Flags)
	c.Flags = configureSources(c.Flags)
}

func runReconcile(c *cli.Context) error {
	// Setting DB
	pg := cs.NewPG(c)
	defer pg.Close()

	// Setting Migrations
	err := pgMigrate(c)
	if err != nil {
		return err
	}
	if pg.Get() == nil {
		return errors.New("db is nil")
	}

	// Setting Store
	st := store.New(pg)

	// Setting Importer
	im := makeImporter(makeRegistry(c, http.DefaultClient), st)

	ctx := context.Background()
	if id := c.String("id"); id != "" {
		movieID, err := uuid.FromString(id)
		if err != nil {
			return errors.Wrapf(err, "invalid movie id %v", id)
		}
		if mid := c.String("match-id"); mid != "" {
			matchID, err := uuid.FromString(mid)
			if err != nil {
				return errors.Wrapf(err, "invalid match id %v", mid)
			}
			_, err = im.ReconcileFromMatch(ctx, movieID, matchID)
			return err
		}
		_, err = im.Reconcile(ctx, movieID)
		return err
	}
	return reconcileAll(ctx, st, im)
}

func reconcileAll(ctx context.Context, st *store.PG, im *reconcile.Importer) error {
	ids, err := st.ListMovieIDs(ctx)
	if err != nil {
		return err
	}
	log.Infof("reconciling %v movies", len(ids))
	for _, id := range ids {
		_, err = im.Reconcile(ctx, id)
		if errors.Is(err, source.ErrValidation) {
			log.WithError(err).WithField("movie_id", id).Info("nothing to reconcile")
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}
