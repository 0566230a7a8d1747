package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	wm "github.com/umdb-app/umdb/handlers/match"
	"github.com/umdb-app/umdb/services/migration"
	"github.com/umdb-app/umdb/services/store"
	w "github.com/umdb-app/umdb/services/web"
	"github.com/urfave/cli"
	cs "github.com/webtor-io/common-services"
)

func makeServeCMD() cli.Command {
	serveCMD := cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Serves web server",
		Action:  serve,
	}
	configureServe(&serveCMD)
	return serveCMD
}

func configureServe(c *cli.Command) {
	c.Flags = cs.RegisterPGFlags(c.Flags)
	c.Flags = cs.RegisterProbeFlags(c.Flags)
	c.Flags = migration.RegisterFlags(c.Flags)
	c.Flags = w.RegisterFlags(c.Flags)
	c.Flags = wm.RegisterFlags(c.Flags)
	c.Flags = configureSources(c.Flags)
}

func serve(c *cli.Context) error {
	// Setting HTTP Client
	cl := http.DefaultClient

	// Setting DB
	pg := cs.NewPG(c)
	defer pg.Close()

	// Setting Migrations
	err := pgMigrate(c)
	if err != nil {
		return err
	}

	var servers []cs.Servable
	// Setting Probe
	probe := cs.NewProbe(c)
	if probe != nil {
		servers = append(servers, probe)
		defer probe.Close()
	}

	// Setting Gin
	r := gin.Default()
	r.RedirectTrailingSlash = false

	// Setting Web
	web, err := w.New(c, r)
	if err != nil {
		return err
	}
	servers = append(servers, web)
	defer web.Close()

	// Setting Store
	st := store.New(pg)

	// Setting Sources
	reg := makeRegistry(c, cl)

	// Setting MatchHandler
	h := wm.New(makeFinder(c, reg), makeStore(c, reg, st), makeImporter(reg, st), st)
	wm.RegisterHandler(c, r, h)

	// Setting Serve
	serve := cs.NewServe(servers...)

	// And SERVE!
	err = serve.Serve()
	if err != nil {
		log.WithError(err).Error("got server error")
	}
	return err
}
