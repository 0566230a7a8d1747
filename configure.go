package main

import (
	"github.com/urfave/cli"
)

func configure(app *cli.App) {
	serveCMD := makeServeCMD()
	migrationCMD := makePGMigrationCMD()
	matchCMD := makeMatchCMD()
	reconcileCMD := makeReconcileCMD()
	app.Commands = []cli.Command{serveCMD, migrationCMD, matchCMD, reconcileCMD}
}
