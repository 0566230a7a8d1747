package migration

import (
	"github.com/go-pg/migrations/v8"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	services "github.com/webtor-io/common-services"
)

const (
	dirFlag = "migrations-dir"
)

func RegisterFlags(f []cli.Flag) []cli.Flag {
	return append(f,
		cli.StringFlag{
			Name:   dirFlag,
			Usage:  "directory with sql migrations",
			Value:  "migrations",
			EnvVar: "MIGRATIONS_DIR",
		},
	)
}

// PGMigration applies the sql schema migrations found in dir.
type PGMigration struct {
	db  *services.PG
	col *migrations.Collection
	dir string
}

func New(c *cli.Context, db *services.PG, col *migrations.Collection) *PGMigration {
	return NewPGMigration(db, col, c.String(dirFlag))
}

func NewPGMigration(db *services.PG, col *migrations.Collection, dir string) *PGMigration {
	if dir == "" {
		dir = "migrations"
	}
	return &PGMigration{
		db:  db,
		col: col,
		dir: dir,
	}
}

// Run accepts go-pg/migrations commands (up, down, reset, version). No command means up.
func (s *PGMigration) Run(a ...string) error {
	db := s.db.Get()
	if db == nil {
		log.Info("DB not initialized, skipping migration")
		return nil
	}
	err := s.col.DiscoverSQLMigrations(s.dir)
	if err != nil {
		return errors.Wrapf(err, "failed to discover migrations in %v", s.dir)
	}
	_, _, err = s.col.Run(db, "init")
	if err != nil {
		return errors.Wrap(err, "failed to init DB PGMigrations")
	}
	oldVersion, newVersion, err := s.col.Run(db, a...)
	if err != nil {
		return errors.Wrapf(err, "failed to perform PGMigration from %v to %v", oldVersion, newVersion)
	}
	l := log.WithFields(log.Fields{
		"dir":         s.dir,
		"old_version": oldVersion,
		"new_version": newVersion,
	})
	if newVersion != oldVersion {
		l.Info("DB migrated")
	} else {
		l.Info("DB schema is up to date")
	}
	return nil
}
