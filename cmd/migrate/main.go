package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if os.Getenv("ENV") != "production" {
		_ = godotenv.Load()
	}

	app := &cli.App{
		Name:  "migrate",
		Usage: "apply storefront schema migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "postgres connection url",
				EnvVars:  []string{"POSTGRES_URL"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "path",
				Usage:   "migration source url",
				EnvVars: []string{"MIGRATIONS_PATH"},
				Value:   "file://migrations",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply all pending migrations",
				Action: func(c *cli.Context) error {
					return withMigrate(c, func(m *migrate.Migrate) error {
						err := m.Up()
						if errors.Is(err, migrate.ErrNoChange) {
							logger.Info("no pending migrations")
							return nil
						}
						if err != nil {
							return fmt.Errorf("migration up: %w", err)
						}
						logger.Info("migrations applied successfully")
						return nil
					})
				},
			},
			{
				Name:  "down",
				Usage: "roll back migrations",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "steps", Usage: "number of migrations to roll back", Value: 1},
				},
				Action: func(c *cli.Context) error {
					return withMigrate(c, func(m *migrate.Migrate) error {
						err := m.Steps(-c.Int("steps"))
						if errors.Is(err, migrate.ErrNoChange) {
							logger.Info("no migrations to rollback")
							return nil
						}
						if err != nil {
							return fmt.Errorf("migration down: %w", err)
						}
						logger.Info("migrations rolled back successfully", slog.Int("steps", c.Int("steps")))
						return nil
					})
				},
			},
			{
				Name:  "version",
				Usage: "print the current migration version",
				Action: func(c *cli.Context) error {
					return withMigrate(c, func(m *migrate.Migrate) error {
						version, dirty, err := m.Version()
						if errors.Is(err, migrate.ErrNilVersion) {
							logger.Info("no migrations applied yet")
							return nil
						}
						if err != nil {
							return fmt.Errorf("get version: %w", err)
						}
						logger.Info("current migration version", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
						return nil
					})
				},
			},
			{
				Name:      "force",
				Usage:     "set the version without running migrations, clearing the dirty flag",
				ArgsUsage: "<version>",
				Action: func(c *cli.Context) error {
					var version int
					if _, err := fmt.Sscan(c.Args().First(), &version); err != nil {
						return fmt.Errorf("invalid version %q", c.Args().First())
					}
					return withMigrate(c, func(m *migrate.Migrate) error {
						if err := m.Force(version); err != nil {
							return fmt.Errorf("force version: %w", err)
						}
						logger.Info("migration version forced", slog.Int("version", version))
						return nil
					})
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error("migrate failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func withMigrate(c *cli.Context, fn func(m *migrate.Migrate) error) error {
	m, err := migrate.New(c.String("path"), c.String("database-url"))
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	return fn(m)
}
