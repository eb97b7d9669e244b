package main

import (
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/migrate"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/postgres"
	"github.com/urfave/cli/v2"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply or roll back database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply all pending migrations",
				Action: func(c *cli.Context) error {
					cfg, logCloser, err := loadConfig(c)
					if err != nil {
						return err
					}
					defer logCloser.Close()

					db, err := postgres.InitDB(cfg.CheckoutDB)
					if err != nil {
						return err
					}
					return migrate.RunMigrations(db)
				},
			},
			{
				Name:  "down",
				Usage: "roll back the latest migrations",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "steps", Value: 1, Usage: "number of migrations to roll back"},
				},
				Action: func(c *cli.Context) error {
					cfg, logCloser, err := loadConfig(c)
					if err != nil {
						return err
					}
					defer logCloser.Close()

					db, err := postgres.InitDB(cfg.CheckoutDB)
					if err != nil {
						return err
					}
					return migrate.RollbackMigrations(db, c.Int("steps"))
				},
			},
		},
	}
}
