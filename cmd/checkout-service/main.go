package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("failed to load .env")
	}

	app := &cli.App{
		Name:  "checkout-service",
		Usage: "digital goods storefront checkout",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to the YAML config file",
				EnvVars: []string{"CHECKOUT_CONFIG_PATH"},
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			codesCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("checkout-service: %v\n", err)
	}
}
