package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/postgres"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/postgres/repository"
	"github.com/LavaJover/shvark-checkout-service/internal/usecase/fulfillment"
	"github.com/urfave/cli/v2"
)

func codesCommand() *cli.Command {
	return &cli.Command{
		Name:  "codes",
		Usage: "manage the delivery code pool",
		Subcommands: []*cli.Command{
			{
				Name:  "import",
				Usage: "load codes for a product from a file, one per line",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "product", Required: true, Usage: "product id"},
					&cli.StringFlag{Name: "file", Required: true, Usage: "path to the code list"},
				},
				Action: importCodes,
			},
		},
	}
}

func importCodes(c *cli.Context) error {
	cfg, logCloser, err := loadConfig(c)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	codes, err := readCodes(c.String("file"))
	if err != nil {
		return err
	}

	db, err := postgres.InitDB(cfg.CheckoutDB)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("db.DB: %w", err)
	}
	defer sqlDB.Close()

	uc := fulfillment.NewDefaultFulfillmentUsecase(
		repository.NewDefaultOrderRepository(db),
		repository.NewDefaultCodeRepository(db),
		nil,
	)
	imported, err := uc.ImportCodes(c.Context, c.String("product"), codes)
	if err != nil {
		return err
	}

	slog.Info("codes imported", "product_id", c.String("product"), "read", len(codes), "imported", imported)
	fmt.Fprintf(c.App.Writer, "imported %d of %d codes\n", imported, len(codes))
	return nil
}

func readCodes(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open code file: %w", err)
	}
	defer f.Close()

	var codes []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			codes = append(codes, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read code file: %w", err)
	}
	return codes, nil
}
