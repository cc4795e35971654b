// Package seed loads an initial catalog and floor plan into the store.
package seed

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/louisbranch/tabhouse/internal/menu"
	entrypoint "github.com/louisbranch/tabhouse/internal/platform/cmd"
	apperrors "github.com/louisbranch/tabhouse/internal/platform/errors"
	"github.com/louisbranch/tabhouse/internal/storage/sqlite"
	"github.com/louisbranch/tabhouse/internal/table"
)

// Config holds seed command configuration.
type Config struct {
	DBPath   string `env:"TABHOUSE_DB_PATH" envDefault:"data/tabhouse.db"`
	SeedPath string `env:"TABHOUSE_SEED_PATH" envDefault:"seed.json"`
}

// File is the JSON document the seed command consumes.
type File struct {
	MenuItems []MenuItem  `json:"menu_items"`
	Tables    []FloorSpot `json:"tables"`
}

// MenuItem is one catalog entry in the seed file.
type MenuItem struct {
	Number      int    `json:"number"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
}

// FloorSpot is one table in the seed file.
type FloorSpot struct {
	Number   int    `json:"number"`
	WaiterID string `json:"waiter_id"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The SQLite database path")
	fs.StringVar(&cfg.SeedPath, "seed-path", cfg.SeedPath, "The seed JSON file path")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run loads the seed file into the store. Existing numbers are skipped so
// the command can run repeatedly.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSeed, func(ctx context.Context) error {
		raw, err := os.ReadFile(cfg.SeedPath)
		if err != nil {
			return fmt.Errorf("read seed file: %w", err)
		}
		var file File
		if err := json.Unmarshal(raw, &file); err != nil {
			return fmt.Errorf("decode seed file: %w", err)
		}

		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		menuSvc := menu.NewService(store)
		tableSvc := table.NewService(store)

		added := 0
		for _, item := range file.MenuItems {
			err := menuSvc.AddItems(ctx, []menu.Item{{
				Number:      item.Number,
				Description: item.Description,
				PriceCents:  item.PriceCents,
			}})
			if err != nil {
				if err.Code == apperrors.CodeMenuItemAlreadyExists {
					continue
				}
				return fmt.Errorf("seed menu item %d: %w", item.Number, err)
			}
			added++
		}
		log.Printf("seeded %d of %d menu items", added, len(file.MenuItems))

		added = 0
		for _, spot := range file.Tables {
			if err := tableSvc.AddTable(ctx, spot.Number); err != nil {
				if err.Code == apperrors.CodeTableAlreadyExists {
					continue
				}
				return fmt.Errorf("seed table %d: %w", spot.Number, err)
			}
			if spot.WaiterID != "" {
				if err := tableSvc.AssignWaiter(ctx, spot.Number, spot.WaiterID); err != nil {
					return fmt.Errorf("assign waiter to table %d: %w", spot.Number, err)
				}
			}
			added++
		}
		log.Printf("seeded %d of %d tables", added, len(file.Tables))
		return nil
	})
}
