package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-electronic/internal/config"
	"github.com/noah-isme/backend-electronic/internal/db"
	"github.com/noah-isme/backend-electronic/internal/identity"
	"github.com/noah-isme/backend-electronic/internal/obs"
	"github.com/noah-isme/backend-electronic/internal/platform"
	"github.com/noah-isme/backend-electronic/internal/repo"
)

type seedProduct struct {
	Name        string
	Description string
	Price       int64
	Stock       int
}

var catalog = []struct {
	Category repo.CategoryInput
	Products []seedProduct
}{
	{
		Category: repo.CategoryInput{Name: "Smartphones", Description: "Phones and accessories"},
		Products: []seedProduct{
			{"Galaxy S24", "6.2\" AMOLED, 256 GB", 12999000, 25},
			{"iPhone 15", "6.1\" Super Retina, 128 GB", 14999000, 20},
			{"Pixel 8", "6.2\" OLED, 128 GB", 10499000, 15},
		},
	},
	{
		Category: repo.CategoryInput{Name: "Laptops", Description: "Notebooks and ultrabooks"},
		Products: []seedProduct{
			{"XPS 13", "Intel Core Ultra 7, 16 GB RAM", 23999000, 8},
			{"MacBook Air M3", "13.6\", 8 GB RAM, 256 GB", 18999000, 12},
			{"ThinkPad X1 Carbon", "14\", 32 GB RAM, 1 TB", 27999000, 5},
		},
	},
	{
		Category: repo.CategoryInput{Name: "Audio", Description: "Headphones and speakers"},
		Products: []seedProduct{
			{"WH-1000XM5", "Wireless noise cancelling headphones", 5499000, 30},
			{"AirPods Pro", "Active noise cancellation, USB-C", 3999000, 40},
			{"Flip 6", "Portable waterproof speaker", 1899000, 35},
		},
	},
	{
		Category: repo.CategoryInput{Name: "Accessories", Description: "Cables, chargers and cases"},
		Products: []seedProduct{
			{"65W GaN Charger", "USB-C power delivery", 499000, 100},
			{"USB-C Cable 2m", "Braided, 100W", 149000, 200},
		},
	},
}

func main() {
	reset := flag.Bool("reset", false, "revert every migration before migrating and seeding; destroys all data")
	flag.Parse()

	cfg, err := config.Load(envOrDefault("CONTENT_ROOT", "."))
	if err != nil {
		fatal := obs.NewLogger("console", "error")
		fatal.Fatal().Err(err).Msg("load configuration")
	}
	logger := obs.NewLogger("console", cfg.LogLevel).With().Str("component", "seeder").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if *reset {
		if err := db.Rollback(cfg.ConnectionString); err != nil {
			logger.Fatal().Err(err).Msg("revert migrations")
		}
		logger.Warn().Msg("database reset")
	}
	if err := db.Migrate(cfg.ConnectionString); err != nil {
		logger.Fatal().Err(err).Msg("apply migrations")
	}
	pool, err := platform.OpenPool(ctx, cfg, "electronic-store-seeder")
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer pool.Close()

	err = db.PoolTx{Pool: pool}.InTx(ctx, func(q db.Querier) error {
		set := repo.NewSet(q)
		if err := (identity.RoleManager{Store: set.Users}).EnsureRoles(ctx); err != nil {
			return err
		}
		users := identity.UserManager{Store: set.Users, Policy: identity.Policy{PasswordPolicy: cfg.Password}}
		if err := seedAdmin(ctx, users, logger); err != nil {
			return err
		}
		return seedCatalog(ctx, set, logger)
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("seed database")
	}
	logger.Info().Msg("seeding completed")
}

func seedAdmin(ctx context.Context, users identity.UserManager, logger zerolog.Logger) error {
	email := envOrDefault("SEED_ADMIN_EMAIL", "admin@store.local")
	password := envOrDefault("SEED_ADMIN_PASSWORD", "Admin12345")

	existing, err := users.Store.GetByEmail(ctx, email)
	switch {
	case err == nil:
		logger.Info().Str("email", email).Msg("admin exists")
		return users.AddToRole(ctx, existing.ID, identity.RoleAdmin)
	case !errors.Is(err, repo.ErrNotFound):
		return err
	}

	created, err := users.Create(ctx, email, "Administrator", password, identity.RoleAdmin)
	if err != nil {
		return err
	}
	logger.Info().Str("email", created.Email).Msg("admin created")
	return nil
}

func seedCatalog(ctx context.Context, set repo.Set, logger zerolog.Logger) error {
	existing, err := set.Categories.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		logger.Info().Int("categories", len(existing)).Msg("catalog already seeded")
		return nil
	}

	var products int
	for _, entry := range catalog {
		category, err := set.Categories.Create(ctx, entry.Category)
		if err != nil {
			return err
		}
		for _, p := range entry.Products {
			_, err := set.Products.Create(ctx, repo.ProductInput{
				CategoryID:  category.ID,
				Name:        p.Name,
				Description: p.Description,
				Price:       p.Price,
				Stock:       p.Stock,
			})
			if err != nil {
				return err
			}
			products++
		}
	}
	logger.Info().Int("categories", len(catalog)).Int("products", products).Msg("catalog seeded")
	return nil
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		if trimmed := strings.TrimSpace(val); trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
