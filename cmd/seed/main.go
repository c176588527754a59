// Command seed replaces the product catalog with the contents of
// PRODUCTS_FILE and creates the test user account.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Uchennem/sleepoutsideServer/internal/app"
	"github.com/Uchennem/sleepoutsideServer/internal/auth"
	"github.com/Uchennem/sleepoutsideServer/internal/config"
	"github.com/Uchennem/sleepoutsideServer/internal/seed"
	"github.com/Uchennem/sleepoutsideServer/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	file := flag.String("file", cfg.ProductsFile, "path to the products JSON file")
	flag.Parse()

	log := logger.New(app.ServiceName+"-seed", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	products, err := seed.LoadFile(*file)
	if err != nil {
		return err
	}
	log.Info("products loaded", slog.String("file", *file), slog.Int("count", len(products)))

	stores, err := app.OpenStores(ctx, cfg, nil, log)
	if err != nil {
		return err
	}
	defer stores.Close()

	seeder := seed.NewSeeder(stores.Products, stores.Users, auth.NewPasswordHasher(cfg.BcryptCost), log)
	res, err := seeder.Run(ctx, products, seed.TestUser{
		Name:     "Test User",
		Email:    cfg.SeedUserEmail,
		Password: cfg.SeedUserPassword,
	})
	if err != nil {
		return err
	}

	log.Info("database initialized",
		slog.String("product_store", cfg.ProductStore),
		slog.Int("products", res.ProductsInserted),
		slog.Bool("user_created", res.UserCreated),
	)
	return nil
}
