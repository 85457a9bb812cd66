package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cartsmith/cartsmith/internal/app"
	"github.com/cartsmith/cartsmith/internal/catalog"
	"github.com/cartsmith/cartsmith/internal/config"
)

// runSeed loads catalog products and blocked queries into the database.
// Products come from a JSON array of {title, url, image, price}; blocked
// queries from a plain text file, one query per line. Every row is embedded
// on the way in, so seeding needs the embedder configured.
func runSeed(args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	productsPath := fs.String("products", "", "path to a JSON file of catalog products")
	blockedPath := fs.String("blocked", "", "path to a text file of blocked queries, one per line")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *productsPath == "" && *blockedPath == "" {
		fs.Usage()
		return fmt.Errorf("nothing to seed: pass -products and/or -blocked")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := initLogger()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	if *productsPath != "" {
		n, err := seedProducts(ctx, a, *productsPath)
		if err != nil {
			return err
		}
		logger.Info("seeded catalog products", "count", n, "file", *productsPath)
	}

	if *blockedPath != "" {
		n, err := seedBlocked(ctx, a, *blockedPath)
		if err != nil {
			return err
		}
		logger.Info("seeded blocked queries", "count", n, "file", *blockedPath)
	}

	return nil
}

func seedProducts(ctx context.Context, a *app.App, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading products file: %w", err)
	}

	var items []catalog.Product
	if err := json.Unmarshal(data, &items); err != nil {
		return 0, fmt.Errorf("parsing products file: %w", err)
	}

	for i, p := range items {
		if err := a.Catalog.Add(ctx, p); err != nil {
			return i, fmt.Errorf("adding product %q: %w", p.Title, err)
		}
	}
	return len(items), nil
}

func seedBlocked(ctx context.Context, a *app.App, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening blocked-queries file: %w", err)
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := a.Guardrail.AddBlocked(ctx, line); err != nil {
			return count, fmt.Errorf("adding blocked query %q: %w", line, err)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("reading blocked-queries file: %w", err)
	}
	return count, nil
}
