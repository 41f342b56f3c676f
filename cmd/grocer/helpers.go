package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"github.com/Veraticus/grocer/internal/cart"
	"github.com/Veraticus/grocer/internal/catalog"
	"github.com/Veraticus/grocer/internal/config"
	"github.com/Veraticus/grocer/internal/llm"
	"github.com/Veraticus/grocer/internal/model"
	"github.com/Veraticus/grocer/internal/retailer"
	"github.com/Veraticus/grocer/internal/selection"
	"github.com/Veraticus/grocer/internal/storage"
	"github.com/Veraticus/grocer/internal/substitution"
)

// initStorage opens and migrates the configured database.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(config.DatabasePath(viper.GetViper()))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

func newRetailerClient(ctx context.Context) (*retailer.Client, error) {
	cfg, err := config.LoadRetailerConfig(ctx, viper.GetViper(), nil)
	if err != nil {
		return nil, err
	}
	cfg.Logger = slog.Default()
	return retailer.NewClient(cfg)
}

// newAssistant returns nil when no API key is configured.
func newAssistant() (llm.Assistant, error) {
	cfg, ok := config.LoadLLMConfig(viper.GetViper())
	if !ok {
		slog.Info("No LLM API key configured, selecting products heuristically")
		return nil, nil
	}
	cfg.Logger = slog.Default()
	return llm.NewAssistant(cfg)
}

// pipeline bundles the components of one ordering session.
type pipeline struct {
	client    *retailer.Client
	assembler *cart.Assembler
}

func newPipeline(ctx context.Context, store *storage.SQLiteStorage, opts ...cart.Option) (*pipeline, error) {
	client, err := newRetailerClient(ctx)
	if err != nil {
		return nil, err
	}
	assistant, err := newAssistant()
	if err != nil {
		client.Close()
		return nil, err
	}

	logger := slog.Default()
	cache := catalog.New(client, store, catalog.Config{Logger: logger})
	selector, err := selection.New(store, assistant, logger)
	if err != nil {
		client.Close()
		return nil, err
	}
	ranker, err := substitution.New(cache, selector, assistant, logger)
	if err != nil {
		client.Close()
		return nil, err
	}

	opts = append([]cart.Option{cart.WithLogger(logger)}, opts...)
	return &pipeline{
		client:    client,
		assembler: cart.New(client, cache, selector, ranker, opts...),
	}, nil
}

func (p *pipeline) Close() {
	p.client.Close()
}

// readItems loads a JSON array of requested items. An empty path yields
// no items.
func readItems(path string) ([]model.RequestedItem, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(config.ExpandPath(path)) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to read items: %w", err)
	}

	var items []model.RequestedItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse items in %s: %w", path, err)
	}
	for i, it := range items {
		if it.Ingredient == "" {
			return nil, fmt.Errorf("item %d in %s has no ingredient", i+1, path)
		}
		if it.Quantity <= 0 {
			items[i].Quantity = 1
		}
		if it.Category == "" {
			items[i].Category = model.CategoryOther
		} else if !it.Category.IsValid() {
			return nil, fmt.Errorf("item %q has unknown category %q", it.Ingredient, it.Category)
		}
	}
	return items, nil
}
