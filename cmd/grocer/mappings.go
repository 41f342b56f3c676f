package main

import (
	"context"
	"fmt"
	"net/url"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Veraticus/grocer/internal/catalog"
	"github.com/Veraticus/grocer/internal/cli"
	"github.com/Veraticus/grocer/internal/common"
)

func mappingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Manage the search term to product cache",
		Long: `Cached mappings remember which product a search term resolved to. Pinned
mappings are always used; unpinned ones are refreshed after a week.`,
	}

	cmd.AddCommand(mappingsListCmd())
	cmd.AddCommand(mappingsSearchCmd())
	cmd.AddCommand(mappingsPinCmd())
	cmd.AddCommand(mappingsUnpinCmd())
	cmd.AddCommand(mappingsDeleteCmd())

	return cmd
}

func mappingsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached mappings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMappingCache(cmd, func(cache *catalog.Cache) error {
				mappings, err := cache.Mappings(cmd.Context())
				if err != nil {
					return err
				}
				return cli.RenderMappings(cmd.OutOrStdout(), mappings)
			})
		},
	}
}

func mappingsSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <term>",
		Short: "Search the live catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, func(cache *catalog.Cache) error {
				products, err := cache.Search(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if len(products) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No products found"))
					return nil
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "ID\tNAME\tSIZE\tPRICE\tSTOCK\t")
				for _, p := range products {
					stock := "in stock"
					if !p.InStock {
						stock = "out"
					}
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t$%.2f\t%s\t\n", p.ID, p.Name, p.Size, p.Price, stock)
				}
				return tw.Flush()
			})
		},
	}
}

func mappingsPinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pin <term> <product-id>",
		Short: "Always use a product for a search term",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			term, productID := args[0], args[1]
			return withCache(cmd, func(cache *catalog.Cache) error {
				products, err := cache.Search(cmd.Context(), term)
				if err != nil {
					return err
				}
				for _, p := range products {
					if p.ID == productID {
						if err := cache.Pin(cmd.Context(), term, p); err != nil {
							return err
						}
						fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Pinned %q to %s", term, p.Name)))
						return nil
					}
				}
				return common.NewUserError(
					fmt.Sprintf("Product %s is not among the results for %q. Run 'grocer mappings search %q' to see them.", productID, term, term),
					common.ErrNotFound)
			})
		},
	}
}

func mappingsUnpinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unpin <term>",
		Short: "Remove the pin for a search term",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMappingCache(cmd, func(cache *catalog.Cache) error {
				unpinned, err := cache.Unpin(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !unpinned {
					fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo(fmt.Sprintf("%q was not pinned", args[0])))
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Unpinned %q", args[0])))
				return nil
			})
		},
	}
}

func mappingsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <term>",
		Short: "Forget every mapping for a search term",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMappingCache(cmd, func(cache *catalog.Cache) error {
				deleted, err := cache.Forget(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted %d mapping(s) for %q", deleted, args[0])))
				return nil
			})
		},
	}
}

// withCache runs fn with a cache backed by a live retailer session.
func withCache(cmd *cobra.Command, fn func(*catalog.Cache) error) error {
	store, err := initStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	client, err := newRetailerClient(cmd.Context())
	if err != nil {
		return err
	}
	defer client.Close()

	return fn(catalog.New(client, store, catalog.Config{}))
}

// withMappingCache runs fn with a cache that never reaches the retailer.
func withMappingCache(cmd *cobra.Command, fn func(*catalog.Cache) error) error {
	store, err := initStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return fn(catalog.New(offlineAPI{}, store, catalog.Config{}))
}

// offlineAPI satisfies catalog.API for commands that only touch the cache.
type offlineAPI struct{}

func (offlineAPI) Get(_ context.Context, path string, _ url.Values, _ any) error {
	return fmt.Errorf("%s: no retailer session for offline command", path)
}

func (offlineAPI) StoreID() string { return "" }
