package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/grocer/internal/cli"
	"github.com/Veraticus/grocer/internal/common"
	"github.com/Veraticus/grocer/internal/model"
)

func prefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Manage household preferences",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Show one preference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			value, ok, err := store.GetPreference(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return common.NewUserError(fmt.Sprintf("Preference %q is not set", args[0]), common.ErrNotFound)
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "set <key> <value>",
		Short:   "Set a preference",
		Example: "  grocer prefs set price_sensitivity budget",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := normalizePreference(args[0], args[1])
			if err != nil {
				return err
			}

			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.SetPreference(cmd.Context(), args[0], value); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%s = %s", args[0], value)))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all preferences",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			prefs, err := store.ListPreferences(cmd.Context())
			if err != nil {
				return err
			}
			if len(prefs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No preferences set"))
				return nil
			}
			keys := make([]string, 0, len(prefs))
			for k := range prefs {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", k, prefs[k])
			}
			return nil
		},
	})

	return cmd
}

// normalizePreference validates the keys grocer interprets and passes the
// rest through unchanged.
func normalizePreference(key, value string) (string, error) {
	switch key {
	case model.PriceSensitivityKey:
		v := model.PriceSensitivity(strings.ToLower(strings.TrimSpace(value)))
		switch v {
		case model.PriceBudget, model.PriceModerate, model.PricePremium:
			return string(v), nil
		}
		return "", common.NewUserError(
			fmt.Sprintf("price_sensitivity must be one of %s, %s or %s", model.PriceBudget, model.PriceModerate, model.PricePremium),
			common.ErrInvalidConfig)
	default:
		return value, nil
	}
}
