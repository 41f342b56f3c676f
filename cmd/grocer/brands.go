package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/grocer/internal/cli"
	"github.com/Veraticus/grocer/internal/common"
	"github.com/Veraticus/grocer/internal/model"
)

func brandsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "brands",
		Short: "Manage preferred and avoided brands",
		Long: `Brand rules steer product selection. A rule targets either a single
ingredient or a whole category; ingredient rules replace category rules
for that ingredient.`,
	}

	cmd.AddCommand(brandsListCmd())
	cmd.AddCommand(brandsAddCmd())
	cmd.AddCommand(brandsRemoveCmd())

	return cmd
}

func brandsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List brand rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			prefs, err := store.ListBrandPreferences(cmd.Context())
			if err != nil {
				return err
			}
			return cli.RenderBrands(cmd.OutOrStdout(), prefs)
		},
	}
}

func brandsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "add <brand>",
		Short:   "Add a brand rule",
		Example: `  grocer brands add Tillamook --ingredient cheddar
  grocer brands add "Great Value" --category dairy --avoid`,
		Args: cobra.ExactArgs(1),
		RunE: runBrandsAdd,
	}

	cmd.Flags().String("ingredient", "", "ingredient the rule applies to")
	cmd.Flags().String("category", "", "category the rule applies to")
	cmd.Flags().Bool("avoid", false, "avoid the brand instead of preferring it")
	cmd.Flags().String("notes", "", "free-form notes")
	cmd.MarkFlagsMutuallyExclusive("ingredient", "category")
	cmd.MarkFlagsOneRequired("ingredient", "category")

	return cmd
}

func runBrandsAdd(cmd *cobra.Command, args []string) error {
	pref, err := brandPreferenceFromFlags(cmd, args[0])
	if err != nil {
		return err
	}

	store, err := initStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	id, err := store.AddBrandPreference(cmd.Context(), pref)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Added %s rule #%d: %s for %s %q",
		pref.PreferenceType, id, pref.Brand, pref.MatchType, pref.MatchTarget)))
	return nil
}

func brandPreferenceFromFlags(cmd *cobra.Command, brand string) (model.BrandPreference, error) {
	ingredient, _ := cmd.Flags().GetString("ingredient")
	category, _ := cmd.Flags().GetString("category")
	avoid, _ := cmd.Flags().GetBool("avoid")
	notes, _ := cmd.Flags().GetString("notes")

	pref := model.BrandPreference{
		Brand:          brand,
		Notes:          notes,
		MatchType:      model.MatchIngredient,
		MatchTarget:    ingredient,
		PreferenceType: model.PreferencePreferred,
	}
	if avoid {
		pref.PreferenceType = model.PreferenceAvoid
	}
	if category != "" {
		if !model.IngredientCategory(category).IsValid() {
			return model.BrandPreference{}, common.NewUserError(
				fmt.Sprintf("Unknown category %q. Valid categories: %v", category, model.AllCategories()),
				common.ErrInvalidConfig)
		}
		pref.MatchType = model.MatchCategory
		pref.MatchTarget = category
	}
	if err := pref.Validate(); err != nil {
		return model.BrandPreference{}, common.NewUserError("Invalid brand rule", err)
	}
	return pref, nil
}

func brandsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a brand rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return common.NewUserError(fmt.Sprintf("%q is not a rule ID", args[0]), err)
			}

			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.RemoveBrandPreference(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Removed rule #%d", id)))
			return nil
		},
	}
}
