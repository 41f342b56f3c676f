package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/grocer/internal/cli"
	"github.com/Veraticus/grocer/internal/common"
	"github.com/Veraticus/grocer/internal/config"
	"github.com/Veraticus/grocer/internal/sheets"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Check and set up external accounts",
	}
	cmd.AddCommand(authCheckCmd())
	cmd.AddCommand(authSheetsCmd())
	return cmd
}

func authCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Log in to the retailer to verify credentials",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := newRetailerClient(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.Authenticate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Logged in, using store %s", client.StoreID())))
			return nil
		},
	}
}

func authSheetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Authorize Google Sheets export",
		Long: `Run the browser consent flow for a Google OAuth desktop client and save
the resulting token. Put the printed refresh token in sheets.refresh_token
or GOOGLE_SHEETS_REFRESH_TOKEN.`,
		RunE: runAuthSheets,
	}
	cmd.Flags().String("token-file", "", "where to save the token (default: $HOME/.config/grocer/sheets-token.json)")
	cmd.Flags().String("listen", "", "callback listen address (default: localhost:8080)")
	return cmd
}

func runAuthSheets(cmd *cobra.Command, _ []string) error {
	tokenFile, _ := cmd.Flags().GetString("token-file")
	listen, _ := cmd.Flags().GetString("listen")

	v := viper.GetViper()
	cfg := sheets.OAuth2Config{
		ClientID:     v.GetString("sheets.client_id"),
		ClientSecret: v.GetString("sheets.client_secret"),
		TokenFile:    config.ExpandPath(tokenFile),
		ListenAddr:   listen,
	}
	if cfg.TokenFile == "" {
		cfg.TokenFile = config.ExpandPath("~/.config/grocer/sheets-token.json")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return common.NewUserError("Set sheets.client_id and sheets.client_secret before authorizing.", common.ErrMissingConfig)
	}

	if token, err := sheets.LoadToken(cfg.TokenFile); err == nil && token.RefreshToken != "" {
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("A saved token already exists at " + cfg.TokenFile + ", re-authorizing"))
	}

	token, err := sheets.Authorize(cmd.Context(), cfg, func(authURL string) {
		fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox("Google Sheets", "Open this URL in your browser:\n\n"+authURL))
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Authorized, token saved to " + cfg.TokenFile))
	if token.RefreshToken != "" {
		fmt.Fprintln(cmd.OutOrStdout(), "Refresh token: " + token.RefreshToken)
	}
	return nil
}
