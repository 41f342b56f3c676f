package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Veraticus/grocer/internal/common"
	"github.com/Veraticus/grocer/internal/llm"
	"github.com/Veraticus/grocer/internal/retailer"
	"github.com/Veraticus/grocer/internal/sheets"
)

// SetDefaults registers default values for every key grocer reads.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", filepath.Join(DefaultDir(), "grocer.db"))
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("retailer.identity_base_url", retailer.DefaultIdentityBaseURL)
	v.SetDefault("retailer.catalog_base_url", retailer.DefaultCatalogBaseURL)
	v.SetDefault("retailer.client_id", retailer.DefaultClientID)
	v.SetDefault("retailer.redirect_uri", retailer.DefaultRedirectURI)
	v.SetDefault("retailer.scope", retailer.DefaultScope)
	v.SetDefault("retailer.min_interval", retailer.DefaultMinInterval)
	v.SetDefault("retailer.timeout", retailer.DefaultTimeout)

	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.rate_limit", 50)
}

// DatabasePath returns the expanded database location.
func DatabasePath(v *viper.Viper) string {
	return ExpandPath(v.GetString("database.path"))
}

// LoadRetailerConfig builds the retailer client settings. When
// retailer.credentials_secret is set, missing credentials are read from
// Secret Manager through secrets, which may be nil to use the default
// client.
func LoadRetailerConfig(ctx context.Context, v *viper.Viper, secrets SecretAccessor) (retailer.Config, error) {
	cfg := retailer.Config{
		Username:        v.GetString("retailer.username"),
		Password:        v.GetString("retailer.password"),
		StoreID:         v.GetString("retailer.store_id"),
		IdentityBaseURL: v.GetString("retailer.identity_base_url"),
		CatalogBaseURL:  v.GetString("retailer.catalog_base_url"),
		ClientID:        v.GetString("retailer.client_id"),
		RedirectURI:     v.GetString("retailer.redirect_uri"),
		Scope:           v.GetString("retailer.scope"),
		MinInterval:     v.GetDuration("retailer.min_interval"),
		Timeout:         v.GetDuration("retailer.timeout"),
		ChromeTLS:       v.GetBool("retailer.chrome_tls"),
	}

	if secret := v.GetString("retailer.credentials_secret"); secret != "" && (cfg.Username == "" || cfg.Password == "" || cfg.StoreID == "") {
		name, err := SecretVersionName(v.GetString("retailer.gcp_project"), secret)
		if err != nil {
			return retailer.Config{}, err
		}
		if secrets == nil {
			sm, err := NewSecretManager(ctx)
			if err != nil {
				return retailer.Config{}, err
			}
			defer func() { _ = sm.Close() }()
			secrets = sm
		}
		creds, err := LoadRetailerCredentials(ctx, secrets, name)
		if err != nil {
			return retailer.Config{}, err
		}
		creds.apply(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		return retailer.Config{}, common.NewUserError(
			"Retailer credentials are not configured. Set retailer.username, retailer.password and retailer.store_id, or retailer.credentials_secret.", err)
	}
	return cfg, nil
}

// LoadLLMConfig builds assistant settings. The second result is false when
// no API key is available, in which case callers run without an assistant.
func LoadLLMConfig(v *viper.Viper) (llm.Config, bool) {
	cfg := llm.Config{
		Provider:    strings.ToLower(v.GetString("llm.provider")),
		Model:       v.GetString("llm.model"),
		BaseURL:     v.GetString("llm.base_url"),
		Temperature: v.GetFloat64("llm.temperature"),
		MaxTokens:   v.GetInt("llm.max_tokens"),
		Timeout:     v.GetDuration("llm.timeout"),
		RateLimit:   v.GetInt("llm.rate_limit"),
		APIKey:      v.GetString("llm.api_key"),
	}

	if cfg.APIKey == "" {
		switch cfg.Provider {
		case "openai":
			cfg.APIKey = firstNonEmpty(v.GetString("llm.openai_api_key"), os.Getenv("OPENAI_API_KEY"))
		default:
			cfg.APIKey = firstNonEmpty(v.GetString("llm.anthropic_api_key"), os.Getenv("ANTHROPIC_API_KEY"))
		}
	}
	return cfg, cfg.APIKey != ""
}

// LoadSheetsConfig builds the spreadsheet export settings. Viper keys take
// precedence over the GOOGLE_SHEETS_* environment variables.
func LoadSheetsConfig(v *viper.Viper) (*sheets.Config, error) {
	cfg := sheets.DefaultConfig()

	cfg.ServiceAccountPath = ExpandPath(firstNonEmpty(v.GetString("sheets.service_account_path"), os.Getenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH")))
	cfg.ClientID = firstNonEmpty(v.GetString("sheets.client_id"), os.Getenv("GOOGLE_SHEETS_CLIENT_ID"))
	cfg.ClientSecret = firstNonEmpty(v.GetString("sheets.client_secret"), os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET"))
	cfg.RefreshToken = firstNonEmpty(v.GetString("sheets.refresh_token"), os.Getenv("GOOGLE_SHEETS_REFRESH_TOKEN"))
	cfg.SpreadsheetID = firstNonEmpty(v.GetString("sheets.spreadsheet_id"), os.Getenv("GOOGLE_SHEETS_SPREADSHEET_ID"))
	if name := firstNonEmpty(v.GetString("sheets.spreadsheet_name"), os.Getenv("GOOGLE_SHEETS_SPREADSHEET_NAME")); name != "" {
		cfg.SpreadsheetName = name
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: sheets: %v", common.ErrInvalidConfig, err)
	}
	return &cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
