package config

import (
	"path/filepath"

	"github.com/Veraticus/spendwise/internal/sheets"
	"github.com/spf13/viper"
)

// SheetsTokenFile is where "auth sheets" saves the OAuth token.
func SheetsTokenFile() string {
	if v := viper.GetString("sheets.token_file"); v != "" {
		return ExpandPath(v)
	}
	dir, err := Dir()
	if err != nil {
		return "sheets-token.json"
	}
	return filepath.Join(dir, "sheets-token.json")
}

// LoadSheetsConfig loads Google Sheets configuration from Viper and environment variables.
// It follows this precedence:
// 1. Viper configuration (from config file or SPENDWISE_ env vars)
// 2. Direct environment variables (GOOGLE_SHEETS_*)
// 3. The refresh token saved by "auth sheets"
// 4. Default values
func LoadSheetsConfig() (*sheets.Config, error) {
	cfg := sheets.DefaultConfig()

	if v := viper.GetString("sheets.service_account_path"); v != "" {
		cfg.ServiceAccountPath = ExpandPath(v)
	}
	cfg.ClientID = viper.GetString("sheets.client_id")
	cfg.ClientSecret = viper.GetString("sheets.client_secret")
	cfg.RefreshToken = viper.GetString("sheets.refresh_token")
	cfg.SpreadsheetID = viper.GetString("sheets.spreadsheet_id")
	if v := viper.GetString("sheets.spreadsheet_name"); v != "" {
		cfg.SpreadsheetName = v
	}
	if v := viper.GetString("sheets.timezone"); v != "" {
		cfg.TimeZone = v
	}

	cfg.LoadFromEnv()
	cfg.ServiceAccountPath = ExpandPath(cfg.ServiceAccountPath)

	if cfg.RefreshToken == "" && cfg.ServiceAccountPath == "" {
		if token, err := sheets.LoadToken(SheetsTokenFile()); err == nil {
			cfg.RefreshToken = token.RefreshToken
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
