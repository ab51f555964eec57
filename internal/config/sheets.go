package config

import (
	"os"

	"github.com/spf13/viper"

	"github.com/Veraticus/quotewright/internal/export"
)

// DefaultTokenFile is where the interactive sheets token is kept.
const DefaultTokenFile = "~/.config/quotewright/sheets-token.json"

// LoadSheetsConfig loads the Google Sheets settings. Keys under sheets.* win
// over the GOOGLE_SHEETS_* environment variables; a token saved by
// `quotewright auth sheets` supplies the refresh token when neither does.
// The result is not validated.
func LoadSheetsConfig(v *viper.Viper) export.SheetsConfig {
	cfg := export.DefaultSheetsConfig()

	pick := func(key, env string) string {
		if s := v.GetString(key); s != "" {
			return s
		}
		return os.Getenv(env)
	}

	cfg.ServiceAccountPath = ExpandPath(pick("sheets.service_account_path", "GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH"))
	cfg.ClientID = pick("sheets.client_id", "GOOGLE_SHEETS_CLIENT_ID")
	cfg.ClientSecret = pick("sheets.client_secret", "GOOGLE_SHEETS_CLIENT_SECRET")
	cfg.RefreshToken = pick("sheets.refresh_token", "GOOGLE_SHEETS_REFRESH_TOKEN")
	cfg.SpreadsheetID = pick("sheets.spreadsheet_id", "GOOGLE_SHEETS_SPREADSHEET_ID")
	if name := pick("sheets.spreadsheet_name", "GOOGLE_SHEETS_SPREADSHEET_NAME"); name != "" {
		cfg.SpreadsheetName = name
	}
	if tz := v.GetString("sheets.time_zone"); tz != "" {
		cfg.TimeZone = tz
	}
	if v.IsSet("sheets.enable_formatting") {
		cfg.EnableFormatting = v.GetBool("sheets.enable_formatting")
	}

	if cfg.RefreshToken == "" && cfg.ServiceAccountPath == "" {
		if token, err := export.LoadToken(SheetsTokenFile(v)); err == nil {
			cfg.RefreshToken = token.RefreshToken
		}
	}
	return cfg
}

// SheetsTokenFile returns the expanded token file path.
func SheetsTokenFile(v *viper.Viper) string {
	if p := v.GetString("sheets.token_file"); p != "" {
		return ExpandPath(p)
	}
	return ExpandPath(DefaultTokenFile)
}
