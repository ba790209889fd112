package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Veraticus/spendwise/internal/common"
	"github.com/Veraticus/spendwise/internal/events"
	"github.com/Veraticus/spendwise/internal/plaid"
	"github.com/spf13/viper"
)

// LoadPlaidConfig reads plaid.* keys, falling back to PLAID_* environment variables.
func LoadPlaidConfig() (*plaid.Config, error) {
	cfg := &plaid.Config{
		ClientID:    firstNonEmpty(viper.GetString("plaid.client_id"), os.Getenv("PLAID_CLIENT_ID")),
		Secret:      firstNonEmpty(viper.GetString("plaid.secret"), os.Getenv("PLAID_SECRET")),
		Environment: firstNonEmpty(viper.GetString("plaid.environment"), os.Getenv("PLAID_ENV"), "sandbox"),
		AccessToken: firstNonEmpty(viper.GetString("plaid.access_token"), os.Getenv("PLAID_ACCESS_TOKEN")),
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrMissingConfig, err)
	}
	return cfg, nil
}

// SimpleFINConfig holds how to reach SimpleFIN Bridge. AccessURL wins over
// a saved claim; SetupToken is only used when nothing is saved yet.
type SimpleFINConfig struct {
	AccessURL  string
	SetupToken string
	AuthFile   string
}

// LoadSimpleFINConfig reads simplefin.* keys, falling back to SIMPLEFIN_* environment variables.
func LoadSimpleFINConfig() SimpleFINConfig {
	authFile := ExpandPath(viper.GetString("simplefin.auth_file"))
	if authFile == "" {
		dir, err := Dir()
		if err != nil {
			dir = "."
		}
		authFile = filepath.Join(dir, "simplefin-auth.json")
	}
	return SimpleFINConfig{
		AccessURL:  firstNonEmpty(viper.GetString("simplefin.access_url"), os.Getenv("SIMPLEFIN_ACCESS_URL")),
		SetupToken: firstNonEmpty(viper.GetString("simplefin.token"), os.Getenv("SIMPLEFIN_TOKEN")),
		AuthFile:   authFile,
	}
}

// LoadEventsConfig reads amqp.* keys, falling back to AMQP_URL.
// A missing URL yields a disabled config, not an error.
func LoadEventsConfig() (events.Config, error) {
	cfg := events.Config{
		URL:        firstNonEmpty(viper.GetString("amqp.url"), os.Getenv("AMQP_URL")),
		Exchange:   viper.GetString("amqp.exchange"),
		RoutingKey: viper.GetString("amqp.routing_key"),
	}
	if err := cfg.Validate(); err != nil {
		return events.Config{}, err
	}
	return cfg, nil
}

// DatabasePath returns the configured database path with ~ and $VARS expanded.
func DatabasePath() string {
	path := viper.GetString("database.path")
	if path == "" {
		path = DefaultDatabasePath()
	}
	if path == ":memory:" {
		return path
	}
	return ExpandPath(path)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
