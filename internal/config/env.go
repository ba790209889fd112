package config

import (
	"fmt"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads variables from a .env file into the process environment.
// With no explicit path a missing ./.env is ignored; an explicit path must exist.
// Variables already set in the environment win.
func LoadDotEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(ExpandPath(path)); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
		return nil
	}
	_ = godotenv.Load()
	return nil
}
