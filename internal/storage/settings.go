package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/spendwise/internal/model"
)

const (
	settingEarningRates = "earning_rates"
	settingAdvisory     = "advisory"
)

// GetEarningRates returns the saved earning rates, or the defaults when none
// have been saved.
func (s *SQLiteStorage) GetEarningRates(ctx context.Context) (model.EarningRates, error) {
	if err := validateContext(ctx); err != nil {
		return model.EarningRates{}, err
	}

	var rates model.EarningRates
	found, err := s.loadSetting(ctx, settingEarningRates, &rates)
	if err != nil {
		return model.EarningRates{}, err
	}
	if !found {
		return model.DefaultEarningRates(), nil
	}
	if rates.CategoryRates == nil {
		rates.CategoryRates = map[string]float64{}
	}
	if rates.CardOverrides == nil {
		rates.CardOverrides = map[string]map[string]float64{}
	}
	return rates, nil
}

// SaveEarningRates replaces the stored earning rates.
func (s *SQLiteStorage) SaveEarningRates(ctx context.Context, rates model.EarningRates) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := rates.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	return s.saveSetting(ctx, settingEarningRates, rates)
}

// GetAdvisorySettings returns the saved advisory settings, or the defaults.
func (s *SQLiteStorage) GetAdvisorySettings(ctx context.Context) (model.AdvisorySettings, error) {
	if err := validateContext(ctx); err != nil {
		return model.AdvisorySettings{}, err
	}

	settings := model.DefaultAdvisorySettings()
	if _, err := s.loadSetting(ctx, settingAdvisory, &settings); err != nil {
		return model.AdvisorySettings{}, err
	}
	settings.Normalize()
	return settings, nil
}

// SaveAdvisorySettings stores advisory settings. A non-positive threshold is
// stored as the default.
func (s *SQLiteStorage) SaveAdvisorySettings(ctx context.Context, settings model.AdvisorySettings) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	settings.Normalize()
	return s.saveSetting(ctx, settingAdvisory, settings)
}

// GetUserProfile returns the stored user profile. A profile that was never
// saved comes back with an empty name.
func (s *SQLiteStorage) GetUserProfile(ctx context.Context) (*model.UserProfile, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var profile model.UserProfile
	err := s.db.QueryRowContext(ctx, `SELECT name FROM user_profile WHERE id = 1`).Scan(&profile.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return &model.UserProfile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}
	return &profile, nil
}

// SaveUserProfile creates or replaces the user profile.
func (s *SQLiteStorage) SaveUserProfile(ctx context.Context, profile *model.UserProfile) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if profile == nil {
		return fmt.Errorf("%w: profile", ErrNilParameter)
	}
	name := strings.TrimSpace(profile.Name)
	if err := validateString(name, "name"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_profile (id, name) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, updated_at = CURRENT_TIMESTAMP
	`, name)
	if err != nil {
		return fmt.Errorf("failed to save user profile: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) loadSetting(ctx context.Context, key string, dest any) (bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load setting %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(value), dest); err != nil {
		return false, fmt.Errorf("failed to parse setting %s: %w", key, err)
	}
	return true, nil
}

func (s *SQLiteStorage) saveSetting(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode setting %s: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, string(data))
	if err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}
	return nil
}
