package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/spendwise/internal/common"
	"github.com/Veraticus/spendwise/internal/model"
)

// AddRewardProfile creates a reward profile with its initial redemption
// options and returns the new profile ID.
func (s *SQLiteStorage) AddRewardProfile(ctx context.Context, name string, balance int64, options []model.RedemptionOption) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateBalance(balance); err != nil {
		return 0, err
	}
	for i := range options {
		if err := validateOption(&options[i]); err != nil {
			return 0, fmt.Errorf("option at index %d: %w", i, err)
		}
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = model.DefaultProfileName
	}

	var profileID int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO reward_profiles (name, balance) VALUES (?, ?)`, name, balance)
		if err != nil {
			return fmt.Errorf("failed to insert reward profile: %w", err)
		}
		profileID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get reward profile id: %w", err)
		}

		for i := range options {
			if _, err := insertOption(ctx, tx, profileID, &options[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return profileID, nil
}

// GetRewardProfiles returns every reward profile with its options.
func (s *SQLiteStorage) GetRewardProfiles(ctx context.Context) ([]model.RewardProfile, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, balance FROM reward_profiles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query reward profiles: %w", err)
	}

	profiles := []model.RewardProfile{}
	index := make(map[int64]int)
	for rows.Next() {
		var p model.RewardProfile
		if err := rows.Scan(&p.ID, &p.Name, &p.Balance); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan reward profile: %w", err)
		}
		p.Options = []model.RedemptionOption{}
		index[p.ID] = len(profiles)
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	options, err := s.queryOptions(ctx, `
		SELECT id, profile_id, type, points_required, cash_value, fees, restrictions
		FROM redemption_options ORDER BY profile_id, id`)
	if err != nil {
		return nil, err
	}
	for _, o := range options {
		if i, ok := index[o.profileID]; ok {
			profiles[i].Options = append(profiles[i].Options, o.option)
		}
	}

	return profiles, nil
}

// GetRewardProfile returns one reward profile with its options.
func (s *SQLiteStorage) GetRewardProfile(ctx context.Context, id int64) (*model.RewardProfile, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(id, "profile id"); err != nil {
		return nil, err
	}

	var p model.RewardProfile
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, balance FROM reward_profiles WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reward profile %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reward profile: %w", err)
	}

	options, err := s.queryOptions(ctx, `
		SELECT id, profile_id, type, points_required, cash_value, fees, restrictions
		FROM redemption_options WHERE profile_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	p.Options = make([]model.RedemptionOption, 0, len(options))
	for _, o := range options {
		p.Options = append(p.Options, o.option)
	}

	return &p, nil
}

// UpdateRewardBalance sets a profile's points balance.
func (s *SQLiteStorage) UpdateRewardBalance(ctx context.Context, id int64, balance int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id, "profile id"); err != nil {
		return err
	}
	if err := validateBalance(balance); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE reward_profiles SET balance = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, balance, id)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	return requireAffected(result, "reward profile", id)
}

// DeleteRewardProfile removes a profile and its redemption options.
func (s *SQLiteStorage) DeleteRewardProfile(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id, "profile id"); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM redemption_options WHERE profile_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete redemption options: %w", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM reward_profiles WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete reward profile: %w", err)
		}
		return requireAffected(result, "reward profile", id)
	})
}

// AddRedemptionOption attaches a redemption option to a profile.
func (s *SQLiteStorage) AddRedemptionOption(ctx context.Context, profileID int64, option *model.RedemptionOption) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateID(profileID, "profile id"); err != nil {
		return 0, err
	}
	if err := validateOption(option); err != nil {
		return 0, err
	}

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM reward_profiles WHERE id = ?`, profileID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("reward profile %d: %w", profileID, common.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to check reward profile: %w", err)
		}

		id, err = insertOption(ctx, tx, profileID, option)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateRedemptionOption replaces the fields of an existing option.
func (s *SQLiteStorage) UpdateRedemptionOption(ctx context.Context, option *model.RedemptionOption) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateOption(option); err != nil {
		return err
	}
	if err := validateID(option.ID, "option id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE redemption_options
		SET type = ?, points_required = ?, cash_value = ?, fees = ?, restrictions = ?
		WHERE id = ?
	`, string(option.Type), option.PointsRequired, option.CashValue, option.Fees, option.Restrictions, option.ID)
	if err != nil {
		return fmt.Errorf("failed to update redemption option: %w", err)
	}
	return requireAffected(result, "redemption option", option.ID)
}

// DeleteRedemptionOption removes a single option.
func (s *SQLiteStorage) DeleteRedemptionOption(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id, "option id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM redemption_options WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete redemption option: %w", err)
	}
	return requireAffected(result, "redemption option", id)
}

func insertOption(ctx context.Context, q queryable, profileID int64, option *model.RedemptionOption) (int64, error) {
	result, err := q.ExecContext(ctx, `
		INSERT INTO redemption_options (profile_id, type, points_required, cash_value, fees, restrictions)
		VALUES (?, ?, ?, ?, ?, ?)
	`, profileID, string(option.Type), option.PointsRequired, option.CashValue, option.Fees, option.Restrictions)
	if err != nil {
		return 0, fmt.Errorf("failed to insert redemption option: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get redemption option id: %w", err)
	}
	option.ID = id
	return id, nil
}

type profileOption struct {
	option    model.RedemptionOption
	profileID int64
}

func (s *SQLiteStorage) queryOptions(ctx context.Context, query string, args ...any) ([]profileOption, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query redemption options: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var options []profileOption
	for rows.Next() {
		var po profileOption
		var optionType string
		if err := rows.Scan(
			&po.option.ID,
			&po.profileID,
			&optionType,
			&po.option.PointsRequired,
			&po.option.CashValue,
			&po.option.Fees,
			&po.option.Restrictions,
		); err != nil {
			return nil, fmt.Errorf("failed to scan redemption option: %w", err)
		}
		po.option.Type = model.RedemptionType(optionType)
		options = append(options, po)
	}
	return options, rows.Err()
}
