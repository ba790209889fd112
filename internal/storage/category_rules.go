package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Veraticus/spendwise/internal/model"
)

const ruleColumns = `id, name, merchant_pattern, is_regex, amount_condition, amount_value,
	amount_min, amount_max, category, priority, is_active, use_count, created_at`

// AddCategoryRule stores a rule and returns its ID.
func (s *SQLiteStorage) AddCategoryRule(ctx context.Context, rule *model.CategoryRule) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if rule == nil {
		return 0, fmt.Errorf("%w: category rule", ErrNilParameter)
	}
	rule.Normalize()
	if err := rule.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidRule, err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO category_rules (
			name, merchant_pattern, is_regex, amount_condition, amount_value,
			amount_min, amount_max, category, priority, is_active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.Name, rule.MerchantPattern, rule.IsRegex, rule.AmountCondition, rule.AmountValue,
		rule.AmountMin, rule.AmountMax, rule.Category, rule.Priority, rule.IsActive,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert category rule: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get category rule id: %w", err)
	}
	rule.ID = id
	return id, nil
}

// ListCategoryRules returns rules by priority, highest first, then by ID.
// With activeOnly, disabled rules are left out.
func (s *SQLiteStorage) ListCategoryRules(ctx context.Context, activeOnly bool) ([]model.CategoryRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + ruleColumns + ` FROM category_rules`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY priority DESC, id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query category rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	rules := []model.CategoryRule{}
	for rows.Next() {
		var r model.CategoryRule
		var createdAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.Name, &r.MerchantPattern, &r.IsRegex, &r.AmountCondition, &r.AmountValue,
			&r.AmountMin, &r.AmountMax, &r.Category, &r.Priority, &r.IsActive, &r.UseCount, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan category rule: %w", err)
		}
		r.CreatedAt = createdAt.Time
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// SetCategoryRuleActive enables or disables a rule.
func (s *SQLiteStorage) SetCategoryRuleActive(ctx context.Context, id int64, active bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id, "rule id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `UPDATE category_rules SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("failed to update category rule: %w", err)
	}
	return requireAffected(result, "category rule", id)
}

// DeleteCategoryRule removes a rule.
func (s *SQLiteStorage) DeleteCategoryRule(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id, "rule id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM category_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category rule: %w", err)
	}
	return requireAffected(result, "category rule", id)
}

// RecordRuleUse adds uses[id] to each rule's use count. Unknown IDs are ignored.
func (s *SQLiteStorage) RecordRuleUse(ctx context.Context, uses map[int64]int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(uses) == 0 {
		return nil
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `UPDATE category_rules SET use_count = use_count + ? WHERE id = ?`)
		if err != nil {
			return fmt.Errorf("failed to prepare rule use update: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for id, n := range uses {
			if id <= 0 || n <= 0 {
				continue
			}
			if _, err := stmt.ExecContext(ctx, n, id); err != nil {
				return fmt.Errorf("failed to record use of rule %d: %w", id, err)
			}
		}
		return nil
	})
}
