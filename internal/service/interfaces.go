// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/spendwise/internal/model"
)

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Transaction operations
	AddTransaction(ctx context.Context, txn *model.Transaction) (string, error)
	BulkAddTransactions(ctx context.Context, transactions []model.Transaction) ([]string, error)
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)
	ListTransactions(ctx context.Context, filter model.TransactionFilter) ([]model.Transaction, error)
	UpdateTransaction(ctx context.Context, txn *model.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
	CardLabels(ctx context.Context) ([]string, error)

	// Reward profile operations
	AddRewardProfile(ctx context.Context, name string, balance int64, options []model.RedemptionOption) (int64, error)
	GetRewardProfiles(ctx context.Context) ([]model.RewardProfile, error)
	GetRewardProfile(ctx context.Context, id int64) (*model.RewardProfile, error)
	UpdateRewardBalance(ctx context.Context, id int64, balance int64) error
	DeleteRewardProfile(ctx context.Context, id int64) error
	AddRedemptionOption(ctx context.Context, profileID int64, option *model.RedemptionOption) (int64, error)
	UpdateRedemptionOption(ctx context.Context, option *model.RedemptionOption) error
	DeleteRedemptionOption(ctx context.Context, id int64) error

	// Settings
	GetEarningRates(ctx context.Context) (model.EarningRates, error)
	SaveEarningRates(ctx context.Context, rates model.EarningRates) error
	GetAdvisorySettings(ctx context.Context) (model.AdvisorySettings, error)
	SaveAdvisorySettings(ctx context.Context, settings model.AdvisorySettings) error

	// Category rules
	AddCategoryRule(ctx context.Context, rule *model.CategoryRule) (int64, error)
	ListCategoryRules(ctx context.Context, activeOnly bool) ([]model.CategoryRule, error)
	SetCategoryRuleActive(ctx context.Context, id int64, active bool) error
	DeleteCategoryRule(ctx context.Context, id int64) error
	RecordRuleUse(ctx context.Context, uses map[int64]int) error

	// User profile
	GetUserProfile(ctx context.Context) (*model.UserProfile, error)
	SaveUserProfile(ctx context.Context, profile *model.UserProfile) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// EventPublisher announces changes to transaction data.
type EventPublisher interface {
	PublishTransactionsImported(ctx context.Context, source string, ids []string) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DateRange represents a time period with start and end dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}
