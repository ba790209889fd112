package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/spendwise/internal/common"
	"github.com/Veraticus/spendwise/internal/model"
	"github.com/google/uuid"
)

const transactionColumns = `id, hash, date, merchant, amount, currency, category, card_label, notes, raw_description`

// AddTransaction stores a single transaction and returns its ID. An ID is
// generated when the transaction does not carry one.
func (s *SQLiteStorage) AddTransaction(ctx context.Context, txn *model.Transaction) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if txn == nil {
		return "", fmt.Errorf("%w: transaction", ErrNilParameter)
	}

	txn.Normalize()
	if err := validateTransaction(txn); err != nil {
		return "", err
	}
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	txn.Hash = txn.GenerateHash()

	if err := s.insertTransaction(ctx, s.db, txn); err != nil {
		return "", err
	}
	return txn.ID, nil
}

// BulkAddTransactions stores a batch of transactions in one database
// transaction. Rows whose hash already exists, in the database or earlier in
// the batch, are skipped. It returns the IDs actually inserted and writes
// each one back to its row in transactions.
func (s *SQLiteStorage) BulkAddTransactions(ctx context.Context, transactions []model.Transaction) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if len(transactions) == 0 {
		return []string{}, nil
	}

	batch := make([]model.Transaction, len(transactions))
	copy(batch, transactions)
	for i := range batch {
		batch[i].Normalize()
	}
	if err := validateTransactions(batch); err != nil {
		return nil, err
	}

	inserted := make([]string, 0, len(batch))
	var rows []int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		seen := make(map[string]bool, len(batch))
		for i := range batch {
			txn := &batch[i]
			txn.Hash = txn.GenerateHash()
			if seen[txn.Hash] {
				continue
			}
			seen[txn.Hash] = true

			exists, err := hashExists(ctx, tx, txn.Hash)
			if err != nil {
				return err
			}
			if exists {
				continue
			}

			if txn.ID == "" {
				txn.ID = uuid.NewString()
			}
			if err := s.insertTransaction(ctx, tx, txn); err != nil {
				return err
			}
			inserted = append(inserted, txn.ID)
			rows = append(rows, i)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, i := range rows {
		transactions[i].ID = batch[i].ID
	}
	return inserted, nil
}

func hashExists(ctx context.Context, q queryable, hash string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM transactions WHERE hash = ? LIMIT 1`, hash).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check for duplicate: %w", err)
	}
	return true, nil
}

func (s *SQLiteStorage) insertTransaction(ctx context.Context, q queryable, txn *model.Transaction) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		txn.ID,
		txn.Hash,
		txn.Date.Format(model.DateLayout),
		txn.Merchant,
		txn.Amount,
		txn.Currency,
		txn.Category,
		txn.CardLabel,
		txn.Notes,
		txn.RawDescription,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
	}
	return nil
}

// GetTransaction retrieves a single transaction by ID.
func (s *SQLiteStorage) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return txn, nil
}

// ListTransactions returns transactions matching filter, newest first.
func (s *SQLiteStorage) ListTransactions(ctx context.Context, filter model.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE 1=1`
	var args []any

	if filter.DateFrom != nil {
		query += " AND date >= ?"
		args = append(args, model.Day(*filter.DateFrom).Format(model.DateLayout))
	}
	if filter.DateTo != nil {
		query += " AND date <= ?"
		args = append(args, model.Day(*filter.DateTo).Format(model.DateLayout))
	}
	if filter.Merchant != "" {
		query += ` AND LOWER(merchant) LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(strings.ToLower(filter.Merchant))+"%")
	}
	if filter.Category != "" {
		query += " AND category = ?"
		args = append(args, filter.Category)
	}
	if filter.CardLabel != "" {
		query += " AND card_label = ?"
		args = append(args, filter.CardLabel)
	}

	query += " ORDER BY date DESC, created_at DESC, id ASC"

	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	transactions := []model.Transaction{}
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *txn)
	}

	return transactions, rows.Err()
}

// UpdateTransaction replaces every editable field of an existing transaction.
func (s *SQLiteStorage) UpdateTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if err := validateString(txn.ID, "id"); err != nil {
		return err
	}

	txn.Normalize()
	if err := validateTransaction(txn); err != nil {
		return err
	}
	txn.Hash = txn.GenerateHash()

	result, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET hash = ?, date = ?, merchant = ?, amount = ?, currency = ?,
		    category = ?, card_label = ?, notes = ?, raw_description = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`,
		txn.Hash,
		txn.Date.Format(model.DateLayout),
		txn.Merchant,
		txn.Amount,
		txn.Currency,
		txn.Category,
		txn.CardLabel,
		txn.Notes,
		txn.RawDescription,
		txn.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return requireAffected(result, "transaction", txn.ID)
}

// DeleteTransaction removes a transaction.
func (s *SQLiteStorage) DeleteTransaction(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return requireAffected(result, "transaction", id)
}

// CardLabels returns the distinct non-empty card labels in use.
func (s *SQLiteStorage) CardLabels(ctx context.Context) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT card_label FROM transactions
		WHERE card_label != ''
		ORDER BY card_label
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query card labels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	labels := []string{}
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("failed to scan card label: %w", err)
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}

// GetTransactionCount returns the total number of stored transactions.
func (s *SQLiteStorage) GetTransactionCount(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (*model.Transaction, error) {
	var txn model.Transaction
	var date string

	if err := row.Scan(
		&txn.ID,
		&txn.Hash,
		&date,
		&txn.Merchant,
		&txn.Amount,
		&txn.Currency,
		&txn.Category,
		&txn.CardLabel,
		&txn.Notes,
		&txn.RawDescription,
	); err != nil {
		return nil, err
	}

	parsed, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("failed to parse date %q: %w", date, err)
	}
	txn.Date = parsed
	return &txn, nil
}

func requireAffected(result sql.Result, entity string, id any) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %v: %w", entity, id, common.ErrNotFound)
	}
	return nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
