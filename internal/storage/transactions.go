package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"xui-shop-bot/internal/models"
)

// TransactionStore persists payment attempts
type TransactionStore struct {
	db *sql.DB
}

// NewTransactionStore creates a new transaction store
func NewTransactionStore(db *sql.DB) *TransactionStore {
	return &TransactionStore{db: db}
}

// Create inserts a new pending transaction and fills in its id
func (s *TransactionStore) Create(ctx context.Context, t *models.Transaction) error {
	now := time.Now().UnixMilli()
	if t.Status == "" {
		t.Status = models.StatusPending
	}
	if t.Gateway == "" {
		t.Gateway = "zibal"
	}
	t.CreatedAt = now
	t.UpdatedAt = now

	result, err := s.db.ExecContext(ctx, `
        INSERT INTO transactions
            (user_id, subscription_plan_id, user_subscription_id, amount, gateway,
             ref_id, ref_number, card_number, status, paid_at, description,
             created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.SubscriptionPlanID, t.UserSubscriptionID, t.Amount, t.Gateway,
		t.RefID, t.RefNumber, t.CardNumber, t.Status, t.PaidAt, t.Description,
		t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return err
	}

	t.ID, err = result.LastInsertId()
	return err
}

// FindByRef fetches a transaction by its gateway track id
func (s *TransactionStore) FindByRef(ctx context.Context, refID string) (*models.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, user_id, subscription_plan_id, user_subscription_id, amount,
               gateway, ref_id, ref_number, card_number, status, paid_at,
               description, created_at, updated_at
        FROM transactions WHERE ref_id = ?`, refID)

	var t models.Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.SubscriptionPlanID, &t.UserSubscriptionID,
		&t.Amount, &t.Gateway, &t.RefID, &t.RefNumber, &t.CardNumber, &t.Status,
		&t.PaidAt, &t.Description, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// TerminalFields carries the gateway report persisted on settlement
type TerminalFields struct {
	CardNumber  string
	RefNumber   string
	PaidAt      string
	Description string
}

// MarkTerminal transitions a transaction out of pending with a conditional
// update. Exactly one caller wins under concurrent duplicate delivery; the
// losers see false.
func (s *TransactionStore) MarkTerminal(ctx context.Context, refID, status string, fields TerminalFields) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
        UPDATE transactions
        SET status = ?, card_number = ?, ref_number = ?, paid_at = ?,
            description = ?, updated_at = ?
        WHERE ref_id = ? AND status = ?`,
		status, fields.CardNumber, fields.RefNumber, fields.PaidAt,
		fields.Description, time.Now().UnixMilli(), refID, models.StatusPending)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected == 1, nil
}
