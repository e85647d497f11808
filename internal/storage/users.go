package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"xui-shop-bot/internal/models"
)

// ErrNotFound is returned when a row does not exist
var ErrNotFound = errors.New("not found")

// User is the core identity row holding the per-user entitlement blob
type User struct {
	TgID         int64
	Name         string
	Entitlements models.UserEntitlements
}

// EntitlementSnapshot is one user's slice of a reconciliation pass
type EntitlementSnapshot struct {
	Name          string
	Subscriptions models.UserEntitlements
}

// UserStore persists users and their entitlement maps
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a new user store
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// Upsert creates a user row or refreshes its name
func (s *UserStore) Upsert(ctx context.Context, tgID int64, name string) error {
	now := time.Now().UnixMilli()
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO users (tg_id, name, xui_data, created_at, updated_at)
        VALUES (?, ?, '{}', ?, ?)
        ON CONFLICT (tg_id) DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at`,
		tgID, name, now, now)
	return err
}

// Get fetches one user with their entitlement map
func (s *UserStore) Get(ctx context.Context, tgID int64) (*User, error) {
	var (
		user User
		blob string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT tg_id, name, xui_data FROM users WHERE tg_id = ?`, tgID).
		Scan(&user.TgID, &user.Name, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(blob), &user.Entitlements); err != nil {
		return nil, fmt.Errorf("decode entitlements for user %d: %w", tgID, err)
	}
	if user.Entitlements == nil {
		user.Entitlements = models.UserEntitlements{}
	}

	return &user, nil
}

// Entitlements fetches only the entitlement map for one user. A missing
// user yields an empty map, not an error.
func (s *UserStore) Entitlements(ctx context.Context, tgID int64) (models.UserEntitlements, error) {
	user, err := s.Get(ctx, tgID)
	if errors.Is(err, ErrNotFound) {
		return models.UserEntitlements{}, nil
	}
	if err != nil {
		return nil, err
	}
	return user.Entitlements, nil
}

// ReplaceEntitlements applies a full reconciliation snapshot in one
// transaction: every stored subscription is first marked disabled, then the
// fresh records are merged on top (new data wins per subId). A subscription
// that disappeared from the panel therefore ends up disabled instead of
// staying stale-active. Users seen for the first time are inserted.
func (s *UserStore) ReplaceEntitlements(ctx context.Context, snapshot map[int64]EntitlementSnapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT tg_id, xui_data FROM users`)
	if err != nil {
		return err
	}

	type pendingUpdate struct {
		tgID int64
		blob []byte
	}

	var updates []pendingUpdate
	seen := make(map[int64]bool, len(snapshot))

	for rows.Next() {
		var (
			tgID int64
			blob string
		)
		if err := rows.Scan(&tgID, &blob); err != nil {
			rows.Close()
			return err
		}

		var ents models.UserEntitlements
		if err := json.Unmarshal([]byte(blob), &ents); err != nil {
			rows.Close()
			return fmt.Errorf("decode entitlements for user %d: %w", tgID, err)
		}
		if ents == nil {
			ents = models.UserEntitlements{}
		}

		// Mark pass: everything previously known goes inactive.
		for subID, record := range ents {
			record.Status = false
			ents[subID] = record
		}

		// Merge pass: records still present on the panel overwrite.
		if fresh, ok := snapshot[tgID]; ok {
			seen[tgID] = true
			for subID, record := range fresh.Subscriptions {
				ents[subID] = record
			}
		}

		merged, err := json.Marshal(ents)
		if err != nil {
			rows.Close()
			return err
		}
		updates = append(updates, pendingUpdate{tgID: tgID, blob: merged})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	now := time.Now().UnixMilli()
	for _, u := range updates {
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET xui_data = ?, updated_at = ? WHERE tg_id = ?`,
			string(u.blob), now, u.tgID); err != nil {
			return err
		}
	}

	for tgID, fresh := range snapshot {
		if seen[tgID] {
			continue
		}
		blob, err := json.Marshal(fresh.Subscriptions)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO users (tg_id, name, xui_data, created_at, updated_at)
            VALUES (?, ?, ?, ?, ?)`,
			tgID, fresh.Name, string(blob), now, now); err != nil {
			return err
		}
	}

	return tx.Commit()
}
