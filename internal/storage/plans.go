package storage

import (
	"context"
	"database/sql"
	"errors"

	"xui-shop-bot/internal/models"
)

// PlanStore reads the subscription plan catalog
type PlanStore struct {
	db *sql.DB
}

// NewPlanStore creates a new plan store
func NewPlanStore(db *sql.DB) *PlanStore {
	return &PlanStore{db: db}
}

const planColumns = `id, slug, name, amount, duration, users_count, total_gb, is_active`

// FindByID fetches one plan by its id
func (s *PlanStore) FindByID(ctx context.Context, id int64) (*models.SubscriptionPlan, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM subscription_plans WHERE id = ?`, id))
}

// FindBySlug fetches one plan by its slug
func (s *PlanStore) FindBySlug(ctx context.Context, slug string) (*models.SubscriptionPlan, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM subscription_plans WHERE slug = ?`, slug))
}

// ListActive fetches the purchasable catalog
func (s *PlanStore) ListActive(ctx context.Context) ([]models.SubscriptionPlan, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+planColumns+` FROM subscription_plans WHERE is_active = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []models.SubscriptionPlan
	for rows.Next() {
		var p models.SubscriptionPlan
		if err := scanPlan(rows.Scan, &p); err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (s *PlanStore) scanOne(row *sql.Row) (*models.SubscriptionPlan, error) {
	var p models.SubscriptionPlan
	err := scanPlan(row.Scan, &p)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPlan(scan func(dest ...any) error, p *models.SubscriptionPlan) error {
	var active int
	if err := scan(&p.ID, &p.Slug, &p.Name, &p.Amount, &p.Duration,
		&p.UsersCount, &p.TotalGB, &active); err != nil {
		return err
	}
	p.IsActive = active == 1
	return nil
}
