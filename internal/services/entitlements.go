package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"xui-shop-bot/internal/models"
	"xui-shop-bot/internal/storage"
)

// UserDirectory is the slice of the user store the read side consumes
type UserDirectory interface {
	Get(ctx context.Context, tgID int64) (*storage.User, error)
	Entitlements(ctx context.Context, tgID int64) (models.UserEntitlements, error)
}

// EntitlementService reads the per-user subscription view. It holds no
// business logic beyond lookup and filtering; the sync service is the
// authoritative writer.
type EntitlementService struct {
	users  UserDirectory
	logger *logrus.Logger
	now    func() time.Time
}

// NewEntitlementService creates a new entitlement service
func NewEntitlementService(users UserDirectory, logger *logrus.Logger) *EntitlementService {
	return &EntitlementService{
		users:  users,
		logger: logger,
		now:    time.Now,
	}
}

// Get returns everything currently known for one user
func (s *EntitlementService) Get(ctx context.Context, tgID int64) (models.UserEntitlements, error) {
	return s.users.Entitlements(ctx, tgID)
}

// GetSubscription returns one subscription record by its subId
func (s *EntitlementService) GetSubscription(ctx context.Context, tgID int64, subID string) (models.SubscriptionRecord, bool, error) {
	ents, err := s.users.Entitlements(ctx, tgID)
	if err != nil {
		return models.SubscriptionRecord{}, false, err
	}

	record, ok := ents[subID]
	return record, ok, nil
}

// GetActive returns the user's subscriptions that are enabled and not expired
func (s *EntitlementService) GetActive(ctx context.Context, tgID int64) (models.UserEntitlements, error) {
	ents, err := s.users.Entitlements(ctx, tgID)
	if err != nil {
		return nil, err
	}

	nowMs := s.now().UnixMilli()
	active := models.UserEntitlements{}
	for subID, record := range ents {
		if record.Status && !record.IsExpired(nowMs) {
			active[subID] = record
		}
	}

	return active, nil
}
