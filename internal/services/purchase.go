package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"xui-shop-bot/internal/config"
	"xui-shop-bot/internal/constants"
	apperrors "xui-shop-bot/internal/errors"
	"xui-shop-bot/internal/helpers"
	"xui-shop-bot/internal/models"
	"xui-shop-bot/internal/storage"
)

// PurchaseService grants or extends panel-side access after a payment is
// confirmed. It is not idempotent against duplicate calls; the payment
// ledger guarantees at-most-once invocation per transaction.
type PurchaseService struct {
	panel     PanelAPI
	users     UserDirectory
	panelConf config.PanelConfig
	logger    *logrus.Logger
	now       func() time.Time
}

// NewPurchaseService creates a new purchase service
func NewPurchaseService(panel PanelAPI, users UserDirectory, panelConf config.PanelConfig, logger *logrus.Logger) *PurchaseService {
	return &PurchaseService{
		panel:     panel,
		users:     users,
		panelConf: panelConf,
		logger:    logger,
		now:       time.Now,
	}
}

// ApplyPurchase provisions a new client or renews an existing one for a
// paid transaction, returning the subId that was granted or extended.
// Per-inbound panel failures are logged and skipped so a purchase can end
// up partially applied; only unrecoverable errors (user unknown, inbound
// list unavailable) yield false.
func (s *PurchaseService) ApplyPurchase(ctx context.Context, txn *models.Transaction, plan *models.SubscriptionPlan) (string, bool) {
	if plan == nil {
		s.fail(txn, "plan not found")
		return "", false
	}

	user, err := s.users.Get(ctx, txn.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.fail(txn, "user not found")
		} else {
			s.fail(txn, err.Error())
		}
		return "", false
	}

	inbounds, err := s.panel.ListInbounds(ctx)
	if err != nil {
		s.fail(txn, err.Error())
		return "", false
	}
	targets := s.relevantInboundIDs(inbounds)

	subKey := txn.UserSubscriptionID
	if subKey != models.NewSubscriptionKey {
		if _, ok := user.Entitlements[subKey]; !ok {
			// The user paid to renew a subscription that no longer exists
			// (deleted upstream); grant a fresh one instead.
			s.logger.Warnf("Subscription %s not found for user %d, provisioning a new client", subKey, user.TgID)
			subKey = models.NewSubscriptionKey
		}
	}

	if subKey == models.NewSubscriptionKey {
		s.logger.Infof("Provisioning new client for user %d (transaction %d)", user.TgID, txn.ID)
		return s.provision(ctx, user, plan, targets)
	}

	s.logger.Infof("Renewing subscription %s for user %d (transaction %d)", subKey, user.TgID, txn.ID)
	return s.renew(ctx, user, plan, inbounds, targets, subKey)
}

// ProvisionTrial fans out a short-lived trial client across all relevant
// inbounds and returns its subId.
func (s *PurchaseService) ProvisionTrial(ctx context.Context, tgID int64) (string, error) {
	user, err := s.users.Get(ctx, tgID)
	if err != nil {
		return "", err
	}

	inbounds, err := s.panel.ListInbounds(ctx)
	if err != nil {
		return "", err
	}

	clientID := uuid.NewString()
	subID := "test-" + models.GenerateSubID()
	if len(subID) > constants.SubIDLength {
		subID = subID[:constants.SubIDLength]
	}
	expiry := s.now().AddDate(0, 0, constants.TrialDurationDays).UnixMilli()

	for _, inboundID := range s.relevantInboundIDs(inbounds) {
		client := models.Client{
			ID:         clientID,
			Email:      helpers.BuildClientEmail(subID, inboundID, user.Name+" - Test", 0),
			LimitIP:    constants.TrialDeviceLimit,
			TotalGB:    constants.TrialTotalGB * constants.BytesInGB,
			ExpiryTime: expiry,
			Enable:     true,
			TgID:       models.FlexInt64(user.TgID),
			SubID:      subID,
			Comment:    user.Name,
		}
		if err := s.panel.AddClient(ctx, inboundID, client); err != nil {
			s.logger.Errorf("Failed to add trial client to inbound %d: %v", inboundID, err)
		}
	}

	return subID, nil
}

// provision creates a brand-new client replica on every relevant inbound
func (s *PurchaseService) provision(ctx context.Context, user *storage.User, plan *models.SubscriptionPlan, targets []int) (string, bool) {
	clientID := uuid.NewString()
	subID := models.GenerateSubID()
	expiry := s.now().AddDate(0, plan.Duration, 0).UnixMilli()

	for _, inboundID := range targets {
		client := models.Client{
			ID:         clientID,
			Email:      helpers.BuildClientEmail(subID, inboundID, user.Name, plan.UsersCount),
			LimitIP:    plan.UsersCount,
			TotalGB:    plan.QuotaBytes(),
			ExpiryTime: expiry,
			Enable:     true,
			TgID:       models.FlexInt64(user.TgID),
			SubID:      subID,
			Comment:    user.Name,
		}
		if err := s.panel.AddClient(ctx, inboundID, client); err != nil {
			s.logger.Errorf("Failed to add client %s to inbound %d: %v", subID, inboundID, err)
		}
	}

	return subID, true
}

// renew extends the existing client in place on every relevant inbound.
// The client UUID is preserved so usage history stays continuous; unused
// remaining time is kept by basing the new expiry on max(old, now).
func (s *PurchaseService) renew(ctx context.Context, user *storage.User, plan *models.SubscriptionPlan, inbounds []models.Inbound, targets []int, subKey string) (string, bool) {
	meta := user.Entitlements[subKey]

	nowMs := s.now().UnixMilli()
	base := meta.TimeLimit
	if base < nowMs {
		base = nowMs
	}
	expiry := time.UnixMilli(base).AddDate(0, plan.Duration, 0).UnixMilli()
	quota := plan.QuotaBytes()

	for _, inboundID := range targets {
		client, ok := findClientBySubID(inbounds, inboundID, subKey)
		if !ok {
			s.logger.Warnf("Client with subId %s not found on inbound %d, skipping", subKey, inboundID)
			continue
		}

		client.ExpiryTime = expiry
		client.TotalGB = quota

		if err := s.panel.UpdateClient(ctx, inboundID, client.ID, client); err != nil {
			s.logger.Errorf("Failed to update client %s on inbound %d: %v", client.ID, inboundID, err)
		}
	}

	return subKey, true
}

// relevantInboundIDs filters out the configured exclusion list
func (s *PurchaseService) relevantInboundIDs(inbounds []models.Inbound) []int {
	excluded := make(map[int]bool, len(s.panelConf.ExcludedInboundIDs))
	for _, id := range s.panelConf.ExcludedInboundIDs {
		excluded[id] = true
	}

	ids := make([]int, 0, len(inbounds))
	for _, inbound := range inbounds {
		if excluded[inbound.ID] {
			continue
		}
		ids = append(ids, inbound.ID)
	}
	return ids
}

// findClientBySubID resolves the full client object for a subId on one inbound
func findClientBySubID(inbounds []models.Inbound, inboundID int, subID string) (models.Client, bool) {
	for _, inbound := range inbounds {
		if inbound.ID != inboundID {
			continue
		}
		clients, err := parseInboundClients(inbound)
		if err != nil {
			return models.Client{}, false
		}
		for _, client := range clients {
			if client.SubID == subID {
				return client, true
			}
		}
	}
	return models.Client{}, false
}

func (s *PurchaseService) fail(txn *models.Transaction, reason string) {
	s.logger.Errorf("%v", &apperrors.PurchaseApplicationFailedError{TransactionID: txn.ID, Reason: reason})
}
