package services

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"

	apperrors "xui-shop-bot/internal/errors"
	"xui-shop-bot/internal/helpers"
	"xui-shop-bot/internal/models"
	"xui-shop-bot/internal/storage"
)

// entitlementWriter is the slice of the user store the reconciler writes to
type entitlementWriter interface {
	ReplaceEntitlements(ctx context.Context, snapshot map[int64]storage.EntitlementSnapshot) error
	Upsert(ctx context.Context, tgID int64, name string) error
}

// SyncService reconciles the panel's inbound list into the local
// entitlement view. It is the authoritative writer of user entitlements.
type SyncService struct {
	panel  PanelAPI
	users  entitlementWriter
	logger *logrus.Logger
}

// NewSyncService creates a new sync service
func NewSyncService(panel PanelAPI, users entitlementWriter, logger *logrus.Logger) *SyncService {
	return &SyncService{
		panel:  panel,
		users:  users,
		logger: logger,
	}
}

// mergedClient joins a client's provisioning settings with its traffic stat
type mergedClient struct {
	setting models.Client
	stat    models.ClientStat
}

// Sync runs one full reconciliation pass: fetch, merge, normalize, persist.
// A fetch failure aborts the whole pass so the last-known-good snapshot is
// preserved; per-inbound and per-client problems are logged and skipped.
func (s *SyncService) Sync(ctx context.Context) error {
	inbounds, err := s.panel.ListInbounds(ctx)
	if err != nil {
		return &apperrors.ReconciliationSourceUnavailableError{Err: err}
	}

	snapshot := s.buildSnapshot(inbounds)

	if err := s.users.ReplaceEntitlements(ctx, snapshot); err != nil {
		return err
	}

	s.logger.Infof("Reconciled entitlements for %d users from %d inbounds", len(snapshot), len(inbounds))
	return nil
}

// SyncTelegramUser records the core identity of a user interacting over
// Telegram so a later purchase can resolve them even before the panel has
// ever seen them.
func (s *SyncService) SyncTelegramUser(ctx context.Context, tgID int64, name string) error {
	return s.users.Upsert(ctx, tgID, name)
}

// buildSnapshot turns the raw inbound list into the per-user normalized map
func (s *SyncService) buildSnapshot(inbounds []models.Inbound) map[int64]storage.EntitlementSnapshot {
	grouped := make(map[int64][]mergedClient)
	var order []int64

	for _, inbound := range inbounds {
		for _, mc := range s.mergeInboundClients(inbound) {
			tgID := mc.setting.TgID.Int64()
			if tgID <= 0 {
				// Clients without a Telegram owner are other resellers'
				// entries or manual panel noise.
				continue
			}
			if _, known := grouped[tgID]; !known {
				order = append(order, tgID)
			}
			grouped[tgID] = append(grouped[tgID], mc)
		}
	}

	snapshot := make(map[int64]storage.EntitlementSnapshot, len(grouped))
	for _, tgID := range order {
		subs := models.UserEntitlements{}
		name := ""
		for _, mc := range grouped[tgID] {
			if mc.setting.SubID == "" {
				s.logger.Warnf("Skipping client %q for user %d: empty subId", mc.setting.Email, tgID)
				continue
			}
			if _, dup := subs[mc.setting.SubID]; dup {
				// Overlapping inbounds replicate the same client; the first
				// occurrence is the stable one.
				continue
			}
			subs[mc.setting.SubID] = normalizeClient(mc)
			if name == "" {
				name = helpers.ParseClientEmail(mc.setting.Email).RealName
			}
		}
		if len(subs) == 0 {
			continue
		}
		snapshot[tgID] = storage.EntitlementSnapshot{Name: name, Subscriptions: subs}
	}

	return snapshot
}

// mergeInboundClients joins one inbound's settings with its stats by email
func (s *SyncService) mergeInboundClients(inbound models.Inbound) []mergedClient {
	clients, err := parseInboundClients(inbound)
	if err != nil {
		s.logger.Warnf("%v", &apperrors.MalformedInboundDataError{InboundID: inbound.ID, Err: err})
		return nil
	}

	lookup := make(map[string]models.Client, len(clients))
	for _, c := range clients {
		lookup[c.Email] = c
	}

	merged := make([]mergedClient, 0, len(inbound.ClientStats))
	for _, stat := range inbound.ClientStats {
		setting, ok := lookup[stat.Email]
		if !ok {
			s.logger.Warnf("Dropping orphaned stat %q on inbound %d: no matching client setting", stat.Email, inbound.ID)
			continue
		}
		merged = append(merged, mergedClient{setting: setting, stat: stat})
	}

	return merged
}

// normalizeClient produces the stable per-subscription record shape
func normalizeClient(mc mergedClient) models.SubscriptionRecord {
	return models.SubscriptionRecord{
		Status:       mc.setting.Enable,
		Name:         mc.setting.Email,
		ID:           mc.setting.ID,
		Subscription: mc.setting.SubID,
		TimeLimit:    mc.setting.ExpiryTime,
		Upload:       mc.stat.Up,
		Download:     mc.stat.Down,
		Usage:        usagePercent(mc.stat.Up, mc.stat.Down, mc.stat.Total),
		TotalGB:      mc.setting.TotalGB,
		Flow:         mc.setting.Flow,
		LimitIP:      mc.setting.LimitIP,
		Reset:        mc.setting.Reset,
		Comment:      mc.setting.Comment,
	}
}

// usagePercent returns the used share of the quota rounded to two decimals,
// capped at 100, or nil when the quota is unlimited.
func usagePercent(up, down, total int64) *float64 {
	if total <= 0 {
		return nil
	}

	pct := float64(up+down) / float64(total) * 100
	pct = math.Round(pct*100) / 100
	if pct > 100 {
		pct = 100
	}
	return &pct
}
