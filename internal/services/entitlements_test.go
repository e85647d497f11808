package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xui-shop-bot/internal/models"
	"xui-shop-bot/internal/storage"
)

func TestGetActiveFiltersDisabledAndExpired(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	users := &fakeDirectory{users: map[int64]*storage.User{
		100: {TgID: 100, Name: "Alice", Entitlements: models.UserEntitlements{
			"active":    {Status: true, TimeLimit: now.UnixMilli() + 1000},
			"unlimited": {Status: true, TimeLimit: 0},
			"disabled":  {Status: false, TimeLimit: now.UnixMilli() + 1000},
			"expired":   {Status: true, TimeLimit: now.UnixMilli() - 1000},
		}},
	}}

	svc := NewEntitlementService(users, testLogger())
	svc.now = func() time.Time { return now }

	active, err := svc.GetActive(context.Background(), 100)
	require.NoError(t, err)
	assert.Len(t, active, 2)
	assert.Contains(t, active, "active")
	assert.Contains(t, active, "unlimited")
}

func TestGetSubscription(t *testing.T) {
	users := &fakeDirectory{users: map[int64]*storage.User{
		100: {TgID: 100, Entitlements: models.UserEntitlements{
			"sub-a": {Subscription: "sub-a", TimeLimit: 42},
		}},
	}}

	svc := NewEntitlementService(users, testLogger())

	record, ok, err := svc.GetSubscription(context.Background(), 100, "sub-a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(42), record.TimeLimit)

	_, ok, err = svc.GetSubscription(context.Background(), 100, "sub-z")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetForUnknownUserIsEmpty(t *testing.T) {
	svc := NewEntitlementService(&fakeDirectory{}, testLogger())

	ents, err := svc.Get(context.Background(), 999)
	require.NoError(t, err)
	assert.Empty(t, ents)
}
