package models

import (
	"xui-shop-bot/internal/constants"
)

// SubscriptionPlan is a catalog entry, read-only during the purchase flow
type SubscriptionPlan struct {
	ID         int64  `json:"id"`
	Slug       string `json:"slug"`
	Name       string `json:"name"`
	Amount     int64  `json:"amount"`
	Duration   int    `json:"duration"` // months
	UsersCount int    `json:"users_count"`
	TotalGB    int64  `json:"total_gb"`
	IsActive   bool   `json:"is_active"`
}

// QuotaBytes returns the plan quota in bytes as the panel expects it
func (p SubscriptionPlan) QuotaBytes() int64 {
	return p.TotalGB * constants.BytesInGB
}
