package models

// SubscriptionRecord is the normalized, UI-agnostic view of one subscription.
// It is the join of a client's provisioning settings and its traffic stats,
// persisted per user under the subscription identifier.
type SubscriptionRecord struct {
	Status       bool     `json:"status"`
	Name         string   `json:"name"`
	ID           string   `json:"id"`
	Subscription string   `json:"subscription"`
	TimeLimit    int64    `json:"time_limit"`
	Upload       int64    `json:"upload"`
	Download     int64    `json:"download"`
	Usage        *float64 `json:"usage"`
	TotalGB      int64    `json:"totalGB"`
	Flow         string   `json:"flow"`
	LimitIP      int      `json:"limitIp"`
	Reset        int64    `json:"reset"`
	Comment      string   `json:"comment"`
}

// IsExpired reports whether the subscription's expiry has passed.
// A zero time limit means unlimited.
func (r SubscriptionRecord) IsExpired(nowMs int64) bool {
	return r.TimeLimit > 0 && r.TimeLimit <= nowMs
}

// UserEntitlements maps subId to the normalized subscription record for one user
type UserEntitlements map[string]SubscriptionRecord
