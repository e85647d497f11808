package models

// Transaction statuses. Pending transitions to exactly one terminal state.
const (
	StatusPending = "pending"
	StatusPaid    = "paid"
	StatusFailed  = "failed"
)

// NewSubscriptionKey marks a purchase that provisions a fresh subscription
// instead of renewing an existing one.
const NewSubscriptionKey = "new"

// Transaction represents one payment attempt
type Transaction struct {
	ID                 int64  `json:"id"`
	UserID             int64  `json:"user_id"`
	SubscriptionPlanID int64  `json:"subscription_plan_id"`
	UserSubscriptionID string `json:"user_subscription_id"`
	Amount             int64  `json:"amount"`
	Gateway            string `json:"gateway"`
	RefID              string `json:"ref_id"`
	RefNumber          string `json:"ref_number"`
	CardNumber         string `json:"card_number"`
	Status             string `json:"status"`
	PaidAt             string `json:"paid_at"`
	Description        string `json:"description"`
	CreatedAt          int64  `json:"created_at"`
	UpdatedAt          int64  `json:"updated_at"`
}

// IsTerminal reports whether the transaction reached a final state
func (t Transaction) IsTerminal() bool {
	return t.Status == StatusPaid || t.Status == StatusFailed
}
