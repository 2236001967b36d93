package models

import "time"

// User represents a registered account owning subscriptions. A
// MonthlyBudget of zero means the user has not set one and no budget
// alerts are sent.
type User struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	PasswordHash  string    `json:"-"` // Not serialized
	MonthlyBudget float64   `json:"monthly_budget"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ExpiringSubscription pairs a subscription nearing its end date with
// the owning user's contact details for the reminder mailing.
type ExpiringSubscription struct {
	Email        string
	Username     string
	Subscription *Subscription
}
