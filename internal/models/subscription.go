package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BillingFrequency is the recurrence period of a subscription's charge.
type BillingFrequency string

const (
	Monthly    BillingFrequency = "Monthly"
	Quarterly  BillingFrequency = "Quarterly"
	SemiAnnual BillingFrequency = "SemiAnnual"
	Annual     BillingFrequency = "Annual"
)

// Months returns the number of months covered by one billing period.
func (f BillingFrequency) Months() int {
	switch f {
	case Quarterly:
		return 3
	case SemiAnnual:
		return 6
	case Annual:
		return 12
	default:
		return 1
	}
}

// Valid reports whether f is one of the known billing frequencies.
func (f BillingFrequency) Valid() bool {
	switch f {
	case Monthly, Quarterly, SemiAnnual, Annual:
		return true
	}
	return false
}

// Priority classifies how dispensable a subscription is.
type Priority string

const (
	Essential Priority = "Essential"
	Important Priority = "Important"
	Optional  Priority = "Optional"
	Luxury    Priority = "Luxury"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case Essential, Important, Optional, Luxury:
		return true
	}
	return false
}

// Subscription represents a recurring subscription expense.
// MonthlyPrice is always normalized to cost per month regardless of
// the billing frequency.
type Subscription struct {
	ID               string           `json:"id"`
	UserID           int64            `json:"user_id"`
	ServiceName      string           `json:"service_name"`
	OwnerName        string           `json:"owner_name"`
	Category         string           `json:"category"`
	MonthlyPrice     float64          `json:"monthly_price"`
	BillingFrequency BillingFrequency `json:"billing_frequency"`
	StartDate        time.Time        `json:"start_date"`
	EndDate          time.Time        `json:"end_date"`
	LastUsedDate     *time.Time       `json:"last_used_date,omitempty"`
	Priority         Priority         `json:"priority"`
	SharedUserCount  int              `json:"shared_user_count"`
	Shared           bool             `json:"shared"`
	Notes            string           `json:"notes,omitempty"`
	ReminderDays     int              `json:"reminder_days"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// NewSubscription creates a subscription with a fresh UUID and defaults
// for the optional fields.
func NewSubscription(serviceName, ownerName, category string, monthlyPrice float64, start, end time.Time) *Subscription {
	if category == "" {
		category = "Uncategorized"
	}
	return &Subscription{
		ID:               uuid.NewString(),
		ServiceName:      serviceName,
		OwnerName:        ownerName,
		Category:         category,
		MonthlyPrice:     monthlyPrice,
		BillingFrequency: Monthly,
		StartDate:        start,
		EndDate:          end,
		Priority:         Important,
		SharedUserCount:  1,
		ReminderDays:     7,
	}
}

// IsActive reports whether the subscription is running at the given date,
// inclusive of both the start and end date.
func (s *Subscription) IsActive(now time.Time) bool {
	day := truncateToDay(now)
	return !day.Before(truncateToDay(s.StartDate)) && !day.After(truncateToDay(s.EndDate))
}

// DaysUntilExpiry returns the number of days until the end date.
// Negative when the subscription already expired.
func (s *Subscription) DaysUntilExpiry(now time.Time) int {
	return int(truncateToDay(s.EndDate).Sub(truncateToDay(now)).Hours() / 24)
}

// DaysSinceLastUse returns the days elapsed since the last observed use
// and false when the subscription was never observed as used.
func (s *Subscription) DaysSinceLastUse(now time.Time) (int, bool) {
	if s.LastUsedDate == nil {
		return 0, false
	}
	return int(truncateToDay(now).Sub(truncateToDay(*s.LastUsedDate)).Hours() / 24), true
}

// NextRenewal returns the first billing date that is not before the
// given date, advancing from the start date by the billing period.
func (s *Subscription) NextRenewal(now time.Time) time.Time {
	due := s.StartDate
	day := truncateToDay(now)
	for truncateToDay(due).Before(day) {
		due = due.AddDate(0, s.BillingFrequency.Months(), 0)
	}
	return due
}

// AnnualCost returns the estimated cost per year.
func (s *Subscription) AnnualCost() float64 {
	return s.MonthlyPrice * 12
}

// CostPerUser returns the monthly price split across the people sharing
// the subscription.
func (s *Subscription) CostPerUser() float64 {
	if s.SharedUserCount > 0 {
		return s.MonthlyPrice / float64(s.SharedUserCount)
	}
	return s.MonthlyPrice
}

// TotalCostToDate returns the cumulative spend since the start date.
func (s *Subscription) TotalCostToDate(now time.Time) float64 {
	months := monthsBetween(s.StartDate, now)
	if months < 0 {
		months = 0
	}
	return float64(months) * s.MonthlyPrice
}

// NeedsReminder reports whether the subscription is inside its reminder
// window before expiry.
func (s *Subscription) NeedsReminder(now time.Time) bool {
	if s.ReminderDays <= 0 {
		return false
	}
	days := s.DaysUntilExpiry(now)
	return days >= 0 && days <= s.ReminderDays
}

// Validate checks the business invariants of the record.
func (s *Subscription) Validate() error {
	if s.ServiceName == "" {
		return fmt.Errorf("service name is required")
	}
	if s.MonthlyPrice < 0 {
		return fmt.Errorf("monthly price cannot be negative")
	}
	if s.StartDate.IsZero() || s.EndDate.IsZero() {
		return fmt.Errorf("start and end dates are required")
	}
	if s.StartDate.After(s.EndDate) {
		return fmt.Errorf("start date cannot be after end date")
	}
	if s.SharedUserCount < 1 {
		return fmt.Errorf("shared user count must be at least 1")
	}
	if s.ReminderDays < 0 {
		return fmt.Errorf("reminder days cannot be negative")
	}
	if s.BillingFrequency != "" && !s.BillingFrequency.Valid() {
		return fmt.Errorf("unknown billing frequency: %s", s.BillingFrequency)
	}
	if s.Priority != "" && !s.Priority.Valid() {
		return fmt.Errorf("unknown priority: %s", s.Priority)
	}
	return nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func monthsBetween(from, to time.Time) int {
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if to.Day() < from.Day() {
		months--
	}
	return months
}
