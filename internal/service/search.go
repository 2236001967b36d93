package service

import (
	"context"
	"strings"

	"github.com/avigne/subtrack/internal/models"
)

// SearchFilter narrows a portfolio by category, free text and price
// range. Zero-valued criteria are ignored; nil price bounds mean
// unbounded on that side.
type SearchFilter struct {
	Category string
	Text     string
	MinPrice *float64
	MaxPrice *float64
}

// FilterSubscriptions applies the filter over a snapshot. Category
// matches exactly, ignoring case. Text matches case-insensitively
// against the service name or the notes. Price bounds are inclusive.
func FilterSubscriptions(subs []*models.Subscription, f SearchFilter) []*models.Subscription {
	text := strings.ToLower(strings.TrimSpace(f.Text))
	out := []*models.Subscription{}
	for _, s := range subs {
		if f.Category != "" && !strings.EqualFold(s.Category, f.Category) {
			continue
		}
		if text != "" {
			name := strings.ToLower(s.ServiceName)
			notes := strings.ToLower(s.Notes)
			if !strings.Contains(name, text) && !strings.Contains(notes, text) {
				continue
			}
		}
		if f.MinPrice != nil && s.MonthlyPrice < *f.MinPrice {
			continue
		}
		if f.MaxPrice != nil && s.MonthlyPrice > *f.MaxPrice {
			continue
		}
		out = append(out, s)
	}
	return out
}

// SearchSubscriptions filters the caller's portfolio
func (s *Service) SearchSubscriptions(ctx context.Context, f SearchFilter) ([]*models.Subscription, error) {
	subs, err := s.ListSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	return FilterSubscriptions(subs, f), nil
}
