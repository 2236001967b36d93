package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/avigne/subtrack/internal/analytics"
	"github.com/avigne/subtrack/internal/config"
	"github.com/avigne/subtrack/internal/middleware"
	"github.com/avigne/subtrack/internal/models"
	"github.com/avigne/subtrack/internal/repository"
	"github.com/avigne/subtrack/internal/utils/email"
)

// Service handles business logic
type Service struct {
	repo   *repository.Repository
	log    *logrus.Logger
	config *config.Config
	sender *email.Sender
}

// NewService initializes a new service
func NewService(repo *repository.Repository, log *logrus.Logger, cfg *config.Config, sender *email.Sender) *Service {
	return &Service{repo: repo, log: log, config: cfg, sender: sender}
}

// engine returns an analytics engine pinned to the current wall clock
func (s *Service) engine() *analytics.Engine {
	return analytics.NewEngine(time.Now())
}

// Register creates a new user with hashed password
func (s *Service) Register(username, email, password string) (*models.User, error) {
	if username == "" || email == "" {
		return nil, fmt.Errorf("username and email are required")
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
	}

	if err := s.repo.CreateUser(user); err != nil {
		return nil, err
	}

	s.log.Infof("User registered: %s", user.Email)
	return user, nil
}

// Login authenticates a user and returns a JWT token
func (s *Service) Login(email, password string) (string, error) {
	user, err := s.repo.FindUserByEmail(email)
	if err != nil {
		return "", fmt.Errorf("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", fmt.Errorf("invalid credentials")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   fmt.Sprintf("%d", user.ID),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
	})
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Infof("User logged in: %s", user.Email)
	return tokenString, nil
}

// CurrentUser returns the authenticated user's account
func (s *Service) CurrentUser(ctx context.Context) (*models.User, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.FindUserByID(userID)
}

// SetMonthlyBudget stores the caller's spending limit. Zero disables
// budget alerts.
func (s *Service) SetMonthlyBudget(ctx context.Context, budget float64) error {
	userID, err := s.userID(ctx)
	if err != nil {
		return err
	}
	if budget < 0 {
		return fmt.Errorf("monthly budget cannot be negative")
	}
	if err := s.repo.UpdateUserBudget(userID, budget); err != nil {
		return err
	}
	s.log.Infof("Monthly budget for user %d set to %.2f", userID, budget)
	return nil
}

// CreateSubscription validates and stores a new subscription for the
// authenticated user.
func (s *Service) CreateSubscription(ctx context.Context, sub *models.Subscription) (*models.Subscription, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}

	if sub.ID == "" {
		created := models.NewSubscription(sub.ServiceName, sub.OwnerName, sub.Category,
			sub.MonthlyPrice, sub.StartDate, sub.EndDate)
		created.BillingFrequency = orDefault(sub.BillingFrequency, created.BillingFrequency)
		created.Priority = orDefaultPriority(sub.Priority, created.Priority)
		created.LastUsedDate = sub.LastUsedDate
		if sub.SharedUserCount > 0 {
			created.SharedUserCount = sub.SharedUserCount
		}
		created.Shared = sub.Shared
		created.Notes = sub.Notes
		if sub.ReminderDays > 0 {
			created.ReminderDays = sub.ReminderDays
		}
		sub = created
	}
	sub.UserID = userID

	if err := sub.Validate(); err != nil {
		return nil, fmt.Errorf("invalid subscription: %w", err)
	}
	if err := s.repo.CreateSubscription(sub); err != nil {
		return nil, err
	}

	s.log.Infof("Subscription created for user %d: %s", userID, sub.ServiceName)
	return sub, nil
}

// GetSubscription returns a single subscription owned by the caller
func (s *Service) GetSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}
	sub, err := s.repo.FindSubscriptionByID(id)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, fmt.Errorf("subscription not found")
	}
	return sub, nil
}

// ListSubscriptions returns the caller's full portfolio
func (s *Service) ListSubscriptions(ctx context.Context) ([]*models.Subscription, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListSubscriptions(userID)
}

// UpdateSubscription validates and stores changes to an existing record
func (s *Service) UpdateSubscription(ctx context.Context, sub *models.Subscription) (*models.Subscription, error) {
	existing, err := s.GetSubscription(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	sub.UserID = existing.UserID
	sub.CreatedAt = existing.CreatedAt

	if err := sub.Validate(); err != nil {
		return nil, fmt.Errorf("invalid subscription: %w", err)
	}
	if err := s.repo.UpdateSubscription(sub); err != nil {
		return nil, err
	}

	s.log.Infof("Subscription updated: %s", sub.ID)
	return sub, nil
}

// DeleteSubscription removes one of the caller's subscriptions
func (s *Service) DeleteSubscription(ctx context.Context, id string) error {
	if _, err := s.GetSubscription(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteSubscription(id); err != nil {
		return err
	}
	s.log.Infof("Subscription deleted: %s", id)
	return nil
}

// MarkSubscriptionUsed records a usage observation at the current time
func (s *Service) MarkSubscriptionUsed(ctx context.Context, id string) (*models.Subscription, error) {
	sub, err := s.GetSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	sub.LastUsedDate = &now
	if err := s.repo.UpdateSubscription(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Report assembles the full portfolio report for the caller
func (s *Service) Report(ctx context.Context) (*analytics.PortfolioReport, error) {
	subs, err := s.ListSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine().BuildReport(subs), nil
}

// Scores returns the per subscription score set for the caller's portfolio
func (s *Service) Scores(ctx context.Context) (map[string]analytics.ScoreSet, error) {
	subs, err := s.ListSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	e := s.engine()
	scores := make(map[string]analytics.ScoreSet, len(subs))
	for _, sub := range subs {
		scores[sub.ID] = e.Score(sub)
	}
	return scores, nil
}

// Duplicates runs the fuzzy duplicate detection over the caller's portfolio
func (s *Service) Duplicates(ctx context.Context) ([]analytics.DuplicateGroup, error) {
	subs, err := s.ListSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine().DetectDuplicates(subs), nil
}

// Segments clusters the caller's portfolio into spending segments
func (s *Service) Segments(ctx context.Context) ([]analytics.Cluster, error) {
	subs, err := s.ListSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine().SegmentPortfolio(subs), nil
}

// Forecast projects the caller's spending over the given horizon
func (s *Service) Forecast(ctx context.Context, months int) (*analytics.ForecastResult, error) {
	subs, err := s.ListSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine().ForecastCosts(subs, months)
}

// BudgetPlan computes the cancellations needed to meet a monthly budget
func (s *Service) BudgetPlan(ctx context.Context, target float64) (*analytics.BudgetReductionPlan, error) {
	subs, err := s.ListSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine().PlanBudgetReduction(subs, target)
}

// Health returns the 0-100 portfolio health score
func (s *Service) Health(ctx context.Context) (float64, error) {
	subs, err := s.ListSubscriptions(ctx)
	if err != nil {
		return 0, err
	}
	return s.engine().PortfolioHealth(subs), nil
}

// Metrics returns the aggregate value indicators
func (s *Service) Metrics(ctx context.Context) (analytics.AdvancedMetrics, error) {
	subs, err := s.ListSubscriptions(ctx)
	if err != nil {
		return analytics.AdvancedMetrics{}, err
	}
	return s.engine().Metrics(subs), nil
}

// Anomalies runs the anomaly checks over the caller's portfolio
func (s *Service) Anomalies(ctx context.Context) (*analytics.AnomalyReport, error) {
	subs, err := s.ListSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine().DetectAnomalies(subs), nil
}

// ImportCSV loads subscriptions from a portfolio file and stores them
// for the caller. Returns the number of records imported.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (int, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return 0, err
	}

	subs, err := repository.ReadCSV(r)
	if err != nil {
		return 0, fmt.Errorf("failed to parse import: %w", err)
	}
	for _, sub := range subs {
		sub.UserID = userID
		if err := s.repo.CreateSubscription(sub); err != nil {
			return 0, fmt.Errorf("failed to import %s: %w", sub.ServiceName, err)
		}
	}

	s.log.Infof("Imported %d subscriptions for user %d", len(subs), userID)
	return len(subs), nil
}

// ExportCSV writes the caller's portfolio in the CSV file format
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	subs, err := s.ListSubscriptions(ctx)
	if err != nil {
		return err
	}
	return repository.WriteCSV(w, subs)
}

// SendExpiryReminders mails every user whose subscriptions are inside
// their reminder window. Called daily by the scheduler.
func (s *Service) SendExpiryReminders() error {
	now := time.Now()
	expiring, err := s.repo.ListExpiringSubscriptions(now)
	if err != nil {
		return err
	}

	failed := 0
	for _, exp := range expiring {
		days := exp.Subscription.DaysUntilExpiry(now)
		if err := s.sender.SendExpiryReminder(exp.Email, exp.Username, exp.Subscription, days); err != nil {
			failed++
		}
	}
	s.log.Infof("Expiry reminder run: %d due, %d failed", len(expiring), failed)
	if failed > 0 {
		return fmt.Errorf("failed to send %d of %d reminders", failed, len(expiring))
	}
	return nil
}

// SendMonthlyReports mails every user owning subscriptions their
// portfolio report, plus a budget alert when the active spend exceeds
// the budget they set. Called on the first of each month by the
// scheduler.
func (s *Service) SendMonthlyReports() error {
	users, err := s.repo.ListUsersWithSubscriptions()
	if err != nil {
		return err
	}

	e := s.engine()
	failed := 0
	for _, user := range users {
		subs, err := s.repo.ListSubscriptions(user.ID)
		if err != nil {
			s.log.Errorf("Failed to load portfolio for user %d: %v", user.ID, err)
			failed++
			continue
		}

		report := e.BuildReport(subs)
		if err := s.sender.SendMonthlyReport(user.Email, user.Username, report); err != nil {
			failed++
		}

		if user.MonthlyBudget <= 0 {
			continue
		}
		plan, err := e.PlanBudgetReduction(subs, user.MonthlyBudget)
		if err != nil {
			s.log.Errorf("Failed to plan budget for user %d: %v", user.ID, err)
			failed++
			continue
		}
		if plan.RequiredSaving > 0 {
			if err := s.sender.SendBudgetAlert(user.Email, user.Username, plan); err != nil {
				failed++
			}
		}
	}

	s.log.Infof("Monthly report run: %d users, %d failures", len(users), failed)
	if failed > 0 {
		return fmt.Errorf("monthly report run had %d failure(s) across %d users", failed, len(users))
	}
	return nil
}

func (s *Service) userID(ctx context.Context) (int64, error) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		return 0, fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

func orDefault(v, def models.BillingFrequency) models.BillingFrequency {
	if v == "" {
		return def
	}
	return v
}

func orDefaultPriority(v, def models.Priority) models.Priority {
	if v == "" {
		return def
	}
	return v
}
