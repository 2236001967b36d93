package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/avigne/subtrack/internal/analytics"
	"github.com/avigne/subtrack/internal/config"
	"github.com/avigne/subtrack/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

// SendExpiryReminder sends a reminder that a subscription is about to
// end or renew.
func (s *Sender) SendExpiryReminder(to, username string, sub *models.Subscription, daysLeft int) error {
	subject, body := expiryReminderContent(username, sub, daysLeft)
	return s.send(to, subject, body)
}

// SendMonthlyReport sends the portfolio report summary
func (s *Sender) SendMonthlyReport(to, username string, report *analytics.PortfolioReport) error {
	subject, body := monthlyReportContent(username, report)
	return s.send(to, subject, body)
}

// SendBudgetAlert sends the cancellation plan produced when spending
// exceeds the user's monthly budget.
func (s *Sender) SendBudgetAlert(to, username string, plan *analytics.BudgetReductionPlan) error {
	subject, body := budgetAlertContent(username, plan)
	return s.send(to, subject, body)
}

func expiryReminderContent(username string, sub *models.Subscription, daysLeft int) (string, string) {
	var subject string
	if daysLeft <= 0 {
		subject = fmt.Sprintf("%s expires today", sub.ServiceName)
	} else {
		subject = fmt.Sprintf("%s expires in %d day(s)", sub.ServiceName, daysLeft)
	}

	body := fmt.Sprintf("Dear %s,\n\n", username)
	body += fmt.Sprintf(
		"Your %s subscription (%.2f/month) ends on %s.\n"+
			"Decide whether to renew or let it lapse before you are charged again.\n",
		sub.ServiceName, sub.MonthlyPrice, sub.EndDate.Format("2006-01-02"),
	)
	if sub.Notes != "" {
		body += fmt.Sprintf("\nYour notes: %s\n", sub.Notes)
	}
	body += "\nBest regards,\nSubtrack"
	return subject, body
}

func monthlyReportContent(username string, report *analytics.PortfolioReport) (string, string) {
	subject := "Your monthly subscription report"

	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", username)
	fmt.Fprintf(&b, "Portfolio health: %.0f/100\n", report.Stats.HealthScore)
	fmt.Fprintf(&b, "Active subscriptions: %d of %d\n", report.Stats.ActiveCount, report.Stats.TotalSubscriptions)
	fmt.Fprintf(&b, "Total monthly cost: %.2f\n", report.Stats.TotalMonthlyCost)
	if report.PotentialSavings > 0 {
		fmt.Fprintf(&b, "Potential savings: %.2f/month\n", report.PotentialSavings)
	}
	if len(report.Recommendations) > 0 {
		b.WriteString("\nRecommendations:\n")
		for _, rec := range report.Recommendations {
			fmt.Fprintf(&b, "  - %s\n", rec)
		}
	}
	b.WriteString("\nBest regards,\nSubtrack")
	return subject, b.String()
}

func budgetAlertContent(username string, plan *analytics.BudgetReductionPlan) (string, string) {
	subject := "Subscription spending exceeds your budget"

	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", username)
	fmt.Fprintf(&b,
		"You currently spend %.2f/month against a budget of %.2f.\n"+
			"Cutting %.2f/month would bring you back under budget.\n",
		plan.CurrentMonthlyCost, plan.TargetMonthlyBudget, plan.RequiredSaving,
	)
	if len(plan.RecommendedCancellations) > 0 {
		b.WriteString("\nSuggested cancellations, least valuable first:\n")
		for _, sub := range plan.RecommendedCancellations {
			fmt.Fprintf(&b, "  - %s (%.2f/month)\n", sub.ServiceName, sub.MonthlyPrice)
		}
	}
	if !plan.TargetFeasible {
		b.WriteString("\nEven cancelling everything would not reach the target. Consider raising the budget.\n")
	}
	b.WriteString("\nBest regards,\nSubtrack")
	return subject, b.String()
}

func (s *Sender) send(to, subject, body string) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}
